package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/internal/repository"
	"github.com/nimasrn/laser/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDealStatusRepository struct {
	mock.Mock
}

func (m *MockDealStatusRepository) Sorted(ctx context.Context) ([]*model.DealStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.DealStatus), args.Error(1)
}

func (m *MockDealStatusRepository) Get(ctx context.Context, id int64) (*model.DealStatus, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DealStatus), args.Error(1)
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "laser:", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	return mr, adapter
}

func TestStatusService_SortedFromStorage(t *testing.T) {
	db := repository.NewTestDB(t)
	svc := NewStatusService(repository.NewDealStatusRepository(db), nil, time.Minute)
	ctx := context.Background()

	statuses, err := svc.Sorted(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 5)
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = st.Name
		assert.Equal(t, i+1, st.Sequence)
	}
	assert.Equal(t, []string{"Waiting", "Pending", "Agreement", "Ready to receive", "Done"}, names)

	st, err := svc.ByName(ctx, "ready TO receive")
	require.NoError(t, err)
	assert.Equal(t, model.SequenceReadyToReceive, st.Sequence)

	_, err = svc.BySequence(ctx, 6)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestStatusService_CachesInRedis(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	repo := new(MockDealStatusRepository)
	ctx := context.Background()
	seeded := []*model.DealStatus{
		{ID: 1, Name: "Waiting", Sequence: 1},
		{ID: 2, Name: "Pending", Sequence: 2},
	}
	repo.On("Sorted", mock.Anything).Return(seeded, nil).Once()

	svc := NewStatusService(repo, adapter, time.Minute)

	first, err := svc.Sorted(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists("laser:"+statusCacheKey))
	mr.FastForward(30 * time.Second)

	second, err := svc.Sorted(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	repo.AssertNumberOfCalls(t, "Sorted", 1)

	require.NoError(t, svc.Invalidate(ctx))
	repo.On("Sorted", mock.Anything).Return(seeded[:1], nil).Once()
	third, err := svc.Sorted(ctx)
	require.NoError(t, err)
	assert.Len(t, third, 1)
	repo.AssertExpectations(t)
}

func TestStatusService_CacheExpires(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	repo := new(MockDealStatusRepository)
	repo.On("Sorted", mock.Anything).Return([]*model.DealStatus{{ID: 1, Name: "Waiting", Sequence: 1}}, nil)

	svc := NewStatusService(repo, adapter, time.Minute)
	_, err := svc.Sorted(context.Background())
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = svc.Sorted(context.Background())
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Sorted", 2)
}

func TestStatusService_StorageError(t *testing.T) {
	repo := new(MockDealStatusRepository)
	repo.On("Sorted", mock.Anything).Return(nil, errors.New("connection refused"))

	svc := NewStatusService(repo, nil, time.Minute)
	_, err := svc.ByID(context.Background(), 1)
	assert.EqualError(t, err, "connection refused")
}

func TestStatusService_ByIDRefreshesStaleCache(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	repo := new(MockDealStatusRepository)
	ctx := context.Background()
	stale := []*model.DealStatus{{ID: 1, Name: "Waiting", Sequence: 1}}
	fresh := append(stale, &model.DealStatus{ID: 2, Name: "Pending", Sequence: 2})
	repo.On("Sorted", mock.Anything).Return(stale, nil).Once()

	svc := NewStatusService(repo, adapter, time.Hour)
	_, err := svc.Sorted(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists("laser:"+statusCacheKey))

	repo.On("Get", mock.Anything, int64(2)).Return(fresh[1], nil).Once()
	st, err := svc.ByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Pending", st.Name)
	assert.False(t, mr.Exists("laser:"+statusCacheKey))

	repo.On("Sorted", mock.Anything).Return(fresh, nil).Once()
	st, err = svc.ByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Pending", st.Name)

	repo.On("Get", mock.Anything, int64(9)).Return(nil, model.NotFound("deal status", 9)).Once()
	_, err = svc.ByID(ctx, 9)
	assert.ErrorIs(t, err, model.ErrNotFound)
	repo.AssertExpectations(t)
}
