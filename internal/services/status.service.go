package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/pkg/logger"
	"github.com/nimasrn/laser/pkg/redis"
)

const statusCacheKey = "deal_status:sorted"

type DealStatusRepository interface {
	Sorted(ctx context.Context) ([]*model.DealStatus, error)
	Get(ctx context.Context, id int64) (*model.DealStatus, error)
}

// StatusService serves the seeded deal lifecycle. The sorted list is cached
// in redis when a cache is configured.
type StatusService struct {
	repo  DealStatusRepository
	cache redis.RedisAdapter
	ttl   time.Duration
}

func NewStatusService(repo DealStatusRepository, cache redis.RedisAdapter, ttl time.Duration) *StatusService {
	return &StatusService{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// Sorted returns every status ordered by sequence ascending.
func (s *StatusService) Sorted(ctx context.Context) ([]*model.DealStatus, error) {
	if cached, ok := s.fromCache(ctx); ok {
		return cached, nil
	}

	statuses, err := s.repo.Sorted(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(statuses) > 0 {
		if raw, err := json.Marshal(statuses); err == nil {
			if err := s.cache.Set(ctx, statusCacheKey, raw, s.ttl); err != nil {
				logger.Warn("status cache write failed", "error", err)
			}
		}
	}
	return statuses, nil
}

func (s *StatusService) fromCache(ctx context.Context) ([]*model.DealStatus, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, statusCacheKey)
	if err != nil {
		if !errors.Is(err, redis.NilError) {
			logger.Warn("status cache read failed", "error", err)
		}
		return nil, false
	}
	var statuses []*model.DealStatus
	if err := json.Unmarshal(raw, &statuses); err != nil || len(statuses) == 0 {
		return nil, false
	}
	return statuses, true
}

// Invalidate drops the cached list; the next read goes to storage.
func (s *StatusService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, statusCacheKey)
}

// ByID looks the status up in the sorted list. A miss is checked against
// storage, since a cached list may predate the latest seed migration; a hit
// there drops the stale cache.
func (s *StatusService) ByID(ctx context.Context, id int64) (*model.DealStatus, error) {
	st, err := s.find(ctx, func(st *model.DealStatus) bool { return st.ID == id }, id)
	if !errors.Is(err, model.ErrNotFound) {
		return st, err
	}
	if st, err = s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.Invalidate(ctx); err != nil {
		logger.Warn("status cache invalidation failed", "error", err)
	}
	return st, nil
}

func (s *StatusService) ByName(ctx context.Context, name string) (*model.DealStatus, error) {
	return s.find(ctx, func(st *model.DealStatus) bool { return strings.EqualFold(st.Name, name) }, name)
}

func (s *StatusService) BySequence(ctx context.Context, seq int) (*model.DealStatus, error) {
	return s.find(ctx, func(st *model.DealStatus) bool { return st.Sequence == seq }, seq)
}

func (s *StatusService) find(ctx context.Context, match func(*model.DealStatus) bool, key any) (*model.DealStatus, error) {
	statuses, err := s.Sorted(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range statuses {
		if match(st) {
			return st, nil
		}
	}
	return nil, model.NotFound("deal status", key)
}
