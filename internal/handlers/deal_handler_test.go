package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/nimasrn/laser/internal/model"
	xhttp "github.com/nimasrn/laser/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type MockDealService struct {
	mock.Mock
}

func (m *MockDealService) Get(ctx context.Context, id int64) (*model.Deal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Deal), args.Error(1)
}

func (m *MockDealService) AdvanceStatus(ctx context.Context, dealID, statusID int64) (*model.Deal, error) {
	args := m.Called(ctx, dealID, statusID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Deal), args.Error(1)
}

func (m *MockDealService) ListByStatus(ctx context.Context, name string, page model.PageRequest) (model.Page[*model.Deal], error) {
	args := m.Called(ctx, name, page)
	return args.Get(0).(model.Page[*model.Deal]), args.Error(1)
}

func (m *MockDealService) SearchByAccount(ctx context.Context, needle string, page model.PageRequest) (model.Page[*model.Deal], error) {
	args := m.Called(ctx, needle, page)
	return args.Get(0).(model.Page[*model.Deal]), args.Error(1)
}

func (m *MockDealService) Shipments(ctx context.Context, dealID int64, page model.PageRequest) (model.Page[*model.Shipment], error) {
	args := m.Called(ctx, dealID, page)
	return args.Get(0).(model.Page[*model.Shipment]), args.Error(1)
}

func (m *MockDealService) RemoveShipment(ctx context.Context, dealID, shipmentID int64) (*model.Deal, error) {
	args := m.Called(ctx, dealID, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Deal), args.Error(1)
}

func (m *MockDealService) Recent(ctx context.Context, side model.Side, page model.PageRequest) (model.Page[*model.Deal], error) {
	args := m.Called(ctx, side, page)
	return args.Get(0).(model.Page[*model.Deal]), args.Error(1)
}

func (m *MockDealService) RecordTransaction(ctx context.Context, dealID int64, req model.TransactionCreateRequest) (*model.Deal, error) {
	args := m.Called(ctx, dealID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Deal), args.Error(1)
}

func (m *MockDealService) CreateProvider(ctx context.Context, name string) (*model.AccountProvider, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccountProvider), args.Error(1)
}

func (m *MockDealService) Providers(ctx context.Context) ([]*model.AccountProvider, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AccountProvider), args.Error(1)
}

type MockStatusService struct {
	mock.Mock
}

func (m *MockStatusService) Sorted(ctx context.Context) ([]*model.DealStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.DealStatus), args.Error(1)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func decodeError(t *testing.T, ctx *xhttp.RequestCtx) string {
	var response errorResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
	return response.Error
}

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{model.NotFound("deal", 3), 404},
		{model.InvalidArgument("bad weight"), 400},
		{model.ErrSameSide, 400},
		{fmt.Errorf("%w: back to Waiting", model.ErrInvalidTransition), 422},
		{fmt.Errorf("%w: lost the race", model.ErrStaleOffer), 409},
		{model.ErrDuplicateOffer, 409},
		{model.ErrCapacityExceeded, 409},
		{errors.New("connection reset"), 500},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			ctx := setupTestContext("GET", "/", nil)
			writeServiceError(ctx, tc.err)
			assert.Equal(t, tc.status, ctx.Response.StatusCode())
			if tc.status == 500 {
				assert.NotContains(t, decodeError(t, ctx), "connection reset")
			}
		})
	}
}

func TestDealHandler_GetDeal(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockDealService)
		handler := NewDealHandler(svc, new(MockStatusService))
		svc.On("Get", mock.Anything, int64(5)).Return(&model.Deal{ID: 5, MatchState: model.MatchTripMatched}, nil)

		ctx := setupTestContext("GET", "/deals/5", nil)
		ctx.SetUserValue("id", "5")
		handler.GetDeal(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var deal model.Deal
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &deal))
		assert.Equal(t, int64(5), deal.ID)
		svc.AssertExpectations(t)
	})

	t.Run("bad id", func(t *testing.T) {
		svc := new(MockDealService)
		handler := NewDealHandler(svc, new(MockStatusService))

		ctx := setupTestContext("GET", "/deals/abc", nil)
		ctx.SetUserValue("id", "abc")
		handler.GetDeal(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("missing", func(t *testing.T) {
		svc := new(MockDealService)
		handler := NewDealHandler(svc, new(MockStatusService))
		svc.On("Get", mock.Anything, int64(9)).Return(nil, model.NotFound("deal", 9))

		ctx := setupTestContext("GET", "/deals/9", nil)
		ctx.SetUserValue("id", "9")
		handler.GetDeal(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
		assert.Contains(t, decodeError(t, ctx), "deal 9")
	})
}

func TestDealHandler_AdvanceStatus(t *testing.T) {
	t.Run("moves forward", func(t *testing.T) {
		svc := new(MockDealService)
		handler := NewDealHandler(svc, new(MockStatusService))
		svc.On("AdvanceStatus", mock.Anything, int64(5), int64(2)).
			Return(&model.Deal{ID: 5, StatusID: 2}, nil)

		ctx := setupTestContext("PUT", "/deals/5/status", []byte(`{"status_id":2}`))
		ctx.SetUserValue("id", "5")
		handler.AdvanceStatus(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("backwards is unprocessable", func(t *testing.T) {
		svc := new(MockDealService)
		handler := NewDealHandler(svc, new(MockStatusService))
		svc.On("AdvanceStatus", mock.Anything, int64(5), int64(1)).
			Return(nil, fmt.Errorf("%w: cannot go back", model.ErrInvalidTransition))

		ctx := setupTestContext("PUT", "/deals/5/status", []byte(`{"status_id":1}`))
		ctx.SetUserValue("id", "5")
		handler.AdvanceStatus(ctx)

		assert.Equal(t, 422, ctx.Response.StatusCode())
	})

	t.Run("invalid JSON", func(t *testing.T) {
		handler := NewDealHandler(new(MockDealService), new(MockStatusService))

		ctx := setupTestContext("PUT", "/deals/5/status", []byte("{"))
		ctx.SetUserValue("id", "5")
		handler.AdvanceStatus(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.Contains(t, decodeError(t, ctx), "invalid JSON")
	})
}

func TestDealHandler_Listings(t *testing.T) {
	svc := new(MockDealService)
	statuses := new(MockStatusService)
	handler := NewDealHandler(svc, statuses)

	expectedPage := model.PageRequest{Page: 1, Size: 5, Sort: "created_at,desc"}
	svc.On("ListByStatus", mock.Anything, "Pending", expectedPage).
		Return(model.Page[*model.Deal]{Items: []*model.Deal{{ID: 1}}, Page: 1, Size: 5, Total: 6}, nil)

	ctx := setupTestContext("GET", "/deals?status=Pending&page=1&size=5&sort=created_at,desc", nil)
	handler.ListDeals(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	var page model.Page[*model.Deal]
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &page))
	assert.Equal(t, int64(6), page.Total)

	ctx = setupTestContext("GET", "/deals", nil)
	handler.ListDeals(ctx)
	assert.Equal(t, 400, ctx.Response.StatusCode())

	svc.On("Recent", mock.Anything, model.Side("sideways"), mock.Anything).
		Return(model.Page[*model.Deal]{}, model.InvalidArgument("side"))
	ctx = setupTestContext("GET", "/deals/recent?side=sideways", nil)
	handler.RecentDeals(ctx)
	assert.Equal(t, 400, ctx.Response.StatusCode())

	statuses.On("Sorted", mock.Anything).Return([]*model.DealStatus{{ID: 1, Name: "Waiting", Sequence: 1}}, nil)
	ctx = setupTestContext("GET", "/statuses", nil)
	handler.ListStatuses(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "Waiting")

	svc.AssertExpectations(t)
}

func TestDealHandler_RecordTransaction(t *testing.T) {
	svc := new(MockDealService)
	handler := NewDealHandler(svc, new(MockStatusService))

	svc.On("RecordTransaction", mock.Anything, int64(4), mock.MatchedBy(func(r model.TransactionCreateRequest) bool {
		return r.ProviderID == 1 && r.NetAmount == 40
	})).Return(nil, fmt.Errorf("%w: already paid", model.ErrConflict))

	ctx := setupTestContext("POST", "/deals/4/transactions", []byte(`{"provider_id":1,"from_account":"a","to_account":"b","net_amount":40}`))
	ctx.SetUserValue("id", "4")
	handler.RecordTransaction(ctx)

	assert.Equal(t, 409, ctx.Response.StatusCode())
	svc.AssertExpectations(t)
}

func TestDealHandler_SearchByAccount(t *testing.T) {
	svc := new(MockDealService)
	handler := NewDealHandler(svc, new(MockStatusService))
	svc.On("SearchByAccount", mock.Anything, "acc-9", mock.Anything).
		Return(model.Page[*model.Deal]{Items: []*model.Deal{{ID: 3, FromAccount: "acc-9"}}, Total: 1}, nil)

	ctx := setupTestContext("GET", "/deals?account=acc-9", nil)
	handler.ListDeals(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "acc-9")
	svc.AssertExpectations(t)
	svc.AssertNotCalled(t, "ListByStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestDealHandler_Shipments(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		svc := new(MockDealService)
		handler := NewDealHandler(svc, new(MockStatusService))
		svc.On("Shipments", mock.Anything, int64(4), model.PageRequest{Page: 0, Size: 2}).
			Return(model.Page[*model.Shipment]{Items: []*model.Shipment{{ID: 11}, {ID: 12}}, Size: 2, Total: 3}, nil)

		ctx := setupTestContext("GET", "/deals/4/shipments?size=2", nil)
		ctx.SetUserValue("id", "4")
		handler.ListShipments(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var page model.Page[*model.Shipment]
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &page))
		assert.Len(t, page.Items, 2)
		assert.Equal(t, int64(3), page.Total)
		svc.AssertExpectations(t)
	})

	t.Run("remove", func(t *testing.T) {
		svc := new(MockDealService)
		handler := NewDealHandler(svc, new(MockStatusService))
		svc.On("RemoveShipment", mock.Anything, int64(4), int64(11)).
			Return(&model.Deal{ID: 4, AvailableWeight: 50}, nil)

		ctx := setupTestContext("DELETE", "/deals/4/shipments/11", nil)
		ctx.SetUserValue("id", "4")
		ctx.SetUserValue("shipmentId", "11")
		handler.RemoveShipment(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("remove from a finished deal", func(t *testing.T) {
		svc := new(MockDealService)
		handler := NewDealHandler(svc, new(MockStatusService))
		svc.On("RemoveShipment", mock.Anything, int64(4), int64(11)).
			Return(nil, fmt.Errorf("%w: deal 4 is Done", model.ErrInvalidTransition))

		ctx := setupTestContext("DELETE", "/deals/4/shipments/11", nil)
		ctx.SetUserValue("id", "4")
		ctx.SetUserValue("shipmentId", "11")
		handler.RemoveShipment(ctx)

		assert.Equal(t, 422, ctx.Response.StatusCode())
	})

	t.Run("bad shipment id", func(t *testing.T) {
		svc := new(MockDealService)
		handler := NewDealHandler(svc, new(MockStatusService))

		ctx := setupTestContext("DELETE", "/deals/4/shipments/x", nil)
		ctx.SetUserValue("id", "4")
		ctx.SetUserValue("shipmentId", "x")
		handler.RemoveShipment(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "RemoveShipment", mock.Anything, mock.Anything, mock.Anything)
	})
}
