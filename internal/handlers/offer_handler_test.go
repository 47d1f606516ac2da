package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"testing"

	"github.com/nimasrn/laser/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOfferService struct {
	mock.Mock
}

func (m *MockOfferService) Propose(ctx context.Context, req model.ProposeRequest) (*model.Offer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockOfferService) Accept(ctx context.Context, offerID int64) (*model.Offer, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Offer), args.Error(1)
}

func (m *MockOfferService) Withdraw(ctx context.Context, offerID int64) error {
	return m.Called(ctx, offerID).Error(0)
}

func (m *MockOfferService) ListByShipmentDeal(ctx context.Context, dealID int64) iter.Seq2[*model.Offer, error] {
	return m.Called(ctx, dealID).Get(0).(iter.Seq2[*model.Offer, error])
}

func (m *MockOfferService) ListByTripDeal(ctx context.Context, dealID int64) iter.Seq2[*model.Offer, error] {
	return m.Called(ctx, dealID).Get(0).(iter.Seq2[*model.Offer, error])
}

func offerSeq(offers []*model.Offer, err error) iter.Seq2[*model.Offer, error] {
	return func(yield func(*model.Offer, error) bool) {
		for _, o := range offers {
			if !yield(o, nil) {
				return
			}
		}
		if err != nil {
			yield(nil, err)
		}
	}
}

func TestOfferHandler_Propose(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockOfferService)
		handler := NewOfferHandler(svc)
		req := model.ProposeRequest{ShipmentDealID: 2, TripDealID: 1, SenderID: 9}
		svc.On("Propose", mock.Anything, req).
			Return(&model.Offer{ID: 11, ShipmentDealID: 2, TripDealID: 1, Status: model.OfferPending}, nil)

		body, _ := json.Marshal(req)
		ctx := setupTestContext("POST", "/offers", body)
		handler.Propose(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		var offer model.Offer
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &offer))
		assert.Equal(t, int64(11), offer.ID)
		svc.AssertExpectations(t)
	})

	t.Run("capacity exceeded", func(t *testing.T) {
		svc := new(MockOfferService)
		handler := NewOfferHandler(svc)
		svc.On("Propose", mock.Anything, mock.Anything).Return(nil, model.ErrCapacityExceeded)

		ctx := setupTestContext("POST", "/offers", []byte(`{"shipment_deal_id":2,"trip_deal_id":1,"sender_id":9}`))
		handler.Propose(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
	})
}

func TestOfferHandler_AcceptAndWithdraw(t *testing.T) {
	svc := new(MockOfferService)
	handler := NewOfferHandler(svc)
	svc.On("Accept", mock.Anything, int64(3)).Return(nil, fmt.Errorf("%w: offer 3 is accepted", model.ErrStaleOffer))
	svc.On("Withdraw", mock.Anything, int64(4)).Return(nil)

	ctx := setupTestContext("POST", "/offers/3/accept", nil)
	ctx.SetUserValue("id", "3")
	handler.Accept(ctx)
	assert.Equal(t, 409, ctx.Response.StatusCode())

	ctx = setupTestContext("DELETE", "/offers/4", nil)
	ctx.SetUserValue("id", "4")
	handler.Withdraw(ctx)
	assert.Equal(t, 204, ctx.Response.StatusCode())

	svc.AssertExpectations(t)
}

func TestOfferHandler_ListByDeal(t *testing.T) {
	offers := []*model.Offer{{ID: 1}, {ID: 2}, {ID: 3}}

	t.Run("trip side with limit", func(t *testing.T) {
		svc := new(MockOfferService)
		handler := NewOfferHandler(svc)
		svc.On("ListByTripDeal", mock.Anything, int64(8)).Return(offerSeq(offers, nil))

		ctx := setupTestContext("GET", "/deals/8/offers?side=trip&limit=2", nil)
		ctx.SetUserValue("id", "8")
		handler.ListByDeal(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var got []*model.Offer
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
		assert.Len(t, got, 2)
	})

	t.Run("shipment side by default", func(t *testing.T) {
		svc := new(MockOfferService)
		handler := NewOfferHandler(svc)
		svc.On("ListByShipmentDeal", mock.Anything, int64(8)).Return(offerSeq(nil, nil))

		ctx := setupTestContext("GET", "/deals/8/offers", nil)
		ctx.SetUserValue("id", "8")
		handler.ListByDeal(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		assert.JSONEq(t, `[]`, string(ctx.Response.Body()))
	})

	t.Run("unknown deal", func(t *testing.T) {
		svc := new(MockOfferService)
		handler := NewOfferHandler(svc)
		svc.On("ListByShipmentDeal", mock.Anything, int64(8)).Return(offerSeq(nil, model.NotFound("deal", 8)))

		ctx := setupTestContext("GET", "/deals/8/offers?side=shipment", nil)
		ctx.SetUserValue("id", "8")
		handler.ListByDeal(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})

	t.Run("bad side", func(t *testing.T) {
		handler := NewOfferHandler(new(MockOfferService))

		ctx := setupTestContext("GET", "/deals/8/offers?side=both", nil)
		ctx.SetUserValue("id", "8")
		handler.ListByDeal(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}
