package repository

import (
	"context"
	"testing"

	"github.com/nimasrn/laser/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferRepository_PairIsUnique(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()

	created, err := f.offers.Create(ctx, &model.Offer{ShipmentDealID: 1, TripDealID: 2, Status: model.OfferPending, SenderID: 9})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = f.offers.Create(ctx, &model.Offer{ShipmentDealID: 1, TripDealID: 2, Status: model.OfferPending, SenderID: 7})
	assert.ErrorIs(t, err, model.ErrDuplicateOffer)
	assert.ErrorIs(t, err, model.ErrConflict)

	t.Run("lookup is symmetric", func(t *testing.T) {
		got, err := f.offers.FindPair(ctx, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)

		_, err = f.offers.FindPair(ctx, 1, 3)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestOfferRepository_ListByDeal_Pages(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	for trip := int64(10); trip < 15; trip++ {
		_, err := f.offers.Create(ctx, &model.Offer{ShipmentDealID: 1, TripDealID: trip, Status: model.OfferPending, SenderID: 9})
		require.NoError(t, err)
	}

	first, err := f.offers.ListByDeal(ctx, model.SideShipment, 1, 0, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)

	rest, err := f.offers.ListByDeal(ctx, model.SideShipment, 1, first[2].ID, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, int64(14), rest[1].TripDealID)

	byTrip, err := f.offers.ListByDeal(ctx, model.SideTrip, 12, 0, 10)
	require.NoError(t, err)
	require.Len(t, byTrip, 1)

	n, err := f.offers.CountByDeal(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestOfferRepository_TransitionAndClose(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()

	keep, err := f.offers.Create(ctx, &model.Offer{ShipmentDealID: 1, TripDealID: 2, Status: model.OfferPending, SenderID: 9})
	require.NoError(t, err)
	other, err := f.offers.Create(ctx, &model.Offer{ShipmentDealID: 1, TripDealID: 3, Status: model.OfferPending, SenderID: 9})
	require.NoError(t, err)
	unrelated, err := f.offers.Create(ctx, &model.Offer{ShipmentDealID: 4, TripDealID: 5, Status: model.OfferPending, SenderID: 9})
	require.NoError(t, err)

	require.NoError(t, f.offers.Transition(ctx, keep.ID, model.OfferPending, model.OfferAccepted))
	assert.ErrorIs(t, f.offers.Transition(ctx, keep.ID, model.OfferPending, model.OfferAccepted), ErrConcurrentUpdate)

	closed, err := f.offers.CloseOthers(ctx, []int64{1, 2}, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)

	got, err := f.offers.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OfferClosed, got.Status)

	got, err = f.offers.Get(ctx, unrelated.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OfferPending, got.Status)

	t.Run("only pending offers can be deleted", func(t *testing.T) {
		assert.ErrorIs(t, f.offers.DeletePending(ctx, keep.ID), ErrConcurrentUpdate)
		require.NoError(t, f.offers.DeletePending(ctx, unrelated.ID))
		_, err := f.offers.Get(ctx, unrelated.ID)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}
