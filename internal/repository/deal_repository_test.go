package repository

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/laser/internal/matching"
	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/pkg/pg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixtures struct {
	db        *pg.DB
	locations *LocationRepository
	trips     *TripRepository
	shipments *ShipmentRepository
	deals     *DealRepository
	offers    *OfferRepository
}

func newFixtures(t *testing.T) *fixtures {
	db := NewTestDB(t)
	return &fixtures{
		db:        db,
		locations: NewLocationRepository(db),
		trips:     NewTripRepository(db),
		shipments: NewShipmentRepository(db),
		deals:     NewDealRepository(db),
		offers:    NewOfferRepository(db),
	}
}

func (f *fixtures) location(t *testing.T, country, city, airport string) *model.Location {
	loc, err := f.locations.Create(context.Background(), &model.Location{Country: country, City: city, Airport: airport})
	require.NoError(t, err)
	return loc
}

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func (f *fixtures) tripDeal(t *testing.T, from, to *model.Location, weight float64, arrival time.Time) *model.Deal {
	ctx := context.Background()
	trip, err := f.trips.Create(ctx, &model.Trip{
		TripIdentifier: "AF276",
		TravelerID:     7,
		FromID:         from.ID,
		ToID:           to.ID,
		FlyTime:        arrival.Add(-12 * time.Hour),
		ArriveTime:     arrival,
	})
	require.NoError(t, err)

	traveler := int64(7)
	deal, err := f.deals.Create(ctx, &model.Deal{
		DeliverID:       &traveler,
		TripID:          &trip.ID,
		StatusID:        1,
		MatchState:      model.MatchTripMatched,
		FullWeight:      weight,
		AvailableWeight: weight,
		ArrivalDate:     &arrival,
	})
	require.NoError(t, err)
	return deal
}

func (f *fixtures) shipmentDeal(t *testing.T, from, to *model.Location, weight float64, expected time.Time) *model.Deal {
	ctx := context.Background()
	owner := int64(9)
	deal, err := f.deals.Create(ctx, &model.Deal{
		OwnerID:         &owner,
		StatusID:        1,
		MatchState:      model.MatchShipmentMatched,
		FullWeight:      weight,
		AvailableWeight: weight,
		ExpectedDate:    &expected,
	})
	require.NoError(t, err)

	_, err = f.shipments.CreateBatch(ctx, []*model.Shipment{{DealID: &deal.ID, FromID: from.ID, ToID: to.ID, Weight: weight}})
	require.NoError(t, err)

	deal, err = f.deals.Get(ctx, deal.ID)
	require.NoError(t, err)
	return deal
}

func TestDealRepository_CreateAndGet(t *testing.T) {
	f := newFixtures(t)
	paris := f.location(t, "France", "Paris", "CDG")
	tokyo := f.location(t, "Japan", "Tokyo", "HND")

	deal := f.tripDeal(t, paris, tokyo, 50, day("2024-06-01"))

	got, err := f.deals.Get(context.Background(), deal.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Status)
	assert.Equal(t, 1, got.Status.Sequence)
	assert.Equal(t, "Waiting", got.Status.Name)
	assert.Equal(t, model.MatchTripMatched, got.MatchState)
	assert.Equal(t, int64(1), got.Version)
	require.NotNil(t, got.Trip)
	assert.Equal(t, "Paris", got.Trip.From.City)
	assert.Equal(t, "Tokyo", got.Trip.To.City)
	assert.True(t, got.ArrivalDate.Equal(day("2024-06-01")))

	_, err = f.deals.Get(context.Background(), 9999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDealRepository_Search(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	paris := f.location(t, "France", "Paris", "CDG")
	tokyo := f.location(t, "Japan", "Tokyo", "HND")
	berlin := f.location(t, "Germany", "Berlin", "BER")

	match := f.tripDeal(t, paris, tokyo, 50, day("2024-06-01"))
	f.tripDeal(t, paris, tokyo, 10, day("2024-06-01"))  // too light
	f.tripDeal(t, paris, tokyo, 50, day("2024-06-02"))  // too late
	f.tripDeal(t, berlin, tokyo, 50, day("2024-05-01")) // wrong origin
	f.shipmentDeal(t, paris, tokyo, 20, day("2024-06-01"))

	q, err := matching.ParseQuery(model.SearchRequest{From: "paris", To: "tok", Weight: "20", Date: "2024-06-01"})
	require.NoError(t, err)

	deals, total, err := f.deals.Search(ctx, model.SideTrip, matching.TripFilter(q), q.Page)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, deals, 1)
	assert.Equal(t, match.ID, deals[0].ID)

	t.Run("sql and memory agree", func(t *testing.T) {
		all, _, err := f.deals.List(ctx, model.DealFilter{Page: model.PageRequest{Size: 100}})
		require.NoError(t, err)
		var inMemory []int64
		for _, d := range all {
			if matching.TripFilter(q).Match(matching.CandidateOf(d)) {
				inMemory = append(inMemory, d.ID)
			}
		}
		assert.Equal(t, []int64{match.ID}, inMemory)
	})

	t.Run("shipments by route", func(t *testing.T) {
		deals, total, err := f.deals.Search(ctx, model.SideShipment, matching.ShipmentFilter(q), q.Page)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, deals, 1)
		require.Len(t, deals[0].Shipments, 1)
		assert.Equal(t, "Paris", deals[0].Shipments[0].From.City)
	})

	t.Run("like wildcards are literal", func(t *testing.T) {
		q.From = "%"
		deals, _, err := f.deals.Search(ctx, model.SideTrip, matching.TripFilter(q), q.Page)
		require.NoError(t, err)
		assert.Empty(t, deals)
	})
}

func TestDealRepository_UpdateStatus_CompareAndSwap(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	paris := f.location(t, "France", "Paris", "")
	tokyo := f.location(t, "Japan", "Tokyo", "")
	deal := f.tripDeal(t, paris, tokyo, 50, day("2024-06-01"))

	require.NoError(t, f.deals.UpdateStatus(ctx, deal.ID, 1, deal.Version, 2))
	err := f.deals.UpdateStatus(ctx, deal.ID, 1, deal.Version, 2)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)

	got, err := f.deals.Get(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.StatusID)
	assert.Equal(t, deal.Version+1, got.Version)
}

func TestDealRepository_BindTrip_RequiresRoom(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	paris := f.location(t, "France", "Paris", "")
	tokyo := f.location(t, "Japan", "Tokyo", "")
	deal := f.tripDeal(t, paris, tokyo, 50, day("2024-06-01"))
	owner := int64(9)

	bind := BindTrip{DealID: deal.ID, Version: deal.Version, FromStatusID: 1, ToStatusID: 2, Weight: 60, OwnerID: &owner, CounterpartID: 3}
	assert.ErrorIs(t, f.deals.BindTrip(ctx, bind), ErrConcurrentUpdate)

	bind.Weight = 20
	require.NoError(t, f.deals.BindTrip(ctx, bind))

	got, err := f.deals.Get(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, got.AvailableWeight)
	assert.Equal(t, model.MatchFullyMatched, got.MatchState)
	assert.Equal(t, owner, *got.OwnerID)
	assert.Equal(t, int64(3), *got.CounterpartID)
}

func TestDealRepository_List(t *testing.T) {
	f := newFixtures(t)
	ctx := context.Background()
	paris := f.location(t, "France", "Paris", "")
	tokyo := f.location(t, "Japan", "Tokyo", "")
	for i := 0; i < 3; i++ {
		f.tripDeal(t, paris, tokyo, 50, day("2024-06-01"))
	}
	f.shipmentDeal(t, paris, tokyo, 5, day("2024-06-01"))

	state := model.MatchTripMatched
	deals, total, err := f.deals.List(ctx, model.DealFilter{
		MatchState: &state,
		Page:       model.PageRequest{Page: 1, Size: 2, Sort: "id,asc"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, deals, 1)

	pending := int64(2)
	deals, total, err = f.deals.List(ctx, model.DealFilter{StatusID: &pending})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, deals)
}
