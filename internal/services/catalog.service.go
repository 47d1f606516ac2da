package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/internal/repository"
	"github.com/nimasrn/laser/pkg/logger"
)

const locationSearchLimit = 50

type LocationRepository interface {
	Create(ctx context.Context, loc *model.Location) (*model.Location, error)
	Get(ctx context.Context, id int64) (*model.Location, error)
	ByCity(ctx context.Context, city string) (*model.Location, error)
	ByAirport(ctx context.Context, code string) (*model.Location, error)
	Search(ctx context.Context, needle string, limit int) ([]*model.Location, error)
}

type TripRepository interface {
	Create(ctx context.Context, trip *model.Trip) (*model.Trip, error)
	FindSame(ctx context.Context, t *model.Trip) (*model.Trip, error)
	ByIdentifier(ctx context.Context, identifier string) ([]*model.Trip, error)
	List(ctx context.Context, q model.TripQuery, since time.Time) ([]*model.Trip, int64, error)
}

type ShipmentRepository interface {
	CreateBatch(ctx context.Context, shipments []*model.Shipment) ([]*model.Shipment, error)
	Get(ctx context.Context, id int64) (*model.Shipment, error)
	Update(ctx context.Context, s *model.Shipment) error
	ListByDeal(ctx context.Context, dealID int64) ([]*model.Shipment, error)
}

type ShipmentTypeRepository interface {
	Create(ctx context.Context, t *model.ShipmentType) (*model.ShipmentType, error)
	Get(ctx context.Context, id int64) (*model.ShipmentType, error)
	List(ctx context.Context) ([]*model.ShipmentType, error)
}

type OfferCounter interface {
	CountByDeal(ctx context.Context, dealID int64) (int64, error)
}

// CatalogService registers the things deals are made of: locations, trips and shipments.
type CatalogService struct {
	locations LocationRepository
	trips     TripRepository
	shipments ShipmentRepository
	types     ShipmentTypeRepository
	deals     DealRepository
	offers    OfferCounter
	statuses  *StatusService
	now       func() time.Time
}

func NewCatalogService(
	locations LocationRepository,
	trips TripRepository,
	shipments ShipmentRepository,
	types ShipmentTypeRepository,
	deals DealRepository,
	offers OfferCounter,
	statuses *StatusService,
) *CatalogService {
	return &CatalogService{
		locations: locations,
		trips:     trips,
		shipments: shipments,
		types:     types,
		deals:     deals,
		offers:    offers,
		statuses:  statuses,
		now:       time.Now,
	}
}

func (s *CatalogService) CreateLocation(ctx context.Context, req model.LocationCreateRequest) (*model.Location, error) {
	if err := model.Validate(req); err != nil {
		return nil, err
	}
	return s.locations.Create(ctx, &model.Location{
		Country: strings.TrimSpace(req.Country),
		City:    strings.TrimSpace(req.City),
		Airport: strings.ToUpper(strings.TrimSpace(req.Airport)),
		Details: req.Details,
	})
}

// SearchLocations matches needle against country, city and airport code.
func (s *CatalogService) SearchLocations(ctx context.Context, needle string) ([]*model.Location, error) {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return nil, model.InvalidArgument("search text is required")
	}
	return s.locations.Search(ctx, needle, locationSearchLimit)
}

func (s *CatalogService) LocationByCity(ctx context.Context, city string) (*model.Location, error) {
	return s.locations.ByCity(ctx, strings.TrimSpace(city))
}

func (s *CatalogService) LocationByAirport(ctx context.Context, code string) (*model.Location, error) {
	return s.locations.ByAirport(ctx, strings.TrimSpace(code))
}

// CreateTrip registers a trip and opens a trip-side deal for its capacity.
// A trip already known by identifier, schedule and route is reused.
func (s *CatalogService) CreateTrip(ctx context.Context, req model.TripCreateRequest) (*model.Deal, error) {
	if err := model.Validate(req); err != nil {
		return nil, err
	}
	if err := s.checkLocations(ctx, req.FromID, req.ToID); err != nil {
		return nil, err
	}

	waiting, err := s.statuses.BySequence(ctx, model.SequenceWaiting)
	if err != nil {
		return nil, err
	}

	candidate := &model.Trip{
		TripIdentifier: strings.ToUpper(strings.TrimSpace(req.TripIdentifier)),
		TravelerID:     req.TravelerID,
		FromID:         req.FromID,
		ToID:           req.ToID,
		FlyTime:        req.FlyTime.UTC().Truncate(time.Microsecond),
		ArriveTime:     req.ArriveTime.UTC().Truncate(time.Microsecond),
		TripType:       req.TripType,
		Transit:        req.Transit,
		Details:        req.Details,
		TicketImage:    req.TicketImage,
	}

	var deal *model.Deal
	err = s.deals.WithinTransaction(ctx, func(ctx context.Context) error {
		trip, err := s.trips.FindSame(ctx, candidate)
		switch {
		case errors.Is(err, model.ErrNotFound):
			if trip, err = s.trips.Create(ctx, candidate); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			logger.Debug("reusing registered trip", "trip_id", trip.ID, "identifier", trip.TripIdentifier)
		}

		arrival := trip.ArriveTime
		deliver := req.TravelerID
		deal, err = s.deals.Create(ctx, &model.Deal{
			DeliverID:       &deliver,
			TripID:          &trip.ID,
			StatusID:        waiting.ID,
			MatchState:      model.MatchTripMatched,
			FullWeight:      req.Capacity,
			AvailableWeight: req.Capacity,
			ArrivalDate:     &arrival,
			Details:         req.Details,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("trip deal opened", "deal_id", deal.ID, "capacity", req.Capacity)
	return deal, nil
}

// CreateShipments registers a batch of shipments under one new shipment-side deal.
func (s *CatalogService) CreateShipments(ctx context.Context, req model.ShipmentBatchRequest) (*model.Deal, error) {
	if err := model.Validate(req); err != nil {
		return nil, err
	}
	for _, in := range req.Shipments {
		if err := s.checkLocations(ctx, in.FromID, in.ToID); err != nil {
			return nil, err
		}
		if in.TypeID != nil {
			if _, err := s.types.Get(ctx, *in.TypeID); err != nil {
				return nil, err
			}
		}
	}

	waiting, err := s.statuses.BySequence(ctx, model.SequenceWaiting)
	if err != nil {
		return nil, err
	}

	var dealID int64
	err = s.deals.WithinTransaction(ctx, func(ctx context.Context) error {
		total := 0.0
		for _, in := range req.Shipments {
			total += in.Weight
		}
		owner := req.OwnerID
		expected := req.ExpectedDate.UTC()
		deal, err := s.deals.Create(ctx, &model.Deal{
			OwnerID:         &owner,
			StatusID:        waiting.ID,
			MatchState:      model.MatchShipmentMatched,
			FullWeight:      total,
			AvailableWeight: total,
			ExpectedDate:    &expected,
		})
		if err != nil {
			return err
		}

		batch := make([]*model.Shipment, len(req.Shipments))
		for i, in := range req.Shipments {
			batch[i] = shipmentFromInput(in)
			batch[i].DealID = &deal.ID
		}
		if _, err := s.shipments.CreateBatch(ctx, batch); err != nil {
			return err
		}
		dealID = deal.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("shipment deal opened", "deal_id", dealID, "shipments", len(req.Shipments))
	return s.deals.Get(ctx, dealID)
}

// UpdateShipment edits a shipment whose deal has no offers yet and
// recomputes the deal's weights.
func (s *CatalogService) UpdateShipment(ctx context.Context, id int64, in model.ShipmentInput) (*model.Shipment, error) {
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	if err := s.checkLocations(ctx, in.FromID, in.ToID); err != nil {
		return nil, err
	}
	if in.TypeID != nil {
		if _, err := s.types.Get(ctx, *in.TypeID); err != nil {
			return nil, err
		}
	}

	err := s.deals.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.shipments.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.DealID != nil {
			n, err := s.offers.CountByDeal(ctx, *current.DealID)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%w: shipment %d, deal %d has %d offers", model.ErrShipmentInOffer, id, *current.DealID, n)
			}
		}

		updated := shipmentFromInput(in)
		updated.ID = id
		updated.DealID = current.DealID
		if err := s.shipments.Update(ctx, updated); err != nil {
			return err
		}
		if current.DealID == nil {
			return nil
		}
		return s.reweigh(ctx, *current.DealID)
	})
	if err != nil {
		return nil, err
	}
	return s.shipments.Get(ctx, id)
}

func (s *CatalogService) reweigh(ctx context.Context, dealID int64) error {
	deal, err := s.deals.Get(ctx, dealID)
	if err != nil {
		return err
	}
	shipments, err := s.shipments.ListByDeal(ctx, dealID)
	if err != nil {
		return err
	}
	total := 0.0
	for _, sh := range shipments {
		total += sh.Weight
	}
	err = s.deals.UpdateWeights(ctx, deal.ID, deal.Version, total, total)
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		return fmt.Errorf("%w: deal %d changed concurrently", model.ErrConflict, dealID)
	}
	return err
}

func (s *CatalogService) TripsByIdentifier(ctx context.Context, identifier string) ([]*model.Trip, error) {
	identifier = strings.ToUpper(strings.TrimSpace(identifier))
	if identifier == "" {
		return nil, model.InvalidArgument("trip identifier is required")
	}
	return s.trips.ByIdentifier(ctx, identifier)
}

// ListTrips pages upcoming trips between locations matching the query.
func (s *CatalogService) ListTrips(ctx context.Context, q model.TripQuery) (model.Page[*model.Trip], error) {
	q.From = strings.TrimSpace(q.From)
	q.To = strings.TrimSpace(q.To)
	q.Page = q.Page.Normalize()
	trips, total, err := s.trips.List(ctx, q, s.now())
	if err != nil {
		return model.Page[*model.Trip]{}, err
	}
	return model.NewPage(trips, q.Page, total), nil
}

func (s *CatalogService) CreateShipmentType(ctx context.Context, t model.ShipmentType) (*model.ShipmentType, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return nil, model.InvalidArgument("shipment type name is required")
	}
	if t.Factor < 0 {
		return nil, model.InvalidArgument("shipment type factor must not be negative")
	}
	return s.types.Create(ctx, &t)
}

func (s *CatalogService) ShipmentTypes(ctx context.Context) ([]*model.ShipmentType, error) {
	return s.types.List(ctx)
}

func (s *CatalogService) checkLocations(ctx context.Context, ids ...int64) error {
	for _, id := range ids {
		if _, err := s.locations.Get(ctx, id); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.InvalidArgument("unknown location %d", id)
			}
			return err
		}
	}
	return nil
}

func shipmentFromInput(in model.ShipmentInput) *model.Shipment {
	return &model.Shipment{
		TypeID:      in.TypeID,
		FromID:      in.FromID,
		ToID:        in.ToID,
		Weight:      in.Weight,
		Description: in.Description,
		URL:         in.URL,
		ImgURL:      in.ImgURL,
		Cost:        in.Cost,
		Price:       in.Price,
		Details:     in.Details,
	}
}
