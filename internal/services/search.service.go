package services

import (
	"context"
	"time"

	"github.com/nimasrn/laser/internal/matching"
	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/pkg/prom"
)

type DealSearcher interface {
	Search(ctx context.Context, side model.Side, f matching.Filter, page model.PageRequest) ([]*model.Deal, int64, error)
}

// SearchService finds counterpart deals. Input is validated before any query runs.
type SearchService struct {
	deals DealSearcher
}

func NewSearchService(deals DealSearcher) *SearchService {
	return &SearchService{deals: deals}
}

// SearchTrips finds trip-side deals a shipment could travel with.
func (s *SearchService) SearchTrips(ctx context.Context, req model.SearchRequest) (model.Page[*model.Deal], error) {
	q, err := matching.ParseQuery(req)
	if err != nil {
		return model.Page[*model.Deal]{}, err
	}
	return s.search(ctx, model.SideTrip, matching.TripFilter(q), q.Page)
}

// SearchShipments finds shipment-side deals a trip could carry.
func (s *SearchService) SearchShipments(ctx context.Context, req model.SearchRequest) (model.Page[*model.Deal], error) {
	q, err := matching.ParseQuery(req)
	if err != nil {
		return model.Page[*model.Deal]{}, err
	}
	return s.search(ctx, model.SideShipment, matching.ShipmentFilter(q), q.Page)
}

func (s *SearchService) search(ctx context.Context, side model.Side, f matching.Filter, page model.PageRequest) (model.Page[*model.Deal], error) {
	start := time.Now()
	defer func() {
		prom.ObserveSearch(string(side), time.Since(start).Seconds())
	}()

	page = page.Normalize()
	deals, total, err := s.deals.Search(ctx, side, f, page)
	if err != nil {
		return model.Page[*model.Deal]{}, err
	}
	return model.NewPage(deals, page, total), nil
}
