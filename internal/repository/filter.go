package repository

import (
	"fmt"
	"time"

	"github.com/nimasrn/laser/internal/matching"
	"github.com/nimasrn/laser/internal/model"
	"gorm.io/gorm"
)

var dealColumns = map[matching.Field]string{
	matching.FieldMatchState:      "deal.match_state",
	matching.FieldAvailableWeight: "deal.available_weight",
	matching.FieldArrivalDate:     "deal.arrival_date",
	matching.FieldExpectedDate:    "deal.expected_date",
}

var sqlOps = map[matching.Op]string{
	matching.OpEq:  "=",
	matching.OpGte: ">=",
	matching.OpLte: "<=",
}

// applyFilter adds f to a deal query. Route predicates become subqueries on
// the trip of a trip-side deal, or on the shipments of a shipment-side deal.
// sub must be a fresh handle used only to build those subqueries.
func applyFilter(q, sub *gorm.DB, side model.Side, f matching.Filter) (*gorm.DB, error) {
	var route matching.Filter
	for _, p := range f {
		if p.IsRoute() {
			route = append(route, p)
			continue
		}
		col, ok := dealColumns[p.Field]
		if !ok {
			return nil, fmt.Errorf("unsupported field %q", p.Field)
		}
		op, ok := sqlOps[p.Op]
		if !ok {
			return nil, fmt.Errorf("unsupported operator %q on %s", p.Op, p.Field)
		}
		q = q.Where(fmt.Sprintf("%s %s ?", col, op), sqlValue(p.Value))
	}
	if len(route) == 0 {
		return q, nil
	}

	var routes *gorm.DB
	switch side {
	case model.SideTrip:
		routes = sub.Model(&TripEntity{}).Select("id")
	case model.SideShipment:
		routes = sub.Model(&ShipmentEntity{}).Select("deal_id")
	default:
		return nil, fmt.Errorf("route filter needs a side, got %q", side)
	}
	for _, p := range route {
		if p.Op != matching.OpContains {
			return nil, fmt.Errorf("unsupported operator %q on %s", p.Op, p.Field)
		}
		needle, _ := p.Value.(string)
		col := "from_id"
		if p.Field == matching.FieldDestination {
			col = "to_id"
		}
		routes = routes.Where(col+" IN (?)", locationIDs(sub, needle))
	}

	if side == model.SideTrip {
		return q.Where("deal.trip_id IN (?)", routes), nil
	}
	return q.Where("deal.id IN (?)", routes), nil
}

func sqlValue(v any) any {
	switch v := v.(type) {
	case model.MatchState:
		return string(v)
	case time.Time:
		return v.UTC()
	}
	return v
}
