package matching

import (
	"strconv"
	"strings"
	"time"

	"github.com/nimasrn/laser/internal/model"
)

const dateLayout = "2006-01-02"

// ParseQuery validates raw search input. A date without a time of day is
// widened to the last instant of that day so the cutoff is inclusive.
func ParseQuery(req model.SearchRequest) (model.SearchQuery, error) {
	q := model.SearchQuery{
		From: strings.TrimSpace(req.From),
		To:   strings.TrimSpace(req.To),
		Page: req.Page.Normalize(),
	}

	if w := strings.TrimSpace(req.Weight); w != "" {
		weight, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return q, model.InvalidArgument("weight %q is not a number", req.Weight)
		}
		q.Weight = weight
	}

	cutoff, err := ParseCutoff(req.Date)
	if err != nil {
		return q, err
	}
	q.Cutoff = cutoff

	if err := model.Validate(q); err != nil {
		return q, err
	}
	return q, nil
}

// ParseCutoff accepts a calendar date or an RFC 3339 timestamp and returns it in UTC.
func ParseCutoff(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, model.InvalidArgument("date is required")
	}
	if d, err := time.Parse(dateLayout, raw); err == nil {
		return EndOfDay(d), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, model.InvalidArgument("date %q is neither YYYY-MM-DD nor RFC 3339", raw)
	}
	return t.UTC(), nil
}

func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}

// TripFilter selects trip-side deals that can carry the query's weight on the
// query's route, arriving no later than the cutoff.
func TripFilter(q model.SearchQuery) Filter {
	f := Filter{
		{Field: FieldMatchState, Op: OpEq, Value: model.MatchTripMatched},
		{Field: FieldAvailableWeight, Op: OpGte, Value: q.Weight},
		{Field: FieldArrivalDate, Op: OpLte, Value: q.Cutoff},
	}
	return withRoute(f, q)
}

// ShipmentFilter selects shipment-side deals expected no later than the cutoff
// with at least one shipment on the query's route.
func ShipmentFilter(q model.SearchQuery) Filter {
	f := Filter{
		{Field: FieldMatchState, Op: OpEq, Value: model.MatchShipmentMatched},
		{Field: FieldAvailableWeight, Op: OpGte, Value: q.Weight},
		{Field: FieldExpectedDate, Op: OpLte, Value: q.Cutoff},
	}
	return withRoute(f, q)
}

func withRoute(f Filter, q model.SearchQuery) Filter {
	if q.From != "" {
		f = append(f, Predicate{Field: FieldOrigin, Op: OpContains, Value: q.From})
	}
	if q.To != "" {
		f = append(f, Predicate{Field: FieldDestination, Op: OpContains, Value: q.To})
	}
	return f
}

// CanCarry applies the trip search policy to a concrete shipment-side deal:
// the trip must have room for its full weight and arrive by its expected date.
// A shipment deal without an expected date only constrains weight.
func CanCarry(trip, shipment *model.Deal) bool {
	f := Filter{{Field: FieldAvailableWeight, Op: OpGte, Value: shipment.FullWeight}}
	if shipment.ExpectedDate != nil {
		f = append(f, Predicate{Field: FieldArrivalDate, Op: OpLte, Value: *shipment.ExpectedDate})
	}
	return f.Match(CandidateOf(trip))
}
