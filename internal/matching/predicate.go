// Package matching holds the rules that decide whether a deal is a compatible
// counterpart for a search or an offer. Rules are plain values: the same Filter
// is evaluated in memory by Match and translated to SQL by the repository.
package matching

import (
	"fmt"
	"strings"
	"time"

	"github.com/nimasrn/laser/internal/model"
)

type Field string

const (
	FieldMatchState      Field = "match_state"
	FieldAvailableWeight Field = "available_weight"
	FieldArrivalDate     Field = "arrival_date"
	FieldExpectedDate    Field = "expected_date"
	// FieldOrigin and FieldDestination apply to a route. A deal with several
	// routes matches when one route satisfies every route predicate.
	FieldOrigin      Field = "origin"
	FieldDestination Field = "destination"
)

type Op string

const (
	OpEq       Op = "eq"
	OpGte      Op = "gte"
	OpLte      Op = "lte"
	OpContains Op = "contains"
)

type Predicate struct {
	Field Field
	Op    Op
	Value any
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %v", p.Field, p.Op, p.Value)
}

// IsRoute reports whether the predicate constrains a location.
func (p Predicate) IsRoute() bool {
	return p.Field == FieldOrigin || p.Field == FieldDestination
}

// Filter is a conjunction of predicates.
type Filter []Predicate

// Route is one origin/destination pair of a candidate.
type Route struct {
	From *model.Location
	To   *model.Location
}

// Candidate is the projection of a deal that predicates are evaluated against.
type Candidate struct {
	MatchState      model.MatchState
	AvailableWeight float64
	ArrivalDate     *time.Time
	ExpectedDate    *time.Time
	Routes          []Route
}

// CandidateOf projects a deal. Trip-side deals contribute their trip route,
// shipment-side deals one route per shipment.
func CandidateOf(d *model.Deal) Candidate {
	c := Candidate{
		MatchState:      d.MatchState,
		AvailableWeight: d.AvailableWeight,
		ArrivalDate:     d.ArrivalDate,
		ExpectedDate:    d.ExpectedDate,
	}
	if d.Trip != nil {
		c.Routes = append(c.Routes, Route{From: d.Trip.From, To: d.Trip.To})
	}
	for _, s := range d.Shipments {
		c.Routes = append(c.Routes, Route{From: s.From, To: s.To})
	}
	return c
}

// Match reports whether c satisfies every predicate of f.
func (f Filter) Match(c Candidate) bool {
	var route Filter
	for _, p := range f {
		if p.IsRoute() {
			route = append(route, p)
			continue
		}
		if !p.matchScalar(c) {
			return false
		}
	}
	if len(route) == 0 {
		return true
	}
	for _, r := range c.Routes {
		if route.matchRoute(r) {
			return true
		}
	}
	return false
}

func (f Filter) matchRoute(r Route) bool {
	for _, p := range f {
		loc := r.From
		if p.Field == FieldDestination {
			loc = r.To
		}
		needle, _ := p.Value.(string)
		if p.Op != OpContains || !LocationContains(loc, needle) {
			return false
		}
	}
	return true
}

func (p Predicate) matchScalar(c Candidate) bool {
	switch p.Field {
	case FieldMatchState:
		want, ok := p.Value.(model.MatchState)
		return ok && p.Op == OpEq && c.MatchState == want
	case FieldAvailableWeight:
		want, ok := p.Value.(float64)
		return ok && compareFloat(p.Op, c.AvailableWeight, want)
	case FieldArrivalDate:
		return compareTime(p.Op, c.ArrivalDate, p.Value)
	case FieldExpectedDate:
		return compareTime(p.Op, c.ExpectedDate, p.Value)
	}
	return false
}

func compareFloat(op Op, got, want float64) bool {
	switch op {
	case OpEq:
		return got == want
	case OpGte:
		return got >= want
	case OpLte:
		return got <= want
	}
	return false
}

// compareTime treats a missing date as failing, like NULL in SQL.
func compareTime(op Op, got *time.Time, value any) bool {
	want, ok := value.(time.Time)
	if !ok || got == nil {
		return false
	}
	switch op {
	case OpEq:
		return got.Equal(want)
	case OpGte:
		return !got.Before(want)
	case OpLte:
		return !got.After(want)
	}
	return false
}

// LocationContains is the case-insensitive substring test against country,
// city or airport.
func LocationContains(loc *model.Location, needle string) bool {
	if loc == nil {
		return false
	}
	needle = strings.ToLower(needle)
	for _, v := range []string{loc.Country, loc.City, loc.Airport} {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}
