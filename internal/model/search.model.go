package model

import "time"

// SearchRequest is the raw, unvalidated search input as received from a caller.
type SearchRequest struct {
	From   string
	To     string
	Weight string
	Date   string
	Page   PageRequest
}

// SearchQuery is a validated search: route filters, a minimum weight and an inclusive cutoff.
type SearchQuery struct {
	From   string    `validate:"max=128"`
	To     string    `validate:"max=128"`
	Weight float64   `validate:"gte=0"`
	Cutoff time.Time `validate:"required"`
	Page   PageRequest
}

// TripQuery lists trips by departure and arrival location substrings.
type TripQuery struct {
	From string
	To   string
	Page PageRequest
}
