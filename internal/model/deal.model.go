package model

import "time"

// Seeded lifecycle stages, by sequence.
const (
	SequenceWaiting        = 1
	SequencePending        = 2
	SequenceAgreement      = 3
	SequenceReadyToReceive = 4
	SequenceDone           = 5
)

type DealStatus struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Sequence int    `json:"sequence"`
}

func (s *DealStatus) IsTerminal() bool {
	return s.Sequence == SequenceDone
}

// MatchState tells which side of a deal is bound.
type MatchState string

const (
	MatchOpen            MatchState = "open"
	MatchTripMatched     MatchState = "trip_matched"
	MatchShipmentMatched MatchState = "shipment_matched"
	MatchFullyMatched    MatchState = "fully_matched"
)

// Side is the role a deal plays in an offer.
type Side string

const (
	SideTrip     Side = "trip"
	SideShipment Side = "shipment"
)

func (m MatchState) Side() (Side, bool) {
	switch m {
	case MatchTripMatched:
		return SideTrip, true
	case MatchShipmentMatched:
		return SideShipment, true
	}
	return "", false
}

type Deal struct {
	ID              int64       `json:"id"`
	OwnerID         *int64      `json:"owner_id,omitempty"`
	DeliverID       *int64      `json:"deliver_id,omitempty"`
	TripID          *int64      `json:"trip_id,omitempty"`
	TransactionID   *int64      `json:"transaction_id,omitempty"`
	StatusID        int64       `json:"status_id"`
	Status          *DealStatus `json:"status,omitempty"`
	MatchState      MatchState  `json:"match_state"`
	CounterpartID   *int64      `json:"counterpart_id,omitempty"`
	TotalPrice      float64     `json:"total_price"`
	IsCashed        bool        `json:"is_cashed"`
	FromAccount     string      `json:"from_account,omitempty"`
	ToAccount       string      `json:"to_account,omitempty"`
	FullWeight      float64     `json:"full_weight"`
	AvailableWeight float64     `json:"available_weight"`
	ArrivalDate     *time.Time  `json:"arrival_date,omitempty"`
	ExpectedDate    *time.Time  `json:"expected_date,omitempty"`
	Details         string      `json:"details,omitempty"`
	Trip            *Trip       `json:"trip,omitempty"`
	Shipments       []*Shipment `json:"shipments,omitempty"`
	Version         int64       `json:"version"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (d *Deal) Side() (Side, bool) {
	return d.MatchState.Side()
}

func (d *Deal) IsWaiting() bool {
	return d.Status != nil && d.Status.Sequence == SequenceWaiting
}

// DealFilter controls paged deal listings.
type DealFilter struct {
	StatusID     *int64
	MatchState   *MatchState
	CreatedAfter *time.Time

	// Account matches deals whose paying account contains it.
	Account string
	Page    PageRequest
}
