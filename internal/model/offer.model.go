package model

import "time"

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferClosed   OfferStatus = "closed"
)

type Offer struct {
	ID             int64       `json:"id"`
	ShipmentDealID int64       `json:"shipment_deal_id"`
	TripDealID     int64       `json:"trip_deal_id"`
	Status         OfferStatus `json:"status"`
	SenderID       int64       `json:"sender_id"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type ProposeRequest struct {
	ShipmentDealID int64 `json:"shipment_deal_id" validate:"required,gt=0"`
	TripDealID     int64 `json:"trip_deal_id" validate:"required,gt=0,nefield=ShipmentDealID"`
	SenderID       int64 `json:"sender_id" validate:"required,gt=0"`
}

// OfferEventType names what happened to an offer.
type OfferEventType string

const (
	OfferEventProposed OfferEventType = "offer.proposed"
	OfferEventAccepted OfferEventType = "offer.accepted"
)

// OfferEvent is published to the offer event stream after a commit.
type OfferEvent struct {
	ID             string         `json:"id"`
	Type           OfferEventType `json:"type"`
	OfferID        int64          `json:"offer_id"`
	ShipmentDealID int64          `json:"shipment_deal_id"`
	TripDealID     int64          `json:"trip_deal_id"`
	SenderID       int64          `json:"sender_id"`
	RecipientID    int64          `json:"recipient_id"`
	OccurredAt     time.Time      `json:"occurred_at"`
}
