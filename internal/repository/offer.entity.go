package repository

import (
	"time"

	"github.com/nimasrn/laser/internal/model"
)

// OfferEntity rows are stored in canonical order: shipment side first. The
// unique pair index therefore covers both orderings.
type OfferEntity struct {
	ID             int64     `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	ShipmentDealID int64     `db:"shipment_deal_id" gorm:"column:shipment_deal_id;not null;uniqueIndex:uq_offers_pair,priority:1"`
	TripDealID     int64     `db:"trip_deal_id"     gorm:"column:trip_deal_id;not null;uniqueIndex:uq_offers_pair,priority:2;index"`
	Status         string    `db:"status"           gorm:"column:status;not null;index"`
	SenderID       int64     `db:"sender_id"        gorm:"column:sender_id;not null"`
	CreatedAt      time.Time `db:"created_at"       gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `db:"updated_at"       gorm:"column:updated_at;autoUpdateTime"`
}

func (OfferEntity) TableName() string {
	return "offers"
}

func toOfferEntity(m *model.Offer) *OfferEntity {
	if m == nil {
		return nil
	}
	return &OfferEntity{
		ID:             m.ID,
		ShipmentDealID: m.ShipmentDealID,
		TripDealID:     m.TripDealID,
		Status:         string(m.Status),
		SenderID:       m.SenderID,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toOfferModel(e *OfferEntity) *model.Offer {
	if e == nil {
		return nil
	}
	return &model.Offer{
		ID:             e.ID,
		ShipmentDealID: e.ShipmentDealID,
		TripDealID:     e.TripDealID,
		Status:         model.OfferStatus(e.Status),
		SenderID:       e.SenderID,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func toOfferModels(entities []*OfferEntity) []*model.Offer {
	models := make([]*model.Offer, len(entities))
	for i, e := range entities {
		models[i] = toOfferModel(e)
	}
	return models
}
