package repository

import (
	"time"

	"github.com/nimasrn/laser/internal/model"
)

type ShipmentTypeEntity struct {
	ID     int64   `db:"id"     gorm:"primaryKey;autoIncrement;column:id"`
	Name   string  `db:"name"   gorm:"column:name;not null;uniqueIndex"`
	Factor float64 `db:"factor" gorm:"column:factor;not null;default:1"`
}

func (ShipmentTypeEntity) TableName() string {
	return "shipment_type"
}

type ShipmentEntity struct {
	ID          int64           `db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	DealID      *int64          `db:"deal_id"     gorm:"column:deal_id;index"`
	TypeID      *int64          `db:"type_id"     gorm:"column:type_id"`
	FromID      int64           `db:"from_id"     gorm:"column:from_id;not null;index"`
	ToID        int64           `db:"to_id"       gorm:"column:to_id;not null;index"`
	Weight      float64         `db:"weight"      gorm:"column:weight;not null"`
	Description string          `db:"description" gorm:"column:description"`
	URL         string          `db:"url"         gorm:"column:url"`
	ImgURL      string          `db:"img_url"     gorm:"column:img_url"`
	Cost        float64         `db:"cost"        gorm:"column:cost;not null;default:0"`
	Price       float64         `db:"price"       gorm:"column:price;not null;default:0"`
	Details     string          `db:"details"     gorm:"column:details"`
	CreatedAt   time.Time       `db:"created_at"  gorm:"column:created_at;autoCreateTime"`
	From        *LocationEntity `gorm:"foreignKey:FromID"`
	To          *LocationEntity `gorm:"foreignKey:ToID"`
}

func (ShipmentEntity) TableName() string {
	return "shipment"
}

func toShipmentTypeModel(e *ShipmentTypeEntity) *model.ShipmentType {
	if e == nil {
		return nil
	}
	return &model.ShipmentType{ID: e.ID, Name: e.Name, Factor: e.Factor}
}

func toShipmentEntity(m *model.Shipment) *ShipmentEntity {
	if m == nil {
		return nil
	}
	return &ShipmentEntity{
		ID:          m.ID,
		DealID:      m.DealID,
		TypeID:      m.TypeID,
		FromID:      m.FromID,
		ToID:        m.ToID,
		Weight:      m.Weight,
		Description: m.Description,
		URL:         m.URL,
		ImgURL:      m.ImgURL,
		Cost:        m.Cost,
		Price:       m.Price,
		Details:     m.Details,
		CreatedAt:   m.CreatedAt,
	}
}

func toShipmentModel(e *ShipmentEntity) *model.Shipment {
	if e == nil {
		return nil
	}
	return &model.Shipment{
		ID:          e.ID,
		DealID:      e.DealID,
		TypeID:      e.TypeID,
		FromID:      e.FromID,
		ToID:        e.ToID,
		From:        toLocationModel(e.From),
		To:          toLocationModel(e.To),
		Weight:      e.Weight,
		Description: e.Description,
		URL:         e.URL,
		ImgURL:      e.ImgURL,
		Cost:        e.Cost,
		Price:       e.Price,
		Details:     e.Details,
		CreatedAt:   e.CreatedAt,
	}
}

func toShipmentModels(entities []*ShipmentEntity) []*model.Shipment {
	if entities == nil {
		return nil
	}
	models := make([]*model.Shipment, len(entities))
	for i, e := range entities {
		models[i] = toShipmentModel(e)
	}
	return models
}
