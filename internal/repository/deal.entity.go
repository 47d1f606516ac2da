package repository

import (
	"time"

	"github.com/nimasrn/laser/internal/model"
)

type DealStatusEntity struct {
	ID       int64  `db:"id"       gorm:"primaryKey;column:id"`
	Name     string `db:"name"     gorm:"column:name;not null;uniqueIndex"`
	Sequence int    `db:"sequence" gorm:"column:sequence;not null;uniqueIndex"`
}

func (DealStatusEntity) TableName() string {
	return "deal_status"
}

func toDealStatusModel(e *DealStatusEntity) *model.DealStatus {
	if e == nil {
		return nil
	}
	return &model.DealStatus{ID: e.ID, Name: e.Name, Sequence: e.Sequence}
}

type DealEntity struct {
	ID              int64             `db:"id"               gorm:"primaryKey;autoIncrement;column:id"`
	OwnerID         *int64            `db:"owner_id"         gorm:"column:owner_id;index"`
	DeliverID       *int64            `db:"deliver_id"       gorm:"column:deliver_id;index"`
	TripID          *int64            `db:"trip_id"          gorm:"column:trip_id;index"`
	TransactionID   *int64            `db:"transaction_id"   gorm:"column:transaction_id"`
	StatusID        int64             `db:"status_id"        gorm:"column:status_id;not null;index"`
	MatchState      string            `db:"match_state"      gorm:"column:match_state;not null;index"`
	CounterpartID   *int64            `db:"counterpart_id"   gorm:"column:counterpart_id"`
	TotalPrice      float64           `db:"total_price"      gorm:"column:total_price;not null;default:0"`
	IsCashed        bool              `db:"is_cashed"        gorm:"column:is_cashed;not null;default:false"`
	FromAccount     string            `db:"from_account"     gorm:"column:from_account"`
	ToAccount       string            `db:"to_account"       gorm:"column:to_account"`
	FullWeight      float64           `db:"full_weight"      gorm:"column:full_weight;not null;default:0"`
	AvailableWeight float64           `db:"available_weight" gorm:"column:available_weight;not null;default:0"`
	ArrivalDate     *time.Time        `db:"arrival_date"     gorm:"column:arrival_date;index"`
	ExpectedDate    *time.Time        `db:"expected_date"    gorm:"column:expected_date;index"`
	Details         string            `db:"details"          gorm:"column:details"`
	Version         int64             `db:"version"          gorm:"column:version;not null;default:1"`
	CreatedAt       time.Time         `db:"created_at"       gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt       time.Time         `db:"updated_at"       gorm:"column:updated_at;autoUpdateTime"`
	Status          *DealStatusEntity `gorm:"foreignKey:StatusID"`
	Trip            *TripEntity       `gorm:"foreignKey:TripID"`
	Shipments       []*ShipmentEntity `gorm:"foreignKey:DealID"`
}

func (DealEntity) TableName() string {
	return "deal"
}

func toDealEntity(m *model.Deal) *DealEntity {
	if m == nil {
		return nil
	}
	return &DealEntity{
		ID:              m.ID,
		OwnerID:         m.OwnerID,
		DeliverID:       m.DeliverID,
		TripID:          m.TripID,
		TransactionID:   m.TransactionID,
		StatusID:        m.StatusID,
		MatchState:      string(m.MatchState),
		CounterpartID:   m.CounterpartID,
		TotalPrice:      m.TotalPrice,
		IsCashed:        m.IsCashed,
		FromAccount:     m.FromAccount,
		ToAccount:       m.ToAccount,
		FullWeight:      m.FullWeight,
		AvailableWeight: m.AvailableWeight,
		ArrivalDate:     utcPtr(m.ArrivalDate),
		ExpectedDate:    utcPtr(m.ExpectedDate),
		Details:         m.Details,
		Version:         m.Version,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toDealModel(e *DealEntity) *model.Deal {
	if e == nil {
		return nil
	}
	return &model.Deal{
		ID:              e.ID,
		OwnerID:         e.OwnerID,
		DeliverID:       e.DeliverID,
		TripID:          e.TripID,
		TransactionID:   e.TransactionID,
		StatusID:        e.StatusID,
		Status:          toDealStatusModel(e.Status),
		MatchState:      model.MatchState(e.MatchState),
		CounterpartID:   e.CounterpartID,
		TotalPrice:      e.TotalPrice,
		IsCashed:        e.IsCashed,
		FromAccount:     e.FromAccount,
		ToAccount:       e.ToAccount,
		FullWeight:      e.FullWeight,
		AvailableWeight: e.AvailableWeight,
		ArrivalDate:     utcPtr(e.ArrivalDate),
		ExpectedDate:    utcPtr(e.ExpectedDate),
		Details:         e.Details,
		Trip:            toTripModel(e.Trip),
		Shipments:       toShipmentModels(e.Shipments),
		Version:         e.Version,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toDealModels(entities []*DealEntity) []*model.Deal {
	models := make([]*model.Deal, len(entities))
	for i, e := range entities {
		models[i] = toDealModel(e)
	}
	return models
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
