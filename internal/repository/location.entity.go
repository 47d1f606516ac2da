package repository

import (
	"time"

	"github.com/nimasrn/laser/internal/model"
)

type LocationEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Country   string    `db:"country"    gorm:"column:country;not null"`
	City      string    `db:"city"       gorm:"column:city;not null;uniqueIndex"`
	Airport   *string   `db:"airport"    gorm:"column:airport;uniqueIndex"`
	Details   string    `db:"details"    gorm:"column:details"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (LocationEntity) TableName() string {
	return "location"
}

func toLocationEntity(m *model.Location) *LocationEntity {
	if m == nil {
		return nil
	}
	e := &LocationEntity{
		ID:        m.ID,
		Country:   m.Country,
		City:      m.City,
		Details:   m.Details,
		CreatedAt: m.CreatedAt,
	}
	if m.Airport != "" {
		airport := m.Airport
		e.Airport = &airport
	}
	return e
}

func toLocationModel(e *LocationEntity) *model.Location {
	if e == nil {
		return nil
	}
	m := &model.Location{
		ID:        e.ID,
		Country:   e.Country,
		City:      e.City,
		Details:   e.Details,
		CreatedAt: e.CreatedAt,
	}
	if e.Airport != nil {
		m.Airport = *e.Airport
	}
	return m
}

func toLocationModels(entities []*LocationEntity) []*model.Location {
	models := make([]*model.Location, len(entities))
	for i, e := range entities {
		models[i] = toLocationModel(e)
	}
	return models
}
