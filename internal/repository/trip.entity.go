package repository

import (
	"time"

	"github.com/nimasrn/laser/internal/model"
)

type TripEntity struct {
	ID             int64           `db:"id"              gorm:"primaryKey;autoIncrement;column:id"`
	TripIdentifier string          `db:"trip_identifier" gorm:"column:trip_identifier;not null;index"`
	TravelerID     int64           `db:"traveler_id"     gorm:"column:traveler_id;not null;index"`
	FromID         int64           `db:"from_id"         gorm:"column:from_id;not null;index"`
	ToID           int64           `db:"to_id"           gorm:"column:to_id;not null;index"`
	FlyTime        time.Time       `db:"fly_time"        gorm:"column:fly_time;not null"`
	ArriveTime     time.Time       `db:"arrive_time"     gorm:"column:arrive_time;not null"`
	TripType       string          `db:"trip_type"       gorm:"column:trip_type"`
	Transit        bool            `db:"transit"         gorm:"column:transit;not null"`
	Details        string          `db:"details"         gorm:"column:details"`
	TicketImage    string          `db:"ticket_image"    gorm:"column:ticket_image"`
	CreatedAt      time.Time       `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
	From           *LocationEntity `gorm:"foreignKey:FromID"`
	To             *LocationEntity `gorm:"foreignKey:ToID"`
}

func (TripEntity) TableName() string {
	return "trip"
}

func toTripEntity(m *model.Trip) *TripEntity {
	if m == nil {
		return nil
	}
	return &TripEntity{
		ID:             m.ID,
		TripIdentifier: m.TripIdentifier,
		TravelerID:     m.TravelerID,
		FromID:         m.FromID,
		ToID:           m.ToID,
		FlyTime:        m.FlyTime.UTC(),
		ArriveTime:     m.ArriveTime.UTC(),
		TripType:       m.TripType,
		Transit:        m.Transit,
		Details:        m.Details,
		TicketImage:    m.TicketImage,
		CreatedAt:      m.CreatedAt,
	}
}

func toTripModel(e *TripEntity) *model.Trip {
	if e == nil {
		return nil
	}
	return &model.Trip{
		ID:             e.ID,
		TripIdentifier: e.TripIdentifier,
		TravelerID:     e.TravelerID,
		FromID:         e.FromID,
		ToID:           e.ToID,
		From:           toLocationModel(e.From),
		To:             toLocationModel(e.To),
		FlyTime:        e.FlyTime.UTC(),
		ArriveTime:     e.ArriveTime.UTC(),
		TripType:       e.TripType,
		Transit:        e.Transit,
		Details:        e.Details,
		TicketImage:    e.TicketImage,
		CreatedAt:      e.CreatedAt,
	}
}

func toTripModels(entities []*TripEntity) []*model.Trip {
	models := make([]*model.Trip, len(entities))
	for i, e := range entities {
		models[i] = toTripModel(e)
	}
	return models
}
