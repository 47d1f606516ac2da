package repository

import (
	"time"

	"github.com/nimasrn/laser/internal/model"
)

type UserEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Name      string    `db:"name"       gorm:"column:name;not null"`
	Phone     string    `db:"phone"      gorm:"column:phone;not null;uniqueIndex"`
	PushToken string    `db:"push_token" gorm:"column:push_token"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (UserEntity) TableName() string {
	return "user_application"
}

func toUserModel(e *UserEntity) *model.UserApplication {
	if e == nil {
		return nil
	}
	return &model.UserApplication{
		ID:        e.ID,
		Name:      e.Name,
		Phone:     e.Phone,
		PushToken: e.PushToken,
		CreatedAt: e.CreatedAt,
	}
}
