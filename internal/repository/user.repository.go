package repository

import (
	"context"

	"github.com/nimasrn/laser/internal/model"
	"github.com/nimasrn/laser/pkg/pg"
)

type UserRepository struct {
	*pg.DB
}

func NewUserRepository(db *pg.DB) *UserRepository {
	return &UserRepository{
		db,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *model.UserApplication) (*model.UserApplication, error) {
	entity := &UserEntity{Name: u.Name, Phone: u.Phone, PushToken: u.PushToken}
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, "user", u.Phone)
	}
	return toUserModel(entity), nil
}

func (r *UserRepository) Get(ctx context.Context, id int64) (*model.UserApplication, error) {
	var entity UserEntity
	if err := r.Read(ctx).First(&entity, id).Error; err != nil {
		return nil, translate(err, "user", id)
	}
	return toUserModel(&entity), nil
}

func (r *UserRepository) UpdatePushToken(ctx context.Context, id int64, token string) error {
	res := r.Write(ctx).Model(&UserEntity{}).Where("id = ?", id).Update("push_token", token)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.NotFound("user", id)
	}
	return nil
}
