package services

import (
	"context"
	"strings"

	"github.com/nimasrn/laser/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.UserApplication) (*model.UserApplication, error)
	Get(ctx context.Context, id int64) (*model.UserApplication, error)
	UpdatePushToken(ctx context.Context, id int64, token string) error
}

type UserService struct {
	users UserRepository
}

func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Register(ctx context.Context, req model.UserCreateRequest) (*model.UserApplication, error) {
	if err := model.Validate(req); err != nil {
		return nil, err
	}
	return s.users.Create(ctx, &model.UserApplication{
		Name:      strings.TrimSpace(req.Name),
		Phone:     req.Phone,
		PushToken: strings.TrimSpace(req.PushToken),
	})
}

func (s *UserService) Get(ctx context.Context, id int64) (*model.UserApplication, error) {
	return s.users.Get(ctx, id)
}

// UpdatePushToken replaces the device token offer notifications are sent to.
// An empty token turns notifications off for the user.
func (s *UserService) UpdatePushToken(ctx context.Context, id int64, token string) error {
	return s.users.UpdatePushToken(ctx, id, strings.TrimSpace(token))
}
