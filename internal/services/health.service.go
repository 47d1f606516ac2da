package services

import (
	"context"
	"fmt"

	"github.com/nimasrn/laser/pkg/redis"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	db    Pinger
	redis redis.RedisAdapter
}

func NewHealthService(db Pinger, redis redis.RedisAdapter) *HealthService {
	return &HealthService{db: db, redis: redis}
}

// Check reports the first unreachable dependency.
func (s *HealthService) Check(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if s.redis != nil {
		if err := s.redis.Client().Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
