package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nimasrn/laser/pkg/logger"
	"github.com/nimasrn/laser/pkg/redis"
)

var (
	ErrAlreadyProcessed   = errors.New("notification already sent")
	ErrLockAcquireFailed  = errors.New("failed to acquire notification lock")
	ErrMaxRetriesExceeded = errors.New("maximum notification retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL      time.Duration
	ProcessedTTL time.Duration
	MaxRetries   int

	RetryKeyPrefix     string
	LockKeyPrefix      string
	ProcessedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		ProcessedTTL:       24 * time.Hour,
		MaxRetries:         3,
		RetryKeyPrefix:     "notify:retry:",
		LockKeyPrefix:      "notify:lock:",
		ProcessedKeyPrefix: "notify:done:",
	}
}

// IdempotencyService makes sure one offer event produces at most one push,
// even when the stream redelivers it or two consumers pick it up.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(adapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  adapter,
		config: config,
	}
}

// Attempt is a held lock on one event.
type Attempt struct {
	EventID    string
	RetryCount int
	held       bool
}

func (a *Attempt) IsRetry() bool {
	return a.RetryCount > 0
}

// Acquire checks the done marker and the retry budget, then takes the
// short lived lock for eventID.
func (s *IdempotencyService) Acquire(ctx context.Context, eventID string) (*Attempt, error) {
	done, err := s.redis.Exist(ctx, s.config.ProcessedKeyPrefix+eventID)
	if err != nil {
		// a duplicate push is cheaper than a lost one
		logger.Warn("processed marker check failed", "event_id", eventID, "error", err)
	} else if done > 0 {
		return nil, ErrAlreadyProcessed
	}

	retries, err := s.RetryCount(ctx, eventID)
	if err != nil {
		logger.Warn("retry counter read failed", "event_id", eventID, "error", err)
	}
	if retries >= s.config.MaxRetries {
		return nil, fmt.Errorf("%w: event %s, retries %d", ErrMaxRetriesExceeded, eventID, retries)
	}

	stamp := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
	ok, err := s.redis.SetNX(ctx, s.config.LockKeyPrefix+eventID, stamp, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !ok {
		return nil, ErrLockAcquireFailed
	}

	logger.Debug("notification lock acquired", "event_id", eventID, "retry_count", retries)
	return &Attempt{EventID: eventID, RetryCount: retries, held: true}, nil
}

// MarkSuccess records the event as done and drops its lock and retry counter.
func (s *IdempotencyService) MarkSuccess(ctx context.Context, a *Attempt) error {
	if err := s.redis.Set(ctx, s.config.ProcessedKeyPrefix+a.EventID, []byte("1"), s.config.ProcessedTTL); err != nil {
		return fmt.Errorf("mark notification processed: %w", err)
	}
	if err := s.redis.Del(ctx, s.config.LockKeyPrefix+a.EventID, s.config.RetryKeyPrefix+a.EventID); err != nil {
		logger.Warn("notification cleanup failed", "event_id", a.EventID, "error", err)
	}
	a.held = false
	return nil
}

// MarkFailure bumps the retry counter and frees the lock for the next delivery.
func (s *IdempotencyService) MarkFailure(ctx context.Context, a *Attempt, reason error) error {
	next := a.RetryCount + 1
	if err := s.redis.Set(ctx, s.config.RetryKeyPrefix+a.EventID, []byte(strconv.Itoa(next)), s.config.ProcessedTTL); err != nil {
		logger.Error("retry counter update failed", "event_id", a.EventID, "error", err)
	}
	err := s.Release(ctx, a)
	logger.Warn("notification failed, will retry",
		"event_id", a.EventID,
		"retry_count", next,
		"max_retries", s.config.MaxRetries,
		"reason", reason)
	return err
}

func (s *IdempotencyService) Release(ctx context.Context, a *Attempt) error {
	if a == nil || !a.held {
		return nil
	}
	if err := s.redis.Del(ctx, s.config.LockKeyPrefix+a.EventID); err != nil {
		return err
	}
	a.held = false
	return nil
}

func (s *IdempotencyService) RetryCount(ctx context.Context, eventID string) (int, error) {
	raw, err := s.redis.Get(ctx, s.config.RetryKeyPrefix+eventID)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("retry counter for %s: %w", eventID, err)
	}
	return n, nil
}

func (s *IdempotencyService) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.redis.Exist(ctx, s.config.ProcessedKeyPrefix+eventID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
