package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type PushStatus string

const (
	StatusSent     PushStatus = "SENT"
	StatusRejected PushStatus = "REJECTED"
)

type SendPushRequest struct {
	NotificationID string            `json:"notification_id" binding:"required"`
	Token          string            `json:"token" binding:"required"`
	Title          string            `json:"title" binding:"required"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data"`
}

type SendPushResponse struct {
	NotificationID string     `json:"notification_id"`
	Status         PushStatus `json:"status"`
	ProviderID     string     `json:"provider_id"`
	ErrorCode      string     `json:"error_code,omitempty"`
	ErrorMsg       string     `json:"error_message,omitempty"`
	ProcessedAt    time.Time  `json:"processed_at"`
}

type HealthResponse struct {
	Status      string    `json:"status"`
	ProviderID  string    `json:"provider_id"`
	Timestamp   time.Time `json:"timestamp"`
	SuccessRate float64   `json:"success_rate"`
}

// MockProvider pretends to be a push notification service with a tunable
// success rate and latency.
type MockProvider struct {
	mu          sync.Mutex
	successRate float64
	failureRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	providerID  string
	rng         *rand.Rand
}

func NewMockProvider(successRate, failureRate float64, minDelay, maxDelay time.Duration) *MockProvider {
	return &MockProvider{
		successRate: successRate,
		failureRate: failureRate,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		providerID:  "MOCK_PUSH_" + uuid.NewString()[:8],
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockProvider) roll() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

func (m *MockProvider) delay() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}

func (m *MockProvider) rates() (success, failure float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.successRate, m.failureRate
}

// deliver returns nil when the provider should answer with a transport error.
func (m *MockProvider) deliver(req *SendPushRequest) *SendPushResponse {
	d := m.delay()
	time.Sleep(d)

	success, failure := m.rates()
	if m.roll() < failure {
		log.Warn().Str("notification_id", req.NotificationID).Msg("simulated provider failure")
		return nil
	}

	res := &SendPushResponse{
		NotificationID: req.NotificationID,
		ProviderID:     m.providerID,
		ProcessedAt:    time.Now().UTC(),
	}
	if m.roll() < success {
		res.Status = StatusSent
		log.Info().Str("notification_id", req.NotificationID).Dur("delay", d).Msg("push sent")
		return res
	}
	res.Status = StatusRejected
	res.ErrorCode = "UNREGISTERED"
	res.ErrorMsg = "device token is no longer registered"
	log.Warn().Str("notification_id", req.NotificationID).Str("error_code", res.ErrorCode).Msg("push rejected")
	return res
}

type Handler struct {
	provider *MockProvider
}

func (h *Handler) Send(c *gin.Context) {
	var req SendPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	res := h.provider.deliver(&req)
	if res == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "provider temporarily unavailable"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Health(c *gin.Context) {
	success, _ := h.provider.rates()
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		ProviderID:  h.provider.providerID,
		Timestamp:   time.Now().UTC(),
		SuccessRate: success,
	})
}

// UpdateConfig changes the success and failure rates at runtime.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var body struct {
		SuccessRate *float64 `json:"success_rate"`
		FailureRate *float64 `json:"failure_rate"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	p := h.provider
	p.mu.Lock()
	if r := body.SuccessRate; r != nil && *r >= 0 && *r <= 1 {
		p.successRate = *r
	}
	if r := body.FailureRate; r != nil && *r >= 0 && *r <= 1 {
		p.failureRate = *r
	}
	success, failure := p.successRate, p.failureRate
	p.mu.Unlock()

	log.Info().Float64("success_rate", success).Float64("failure_rate", failure).Msg("config updated")
	c.JSON(http.StatusOK, gin.H{"success_rate": success, "failure_rate": failure})
}

func SetupRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request processed")
	})

	v1 := router.Group("/api/v1")
	v1.POST("/push/send", h.Send)
	v1.PUT("/config", h.UpdateConfig)
	router.GET("/health", h.Health)
	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8081")
	successRate := getEnvFloat("SUCCESS_RATE", 0.98)
	failureRate := getEnvFloat("FAILURE_RATE", 0)
	minDelay := getEnvDuration("MIN_DELAY", 20*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 200*time.Millisecond)

	provider := NewMockProvider(successRate, failureRate, minDelay, maxDelay)
	log.Info().
		Str("port", port).
		Str("provider_id", provider.providerID).
		Float64("success_rate", successRate).
		Float64("failure_rate", failureRate).
		Msg("starting mock push provider")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      SetupRouter(&Handler{provider: provider}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("mock push provider stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
