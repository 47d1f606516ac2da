package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nimasrn/laser/pkg/logger"
	"github.com/nimasrn/laser/pkg/prom"
	"github.com/valyala/fasthttp"
)

var (
	ErrNoAvailableProviders = errors.New("no available push providers")
	ErrRejected             = errors.New("push rejected by provider")
)

type PushStatus string

const (
	StatusSent     PushStatus = "SENT"
	StatusRejected PushStatus = "REJECTED"
)

const (
	sendPath   = "/api/v1/push/send"
	healthPath = "/health"
)

type PushRequest struct {
	NotificationID string            `json:"notification_id"`
	Token          string            `json:"token"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	Data           map[string]string `json:"data,omitempty"`
}

type PushResponse struct {
	NotificationID string     `json:"notification_id"`
	Status         PushStatus `json:"status"`
	ProviderID     string     `json:"provider_id"`
	ErrorCode      string     `json:"error_code,omitempty"`
	ErrorMsg       string     `json:"error_message,omitempty"`
	ProcessedAt    time.Time  `json:"processed_at"`
}

// ProviderMetrics keeps running counters for one provider plus a bounded
// latency window for percentiles.
type ProviderMetrics struct {
	TotalRequests    atomic.Int64
	SuccessfulReqs   atomic.Int64
	FailedReqs       atomic.Int64
	TotalLatencyMs   atomic.Int64
	ConsecutiveFails atomic.Int32

	mu      sync.Mutex
	window  []int64
	maxSize int
}

func NewProviderMetrics() *ProviderMetrics {
	return &ProviderMetrics{
		window:  make([]int64, 0, 100),
		maxSize: 100,
	}
}

func (m *ProviderMetrics) RecordSuccess(latencyMs int64) {
	m.TotalRequests.Add(1)
	m.SuccessfulReqs.Add(1)
	m.TotalLatencyMs.Add(latencyMs)
	m.ConsecutiveFails.Store(0)

	m.mu.Lock()
	if len(m.window) >= m.maxSize {
		m.window = m.window[1:]
	}
	m.window = append(m.window, latencyMs)
	m.mu.Unlock()
}

func (m *ProviderMetrics) RecordFailure() {
	m.TotalRequests.Add(1)
	m.FailedReqs.Add(1)
	m.ConsecutiveFails.Add(1)
}

func (m *ProviderMetrics) AvgLatencyMs() int64 {
	ok := m.SuccessfulReqs.Load()
	if ok == 0 {
		return 0
	}
	return m.TotalLatencyMs.Load() / ok
}

// SuccessRate is 1 for a provider that has not been used yet.
func (m *ProviderMetrics) SuccessRate() float64 {
	total := m.TotalRequests.Load()
	if total == 0 {
		return 1.0
	}
	return float64(m.SuccessfulReqs.Load()) / float64(total)
}

func (m *ProviderMetrics) P95LatencyMs() int64 {
	m.mu.Lock()
	sorted := slices.Clone(m.window)
	m.mu.Unlock()

	if len(sorted) == 0 {
		return 0
	}
	slices.Sort(sorted)
	idx := min(int(float64(len(sorted))*0.95), len(sorted)-1)
	return sorted[idx]
}

type ProviderState int32

const (
	StateHealthy ProviderState = iota
	StateDegraded
	StateUnhealthy
	StateCircuitOpen
)

func (s ProviderState) String() string {
	switch s {
	case StateHealthy:
		return "HEALTHY"
	case StateDegraded:
		return "DEGRADED"
	case StateUnhealthy:
		return "UNHEALTHY"
	case StateCircuitOpen:
		return "CIRCUIT_OPEN"
	}
	return "UNKNOWN"
}

type Provider struct {
	name             string
	url              string
	weight           int
	client           *fasthttp.Client
	metrics          *ProviderMetrics
	state            atomic.Int32
	circuitOpenUntil atomic.Int64
}

func NewProvider(name, url string, weight int, client *fasthttp.Client) *Provider {
	p := &Provider{
		name:    name,
		url:     url,
		weight:  weight,
		client:  client,
		metrics: NewProviderMetrics(),
	}
	p.SetState(StateHealthy)
	return p
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) GetState() ProviderState {
	return ProviderState(p.state.Load())
}

func (p *Provider) SetState(state ProviderState) {
	p.state.Store(int32(state))
}

// IsAvailable reports whether the provider may take traffic. An open circuit
// half-opens into Degraded once its timeout has passed.
func (p *Provider) IsAvailable() bool {
	switch p.GetState() {
	case StateUnhealthy:
		return false
	case StateCircuitOpen:
		if time.Now().UnixNano() < p.circuitOpenUntil.Load() {
			return false
		}
		p.SetState(StateDegraded)
	}
	return true
}

// Score ranks providers; higher is better and zero means unusable.
// Success rate and latency weigh 40% each, the configured weight 20%.
func (p *Provider) Score() float64 {
	if !p.IsAvailable() {
		return 0
	}

	success := p.metrics.SuccessRate() * 100

	latency := 100.0
	if avg := p.metrics.AvgLatencyMs(); avg > 0 {
		latency = max(0, 100*(1-float64(avg)/5000))
	}

	recent := max(0.1, 1-float64(p.metrics.ConsecutiveFails.Load())*0.1)

	state := 1.0
	if p.GetState() == StateDegraded {
		state = 0.5
	}

	return (success*0.4 + latency*0.4 + float64(p.weight)*0.2) * recent * state
}

type Config struct {
	Providers               []ProviderConfig
	Timeout                 time.Duration
	MaxRetries              int
	RetryDelay              time.Duration
	MaxConns                int
	HealthCheckInterval     time.Duration
	EvaluateInterval        time.Duration
	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration
	// Dial overrides how connections are opened. Nil uses TCP.
	Dial fasthttp.DialFunc
}

type ProviderConfig struct {
	Name   string
	URL    string
	Weight int
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = 30 * time.Second
	}
	if c.EvaluateInterval <= 0 {
		c.EvaluateInterval = 30 * time.Second
	}
	if c.CircuitBreakerThreshold <= 0 {
		c.CircuitBreakerThreshold = 5
	}
	if c.CircuitBreakerTimeout <= 0 {
		c.CircuitBreakerTimeout = 30 * time.Second
	}
}

// Client sends push notifications through the best scoring provider and
// fails over to the next one on errors.
type Client struct {
	config    Config
	providers []*Provider
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewClient(config Config) (*Client, error) {
	if len(config.Providers) == 0 {
		return nil, errors.New("at least one push provider is required")
	}
	config.applyDefaults()

	c := &Client{
		config:    config,
		providers: make([]*Provider, 0, len(config.Providers)),
		stopCh:    make(chan struct{}),
	}
	for _, pc := range config.Providers {
		if pc.URL == "" {
			continue
		}
		httpClient := &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: time.Minute,
			Dial:                config.Dial,
		}
		c.providers = append(c.providers, NewProvider(pc.Name, pc.URL, pc.Weight, httpClient))
		logger.Info("push provider registered", "name", pc.Name, "url", pc.URL, "weight", pc.Weight)
	}
	if len(c.providers) == 0 {
		return nil, errors.New("no push provider has a url")
	}

	c.wg.Add(2)
	go c.every(c.config.HealthCheckInterval, c.checkHealth)
	go c.every(c.config.EvaluateInterval, c.evaluate)
	return c, nil
}

func (c *Client) SelectBestProvider() (*Provider, error) {
	var (
		best      *Provider
		bestScore float64
	)
	for _, p := range c.providers {
		if s := p.Score(); s > bestScore {
			best, bestScore = p, s
		}
	}
	if best == nil {
		return nil, ErrNoAvailableProviders
	}
	return best, nil
}

// Send delivers one notification. A provider that answers REJECTED is not
// retried since the token itself is the problem.
func (c *Client) Send(ctx context.Context, req *PushRequest) (*PushResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal push request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}

		provider, err := c.SelectBestProvider()
		if err != nil {
			lastErr = err
			continue
		}

		start := time.Now()
		raw, err := c.do(ctx, provider, fasthttp.MethodPost, sendPath, body)
		elapsed := time.Since(start)
		if err != nil {
			provider.metrics.RecordFailure()
			c.tripBreaker(provider)
			logger.Warn("push attempt failed", "provider", provider.name, "attempt", attempt+1, "error", err)
			lastErr = err
			continue
		}
		provider.metrics.RecordSuccess(elapsed.Milliseconds())
		prom.ObservePushLatency(provider.name, elapsed.Seconds())

		var resp PushResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("decode push response: %w", err)
		}
		if resp.Status == StatusRejected {
			return &resp, fmt.Errorf("%w: %s %s", ErrRejected, resp.ErrorCode, resp.ErrorMsg)
		}
		logger.Debug("push delivered", "notification_id", req.NotificationID, "provider", provider.name, "latency", elapsed)
		return &resp, nil
	}
	return nil, fmt.Errorf("push failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}

func (c *Client) do(ctx context.Context, provider *Provider, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(provider.url + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}
	if err := provider.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, err
	}

	code := resp.StatusCode()
	if code != fasthttp.StatusOK && code != fasthttp.StatusAccepted {
		return nil, fmt.Errorf("unexpected status %d: %s", code, resp.Body())
	}
	return slices.Clone(resp.Body()), nil
}

func (c *Client) tripBreaker(p *Provider) {
	fails := p.metrics.ConsecutiveFails.Load()
	if fails < int32(c.config.CircuitBreakerThreshold) {
		return
	}
	p.circuitOpenUntil.Store(time.Now().Add(c.config.CircuitBreakerTimeout).UnixNano())
	p.SetState(StateCircuitOpen)
	logger.Warn("push provider circuit opened", "provider", p.name, "consecutive_fails", fails)
}

func (c *Client) every(interval time.Duration, fn func()) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fn()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Client) checkHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.Timeout)
	defer cancel()

	for _, p := range c.providers {
		if p.GetState() == StateCircuitOpen {
			continue
		}
		old := p.GetState()
		next := StateUnhealthy
		if c.healthy(ctx, p) {
			next = old
			if old == StateUnhealthy {
				next = StateDegraded
			}
		}
		if next != old {
			p.SetState(next)
			logger.Info("push provider state changed", "provider", p.name, "from", old.String(), "to", next.String())
		}
	}
}

func (c *Client) healthy(ctx context.Context, p *Provider) bool {
	raw, err := c.do(ctx, p, fasthttp.MethodGet, healthPath, nil)
	if err != nil {
		return false
	}
	var health struct {
		Status string `json:"status"`
	}
	return json.Unmarshal(raw, &health) == nil && health.Status == "healthy"
}

// evaluate moves providers between Healthy and Degraded from their recent numbers.
func (c *Client) evaluate() {
	for _, p := range c.providers {
		state := p.GetState()
		if state == StateCircuitOpen || state == StateUnhealthy {
			continue
		}
		rate := p.metrics.SuccessRate()
		avg := p.metrics.AvgLatencyMs()
		switch {
		case rate < 0.8 || avg > 5000:
			if state != StateDegraded {
				p.SetState(StateDegraded)
				logger.Warn("push provider degraded", "provider", p.name, "success_rate", rate, "avg_latency_ms", avg)
			}
		case rate > 0.95 && avg < 2000:
			if state != StateHealthy {
				p.SetState(StateHealthy)
				logger.Info("push provider healthy again", "provider", p.name)
			}
		}
	}
}

type ProviderStats struct {
	Name             string  `json:"name"`
	State            string  `json:"state"`
	Score            float64 `json:"score"`
	TotalRequests    int64   `json:"total_requests"`
	FailedReqs       int64   `json:"failed_requests"`
	SuccessRate      float64 `json:"success_rate"`
	AvgLatencyMs     int64   `json:"avg_latency_ms"`
	P95LatencyMs     int64   `json:"p95_latency_ms"`
	ConsecutiveFails int32   `json:"consecutive_fails"`
}

// Stats returns a snapshot of every provider, best first.
func (c *Client) Stats() []ProviderStats {
	stats := make([]ProviderStats, 0, len(c.providers))
	for _, p := range c.providers {
		stats = append(stats, ProviderStats{
			Name:             p.name,
			State:            p.GetState().String(),
			Score:            p.Score(),
			TotalRequests:    p.metrics.TotalRequests.Load(),
			FailedReqs:       p.metrics.FailedReqs.Load(),
			SuccessRate:      p.metrics.SuccessRate(),
			AvgLatencyMs:     p.metrics.AvgLatencyMs(),
			P95LatencyMs:     p.metrics.P95LatencyMs(),
			ConsecutiveFails: p.metrics.ConsecutiveFails.Load(),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Score > stats[j].Score })
	return stats
}

func (c *Client) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
	return nil
}
