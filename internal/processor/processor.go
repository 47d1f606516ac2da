package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/laser/internal/queue"
	"github.com/nimasrn/laser/pkg/logger"
	"github.com/nimasrn/laser/pkg/redis"
	"github.com/nimasrn/laser/pkg/worker"
)

const (
	DefaultProcessingTimeout = 5 * time.Second
	DefaultReportInterval    = 30 * time.Second
	ShutdownTimeout          = time.Minute

	highLagThreshold = 10_000
)

// Processor handles one kind of stream message.
type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

type NotifierConfig struct {
	Queue             queue.QueueConfig
	Consumers         int
	Workers           int
	BufferSize        int
	ProcessingTimeout time.Duration
	ReportInterval    time.Duration
}

func (c *NotifierConfig) applyDefaults() {
	if c.Consumers <= 0 {
		c.Consumers = 1
	}
	if c.Workers <= 0 {
		c.Workers = 10
	}
	if c.BufferSize <= 0 {
		c.BufferSize = c.Workers * 100
	}
	if c.ProcessingTimeout <= 0 {
		c.ProcessingTimeout = DefaultProcessingTimeout
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = DefaultReportInterval
	}
}

// NotifierService reads offer events with several stream consumers and hands
// them to a worker pool. A message is acked only after its worker finished.
type NotifierService struct {
	adapter   redis.RedisAdapter
	processor Processor
	config    NotifierConfig
	queues    []*queue.Queue
	metrics   *ServiceMetrics
	worker    *worker.WorkerManager
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewNotifierService(adapter redis.RedisAdapter, processor Processor, config NotifierConfig) (*NotifierService, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	config.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &NotifierService{
		adapter:   adapter,
		processor: processor,
		config:    config,
		metrics:   NewServiceMetrics(),
		worker:    worker.NewWorkerManager(config.BufferSize, config.Workers, nil),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (s *NotifierService) Metrics() *ServiceMetrics {
	return s.metrics
}

func (s *NotifierService) Start() error {
	logger.Info("starting notifier", "processor", s.processor.GetType())

	s.worker.SetWorker(s.workerHandler)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.worker.Start(); err != nil {
			logger.Debug("worker manager stopped", "error", err)
		}
	}()

	for i := 0; i < s.config.Consumers; i++ {
		qc := s.config.Queue
		qc.ConsumerName = fmt.Sprintf("%s-%d", qc.ConsumerName, i)

		q, err := queue.NewQueue(s.adapter, qc)
		if err != nil {
			return fmt.Errorf("create consumer %d: %w", i, err)
		}
		if err := q.Consume(s.messageHandler); err != nil {
			return fmt.Errorf("start consumer %d: %w", i, err)
		}
		s.queues = append(s.queues, q)
	}

	s.wg.Add(1)
	go s.reporter()

	logger.Info("notifier started", "consumers", len(s.queues), "workers", s.config.Workers)
	return nil
}

func (s *NotifierService) reporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportMetrics()
			s.checkHealth()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *NotifierService) reportMetrics() {
	stats := s.metrics.Snapshot()
	logger.Info("notifier metrics",
		"total_processed", stats.Processed,
		"total_failed", stats.Failed,
		"rate_per_second", stats.RatePerSecond,
		"avg_duration_ms", stats.AvgDuration.Milliseconds(),
		"uptime_seconds", stats.Uptime.Seconds())
}

// checkHealth pings redis and warns about a lagging stream. All consumers
// share one stream so the first queue's numbers are enough.
func (s *NotifierService) checkHealth() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if err := s.adapter.Client().Ping(ctx).Err(); err != nil {
		logger.Error("notifier health check failed", "error", err)
		return
	}
	if len(s.queues) == 0 {
		return
	}
	stats, err := s.queues[0].GetStats(ctx)
	if err != nil {
		logger.Warn("queue stats unavailable", "error", err)
		return
	}
	if stats.PendingMessages > highLagThreshold {
		logger.Warn("offer event stream lagging", "pending", stats.PendingMessages, "dead_letters", stats.DeadLetters)
	}
}

func (s *NotifierService) Stop() {
	logger.Info("stopping notifier")
	s.cancel()

	var stopping sync.WaitGroup
	for i, q := range s.queues {
		stopping.Add(1)
		go func() {
			defer stopping.Done()
			if err := q.Stop(ShutdownTimeout); err != nil {
				logger.Error("consumer did not stop", "consumer", i, "error", err)
			}
		}()
	}
	stopping.Wait()

	s.worker.Exit()
	s.wg.Wait()
	s.reportMetrics()
	logger.Info("notifier stopped")
}

type job struct {
	ctx    context.Context
	msg    *queue.Message
	result chan error
}

// messageHandler blocks its consumer until a worker has processed msg.
func (s *NotifierService) messageHandler(ctx context.Context, msg *queue.Message) error {
	jctx, cancel := context.WithTimeout(ctx, s.config.ProcessingTimeout)
	defer cancel()

	j := &job{ctx: jctx, msg: msg, result: make(chan error, 1)}
	if !s.worker.Enqueue(j) {
		return worker.ErrStopped
	}

	select {
	case err := <-j.result:
		return err
	case <-jctx.Done():
		return fmt.Errorf("waiting for worker: %w", jctx.Err())
	}
}

func (s *NotifierService) workerHandler(index int, v interface{}) {
	j, ok := v.(*job)
	if !ok {
		logger.Error("unexpected job type", "worker", index)
		return
	}
	if j.ctx.Err() != nil {
		logger.Warn("job expired before processing", "worker", index, "id", j.msg.ID)
		return
	}

	start := time.Now()
	err := s.processor.Process(j.ctx, j.msg)
	if err != nil {
		s.metrics.RecordFailure()
		logger.Error("offer event not processed", "worker", index, "id", j.msg.ID, "attempts", j.msg.Attempts, "error", err)
	} else {
		s.metrics.RecordSuccess(time.Since(start))
	}
	j.result <- err
}
