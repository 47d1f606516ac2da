package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimasrn/laser/internal/config"
	gateway "github.com/nimasrn/laser/internal/gateways"
	"github.com/nimasrn/laser/internal/processor"
	"github.com/nimasrn/laser/internal/queue"
	"github.com/nimasrn/laser/internal/repository"
	"github.com/nimasrn/laser/pkg/logger"
	"github.com/nimasrn/laser/pkg/pg"
	"github.com/nimasrn/laser/pkg/prom"
	"github.com/nimasrn/laser/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	if err := logger.Setup(cfg.AppName+"-notifier", cfg.AppEnv, cfg.AppDebug); err != nil {
		logger.Error("failed to set up logger", "error", err)
		os.Exit(1)
	}
	logger.Info("starting laser notifier", "version", version, "commit", commit, "date", date)

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.AppDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: cfg.AppName + "-notifier",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	push, err := gateway.NewClient(gateway.Config{
		Providers: []gateway.ProviderConfig{
			{Name: "primary", URL: cfg.PushPrimaryUrl, Weight: 100},
			{Name: "secondary", URL: cfg.PushSecondaryUrl, Weight: 80},
		},
		Timeout:                 5 * time.Second,
		MaxRetries:              3,
		RetryDelay:              100 * time.Millisecond,
		MaxConns:                512,
		HealthCheckInterval:     30 * time.Second,
		EvaluateInterval:        30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   time.Minute,
	})
	if err != nil {
		logger.Error("failed to create push gateway", "error", err)
		return
	}
	defer push.Close()

	idempotency := processor.NewIdempotencyService(redisAdap, processor.DefaultIdempotencyConfig())
	offers := processor.NewOfferNotificationProcessor(repository.NewUserRepository(db), push, idempotency)

	service, err := processor.NewNotifierService(redisAdap, offers, processor.NotifierConfig{
		Queue: queue.QueueConfig{
			Name:              cfg.QueueName,
			ConsumerGroup:     cfg.QueueConsumerGroup,
			ConsumerName:      cfg.QueueConsumerName,
			MaxRetries:        cfg.QueueMaxRetries,
			VisibilityTimeout: cfg.QueueVisibilityTimeout,
			PollInterval:      cfg.QueuePollInterval,
			BatchSize:         cfg.QueueBatchSize,
			MaxLen:            cfg.QueueMaxLen,
			EnableDLQ:         cfg.QueueEnableDLQ,
		},
		Consumers: cfg.QueueConsumers,
		Workers:   cfg.NotifierWorkers,
	})
	if err != nil {
		logger.Error("failed to create notifier", "error", err)
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if err := prom.Create(hostname, cfg.AppEnv, cfg.PromNamespace); err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}
	go prom.ListenAndServer(cfg.PromListenAddr, "/metrics")

	if err := service.Start(); err != nil {
		logger.Error("failed to start notifier", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	service.Stop()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if path, ok := strings.CutPrefix(v, "--env="); ok {
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file", "error", err)
				return ""
			}
			return path
		}
	}
	return ""
}
