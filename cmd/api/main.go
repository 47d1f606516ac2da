package main

import (
	"os"
	"strings"

	"github.com/nimasrn/laser/internal/config"
	"github.com/nimasrn/laser/internal/handlers"
	"github.com/nimasrn/laser/internal/queue"
	"github.com/nimasrn/laser/internal/repository"
	"github.com/nimasrn/laser/internal/services"
	xhttp "github.com/nimasrn/laser/pkg/http"
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
	if err := logger.Setup(cfg.AppName+"-api", cfg.AppEnv, cfg.AppDebug); err != nil {
		logger.Error("failed to set up logger", "error", err)
		os.Exit(1)
	}
	logger.Info("starting laser api", "version", version, "commit", commit, "date", date)

	opts := xhttp.DefaultServerOption
	opts.Name = cfg.AppName
	opts.ReadTimeout = cfg.HttpServerReadTimeout
	opts.WriteTimeout = cfg.HttpServerWriteTimeout
	opts.ReadBufferSize = cfg.HttpServerReadBufferSize
	opts.WriteBufferSize = cfg.HttpServerWriteBufferSize
	s := xhttp.NewServer(opts)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.TimeoutMiddleware(cfg.HttpRequestTimeout))
	s.Use(xhttp.CompressMiddleware(6))

	db, err := pg.CreateReadWrite(cfg.PostgresRead(), cfg.PostgresWrite(), cfg.AppDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", cfg.RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: cfg.AppName + "-api",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	// the api only publishes, so it never consumes from this queue
	events, err := queue.NewQueue(redisAdap, queue.QueueConfig{
		Name:          cfg.QueueName,
		ConsumerGroup: cfg.QueueConsumerGroup,
		MaxLen:        cfg.QueueMaxLen,
		EnableDLQ:     cfg.QueueEnableDLQ,
	})
	if err != nil {
		logger.Error("failed creating offer event queue", "error", err)
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

	// repositories
	locationRepo := repository.NewLocationRepository(db)
	tripRepo := repository.NewTripRepository(db)
	shipmentRepo := repository.NewShipmentRepository(db)
	shipmentTypeRepo := repository.NewShipmentTypeRepository(db)
	statusRepo := repository.NewDealStatusRepository(db)
	dealRepo := repository.NewDealRepository(db)
	offerRepo := repository.NewOfferRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	providerRepo := repository.NewAccountProviderRepository(db)
	userRepo := repository.NewUserRepository(db)

	// services
	statusService := services.NewStatusService(statusRepo, redisAdap, cfg.DealStatusCacheTTL)
	dealService := services.NewDealService(dealRepo, shipmentRepo, statusService, transactionRepo, providerRepo, services.DealOptions{
		AllowSkip:    cfg.DealStatusAllowSkip,
		RecentWindow: cfg.DealRecentWindow,
	})
	offerService := services.NewOfferService(dealRepo, offerRepo, shipmentRepo, statusService, events, cfg.OfferListPageSize)
	searchService := services.NewSearchService(dealRepo)
	catalogService := services.NewCatalogService(locationRepo, tripRepo, shipmentRepo, shipmentTypeRepo, dealRepo, offerRepo, statusService)
	userService := services.NewUserService(userRepo)
	healthService := services.NewHealthService(db, redisAdap)

	// v1 handlers
	g := s.Router.Group("/api/v1")
	handlers.RegisterDealRoutes(g, handlers.NewDealHandler(dealService, statusService))
	handlers.RegisterOfferRoutes(g, handlers.NewOfferHandler(offerService))
	handlers.RegisterSearchRoutes(g, handlers.NewSearchHandler(searchService))
	handlers.RegisterCatalogRoutes(g, handlers.NewCatalogHandler(catalogService))
	handlers.RegisterUserRoutes(g, handlers.NewUserHandler(userService))
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(healthService))

	done := s.CloseOnSignal()
	if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
		logger.Error("error in running http-server", "error", err)
		return
	}
	<-done
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
