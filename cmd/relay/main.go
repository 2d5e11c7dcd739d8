package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"github.com/hilthontt/relay/internal/infrastructure/configs"
	"github.com/hilthontt/relay/internal/infrastructure/events"
	"github.com/hilthontt/relay/internal/infrastructure/logging"
	"github.com/hilthontt/relay/internal/infrastructure/messaging"
	"github.com/hilthontt/relay/internal/infrastructure/metrics"
	"github.com/hilthontt/relay/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/relay/internal/infrastructure/tracing"
	"github.com/hilthontt/relay/internal/infrastructure/ws"
	"github.com/hilthontt/relay/internal/persistence/db"
	"github.com/hilthontt/relay/internal/persistence/repository"
	"github.com/hilthontt/relay/internal/presentation/api"
	"github.com/hilthontt/relay/internal/presentation/handler/health"
	"github.com/hilthontt/relay/internal/presentation/handler/relay"
	"github.com/hilthontt/relay/internal/presentation/handler/rooms"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "relay"

func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logger.FilePath,
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
		Logger:   cfg.Logger.Logger,
	})
	logger.Init()

	mongoCfg := &db.MongoConfig{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	}

	mongoClient, err := db.NewMongoClient(ctx, mongoCfg)
	if err != nil {
		logger.Fatal(logging.Mongo, logging.Startup, "failed to connect to mongodb", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer db.DisconnectMongo(context.Background(), mongoClient)

	database := db.GetDatabase(mongoClient, mongoCfg)
	if err := repository.EnsureIndexes(ctx, database); err != nil {
		logger.Fatal(logging.Mongo, logging.Startup, "failed to ensure indexes", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	roomRepository := repository.NewRoomRepository(database)
	messageRepository := repository.NewMessageRepository(database)
	auditRepository := repository.NewRoomAuditLogRepository(database)

	// Eventing is optional. An empty broker URI leaves the publisher as a
	// no-op and skips the audit consumer.
	var rabbitmq *messaging.RabbitMQ
	if cfg.RabbitMQ.URI != "" {
		rabbitmq, err = messaging.NewRabbitMQ(cfg.RabbitMQ.URI)
		if err != nil {
			logger.Fatal(logging.RabbitMQ, logging.Startup, "failed to connect to rabbitmq", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		defer rabbitmq.Close()

		roomConsumer := events.NewRoomConsumer(rabbitmq, auditRepository)
		go func() {
			if err := roomConsumer.Listen(); err != nil {
				logger.Error(logging.RabbitMQ, logging.ExternalService, "room consumer stopped", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
		}()
	}
	roomPublisher := events.NewRoomPublisher(rabbitmq)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	relayMetrics := metrics.New(promRegistry)

	registry := ws.NewRegistry()
	if cfg.Relay.IdleRoomExpiry > 0 {
		reaper := ws.NewReaper(registry, cfg.Relay.IdleRoomExpiry, roomPublisher, relayMetrics, logger)
		go reaper.Run(ctx)
	}

	relayHandler := relay.NewHandler(ws.SessionDeps{
		Registry:  registry,
		Rooms:     roomRepository,
		Messages:  messageRepository,
		Publisher: roomPublisher,
		Metrics:   relayMetrics,
		Logger:    logger,
		Config:    cfg.Relay,
	})
	roomHandler := rooms.NewHandler(roomRepository, messageRepository, registry, cfg.Relay.HistoryLimit)
	healthHandler := health.NewHandler()

	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})

	app := api.NewApplication(*cfg, relayHandler, roomHandler, healthHandler, logger, rl, promRegistry)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatal(logging.General, logging.Shutdown, "server error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
