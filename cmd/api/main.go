package main

import (
	"context"
	"log"
	"time"
	_ "time/tzdata"

	"instoo/config"
	"instoo/internal/clock"
	"instoo/internal/commands"
	"instoo/internal/events"
	"instoo/internal/handler"
	"instoo/internal/metrics"
	"instoo/internal/middleware"
	"instoo/internal/outbox"
	"instoo/internal/proxy"
	"instoo/internal/rabbitmq"
	"instoo/internal/redis"
	"instoo/internal/repository"
	"instoo/internal/server"
	"instoo/internal/services"
	"instoo/internal/websocket"
	"instoo/pkg/database"
	"instoo/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Migrate(ctx, "migrations"); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	clk, err := clock.New(cfg.ReferenceTimezone)
	if err != nil {
		log.Fatalf("Invalid reference timezone: %v", err)
	}

	redis.Initialize(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redis.Close()
	rdb := redis.GetClient()
	if err := redis.Ping(ctx, rdb); err != nil {
		// Cache and limiter fail open, so the API still serves without Redis.
		l.Warn(ctx, "redis unavailable at startup", zap.Error(err))
	}

	m := metrics.NewDefault()
	store := repository.NewStore(db)
	access := proxy.NewAccessControl()
	publisher := services.NewEventPublisher(cfg.EventSink != config.EventSinkNone)
	cache := redis.NewScheduleCache(rdb, cfg.ScheduleCacheTTL)

	schedules := services.NewScheduleService(store, clk, access, publisher, cache, m)
	likes := services.NewLikeService(store, clk, publisher, cache)
	follows := services.NewFollowService(store, clk, publisher)
	streamers := services.NewStreamerService(store, clk, commands.NewProxyChain(access), publisher, m)
	users := services.NewUserService(store, clk)
	auth := services.NewAuthService(store.Users(), cfg.JWTSecret, cfg.JWTAccessTTL)

	sink, closeSink := eventSink(cfg, rdb, l)
	defer closeSink()
	if sink != nil {
		outbox.NewRunner(outbox.DefaultProcessor(store.Outbox(), sink, m, cfg.OutboxInterval)).Start(ctx)
	}
	go recordPoolStats(ctx, m)

	// The live feed reads back what the outbox relay publishes to Redis.
	var feed *websocket.Handler
	if cfg.EventSink == config.EventSinkRedis {
		hub := websocket.NewHub()
		go hub.Run(ctx)
		go func() {
			if err := websocket.NewBridge(redis.NewSubscriber(rdb), hub).Run(ctx); err != nil {
				l.Warn(ctx, "event feed stopped", zap.Error(err))
			}
		}()
		feed = websocket.NewHandler(auth, websocket.NewChannelAuthorizer(store.Streamers()), hub)
	}

	var limiter middleware.WriteLimiter
	if cfg.WriteRateLimit > 0 {
		limiter = redis.NewRateLimiter(rdb, redis.RateLimitConfig{WriteLimit: cfg.WriteRateLimit, WriteWindow: time.Minute})
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Schedules: handler.NewScheduleHandler(schedules, likes),
		Streamers: handler.NewStreamerHandler(streamers, follows),
		Follows:   handler.NewFollowHandler(follows),
		Users:     handler.NewUserHandler(users),
		Feed:      feed,
	}, server.Dependencies{
		Auth:    auth,
		Limiter: limiter,
		Metrics: m,
		Health: map[string]server.HealthCheck{
			"database": func(ctx context.Context) error { return db.PingContext(ctx) },
			"redis":    func(ctx context.Context) error { return redis.Ping(ctx, rdb) },
		},
	})

	if err := srv.Start(); err != nil {
		l.Errorf("server stopped with error: %s", err)
	}
}

// eventSink picks where the outbox relay delivers events. A nil publisher
// leaves the relay stopped.
func eventSink(cfg *config.Config, rdb goredis.Cmdable, l *logger.Logger) (events.Publisher, func()) {
	switch cfg.EventSink {
	case config.EventSinkRedis:
		return redis.NewPublisher(rdb), func() {}
	case config.EventSinkRabbitMQ:
		p := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err := p.Connect(); err != nil {
			// Publish reconnects on demand; events stay pending until the broker is back.
			l.Warn(context.Background(), "rabbitmq unavailable at startup", zap.Error(err))
		}
		return p, func() { _ = p.Close() }
	default:
		return nil, func() {}
	}
}

func recordPoolStats(ctx context.Context, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if database.DB != nil {
				m.RecordDBPoolStats(database.DB.Stats())
			}
		}
	}
}
