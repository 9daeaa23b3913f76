package main

import (
	"context"
	"net/http"
	"time"

	"github.com/litespace/availability/libs/auth"
	"github.com/litespace/availability/libs/db"
	"github.com/litespace/availability/libs/grpcx"
	"github.com/litespace/availability/libs/httpx"
	"github.com/litespace/availability/libs/kafkax"
	otelx "github.com/litespace/availability/libs/otel"
	"github.com/litespace/availability/libs/runtime"
	"github.com/litespace/availability/services/availability-service/internal/cache"
	"github.com/litespace/availability/services/availability-service/internal/consumer"
	"github.com/litespace/availability/services/availability-service/internal/grpcserver"
	"github.com/litespace/availability/services/availability-service/internal/handlers"
	"github.com/litespace/availability/services/availability-service/internal/inbox"
	"github.com/litespace/availability/services/availability-service/internal/outbox"
	"github.com/litespace/availability/services/availability-service/internal/rules"
	"github.com/litespace/availability/services/availability-service/internal/slots"
	"github.com/litespace/availability/services/availability-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.Service, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.PoolConfig{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	ruleRepo := storage.NewRuleRepository()
	bookedRepo := storage.NewBookedSlotRepository()
	tutorRepo := storage.NewTutorRepository()
	outboxRepo := outbox.NewRepository()
	inboxRepo := inbox.NewRepository()

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	// Interfaces stay nil without Redis so services skip caching.
	var (
		ruleInvalidator   rules.Invalidator
		lessonInvalidator consumer.Invalidator
		slotCache         slots.Cache
		limiter           httpx.Limiter = httpx.NewRateLimiter(cfg.RatePerMinute, time.Minute)
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		c := cache.New(rdb, cfg.SlotCacheTTL)
		ruleInvalidator, lessonInvalidator, slotCache = c, c, c
		limiter = httpx.NewRedisRateLimiter(rdb, cfg.RatePerMinute, time.Minute, "availability:rl")
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: c.Ping, Optional: true})
	}

	rulesSvc := rules.NewService(rules.NewPGStore(pool, ruleRepo, bookedRepo, outboxRepo), ruleInvalidator, logger, rules.Config{
		MaxRuleSpan: cfg.MaxRuleSpan,
	})
	slotsSvc := slots.NewService(slots.NewPGSource(pool, ruleRepo, bookedRepo, tutorRepo), slotCache, logger, slots.Config{
		MaxWindow:     cfg.MaxWindow,
		ShortLesson:   cfg.ShortLesson,
		DefaultNotice: cfg.DefaultNotice,
	})

	if brokers := kafkax.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		writer := kafkax.NewWriter(brokers)
		defer writer.Close()
		publisher := outbox.NewPublisher(pool, outboxRepo, writer, logger, outbox.PublisherConfig{
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)

		lessons := consumer.NewLessonHandler(consumer.NewPGStore(pool, inboxRepo, bookedRepo), lessonInvalidator, logger)
		lessonConsumer := consumer.New(logger, consumer.Config{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topics:  cfg.LessonTopics,
		}, lessons.Handle)
		go lessonConsumer.Run(ctx)

		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	} else {
		logger.Warn("KAFKA_BROKERS not set; outbox publisher and lesson consumer disabled")
	}

	if cfg.GRPCPort != "" {
		grpcServer := grpcx.NewServer(logger)
		grpcserver.Register(grpcServer, slotsSvc, rulesSvc, logger)
		go func() {
			if err := grpcx.Serve(ctx, grpcServer, ":"+cfg.GRPCPort, logger); err != nil {
				logger.Error("grpc server error", "err", err)
			}
		}()
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.Register(mux,
		handlers.NewRuleHandler(rulesSvc, logger),
		handlers.NewSlotHandler(slotsSvc, logger),
		handlers.Guards{
			Auth:   auth.RequireAuth(cfg.JWTSecret),
			Public: httpx.RateLimit(limiter, logger, true),
		},
	)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(cfg.CORSOrigins)),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "availability")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runtime.ServeHTTP(ctx, srv, logger, 10*time.Second)
}
