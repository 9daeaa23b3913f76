package main

import (
	"time"

	"github.com/litespace/availability/libs/config"
)

type appConfig struct {
	Service     string
	Port        string
	GRPCPort    string
	DatabaseURL string
	LogLevel    string

	KafkaBrokers string
	KafkaGroupID string
	LessonTopics []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SlotCacheTTL  time.Duration
	RatePerMinute int

	JWTSecret   string
	CORSOrigins []string

	MaxWindow     time.Duration
	MaxRuleSpan   time.Duration
	ShortLesson   time.Duration
	DefaultNotice int
}

func loadConfig() (appConfig, error) {
	if err := config.Load(); err != nil {
		return appConfig{}, err
	}

	cfg := appConfig{
		Service:  config.String("SERVICE_NAME", "availability-service"),
		LogLevel: config.String("LOG_LEVEL", "info"),

		KafkaBrokers: config.String("KAFKA_BROKERS", ""),
		KafkaGroupID: config.String("KAFKA_GROUP_ID", "availability-service"),
		LessonTopics: config.List("KAFKA_LESSON_TOPICS", "lesson.booked.v1,lesson.cancelled.v1"),

		RedisAddr:     config.String("REDIS_ADDR", ""),
		RedisPassword: config.String("REDIS_PASSWORD", ""),
		RedisDB:       config.Int("REDIS_DB", 0, 0),
		SlotCacheTTL:  config.Seconds("SLOT_CACHE_TTL_SECONDS", 60),
		RatePerMinute: config.Int("RATE_LIMIT_PER_MINUTE", 120, 1),

		JWTSecret:   config.String("JWT_SECRET", ""),
		CORSOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),

		MaxWindow:     time.Duration(config.Int("MAX_WINDOW_DAYS", 366, 1)) * 24 * time.Hour,
		MaxRuleSpan:   time.Duration(config.Int("MAX_RULE_SPAN_DAYS", 731, 1)) * 24 * time.Hour,
		ShortLesson:   config.Minutes("SHORT_LESSON_MINUTES", 15),
		DefaultNotice: config.Int("DEFAULT_NOTICE_MINUTES", 0, 0),
	}

	var err error
	if cfg.Port, err = config.Port("PORT", "8085"); err != nil {
		return appConfig{}, err
	}
	if config.Bool("GRPC_ENABLED", true) {
		if cfg.GRPCPort, err = config.Port("GRPC_PORT", "9095"); err != nil {
			return appConfig{}, err
		}
	}
	if cfg.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
		return appConfig{}, err
	}
	return cfg, nil
}
