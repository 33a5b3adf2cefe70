package main

import (
	"context"
	"database/sql"
	"fmt"

	"sleepwise/internal/auth"
	"sleepwise/internal/config"
	"sleepwise/internal/database"
	"sleepwise/internal/events"
	"sleepwise/internal/metrics"
	"sleepwise/internal/prediction"
	"sleepwise/internal/repository"
	"sleepwise/internal/service"
	"sleepwise/internal/store"
	"sleepwise/internal/supabase"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// app 进程级依赖，按配置一次性构建后注入各组件
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db       *sql.DB
	supabase *supabase.Client
	redis    *redis.Client

	profiles  repository.ProfilesRepository
	insights  repository.InsightsRepository
	verifier  auth.Verifier
	predictor *prediction.Client
	journal   store.Journal
	publisher events.Publisher
	metrics   *metrics.Metrics

	profileService service.ProfileService
	insightService service.InsightService
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if needsSupabase(cfg) {
		a.supabase, err = supabase.New(supabase.Config{
			URL:     cfg.Supabase.URL,
			APIKey:  cfg.Supabase.APIKey,
			Timeout: cfg.Supabase.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
	}

	// 存储后端
	switch cfg.Store.Backend {
	case config.BackendSupabase:
		a.profiles = repository.NewSupabaseProfilesRepository(a.supabase)
		a.insights = repository.NewSupabaseInsightsRepository(a.supabase)
	case config.BackendPostgres:
		a.db, err = database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		a.profiles = repository.NewPostgresProfilesRepository(a.db)
		a.insights = repository.NewPostgresInsightsRepository(a.db)
	case config.BackendMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		a.profiles = repository.NewMemoryProfilesRepository()
		a.insights = repository.NewMemoryInsightsRepository()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	// 鉴权
	switch cfg.Auth.Mode {
	case config.AuthModeJWT:
		a.verifier, err = auth.NewJWTVerifier(cfg.Auth.JWTSecret)
		if err != nil {
			return nil, err
		}
	default:
		a.verifier = auth.NewSupabaseVerifier(a.supabase, logger)
	}

	// Redis：journal 与 stream 事件共用
	a.journal = store.NoopJournal{}
	if cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err = a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		if cfg.Journal.Enabled {
			a.journal = store.NewKVJournal(store.NewRedisKV(a.redis), cfg.Journal.TTL)
		}
	}

	switch cfg.Events.Sink {
	case config.SinkRedis:
		a.publisher = events.NewRedisStreamPublisher(a.redis, cfg.Events.Stream, cfg.Events.MaxLen, logger)
	case config.SinkMQTT:
		p, err := events.NewMQTTPublisher(cfg.MQTT, logger)
		if err != nil {
			return nil, err
		}
		a.publisher = p
	default:
		a.publisher = events.Noop{}
	}

	a.predictor = prediction.NewClient(cfg.Prediction.BaseURL, cfg.Prediction.Timeout, cfg.Prediction.MinPredictions(), logger)

	a.profileService = service.NewProfileService(a.profiles, logger)
	a.insightService = service.NewInsightService(service.InsightDeps{
		Profiles:  a.profiles,
		Insights:  a.insights,
		Predictor: a.predictor,
		Journal:   a.journal,
		Publisher: a.publisher,
		Metrics:   a.metrics,
		Logger:    logger,
	})

	logger.Info("Dependencies ready",
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("auth_mode", cfg.Auth.Mode),
		zap.String("model_variant", cfg.Prediction.Variant),
		zap.Bool("journal", cfg.Journal.Enabled),
		zap.String("events_sink", cfg.Events.Sink),
	)
	return a, nil
}

func needsSupabase(cfg *config.Config) bool {
	return cfg.Store.Backend == config.BackendSupabase || cfg.Auth.Mode == config.AuthModeSupabase
}

// Close 释放连接；可重复调用
func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("Failed to close event publisher", zap.Error(err))
		}
		a.publisher = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}
