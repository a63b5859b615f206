package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/davidleathers/insurance-fraud-backend/internal/api/rest"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/cache"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/featurestore"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/alerts"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/features"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/patterns"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/rings"
	"github.com/davidleathers/insurance-fraud-backend/internal/service/scoring"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fraud-api %s\n", version)
		return
	}

	if err := run(*configPath); err != nil {
		log.Fatalf("fraud-api: %v", err)
	}
}

func run(configPath string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}

	// Infrastructure adapters log through zap; services and the API
	// surface use the traced slog logger.
	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("setup infrastructure logger: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	provider, err := telemetry.InitializeOpenTelemetry(ctx, &telemetry.Config{
		ServiceName:    "fraud-api",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		ExportTimeout:  cfg.Telemetry.ExportTimeout,
		BatchTimeout:   cfg.Telemetry.BatchTimeout,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	store, err := graph.NewStore(ctx, &cfg.Graph, zapLogger)
	if err != nil {
		return fmt.Errorf("connect graph: %w", err)
	}
	defer store.Close(ctx)

	var scoreCache scoring.ScoreCache
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(&cfg.Redis, zapLogger)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisCache.Close()
		scoreCache = redisCache
	} else {
		logger.Warn("redis not configured, score caching disabled")
	}

	var featureSink features.FeatureSink
	if cfg.FeatureStore.URL != "" {
		fs, err := featurestore.New(ctx, &cfg.FeatureStore, zapLogger)
		if err != nil {
			return fmt.Errorf("connect feature store: %w", err)
		}
		defer fs.Close()
		featureSink = fs
	} else {
		logger.Warn("feature store not configured, feature export disabled")
	}

	handler := rest.NewHandler(&rest.Services{
		Scoring:  scoring.NewService(store, scoreCache, cfg.Redis.ScoreTTL, &cfg.Detection, logger),
		Patterns: patterns.NewService(store, &cfg.Detection, logger),
		Rings:    rings.NewService(store, &cfg.Detection, logger),
		Alerts:   alerts.NewService(store, &cfg.Detection, logger),
		Features: features.NewService(store, featureSink, &cfg.Detection, logger),
	})

	logger.Info("starting insurance fraud detection API",
		"version", version,
		"environment", cfg.Environment,
		"thresholds_version", cfg.Detection.ThresholdsVersion,
	)

	server := rest.NewServer(cfg, handler, store, logger)
	return server.Run(ctx)
}
