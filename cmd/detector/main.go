package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

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

// queryUnscoredClaims picks up claims never scored plus claims scored
// under an older thresholds version, newest accidents first.
const queryUnscoredClaims = `
MATCH (cl:Claim)
WHERE cl.risk_score IS NULL OR cl.thresholds_version <> $version
RETURN cl.claim_id as claim_id
ORDER BY cl.accident_date DESC
LIMIT $limit`

type options struct {
	configPath string
	limit      int
	workers    int
	rateLimit  int
	export     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to configuration file")
	flag.IntVar(&opts.limit, "limit", 10000, "maximum claims to score in one run")
	flag.IntVar(&opts.workers, "workers", 8, "concurrent scoring workers")
	flag.IntVar(&opts.rateLimit, "rate", 50, "maximum claims scored per second")
	flag.BoolVar(&opts.export, "export", false, "export bulk features to the feature store after detection")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("fraud-detector %s\n", version)
		return
	}

	if err := run(opts); err != nil {
		log.Fatalf("fraud-detector: %v", err)
	}
}

func run(opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("setup infrastructure logger: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	provider, err := telemetry.InitializeOpenTelemetry(ctx, &telemetry.Config{
		ServiceName:    "fraud-detector",
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
	defer provider.Shutdown(context.Background()) //nolint:errcheck

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
	}

	var featureSink features.FeatureSink
	if cfg.FeatureStore.URL != "" {
		fs, err := featurestore.New(ctx, &cfg.FeatureStore, zapLogger)
		if err != nil {
			return fmt.Errorf("connect feature store: %w", err)
		}
		defer fs.Close()
		featureSink = fs
	}

	scorer := scoring.NewService(store, scoreCache, cfg.Redis.ScoreTTL, &cfg.Detection, logger)
	patternSvc := patterns.NewService(store, &cfg.Detection, logger)
	ringSvc := rings.NewService(store, &cfg.Detection, logger)
	alertSvc := alerts.NewService(store, &cfg.Detection, logger)
	featureSvc := features.NewService(store, featureSink, &cfg.Detection, logger)

	logger.Info("detection run starting",
		"version", version,
		"thresholds_version", cfg.Detection.ThresholdsVersion,
		"limit", opts.limit,
		"workers", opts.workers,
	)
	start := time.Now()

	scored, err := scoreClaims(ctx, store, scorer, logger, opts, cfg.Detection.ThresholdsVersion)
	if err != nil {
		return fmt.Errorf("scoring sweep: %w", err)
	}
	logger.Info("scoring sweep complete", "claims_scored", scored)

	report := patternSvc.DetectAll(ctx)
	logger.Info("pattern sweep complete",
		"staged_accidents", len(report.StagedAccidents),
		"body_shops", len(report.BodyShopFraud),
		"medical_mills", len(report.MedicalMills),
		"tow_kickbacks", len(report.TowKickbacks),
	)

	detected, err := ringSvc.DetectRings(ctx)
	if err != nil {
		return fmt.Errorf("ring detection: %w", err)
	}
	persisted, err := ringSvc.PersistRings(ctx, detected)
	if err != nil {
		return fmt.Errorf("persist rings: %w", err)
	}
	logger.Info("ring detection complete", "rings_found", len(detected), "rings_persisted", persisted)

	monitorAlerts := alertSvc.RunAllMonitors(ctx)
	patternAlerts := alertSvc.FromPatterns(ctx, report)
	ringAlerts := alertSvc.FromRings(ctx, detected)

	monitorCounts := make(map[string]int, len(monitorAlerts))
	total := len(patternAlerts) + len(ringAlerts)
	for monitor, ids := range monitorAlerts {
		monitorCounts[monitor] = len(ids)
		total += len(ids)
	}
	logger.Info("alert sweep complete",
		"monitor_alerts", monitorCounts,
		"pattern_alerts", len(patternAlerts),
		"ring_alerts", len(ringAlerts),
		"total", total,
	)

	if opts.export {
		rows, err := featureSvc.ExportBulkFeatures(ctx, cfg.Detection.Features.BulkLimit)
		if err != nil {
			return fmt.Errorf("export features: %w", err)
		}
		logger.Info("feature export complete", "rows_written", rows)
	}

	logger.Info("detection run finished", "elapsed", time.Since(start).String())
	return nil
}

// scoreClaims fans claim scoring out over a bounded worker pool. A
// shared limiter paces the pool so the sweep cannot starve interactive
// queries on the graph.
func scoreClaims(ctx context.Context, store graph.Store, scorer *scoring.Service, logger *slog.Logger, opts options, thresholdsVersion string) (int, error) {
	records, err := store.Query(ctx, queryUnscoredClaims, map[string]any{
		"version": thresholdsVersion,
		"limit":   opts.limit,
	})
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.rateLimit), opts.workers)
	claimIDs := make(chan string)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(claimIDs)
		for _, rec := range records {
			select {
			case claimIDs <- rec.String("claim_id"):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var scored atomicCounter
	for i := 0; i < opts.workers; i++ {
		g.Go(func() error {
			for claimID := range claimIDs {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
				result, err := scorer.ScoreClaim(ctx, claimID)
				if err != nil {
					logger.Warn("failed to score claim", "claim_id", claimID, "error", err)
					continue
				}
				if err := scorer.PersistClaimScore(ctx, result); err != nil {
					logger.Warn("failed to persist score", "claim_id", claimID, "error", err)
					continue
				}
				scored.inc()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return scored.value(), err
	}
	return scored.value(), nil
}

type atomicCounter struct {
	n atomic.Int64
}

func (c *atomicCounter) inc() { c.n.Add(1) }

func (c *atomicCounter) value() int { return int(c.n.Load()) }
