package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/graph"
)

// The feature store schema is versioned with golang-migrate; the graph
// side has no numbered migrations, only idempotent constraint and index
// setup, so "graph" applies it directly.
func main() {
	var (
		configPath    = flag.String("config", "", "path to configuration file")
		migrationsDir = flag.String("dir", "migrations", "directory containing SQL migrations")
		action        = flag.String("action", "up", "action: up, down, version, force, graph")
		steps         = flag.Int("steps", 0, "number of migrations for down (0 = one)")
		forceVersion  = flag.Int("force-version", -1, "version to force (for force action)")
	)
	flag.Parse()

	if err := run(*configPath, *migrationsDir, *action, *steps, *forceVersion); err != nil {
		log.Fatalf("fraud-migrate: %v", err)
	}
}

func run(configPath, migrationsDir, action string, steps, forceVersion int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if action == "graph" {
		return ensureGraphSchema(cfg)
	}

	if cfg.FeatureStore.URL == "" {
		return errors.New("feature store URL is not configured")
	}

	m, err := migrate.New("file://"+migrationsDir, cfg.FeatureStore.URL)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.Printf("close migration source: %v", srcErr)
		}
		if dbErr != nil {
			log.Printf("close migration database: %v", dbErr)
		}
	}()

	switch action {
	case "up":
		err = m.Up()
	case "down":
		if steps <= 0 {
			steps = 1
		}
		err = m.Steps(-steps)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil {
			return fmt.Errorf("read version: %w", verr)
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	case "force":
		if forceVersion < 0 {
			return errors.New("force requires -force-version")
		}
		err = m.Force(forceVersion)
	default:
		return fmt.Errorf("unknown action %q", action)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("no pending migrations")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	fmt.Printf("%s complete\n", action)
	return nil
}

func ensureGraphSchema(cfg *config.Config) error {
	ctx := context.Background()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	store, err := graph.NewStore(ctx, &cfg.Graph, zapLogger)
	if err != nil {
		return fmt.Errorf("connect graph: %w", err)
	}
	defer store.Close(ctx)

	if err := graph.EnsureSchema(ctx, store); err != nil {
		return fmt.Errorf("ensure graph schema: %w", err)
	}
	fmt.Println("graph schema ensured")
	return nil
}
