package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"go.uber.org/zap"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/telemetry"
)

// neo4jStore implements Store over the Bolt protocol
type neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	breaker  *circuitBreaker
	logger   *zap.Logger
}

// NewStore connects to Neo4j and verifies connectivity before
// returning.
func NewStore(ctx context.Context, cfg *config.GraphConfig, logger *zap.Logger) (Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("graph config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4jconfig.Config) {
			c.MaxConnectionPoolSize = cfg.MaxConnectionPool
			c.SocketConnectTimeout = cfg.ConnectionTimeout
			c.MaxTransactionRetryTime = cfg.MaxTransactionRetry
		},
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(pingCtx); err != nil {
		return nil, fmt.Errorf("neo4j connection failed: %w", err)
	}

	logger.Info("graph store initialized",
		zap.String("uri", cfg.URI),
		zap.String("database", cfg.Database),
		zap.Int("pool_size", cfg.MaxConnectionPool))

	return &neo4jStore{
		driver:   driver,
		database: cfg.Database,
		breaker:  newCircuitBreaker(cfg.CircuitBreakerTrips, cfg.CircuitBreakerReset),
		logger:   logger,
	}, nil
}

func (s *neo4jStore) Query(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	if err := s.breaker.Allow(); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartGraphSpan(ctx, "read")
	defer span.End()

	start := time.Now()
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]Record, len(records))
		for i, rec := range records {
			out[i] = Record(rec.AsMap())
		}
		return out, nil
	})
	queryDuration.WithLabelValues("read").Observe(time.Since(start).Seconds())

	if err != nil {
		s.breaker.RecordFailure()
		queryErrors.WithLabelValues("read").Inc()
		telemetry.WithSpanError(span, err)
		s.logger.Error("graph read failed", zap.Error(err))
		return nil, errors.NewExternalError("graph", "graph read failed").WithCause(err)
	}
	s.breaker.RecordSuccess()

	return rows.([]Record), nil
}

func (s *neo4jStore) Write(ctx context.Context, query string, params map[string]any) (Record, error) {
	var out Record
	err := s.WriteTx(ctx, func(tx Tx) error {
		rec, err := tx.Write(query, params)
		out = rec
		return err
	})
	return out, err
}

func (s *neo4jStore) WriteTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := s.breaker.Allow(); err != nil {
		return err
	}

	ctx, span := telemetry.StartGraphSpan(ctx, "write")
	defer span.End()

	start := time.Now()
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&managedTx{ctx: ctx, tx: tx})
	})
	queryDuration.WithLabelValues("write").Observe(time.Since(start).Seconds())

	if err != nil {
		s.breaker.RecordFailure()
		queryErrors.WithLabelValues("write").Inc()
		telemetry.WithSpanError(span, err)
		s.logger.Error("graph write failed", zap.Error(err))
		if _, ok := err.(*errors.AppError); ok {
			return err
		}
		return errors.NewExternalError("graph", "graph write failed").WithCause(err)
	}
	s.breaker.RecordSuccess()

	return nil
}

func (s *neo4jStore) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return errors.NewExternalError("graph", "graph unreachable").WithCause(err)
	}
	return nil
}

func (s *neo4jStore) Close(ctx context.Context) error {
	if err := s.driver.Close(ctx); err != nil {
		return fmt.Errorf("closing neo4j driver: %w", err)
	}
	s.logger.Info("graph store closed")
	return nil
}

// managedTx adapts a driver transaction to the Tx interface
type managedTx struct {
	ctx context.Context
	tx  neo4j.ManagedTransaction
}

func (t *managedTx) Write(query string, params map[string]any) (Record, error) {
	result, err := t.tx.Run(t.ctx, query, params)
	if err != nil {
		return nil, err
	}
	records, err := result.Collect(t.ctx)
	if err != nil {
		return nil, err
	}
	// Writes without a RETURN clause produce no records
	if len(records) == 0 {
		return nil, nil
	}
	return Record(records[0].AsMap()), nil
}
