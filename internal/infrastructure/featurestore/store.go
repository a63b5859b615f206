package featurestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/errors"
	"github.com/davidleathers/insurance-fraud-backend/internal/infrastructure/config"
)

// Snapshot is one exported feature vector for a claim, tagged with the
// threshold version that was active when it was computed.
type Snapshot struct {
	ClaimID           string         `json:"claim_id"`
	ClaimNumber       string         `json:"claim_number"`
	ThresholdsVersion string         `json:"thresholds_version"`
	RiskScore         float64        `json:"risk_score"`
	Features          map[string]any `json:"features"`
	CreatedAt         time.Time      `json:"created_at"`
}

// Store persists feature snapshots to Postgres for model training and
// offline analysis.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New connects to the feature store database.
func New(ctx context.Context, cfg *config.FeatureStoreConfig, logger *zap.Logger) (*Store, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("feature store config is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing feature store url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating feature store pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("feature store connection failed: %w", err)
	}

	logger.Info("feature store initialized", zap.Int("max_conns", cfg.MaxConns))

	return &Store{pool: pool, logger: logger}, nil
}

// SaveSnapshots bulk-inserts snapshots using the COPY protocol.
func (s *Store) SaveSnapshots(ctx context.Context, snapshots []Snapshot) (int64, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(snapshots))
	for _, snap := range snapshots {
		features, err := json.Marshal(snap.Features)
		if err != nil {
			return 0, fmt.Errorf("marshaling features for %s: %w", snap.ClaimID, err)
		}
		rows = append(rows, []any{
			snap.ClaimID,
			snap.ClaimNumber,
			snap.ThresholdsVersion,
			snap.RiskScore,
			features,
		})
	}

	copied, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"feature_snapshots"},
		[]string{"claim_id", "claim_number", "thresholds_version", "risk_score", "features"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		s.logger.Error("feature snapshot copy failed",
			zap.Int("rows", len(rows)),
			zap.Error(err))
		return 0, errors.NewExternalError("feature_store", "bulk snapshot insert failed").WithCause(err)
	}

	s.logger.Info("feature snapshots saved", zap.Int64("rows", copied))
	return copied, nil
}

// LatestSnapshot returns the most recent snapshot for a claim.
func (s *Store) LatestSnapshot(ctx context.Context, claimID string) (*Snapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT claim_id, claim_number, thresholds_version, risk_score, features, created_at
		FROM feature_snapshots
		WHERE claim_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, claimID)

	var snap Snapshot
	var features []byte
	if err := row.Scan(&snap.ClaimID, &snap.ClaimNumber, &snap.ThresholdsVersion, &snap.RiskScore, &features, &snap.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrClaimNotFound
		}
		return nil, errors.NewExternalError("feature_store", "snapshot lookup failed").WithCause(err)
	}
	if err := json.Unmarshal(features, &snap.Features); err != nil {
		return nil, fmt.Errorf("unmarshaling features for %s: %w", claimID, err)
	}

	return &snap, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
