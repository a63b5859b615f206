package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server       ServerConfig       `koanf:"server"`
	Graph        GraphConfig        `koanf:"graph"`
	Redis        RedisConfig        `koanf:"redis"`
	FeatureStore FeatureStoreConfig `koanf:"feature_store"`
	Security     SecurityConfig     `koanf:"security"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
	Detection    DetectionConfig    `koanf:"detection"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// GraphConfig configures the Neo4j connection
type GraphConfig struct {
	URI                  string        `koanf:"uri" validate:"required"`
	Username             string        `koanf:"username"`
	Password             string        `koanf:"password"`
	Database             string        `koanf:"database"`
	MaxConnectionPool    int           `koanf:"max_connection_pool"`
	ConnectionTimeout    time.Duration `koanf:"connection_timeout"`
	MaxTransactionRetry  time.Duration `koanf:"max_transaction_retry"`
	CircuitBreakerTrips  int           `koanf:"circuit_breaker_trips"`
	CircuitBreakerReset  time.Duration `koanf:"circuit_breaker_reset"`
}

type RedisConfig struct {
	URL          string        `koanf:"url"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	ScoreTTL     time.Duration `koanf:"score_ttl"`
}

// FeatureStoreConfig configures the Postgres feature snapshot store
type FeatureStoreConfig struct {
	URL             string        `koanf:"url"`
	MaxConns        int           `koanf:"max_conns"`
	MinConns        int           `koanf:"min_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type SecurityConfig struct {
	JWTSecret   string          `koanf:"jwt_secret"`
	TokenExpiry time.Duration   `koanf:"token_expiry"`
	RateLimit   RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `koanf:"requests_per_second"`
	BurstSize         int `koanf:"burst_size"`
}

type TelemetryConfig struct {
	Enabled       bool          `koanf:"enabled"`
	OTLPEndpoint  string        `koanf:"otlp_endpoint"`
	SamplingRate  float64       `koanf:"sampling_rate"`
	ExportTimeout time.Duration `koanf:"export_timeout"`
	BatchTimeout  time.Duration `koanf:"batch_timeout"`
}

// DetectionConfig carries every tunable threshold used by the scoring,
// pattern and ring detection services. ThresholdsVersion travels with
// persisted scores so results remain attributable to the parameter set
// that produced them.
type DetectionConfig struct {
	ThresholdsVersion string         `koanf:"thresholds_version" validate:"required"`
	Scoring           ScoringConfig  `koanf:"scoring"`
	Patterns          PatternsConfig `koanf:"patterns"`
	Rings             RingsConfig    `koanf:"rings"`
	Alerts            AlertsConfig   `koanf:"alerts"`
	Features          FeaturesConfig `koanf:"features"`
}

// ScoringConfig holds the risk factor weights and level bands. Weights
// are keyed by factor name and must sum to 1.0.
type ScoringConfig struct {
	Weights               map[string]float64 `koanf:"weights"`
	HighRiskThreshold     float64            `koanf:"high_risk_threshold"`
	MediumRiskThreshold   float64            `koanf:"medium_risk_threshold"`
	DefaultRingConfidence float64            `koanf:"default_ring_confidence"`
	TopFactorCount        int                `koanf:"top_factor_count"`
}

type PatternsConfig struct {
	StagedMinClaimAmount      float64 `koanf:"staged_min_claim_amount"`
	StagedMaxDaysToReport     int     `koanf:"staged_max_days_to_report"`
	StagedMinWitnessRepeats   int     `koanf:"staged_min_witness_repeats"`
	BodyShopMinClaims         int     `koanf:"body_shop_min_claims"`
	BodyShopMinAvgRisk        float64 `koanf:"body_shop_min_avg_risk"`
	BodyShopMinRepeaters      int     `koanf:"body_shop_min_repeaters"`
	MedicalMinClaims          int     `koanf:"medical_min_claims"`
	MedicalMinAvgInjury       float64 `koanf:"medical_min_avg_injury"`
	MedicalMinRepeaters       int     `koanf:"medical_min_repeaters"`
	AttorneyMinCases          int     `koanf:"attorney_min_cases"`
	AttorneyMinAvgRisk        float64 `koanf:"attorney_min_avg_risk"`
	PhantomMinInjury          float64 `koanf:"phantom_min_injury"`
	PhantomMaxPropertyDamage  float64 `koanf:"phantom_max_property_damage"`
	TowMinTows                int     `koanf:"tow_min_tows"`
	TowMinConcentration       float64 `koanf:"tow_min_concentration"`
	HotspotMinAccidents       int     `koanf:"hotspot_min_accidents"`
	WitnessMinAppearances     int     `koanf:"witness_min_appearances"`
	VehicleMinAccidents       int     `koanf:"vehicle_min_accidents"`
	VehicleMinClaimants       int     `koanf:"vehicle_min_claimants"`
	HighSeverityLimit         int     `koanf:"high_severity_limit"`
	DefaultLimit              int     `koanf:"default_limit"`
}

type RingsConfig struct {
	MinRingMembers        int           `koanf:"min_ring_members"`
	MinSharedConnections  int           `koanf:"min_shared_connections"`
	MinConfidence         float64       `koanf:"min_confidence"`
	LocationWindowDays    int           `koanf:"location_window_days"`
	MinMemberAvgRisk      float64       `koanf:"min_member_avg_risk"`
	PassLimit             int           `koanf:"pass_limit"`
	MergeOverlapThreshold float64       `koanf:"merge_overlap_threshold"`
	PersistTimeout        time.Duration `koanf:"persist_timeout"`
}

type AlertsConfig struct {
	CriticalRiskScore     float64 `koanf:"critical_risk_score"`
	HighRiskScore         float64 `koanf:"high_risk_score"`
	MediumRiskScore       float64 `koanf:"medium_risk_score"`
	HighClaimAmount       float64 `koanf:"high_claim_amount"`
	CriticalClaimAmount   float64 `koanf:"critical_claim_amount"`
	RepeatClaimantClaims  int     `koanf:"repeat_claimant_claims"`
	ProfessionalWitness   int     `koanf:"professional_witness"`
	HotspotClaims         int     `koanf:"hotspot_claims"`
	MinPatternConfidence  float64 `koanf:"min_pattern_confidence"`
}

type FeaturesConfig struct {
	BulkLimit        int `koanf:"bulk_limit"`
	HotspotThreshold int `koanf:"hotspot_threshold"`
}

// Defaults returns the canonical configuration. Detection thresholds
// here are the authoritative values; config files and environment
// variables override them per deployment.
func Defaults() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Graph: GraphConfig{
			URI:                 "bolt://localhost:7687",
			Username:            "neo4j",
			Database:            "neo4j",
			MaxConnectionPool:   50,
			ConnectionTimeout:   10 * time.Second,
			MaxTransactionRetry: 30 * time.Second,
			CircuitBreakerTrips: 5,
			CircuitBreakerReset: 30 * time.Second,
		},
		Redis: RedisConfig{
			URL:          "localhost:6379",
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			ScoreTTL:     15 * time.Minute,
		},
		FeatureStore: FeatureStoreConfig{
			MaxConns:        10,
			MinConns:        2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Security: SecurityConfig{
			TokenExpiry: 24 * time.Hour,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			OTLPEndpoint:  "localhost:4317",
			SamplingRate:  1.0,
			ExportTimeout: 30 * time.Second,
			BatchTimeout:  5 * time.Second,
		},
		Detection: DetectionConfig{
			ThresholdsVersion: "2025.1",
			Scoring: ScoringConfig{
				Weights: map[string]float64{
					"claim_amount":          0.15,
					"reporting_delay":       0.12,
					"injury_severity":       0.10,
					"witness_suspicious":    0.08,
					"location_hotspot":      0.10,
					"body_shop_risk":        0.10,
					"medical_provider_risk": 0.10,
					"attorney_risk":         0.08,
					"tow_company_risk":      0.05,
					"fraud_ring_member":     0.20,
					"repeat_entities":       0.12,
					"vehicle_history":       0.10,
				},
				HighRiskThreshold:     70,
				MediumRiskThreshold:   40,
				DefaultRingConfidence: 0.7,
				TopFactorCount:        5,
			},
			Patterns: PatternsConfig{
				StagedMinClaimAmount:     25000,
				StagedMaxDaysToReport:    0,
				StagedMinWitnessRepeats:  2,
				BodyShopMinClaims:        15,
				BodyShopMinAvgRisk:       60,
				BodyShopMinRepeaters:     3,
				MedicalMinClaims:         20,
				MedicalMinAvgInjury:      15000,
				MedicalMinRepeaters:      4,
				AttorneyMinCases:         25,
				AttorneyMinAvgRisk:       65,
				PhantomMinInjury:         10000,
				PhantomMaxPropertyDamage: 5000,
				TowMinTows:               15,
				TowMinConcentration:      0.7,
				HotspotMinAccidents:      5,
				WitnessMinAppearances:    3,
				VehicleMinAccidents:      3,
				VehicleMinClaimants:      2,
				HighSeverityLimit:        50,
				DefaultLimit:             30,
			},
			Rings: RingsConfig{
				MinRingMembers:        3,
				MinSharedConnections:  2,
				MinConfidence:         0.6,
				LocationWindowDays:    30,
				MinMemberAvgRisk:      50,
				PassLimit:             100,
				MergeOverlapThreshold: 0.5,
				PersistTimeout:        30 * time.Second,
			},
			Alerts: AlertsConfig{
				CriticalRiskScore:    85,
				HighRiskScore:        70,
				MediumRiskScore:      50,
				HighClaimAmount:      75000,
				CriticalClaimAmount:  150000,
				RepeatClaimantClaims: 3,
				ProfessionalWitness:  3,
				HotspotClaims:        5,
				MinPatternConfidence: 0.7,
			},
			Features: FeaturesConfig{
				BulkLimit:        1000,
				HotspotThreshold: 5,
			},
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file
// and FRAUD_-prefixed environment variables, in that precedence order.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !strings.Contains(err.Error(), "no such file") {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("FRAUD_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "FRAUD_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromYAML parses configuration from raw YAML on top of defaults.
// Used by tests and tooling that assemble config in memory.
func LoadFromYAML(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags plus the cross-field detection rules that
// tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// The weight table is deliberately over-provisioned (the defaults
	// sum to 1.30); the claim score is capped at 100 after weighting,
	// so only the per-weight range is enforced.
	for name, w := range c.Detection.Scoring.Weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("invalid config: scoring weight %s is %.3f, want [0,1]", name, w)
		}
	}

	if c.Detection.Rings.MinRingMembers < 2 {
		return fmt.Errorf("invalid config: rings.min_ring_members must be at least 2")
	}
	if c.Detection.Rings.MinConfidence < 0 || c.Detection.Rings.MinConfidence > 1 {
		return fmt.Errorf("invalid config: rings.min_confidence must be within [0,1]")
	}
	if c.Detection.Scoring.HighRiskThreshold <= c.Detection.Scoring.MediumRiskThreshold {
		return fmt.Errorf("invalid config: high risk threshold must exceed medium risk threshold")
	}

	return nil
}
