package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "2025.1", cfg.Detection.ThresholdsVersion)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "bolt://localhost:7687", cfg.Graph.URI)

	assert.Equal(t, 3, cfg.Detection.Rings.MinRingMembers)
	assert.Equal(t, 0.6, cfg.Detection.Rings.MinConfidence)
	assert.Equal(t, 30, cfg.Detection.Rings.LocationWindowDays)

	assert.Equal(t, float64(70), cfg.Detection.Scoring.HighRiskThreshold)
	assert.Equal(t, float64(40), cfg.Detection.Scoring.MediumRiskThreshold)
	assert.Equal(t, 0.20, cfg.Detection.Scoring.Weights["fraud_ring_member"])
}

func TestWeightTable(t *testing.T) {
	cfg := Defaults()
	var sum float64
	for _, w := range cfg.Detection.Scoring.Weights {
		sum += w
	}
	// The table over-provisions on purpose; scores are capped at 100.
	assert.InDelta(t, 1.30, sum, 0.0001)
	assert.Len(t, cfg.Detection.Scoring.Weights, 12)
}

func TestLoadFromYAMLOverrides(t *testing.T) {
	yaml := []byte(`
environment: production
server:
  port: 9000
graph:
  uri: bolt://graph.internal:7687
detection:
  rings:
    min_ring_members: 4
`)
	cfg, err := LoadFromYAML(yaml)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "bolt://graph.internal:7687", cfg.Graph.URI)
	assert.Equal(t, 4, cfg.Detection.Rings.MinRingMembers)

	// Untouched defaults survive
	assert.Equal(t, "2025.1", cfg.Detection.ThresholdsVersion)
	assert.Equal(t, 15*time.Minute, cfg.Redis.ScoreTTL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FRAUD_SERVER_PORT", "9443")
	t.Setenv("FRAUD_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9443, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "weight above one",
			mutate: func(c *Config) {
				c.Detection.Scoring.Weights["fraud_ring_member"] = 1.5
			},
		},
		{
			name: "negative weight",
			mutate: func(c *Config) {
				c.Detection.Scoring.Weights["claim_amount"] = -0.1
			},
		},
		{
			name: "ring members below two",
			mutate: func(c *Config) {
				c.Detection.Rings.MinRingMembers = 1
			},
		},
		{
			name: "confidence out of range",
			mutate: func(c *Config) {
				c.Detection.Rings.MinConfidence = 1.5
			},
		},
		{
			name: "inverted risk bands",
			mutate: func(c *Config) {
				c.Detection.Scoring.HighRiskThreshold = 30
			},
		},
		{
			name: "missing graph uri",
			mutate: func(c *Config) {
				c.Graph.URI = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
