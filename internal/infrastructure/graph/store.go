package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/shopspring/decimal"
)

// Store is the read/write surface over the claim graph. Detection
// services depend on this interface so tests can substitute mocks and
// alternative backends stay possible.
type Store interface {
	// Query runs a read query and returns all result rows.
	Query(ctx context.Context, query string, params map[string]any) ([]Record, error)
	// Write runs a single write query and returns the first row, if any.
	Write(ctx context.Context, query string, params map[string]any) (Record, error)
	// WriteTx runs fn inside one managed write transaction. All writes
	// issued through the transaction commit or roll back together.
	WriteTx(ctx context.Context, fn func(tx Tx) error) error
	// Ping verifies connectivity.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Tx issues writes within a WriteTx callback.
type Tx interface {
	Write(query string, params map[string]any) (Record, error)
}

// Record is one result row keyed by return alias. Getters return the
// zero value when the key is missing or null, which lets callers treat
// partial graph data as absent rather than failing.
type Record map[string]any

func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	}
	return ""
}

func (r Record) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func (r Record) Float64(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func (r Record) Bool(key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

// Decimal reads a monetary amount. Neo4j returns numerics as int64 or
// float64 depending on how they were written.
func (r Record) Decimal(key string) decimal.Decimal {
	switch v := r[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int64:
		return decimal.NewFromInt(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case string:
		d, err := decimal.NewFromString(v)
		if err == nil {
			return d
		}
	}
	return decimal.Zero
}

// Date reads a date-valued column. Handles driver date types, full
// timestamps and ISO strings.
func (r Record) Date(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case dbtype.Date:
		return v.Time()
	case dbtype.LocalDateTime:
		return v.Time()
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func (r Record) StringSlice(key string) []string {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Float64Slice reads a numeric list column, skipping null entries as
// produced by collect() over optional matches.
func (r Record) Float64Slice(key string) []float64 {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case float64:
			out = append(out, v)
		case int64:
			out = append(out, float64(v))
		}
	}
	return out
}

// Records reads a column of nested maps, as produced by collect() of
// map projections.
func (r Record) Records(key string) []Record {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}
