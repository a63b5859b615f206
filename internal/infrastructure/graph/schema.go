package graph

import (
	"context"
	"fmt"
)

var constraints = []string{
	"CREATE CONSTRAINT claim_id IF NOT EXISTS FOR (c:Claim) REQUIRE c.claim_id IS UNIQUE",
	"CREATE CONSTRAINT claimant_id IF NOT EXISTS FOR (c:Claimant) REQUIRE c.claimant_id IS UNIQUE",
	"CREATE CONSTRAINT vehicle_id IF NOT EXISTS FOR (v:Vehicle) REQUIRE v.vehicle_id IS UNIQUE",
	"CREATE CONSTRAINT body_shop_id IF NOT EXISTS FOR (b:BodyShop) REQUIRE b.body_shop_id IS UNIQUE",
	"CREATE CONSTRAINT provider_id IF NOT EXISTS FOR (m:MedicalProvider) REQUIRE m.provider_id IS UNIQUE",
	"CREATE CONSTRAINT attorney_id IF NOT EXISTS FOR (a:Attorney) REQUIRE a.attorney_id IS UNIQUE",
	"CREATE CONSTRAINT tow_company_id IF NOT EXISTS FOR (t:TowCompany) REQUIRE t.tow_company_id IS UNIQUE",
	"CREATE CONSTRAINT witness_id IF NOT EXISTS FOR (w:Witness) REQUIRE w.witness_id IS UNIQUE",
	"CREATE CONSTRAINT location_id IF NOT EXISTS FOR (l:AccidentLocation) REQUIRE l.location_id IS UNIQUE",
	"CREATE CONSTRAINT ring_id IF NOT EXISTS FOR (r:FraudRing) REQUIRE r.ring_id IS UNIQUE",
	"CREATE CONSTRAINT alert_id IF NOT EXISTS FOR (a:Alert) REQUIRE a.alert_id IS UNIQUE",
}

var indexes = []string{
	"CREATE INDEX claim_risk_score IF NOT EXISTS FOR (c:Claim) ON (c.risk_score)",
	"CREATE INDEX claim_accident_date IF NOT EXISTS FOR (c:Claim) ON (c.accident_date)",
	"CREATE INDEX alert_status IF NOT EXISTS FOR (a:Alert) ON (a.status)",
}

// EnsureSchema creates the uniqueness constraints and indexes the
// detection queries rely on. Safe to run repeatedly.
func EnsureSchema(ctx context.Context, store Store) error {
	for _, stmt := range append(append([]string{}, constraints...), indexes...) {
		if _, err := store.Write(ctx, stmt, nil); err != nil {
			return fmt.Errorf("applying schema statement: %w", err)
		}
	}
	return nil
}

// Statistics summarizes the graph contents, used by the health and
// stats endpoints.
type Statistics struct {
	NodeCounts         map[string]int64 `json:"node_counts"`
	RelationshipCounts map[string]int64 `json:"relationship_counts"`
}

const nodeCountQuery = `
MATCH (n)
RETURN labels(n)[0] as label, count(n) as count
ORDER BY count DESC`

const relationshipCountQuery = `
MATCH ()-[r]->()
RETURN type(r) as type, count(r) as count
ORDER BY count DESC`

// CollectStatistics counts nodes by label and relationships by type.
func CollectStatistics(ctx context.Context, store Store) (*Statistics, error) {
	stats := &Statistics{
		NodeCounts:         make(map[string]int64),
		RelationshipCounts: make(map[string]int64),
	}

	nodes, err := store.Query(ctx, nodeCountQuery, nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range nodes {
		stats.NodeCounts[rec.String("label")] = rec.Int64("count")
	}

	rels, err := store.Query(ctx, relationshipCountQuery, nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range rels {
		stats.RelationshipCounts[rec.String("type")] = rec.Int64("count")
	}

	return stats, nil
}
