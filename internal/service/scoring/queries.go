package scoring

import (
	"fmt"

	"github.com/davidleathers/insurance-fraud-backend/internal/domain/claim"
)

const queryClaimData = `
MATCH (c:Claimant)-[:FILED]->(cl:Claim {claim_id: $claim_id})
RETURN
    cl.claim_number as claim_number,
    cl.total_claim_amount as total_amount,
    cl.property_damage_amount as property_damage,
    cl.bodily_injury_amount as bodily_injury,
    cl.accident_date as accident_date,
    cl.report_date as report_date,
    cl.accident_type as accident_type,
    cl.injury_type as injury_type`

const queryWitnessCredibility = `
MATCH (cl:Claim {claim_id: $claim_id})<-[:WITNESSED]-(w:Witness)
WITH w, count{(w)-[:WITNESSED]->(:Claim)} as witness_count
RETURN w.witness_id as witness_id, witness_count
ORDER BY witness_count DESC
LIMIT 1`

const queryLocationRisk = `
MATCH (cl:Claim {claim_id: $claim_id})-[:OCCURRED_AT]->(l:AccidentLocation)
WITH l, count{(l)<-[:OCCURRED_AT]-(:Claim)} as location_count
RETURN location_count`

const queryRingMembership = `
MATCH (c:Claimant)-[:FILED]->(cl:Claim {claim_id: $claim_id})
OPTIONAL MATCH (c)-[:MEMBER_OF]->(r:FraudRing)
RETURN
    count(DISTINCT r) as ring_count,
    collect(r.confidence_score) as confidence_scores`

const queryRepeatEntities = `
MATCH (c:Claimant)-[:FILED]->(cl:Claim {claim_id: $claim_id})
MATCH (c)-[:FILED]->(other_cl:Claim)
WHERE other_cl.claim_id <> cl.claim_id
OPTIONAL MATCH (cl)-[:REPAIRED_AT]->(b:BodyShop)<-[:REPAIRED_AT]-(other_cl)
OPTIONAL MATCH (cl)-[:TREATED_BY]->(m:MedicalProvider)<-[:TREATED_BY]-(other_cl)
OPTIONAL MATCH (cl)-[:REPRESENTED_BY]->(a:Attorney)<-[:REPRESENTED_BY]-(other_cl)
RETURN
    count(DISTINCT b) as same_body_shops,
    count(DISTINCT m) as same_medical_providers,
    count(DISTINCT a) as same_attorneys,
    count(DISTINCT other_cl) as other_claim_count`

const queryVehicleHistory = `
MATCH (cl:Claim {claim_id: $claim_id})-[:INVOLVES_VEHICLE]->(v:Vehicle)
WITH v, count{(v)<-[:INVOLVES_VEHICLE]-(:Claim)} as accident_count
RETURN accident_count`

const queryClaimantRisk = `
MATCH (c:Claimant {claimant_id: $claimant_id})-[:FILED]->(cl:Claim)
OPTIONAL MATCH (c)-[:MEMBER_OF]->(r:FraudRing)
WITH c,
     count(cl) as claim_count,
     sum(cl.total_claim_amount) as total_claimed,
     avg(cl.risk_score) as avg_claim_risk,
     collect(DISTINCT r.ring_id) as rings
RETURN
    c.name as name,
    claim_count,
    total_claimed,
    avg_claim_risk,
    rings`

const queryVehicleRisk = `
MATCH (v:Vehicle {vehicle_id: $vehicle_id})<-[:INVOLVES_VEHICLE]-(cl:Claim)
MATCH (c:Claimant)-[:FILED]->(cl)
WITH v,
     count(cl) as accident_count,
     count(DISTINCT c) as unique_claimants,
     sum(cl.total_claim_amount) as total_damage,
     avg(cl.risk_score) as avg_risk
RETURN
    v.make + ' ' + v.model + ' ' + v.year as vehicle_info,
    v.vin as vin,
    accident_count,
    unique_claimants,
    total_damage,
    avg_risk`

const queryPersistScore = `
MATCH (cl:Claim {claim_id: $claim_id})
SET cl.risk_score = $risk_score,
    cl.risk_level = $risk_level,
    cl.thresholds_version = $thresholds_version,
    cl.scored_at = datetime()
RETURN cl.claim_id as claim_id`

// claimEntityRiskQuery scores the entity of the given type attached to
// a claim. Relationship and label come from the typed enum, never from
// request input.
func claimEntityRiskQuery(entityType claim.EntityType) string {
	rel, _, _ := entityType.Relationship()
	return fmt.Sprintf(`
MATCH (cl:Claim {claim_id: $claim_id})-[:%[1]s]->(e:%[2]s)
OPTIONAL MATCH (e)<-[:%[1]s]-(other_cl:Claim)
OPTIONAL MATCH (c:Claimant)-[:FILED]->(other_cl)
OPTIONAL MATCH (c)-[:MEMBER_OF]->(r:FraudRing)
WITH e,
     count(DISTINCT other_cl) as entity_claim_count,
     avg(other_cl.risk_score) as avg_risk,
     count(DISTINCT r) as ring_count
RETURN entity_claim_count, avg_risk, ring_count`, rel, entityType)
}

// entityRiskQuery aggregates an entity's book of claims for standalone
// entity scoring.
func entityRiskQuery(entityType claim.EntityType) string {
	rel, idField, _ := entityType.Relationship()
	return fmt.Sprintf(`
MATCH (e:%[1]s {%[2]s: $entity_id})
MATCH (cl:Claim)-[:%[3]s]->(e)
MATCH (c:Claimant)-[:FILED]->(cl)
OPTIONAL MATCH (c)-[:MEMBER_OF]->(r:FraudRing)
WITH e,
     count(cl) as claim_count,
     count(DISTINCT c) as unique_claimants,
     sum(cl.total_claim_amount) as total_amount,
     avg(cl.risk_score) as avg_risk,
     count(DISTINCT r) as ring_count
RETURN
    e.name as name,
    claim_count,
    unique_claimants,
    total_amount,
    avg_risk,
    ring_count`, entityType, idField, rel)
}
