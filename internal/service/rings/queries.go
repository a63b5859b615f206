package rings

// Signal pass queries. Each returns pairwise claimant connections that
// the union-find step folds into components.

const querySharedEntityPairs = `
MATCH (c1:Claimant)-[:FILED]->(cl1:Claim)-[:REPAIRED_AT]->(b:BodyShop)
MATCH (c2:Claimant)-[:FILED]->(cl2:Claim)-[:REPAIRED_AT]->(b)
WHERE c1.claimant_id < c2.claimant_id
WITH c1, c2, collect(DISTINCT b.body_shop_id) AS shared_body_shops
OPTIONAL MATCH (c1)-[:FILED]->(cl3:Claim)-[:TREATED_BY]->(m:MedicalProvider)
OPTIONAL MATCH (c2)-[:FILED]->(cl4:Claim)-[:TREATED_BY]->(m)
WITH c1, c2, shared_body_shops, collect(DISTINCT m.provider_id) AS shared_medical_providers
OPTIONAL MATCH (c1)-[:FILED]->(cl5:Claim)-[:REPRESENTED_BY]->(a:Attorney)
OPTIONAL MATCH (c2)-[:FILED]->(cl6:Claim)-[:REPRESENTED_BY]->(a)
WITH c1, c2, shared_body_shops, shared_medical_providers,
     collect(DISTINCT a.attorney_id) AS shared_attorneys
WITH c1, c2,
     size(shared_body_shops) + size(shared_medical_providers) + size(shared_attorneys) AS shared_count
WHERE shared_count >= $min_shared
RETURN c1.claimant_id AS claimant1_id,
       c2.claimant_id AS claimant2_id,
       shared_count
ORDER BY shared_count DESC
LIMIT $limit`

const queryAccidentPatternPairs = `
MATCH (c1:Claimant)-[:FILED]->(cl1:Claim)-[:OCCURRED_AT]->(l:AccidentLocation)
MATCH (c2:Claimant)-[:FILED]->(cl2:Claim)-[:OCCURRED_AT]->(l)
WHERE c1.claimant_id < c2.claimant_id
WITH c1, c2, l, cl1, cl2
WHERE duration.between(date(cl1.accident_date), date(cl2.accident_date)).days <= $window_days
WITH c1, c2, count(DISTINCT l) AS shared_locations
WHERE shared_locations >= 1
MATCH (c1)-[:FILED]->(cl_c1:Claim)
MATCH (c2)-[:FILED]->(cl_c2:Claim)
WITH c1, c2, shared_locations,
     avg(cl_c1.risk_score) AS c1_avg_risk,
     avg(cl_c2.risk_score) AS c2_avg_risk
WHERE c1_avg_risk >= $min_avg_risk AND c2_avg_risk >= $min_avg_risk
RETURN c1.claimant_id AS claimant1_id,
       c2.claimant_id AS claimant2_id,
       shared_locations
ORDER BY shared_locations DESC
LIMIT $limit`

const queryWitnessNetworkPairs = `
MATCH (c1:Claimant)-[:FILED]->(cl1:Claim)<-[:WITNESSED]-(w:Witness)
MATCH (c2:Claimant)-[:FILED]->(cl2:Claim)<-[:WITNESSED]-(w)
WHERE c1.claimant_id < c2.claimant_id
WITH c1, c2, collect(DISTINCT w.witness_id) AS shared_witnesses
WHERE size(shared_witnesses) >= 1
RETURN c1.claimant_id AS claimant1_id,
       c2.claimant_id AS claimant2_id,
       size(shared_witnesses) AS shared_witness_count
ORDER BY shared_witness_count DESC
LIMIT $limit`

const queryVehicleSharingPairs = `
MATCH (c1:Claimant)-[:FILED]->(cl1:Claim)-[:INVOLVES_VEHICLE]->(v:Vehicle)
MATCH (c2:Claimant)-[:FILED]->(cl2:Claim)-[:INVOLVES_VEHICLE]->(v)
WHERE c1.claimant_id < c2.claimant_id
WITH c1, c2, collect(DISTINCT v.vehicle_id) AS shared_vehicles
WHERE size(shared_vehicles) >= 1
MATCH (c1)-[:FILED]->(cl_c1:Claim)
MATCH (c2)-[:FILED]->(cl_c2:Claim)
WITH c1, c2, shared_vehicles,
     avg(cl_c1.risk_score) AS c1_avg_risk,
     avg(cl_c2.risk_score) AS c2_avg_risk
WHERE c1_avg_risk >= $min_avg_risk OR c2_avg_risk >= $min_avg_risk
RETURN c1.claimant_id AS claimant1_id,
       c2.claimant_id AS claimant2_id,
       size(shared_vehicles) AS shared_vehicle_count
ORDER BY shared_vehicle_count DESC
LIMIT $limit`

// queryRingMembers materializes a component into ring metrics.
const queryRingMembers = `
MATCH (c:Claimant)
WHERE c.claimant_id IN $claimant_ids
OPTIONAL MATCH (c)-[:FILED]->(cl:Claim)
RETURN collect(DISTINCT c.claimant_id) AS member_ids,
       collect(DISTINCT c.name) AS member_names,
       count(DISTINCT cl) AS total_claims,
       sum(cl.total_claim_amount) AS total_amount,
       avg(cl.risk_score) AS avg_risk`

// queryMergeRing upserts the ring node keyed by ring_id so that
// re-running persistence is idempotent.
const queryMergeRing = `
MERGE (r:FraudRing {ring_id: $ring_id})
SET r.ring_type = $ring_type,
    r.pattern_type = $pattern_type,
    r.status = $status,
    r.confidence_score = $confidence_score,
    r.member_count = $member_count,
    r.total_claims = $total_claims,
    r.estimated_fraud_amount = $estimated_fraud_amount,
    r.avg_risk_score = $avg_risk_score,
    r.discovered_date = date($discovered_date),
    r.discovered_by = $discovered_by
RETURN r.ring_id AS ring_id`

const queryLinkRingMember = `
MATCH (c:Claimant {claimant_id: $claimant_id})
MATCH (r:FraudRing {ring_id: $ring_id})
MERGE (c)-[:MEMBER_OF]->(r)`

const queryGetRing = `
MATCH (r:FraudRing {ring_id: $ring_id})
OPTIONAL MATCH (c:Claimant)-[:MEMBER_OF]->(r)
RETURN r.ring_id AS ring_id,
       r.ring_type AS ring_type,
       r.pattern_type AS pattern_type,
       r.status AS status,
       r.confidence_score AS confidence_score,
       r.member_count AS member_count,
       r.total_claims AS total_claims,
       r.estimated_fraud_amount AS estimated_fraud_amount,
       r.avg_risk_score AS avg_risk_score,
       r.discovered_date AS discovered_date,
       r.discovered_by AS discovered_by,
       collect(c.claimant_id) AS member_ids,
       collect(c.name) AS member_names`

const queryListRings = `
MATCH (r:FraudRing)
WHERE $status = '' OR r.status = $status
OPTIONAL MATCH (c:Claimant)-[:MEMBER_OF]->(r)
WITH r, collect(c.claimant_id) AS member_ids, collect(c.name) AS member_names
RETURN r.ring_id AS ring_id,
       r.ring_type AS ring_type,
       r.pattern_type AS pattern_type,
       r.status AS status,
       r.confidence_score AS confidence_score,
       r.member_count AS member_count,
       r.total_claims AS total_claims,
       r.estimated_fraud_amount AS estimated_fraud_amount,
       r.avg_risk_score AS avg_risk_score,
       r.discovered_date AS discovered_date,
       r.discovered_by AS discovered_by,
       member_ids,
       member_names
ORDER BY r.confidence_score DESC
LIMIT $limit`

const queryUpdateRingStatus = `
MATCH (r:FraudRing {ring_id: $ring_id})
SET r.status = $status
RETURN r.ring_id AS ring_id`
