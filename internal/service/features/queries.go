package features

const queryBasicFeatures = `
MATCH (c:Claimant)-[:FILED]->(cl:Claim {claim_id: $claim_id})
RETURN cl.total_claim_amount AS total_amount,
       cl.property_damage_amount AS property_damage,
       cl.bodily_injury_amount AS bodily_injury,
       cl.accident_type AS accident_type,
       cl.injury_type AS injury_type,
       cl.status AS status,
       cl.risk_score AS risk_score`

const queryTemporalFeatures = `
MATCH (cl:Claim {claim_id: $claim_id})
RETURN cl.accident_date AS accident_date,
       cl.report_date AS report_date`

const queryFinancialFeatures = `
MATCH (cl:Claim {claim_id: $claim_id})
RETURN cl.total_claim_amount AS total_amount,
       cl.property_damage_amount AS property_damage,
       cl.bodily_injury_amount AS bodily_injury`

const queryNetworkFeatures = `
MATCH (c:Claimant)-[:FILED]->(cl:Claim {claim_id: $claim_id})
OPTIONAL MATCH (c)-[:FILED]->(other_cl:Claim)
WHERE other_cl.claim_id <> cl.claim_id
OPTIONAL MATCH (c)-[:MEMBER_OF]->(r:FraudRing)
WITH c, cl,
     count(DISTINCT other_cl) AS claimant_other_claims,
     collect(DISTINCT r.ring_id) AS ring_ids
OPTIONAL MATCH (cl)-[:REPAIRED_AT]->(b:BodyShop)<-[:REPAIRED_AT]-(other_cl2:Claim)<-[:FILED]-(other_c:Claimant)
WHERE other_c.claimant_id <> c.claimant_id
WITH claimant_other_claims, ring_ids,
     count(DISTINCT other_c) AS shared_body_shop_claimants
RETURN claimant_other_claims,
       size([r IN ring_ids WHERE r IS NOT NULL]) AS fraud_ring_count,
       shared_body_shop_claimants`

const queryEntityFeatures = `
MATCH (cl:Claim {claim_id: $claim_id})
OPTIONAL MATCH (cl)-[:REPAIRED_AT]->(b:BodyShop)
OPTIONAL MATCH (cl)-[:TREATED_BY]->(m:MedicalProvider)
OPTIONAL MATCH (cl)-[:REPRESENTED_BY]->(a:Attorney)
OPTIONAL MATCH (cl)-[:TOWED_BY]->(t:TowCompany)
OPTIONAL MATCH (w:Witness)-[:WITNESSED]->(cl)
OPTIONAL MATCH (b)<-[:REPAIRED_AT]-(b_claims:Claim)
OPTIONAL MATCH (m)<-[:TREATED_BY]-(m_claims:Claim)
OPTIONAL MATCH (a)<-[:REPRESENTED_BY]-(a_claims:Claim)
RETURN CASE WHEN b IS NOT NULL THEN 1 ELSE 0 END AS has_body_shop,
       CASE WHEN m IS NOT NULL THEN 1 ELSE 0 END AS has_medical_provider,
       CASE WHEN a IS NOT NULL THEN 1 ELSE 0 END AS has_attorney,
       CASE WHEN t IS NOT NULL THEN 1 ELSE 0 END AS has_tow_company,
       CASE WHEN w IS NOT NULL THEN 1 ELSE 0 END AS has_witness,
       count(DISTINCT b_claims) AS body_shop_claim_count,
       count(DISTINCT m_claims) AS medical_provider_claim_count,
       count(DISTINCT a_claims) AS attorney_claim_count`

const queryHistoricalFeatures = `
MATCH (c:Claimant)-[:FILED]->(cl:Claim {claim_id: $claim_id})
MATCH (c)-[:FILED]->(all_claims:Claim)
RETURN count(DISTINCT all_claims) AS total_claimant_claims,
       sum(all_claims.total_claim_amount) AS total_claimant_amount,
       avg(all_claims.risk_score) AS avg_claimant_risk`

const queryLocationFeatures = `
MATCH (cl:Claim {claim_id: $claim_id})
OPTIONAL MATCH (cl)-[:OCCURRED_AT]->(l:AccidentLocation)
OPTIONAL MATCH (l)<-[:OCCURRED_AT]-(location_claims:Claim)
RETURN CASE WHEN l IS NOT NULL THEN 1 ELSE 0 END AS has_location,
       count(DISTINCT location_claims) AS location_accident_count`

const queryClaimantFeatures = `
MATCH (c:Claimant {claimant_id: $claimant_id})
OPTIONAL MATCH (c)-[:FILED]->(cl:Claim)
OPTIONAL MATCH (c)-[:MEMBER_OF]->(r:FraudRing)
OPTIONAL MATCH (cl)-[:REPAIRED_AT]->(b:BodyShop)
OPTIONAL MATCH (cl)-[:TREATED_BY]->(m:MedicalProvider)
OPTIONAL MATCH (cl)-[:REPRESENTED_BY]->(a:Attorney)
OPTIONAL MATCH (cl)-[:INVOLVES_VEHICLE]->(v:Vehicle)
WITH c,
     count(DISTINCT cl) AS claim_count,
     sum(cl.total_claim_amount) AS total_claimed,
     avg(cl.total_claim_amount) AS avg_claim_amount,
     avg(cl.risk_score) AS avg_risk_score,
     collect(DISTINCT r.ring_id) AS ring_ids,
     count(DISTINCT b) AS unique_body_shops,
     count(DISTINCT m) AS unique_medical_providers,
     count(DISTINCT a) AS unique_attorneys,
     count(DISTINCT v) AS unique_vehicles,
     max(cl.accident_date) AS last_accident_date,
     min(cl.accident_date) AS first_accident_date
RETURN claim_count,
       total_claimed,
       avg_claim_amount,
       avg_risk_score,
       size([r IN ring_ids WHERE r IS NOT NULL]) AS fraud_ring_count,
       unique_body_shops,
       unique_medical_providers,
       unique_attorneys,
       unique_vehicles,
       first_accident_date,
       last_accident_date`

const queryBulkFeatures = `
MATCH (c:Claimant)-[:FILED]->(cl:Claim)
OPTIONAL MATCH (cl)-[:INVOLVES_VEHICLE]->(v:Vehicle)
OPTIONAL MATCH (cl)-[:REPAIRED_AT]->(b:BodyShop)
OPTIONAL MATCH (cl)-[:TREATED_BY]->(m:MedicalProvider)
OPTIONAL MATCH (cl)-[:REPRESENTED_BY]->(a:Attorney)
OPTIONAL MATCH (cl)-[:TOWED_BY]->(t:TowCompany)
OPTIONAL MATCH (cl)-[:OCCURRED_AT]->(l:AccidentLocation)
OPTIONAL MATCH (w:Witness)-[:WITNESSED]->(cl)
OPTIONAL MATCH (c)-[:MEMBER_OF]->(r:FraudRing)
OPTIONAL MATCH (c)-[:FILED]->(other_cl:Claim)
WHERE other_cl.claim_id <> cl.claim_id
WITH cl, c, v, b, m, a, t, l, w, r,
     count(DISTINCT other_cl) AS claimant_other_claims,
     sum(other_cl.total_claim_amount) AS claimant_total_other_claims
OPTIONAL MATCH (v)<-[:INVOLVES_VEHICLE]-(other_v_cl:Claim)
WHERE other_v_cl.claim_id <> cl.claim_id
WITH cl, c, v, b, m, a, t, l, w, r,
     claimant_other_claims, claimant_total_other_claims,
     count(DISTINCT other_v_cl) AS vehicle_other_accidents
RETURN cl.claim_id AS claim_id,
       cl.claim_number AS claim_number,
       cl.total_claim_amount AS total_amount,
       cl.property_damage_amount AS property_damage,
       cl.bodily_injury_amount AS bodily_injury,
       cl.accident_date AS accident_date,
       cl.report_date AS report_date,
       cl.risk_score AS risk_score,
       cl.accident_type AS accident_type,
       cl.injury_type AS injury_type,
       claimant_other_claims,
       claimant_total_other_claims,
       vehicle_other_accidents,
       CASE WHEN v IS NOT NULL THEN 1 ELSE 0 END AS has_vehicle,
       CASE WHEN b IS NOT NULL THEN 1 ELSE 0 END AS has_body_shop,
       CASE WHEN m IS NOT NULL THEN 1 ELSE 0 END AS has_medical_provider,
       CASE WHEN a IS NOT NULL THEN 1 ELSE 0 END AS has_attorney,
       CASE WHEN t IS NOT NULL THEN 1 ELSE 0 END AS has_tow_company,
       CASE WHEN w IS NOT NULL THEN 1 ELSE 0 END AS has_witness,
       CASE WHEN r IS NOT NULL THEN 1 ELSE 0 END AS fraud_ring_member
ORDER BY cl.accident_date DESC
LIMIT $limit`
