package patterns

// Detection rule queries. Thresholds and limits come in as parameters
// so tuning never requires a query change.

const queryStagedAccidents = `
MATCH (cl:Claim)
WHERE cl.total_claim_amount >= $min_amount
  AND duration.between(date(cl.accident_date), date(cl.report_date)).days <= $max_days
MATCH (c:Claimant)-[:FILED]->(cl)
OPTIONAL MATCH (w:Witness)-[:WITNESSED]->(cl)
OPTIONAL MATCH (cl)-[:OCCURRED_AT]->(l:AccidentLocation)
WITH cl, c, l,
     collect(DISTINCT w) AS witnesses,
     [w IN collect(DISTINCT w) | count{ (w)-[:WITNESSED]->(:Claim) }] AS witness_counts
WHERE size(witnesses) > 0 AND any(count IN witness_counts WHERE count >= $min_witness_appearances)
OPTIONAL MATCH (l)<-[:OCCURRED_AT]-(other_cl:Claim)
WHERE other_cl.claim_id <> cl.claim_id
WITH cl, c, l, witnesses,
     count(DISTINCT other_cl) AS location_claim_count
WHERE location_claim_count >= 1
RETURN cl.claim_id AS claim_id,
       cl.claim_number AS claim_number,
       c.name AS claimant_name,
       cl.accident_date AS accident_date,
       cl.report_date AS report_date,
       cl.total_claim_amount AS amount,
       l.intersection AS location,
       [w IN witnesses | w.name] AS witness_names,
       location_claim_count
ORDER BY cl.total_claim_amount DESC
LIMIT $limit`

const queryBodyShopFraud = `
MATCH (b:BodyShop)<-[:REPAIRED_AT]-(cl:Claim)
MATCH (c:Claimant)-[:FILED]->(cl)
WITH b,
     count(DISTINCT cl) AS claim_count,
     count(DISTINCT c) AS unique_claimants,
     avg(cl.risk_score) AS avg_risk,
     sum(cl.property_damage_amount) AS total_repairs,
     avg(cl.property_damage_amount) AS avg_repair_cost,
     collect(DISTINCT c.claimant_id) AS claimant_ids
WHERE claim_count >= $min_claims
  AND avg_risk >= $min_avg_risk
UNWIND claimant_ids AS claimant_id
MATCH (c:Claimant {claimant_id: claimant_id})-[:FILED]->(cl2:Claim)-[:REPAIRED_AT]->(b)
WITH b, claim_count, unique_claimants, avg_risk, total_repairs, avg_repair_cost,
     claimant_id, count(cl2) AS claimant_claim_count
WHERE claimant_claim_count >= 2
WITH b, claim_count, unique_claimants, avg_risk, total_repairs, avg_repair_cost,
     count(DISTINCT claimant_id) AS repeat_claimants
WHERE repeat_claimants >= $min_same_claimants
RETURN b.body_shop_id AS body_shop_id,
       b.name AS name,
       b.city AS city,
       claim_count,
       unique_claimants,
       avg_risk,
       total_repairs,
       avg_repair_cost,
       repeat_claimants
ORDER BY avg_risk DESC, repeat_claimants DESC
LIMIT $limit`

const queryMedicalMills = `
MATCH (m:MedicalProvider)<-[:TREATED_BY]-(cl:Claim)
WHERE cl.bodily_injury_amount > 0
MATCH (c:Claimant)-[:FILED]->(cl)
WITH m,
     count(DISTINCT cl) AS claim_count,
     count(DISTINCT c) AS unique_patients,
     avg(cl.bodily_injury_amount) AS avg_injury_amount,
     avg(cl.risk_score) AS avg_risk,
     sum(cl.bodily_injury_amount) AS total_injury_claims,
     collect(DISTINCT c.claimant_id) AS patient_ids,
     collect(cl.injury_type) AS injury_types
WHERE claim_count >= $min_claims
  AND avg_injury_amount >= $min_avg_injury
UNWIND patient_ids AS patient_id
MATCH (c:Claimant {claimant_id: patient_id})-[:FILED]->(cl2:Claim)-[:TREATED_BY]->(m)
WITH m, claim_count, unique_patients, avg_injury_amount, avg_risk,
     total_injury_claims, injury_types, patient_id, count(cl2) AS patient_visit_count
WHERE patient_visit_count >= 2
WITH m, claim_count, unique_patients, avg_injury_amount, avg_risk,
     total_injury_claims, injury_types,
     count(DISTINCT patient_id) AS repeat_patients
WHERE repeat_patients >= $min_same_claimants
WITH m, claim_count, unique_patients, avg_injury_amount, avg_risk,
     total_injury_claims, repeat_patients,
     size([i IN injury_types WHERE i IN ['Whiplash', 'Back Pain', 'Neck Pain', 'Soft Tissue Injury']]) AS soft_tissue_count,
     size(injury_types) AS total_injury_count
RETURN m.provider_id AS provider_id,
       m.name AS name,
       m.provider_type AS provider_type,
       m.city AS city,
       claim_count,
       unique_patients,
       avg_injury_amount,
       avg_risk,
       total_injury_claims,
       repeat_patients,
       toFloat(soft_tissue_count) / total_injury_count AS soft_tissue_ratio
ORDER BY avg_risk DESC, repeat_patients DESC
LIMIT $limit`

const queryAttorneyOrganized = `
MATCH (a:Attorney)<-[:REPRESENTED_BY]-(cl:Claim)
MATCH (c:Claimant)-[:FILED]->(cl)
OPTIONAL MATCH (cl)-[:REPAIRED_AT]->(b:BodyShop)
OPTIONAL MATCH (cl)-[:TREATED_BY]->(m:MedicalProvider)
WITH a,
     count(DISTINCT cl) AS case_count,
     count(DISTINCT c) AS unique_clients,
     avg(cl.risk_score) AS avg_risk,
     sum(cl.total_claim_amount) AS total_represented,
     collect(DISTINCT b.body_shop_id) AS body_shop_ids,
     collect(DISTINCT m.provider_id) AS medical_provider_ids
WHERE case_count >= $min_cases
  AND avg_risk >= $min_avg_risk
WITH a, case_count, unique_clients, avg_risk, total_represented,
     size(body_shop_ids) AS unique_body_shops,
     size(medical_provider_ids) AS unique_medical_providers
WHERE (case_count > 10 AND unique_body_shops <= 3)
   OR (case_count > 10 AND unique_medical_providers <= 3)
RETURN a.attorney_id AS attorney_id,
       a.name AS name,
       a.firm AS firm,
       a.city AS city,
       case_count,
       unique_clients,
       avg_risk,
       total_represented,
       unique_body_shops,
       unique_medical_providers
ORDER BY avg_risk DESC, case_count DESC
LIMIT $limit`

const queryPhantomPassengers = `
MATCH (cl:Claim)
WHERE cl.bodily_injury_amount >= $min_injury
  AND cl.property_damage_amount <= $max_property_damage
  AND cl.bodily_injury_amount > cl.property_damage_amount * 2
MATCH (c:Claimant)-[:FILED]->(cl)
MATCH (cl)-[:INVOLVES_VEHICLE]->(v:Vehicle)
OPTIONAL MATCH (v)<-[:INVOLVES_VEHICLE]-(other_cl:Claim)<-[:FILED]-(other_c:Claimant)
WHERE other_cl.claim_id <> cl.claim_id
WITH cl, c, v,
     count(DISTINCT other_c) AS other_claimants_same_vehicle
RETURN cl.claim_id AS claim_id,
       cl.claim_number AS claim_number,
       c.name AS claimant_name,
       cl.accident_date AS accident_date,
       cl.bodily_injury_amount AS bodily_injury,
       cl.property_damage_amount AS property_damage,
       cl.injury_type AS injury_type,
       v.make + ' ' + v.model AS vehicle,
       other_claimants_same_vehicle
ORDER BY cl.bodily_injury_amount DESC
LIMIT $limit`

const queryTowKickbacks = `
MATCH (t:TowCompany)<-[:TOWED_BY]-(cl:Claim)-[:REPAIRED_AT]->(b:BodyShop)
WITH t, b,
     count(cl) AS shared_claims
ORDER BY shared_claims DESC
WITH t,
     collect({body_shop: b.name, body_shop_id: b.body_shop_id, shared_claims: shared_claims}) AS body_shop_referrals,
     sum(shared_claims) AS total_tows
WHERE total_tows >= $min_tows
WITH t, body_shop_referrals, total_tows,
     head([r IN body_shop_referrals | r.shared_claims]) AS top_referral_count
WITH t, body_shop_referrals, total_tows, top_referral_count,
     toFloat(top_referral_count) / total_tows AS concentration_ratio
WHERE concentration_ratio >= $min_overlap
RETURN t.tow_company_id AS tow_company_id,
       t.name AS name,
       t.city AS city,
       total_tows,
       body_shop_referrals,
       concentration_ratio
ORDER BY concentration_ratio DESC, total_tows DESC
LIMIT $limit`

const queryAccidentHotspots = `
MATCH (l:AccidentLocation)<-[:OCCURRED_AT]-(cl:Claim)
MATCH (c:Claimant)-[:FILED]->(cl)
OPTIONAL MATCH (w:Witness)-[:WITNESSED]->(cl)
WITH l,
     count(DISTINCT cl) AS accident_count,
     count(DISTINCT c) AS unique_claimants,
     avg(cl.total_claim_amount) AS avg_amount,
     avg(cl.risk_score) AS avg_risk,
     collect(DISTINCT w.witness_id) AS witness_ids
WHERE accident_count >= $min_accidents
RETURN l.location_id AS location_id,
       l.intersection AS intersection,
       l.city AS city,
       accident_count,
       unique_claimants,
       avg_amount,
       avg_risk,
       size(witness_ids) AS witness_count
ORDER BY accident_count DESC, avg_risk DESC
LIMIT $limit`

const queryProfessionalWitnesses = `
MATCH (w:Witness)-[:WITNESSED]->(cl:Claim)
MATCH (c:Claimant)-[:FILED]->(cl)
OPTIONAL MATCH (c)-[:MEMBER_OF]->(r:FraudRing)
WITH w,
     count(DISTINCT cl) AS witnessed_count,
     count(DISTINCT c) AS unique_claimants,
     avg(cl.risk_score) AS avg_risk,
     collect(DISTINCT r.ring_id) AS ring_ids
WHERE witnessed_count >= $min_appearances
RETURN w.witness_id AS witness_id,
       w.name AS name,
       w.phone AS phone,
       witnessed_count,
       unique_claimants,
       avg_risk,
       size([r IN ring_ids WHERE r IS NOT NULL]) AS ring_connections
ORDER BY witnessed_count DESC, avg_risk DESC
LIMIT $limit`

const queryVehicleRecycling = `
MATCH (v:Vehicle)<-[:INVOLVES_VEHICLE]-(cl:Claim)
MATCH (c:Claimant)-[:FILED]->(cl)
WITH v,
     count(DISTINCT cl) AS accident_count,
     count(DISTINCT c) AS unique_claimants,
     sum(cl.total_claim_amount) AS total_damage,
     avg(cl.risk_score) AS avg_risk,
     collect(c.name) AS claimant_names
WHERE accident_count >= $min_accidents
  AND unique_claimants >= $min_claimants
RETURN v.vehicle_id AS vehicle_id,
       v.make + ' ' + v.model + ' ' + toString(v.year) AS vehicle_info,
       v.vin AS vin,
       v.license_plate AS license_plate,
       accident_count,
       unique_claimants,
       total_damage,
       avg_risk,
       claimant_names
ORDER BY accident_count DESC, unique_claimants DESC
LIMIT $limit`
