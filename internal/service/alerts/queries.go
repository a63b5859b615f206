package alerts

import "fmt"

const queryCreateAlert = `
CREATE (a:Alert {
    alert_id: $alert_id,
    alert_type: $alert_type,
    severity: $severity,
    title: $title,
    description: $description,
    entity_id: $entity_id,
    entity_type: $entity_type,
    status: 'OPEN',
    created_at: datetime($created_at),
    updated_at: datetime($updated_at),
    resolved: false,
    assigned_to: null,
    resolution_notes: null
})
RETURN a.alert_id AS alert_id`

// linkAlertQuery targets the entity by its label and id property. Both
// come from the EntityLabel enum, never from request input.
func linkAlertQuery(label, idField string) string {
	return fmt.Sprintf(`
MATCH (a:Alert {alert_id: $alert_id})
MATCH (e:%s {%s: $entity_id})
MERGE (a)-[:ALERTS]->(e)
RETURN a.alert_id AS alert_id`, label, idField)
}

// Monitor queries skip entities that already carry an open alert of
// the same type.

const queryHighRiskClaims = `
MATCH (cl:Claim)
WHERE cl.risk_score >= $high_risk_score
  AND NOT (cl)<-[:ALERTS]-(:Alert {alert_type: 'High Risk Claim'})
MATCH (c:Claimant)-[:FILED]->(cl)
RETURN cl.claim_id AS claim_id,
       cl.claim_number AS claim_number,
       c.name AS claimant_name,
       cl.risk_score AS risk_score,
       cl.total_claim_amount AS amount,
       cl.accident_type AS accident_type
ORDER BY cl.risk_score DESC
LIMIT 50`

const queryRepeatClaimants = `
MATCH (c:Claimant)-[:FILED]->(cl:Claim)
WITH c, count(cl) AS claim_count
WHERE claim_count >= $threshold
  AND NOT (c)<-[:ALERTS]-(:Alert {alert_type: 'Repeat Claimant'})
MATCH (c)-[:FILED]->(claims:Claim)
WITH c, claim_count,
     sum(claims.total_claim_amount) AS total_claimed,
     avg(claims.risk_score) AS avg_risk
RETURN c.claimant_id AS claimant_id,
       c.name AS name,
       claim_count,
       total_claimed,
       avg_risk
ORDER BY claim_count DESC, avg_risk DESC
LIMIT 50`

const queryProfessionalWitnesses = `
MATCH (w:Witness)-[:WITNESSED]->(cl:Claim)
WITH w, count(cl) AS witnessed_count
WHERE witnessed_count >= $threshold
  AND NOT (w)<-[:ALERTS]-(:Alert {alert_type: 'Professional Witness'})
MATCH (w)-[:WITNESSED]->(claims:Claim)
MATCH (c:Claimant)-[:FILED]->(claims)
WITH w, witnessed_count,
     count(DISTINCT c) AS unique_claimants,
     avg(claims.risk_score) AS avg_risk
RETURN w.witness_id AS witness_id,
       w.name AS name,
       witnessed_count,
       unique_claimants,
       avg_risk
ORDER BY witnessed_count DESC
LIMIT 30`

const queryAccidentHotspots = `
MATCH (l:AccidentLocation)<-[:OCCURRED_AT]-(cl:Claim)
WITH l, count(cl) AS accident_count
WHERE accident_count >= $threshold
  AND NOT (l)<-[:ALERTS]-(:Alert {alert_type: 'Accident Hotspot'})
MATCH (l)<-[:OCCURRED_AT]-(claims:Claim)
WITH l, accident_count,
     avg(claims.risk_score) AS avg_risk,
     sum(claims.total_claim_amount) AS total_amount
RETURN l.location_id AS location_id,
       l.intersection AS intersection,
       l.city AS city,
       accident_count,
       avg_risk,
       total_amount
ORDER BY accident_count DESC, avg_risk DESC
LIMIT 30`

const queryGetAlert = `
MATCH (a:Alert {alert_id: $alert_id})
RETURN a.alert_id AS alert_id,
       a.alert_type AS alert_type,
       a.severity AS severity,
       a.title AS title,
       a.description AS description,
       a.entity_id AS entity_id,
       a.entity_type AS entity_type,
       a.status AS status,
       a.resolved AS resolved,
       a.assigned_to AS assigned_to,
       a.resolution_notes AS resolution_notes,
       a.created_at AS created_at,
       a.updated_at AS updated_at`

const queryListAlerts = `
MATCH (a:Alert)
WHERE ($status = '' OR a.status = $status)
  AND ($severity = '' OR a.severity = $severity)
RETURN a.alert_id AS alert_id,
       a.alert_type AS alert_type,
       a.severity AS severity,
       a.title AS title,
       a.description AS description,
       a.entity_id AS entity_id,
       a.entity_type AS entity_type,
       a.status AS status,
       a.resolved AS resolved,
       a.assigned_to AS assigned_to,
       a.resolution_notes AS resolution_notes,
       a.created_at AS created_at,
       a.updated_at AS updated_at
ORDER BY
    CASE a.severity
        WHEN 'CRITICAL' THEN 1
        WHEN 'HIGH' THEN 2
        WHEN 'MEDIUM' THEN 3
        WHEN 'LOW' THEN 4
        ELSE 5
    END,
    a.created_at DESC
LIMIT $limit`

const queryAssignAlert = `
MATCH (a:Alert {alert_id: $alert_id})
SET a.assigned_to = $assignee,
    a.status = 'ASSIGNED',
    a.updated_at = datetime($updated_at)
RETURN a.alert_id AS alert_id`

const queryResolveAlert = `
MATCH (a:Alert {alert_id: $alert_id})
SET a.status = $status,
    a.resolved = true,
    a.resolution_notes = $notes,
    a.updated_at = datetime($updated_at)
RETURN a.alert_id AS alert_id`

const queryAlertStatistics = `
MATCH (a:Alert)
RETURN count(a) AS total_alerts,
       count(CASE WHEN a.status = 'OPEN' THEN 1 END) AS open_alerts,
       count(CASE WHEN a.status = 'ASSIGNED' THEN 1 END) AS assigned_alerts,
       count(CASE WHEN a.status = 'RESOLVED' THEN 1 END) AS resolved_alerts,
       count(CASE WHEN a.status = 'DISMISSED' THEN 1 END) AS dismissed_alerts,
       count(CASE WHEN a.severity = 'CRITICAL' THEN 1 END) AS critical_alerts,
       count(CASE WHEN a.severity = 'HIGH' THEN 1 END) AS high_alerts,
       count(CASE WHEN a.severity = 'MEDIUM' THEN 1 END) AS medium_alerts,
       count(CASE WHEN a.severity = 'LOW' THEN 1 END) AS low_alerts`
