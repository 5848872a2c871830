package driver

var IndexQueries = []string{
	"CREATE INDEX ON :Entity(id);",
	"CREATE INDEX ON :Entity(name);",
	"CREATE INDEX ON :Entity(ein);",
	"CREATE INDEX ON :Entity(ledger_source_id);",
	"CREATE INDEX ON :TimelineEvent(id);",
	"CREATE INDEX ON :TimelineEvent(year);",
	"CREATE INDEX ON :Mountain(title);",
	"CREATE CONSTRAINT ON (n:Entity) ASSERT n.ein IS UNIQUE;",
}

const (
	FindEntitiesQuery = `
		MATCH (n:Entity)
		WHERE n.id IN $ids
			OR n.name IN $names
			OR n.ein IN $eins
			OR n.ledger_source_id IN $ledger_ids
		RETURN properties(n) AS props
		ORDER BY n.id
		SKIP $offset
		LIMIT $limit
	`

	CreateEntityQuery = `
		CREATE (n:Entity {id: $id})
		SET n.name = $name,
			n.type = $type,
			n.ein = $ein,
			n.description = $description,
			n.aliases = $aliases,
			n.source_file = $source_file,
			n.ledger_source_id = $ledger_source_id,
			n.metadata = $metadata,
			n.created_at = $now,
			n.updated_at = $now
		RETURN properties(n) AS props
	`

	UpdateEntityQuery = `
		MATCH (n:Entity {id: $id})
		SET n.name = coalesce($name, n.name),
			n.type = coalesce($type, n.type),
			n.ein = coalesce($ein, n.ein),
			n.description = coalesce($description, n.description),
			n.ledger_source_id = coalesce($ledger_id, n.ledger_source_id),
			n.updated_at = $now
		RETURN properties(n) AS props
	`

	FindRelationshipsQuery = `
		MATCH (a:Entity)-[r:RELATES]->(b:Entity)
		WHERE ($from = '' OR a.id = $from)
			AND ($to = '' OR b.id = $to)
			AND ($type = '' OR r.type = $type)
			AND ($ledger_id = '' OR r.ledger_source_id = $ledger_id)
		RETURN properties(r) AS props, a.id AS from_id, b.id AS to_id
		LIMIT $limit
	`

	CreateRelationshipQuery = `
		MATCH (a:Entity {id: $from}), (b:Entity {id: $to})
		CREATE (a)-[r:RELATES {id: $id}]->(b)
		SET r.type = $type,
			r.description = $description,
			r.attributes = $attributes,
			r.source_file = $source_file,
			r.ledger_source_id = $ledger_source_id,
			r.amount = $amount,
			r.year = $year,
			r.role = $role,
			r.created_at = $now,
			r.updated_at = $now
		RETURN properties(r) AS props, a.id AS from_id, b.id AS to_id
	`

	// Endpoints may move, so the edge is recreated under the same id.
	UpdateRelationshipQuery = `
		MATCH ()-[old:RELATES {id: $id}]->()
		MATCH (a:Entity {id: $from}), (b:Entity {id: $to})
		WITH old, a, b, old.created_at AS created_at
		DELETE old
		CREATE (a)-[r:RELATES {id: $id}]->(b)
		SET r.type = $type,
			r.description = $description,
			r.attributes = $attributes,
			r.source_file = $source_file,
			r.ledger_source_id = $ledger_source_id,
			r.amount = $amount,
			r.year = $year,
			r.role = $role,
			r.created_at = created_at,
			r.updated_at = $now
		RETURN properties(r) AS props, a.id AS from_id, b.id AS to_id
	`

	FindEventsQuery = `
		MATCH (e:TimelineEvent {year: $year, title: $title})
		RETURN properties(e) AS props
		LIMIT $limit
	`

	CreateEventQuery = `
		CREATE (e:TimelineEvent {id: $id})
		SET e.year = $year,
			e.month = $month,
			e.day = $day,
			e.title = $title,
			e.body = $body,
			e.entities = $entities,
			e.mountains = $mountains,
			e.is_convergence = $is_convergence,
			e.sources = $sources,
			e.original_text = $original_text,
			e.created_at = $now,
			e.updated_at = $now
		RETURN properties(e) AS props
	`

	UpdateEventQuery = `
		MATCH (e:TimelineEvent {id: $id})
		SET e.year = $year,
			e.month = $month,
			e.day = $day,
			e.title = $title,
			e.body = $body,
			e.entities = $entities,
			e.mountains = $mountains,
			e.is_convergence = $is_convergence,
			e.sources = $sources,
			e.original_text = $original_text,
			e.updated_at = $now
		RETURN properties(e) AS props
	`

	// Event participants and mountains are mirrored as edges so they can be traversed.
	ClearEventLinksQuery = `
		MATCH (e:TimelineEvent {id: $id})-[old:INVOLVES|FILED_UNDER]->()
		DELETE old
	`

	LinkEventEntitiesQuery = `
		MATCH (e:TimelineEvent {id: $id})
		UNWIND $entity_ids AS eid
		MATCH (n:Entity {id: eid})
		MERGE (e)-[:INVOLVES]->(n)
	`

	LinkEventMountainsQuery = `
		MATCH (e:TimelineEvent {id: $id})
		UNWIND $mountain_ids AS mid
		MATCH (m:Mountain {id: mid})
		MERGE (e)-[:FILED_UNDER]->(m)
	`

	FindMountainsQuery = `
		MATCH (m:Mountain)
		WHERE toLower(m.title) IN $lowered OR m.slug IN $names
		RETURN properties(m) AS props
	`

	EnsureMountainQuery = `
		MERGE (m:Mountain {title: $title})
		ON CREATE SET m.id = $id, m.slug = $slug
	`

	CountQuery = `
		OPTIONAL MATCH (n:Entity) WITH count(n) AS entities
		OPTIONAL MATCH ()-[r:RELATES]->() WITH entities, count(r) AS relationships
		OPTIONAL MATCH (e:TimelineEvent)
		RETURN entities, relationships, count(e) AS events
	`
)
