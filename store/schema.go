package store

// Schema versions. Version 1 is the initial schema; bump and add a
// migration when the layout changes.
const (
	schemaVersionV1      = 1
	currentSchemaVersion = schemaVersionV1
)

// schemaV1 is the initial schema: the incident record plus its dependent
// hint, validation and schedule rows. Incident rows are never deleted by
// the engine; retention is an external concern.
const schemaV1 = `
CREATE TABLE schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE incidents (
	id               TEXT PRIMARY KEY,
	severity         TEXT NOT NULL,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL,
	symptoms         TEXT NOT NULL,
	target_system    TEXT NOT NULL,
	difficulty       INTEGER NOT NULL CHECK (difficulty BETWEEN 1 AND 5),
	status           TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	hints_used       INTEGER NOT NULL DEFAULT 0 CHECK (hints_used BETWEEN 0 AND 3),
	resolution_text  TEXT,
	base_score       INTEGER,
	hints_penalty    INTEGER,
	final_score      INTEGER,
	next_review_date TEXT
);

CREATE INDEX idx_incidents_status ON incidents(status);
CREATE INDEX idx_incidents_review ON incidents(status, next_review_date);
CREATE INDEX idx_incidents_system ON incidents(target_system);

CREATE TABLE hint_requests (
	incident_id  TEXT NOT NULL REFERENCES incidents(id),
	level        INTEGER NOT NULL CHECK (level BETWEEN 1 AND 3),
	content      TEXT NOT NULL,
	requested_at TEXT NOT NULL
);

CREATE INDEX idx_hint_requests_incident ON hint_requests(incident_id);

CREATE TABLE validation_qa (
	incident_id      TEXT NOT NULL REFERENCES incidents(id),
	question         TEXT NOT NULL,
	answer_given     TEXT NOT NULL,
	assessed_correct REAL NOT NULL
);

CREATE INDEX idx_validation_qa_incident ON validation_qa(incident_id);

CREATE TABLE schedule_entries (
	incident_id      TEXT NOT NULL REFERENCES incidents(id),
	scored_at        TEXT NOT NULL,
	next_review_date TEXT NOT NULL,
	interval_days    INTEGER NOT NULL
);

CREATE INDEX idx_schedule_entries_incident ON schedule_entries(incident_id);
`
