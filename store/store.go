// Package store persists incidents, hint requests, validation answers and
// schedule entries in SQLite. All multi-row writes (hint delivery,
// resolution) run in a single transaction so an aborted operation leaves
// no partial state behind.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/M-Boiguille/SkillOps-sub000/incident"
)

// Common store errors.
var (
	// ErrNotFound is returned when an incident does not exist.
	ErrNotFound = errors.New("incident not found")

	// ErrAlreadyResolved is returned when resolving an incident that has
	// already been scored.
	ErrAlreadyResolved = errors.New("incident already resolved")

	// ErrConflict is returned when a guarded write finds the row in a
	// different state than the caller observed (wrong hint count or a
	// terminal status).
	ErrConflict = errors.New("incident state conflict")
)

// Resolution carries everything one scoring pass writes atomically:
// the resolution fields on the incident row, the validation Q&A rows,
// and the spaced-repetition schedule entry.
type Resolution struct {
	ResolutionText string
	BaseScore      int
	HintsPenalty   int
	FinalScore     int
	QA             []incident.ValidationQA
	Entry          incident.ScheduleEntry
}

// Store is a SQLite-backed incident store.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at path and runs migrations.
// Creates the parent directory if it does not exist.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount == 0 {
		// Fresh database.
		if _, err := s.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	if err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != currentSchemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// timeFmt is the on-disk timestamp format. Fixed-width UTC RFC 3339 keeps
// string comparison equivalent to time comparison in queries.
const timeFmt = time.RFC3339

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeFmt)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFmt, s)
}

// CreateIncident inserts a freshly generated incident. The caller sets
// ID, CreatedAt and Status before calling.
func (s *Store) CreateIncident(ctx context.Context, inc *incident.Incident) error {
	if inc == nil {
		return errors.New("incident is nil")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO incidents(id, severity, title, description, symptoms, target_system,
		                       difficulty, status, created_at, hints_used)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		inc.ID, inc.Severity.String(), inc.Title, inc.Description, inc.Symptoms,
		inc.TargetSystem, inc.Difficulty, inc.Status.String(), fmtTime(inc.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

// incidentColumns is the select list scanIncident expects.
const incidentColumns = `id, severity, title, description, symptoms, target_system,
	difficulty, status, created_at, hints_used,
	resolution_text, base_score, hints_penalty, final_score, next_review_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*incident.Incident, error) {
	var inc incident.Incident
	var severity, status, createdAt string
	var resolution, nextReview sql.NullString
	var baseScore, hintsPenalty, finalScore sql.NullInt64

	err := row.Scan(&inc.ID, &severity, &inc.Title, &inc.Description, &inc.Symptoms,
		&inc.TargetSystem, &inc.Difficulty, &status, &createdAt, &inc.HintsUsed,
		&resolution, &baseScore, &hintsPenalty, &finalScore, &nextReview)
	if err != nil {
		return nil, err
	}

	inc.Severity = incident.Severity(severity)
	inc.Status = incident.Status(status)

	created, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	inc.CreatedAt = created

	if resolution.Valid {
		inc.ResolutionText = resolution.String
	}
	if baseScore.Valid {
		inc.BaseScore = int(baseScore.Int64)
	}
	if hintsPenalty.Valid {
		inc.HintsPenalty = int(hintsPenalty.Int64)
	}
	if finalScore.Valid {
		inc.FinalScore = int(finalScore.Int64)
	}
	if nextReview.Valid {
		due, err := parseTime(nextReview.String)
		if err != nil {
			return nil, fmt.Errorf("parse next_review_date: %w", err)
		}
		inc.NextReviewDate = &due
	}

	return &inc, nil
}

// GetIncident returns the incident by id, or ErrNotFound.
func (s *Store) GetIncident(ctx context.Context, id string) (*incident.Incident, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+incidentColumns+" FROM incidents WHERE id = ?", id)
	inc, err := scanIncident(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return inc, nil
}

// MarkInvestigating transitions an OPEN incident to INVESTIGATING.
// The transition is informational; calling it on an incident that is
// already investigating is a no-op, terminal states are left untouched.
func (s *Store) MarkInvestigating(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE incidents SET status = ? WHERE id = ? AND status = ?",
		incident.StatusInvestigating.String(), id, incident.StatusOpen.String())
	if err != nil {
		return fmt.Errorf("mark investigating: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either missing or not open; only the former is an error.
		if _, err := s.GetIncident(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// AppendHint records one delivered hint: bumps hints_used and inserts the
// hint row in a single transaction. expectedPrior is the hints_used value
// the caller observed; the guarded update fails with ErrConflict when the
// row has moved on (wrong count or terminal status), leaving no partial
// write behind.
func (s *Store) AppendHint(ctx context.Context, hint *incident.HintRequest, expectedPrior int) error {
	if hint == nil {
		return errors.New("hint is nil")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin hint tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE incidents SET hints_used = hints_used + 1
		 WHERE id = ? AND hints_used = ? AND status IN (?, ?)`,
		hint.IncidentID, expectedPrior,
		incident.StatusOpen.String(), incident.StatusInvestigating.String())
	if err != nil {
		return fmt.Errorf("bump hints_used: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM incidents WHERE id = ?", hint.IncidentID).Scan(&exists); err != nil {
			return fmt.Errorf("check incident: %w", err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO hint_requests(incident_id, level, content, requested_at)
		 VALUES(?, ?, ?, ?)`,
		hint.IncidentID, hint.Level, hint.Content, fmtTime(hint.RequestedAt))
	if err != nil {
		return fmt.Errorf("insert hint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit hint tx: %w", err)
	}
	return nil
}

// ListHints returns the delivered hints for an incident, oldest first.
func (s *Store) ListHints(ctx context.Context, incidentID string) ([]*incident.HintRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT incident_id, level, content, requested_at
		 FROM hint_requests WHERE incident_id = ? ORDER BY level`,
		incidentID)
	if err != nil {
		return nil, fmt.Errorf("list hints: %w", err)
	}
	defer rows.Close()

	var list []*incident.HintRequest
	for rows.Next() {
		var h incident.HintRequest
		var requestedAt string
		if err := rows.Scan(&h.IncidentID, &h.Level, &h.Content, &requestedAt); err != nil {
			return nil, fmt.Errorf("scan hint: %w", err)
		}
		ts, err := parseTime(requestedAt)
		if err != nil {
			return nil, fmt.Errorf("parse requested_at: %w", err)
		}
		h.RequestedAt = ts
		list = append(list, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list hints: %w", err)
	}
	return list, nil
}

// ResolveIncident commits one scoring pass atomically: the resolution
// fields and RESOLVED status on the incident row, the validation Q&A
// rows, and the schedule entry. A second resolve returns
// ErrAlreadyResolved without mutating anything.
func (s *Store) ResolveIncident(ctx context.Context, id string, r Resolution) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resolve tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE incidents
		 SET resolution_text = ?, base_score = ?, hints_penalty = ?, final_score = ?,
		     status = ?, next_review_date = ?
		 WHERE id = ? AND status IN (?, ?)`,
		r.ResolutionText, r.BaseScore, r.HintsPenalty, r.FinalScore,
		incident.StatusResolved.String(), fmtTime(r.Entry.NextReviewDate),
		id, incident.StatusOpen.String(), incident.StatusInvestigating.String())
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var status string
		err := tx.QueryRowContext(ctx, "SELECT status FROM incidents WHERE id = ?", id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check incident: %w", err)
		}
		if incident.Status(status) == incident.StatusResolved {
			return ErrAlreadyResolved
		}
		return ErrConflict
	}

	for _, qa := range r.QA {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO validation_qa(incident_id, question, answer_given, assessed_correct)
			 VALUES(?, ?, ?, ?)`,
			id, qa.Question, qa.AnswerGiven, qa.AssessedCorrect)
		if err != nil {
			return fmt.Errorf("insert validation qa: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO schedule_entries(incident_id, scored_at, next_review_date, interval_days)
		 VALUES(?, ?, ?, ?)`,
		id, fmtTime(r.Entry.ScoredAt), fmtTime(r.Entry.NextReviewDate), r.Entry.IntervalDays)
	if err != nil {
		return fmt.Errorf("insert schedule entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resolve tx: %w", err)
	}
	return nil
}

// ListValidationQA returns the validation rows recorded for an incident.
func (s *Store) ListValidationQA(ctx context.Context, incidentID string) ([]incident.ValidationQA, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT incident_id, question, answer_given, assessed_correct
		 FROM validation_qa WHERE incident_id = ?`,
		incidentID)
	if err != nil {
		return nil, fmt.Errorf("list validation qa: %w", err)
	}
	defer rows.Close()

	var list []incident.ValidationQA
	for rows.Next() {
		var qa incident.ValidationQA
		if err := rows.Scan(&qa.IncidentID, &qa.Question, &qa.AnswerGiven, &qa.AssessedCorrect); err != nil {
			return nil, fmt.Errorf("scan validation qa: %w", err)
		}
		list = append(list, qa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list validation qa: %w", err)
	}
	return list, nil
}

// GetScheduleEntry returns the schedule entry for a resolved incident,
// or ErrNotFound.
func (s *Store) GetScheduleEntry(ctx context.Context, incidentID string) (*incident.ScheduleEntry, error) {
	var e incident.ScheduleEntry
	var scoredAt, nextReview string
	err := s.db.QueryRowContext(ctx,
		`SELECT incident_id, scored_at, next_review_date, interval_days
		 FROM schedule_entries WHERE incident_id = ?`,
		incidentID).Scan(&e.IncidentID, &scoredAt, &nextReview, &e.IntervalDays)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule entry: %w", err)
	}
	if e.ScoredAt, err = parseTime(scoredAt); err != nil {
		return nil, fmt.Errorf("parse scored_at: %w", err)
	}
	if e.NextReviewDate, err = parseTime(nextReview); err != nil {
		return nil, fmt.Errorf("parse next_review_date: %w", err)
	}
	return &e, nil
}

// RecentResolved returns up to limit resolved incidents, most recently
// scored first. This feeds the context aggregator's weak-area profile.
func (s *Store) RecentResolved(ctx context.Context, limit int) ([]*incident.Incident, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+incidentColumns+` FROM incidents i
		 JOIN (SELECT incident_id, MAX(scored_at) AS scored_at
		       FROM schedule_entries GROUP BY incident_id) se ON se.incident_id = i.id
		 WHERE i.status = ?
		 ORDER BY se.scored_at DESC
		 LIMIT ?`,
		incident.StatusResolved.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("recent resolved: %w", err)
	}
	defer rows.Close()

	return collectIncidents(rows)
}

// DueToday returns all resolved incidents due on or before today,
// oldest-due first, ties broken by lowest final score so struggling
// topics surface before mastered ones.
func (s *Store) DueToday(ctx context.Context, today time.Time) ([]*incident.Incident, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+incidentColumns+` FROM incidents
		 WHERE status = ? AND next_review_date IS NOT NULL AND next_review_date <= ?
		 ORDER BY next_review_date ASC, final_score ASC`,
		incident.StatusResolved.String(), fmtTime(today))
	if err != nil {
		return nil, fmt.Errorf("due today: %w", err)
	}
	defer rows.Close()

	return collectIncidents(rows)
}

func collectIncidents(rows *sql.Rows) ([]*incident.Incident, error) {
	var list []*incident.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		list = append(list, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect incidents: %w", err)
	}
	return list, nil
}
