// Package requestlog keeps one row per settled query. It stores sizes and
// outcomes only, never prompt or answer text.
package requestlog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/relaydev/querydesk/internal/orchestrator"
	"github.com/relaydev/querydesk/internal/storage"
)

// Entry is one settled request.
type Entry struct {
	ID          string    `json:"id"`
	Outcome     string    `json:"outcome"`
	Status      int       `json:"status"`
	Kind        string    `json:"kind,omitempty"`
	Message     string    `json:"message,omitempty"`
	PromptBytes int       `json:"prompt_bytes"`
	AnswerBytes int       `json:"answer_bytes"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// Stats counts entries per outcome.
type Stats struct {
	Total     int64
	Succeeded int64
	Failed    int64
	Cancelled int64
	AvgMs     float64
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS requests (
		id           TEXT PRIMARY KEY,
		outcome      TEXT NOT NULL,
		status       INTEGER NOT NULL DEFAULT 0,
		kind         TEXT,
		message      TEXT,
		prompt_bytes INTEGER NOT NULL DEFAULT 0,
		answer_bytes INTEGER NOT NULL DEFAULT 0,
		started_at   TEXT NOT NULL,
		finished_at  TEXT NOT NULL,
		duration_ms  INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_requests_started ON requests(started_at);
	CREATE INDEX IF NOT EXISTS idx_requests_outcome ON requests(outcome);`,
}

// timeLayout is fixed width so text order in sqlite matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// Store is an append-only request log.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates or upgrades the schema.
func (s *Store) Init() error {
	return storage.Migrate(s.db, migrations)
}

// Record implements orchestrator.Recorder.
func (s *Store) Record(o orchestrator.Outcome) error {
	e := Entry{
		ID:          o.RequestID,
		Outcome:     o.State.String(),
		Status:      o.Status,
		Message:     o.Message,
		PromptBytes: o.PromptBytes,
		StartedAt:   o.StartedAt.UTC(),
		FinishedAt:  o.FinishedAt.UTC(),
		DurationMs:  o.Duration.Milliseconds(),
	}
	if o.Result != nil {
		e.Kind = string(o.Result.Kind)
		e.AnswerBytes = len(o.Result.Answer) + len(o.Result.Code)
	}
	return s.Append(e)
}

// Append inserts an entry.
func (s *Store) Append(e Entry) error {
	_, err := s.db.Exec(`
		INSERT INTO requests
		(id, outcome, status, kind, message, prompt_bytes, answer_bytes, started_at, finished_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Outcome, e.Status, e.Kind, e.Message, e.PromptBytes, e.AnswerBytes,
		formatTime(e.StartedAt), formatTime(e.FinishedAt), e.DurationMs)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// List returns the most recent entries, newest first, optionally filtered by
// outcome.
func (s *Store) List(outcome string, limit int) ([]*Entry, error) {
	query := `SELECT id, outcome, status, kind, message, prompt_bytes, answer_bytes, started_at, finished_at, duration_ms
		FROM requests`
	var args []any
	if outcome != "" {
		query += " WHERE outcome = ?"
		args = append(args, outcome)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		var kind, message sql.NullString
		var started, finished string
		if err := rows.Scan(&e.ID, &e.Outcome, &e.Status, &kind, &message,
			&e.PromptBytes, &e.AnswerBytes, &started, &finished, &e.DurationMs); err != nil {
			return nil, err
		}
		e.Kind = kind.String
		e.Message = message.String
		e.StartedAt, _ = time.Parse(timeLayout, started)
		e.FinishedAt, _ = time.Parse(timeLayout, finished)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// Stats summarises the log.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	var avg sql.NullFloat64
	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN outcome = 'succeeded' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN outcome = 'cancelled' THEN 1 ELSE 0 END), 0),
			AVG(duration_ms)
		FROM requests
	`).Scan(&st.Total, &st.Succeeded, &st.Failed, &st.Cancelled, &avg)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	st.AvgMs = avg.Float64
	return st, nil
}

// Purge removes entries that started before cutoff.
func (s *Store) Purge(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM requests WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
