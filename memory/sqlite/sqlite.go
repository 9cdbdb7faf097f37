// Package sqlite implements the durable memory store on SQLite. Entries are
// written append-only; queries filter by subject, agent type and recency
// with a result-count cap. WAL mode keeps concurrent writers safe, which is
// sufficient because entries are independent and never updated in place.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/finsight/core"
	"github.com/hupe1980/finsight/logging"
	"github.com/hupe1980/finsight/memory"
	"github.com/hupe1980/finsight/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS agent_memory (
	id            TEXT PRIMARY KEY,
	subject_id    TEXT NOT NULL,
	agent_type    TEXT NOT NULL,
	session_id    TEXT NOT NULL,
	input_json    TEXT,
	output_json   TEXT,
	insights      TEXT,
	status        TEXT NOT NULL,
	error         TEXT,
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	token_count   INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_agent_memory_subject ON agent_memory (subject_id, agent_type, created_at DESC);
`

// StoreOptions configures the sqlite store.
type StoreOptions struct {
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Store is a durable memory.Store backed by a SQLite database file.
type Store struct {
	db      *sql.DB
	logger  logging.Logger
	metrics *metrics.Metrics
}

var _ memory.Store = (*Store)(nil)

// Open opens (or creates) the database at path and initializes the schema.
func Open(path string, optFns ...func(o *StoreOptions)) (*Store, error) {
	opts := StoreOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init memory schema: %w", err)
	}

	return &Store{
		db:      db,
		logger:  logging.OrNoOp(opts.Logger),
		metrics: opts.Metrics,
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Record implements memory.Store. Persistence errors are logged and
// swallowed; the caller's main flow is never interrupted.
func (s *Store) Record(ctx context.Context, e core.MemoryEntry) {
	inputJSON := marshalOrEmpty(e.Input)
	outputJSON := marshalOrEmpty(e.Output)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_memory
			(id, subject_id, agent_type, session_id, input_json, output_json,
			 insights, status, error, duration_ms, token_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SubjectID, e.AgentType, e.SessionID, inputJSON, outputJSON,
		e.Insights, string(e.Status), e.Error, e.Duration.Milliseconds(),
		e.TokenCount, e.CreatedAt,
	)
	if err != nil {
		s.metrics.MemoryWriteFailed()
		s.logger.Warn("memory.record.failed",
			"subject_id", e.SubjectID,
			"agent_type", e.AgentType,
			"error", err.Error(),
		)
	}
}

// QueryRecent implements memory.Store, returning a cursor over matching
// entries ordered newest-first.
func (s *Store) QueryRecent(ctx context.Context, q memory.Query) (memory.Cursor, error) {
	where := "1=1"
	args := []any{}
	if q.SubjectID != "" {
		where += " AND subject_id = ?"
		args = append(args, q.SubjectID)
	}
	if q.AgentType != "" {
		where += " AND agent_type = ?"
		args = append(args, q.AgentType)
	}
	if q.OnlyCompleted {
		where += " AND status = ?"
		args = append(args, string(core.StatusCompleted))
	}
	if q.MaxAge > 0 {
		where += " AND created_at >= ?"
		args = append(args, time.Now().Add(-q.MaxAge))
	}

	query := `
		SELECT id, subject_id, agent_type, session_id, input_json, output_json,
		       insights, status, error, duration_ms, token_count, created_at
		FROM agent_memory WHERE ` + where + ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memory: %w", err)
	}
	return &rowCursor{rows: rows}, nil
}

type rowCursor struct {
	rows    *sql.Rows
	current core.MemoryEntry
	err     error
}

func (c *rowCursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		return false
	}
	var (
		e          core.MemoryEntry
		inputJSON  sql.NullString
		outputJSON sql.NullString
		status     string
		durationMS int64
	)
	c.err = c.rows.Scan(
		&e.ID, &e.SubjectID, &e.AgentType, &e.SessionID, &inputJSON, &outputJSON,
		&e.Insights, &status, &e.Error, &durationMS, &e.TokenCount, &e.CreatedAt,
	)
	if c.err != nil {
		return false
	}
	e.Status = core.Status(status)
	e.Duration = time.Duration(durationMS) * time.Millisecond
	e.Input = unmarshalOrNil(inputJSON)
	e.Output = unmarshalOrNil(outputJSON)
	c.current = e
	return true
}

func (c *rowCursor) Entry() core.MemoryEntry { return c.current }

func (c *rowCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *rowCursor) Close() error { return c.rows.Close() }

func marshalOrEmpty(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(raw)
}

func unmarshalOrNil(s sql.NullString) map[string]any {
	if !s.Valid || s.String == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil
	}
	return m
}
