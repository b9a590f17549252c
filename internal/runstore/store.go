// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runstore persists finished research runs in SQLite so aggregates
// can be listed, inspected, and exported after the process exits.
package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/company-research/pkg/types"
)

const dbFile = "runs.db"

// ErrNotFound is returned when a run ID is not in the store.
var ErrNotFound = errors.New("run not found")

// Store manages the run database.
type Store struct {
	db  *sql.DB
	dir string
}

// Open opens or creates the run database at cfg.Dir/runs.db and creates the
// schema if it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database and exports.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			company TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			state TEXT NOT NULL,
			cause TEXT,
			rounds_executed INTEGER,
			gaps_detected INTEGER,
			gaps_filled INTEGER,
			fields_populated INTEGER,
			aggregate TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_company ON runs(company)`,
		`CREATE TABLE IF NOT EXISTS topic_results (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			topic TEXT NOT NULL,
			status TEXT NOT NULL,
			confidence REAL,
			converged_round INTEGER,
			failures INTEGER,
			record TEXT,
			PRIMARY KEY (run_id, topic)
		)`,
		`CREATE TABLE IF NOT EXISTS sources (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			source TEXT NOT NULL,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS remaining_gaps (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			topic TEXT NOT NULL,
			field TEXT NOT NULL,
			priority INTEGER NOT NULL,
			reason TEXT,
			attempts INTEGER,
			planning_exhausted INTEGER,
			PRIMARY KEY (run_id, topic, field)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gaps_priority ON remaining_gaps(priority)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores agg, replacing any earlier run with the same ID.
func (s *Store) Save(ctx context.Context, agg *types.Aggregate) error {
	if agg == nil || agg.RunID == "" {
		return fmt.Errorf("saving run: aggregate has no run ID")
	}
	blob, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("marshaling aggregate: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, agg.RunID); err != nil {
		return fmt.Errorf("replacing run %s: %w", agg.RunID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, company, started_at, finished_at, state, cause,
			rounds_executed, gaps_detected, gaps_filled, fields_populated, aggregate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agg.RunID, agg.Company,
		agg.StartedAt.UTC().Format(time.RFC3339Nano),
		agg.FinishedAt.UTC().Format(time.RFC3339Nano),
		string(agg.Termination.State), string(agg.Termination.Cause),
		agg.RoundsExecuted, agg.TotalGapsDetected, agg.TotalGapsFilled, agg.FieldsPopulated,
		string(blob),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", agg.RunID, err)
	}

	for _, tr := range agg.Topics {
		rec, err := json.Marshal(tr.Record)
		if err != nil {
			return fmt.Errorf("marshaling %s record: %w", tr.Topic, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO topic_results (run_id, topic, status, confidence, converged_round, failures, record)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			agg.RunID, string(tr.Topic), string(tr.Status), tr.Confidence,
			tr.ConvergedRound, tr.Failures, string(rec),
		); err != nil {
			return fmt.Errorf("inserting %s result: %w", tr.Topic, err)
		}
	}

	for i, src := range agg.Sources {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sources (run_id, position, source) VALUES (?, ?, ?)`,
			agg.RunID, i, src,
		); err != nil {
			return fmt.Errorf("inserting source: %w", err)
		}
	}

	for _, g := range agg.GapsRemaining {
		exhausted := 0
		if g.PlanningExhausted {
			exhausted = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO remaining_gaps (run_id, topic, field, priority, reason, attempts, planning_exhausted)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			agg.RunID, string(g.Topic), g.Field, int(g.Priority), string(g.Reason), g.Attempts, exhausted,
		); err != nil {
			return fmt.Errorf("inserting gap %s.%s: %w", g.Topic, g.Field, err)
		}
	}

	return tx.Commit()
}

// Get returns the stored aggregate for id. A unique ID prefix is accepted.
func (s *Store) Get(ctx context.Context, id string) (*types.Aggregate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, aggregate FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`,
		id, escapeLike(id)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}
	defer rows.Close()

	var matches []string
	var blobs []string
	for rows.Next() {
		var rid, blob string
		if err := rows.Scan(&rid, &blob); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if rid == id {
			matches, blobs = []string{rid}, []string{blob}
			break
		}
		matches = append(matches, rid)
		blobs = append(blobs, blob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
	default:
		return nil, fmt.Errorf("run ID prefix %q is ambiguous", id)
	}

	var agg types.Aggregate
	if err := json.Unmarshal([]byte(blobs[0]), &agg); err != nil {
		return nil, fmt.Errorf("parsing stored run %s: %w", matches[0], err)
	}
	return &agg, nil
}

// Delete removes a run and its child rows.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// RunSummary is one row of List.
type RunSummary struct {
	ID             string               `json:"id" yaml:"id"`
	Company        string               `json:"company" yaml:"company"`
	StartedAt      time.Time            `json:"started_at" yaml:"started_at"`
	FinishedAt     time.Time            `json:"finished_at" yaml:"finished_at"`
	Termination    types.Termination    `json:"termination" yaml:"termination"`
	RoundsExecuted int                  `json:"rounds_executed" yaml:"rounds_executed"`
	GapsDetected   int                  `json:"gaps_detected" yaml:"gaps_detected"`
	GapsFilled     int                  `json:"gaps_filled" yaml:"gaps_filled"`
	FieldsFilled   int                  `json:"fields_populated" yaml:"fields_populated"`
	Remaining      types.PriorityCounts `json:"remaining" yaml:"remaining"`
}

// ListOptions filters List and exports.
type ListOptions struct {
	// Company matches case-insensitively; empty matches all.
	Company string

	// State restricts to CONVERGED or EXHAUSTED runs; empty matches all.
	State types.TerminalState

	// Limit caps the rows returned; zero means 50.
	Limit int
}

// List returns stored runs, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]RunSummary, error) {
	var where []string
	var args []any
	if opts.Company != "" {
		where = append(where, "lower(company) = lower(?)")
		args = append(args, opts.Company)
	}
	if opts.State != "" {
		where = append(where, "state = ?")
		args = append(args, string(opts.State))
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT id, company, started_at, finished_at, state, cause,
		rounds_executed, gaps_detected, gaps_filled, fields_populated FROM runs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY started_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var started, finished, state string
		var cause sql.NullString
		if err := rows.Scan(&r.ID, &r.Company, &started, &finished, &state, &cause,
			&r.RoundsExecuted, &r.GapsDetected, &r.GapsFilled, &r.FieldsFilled); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		r.Termination = types.Termination{
			State: types.TerminalState(state),
			Cause: types.TerminationCause(cause.String),
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for i := range out {
		counts, err := s.remainingCounts(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Remaining = counts
	}
	return out, nil
}

func (s *Store) remainingCounts(ctx context.Context, runID string) (types.PriorityCounts, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT priority, count(*) FROM remaining_gaps WHERE run_id = ? GROUP BY priority`, runID)
	if err != nil {
		return types.PriorityCounts{}, fmt.Errorf("counting gaps for %s: %w", runID, err)
	}
	defer rows.Close()

	var c types.PriorityCounts
	for rows.Next() {
		var p, n int
		if err := rows.Scan(&p, &n); err != nil {
			return c, fmt.Errorf("scanning gap count: %w", err)
		}
		switch types.Priority(p) {
		case types.PriorityCritical:
			c.Critical = n
		case types.PriorityHigh:
			c.High = n
		case types.PriorityMedium:
			c.Medium = n
		default:
			c.Low += n
		}
	}
	return c, rows.Err()
}

// RemainingGaps returns the open gaps of a run at or above minPriority
// (CRITICAL is highest), most urgent first.
func (s *Store) RemainingGaps(ctx context.Context, runID string, minPriority types.Priority) ([]types.GapReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic, field, priority, reason, attempts, planning_exhausted
		FROM remaining_gaps WHERE run_id = ? AND priority <= ?
		ORDER BY priority, topic, field`, runID, int(minPriority))
	if err != nil {
		return nil, fmt.Errorf("querying gaps for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []types.GapReport
	for rows.Next() {
		var g types.GapReport
		var topic, reason string
		var p, exhausted int
		if err := rows.Scan(&topic, &g.Field, &p, &reason, &g.Attempts, &exhausted); err != nil {
			return nil, fmt.Errorf("scanning gap: %w", err)
		}
		g.Topic = types.Topic(topic)
		g.Priority = types.Priority(p)
		g.Reason = types.GapReason(reason)
		g.PlanningExhausted = exhausted != 0
		out = append(out, g)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
