package runlog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/camtransforms/internal/timeutil"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run is one recorded conversion.
type Run struct {
	RunID      string
	Source     string
	Target     string
	Mode       string
	FrameCount int
	// Up is the averaged up direction; zero in direct mode.
	Up        r3.Vec
	CreatedAt int64 // unix nanoseconds
}

// Created returns CreatedAt as a time.
func (r *Run) Created() time.Time {
	return time.Unix(0, r.CreatedAt)
}

// Store persists runs.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewStore creates a Store on an already migrated database.
func NewStore(db *DB) *Store {
	return &Store{db: db.DB, clock: timeutil.RealClock{}}
}

// WithClock replaces the clock used for timestamps and busy backoff.
func (s *Store) WithClock(c timeutil.Clock) *Store {
	s.clock = c
	return s
}

// Insert records run. An empty RunID is replaced with a new UUID and a
// zero CreatedAt with the current time.
func (s *Store) Insert(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.clock.Now().UnixNano()
	}
	return retryOnBusy(s.clock, func() error {
		_, err := s.db.Exec(`
			INSERT INTO conversion_runs (
				run_id, source, target, mode, frame_count,
				up_x, up_y, up_z, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Source, run.Target, run.Mode, run.FrameCount,
			run.Up.X, run.Up.Y, run.Up.Z, run.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return nil
	})
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]*Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, source, target, mode, frame_count,
		       up_x, up_y, up_z, created_at
		FROM conversion_runs
		ORDER BY created_at DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns a single run by ID.
func (s *Store) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, source, target, mode, frame_count,
		       up_x, up_y, up_z, created_at
		FROM conversion_runs
		WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	err := sc.Scan(
		&r.RunID, &r.Source, &r.Target, &r.Mode, &r.FrameCount,
		&r.Up.X, &r.Up.Y, &r.Up.Z, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan run row: %w", err)
	}
	return &r, nil
}
