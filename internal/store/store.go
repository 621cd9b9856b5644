package store

import (
	"context"
	"fmt"
	"time"

	"github.com/andresmejia3/edgebench/internal/types"
	"github.com/jackc/pgx/v5"
)

// Store keeps a history of benchmark runs in PostgreSQL.
type Store struct {
	conn *pgx.Conn
}

// Run is one stored benchmark.
type Run struct {
	ID               int64
	StartedAt        time.Time
	InputDir         string
	Images           int
	Executor         string
	Workers          int
	Backend          string
	Sequential       time.Duration
	Parallel         time.Duration
	SequentialFailed int
	ParallelFailed   int
}

// Speedup is sequential/parallel, or 0 when the parallel time is degenerate.
func (r Run) Speedup() float64 {
	if r.Parallel <= 0 {
		return 0
	}
	return r.Sequential.Seconds() / r.Parallel.Seconds()
}

// New establishes a connection to the database and ensures the schema is initialized.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS benchmark_runs (
			id BIGSERIAL PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			input_dir TEXT NOT NULL,
			images INT NOT NULL,
			executor TEXT NOT NULL,
			workers INT NOT NULL,
			backend TEXT NOT NULL,
			sequential_seconds DOUBLE PRECISION NOT NULL,
			parallel_seconds DOUBLE PRECISION NOT NULL,
			sequential_failed INT NOT NULL DEFAULT 0,
			parallel_failed INT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS benchmark_runs_started_at_idx ON benchmark_runs (started_at DESC);
	`)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// SaveRun records a finished benchmark and returns its ID.
func (s *Store) SaveRun(ctx context.Context, t types.Timing) (int64, error) {
	startedAt := t.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	var id int64
	err := s.conn.QueryRow(ctx, `
		INSERT INTO benchmark_runs (
			started_at, input_dir, images, executor, workers, backend,
			sequential_seconds, parallel_seconds, sequential_failed, parallel_failed
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, startedAt, t.InputDir, t.Images, t.Executor, t.Workers, t.Backend,
		t.Sequential.Seconds(), t.Parallel.Seconds(), t.SequentialFailed, t.ParallelFailed,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save benchmark run: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all of them.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, input_dir, images, executor, workers, backend,
		       sequential_seconds, parallel_seconds, sequential_failed, parallel_failed
		FROM benchmark_runs
		ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var seq, par float64
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.InputDir, &r.Images, &r.Executor, &r.Workers, &r.Backend,
			&seq, &par, &r.SequentialFailed, &r.ParallelFailed); err != nil {
			return nil, err
		}
		r.Sequential = seconds(seq)
		r.Parallel = seconds(par)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Reset drops the history table. The next New recreates it.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `DROP TABLE IF EXISTS benchmark_runs CASCADE;`)
	return err
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
