package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yyyoichi/emeans/internal/evolution"
	"github.com/yyyoichi/emeans/internal/snapshot"
	"gonum.org/v1/gonum/mat"
)

var ErrNotFound = errors.New("store: not found")

// CreateRun inserts r with a fresh identifier and returns it. StartedAt
// defaults to now.
func (d *DB) CreateRun(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, data_file, n_rows, n_cols, clusters, population,
			max_generations, mutation, crossover, seed, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UnixMilli(), r.DataFile, r.Rows, r.Cols, r.Clusters, r.Population,
		r.MaxGenerations, r.Mutation, r.Crossover, int64(r.Seed), StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return r.ID, nil
}

// FinishRun stamps the run's end time and final status
func (d *DB) FinishRun(ctx context.Context, id, status string) error {
	res, err := d.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, status = ? WHERE id = ?",
		time.Now().UnixMilli(), status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	return nil
}

// GetRun returns the run with the given id
func (d *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	var (
		r        Run
		started  int64
		finished sql.NullInt64
		seed     int64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, data_file, n_rows, n_cols, clusters, population,
			max_generations, mutation, crossover, seed, status
		FROM runs WHERE id = ?`, id,
	).Scan(
		&r.ID, &started, &finished, &r.DataFile, &r.Rows, &r.Cols, &r.Clusters, &r.Population,
		&r.MaxGenerations, &r.Mutation, &r.Crossover, &seed, &r.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	r.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		t := time.UnixMilli(finished.Int64)
		r.FinishedAt = &t
	}
	r.Seed = uint64(seed)
	return &r, nil
}

// ListRunIDs returns run identifiers, oldest first
func (d *DB) ListRunIDs(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT id FROM runs ORDER BY started_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertBest stores an improvement of the run's best solution. Labels are
// bit-packed with the given snapshot options.
func (d *DB) InsertBest(ctx context.Context, runID string, b *evolution.Best, opts ...snapshot.Option) (int64, error) {
	k, _ := b.Centroids.Dims()
	packed, err := snapshot.Encode(b.Labels, k, opts...)
	if err != nil {
		return 0, err
	}
	result, err := d.db.ExecContext(ctx, `
		INSERT INTO best_solutions (run_id, generation, slot, fitness, centroids,
			labels, labels_bits, labels_width, labels_codec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, b.Generation, b.Index, b.Fitness, Float64SliceToBytes(b.Centroids.RawMatrix().Data),
		Uint64SliceToBytes(packed.Data), packed.Bits, packed.Width, packed.Codec.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert best solution: %w", err)
	}
	return result.LastInsertId()
}

// LatestBest returns the most recent improvement of a run, which is also
// its highest fitness.
func (d *DB) LatestBest(ctx context.Context, runID string) (*Solution, error) {
	var (
		s         Solution
		centroids []byte
		labels    []byte
		bits      int
		width     int
		codec     string
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT b.id, b.run_id, b.generation, b.slot, b.fitness, b.centroids,
			b.labels, b.labels_bits, b.labels_width, b.labels_codec, r.n_rows, r.n_cols
		FROM best_solutions b
		JOIN runs r ON b.run_id = r.id
		WHERE b.run_id = ?
		ORDER BY b.generation DESC
		LIMIT 1`, runID,
	).Scan(
		&s.ID, &s.RunID, &s.Generation, &s.Slot, &s.Fitness, &centroids,
		&labels, &bits, &width, &codec, &s.Rows, &s.Cols,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: best solution of run %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query best solution: %w", err)
	}

	s.Centroids = BytesToFloat64Slice(centroids)
	p := snapshot.Packed{
		Data:  BytesToUint64Slice(labels),
		Bits:  bits,
		N:     s.Rows,
		K:     len(s.Centroids) / s.Cols,
		Width: width,
	}
	if codec == snapshot.Golay.String() {
		p.Codec = snapshot.Golay
	}
	if s.Labels, err = snapshot.Decode(p); err != nil {
		return nil, err
	}
	return &s, nil
}

// CentroidMatrix returns the stored centroids as a K×C matrix.
func (s *Solution) CentroidMatrix() *mat.Dense {
	return mat.NewDense(len(s.Centroids)/s.Cols, s.Cols, s.Centroids)
}

// CountBest returns the number of stored improvements of a run
func (d *DB) CountBest(ctx context.Context, runID string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM best_solutions WHERE run_id = ?", runID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count best solutions: %w", err)
	}
	return n, nil
}

// Recorder writes every improvement of one run to the database.
type Recorder struct {
	db    *DB
	runID string
	opts  []snapshot.Option
}

func NewRecorder(db *DB, runID string, opts ...snapshot.Option) *Recorder {
	return &Recorder{db: db, runID: runID, opts: opts}
}

func (r *Recorder) Write(b *evolution.Best) error {
	_, err := r.db.InsertBest(context.Background(), r.runID, b, r.opts...)
	return err
}

func (r *Recorder) RunID() string { return r.runID }
