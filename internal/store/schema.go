package store

const schema = `
-- One row per evolution run
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER,
    data_file TEXT NOT NULL,
    n_rows INTEGER NOT NULL,
    n_cols INTEGER NOT NULL,
    clusters INTEGER NOT NULL,
    population INTEGER NOT NULL,
    max_generations INTEGER NOT NULL,
    mutation REAL NOT NULL,
    crossover REAL NOT NULL,
    seed INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'running'
);

-- Every strict improvement of a run's best solution
CREATE TABLE IF NOT EXISTS best_solutions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    generation INTEGER NOT NULL,
    slot INTEGER NOT NULL,
    fitness REAL NOT NULL,
    centroids BLOB NOT NULL,
    labels BLOB NOT NULL,
    labels_bits INTEGER NOT NULL,
    labels_width INTEGER NOT NULL,
    labels_codec TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE,
    UNIQUE(run_id, generation)
);

CREATE INDEX IF NOT EXISTS idx_best_solutions_run ON best_solutions(run_id, fitness);
`
