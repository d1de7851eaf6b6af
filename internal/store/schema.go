package store

const schema = `
CREATE TABLE IF NOT EXISTS operations (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    snapshot TEXT NOT NULL,
    backend TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    status TEXT NOT NULL,
    pkgs_added INTEGER NOT NULL DEFAULT 0,
    pkgs_removed INTEGER NOT NULL DEFAULT 0,
    repos_added INTEGER NOT NULL DEFAULT 0,
    repos_removed INTEGER NOT NULL DEFAULT 0,
    comment TEXT
);

CREATE TABLE IF NOT EXISTS drift_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    snapshot TEXT NOT NULL,
    detected_at TIMESTAMP NOT NULL,
    pkgs_added INTEGER NOT NULL DEFAULT 0,
    pkgs_removed INTEGER NOT NULL DEFAULT 0,
    repos_added INTEGER NOT NULL DEFAULT 0,
    repos_removed INTEGER NOT NULL DEFAULT 0,
    detail TEXT
);

CREATE INDEX IF NOT EXISTS idx_operations_started ON operations(started_at);
CREATE INDEX IF NOT EXISTS idx_operations_snapshot ON operations(snapshot);
CREATE INDEX IF NOT EXISTS idx_drift_snapshot ON drift_events(snapshot, detected_at);
`
