package store

import "time"

// Operation kinds.
const (
	KindFreeze  = "freeze"
	KindRestore = "restore"
	KindDryRun  = "dry-run"
	KindClean   = "clean"
)

// Operation statuses.
const (
	StatusOK      = "ok"
	StatusPartial = "partial" // restore finished with per-item failures
	StatusFailed  = "failed"
)

// Operation is one audited freezer operation.
type Operation struct {
	ID           string    `json:"id" yaml:"id"`
	Kind         string    `json:"kind" yaml:"kind"`
	Snapshot     string    `json:"snapshot" yaml:"snapshot"`
	Backend      string    `json:"backend" yaml:"backend"`
	StartedAt    time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time `json:"finished_at" yaml:"finished_at"`
	Status       string    `json:"status" yaml:"status"`
	PkgsAdded    int       `json:"pkgs_added" yaml:"pkgs_added"`
	PkgsRemoved  int       `json:"pkgs_removed" yaml:"pkgs_removed"`
	ReposAdded   int       `json:"repos_added" yaml:"repos_added"`
	ReposRemoved int       `json:"repos_removed" yaml:"repos_removed"`
	Comment      string    `json:"comment" yaml:"comment"`
}

// Duration returns how long the operation ran.
func (o *Operation) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

// DriftEvent records a difference between the live host and a snapshot.
type DriftEvent struct {
	ID           int64     `json:"id" yaml:"id"`
	Snapshot     string    `json:"snapshot" yaml:"snapshot"`
	DetectedAt   time.Time `json:"detected_at" yaml:"detected_at"`
	PkgsAdded    int       `json:"pkgs_added" yaml:"pkgs_added"`
	PkgsRemoved  int       `json:"pkgs_removed" yaml:"pkgs_removed"`
	ReposAdded   int       `json:"repos_added" yaml:"repos_added"`
	ReposRemoved int       `json:"repos_removed" yaml:"repos_removed"`
	Detail       string    `json:"detail" yaml:"detail"`
}
