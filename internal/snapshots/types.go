package snapshots

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/blackwell-systems/freezer/internal/pkgmgr"
	"github.com/blackwell-systems/freezer/internal/store"
)

// DefaultName is the file prefix used when a snapshot is not named.
const DefaultName = "freezer"

// Snapshot is the stored state of a host.
type Snapshot struct {
	Name     string
	Packages pkgmgr.Packages
	Repos    pkgmgr.Repos
}

// ItemChanges lists item names added and removed, in lexical order.
type ItemChanges struct {
	Add    []string `json:"add" yaml:"add"`
	Remove []string `json:"remove" yaml:"remove"`
}

// DiffResult is the outcome of a restore. Items that failed to apply are
// not listed under pkgs/repos; their error messages are in Comment.
type DiffResult struct {
	Pkgs    ItemChanges `json:"pkgs" yaml:"pkgs"`
	Repos   ItemChanges `json:"repos" yaml:"repos"`
	Comment []string    `json:"comment" yaml:"comment"`
}

func newDiffResult() *DiffResult {
	return &DiffResult{
		Pkgs:    ItemChanges{Add: []string{}, Remove: []string{}},
		Repos:   ItemChanges{Add: []string{}, Remove: []string{}},
		Comment: []string{},
	}
}

// Empty reports whether nothing was (or would be) changed.
func (r *DiffResult) Empty() bool {
	return len(r.Pkgs.Add)+len(r.Pkgs.Remove)+len(r.Repos.Add)+len(r.Repos.Remove) == 0
}

// Failed reports whether any item could not be applied.
func (r *DiffResult) Failed() bool {
	return len(r.Comment) > 0
}

// RestoreOptions controls Restore.
type RestoreOptions struct {
	// Clean deletes the snapshot files after a restore with no failures.
	Clean bool
	// DryRun only computes the changes; nothing is applied or cleaned.
	DryRun bool
}

// Recorder receives an audit record for every operation.
type Recorder interface {
	RecordOperation(op *store.Operation) error
}

// Options configures a Manager.
type Options struct {
	// CacheDir is the root cache directory; snapshots live in CacheDir/freezer.
	CacheDir string
	// Ignore holds doublestar patterns of package and repository names that
	// are neither captured nor reconciled.
	Ignore   []string
	Logger   hclog.Logger
	Recorder Recorder
	Now      func() time.Time
}

// Manager freezes, restores and compares snapshots.
type Manager struct {
	pm       pkgmgr.Manager
	dir      string
	ignore   []string
	logger   hclog.Logger
	recorder Recorder
	now      func() time.Time
}
