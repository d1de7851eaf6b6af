// Package snapshots freezes the installed packages and configured
// repositories of a host into named snapshots, and restores the host back
// to a snapshot by installing what is missing and removing what is extra.
//
// A snapshot is two YAML files in the freezer cache directory:
//
//	<name>-pkgs.yml   installed packages
//	<name>-reps.yml   configured repositories
//
// An unnamed snapshot uses the name "freezer".
package snapshots

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-hclog"

	"github.com/blackwell-systems/freezer/internal/pkgmgr"
	"github.com/blackwell-systems/freezer/internal/store"
)

// New creates a new snapshot Manager backed by pm.
func New(pm pkgmgr.Manager, opts Options) (*Manager, error) {
	if pm == nil {
		return nil, fmt.Errorf("package manager cannot be nil")
	}
	if opts.CacheDir == "" {
		return nil, fmt.Errorf("%w: cache directory is not set", ErrConfiguration)
	}
	for _, pattern := range opts.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: invalid ignore pattern %q", ErrConfiguration, pattern)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{
		pm:       pm,
		dir:      filepath.Join(opts.CacheDir, "freezer"),
		ignore:   opts.Ignore,
		logger:   logger.Named("snapshots"),
		recorder: opts.Recorder,
		now:      now,
	}, nil
}

// Backend returns the name of the package manager in use.
func (m *Manager) Backend() string {
	return m.pm.Name()
}

// ignored reports whether name matches an ignore pattern.
func (m *Manager) ignored(name string) bool {
	for _, pattern := range m.ignore {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (m *Manager) filterPackages(pkgs pkgmgr.Packages) pkgmgr.Packages {
	out := make(pkgmgr.Packages, len(pkgs))
	for name, info := range pkgs {
		if !m.ignored(name) {
			out[name] = info
		}
	}
	return out
}

func (m *Manager) filterRepos(repos pkgmgr.Repos) pkgmgr.Repos {
	out := make(pkgmgr.Repos, len(repos))
	for name, info := range repos {
		if !m.ignored(name) {
			out[name] = info
		}
	}
	return out
}

// record writes an audit entry. Failing to record never fails the operation.
func (m *Manager) record(op *store.Operation) {
	if m.recorder == nil {
		return
	}
	op.Backend = m.pm.Name()
	op.FinishedAt = m.now()
	if err := m.recorder.RecordOperation(op); err != nil {
		m.logger.Warn("failed to record operation", "kind", op.Kind, "snapshot", op.Snapshot, "error", err)
	}
}

func resolveName(name string) string {
	if name == "" {
		return DefaultName
	}
	return name
}
