package snapshots

import (
	"context"
	"fmt"
	"os"

	"github.com/blackwell-systems/freezer/internal/store"
)

// Freeze captures the installed packages and configured repositories into
// the named snapshot. An existing snapshot is only overwritten when force
// is set.
func (m *Manager) Freeze(ctx context.Context, name string, force bool) (*Snapshot, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	name = resolveName(name)
	op := &store.Operation{Kind: store.KindFreeze, Snapshot: name, StartedAt: m.now(), Status: store.StatusFailed}

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		m.logger.Error("failed to create the freezer storage", "path", m.dir, "error", err)
		return nil, fmt.Errorf("%w: failed to create the freezer storage %s: %w", ErrExecution, m.dir, err)
	}

	if m.Status(name) && !force {
		return nil, fmt.Errorf("%w: the snapshot %q is already present, use force to overwrite it", ErrConfiguration, name)
	}

	pkgs, err := m.pm.ListInstalledPackages(ctx)
	if err != nil {
		op.Comment = err.Error()
		m.record(op)
		return nil, fmt.Errorf("%w: failed to list packages: %w", ErrExecution, err)
	}

	repos, err := m.pm.ListRepositories(ctx)
	if err != nil {
		op.Comment = err.Error()
		m.record(op)
		return nil, fmt.Errorf("%w: failed to list repositories: %w", ErrExecution, err)
	}

	snap := &Snapshot{
		Name:     name,
		Packages: m.filterPackages(pkgs),
		Repos:    m.filterRepos(repos),
	}

	if err := m.save(snap); err != nil {
		op.Comment = err.Error()
		m.record(op)
		return nil, err
	}

	m.logger.Info("frozen", "snapshot", name, "packages", len(snap.Packages), "repos", len(snap.Repos))

	op.Status = store.StatusOK
	op.PkgsAdded = len(snap.Packages)
	op.ReposAdded = len(snap.Repos)
	m.record(op)

	return snap, nil
}
