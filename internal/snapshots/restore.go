package snapshots

import (
	"context"
	"fmt"
	"strings"

	"github.com/blackwell-systems/freezer/internal/pkgmgr"
	"github.com/blackwell-systems/freezer/internal/store"
)

// Restore reconciles the host toward the named snapshot.
//
// Changes are applied in an order that keeps packages installable: missing
// repositories are added, then missing packages installed, then extra
// packages removed, then extra repositories removed. Live state is re-read
// before each step. A failing item is reported in the result's Comment and
// does not stop the restore.
func (m *Manager) Restore(ctx context.Context, name string, opts RestoreOptions) (*DiffResult, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	name = resolveName(name)

	if !m.Status(name) {
		return nil, &notFoundError{name: name}
	}

	snap, err := m.Load(name)
	if err != nil {
		return nil, err
	}

	kind := store.KindRestore
	if opts.DryRun {
		kind = store.KindDryRun
	}
	op := &store.Operation{Kind: kind, Snapshot: name, StartedAt: m.now(), Status: store.StatusFailed}

	var res *DiffResult
	if opts.DryRun {
		res, err = m.plan(ctx, snap)
	} else {
		res, err = m.apply(ctx, snap)
	}
	if err != nil {
		op.Comment = err.Error()
		m.record(op)
		return res, err
	}

	if opts.Clean && !opts.DryRun && !res.Failed() {
		if err := m.Remove(name); err != nil {
			op.Comment = err.Error()
			m.record(op)
			return res, err
		}
		m.logger.Info("removed snapshot files", "snapshot", name)
		m.record(&store.Operation{Kind: store.KindClean, Snapshot: name, StartedAt: m.now(), Status: store.StatusOK})
	}

	op.Status = store.StatusOK
	if res.Failed() {
		op.Status = store.StatusPartial
		op.Comment = strings.Join(res.Comment, "\n")
	}
	op.PkgsAdded = len(res.Pkgs.Add)
	op.PkgsRemoved = len(res.Pkgs.Remove)
	op.ReposAdded = len(res.Repos.Add)
	op.ReposRemoved = len(res.Repos.Remove)
	m.record(op)

	return res, nil
}

// Drift returns the changes a restore of the named snapshot would make,
// without applying or recording anything.
func (m *Manager) Drift(ctx context.Context, name string) (*DiffResult, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if !m.Status(name) {
		return nil, &notFoundError{name: resolveName(name)}
	}
	snap, err := m.Load(name)
	if err != nil {
		return nil, err
	}
	return m.plan(ctx, snap)
}

func (m *Manager) plan(ctx context.Context, snap *Snapshot) (*DiffResult, error) {
	res := newDiffResult()

	repos, err := m.liveRepos(ctx)
	if err != nil {
		return res, err
	}
	pkgs, err := m.livePackages(ctx)
	if err != nil {
		return res, err
	}

	res.Repos.Add, res.Repos.Remove = Diff(snap.Repos, repos)
	res.Pkgs.Add, res.Pkgs.Remove = Diff(snap.Packages, pkgs)
	return res, nil
}

func (m *Manager) apply(ctx context.Context, snap *Snapshot) (*DiffResult, error) {
	res := newDiffResult()

	// Add missing repositories
	repos, err := m.liveRepos(ctx)
	if err != nil {
		return res, err
	}
	missingRepos, _ := Diff(snap.Repos, repos)
	for _, repo := range missingRepos {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := m.pm.AddRepository(ctx, repo, snap.Repos[repo]); err != nil {
			m.fail(res, "Error adding %s repository: %v", repo, err)
			continue
		}
		res.Repos.Add = append(res.Repos.Add, repo)
		m.logger.Info("added missing repository", "repo", repo)
	}

	// Add missing packages
	pkgs, err := m.livePackages(ctx)
	if err != nil {
		return res, err
	}
	missingPkgs, _ := Diff(snap.Packages, pkgs)
	for _, pkg := range missingPkgs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := m.pm.InstallPackage(ctx, pkg, snap.Packages[pkg]); err != nil {
			m.fail(res, "Error adding %s package: %v", pkg, err)
			continue
		}
		res.Pkgs.Add = append(res.Pkgs.Add, pkg)
		m.logger.Info("added missing package", "package", pkg)
	}

	// Remove extra packages
	pkgs, err = m.livePackages(ctx)
	if err != nil {
		return res, err
	}
	_, extraPkgs := Diff(snap.Packages, pkgs)
	for _, pkg := range extraPkgs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := m.pm.RemovePackage(ctx, pkg); err != nil {
			m.fail(res, "Error removing %s package: %v", pkg, err)
			continue
		}
		res.Pkgs.Remove = append(res.Pkgs.Remove, pkg)
		m.logger.Info("removed extra package", "package", pkg)
	}

	// Remove extra repositories
	repos, err = m.liveRepos(ctx)
	if err != nil {
		return res, err
	}
	_, extraRepos := Diff(snap.Repos, repos)
	for _, repo := range extraRepos {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := m.pm.RemoveRepository(ctx, repo); err != nil {
			m.fail(res, "Error removing %s repository: %v", repo, err)
			continue
		}
		res.Repos.Remove = append(res.Repos.Remove, repo)
		m.logger.Info("removed extra repository", "repo", repo)
	}

	return res, nil
}

func (m *Manager) fail(res *DiffResult, format, item string, err error) {
	msg := fmt.Sprintf(format, item, err)
	m.logger.Error(msg)
	res.Comment = append(res.Comment, msg)
}

// livePackages lists installed packages, minus ignored names.
func (m *Manager) livePackages(ctx context.Context) (pkgmgr.Packages, error) {
	pkgs, err := m.pm.ListInstalledPackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list packages: %w", ErrExecution, err)
	}
	return m.filterPackages(pkgs), nil
}

// liveRepos lists configured repositories, minus ignored names.
func (m *Manager) liveRepos(ctx context.Context) (pkgmgr.Repos, error) {
	repos, err := m.pm.ListRepositories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list repositories: %w", ErrExecution, err)
	}
	return m.filterRepos(repos), nil
}
