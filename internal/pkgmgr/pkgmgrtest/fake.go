// Package pkgmgrtest provides an in-memory pkgmgr.Manager for tests.
package pkgmgrtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/blackwell-systems/freezer/internal/pkgmgr"
)

// Call records one mutating operation.
type Call struct {
	Op   string // "install", "remove", "add-repo", "remove-repo"
	Name string
}

// Fake keeps packages and repositories in memory. Mutations update that
// state, so a restore converges the same way it would on a real host.
type Fake struct {
	mu sync.Mutex

	Packages pkgmgr.Packages
	Repos    pkgmgr.Repos
	Paths    []string

	// Fail maps "<op>:<name>" to the error that operation returns.
	Fail map[string]error
	// ListErr is returned by both list operations when set.
	ListErr error

	Calls     []Call
	ListCalls int
}

// New returns a Fake seeded with the given state. Nil maps are allowed.
func New(pkgs pkgmgr.Packages, repos pkgmgr.Repos) *Fake {
	if pkgs == nil {
		pkgs = pkgmgr.Packages{}
	}
	if repos == nil {
		repos = pkgmgr.Repos{}
	}
	return &Fake{Packages: pkgs, Repos: repos, Fail: map[string]error{}}
}

// Name implements pkgmgr.Manager.
func (f *Fake) Name() string { return "fake" }

// ListInstalledPackages implements pkgmgr.Manager.
func (f *Fake) ListInstalledPackages(ctx context.Context) (pkgmgr.Packages, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make(pkgmgr.Packages, len(f.Packages))
	for k, v := range f.Packages {
		out[k] = v
	}
	return out, nil
}

// ListRepositories implements pkgmgr.Manager.
func (f *Fake) ListRepositories(ctx context.Context) (pkgmgr.Repos, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ListCalls++
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	out := make(pkgmgr.Repos, len(f.Repos))
	for k, v := range f.Repos {
		out[k] = v
	}
	return out, nil
}

// InstallPackage implements pkgmgr.Manager.
func (f *Fake) InstallPackage(ctx context.Context, name string, info pkgmgr.PackageInfo) error {
	return f.mutate("install", name, func() { f.Packages[name] = info })
}

// RemovePackage implements pkgmgr.Manager.
func (f *Fake) RemovePackage(ctx context.Context, name string) error {
	return f.mutate("remove", name, func() { delete(f.Packages, name) })
}

// AddRepository implements pkgmgr.Manager.
func (f *Fake) AddRepository(ctx context.Context, name string, info pkgmgr.RepoInfo) error {
	return f.mutate("add-repo", name, func() { f.Repos[name] = info })
}

// RemoveRepository implements pkgmgr.Manager.
func (f *Fake) RemoveRepository(ctx context.Context, name string) error {
	return f.mutate("remove-repo", name, func() { delete(f.Repos, name) })
}

// StatePaths implements pkgmgr.Manager.
func (f *Fake) StatePaths(ctx context.Context) ([]string, error) {
	return f.Paths, nil
}

func (f *Fake) mutate(op, name string, apply func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, Call{Op: op, Name: name})
	if err, ok := f.Fail[op+":"+name]; ok {
		return fmt.Errorf("%s %s: %w", op, name, err)
	}
	apply()
	return nil
}

// CallsFor returns the names passed to op, in call order.
func (f *Fake) CallsFor(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	for _, c := range f.Calls {
		if c.Op == op {
			names = append(names, c.Name)
		}
	}
	return names
}

// Runner is a scripted pkgmgr.Runner keyed by the full command line.
type Runner struct {
	mu      sync.Mutex
	Outputs map[string]string
	Errors  map[string]error
	Calls   []string
}

// NewRunner returns an empty scripted runner.
func NewRunner() *Runner {
	return &Runner{Outputs: map[string]string{}, Errors: map[string]error{}}
}

// Run implements pkgmgr.Runner. Unscripted commands succeed with no output.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := name
	for _, a := range args {
		line += " " + a
	}
	r.Calls = append(r.Calls, line)

	if err, ok := r.Errors[line]; ok {
		return nil, err
	}
	return []byte(r.Outputs[line]), nil
}
