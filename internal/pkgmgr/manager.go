// Package pkgmgr wraps the host package manager behind a small capability
// set: listing installed packages and repositories, and adding or removing
// either. Backends shell out to the native tooling through a Runner.
package pkgmgr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Manager is the capability set the freezer needs from a package manager.
type Manager interface {
	// Name returns the backend identifier ("brew", "apt").
	Name() string
	ListInstalledPackages(ctx context.Context) (Packages, error)
	ListRepositories(ctx context.Context) (Repos, error)
	InstallPackage(ctx context.Context, name string, info PackageInfo) error
	RemovePackage(ctx context.Context, name string) error
	AddRepository(ctx context.Context, name string, info RepoInfo) error
	RemoveRepository(ctx context.Context, name string) error
	// StatePaths returns the files and directories whose modification
	// signals a change in installed packages or repositories.
	StatePaths(ctx context.Context) ([]string, error)
}

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args. On failure the returned error carries the
// command line and its stderr.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return output, fmt.Errorf("%s %s failed: %w (stderr: %s)",
			name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}

// Options configures a backend.
type Options struct {
	Runner Runner
	Logger hclog.Logger

	// BrewPrefix overrides `brew --prefix` discovery.
	BrewPrefix string

	// AptSourcesDir holds one <name>.list file per repository.
	AptSourcesDir string
	// AptStateDir is the dpkg database directory.
	AptStateDir string
}

const (
	defaultAptSourcesDir = "/etc/apt/sources.list.d"
	defaultAptStateDir   = "/var/lib/dpkg"
)

// New returns the backend registered under name.
func New(name string, opts Options) (Manager, error) {
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	switch name {
	case "brew":
		return newBrew(opts), nil
	case "apt":
		if opts.AptSourcesDir == "" {
			opts.AptSourcesDir = defaultAptSourcesDir
		}
		if opts.AptStateDir == "" {
			opts.AptStateDir = defaultAptStateDir
		}
		return newApt(opts), nil
	default:
		return nil, fmt.Errorf("unknown package manager backend %q (supported: brew, apt)", name)
	}
}
