package pkgmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// brewInfoOutput represents the structure of `brew info --json=v2 --installed` output
type brewInfoOutput struct {
	Formulae []brewFormula `json:"formulae"`
	Casks    []brewCask    `json:"casks"`
}

// brewFormula represents a Homebrew formula in JSON output
type brewFormula struct {
	Name      string                 `json:"name"`
	FullName  string                 `json:"full_name"`
	Tap       string                 `json:"tap"`
	Installed []brewInstalledVersion `json:"installed"`
}

// brewInstalledVersion represents an installed version
type brewInstalledVersion struct {
	Version string `json:"version"`
}

// brewCask represents a Homebrew cask in JSON output
type brewCask struct {
	Token     string `json:"token"`
	Tap       string `json:"tap"`
	Installed string `json:"installed"`
	Version   string `json:"version"`
}

// brewTap represents an entry of `brew tap-info --json --installed`
type brewTap struct {
	Name      string `json:"name"`
	Remote    string `json:"remote"`
	Installed bool   `json:"installed"`
	Official  bool   `json:"official"`
}

// Brew drives Homebrew. Formulae and casks are packages; taps are repositories.
type Brew struct {
	runner Runner
	logger hclog.Logger
	prefix string
}

func newBrew(opts Options) *Brew {
	return &Brew{
		runner: opts.Runner,
		logger: opts.Logger.Named("brew"),
		prefix: opts.BrewPrefix,
	}
}

// Name implements Manager.
func (b *Brew) Name() string { return "brew" }

// ListInstalledPackages returns all installed formulae and casks.
func (b *Brew) ListInstalledPackages(ctx context.Context) (Packages, error) {
	output, err := b.runner.Run(ctx, "brew", "info", "--json=v2", "--installed")
	if err != nil {
		return nil, fmt.Errorf("brew info failed: %w", err)
	}

	return parseBrewInfo(output)
}

func parseBrewInfo(output []byte) (Packages, error) {
	var info brewInfoOutput
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("failed to parse brew info output: %w", err)
	}

	pkgs := make(Packages, len(info.Formulae)+len(info.Casks))
	for _, formula := range info.Formulae {
		pkg := PackageInfo{Source: formula.Tap}
		if len(formula.Installed) > 0 {
			pkg.Version = formula.Installed[0].Version
		}
		pkgs[formula.Name] = pkg
	}

	for _, cask := range info.Casks {
		version := cask.Installed
		if version == "" {
			version = cask.Version
		}
		pkgs[cask.Token] = PackageInfo{Version: version, Source: cask.Tap}
	}

	return pkgs, nil
}

// ListRepositories returns the installed taps.
func (b *Brew) ListRepositories(ctx context.Context) (Repos, error) {
	output, err := b.runner.Run(ctx, "brew", "tap-info", "--json", "--installed")
	if err != nil {
		return nil, fmt.Errorf("brew tap-info failed: %w", err)
	}

	return parseBrewTaps(output)
}

func parseBrewTaps(output []byte) (Repos, error) {
	var taps []brewTap
	if err := json.Unmarshal(output, &taps); err != nil {
		return nil, fmt.Errorf("failed to parse brew tap-info output: %w", err)
	}

	repos := make(Repos, len(taps))
	for _, tap := range taps {
		repos[tap.Name] = RepoInfo{URL: tap.Remote, Enabled: tap.Installed}
	}
	return repos, nil
}

// InstallPackage installs the recorded version of a package via brew install,
// falling back to the latest version when the pinned one is unavailable.
func (b *Brew) InstallPackage(ctx context.Context, name string, info PackageInfo) error {
	fullName := formatVersioned(name, info.Version)

	if _, err := b.runner.Run(ctx, "brew", "install", fullName); err != nil {
		if fullName == name {
			return fmt.Errorf("brew install %s failed: %w", name, err)
		}

		b.logger.Warn("pinned version not available, installing latest",
			"package", name, "version", info.Version)
		if _, err := b.runner.Run(ctx, "brew", "install", name); err != nil {
			return fmt.Errorf("brew install %s failed: %w", name, err)
		}
	}
	return nil
}

// formatVersioned returns Homebrew's name@version form. Names that already
// carry a version (python@3.12) are used as-is.
func formatVersioned(name, version string) string {
	if version == "" || strings.Contains(name, "@") {
		return name
	}
	return name + "@" + version
}

// RemovePackage removes a package via brew uninstall
func (b *Brew) RemovePackage(ctx context.Context, name string) error {
	if _, err := b.runner.Run(ctx, "brew", "uninstall", name); err != nil {
		return fmt.Errorf("brew uninstall %s failed: %w", name, err)
	}
	return nil
}

// AddRepository taps a repository, using the recorded remote when it is set.
func (b *Brew) AddRepository(ctx context.Context, name string, info RepoInfo) error {
	args := []string{"tap", name}
	if info.URL != "" {
		args = append(args, info.URL)
	}

	if _, err := b.runner.Run(ctx, "brew", args...); err != nil {
		return fmt.Errorf("brew tap %s failed: %w", name, err)
	}
	return nil
}

// RemoveRepository untaps a repository.
func (b *Brew) RemoveRepository(ctx context.Context, name string) error {
	if _, err := b.runner.Run(ctx, "brew", "untap", name); err != nil {
		return fmt.Errorf("brew untap %s failed: %w", name, err)
	}
	return nil
}

// StatePaths returns the Cellar, Caskroom and Taps directories under the
// Homebrew prefix.
func (b *Brew) StatePaths(ctx context.Context) ([]string, error) {
	prefix := b.prefix
	if prefix == "" {
		output, err := b.runner.Run(ctx, "brew", "--prefix")
		if err != nil {
			return nil, fmt.Errorf("brew --prefix failed: %w", err)
		}
		prefix = strings.TrimSpace(string(output))
	}

	return []string{
		filepath.Join(prefix, "Cellar"),
		filepath.Join(prefix, "Caskroom"),
		filepath.Join(prefix, "Library", "Taps"),
	}, nil
}
