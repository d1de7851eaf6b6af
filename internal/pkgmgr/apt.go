package pkgmgr

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// dpkgFormat selects the dpkg-query columns parsed by parseDpkgQuery.
const dpkgFormat = "${Package}\t${Version}\t${Architecture}\t${db:Status-Status}\n"

// Apt option keys that are not rendered inside the [...] option block.
const (
	aptOptSuite      = "suite"
	aptOptComponents = "components"
	aptOptType       = "type"
)

// Apt drives dpkg/apt-get. Each repository is a <name>.list file in the
// sources directory.
type Apt struct {
	runner     Runner
	logger     hclog.Logger
	sourcesDir string
	stateDir   string
}

func newApt(opts Options) *Apt {
	return &Apt{
		runner:     opts.Runner,
		logger:     opts.Logger.Named("apt"),
		sourcesDir: opts.AptSourcesDir,
		stateDir:   opts.AptStateDir,
	}
}

// Name implements Manager.
func (a *Apt) Name() string { return "apt" }

// ListInstalledPackages returns packages dpkg reports as installed.
func (a *Apt) ListInstalledPackages(ctx context.Context) (Packages, error) {
	output, err := a.runner.Run(ctx, "dpkg-query", "-W", "-f="+dpkgFormat)
	if err != nil {
		return nil, fmt.Errorf("dpkg-query failed: %w", err)
	}
	return parseDpkgQuery(string(output)), nil
}

func parseDpkgQuery(output string) Packages {
	pkgs := make(Packages)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) < 4 || fields[0] == "" {
			continue
		}
		if fields[3] != "installed" {
			continue
		}
		pkgs[fields[0]] = PackageInfo{Version: fields[1], Arch: fields[2]}
	}
	return pkgs
}

// ListRepositories parses every *.list file in the sources directory.
// A missing directory means no repositories.
func (a *Apt) ListRepositories(ctx context.Context) (Repos, error) {
	entries, err := os.ReadDir(a.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return Repos{}, nil
		}
		return nil, fmt.Errorf("failed to read sources directory: %w", err)
	}

	repos := make(Repos)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".list") {
			continue
		}

		path := filepath.Join(a.sourcesDir, entry.Name())
		info, ok, err := readSourceFile(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			a.logger.Debug("skipping source file without entries", "path", path)
			continue
		}
		repos[strings.TrimSuffix(entry.Name(), ".list")] = info
	}
	return repos, nil
}

// readSourceFile returns the first deb/deb-src entry of a list file. A
// commented-out entry yields a disabled repository.
func readSourceFile(path string) (RepoInfo, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return RepoInfo{}, false, fmt.Errorf("failed to open source file %s: %w", path, err)
	}
	defer f.Close()

	var disabled *RepoInfo
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		enabled := true
		if strings.HasPrefix(line, "#") {
			enabled = false
			line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		}

		info, ok := parseSourceLine(line)
		if !ok {
			continue
		}
		if enabled {
			info.Enabled = true
			return info, true, nil
		}
		if disabled == nil {
			disabled = &info
		}
	}

	if err := scanner.Err(); err != nil {
		return RepoInfo{}, false, fmt.Errorf("failed to read source file %s: %w", path, err)
	}
	if disabled != nil {
		return *disabled, true, nil
	}
	return RepoInfo{}, false, nil
}

// parseSourceLine parses a one-line-style entry:
//
//	deb [arch=amd64 signed-by=/usr/share/keyrings/x.gpg] https://example.org/apt stable main contrib
func parseSourceLine(line string) (RepoInfo, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || (fields[0] != "deb" && fields[0] != "deb-src") {
		return RepoInfo{}, false
	}

	info := RepoInfo{Options: map[string]string{}}
	if fields[0] == "deb-src" {
		info.Options[aptOptType] = "deb-src"
	}
	fields = fields[1:]

	if strings.HasPrefix(fields[0], "[") {
		end := -1
		for i, f := range fields {
			if strings.HasSuffix(f, "]") {
				end = i
				break
			}
		}
		if end < 0 {
			return RepoInfo{}, false
		}
		for _, opt := range fields[:end+1] {
			opt = strings.Trim(opt, "[]")
			if k, v, ok := strings.Cut(opt, "="); ok {
				info.Options[k] = v
			}
		}
		fields = fields[end+1:]
	}

	if len(fields) < 2 {
		return RepoInfo{}, false
	}
	info.URL = fields[0]
	info.Options[aptOptSuite] = fields[1]
	if len(fields) > 2 {
		info.Options[aptOptComponents] = strings.Join(fields[2:], " ")
	}
	return info, true
}

// formatSourceLine is the inverse of parseSourceLine.
func formatSourceLine(info RepoInfo) string {
	var sb strings.Builder

	if !info.Enabled {
		sb.WriteString("# ")
	}
	if info.Options[aptOptType] == "deb-src" {
		sb.WriteString("deb-src")
	} else {
		sb.WriteString("deb")
	}

	var opts []string
	for k, v := range info.Options {
		if k == aptOptSuite || k == aptOptComponents || k == aptOptType {
			continue
		}
		opts = append(opts, k+"="+v)
	}
	if len(opts) > 0 {
		sort.Strings(opts)
		sb.WriteString(" [" + strings.Join(opts, " ") + "]")
	}

	sb.WriteString(" " + info.URL)
	if suite := info.Options[aptOptSuite]; suite != "" {
		sb.WriteString(" " + suite)
	}
	if comps := info.Options[aptOptComponents]; comps != "" {
		sb.WriteString(" " + comps)
	}
	return sb.String()
}

// InstallPackage installs name=version, falling back to the candidate
// version when the pinned one is no longer in the archive.
func (a *Apt) InstallPackage(ctx context.Context, name string, info PackageInfo) error {
	target := name
	if info.Version != "" {
		target = name + "=" + info.Version
	}

	if _, err := a.runner.Run(ctx, "apt-get", "install", "-y", "-q", target); err != nil {
		if target == name {
			return fmt.Errorf("apt-get install %s failed: %w", name, err)
		}

		a.logger.Warn("pinned version not available, installing candidate",
			"package", name, "version", info.Version)
		if _, err := a.runner.Run(ctx, "apt-get", "install", "-y", "-q", name); err != nil {
			return fmt.Errorf("apt-get install %s failed: %w", name, err)
		}
	}
	return nil
}

// RemovePackage removes a package via apt-get remove.
func (a *Apt) RemovePackage(ctx context.Context, name string) error {
	if _, err := a.runner.Run(ctx, "apt-get", "remove", "-y", "-q", name); err != nil {
		return fmt.Errorf("apt-get remove %s failed: %w", name, err)
	}
	return nil
}

// AddRepository writes <name>.list into the sources directory and refreshes
// the package index so packages from it can be installed right away.
func (a *Apt) AddRepository(ctx context.Context, name string, info RepoInfo) error {
	if info.URL == "" {
		return fmt.Errorf("repository %s has no URL", name)
	}
	if err := os.MkdirAll(a.sourcesDir, 0755); err != nil {
		return fmt.Errorf("failed to create sources directory: %w", err)
	}

	path := a.sourcePath(name)
	if err := os.WriteFile(path, []byte(formatSourceLine(info)+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write source file %s: %w", path, err)
	}

	if _, err := a.runner.Run(ctx, "apt-get", "update", "-q"); err != nil {
		return fmt.Errorf("apt-get update after adding %s failed: %w", name, err)
	}
	return nil
}

// RemoveRepository deletes <name>.list from the sources directory.
func (a *Apt) RemoveRepository(ctx context.Context, name string) error {
	path := a.sourcePath(name)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove source file %s: %w", path, err)
	}
	return nil
}

func (a *Apt) sourcePath(name string) string {
	return filepath.Join(a.sourcesDir, name+".list")
}

// StatePaths returns the dpkg database and sources directories.
func (a *Apt) StatePaths(ctx context.Context) ([]string, error) {
	return []string{a.stateDir, a.sourcesDir}, nil
}
