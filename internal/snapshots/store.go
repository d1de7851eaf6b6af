package snapshots

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blackwell-systems/freezer/internal/pkgmgr"
)

const (
	pkgsSuffix  = "-pkgs.yml"
	reposSuffix = "-reps.yml"
)

// Dir returns the directory holding snapshot files.
func (m *Manager) Dir() string {
	return m.dir
}

// Paths returns the package and repository file paths of a snapshot.
func (m *Manager) Paths(name string) (pkgsPath, reposPath string) {
	name = resolveName(name)
	return filepath.Join(m.dir, name+pkgsSuffix), filepath.Join(m.dir, name+reposSuffix)
}

// validateName rejects names that would escape the snapshot directory.
func validateName(name string) error {
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: invalid snapshot name %q", ErrConfiguration, name)
	}
	return nil
}

// Status reports whether the snapshot exists, i.e. both of its files are
// present.
func (m *Manager) Status(name string) bool {
	if validateName(name) != nil {
		return false
	}
	pkgsPath, reposPath := m.Paths(name)
	for _, path := range []string{pkgsPath, reposPath} {
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			return false
		}
	}
	return true
}

// List returns the names of all snapshots, sorted. Only names with both
// files present are listed; a missing directory yields an empty list.
func (m *Manager) List() ([]string, error) {
	names := []string{}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return names, nil
		}
		return nil, fmt.Errorf("%w: failed to read snapshot directory: %w", ErrExecution, err)
	}

	halves := make(map[string]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fname := entry.Name()
		switch {
		case strings.HasSuffix(fname, pkgsSuffix):
			halves[strings.TrimSuffix(fname, pkgsSuffix)]++
		case strings.HasSuffix(fname, reposSuffix):
			halves[strings.TrimSuffix(fname, reposSuffix)]++
		}
	}

	for name, count := range halves {
		if count == 2 && name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	return names, nil
}

// Load reads a snapshot from disk.
func (m *Manager) Load(name string) (*Snapshot, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	pkgsPath, reposPath := m.Paths(name)

	snap := &Snapshot{
		Name:     resolveName(name),
		Packages: pkgmgr.Packages{},
		Repos:    pkgmgr.Repos{},
	}
	if err := readYAML(pkgsPath, &snap.Packages); err != nil {
		return nil, err
	}
	if err := readYAML(reposPath, &snap.Repos); err != nil {
		return nil, err
	}

	// An empty document decodes to a nil map
	if snap.Packages == nil {
		snap.Packages = pkgmgr.Packages{}
	}
	if snap.Repos == nil {
		snap.Repos = pkgmgr.Repos{}
	}

	return snap, nil
}

// save writes both files of a snapshot.
func (m *Manager) save(snap *Snapshot) error {
	pkgsPath, reposPath := m.Paths(snap.Name)

	if err := writeYAML(pkgsPath, snap.Packages); err != nil {
		return err
	}
	return writeYAML(reposPath, snap.Repos)
}

// Remove deletes both files of a snapshot.
func (m *Manager) Remove(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	pkgsPath, reposPath := m.Paths(name)
	for _, path := range []string{pkgsPath, reposPath} {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("%w: failed to delete snapshot file %s: %w", ErrExecution, path, err)
		}
	}
	return nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read snapshot file: %w", ErrExecution, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: failed to parse snapshot file %s: %w", ErrExecution, path, err)
	}
	return nil
}

// writeYAML writes via a temp file and rename so that a crash never leaves
// a truncated snapshot file behind.
func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: failed to encode snapshot file %s: %w", ErrExecution, path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write snapshot file: %w", ErrExecution, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to write snapshot file: %w", ErrExecution, err)
	}
	return nil
}
