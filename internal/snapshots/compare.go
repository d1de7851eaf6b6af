package snapshots

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/blackwell-systems/freezer/internal/pkgmgr"
)

// Change kinds reported by Compare.
const (
	ChangeUpgrade   = "upgrade"
	ChangeDowngrade = "downgrade"
	ChangeModified  = "changed"
)

// Change is an item present in both snapshots whose recorded details differ.
type Change struct {
	Name string `json:"name" yaml:"name"`
	Old  string `json:"old" yaml:"old"`
	New  string `json:"new" yaml:"new"`
	Kind string `json:"kind" yaml:"kind"`
}

// CompareChanges lists what moving from the old snapshot to the new one
// adds, removes and changes.
type CompareChanges struct {
	Add    []string `json:"add" yaml:"add"`
	Remove []string `json:"remove" yaml:"remove"`
	Change []Change `json:"change" yaml:"change"`
}

// CompareResult is the difference between two snapshots.
type CompareResult struct {
	Old   string         `json:"old" yaml:"old"`
	New   string         `json:"new" yaml:"new"`
	Pkgs  CompareChanges `json:"pkgs" yaml:"pkgs"`
	Repos CompareChanges `json:"repos" yaml:"repos"`
}

// Empty reports whether the two snapshots are identical.
func (r *CompareResult) Empty() bool {
	return len(r.Pkgs.Add)+len(r.Pkgs.Remove)+len(r.Pkgs.Change)+
		len(r.Repos.Add)+len(r.Repos.Remove)+len(r.Repos.Change) == 0
}

// CompareArgs validates that exactly two snapshot names were given.
func CompareArgs(args []string) (oldName, newName string, err error) {
	if len(args) != 2 {
		return "", "", fmt.Errorf("%w: compare takes exactly two snapshot names, got %d", ErrArity, len(args))
	}
	return args[0], args[1], nil
}

// Compare reports the differences between two stored snapshots. Both must
// exist.
func (m *Manager) Compare(oldName, newName string) (*CompareResult, error) {
	oldSnap, err := m.loadExisting(oldName)
	if err != nil {
		return nil, err
	}
	newSnap, err := m.loadExisting(newName)
	if err != nil {
		return nil, err
	}

	res := &CompareResult{Old: oldSnap.Name, New: newSnap.Name}

	res.Pkgs.Remove, res.Pkgs.Add = Diff(oldSnap.Packages, newSnap.Packages)
	res.Pkgs.Change = []Change{}
	for _, name := range oldSnap.Packages.Names() {
		newPkg, ok := newSnap.Packages[name]
		if !ok {
			continue
		}
		if c, changed := comparePackage(name, oldSnap.Packages[name], newPkg); changed {
			res.Pkgs.Change = append(res.Pkgs.Change, c)
		}
	}

	res.Repos.Remove, res.Repos.Add = Diff(oldSnap.Repos, newSnap.Repos)
	res.Repos.Change = []Change{}
	for _, name := range oldSnap.Repos.Names() {
		newRepo, ok := newSnap.Repos[name]
		if !ok {
			continue
		}
		if c, changed := compareRepo(name, oldSnap.Repos[name], newRepo); changed {
			res.Repos.Change = append(res.Repos.Change, c)
		}
	}

	return res, nil
}

func (m *Manager) loadExisting(name string) (*Snapshot, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if !m.Status(name) {
		return nil, &notFoundError{name: resolveName(name)}
	}
	return m.Load(name)
}

// comparePackage classifies a version change. Versions that do not parse
// as semver are only reported as changed.
func comparePackage(name string, oldPkg, newPkg pkgmgr.PackageInfo) (Change, bool) {
	if oldPkg == newPkg {
		return Change{}, false
	}

	c := Change{Name: name, Old: oldPkg.Version, New: newPkg.Version, Kind: ChangeModified}
	if oldPkg.Version == newPkg.Version {
		c.Old = describePackage(oldPkg)
		c.New = describePackage(newPkg)
		return c, true
	}

	oldV, errOld := semver.NewVersion(oldPkg.Version)
	newV, errNew := semver.NewVersion(newPkg.Version)
	if errOld == nil && errNew == nil {
		switch oldV.Compare(newV) {
		case -1:
			c.Kind = ChangeUpgrade
		case 1:
			c.Kind = ChangeDowngrade
		}
	}
	return c, true
}

func describePackage(p pkgmgr.PackageInfo) string {
	s := p.Version
	if p.Arch != "" {
		s += " " + p.Arch
	}
	if p.Source != "" {
		s += " (" + p.Source + ")"
	}
	return s
}

func compareRepo(name string, oldRepo, newRepo pkgmgr.RepoInfo) (Change, bool) {
	if oldRepo.URL == newRepo.URL && oldRepo.Enabled == newRepo.Enabled && maps.Equal(oldRepo.Options, newRepo.Options) {
		return Change{}, false
	}
	return Change{Name: name, Old: describeRepo(oldRepo), New: describeRepo(newRepo), Kind: ChangeModified}, true
}

// describeRepo renders a repository as "URL [k=v ...] (disabled)", options
// sorted by key.
func describeRepo(r pkgmgr.RepoInfo) string {
	s := r.URL
	if len(r.Options) > 0 {
		opts := make([]string, 0, len(r.Options))
		for _, k := range slices.Sorted(maps.Keys(r.Options)) {
			opts = append(opts, k+"="+r.Options[k])
		}
		s += " [" + strings.Join(opts, " ") + "]"
	}
	if !r.Enabled {
		s += " (disabled)"
	}
	return s
}
