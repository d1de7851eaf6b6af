package pkgmgr

import "sort"

// PackageInfo describes an installed package.
type PackageInfo struct {
	Version string `json:"version" yaml:"version"`
	Arch    string `json:"arch,omitempty" yaml:"arch,omitempty"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty"` // tap or origin archive, when the backend knows it
}

// RepoInfo describes a configured package repository. The fields are
// sufficient to re-add the repository through the same backend.
type RepoInfo struct {
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Enabled bool              `json:"enabled" yaml:"enabled"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Packages maps a package name to its metadata.
type Packages map[string]PackageInfo

// Repos maps a repository name to its metadata.
type Repos map[string]RepoInfo

// Names returns the package names in lexical order.
func (p Packages) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Names returns the repository names in lexical order.
func (r Repos) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
