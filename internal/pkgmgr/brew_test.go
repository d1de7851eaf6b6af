package pkgmgr

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// scriptRunner records command lines and replays canned output.
type scriptRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func newScriptRunner() *scriptRunner {
	return &scriptRunner{outputs: map[string]string{}, errs: map[string]error{}}
}

func (r *scriptRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, line)
	if err, ok := r.errs[line]; ok {
		return nil, err
	}
	return []byte(r.outputs[line]), nil
}

const brewInfoJSON = `{
  "formulae": [
    {"name": "node", "full_name": "node", "tap": "homebrew/core", "installed": [{"version": "20.0.0"}]},
    {"name": "jq", "full_name": "jq", "tap": "homebrew/core", "installed": []}
  ],
  "casks": [
    {"token": "firefox", "tap": "homebrew/cask", "installed": "121.0", "version": "122.0"}
  ]
}`

func TestBrewListInstalledPackages(t *testing.T) {
	runner := newScriptRunner()
	runner.outputs["brew info --json=v2 --installed"] = brewInfoJSON

	mgr, err := New("brew", Options{Runner: runner})
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}

	pkgs, err := mgr.ListInstalledPackages(context.Background())
	if err != nil {
		t.Fatalf("ListInstalledPackages failed: %v", err)
	}

	if len(pkgs) != 3 {
		t.Fatalf("Expected 3 packages, got %d", len(pkgs))
	}
	if pkgs["node"].Version != "20.0.0" {
		t.Errorf("Expected node version '20.0.0', got '%s'", pkgs["node"].Version)
	}
	if pkgs["node"].Source != "homebrew/core" {
		t.Errorf("Expected node source 'homebrew/core', got '%s'", pkgs["node"].Source)
	}
	if pkgs["jq"].Version != "" {
		t.Errorf("Expected empty jq version, got '%s'", pkgs["jq"].Version)
	}
	if pkgs["firefox"].Version != "121.0" {
		t.Errorf("Expected installed cask version '121.0', got '%s'", pkgs["firefox"].Version)
	}
}

func TestBrewListInstalledPackagesInvalidJSON(t *testing.T) {
	runner := newScriptRunner()
	runner.outputs["brew info --json=v2 --installed"] = "not json"

	mgr, _ := New("brew", Options{Runner: runner})
	if _, err := mgr.ListInstalledPackages(context.Background()); err == nil {
		t.Error("Expected error for invalid JSON, got nil")
	}
}

func TestBrewListRepositories(t *testing.T) {
	runner := newScriptRunner()
	runner.outputs["brew tap-info --json --installed"] = `[
  {"name": "homebrew/core", "remote": "https://github.com/Homebrew/homebrew-core", "installed": true, "official": true},
  {"name": "user/tools", "remote": "https://example.org/user/homebrew-tools", "installed": true}
]`

	mgr, _ := New("brew", Options{Runner: runner})
	repos, err := mgr.ListRepositories(context.Background())
	if err != nil {
		t.Fatalf("ListRepositories failed: %v", err)
	}

	if len(repos) != 2 {
		t.Fatalf("Expected 2 taps, got %d", len(repos))
	}
	if repos["user/tools"].URL != "https://example.org/user/homebrew-tools" {
		t.Errorf("Unexpected remote: %s", repos["user/tools"].URL)
	}
	if !repos["homebrew/core"].Enabled {
		t.Error("Expected homebrew/core to be enabled")
	}
}

func TestBrewInstallPackage(t *testing.T) {
	tests := []struct {
		name       string
		pkgName    string
		version    string
		failPinned bool
		expectCmds []string
	}{
		{
			name:       "install without version",
			pkgName:    "node",
			expectCmds: []string{"brew install node"},
		},
		{
			name:       "install with version",
			pkgName:    "node",
			version:    "16",
			expectCmds: []string{"brew install node@16"},
		},
		{
			name:       "install with version already in name",
			pkgName:    "python@3.12",
			version:    "3.12.1",
			expectCmds: []string{"brew install python@3.12"},
		},
		{
			name:       "fallback to latest",
			pkgName:    "node",
			version:    "20.0.0",
			failPinned: true,
			expectCmds: []string{"brew install node@20.0.0", "brew install node"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newScriptRunner()
			if tt.failPinned {
				runner.errs["brew install "+tt.pkgName+"@"+tt.version] = errors.New("no such formula")
			}

			mgr, _ := New("brew", Options{Runner: runner})
			if err := mgr.InstallPackage(context.Background(), tt.pkgName, PackageInfo{Version: tt.version}); err != nil {
				t.Fatalf("InstallPackage failed: %v", err)
			}

			if len(runner.calls) != len(tt.expectCmds) {
				t.Fatalf("expected %d commands, got %d: %v", len(tt.expectCmds), len(runner.calls), runner.calls)
			}
			for i, expected := range tt.expectCmds {
				if runner.calls[i] != expected {
					t.Errorf("command %d: expected %q, got %q", i, expected, runner.calls[i])
				}
			}
		})
	}
}

func TestBrewInstallPackageFailure(t *testing.T) {
	runner := newScriptRunner()
	runner.errs["brew install ghost"] = errors.New("no such formula")

	mgr, _ := New("brew", Options{Runner: runner})
	err := mgr.InstallPackage(context.Background(), "ghost", PackageInfo{})
	if err == nil {
		t.Fatal("Expected install error, got nil")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("Expected error to name the package, got: %v", err)
	}
}

func TestBrewRepositoryCommands(t *testing.T) {
	runner := newScriptRunner()
	mgr, _ := New("brew", Options{Runner: runner})
	ctx := context.Background()

	if err := mgr.AddRepository(ctx, "user/tools", RepoInfo{URL: "https://example.org/tools"}); err != nil {
		t.Fatalf("AddRepository failed: %v", err)
	}
	if err := mgr.AddRepository(ctx, "user/other", RepoInfo{}); err != nil {
		t.Fatalf("AddRepository failed: %v", err)
	}
	if err := mgr.RemoveRepository(ctx, "user/tools"); err != nil {
		t.Fatalf("RemoveRepository failed: %v", err)
	}
	if err := mgr.RemovePackage(ctx, "jq"); err != nil {
		t.Fatalf("RemovePackage failed: %v", err)
	}

	expected := []string{
		"brew tap user/tools https://example.org/tools",
		"brew tap user/other",
		"brew untap user/tools",
		"brew uninstall jq",
	}
	for i, cmd := range expected {
		if i >= len(runner.calls) || runner.calls[i] != cmd {
			t.Errorf("command %d: expected %q, got %v", i, cmd, runner.calls)
		}
	}
}

func TestBrewStatePaths(t *testing.T) {
	runner := newScriptRunner()
	runner.outputs["brew --prefix"] = "/opt/homebrew\n"

	mgr, _ := New("brew", Options{Runner: runner})
	paths, err := mgr.StatePaths(context.Background())
	if err != nil {
		t.Fatalf("StatePaths failed: %v", err)
	}

	if len(paths) != 3 || paths[0] != "/opt/homebrew/Cellar" {
		t.Errorf("Unexpected state paths: %v", paths)
	}

	// A configured prefix skips discovery
	runner = newScriptRunner()
	mgr, _ = New("brew", Options{Runner: runner, BrewPrefix: "/usr/local"})
	paths, _ = mgr.StatePaths(context.Background())
	if len(runner.calls) != 0 {
		t.Errorf("Expected no commands with configured prefix, got %v", runner.calls)
	}
	if paths[2] != "/usr/local/Library/Taps" {
		t.Errorf("Expected taps path under /usr/local, got %s", paths[2])
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New("pacman", Options{}); err == nil {
		t.Error("Expected error for unknown backend, got nil")
	}
}

func TestPackagesNamesSorted(t *testing.T) {
	pkgs := Packages{"zsh": {}, "curl": {}, "make": {}}
	names := pkgs.Names()

	expected := []string{"curl", "make", "zsh"}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("position %d: expected %s, got %s", i, name, names[i])
		}
	}
}
