package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/blackwell-systems/freezer/internal/config"
	"github.com/blackwell-systems/freezer/internal/pkgmgr"
	"github.com/blackwell-systems/freezer/internal/pkgmgr/pkgmgrtest"
)

// cli runs commands against a fake package manager and a temporary cache
// directory and history database.
type cli struct {
	t      *testing.T
	fake   *pkgmgrtest.Fake
	dir    string
	stderr bytes.Buffer
}

func newCLI(t *testing.T) *cli {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))

	fake := pkgmgrtest.New(
		pkgmgr.Packages{"git": {Version: "2.43.0"}, "curl": {Version: "8.5.0"}},
		pkgmgr.Repos{"homebrew/core": {URL: "https://github.com/Homebrew/homebrew-core", Enabled: true}},
	)

	old := newPackageManager
	newPackageManager = func(*config.Config, hclog.Logger) (pkgmgr.Manager, error) {
		return fake, nil
	}
	t.Cleanup(func() { newPackageManager = old })

	return &cli{t: t, fake: fake, dir: dir}
}

// run executes freezer with args and returns stdout.
func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()

	resetFlags(RootCmd)

	var stdout bytes.Buffer
	c.stderr.Reset()
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&c.stderr)
	RootCmd.SetArgs(append([]string{
		"--cachedir", c.dir,
		"--db", filepath.Join(c.dir, "freezer.db"),
		"--backend", "brew",
		"--log-level", "error",
	}, args...))

	err := RootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

// mustRun is run that fails the test on error.
func (c *cli) mustRun(args ...string) string {
	c.t.Helper()

	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("freezer %v failed: %v\nOutput:\n%s", args, err, out)
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

// resetFlags restores every flag to its default. Cobra keeps flag values
// between executions in the same process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)

	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
