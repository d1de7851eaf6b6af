package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/freezer/internal/config"
	"github.com/blackwell-systems/freezer/internal/watcher"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common issues",
	Long: `Runs diagnostic checks on your freezer setup.

Checks:
  • The package manager backend can list packages and repositories
  • The cache directory is writable
  • A default frozen state exists
  • The history database is accessible
  • Whether a drift watcher is running`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Running freezer diagnostics...")
	fmt.Fprintln(out)

	criticalIssues := 0
	warningIssues := 0

	e, err := setupEnv(cmd)
	if err != nil {
		fmt.Fprintln(out, "✗ Configuration error:", err)
		return fmt.Errorf("diagnostics failed")
	}
	defer e.Close()

	fmt.Fprintf(out, "✓ Backend: %s\n", e.snaps.Backend())

	// Check 1: backend responds
	ctx := cmd.Context()
	if pkgs, err := e.pm.ListInstalledPackages(ctx); err != nil {
		fmt.Fprintln(out, "✗ Cannot list packages:", err)
		criticalIssues++
	} else {
		fmt.Fprintf(out, "✓ %d packages installed\n", len(pkgs))
	}
	if repos, err := e.pm.ListRepositories(ctx); err != nil {
		fmt.Fprintln(out, "✗ Cannot list repositories:", err)
		criticalIssues++
	} else {
		fmt.Fprintf(out, "✓ %d repositories configured\n", len(repos))
	}

	// Check 2: cache directory writable
	if err := checkWritable(e.snaps.Dir()); err != nil {
		fmt.Fprintln(out, "✗ Cache directory not writable:", err)
		fmt.Fprintln(out, "  Action: set --cachedir or FREEZER_CACHEDIR to a writable directory")
		criticalIssues++
	} else {
		fmt.Fprintln(out, "✓ Cache directory writable:", e.snaps.Dir())
	}

	// Check 3: default state frozen (warning only)
	if e.snaps.Status("") {
		fmt.Fprintln(out, "✓ Default state is frozen")
	} else {
		fmt.Fprintln(out, "⚠ Default state is not frozen")
		fmt.Fprintln(out, "  Action: Run 'freezer freeze'")
		warningIssues++
	}

	// Check 4: history database (warning only)
	if e.store == nil {
		fmt.Fprintln(out, "⚠ History database unavailable:", e.cfg.DB)
		warningIssues++
	} else if _, err := e.store.ListOperations("", 1); err != nil {
		fmt.Fprintln(out, "⚠ Cannot read history:", err)
		warningIssues++
	} else {
		fmt.Fprintln(out, "✓ History database accessible:", e.cfg.DB)
	}

	// Check 5: watcher (informational)
	if dataDir, err := config.DataDir(); err == nil {
		if running, _ := watcher.IsRunning(filepath.Join(dataDir, "watch.pid")); running {
			fmt.Fprintln(out, "✓ Drift watcher running")
		} else {
			fmt.Fprintln(out, "  Drift watcher not running ('freezer watch' to start)")
		}
	}

	fmt.Fprintln(out)
	if criticalIssues > 0 {
		fmt.Fprintf(out, "Found %d critical issue(s) and %d warning(s).\n", criticalIssues, warningIssues)
		return fmt.Errorf("diagnostics failed")
	}
	if warningIssues > 0 {
		fmt.Fprintf(out, "Found %d warning(s).\n", warningIssues)
		return nil
	}
	fmt.Fprintln(out, "✓ All checks passed!")
	return nil
}

// checkWritable creates dir if needed and writes a probe file in it.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
