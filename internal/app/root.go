package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	cacheDir     string
	backendName  string
	dbPath       string
	logLevel     string
	logJSON      bool
	ignoreGlobs  []string
	outputFormat string

	// RootCmd is the root command for freezer
	RootCmd = &cobra.Command{
		Use:   "freezer",
		Short: "Freeze and restore installed packages and repositories",
		Long: `freezer records the packages installed on a host and the package
repositories it is configured with, and puts the host back into that state
later.

A frozen state is a pair of YAML files in <cachedir>/freezer:
  <name>-pkgs.yml   installed packages and their versions
  <name>-reps.yml   configured repositories

Restoring adds missing repositories, installs missing packages, removes
extra packages and removes extra repositories, in that order.

Supported backends: brew (Homebrew formulae, casks and taps) and apt (dpkg
packages and sources.list.d entries).

Configuration is read from ~/.config/freezer/config.yaml, FREEZER_*
environment variables and flags, in increasing order of priority.`,
		Example: `  # Freeze the current state
  freezer freeze

  # Try out some packages, then see what a restore would undo
  freezer restore --dry-run

  # Put the host back and delete the frozen state
  freezer restore --clean

  # Compare two named states
  freezer compare before-upgrade after-upgrade`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: validateOutputFormat,
	}
)

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ~/.config/freezer/config.yaml)")
	pf.StringVar(&cacheDir, "cachedir", "", "cache directory holding the freezer/ state directory (default: ~/.freezer)")
	pf.StringVar(&backendName, "backend", "", "package manager backend: brew or apt (default: detected)")
	pf.StringVar(&dbPath, "db", "", "history database path (default: ~/.freezer/freezer.db)")
	pf.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	pf.BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
	pf.StringSliceVar(&ignoreGlobs, "ignore", nil, "package or repository name pattern to leave alone (repeatable)")
	pf.StringVarP(&outputFormat, "output", "o", "text", "output format: text, json or yaml")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context, which stops package manager calls and the watcher.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return RootCmd.ExecuteContext(ctx)
}
