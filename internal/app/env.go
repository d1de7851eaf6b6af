package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/freezer/internal/config"
	"github.com/blackwell-systems/freezer/internal/pkgmgr"
	"github.com/blackwell-systems/freezer/internal/snapshots"
	"github.com/blackwell-systems/freezer/internal/store"
)

// newPackageManager builds the configured backend. Tests replace it.
var newPackageManager = func(cfg *config.Config, logger hclog.Logger) (pkgmgr.Manager, error) {
	return pkgmgr.New(cfg.Backend, pkgmgr.Options{
		Runner:        pkgmgr.ExecRunner{},
		Logger:        logger,
		BrewPrefix:    cfg.Brew.Prefix,
		AptSourcesDir: cfg.Apt.SourcesDir,
		AptStateDir:   cfg.Apt.StateDir,
	})
}

// env holds everything a command needs, built from configuration.
type env struct {
	cfg    *config.Config
	logger hclog.Logger
	pm     pkgmgr.Manager
	snaps  *snapshots.Manager
	store  *store.Store
}

// Close releases the history database.
func (e *env) Close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.logger.Warn("failed to close history database", "error", err)
		}
	}
}

// loadConfig merges defaults, the config file, the environment and the
// flags that were set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, err
	}

	path, optional := cfgFile, false
	if path == "" {
		if path, err = config.DefaultFile(); err != nil {
			return nil, fmt.Errorf("failed to locate config file: %w", err)
		}
		optional = true
	}

	flags := map[string]any{}
	set := func(name, key string, value any) {
		if cmd.Flags().Changed(name) {
			flags[key] = value
		}
	}
	set("cachedir", "cachedir", cacheDir)
	set("backend", "backend", backendName)
	set("db", "db", dbPath)
	set("log-level", "log_level", logLevel)
	set("log-json", "log_json", logJSON)
	set("ignore", "ignore", ignoreGlobs)

	return config.NewLoader(
		config.WithEnvPrefix(config.DefaultEnvPrefix),
		config.WithConfigFile(path, optional),
	).Load(config.Defaults(dataDir), flags)
}

func newLogger(cfg *config.Config, cmd *cobra.Command) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       "freezer",
		Level:      hclog.LevelFromString(cfg.LogLevel),
		JSONFormat: cfg.LogJSON,
		Output:     cmd.ErrOrStderr(),
	})
}

// setupEnv wires the backend, snapshot manager and history database. A
// history database that cannot be opened only disables recording.
func setupEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, cmd)

	pm, err := newPackageManager(cfg, logger)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: logger, pm: pm}

	st, err := openStore(cfg.DB)
	if err != nil {
		logger.Warn("history disabled", "db", cfg.DB, "error", err)
	} else {
		e.store = st
	}

	opts := snapshots.Options{
		CacheDir: cfg.CacheDir,
		Ignore:   cfg.Ignore,
		Logger:   logger,
	}
	if e.store != nil {
		opts.Recorder = e.store
	}

	e.snaps, err = snapshots.New(pm, opts)
	if err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func openStore(path string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return store.Open(path)
}

// snapshotArg returns the optional snapshot name argument.
func snapshotArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func displayName(name string) string {
	if name == "" {
		return snapshots.DefaultName
	}
	return name
}
