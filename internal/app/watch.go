package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/freezer/internal/config"
	"github.com/blackwell-systems/freezer/internal/watcher"
)

var (
	watchMetricsAddr string
	watchInterval    time.Duration
	watchDebounce    time.Duration
	watchPIDFile     string
	watchStop        bool

	watchCmd = &cobra.Command{
		Use:   "watch [name]",
		Short: "Watch for drift from a frozen state",
		Long: `Watch the package manager's state on disk and report when the host
drifts from a frozen state.

Every change to the dpkg database, apt sources, Homebrew Cellar or taps
triggers a dry-run restore against the frozen state. New drift is logged and
recorded in the history database ('freezer history --drift').

With --metrics-addr the latest drift counts are served as Prometheus
metrics on /metrics.

The watcher runs in the foreground until interrupted. Only one watcher runs
at a time; --stop signals the running one.`,
		Example: `  # Watch the default frozen state
  freezer watch

  # Also check every 10 minutes and export metrics
  freezer watch --interval 10m --metrics-addr :9150

  # Stop a running watcher
  freezer watch --stop`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "also check at this interval (0 disables)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period after a change before checking")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.freezer/watch.pid)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop the running watcher")
	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	pidFile := watchPIDFile
	if pidFile == "" {
		dataDir, err := config.DataDir()
		if err != nil {
			return err
		}
		pidFile = filepath.Join(dataDir, "watch.pid")
	}

	if watchStop {
		running, err := watcher.IsRunning(pidFile)
		if err != nil {
			return err
		}
		if !running {
			fmt.Fprintln(cmd.OutOrStdout(), "Watcher is not running")
			return nil
		}
		if err := watcher.StopRunning(pidFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Watcher stopped")
		return nil
	}

	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	name := displayName(snapshotArg(args))
	if !e.snaps.Status(name) {
		return fmt.Errorf("frozen state %s not found, run 'freezer freeze' first", name)
	}

	ctx := cmd.Context()
	paths, err := e.pm.StatePaths(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve state paths: %w", err)
	}

	opts := watcher.Options{
		Snapshot: name,
		Paths:    paths,
		Debounce: watchDebounce,
		Interval: watchInterval,
		Logger:   e.logger,
	}
	if e.store != nil {
		opts.Recorder = e.store
	}

	var srv *http.Server
	if watchMetricsAddr != "" {
		opts.Metrics = watcher.NewMetrics(prom.NewRegistry())
		mux := http.NewServeMux()
		mux.Handle("/metrics", opts.Metrics.Handler())
		srv = &http.Server{Addr: watchMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	w, err := watcher.New(e.snaps, opts)
	if err != nil {
		return err
	}

	if err := watcher.WritePIDFile(pidFile); err != nil {
		return err
	}
	defer watcher.RemovePIDFile(pidFile)

	if err := w.Start(ctx); err != nil {
		w.Stop()
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	if srv != nil {
		go func() {
			e.logger.Info("serving metrics", "addr", watchMetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	out := cmd.OutOrStdout()
	if drift := w.Last(); drift != nil && !drift.Empty() {
		fmt.Fprintf(out, "Drift from %s: %d package(s), %d repository(ies) differ\n", name,
			len(drift.Pkgs.Add)+len(drift.Pkgs.Remove), len(drift.Repos.Add)+len(drift.Repos.Remove))
	} else {
		fmt.Fprintf(out, "In sync with %s\n", name)
	}
	fmt.Fprintf(out, "Watching for drift from %s (Ctrl+C to stop)\n", name)
	<-ctx.Done()
	e.logger.Info("shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
	return w.Stop()
}
