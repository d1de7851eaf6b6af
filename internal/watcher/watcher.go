package watcher

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/blackwell-systems/freezer/internal/snapshots"
	"github.com/blackwell-systems/freezer/internal/store"
)

// DefaultDebounce is the quiet period after the last file event before a
// drift check runs. Package installs touch many files in quick succession.
const DefaultDebounce = 2 * time.Second

// Checker computes drift against a snapshot. *snapshots.Manager implements it.
type Checker interface {
	Drift(ctx context.Context, name string) (*snapshots.DiffResult, error)
}

// Recorder stores detected drift. *store.Store implements it.
type Recorder interface {
	InsertDriftEvent(ev *store.DriftEvent) (int64, error)
}

// Options configures a Watcher.
type Options struct {
	// Snapshot is the name drift is computed against.
	Snapshot string
	// Paths are watched for changes. Missing paths are skipped.
	Paths    []string
	Debounce time.Duration
	// Interval forces a check even without file events. Zero disables it.
	Interval time.Duration
	Recorder Recorder
	Metrics  *Metrics
	Logger   hclog.Logger
	Now      func() time.Time
}

// Watcher runs drift checks when the package manager's state changes.
type Watcher struct {
	checker Checker
	opts    Options
	logger  hclog.Logger
	fsw     *fsnotify.Watcher

	triggerCh chan struct{}
	stopCh    chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once

	// checkMu serializes drift checks.
	checkMu  sync.Mutex
	lastSig  string
	lastDiff *snapshots.DiffResult
}

// New creates a new Watcher instance.
func New(checker Checker, opts Options) (*Watcher, error) {
	if checker == nil {
		return nil, fmt.Errorf("checker cannot be nil")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		checker:   checker,
		opts:      opts,
		logger:    logger.Named("watcher"),
		fsw:       fsw,
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start watches the configured paths and runs an initial drift check.
func (w *Watcher) Start(ctx context.Context) error {
	watched := 0
	for _, path := range w.opts.Paths {
		if _, err := os.Stat(path); err != nil {
			w.logger.Warn("skipping state path", "path", path, "error", err)
			continue
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		watched++
	}
	if watched == 0 && w.opts.Interval <= 0 {
		return fmt.Errorf("no state paths to watch")
	}

	w.logger.Info("watching for drift", "snapshot", w.opts.Snapshot, "paths", watched)

	if _, err := w.Check(ctx); err != nil {
		w.logger.Error("initial drift check failed", "error", err)
	}

	w.wg.Add(2)
	go w.watchLoop(ctx)
	go w.checkLoop(ctx)

	return nil
}

// Stop halts the watcher and waits for a running check to finish.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

// watchLoop turns file events into check triggers.
func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Trace("state change", "file", event.Name, "op", event.Op.String())
			w.trigger()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// checkLoop debounces triggers and runs periodic checks.
func (w *Watcher) checkLoop(ctx context.Context) {
	defer w.wg.Done()

	var tick <-chan time.Time
	if w.opts.Interval > 0 {
		ticker := time.NewTicker(w.opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	debounce := time.NewTimer(w.opts.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	run := func() {
		if _, err := w.Check(ctx); err != nil {
			w.logger.Error("drift check failed", "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-w.triggerCh:
			debounce.Reset(w.opts.Debounce)
		case <-debounce.C:
			run()
		case <-tick:
			run()
		}
	}
}

// Check computes drift now. Drift that differs from the previous check is
// logged and recorded; unchanged drift is not recorded twice.
func (w *Watcher) Check(ctx context.Context) (*snapshots.DiffResult, error) {
	w.checkMu.Lock()
	defer w.checkMu.Unlock()

	diff, err := w.checker.Drift(ctx, w.opts.Snapshot)
	if err != nil {
		w.opts.Metrics.observeError()
		return nil, err
	}
	w.opts.Metrics.observe(diff, w.opts.Now())

	sig := signature(diff)
	changed := sig != w.lastSig
	w.lastSig = sig
	w.lastDiff = diff

	if diff.Empty() {
		if changed {
			w.logger.Info("host is back in sync", "snapshot", w.opts.Snapshot)
		}
		return diff, nil
	}
	if !changed {
		return diff, nil
	}

	w.logger.Warn("drift detected",
		"snapshot", w.opts.Snapshot,
		"pkgs_add", len(diff.Pkgs.Add),
		"pkgs_remove", len(diff.Pkgs.Remove),
		"repos_add", len(diff.Repos.Add),
		"repos_remove", len(diff.Repos.Remove))

	if w.opts.Recorder != nil {
		ev := &store.DriftEvent{
			Snapshot:     w.opts.Snapshot,
			DetectedAt:   w.opts.Now(),
			PkgsAdded:    len(diff.Pkgs.Add),
			PkgsRemoved:  len(diff.Pkgs.Remove),
			ReposAdded:   len(diff.Repos.Add),
			ReposRemoved: len(diff.Repos.Remove),
			Detail:       sig,
		}
		if _, err := w.opts.Recorder.InsertDriftEvent(ev); err != nil {
			w.logger.Warn("failed to record drift", "error", err)
		}
	}

	return diff, nil
}

// Last returns the result of the most recent successful check.
func (w *Watcher) Last() *snapshots.DiffResult {
	w.checkMu.Lock()
	defer w.checkMu.Unlock()
	return w.lastDiff
}

// signature is a stable one-line description of a drift result.
func signature(diff *snapshots.DiffResult) string {
	if diff.Empty() {
		return ""
	}

	var parts []string
	add := func(label string, names []string) {
		if len(names) > 0 {
			parts = append(parts, label+"="+strings.Join(names, ","))
		}
	}
	add("pkgs+", diff.Pkgs.Add)
	add("pkgs-", diff.Pkgs.Remove)
	add("repos+", diff.Repos.Add)
	add("repos-", diff.Repos.Remove)
	return strings.Join(parts, " ")
}
