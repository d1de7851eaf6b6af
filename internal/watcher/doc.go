// Package watcher detects drift between the live host and a frozen
// snapshot.
//
// The Watcher observes the package manager's on-disk state (the dpkg
// database and apt sources, or the Homebrew Cellar and Taps) with fsnotify.
// Bursts of events are debounced into a single drift check, which computes
// the changes a restore would make without applying them. Non-empty drift
// is logged and recorded in the history database, and the latest counts
// are exported as Prometheus gauges.
//
// Example usage:
//
//	w, err := watcher.New(snaps, watcher.Options{
//		Snapshot: "freezer",
//		Paths:    paths,
//		Recorder: st,
//		Metrics:  watcher.NewMetrics(reg),
//	})
//	if err != nil {
//		return err
//	}
//	if err := w.Start(ctx); err != nil {
//		return err
//	}
//	defer w.Stop()
//
// Only one watcher runs per host; WritePIDFile guards against a second one.
package watcher
