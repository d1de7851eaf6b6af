// Package state provides declarative freezer states. Each state converges
// the host toward a goal and reports what it changed in a Result, the same
// shape configuration-management tools use for state runs.
package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/blackwell-systems/freezer/internal/snapshots"
)

// Result reports the outcome of a state. Result is nil in test mode when
// changes are pending.
type Result struct {
	Name    string         `json:"name" yaml:"name"`
	Changes map[string]any `json:"changes" yaml:"changes"`
	Result  *bool          `json:"result" yaml:"result"`
	Comment string         `json:"comment" yaml:"comment"`
}

// Succeeded reports whether the state ran without error. Pending test
// results count as success.
func (r *Result) Succeeded() bool {
	return r.Result == nil || *r.Result
}

// Runner applies states through a snapshot manager.
type Runner struct {
	snaps  *snapshots.Manager
	logger hclog.Logger
}

// New creates a state Runner.
func New(snaps *snapshots.Manager, logger hclog.Logger) *Runner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Runner{snaps: snaps, logger: logger.Named("state")}
}

func newResult(name string) *Result {
	return &Result{Name: name, Changes: map[string]any{}}
}

func (r *Result) set(ok bool, comment string) *Result {
	r.Result = &ok
	r.Comment = comment
	return r
}

// Frozen ensures the named snapshot exists. An existing snapshot is left
// alone unless force is set.
func (r *Runner) Frozen(ctx context.Context, name string, force, test bool) *Result {
	res := newResult(name)
	label := displayName(name)

	if r.snaps.Status(name) && !force {
		return res.set(true, fmt.Sprintf("The state is already present as %s", label))
	}

	if test {
		res.Changes["frozen"] = label
		res.Comment = fmt.Sprintf("%s would be frozen", label)
		return res
	}

	if _, err := r.snaps.Freeze(ctx, name, force); err != nil {
		r.logger.Error("freeze failed", "snapshot", label, "error", err)
		return res.set(false, err.Error())
	}

	res.Changes["frozen"] = label
	return res.set(true, fmt.Sprintf("Frozen state %s", label))
}

// Restored ensures the host matches the named snapshot. In test mode the
// pending changes are reported without applying them.
func (r *Runner) Restored(ctx context.Context, name string, clean, test bool) *Result {
	res := newResult(name)
	label := displayName(name)

	if !r.snaps.Status(name) {
		return res.set(false, fmt.Sprintf("Frozen state %s not found", label))
	}

	diff, err := r.snaps.Restore(ctx, name, snapshots.RestoreOptions{Clean: clean, DryRun: test})
	if err != nil {
		r.logger.Error("restore failed", "snapshot", label, "error", err)
		return res.set(false, err.Error())
	}

	if !diff.Empty() {
		res.Changes = diffChanges(diff)
	}

	switch {
	case diff.Failed():
		return res.set(false, strings.Join(diff.Comment, "\n"))
	case diff.Empty():
		return res.set(true, fmt.Sprintf("The system is already in sync with %s", label))
	case test:
		res.Comment = fmt.Sprintf("%s would be restored", label)
		return res
	default:
		return res.set(true, fmt.Sprintf("Restored state %s", label))
	}
}

// diffChanges keeps only the non-empty parts of a restore result.
func diffChanges(diff *snapshots.DiffResult) map[string]any {
	changes := map[string]any{}
	for key, names := range map[string][]string{
		"pkgs_add":     diff.Pkgs.Add,
		"pkgs_remove":  diff.Pkgs.Remove,
		"repos_add":    diff.Repos.Add,
		"repos_remove": diff.Repos.Remove,
	} {
		if len(names) > 0 {
			changes[key] = names
		}
	}
	return changes
}

func displayName(name string) string {
	if name == "" {
		return snapshots.DefaultName
	}
	return name
}
