// Package output renders freezer results for the terminal.
//
// Tables use plain column alignment and ANSI colors when stdout is a TTY
// and NO_COLOR is unset. Additions are green, removals red, and changes and
// errors yellow.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/freezer/internal/snapshots"
	"github.com/blackwell-systems/freezer/internal/store"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// SnapshotRow is one line of the snapshot list.
type SnapshotRow struct {
	Name     string
	Packages int
	Repos    int
	FrozenAt time.Time
}

// RenderSnapshotTable renders the stored snapshots.
func RenderSnapshotTable(rows []SnapshotRow) string {
	if len(rows) == 0 {
		return "No frozen states found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-24s %-10s %-8s %s\n", "Name", "Packages", "Repos", "Frozen"))
	sb.WriteString(strings.Repeat("─", 60))
	sb.WriteString("\n")

	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("%-24s %-10d %-8d %s\n",
			truncate(row.Name, 24),
			row.Packages,
			row.Repos,
			formatRelativeTime(row.FrozenAt)))
	}

	return sb.String()
}

// RenderDiffResult renders the outcome of a restore. With dryRun the
// changes are phrased as pending.
func RenderDiffResult(res *snapshots.DiffResult, dryRun bool) string {
	var sb strings.Builder

	if res.Empty() && !res.Failed() {
		sb.WriteString("Already in sync, nothing to do.\n")
		return sb.String()
	}

	added, removed := "Added", "Removed"
	if dryRun {
		added, removed = "Would add", "Would remove"
	}

	writeSection(&sb, added+" repositories", "+", colorGreen, res.Repos.Add)
	writeSection(&sb, added+" packages", "+", colorGreen, res.Pkgs.Add)
	writeSection(&sb, removed+" packages", "-", colorRed, res.Pkgs.Remove)
	writeSection(&sb, removed+" repositories", "-", colorRed, res.Repos.Remove)

	if res.Failed() {
		sb.WriteString(colorize(colorYellow, "Errors:"))
		sb.WriteString("\n")
		for _, msg := range res.Comment {
			sb.WriteString("  " + msg + "\n")
		}
	}

	return sb.String()
}

func writeSection(sb *strings.Builder, title, marker, color string, names []string) {
	if len(names) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("%s (%d):\n", title, len(names)))
	for _, name := range names {
		sb.WriteString("  " + colorize(color, marker+" "+name) + "\n")
	}
}

// RenderCompareResult renders the difference between two snapshots.
func RenderCompareResult(res *snapshots.CompareResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Comparing %s -> %s\n\n", res.Old, res.New))
	if res.Empty() {
		sb.WriteString("Snapshots are identical.\n")
		return sb.String()
	}

	writeCompareSection(&sb, "Packages", res.Pkgs)
	writeCompareSection(&sb, "Repositories", res.Repos)

	return sb.String()
}

func writeCompareSection(sb *strings.Builder, title string, c snapshots.CompareChanges) {
	if len(c.Add)+len(c.Remove)+len(c.Change) == 0 {
		return
	}

	sb.WriteString(title + ":\n")
	for _, name := range c.Add {
		sb.WriteString("  " + colorize(colorGreen, "+ "+name) + "\n")
	}
	for _, name := range c.Remove {
		sb.WriteString("  " + colorize(colorRed, "- "+name) + "\n")
	}
	for _, ch := range c.Change {
		line := fmt.Sprintf("~ %s %s -> %s (%s)", ch.Name, ch.Old, ch.New, ch.Kind)
		sb.WriteString("  " + colorize(colorYellow, line) + "\n")
	}
}

// RenderHistoryTable renders recorded operations, newest first.
func RenderHistoryTable(ops []*store.Operation) string {
	if len(ops) == 0 {
		return "No operations recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-16s %-8s %-16s %-8s %-9s %-9s %s\n",
		"When", "Kind", "Snapshot", "Status", "Packages", "Repos", "Took"))
	sb.WriteString(strings.Repeat("─", 82))
	sb.WriteString("\n")

	for _, op := range ops {
		sb.WriteString(fmt.Sprintf("%-16s %-8s %-16s %s %-9s %-9s %s\n",
			formatRelativeTime(op.StartedAt),
			op.Kind,
			truncate(op.Snapshot, 16),
			padColor(statusColor(op.Status), op.Status, 8),
			fmt.Sprintf("+%d/-%d", op.PkgsAdded, op.PkgsRemoved),
			fmt.Sprintf("+%d/-%d", op.ReposAdded, op.ReposRemoved),
			formatDuration(op.Duration())))
	}

	return sb.String()
}

// RenderOperation renders one recorded operation, including every line of
// its comment.
func RenderOperation(op *store.Operation) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("ID:        %s\n", op.ID))
	sb.WriteString(fmt.Sprintf("Kind:      %s\n", op.Kind))
	sb.WriteString(fmt.Sprintf("Snapshot:  %s\n", op.Snapshot))
	if op.Backend != "" {
		sb.WriteString(fmt.Sprintf("Backend:   %s\n", op.Backend))
	}
	sb.WriteString(fmt.Sprintf("Status:    %s\n", colorize(statusColor(op.Status), op.Status)))
	sb.WriteString(fmt.Sprintf("Started:   %s (%s)\n",
		op.StartedAt.Local().Format("2006-01-02 15:04:05"), formatRelativeTime(op.StartedAt)))
	sb.WriteString(fmt.Sprintf("Took:      %s\n", formatDuration(op.Duration())))
	sb.WriteString(fmt.Sprintf("Packages:  +%d/-%d\n", op.PkgsAdded, op.PkgsRemoved))
	sb.WriteString(fmt.Sprintf("Repos:     +%d/-%d\n", op.ReposAdded, op.ReposRemoved))

	if op.Comment != "" {
		sb.WriteString("\nComment:\n")
		for _, line := range strings.Split(op.Comment, "\n") {
			sb.WriteString("  " + line + "\n")
		}
	}

	return sb.String()
}

// RenderDriftTable renders recorded drift events, newest first.
func RenderDriftTable(events []*store.DriftEvent) string {
	if len(events) == 0 {
		return "No drift recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-16s %-16s %-9s %s\n", "When", "Snapshot", "Packages", "Repos"))
	sb.WriteString(strings.Repeat("─", 52))
	sb.WriteString("\n")

	for _, ev := range events {
		sb.WriteString(fmt.Sprintf("%-16s %-16s %-9s %s\n",
			formatRelativeTime(ev.DetectedAt),
			truncate(ev.Snapshot, 16),
			fmt.Sprintf("+%d/-%d", ev.PkgsAdded, ev.PkgsRemoved),
			fmt.Sprintf("+%d/-%d", ev.ReposAdded, ev.ReposRemoved)))
	}

	return sb.String()
}

func statusColor(status string) string {
	switch status {
	case store.StatusOK:
		return colorGreen
	case store.StatusPartial:
		return colorYellow
	case store.StatusFailed:
		return colorRed
	default:
		return colorGray
	}
}

// padColor pads before coloring so escape codes do not break alignment.
func padColor(color, text string, width int) string {
	return colorize(color, fmt.Sprintf("%-*s", width, text))
}

// formatDuration renders short durations for the history table.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Truncate(time.Second).String()
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
