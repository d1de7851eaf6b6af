package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/freezer/internal/output"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List frozen states",
	Long: `List the frozen states in the cache directory, sorted by name. Only
names with both a package file and a repository file are listed.`,
	Example: `  freezer list
  freezer list -o json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	RootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	names, err := e.snaps.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if ok, err := writeStructured(out, outputFormat, names); ok {
		return err
	}

	rows := make([]output.SnapshotRow, 0, len(names))
	for _, name := range names {
		row := output.SnapshotRow{Name: name}
		if snap, err := e.snaps.Load(name); err == nil {
			row.Packages = len(snap.Packages)
			row.Repos = len(snap.Repos)
		} else {
			e.logger.Warn("failed to read frozen state", "name", name, "error", err)
		}
		pkgsPath, _ := e.snaps.Paths(name)
		if fi, err := os.Stat(pkgsPath); err == nil {
			row.FrozenAt = fi.ModTime()
		}
		rows = append(rows, row)
	}

	fmt.Fprint(out, output.RenderSnapshotTable(rows))
	return nil
}
