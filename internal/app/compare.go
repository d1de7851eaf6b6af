package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/freezer/internal/output"
	"github.com/blackwell-systems/freezer/internal/snapshots"
)

var compareCmd = &cobra.Command{
	Use:   "compare <old> <new>",
	Short: "Show the differences between two frozen states",
	Long: `Show what changed between two frozen states: packages and repositories
added or removed, and packages whose version changed. Version changes are
classified as upgrade or downgrade when both versions are semantic versions.`,
	Example: `  freezer freeze before-upgrade
  brew upgrade
  freezer freeze after-upgrade
  freezer compare before-upgrade after-upgrade`,
	Args: func(cmd *cobra.Command, args []string) error {
		_, _, err := snapshots.CompareArgs(args)
		return err
	},
	RunE: runCompare,
}

func init() {
	RootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	oldName, newName, err := snapshots.CompareArgs(args)
	if err != nil {
		return err
	}

	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.snaps.Compare(oldName, newName)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if ok, err := writeStructured(out, outputFormat, res); ok {
		return err
	}

	fmt.Fprint(out, output.RenderCompareResult(res))
	return nil
}
