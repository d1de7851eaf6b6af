package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/freezer/internal/output"
	"github.com/blackwell-systems/freezer/internal/snapshots"
)

var (
	restoreClean  bool
	restoreDryRun bool

	restoreCmd = &cobra.Command{
		Use:   "restore [name]",
		Short: "Put the host back into a frozen state",
		Long: `Reconcile the host with a frozen state:

  1. add repositories that were removed
  2. install packages that were removed
  3. remove packages that were added
  4. remove repositories that were added

A package or repository that cannot be changed is reported and skipped; the
rest of the restore goes on. With --clean the frozen state is deleted after a
restore in which nothing failed.

With --dry-run nothing is changed and the pending changes are printed.`,
		Example: `  # Show what a restore would do
  freezer restore --dry-run

  # Restore and delete the frozen state
  freezer restore --clean

  # Restore a named state
  freezer restore before-upgrade`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRestore,
	}
)

func init() {
	restoreCmd.Flags().BoolVar(&restoreClean, "clean", false, "delete the frozen state after a successful restore")
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "only show the changes a restore would make")
	RootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	name := snapshotArg(args)
	opts := snapshots.RestoreOptions{Clean: restoreClean, DryRun: restoreDryRun}

	spinner := output.NewSpinner(fmt.Sprintf("Restoring %s", displayName(name)))
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()
	res, err := e.snaps.Restore(cmd.Context(), name, opts)
	if err != nil {
		spinner.StopWithMessage(fmt.Sprintf("✗ Restoring %s failed", displayName(name)))
		return err
	}
	spinner.Stop()

	out := cmd.OutOrStdout()
	if ok, err := writeStructured(out, outputFormat, res); ok {
		if err != nil {
			return err
		}
	} else {
		fmt.Fprint(out, output.RenderDiffResult(res, restoreDryRun))
	}

	if res.Failed() {
		return fmt.Errorf("%d item(s) could not be restored", len(res.Comment))
	}
	return nil
}
