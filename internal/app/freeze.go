package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/freezer/internal/output"
)

var (
	freezeForce bool

	freezeCmd = &cobra.Command{
		Use:   "freeze [name]",
		Short: "Save the installed packages and repositories",
		Long: `Save the list of installed packages and configured repositories as a
frozen state. An existing state is not overwritten unless --force is given.

Package and repository names matching an --ignore pattern are not saved.`,
		Example: `  # Freeze the default state
  freezer freeze

  # Freeze under a name, replacing an older one
  freezer freeze before-upgrade --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: runFreeze,
	}
)

func init() {
	freezeCmd.Flags().BoolVarP(&freezeForce, "force", "f", false, "overwrite an existing frozen state")
	RootCmd.AddCommand(freezeCmd)
}

func runFreeze(cmd *cobra.Command, args []string) error {
	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	name := snapshotArg(args)

	spinner := output.NewSpinner(fmt.Sprintf("Freezing %s", displayName(name)))
	spinner.SetWriter(cmd.ErrOrStderr())
	spinner.Start()
	snap, err := e.snaps.Freeze(cmd.Context(), name, freezeForce)
	if err != nil {
		spinner.StopWithMessage(fmt.Sprintf("✗ Freezing %s failed", displayName(name)))
		return err
	}
	spinner.Stop()

	out := cmd.OutOrStdout()
	if ok, err := writeStructured(out, outputFormat, map[string]any{
		"name":     snap.Name,
		"packages": snap.Packages,
		"repos":    snap.Repos,
	}); ok {
		return err
	}

	fmt.Fprintf(out, "Frozen %s: %d packages, %d repositories\n",
		snap.Name, len(snap.Packages), len(snap.Repos))
	return nil
}
