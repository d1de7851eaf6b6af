package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/freezer/internal/state"
)

var (
	stateForce bool
	stateClean bool
	stateTest  bool

	stateCmd = &cobra.Command{
		Use:   "state",
		Short: "Apply a declarative freezer state",
		Long: `Apply a declarative state and print its result as
{name, changes, result, comment}.

  frozen    the named state exists (it is frozen if it does not)
  restored  the host matches the named state

With --test nothing is changed; result is null when changes are pending.`,
		Example: `  freezer state frozen
  freezer state restored --test
  freezer state restored before-upgrade --clean -o json`,
	}

	stateFrozenCmd = &cobra.Command{
		Use:   "frozen [name]",
		Short: "Ensure a frozen state exists",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStateFrozen,
	}

	stateRestoredCmd = &cobra.Command{
		Use:   "restored [name]",
		Short: "Ensure the host matches a frozen state",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStateRestored,
	}
)

func init() {
	stateCmd.PersistentFlags().BoolVar(&stateTest, "test", false, "report pending changes without applying them")
	stateFrozenCmd.Flags().BoolVarP(&stateForce, "force", "f", false, "freeze again even if the state exists")
	stateRestoredCmd.Flags().BoolVar(&stateClean, "clean", false, "delete the frozen state after a successful restore")

	stateCmd.AddCommand(stateFrozenCmd)
	stateCmd.AddCommand(stateRestoredCmd)
	RootCmd.AddCommand(stateCmd)
}

func runStateFrozen(cmd *cobra.Command, args []string) error {
	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	res := state.New(e.snaps, e.logger).Frozen(cmd.Context(), snapshotArg(args), stateForce, stateTest)
	return writeStateResult(cmd, res)
}

func runStateRestored(cmd *cobra.Command, args []string) error {
	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	res := state.New(e.snaps, e.logger).Restored(cmd.Context(), snapshotArg(args), stateClean, stateTest)
	return writeStateResult(cmd, res)
}

// writeStateResult prints the result as YAML unless JSON was requested, and
// fails the command when the state failed.
func writeStateResult(cmd *cobra.Command, res *state.Result) error {
	format := outputFormat
	if format == "text" || format == "" {
		format = "yaml"
	}
	if _, err := writeStructured(cmd.OutOrStdout(), format, res); err != nil {
		return err
	}
	if !res.Succeeded() {
		return fmt.Errorf("state %s failed", res.Name)
	}
	return nil
}
