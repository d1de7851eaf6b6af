package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/freezer/internal/output"
	"github.com/blackwell-systems/freezer/internal/store"
)

var (
	historyLimit int
	historyDrift bool
	historyID    string

	historyCmd = &cobra.Command{
		Use:   "history [name]",
		Short: "Show recorded freeze and restore operations",
		Long: `Show the most recent freeze, restore and clean operations, newest
first. With --drift, show the drift detected by 'freezer watch' instead.

Give a name to only show entries for that frozen state. With --id, show one
operation in full, including every item that failed; ids are listed with
-o json.`,
		Example: `  freezer history
  freezer history before-upgrade --limit 5
  freezer history --drift
  freezer history --id 3f2a9c1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of entries")
	historyCmd.Flags().BoolVar(&historyDrift, "drift", false, "show detected drift instead of operations")
	historyCmd.Flags().StringVar(&historyID, "id", "", "show a single operation by id")
	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := openStore(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer st.Close()

	name := snapshotArg(args)
	out := cmd.OutOrStdout()

	if historyID != "" {
		op, err := st.GetOperation(historyID)
		if err != nil {
			return historyErr(err)
		}
		if ok, err := writeStructured(out, outputFormat, op); ok {
			return err
		}
		fmt.Fprint(out, output.RenderOperation(op))
		return nil
	}

	if historyDrift {
		events, err := st.ListDriftEvents(name, historyLimit)
		if err != nil {
			return historyErr(err)
		}
		if ok, err := writeStructured(out, outputFormat, events); ok {
			return err
		}
		fmt.Fprint(out, output.RenderDriftTable(events))
		return nil
	}

	ops, err := st.ListOperations(name, historyLimit)
	if err != nil {
		return historyErr(err)
	}
	if ok, err := writeStructured(out, outputFormat, ops); ok {
		return err
	}
	fmt.Fprint(out, output.RenderHistoryTable(ops))
	return nil
}

func historyErr(err error) error {
	if errors.Is(err, store.ErrNotInitialized) {
		return fmt.Errorf("no history yet, run 'freezer freeze' first: %w", err)
	}
	return err
}
