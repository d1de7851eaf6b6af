package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [name]",
	Short: "Report whether a frozen state exists",
	Long: `Report whether a frozen state exists. A state is frozen when both its
package file and its repository file are present.

Without a name the default state ("freezer") is checked.`,
	Example: `  freezer status
  freezer status before-upgrade -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

type statusResult struct {
	Name   string `json:"name" yaml:"name"`
	Frozen bool   `json:"frozen" yaml:"frozen"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := setupEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	name := snapshotArg(args)
	res := statusResult{Name: displayName(name), Frozen: e.snaps.Status(name)}

	out := cmd.OutOrStdout()
	if ok, err := writeStructured(out, outputFormat, res); ok {
		return err
	}

	if res.Frozen {
		fmt.Fprintf(out, "%s: frozen\n", res.Name)
	} else {
		fmt.Fprintf(out, "%s: not frozen\n", res.Name)
	}
	return nil
}
