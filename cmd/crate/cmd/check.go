package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/zoobzio/crate"
)

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Validate an interval map and print its entries",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("quiet", false, "print nothing on success")
}

func runCheck(cmd *cobra.Command, args []string) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	src, err := formatFor(from)
	if err != nil {
		return err
	}
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	m, err := crate.Decode[*crate.IntervalMap](cmd.Context(), reg, src, nil, data)
	if err != nil {
		return err
	}

	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return nil
	}
	w := cmd.OutOrStdout()
	for _, e := range m.Entries() {
		fmt.Fprintf(w, "%s\t%v\n", e.Key, e.Value)
	}
	if span, ok := m.Span(); ok {
		fmt.Fprintf(w, "%s %d entries spanning %s\n", color.GreenString("ok"), m.Len(), span)
	} else {
		fmt.Fprintf(w, "%s empty\n", color.GreenString("ok"))
	}
	return nil
}
