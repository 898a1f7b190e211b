package cmd

import (
	"reflect"

	"github.com/spf13/cobra"
	"github.com/zoobzio/crate"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Rewrite an interval map in canonical form",
	Long: `normalize reads an interval map, merges overlapping entries (later entries
win), and writes it back in ascending interval order.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normalizeCmd.Flags().StringArray("ignore", nil, "interval key to omit from the output (repeatable)")
	normalizeCmd.Flags().Bool("sort", true, "write entries in ascending interval order")
	normalizeCmd.Flags().String("filter", "", "entry filter applied to values (mask, hash)")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	src, err := formatFor(from)
	if err != nil {
		return err
	}
	dst, err := formatFor(to)
	if err != nil {
		return err
	}
	data, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	site := &crate.Site{Name: "input"}
	site.Ignored, _ = cmd.Flags().GetStringArray("ignore")
	site.FilterID, _ = cmd.Flags().GetString("filter")
	if cmd.Flags().Changed("sort") || !reg.Features().OrderMapEntriesByKeys {
		sort, _ := cmd.Flags().GetBool("sort")
		site.Sort = &sort
	}

	out, err := crate.Transcode(cmd.Context(), reg, reflect.TypeFor[*crate.IntervalMap](), site, src, dst, data)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if _, err := w.Write(out); err != nil {
		return err
	}
	if to == "json" {
		_, err = w.Write([]byte("\n"))
	}
	return err
}
