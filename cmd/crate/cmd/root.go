package cmd

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/zoobzio/crate"
	"github.com/zoobzio/crate/config"
	"github.com/zoobzio/crate/json"
	"github.com/zoobzio/crate/yaml"
)

var (
	configFile string
	endpoint   string
	from       string
	to         string
)

var rootCmd = &cobra.Command{
	Use:           "crate",
	Short:         "Interval map codec tool",
	Long:          `crate reads and writes interval-keyed maps in bracket notation, e.g. {"(0..10]":"A"}.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "int", "endpoint type (int, float, string)")
	rootCmd.PersistentFlags().StringVar(&from, "from", "json", "input format (json, yaml)")
	rootCmd.PersistentFlags().StringVar(&to, "to", "json", "output format (json, yaml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// PrintError writes err to w, in red when w is a terminal.
func PrintError(w io.Writer, err error) {
	msg := "error: " + err.Error()
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		msg = color.RedString("%s", msg)
	}
	fmt.Fprintln(w, msg)
}

func formatFor(name string) (crate.Format, error) {
	switch name {
	case "json":
		return json.New(), nil
	case "yaml", "yml":
		return yaml.New(), nil
	}
	return nil, fmt.Errorf("unknown format %q", name)
}

func endpointType(name string) (reflect.Type, error) {
	switch name {
	case "int":
		return reflect.TypeFor[int64](), nil
	case "float":
		return reflect.TypeFor[float64](), nil
	case "string":
		return reflect.TypeFor[string](), nil
	}
	return nil, fmt.Errorf("unknown endpoint type %q", name)
}

// newRegistry builds a registry holding an interval map codec for the
// configured endpoint type, with values of any shape.
func newRegistry() (*crate.Registry, error) {
	features, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	et, err := endpointType(endpoint)
	if err != nil {
		return nil, err
	}
	reg := crate.NewRegistry(crate.WithFeatures(features))
	crate.Register[*crate.IntervalMap](reg, crate.NewIntervalMapCodec(crate.ContainerType{
		Target: reflect.TypeFor[*crate.IntervalMap](),
		Key:    et,
	}))
	return reg, nil
}

// readInput reads the named file, or stdin when no file is given.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
