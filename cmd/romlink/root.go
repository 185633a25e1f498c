package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joshuapare/romlink/internal/logger"
	"github.com/joshuapare/romlink/link"
)

// flags holds the command line before it becomes link.Arguments.
type flags struct {
	verbosity     int
	jsonLog       bool
	targets       []string
	objects       []string
	constraints   []string
	output        string
	onlyPack      bool
	onlyLink      bool
	targetInputs  []string
	targetOutputs []string
	allocations   []string
	allowExternal bool
	maxSteps      int
}

var opts flags

var rootCmd = &cobra.Command{
	Use:   "romlink",
	Short: "Pack relocatable objects into ROM free space and link them",
	Long: `romlink places binary objects into the free blocks of one or more target
files, honouring per-object address constraints, then rewrites the references
between objects and writes the patched targets.

The packing phase can record the chosen addresses in an allocation file so a
later run with --only-link reproduces the same output without searching again.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		args, err := opts.arguments()
		if err != nil {
			return err
		}
		logger.Init(logger.Options{
			Verbosity: args.Verbosity,
			JSON:      opts.jsonLog,
			Output:    cmd.ErrOrStderr(),
		})
		return link.Run(cmd.Context(), args)
	},
}

func init() {
	f := rootCmd.Flags()

	f.IntVarP(&opts.verbosity, "verbosity", "v", 1, "Changes the amount of logging (0-3)")
	f.BoolVar(&opts.jsonLog, "json-log", false, "Emit log records as JSON")

	f.StringArrayVar(&opts.constraints, "constraints", nil, "Adds constraints from `FILE`")
	f.StringArrayVarP(&opts.objects, "inputs", "i", nil, "Adds objects from `FILE`")
	f.StringArrayVarP(&opts.targets, "targets", "t", nil, "Adds targets from `FILE`")
	f.StringVarP(&opts.output, "output", "o", "", "Writes allocated addresses to `FILE`")
	f.BoolVar(&opts.onlyPack, "only-pack", false, "Performs only the packing phase")
	f.IntVar(&opts.maxSteps, "max-steps", 0, "Gives up packing after `N` search steps (0 = no limit)")

	f.StringArrayVar(&opts.targetInputs, "target-input", nil, "Specifies the input path for a target as `TARGET=PATH`")
	f.StringArrayVar(&opts.targetOutputs, "target-output", nil, "Specifies the output path for a target as `TARGET=PATH`")

	f.StringArrayVar(&opts.allocations, "allocations", nil, "Adds allocations from `FILE`")
	f.BoolVar(&opts.onlyLink, "only-link", false, "Performs only the linking phase (needs --allocations)")
	f.BoolVar(&opts.allowExternal, "allow-external", false, "Warns about unresolved references instead of failing")

	for _, name := range []string{"constraints", "inputs", "targets", "allocations"} {
		_ = rootCmd.MarkFlagFilename(name, "yaml", "yml")
	}
	rootCmd.MarkFlagsMutuallyExclusive("only-pack", "only-link")
}

// arguments converts the flags, checking the TARGET=PATH mappings.
func (f *flags) arguments() (link.Arguments, error) {
	inputs, err := parseMappings(f.targetInputs)
	if err != nil {
		return link.Arguments{}, fmt.Errorf("--target-input: %w", err)
	}
	outputs, err := parseMappings(f.targetOutputs)
	if err != nil {
		return link.Arguments{}, fmt.Errorf("--target-output: %w", err)
	}
	args := link.Arguments{
		Verbosity:        f.verbosity,
		DoPacking:        !f.onlyLink,
		DoLinking:        !f.onlyPack,
		Targets:          f.targets,
		Objects:          f.objects,
		Constraints:      f.constraints,
		AllocationOutput: f.output,
		TargetInputs:     inputs,
		TargetOutputs:    outputs,
		AllocationInputs: f.allocations,
		AllowExternal:    f.allowExternal,
		MaxSteps:         f.maxSteps,
	}
	return args, args.Validate()
}

func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Fatal error:", err)
		stop()
		os.Exit(1)
	}
}
