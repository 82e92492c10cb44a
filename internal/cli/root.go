package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainlog/chainlog/internal/ledger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the chainlog CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "chainlog",
		Short: "chainlog - append-only event store",
		Long: "An append-only event store partitioned into backward-chained streams.\n" +
			"Writers detect lost-update races through explicit previous-event references;\n" +
			"readers replay a deterministic global order.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewAppendCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTailCommand(opts))
	cmd.AddCommand(NewStreamsCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// formatter builds an OutputFormatter writing to the command's stdout.
func formatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
}

// conflictExit reports a ledger conflict in the configured format and wraps
// it with the conflict exit code so callers can distinguish "the append lost
// a race" from "the command itself is broken".
func conflictExit(f *OutputFormatter, err error) error {
	var ce *ledger.ConflictError
	if errors.As(err, &ce) {
		if werr := f.Error(string(ce.Code), ce.Message); werr != nil {
			return WrapExitError(ExitCommandError, "failed to write output", werr)
		}
		return WrapExitError(ExitConflict, string(ce.Code), err)
	}
	return WrapExitError(ExitCommandError, "operation failed", err)
}
