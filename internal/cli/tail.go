package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/chainlog/chainlog/internal/store"
)

// TailOptions holds flags for the tail command.
type TailOptions struct {
	*RootOptions
	Database  string
	Entity    string
	EntityKey string
}

// TailResult holds the tail command output.
type TailResult struct {
	Entity    string `json:"entity"`
	EntityKey string `json:"entity_key"`
	EventID   string `json:"event_id,omitempty"`
	Exists    bool   `json:"exists"`
}

// NewTailCommand creates the tail command.
func NewTailCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TailOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the stream's latest event id",
		Long: `Show the latest event id of one stream.

The printed id is what the next append to this stream should pass as
--previous. For an empty stream the command reports that no events exist;
the first append then omits --previous.

Examples:
  chainlog tail --db ./ledger.db --entity order --key O001`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite ledger (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "stream type name (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().StringVar(&opts.EntityKey, "key", "", "stream instance key (required)")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func runTail(opts *TailOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := formatter(cmd, opts.RootOptions)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	eventID, ok, err := st.LatestEventID(ctx, opts.Entity, opts.EntityKey)
	if err != nil {
		return conflictExit(f, err)
	}

	result := TailResult{
		Entity:    opts.Entity,
		EntityKey: opts.EntityKey,
		EventID:   eventID,
		Exists:    ok,
	}
	if opts.Format == "json" {
		return f.Success(result)
	}
	if !ok {
		return f.Success("no events")
	}
	return f.Success(eventID)
}
