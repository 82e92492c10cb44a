package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chainlog/chainlog/internal/store"
)

// StreamsOptions holds flags for the streams command.
type StreamsOptions struct {
	*RootOptions
	Database string
}

// StreamsResult holds the streams command output.
type StreamsResult struct {
	Count   int            `json:"count"`
	Streams []StreamRecord `json:"streams"`
}

// StreamRecord is one stream in the streams command output.
type StreamRecord struct {
	Entity    string `json:"entity"`
	EntityKey string `json:"entity_key"`
}

// NewStreamsCommand creates the streams command.
func NewStreamsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StreamsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "streams",
		Short: "List all streams in the ledger",
		Long: `List every (entity, key) pair that has at least one event.

Examples:
  chainlog streams --db ./ledger.db
  chainlog streams --db ./ledger.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStreams(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite ledger (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runStreams(opts *StreamsOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := formatter(cmd, opts.RootOptions)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	streams, err := st.ListStreams(ctx)
	if err != nil {
		return conflictExit(f, err)
	}

	result := StreamsResult{Count: len(streams), Streams: make([]StreamRecord, 0, len(streams))}
	for _, s := range streams {
		result.Streams = append(result.Streams, StreamRecord{Entity: s.Entity, EntityKey: s.EntityKey})
	}

	if opts.Format == "json" {
		return f.Success(result)
	}
	var sb strings.Builder
	for _, s := range result.Streams {
		fmt.Fprintf(&sb, "%s/%s\n", s.Entity, s.EntityKey)
	}
	fmt.Fprintf(&sb, "%d stream(s)", result.Count)
	return f.Success(sb.String())
}
