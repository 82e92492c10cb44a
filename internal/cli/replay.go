package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chainlog/chainlog/internal/ledger"
	"github.com/chainlog/chainlog/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database   string
	Entity     string
	EntityKey  string
	EventNames []string
	After      string
}

// ReplayEvent is one event in the replay command output.
type ReplayEvent struct {
	GlobalSeq  int64  `json:"global_seq"`
	EventID    string `json:"event_id"`
	Entity     string `json:"entity"`
	EntityKey  string `json:"entity_key"`
	EventName  string `json:"event_name"`
	Payload    string `json:"payload"`
	AppendKey  string `json:"append_key"`
	PreviousID string `json:"previous_id,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// ReplayResult holds the replay command output.
type ReplayResult struct {
	Count  int           `json:"count"`
	Events []ReplayEvent `json:"events"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Read events in global order",
		Long: `Read events in ascending global order, optionally filtered.

With no filters the whole ledger is replayed. --entity narrows to a stream
type, --key (with --entity) to a single stream, --names to a set of event
names. --after resumes strictly after a previously seen event id, so a
consumer can catch up without re-reading events it already processed.

Examples:
  chainlog replay --db ./ledger.db
  chainlog replay --db ./ledger.db --entity order --key O001
  chainlog replay --db ./ledger.db --names order-placed,order-paid
  chainlog replay --db ./ledger.db --after 01963a5e-...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite ledger (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "filter by stream type")
	cmd.Flags().StringVar(&opts.EntityKey, "key", "", "filter by stream key (requires --entity)")
	cmd.Flags().StringSliceVar(&opts.EventNames, "names", nil, "filter by event names")
	cmd.Flags().StringVar(&opts.After, "after", "", "replay strictly after this event id")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := formatter(cmd, opts.RootOptions)

	if opts.EntityKey != "" && opts.Entity == "" {
		return WrapExitError(ExitCommandError, "--key requires --entity", nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	filter := ledger.Filter{
		Entity:     opts.Entity,
		EntityKey:  opts.EntityKey,
		EventNames: opts.EventNames,
	}

	var events []ledger.Event
	if opts.After != "" {
		events, err = st.ReplayAfter(ctx, opts.After, filter)
	} else {
		events, err = st.Replay(ctx, filter)
	}
	if err != nil {
		return conflictExit(f, err)
	}

	result := ReplayResult{Count: len(events), Events: make([]ReplayEvent, 0, len(events))}
	for _, ev := range events {
		result.Events = append(result.Events, replayEvent(ev))
	}

	if opts.Format == "json" {
		return f.Success(result)
	}
	return f.Success(formatReplayText(result))
}

func replayEvent(ev ledger.Event) ReplayEvent {
	return ReplayEvent{
		GlobalSeq:  ev.GlobalSeq,
		EventID:    ev.EventID,
		Entity:     ev.Entity,
		EntityKey:  ev.EntityKey,
		EventName:  ev.EventName,
		Payload:    string(ev.Payload),
		AppendKey:  ev.AppendKey,
		PreviousID: ev.PreviousID,
		CreatedAt:  ev.CreatedAt.Format(time.RFC3339),
	}
}

// formatReplayText renders one line per event plus a trailing count.
func formatReplayText(result ReplayResult) string {
	var sb strings.Builder
	for _, ev := range result.Events {
		fmt.Fprintf(&sb, "%6d  %s  %s/%s  %s", ev.GlobalSeq, ev.EventID, ev.Entity, ev.EntityKey, ev.EventName)
		if ev.Payload != "" {
			fmt.Fprintf(&sb, "  %s", ev.Payload)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "%d event(s)", result.Count)
	return sb.String()
}
