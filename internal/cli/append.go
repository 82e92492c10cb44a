package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chainlog/chainlog/internal/ledger"
	"github.com/chainlog/chainlog/internal/schema"
	"github.com/chainlog/chainlog/internal/store"
)

// AppendOptions holds flags for the append command.
type AppendOptions struct {
	*RootOptions
	Database    string
	Entity      string
	EntityKey   string
	EventName   string
	Payload     string
	PayloadFile string
	AppendKey   string
	PreviousID  string
	SchemaFile  string
}

// AppendResult holds the append command output.
type AppendResult struct {
	EventID   string `json:"event_id"`
	GlobalSeq int64  `json:"global_seq"`
	Entity    string `json:"entity"`
	EntityKey string `json:"entity_key"`
}

// NewAppendCommand creates the append command.
func NewAppendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AppendOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append one event to a stream",
		Long: `Append a single event to a stream, validating the chain rules.

Omit --previous to start a new stream. For every later event, pass the id of
the stream's current tail (see the tail command); if another writer extended
the stream first, the append fails with STALE_PREVIOUS and should be retried
from the fresh tail.

Exit codes:
  0 - Event appended
  1 - Conflict (STALE_PREVIOUS, DUPLICATE_APPEND_KEY, ...)
  2 - Command error (database not found, bad payload, ...)

Examples:
  chainlog append --db ./ledger.db --entity order --key O001 \
      --name order-placed --payload '{"sku":"A-1"}' --append-key cmd-42
  chainlog append --db ./ledger.db --entity order --key O001 \
      --name order-paid --payload-file paid.json --append-key cmd-43 \
      --previous 01963a5e-...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppend(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite ledger (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "stream type name (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().StringVar(&opts.EntityKey, "key", "", "stream instance key (required)")
	_ = cmd.MarkFlagRequired("key")
	cmd.Flags().StringVar(&opts.EventName, "name", "", "event name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.AppendKey, "append-key", "", "idempotency token (required)")
	_ = cmd.MarkFlagRequired("append-key")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "inline payload")
	cmd.Flags().StringVar(&opts.PayloadFile, "payload-file", "", "read payload from file")
	cmd.Flags().StringVar(&opts.PreviousID, "previous", "", "event id of the current stream tail")
	cmd.Flags().StringVar(&opts.SchemaFile, "schema", "", "CUE schema file for payload validation")

	return cmd
}

func runAppend(opts *AppendOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := formatter(cmd, opts.RootOptions)

	payload, err := resolvePayload(opts.Payload, opts.PayloadFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read payload", err)
	}

	validator, err := loadValidator(opts.SchemaFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	if err := validator.Validate(opts.EventName, payload); err != nil {
		return WrapExitError(ExitCommandError, "payload rejected by schema", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ev, err := st.Append(ctx, ledger.Candidate{
		Entity:     opts.Entity,
		EntityKey:  opts.EntityKey,
		EventName:  opts.EventName,
		Payload:    payload,
		AppendKey:  opts.AppendKey,
		PreviousID: opts.PreviousID,
	})
	if err != nil {
		return conflictExit(f, err)
	}

	result := AppendResult{
		EventID:   ev.EventID,
		GlobalSeq: ev.GlobalSeq,
		Entity:    ev.Entity,
		EntityKey: ev.EntityKey,
	}
	if opts.Format == "json" {
		return f.Success(result)
	}
	return f.Success(fmt.Sprintf("appended %s at seq %d", ev.EventID, ev.GlobalSeq))
}

// resolvePayload returns the payload bytes from --payload or --payload-file.
// Both empty is allowed: an event may carry an empty payload.
func resolvePayload(inline, file string) ([]byte, error) {
	if inline != "" && file != "" {
		return nil, fmt.Errorf("--payload and --payload-file are mutually exclusive")
	}
	if file != "" {
		return os.ReadFile(file)
	}
	return []byte(inline), nil
}

// loadValidator loads the optional schema file. An empty path yields a nil
// validator, which accepts everything.
func loadValidator(path string) (*schema.Validator, error) {
	if path == "" {
		return nil, nil
	}
	return schema.Load(path)
}
