package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chainlog/chainlog/internal/ledger"
	"github.com/chainlog/chainlog/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database   string
	File       string
	SchemaFile string
}

// SeedFile is the YAML document consumed by the seed command.
type SeedFile struct {
	Events []SeedEvent `yaml:"events"`
}

// SeedEvent is one event in a seed file. Payload accepts any YAML value and
// is stored as its JSON encoding. Previous is optional: when omitted the
// event is chained onto the stream's current tail automatically.
type SeedEvent struct {
	Entity    string `yaml:"entity"`
	Key       string `yaml:"key"`
	Name      string `yaml:"name"`
	AppendKey string `yaml:"append_key"`
	Payload   any    `yaml:"payload"`
	Previous  string `yaml:"previous"`
}

// SeedResult holds the seed command output.
type SeedResult struct {
	Appended int      `json:"appended"`
	EventIDs []string `json:"event_ids"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Append a batch of events from a YAML file",
		Long: `Append a batch of events described in a YAML file, in file order.

Each entry names its stream and carries an append key; entries without an
explicit previous id are chained onto their stream's current tail, so a seed
file can describe a whole stream without knowing any event ids up front.
Re-running a seed file stops at the first already-applied entry with
DUPLICATE_APPEND_KEY.

File format:
  events:
    - entity: order
      key: O001
      name: order-placed
      append_key: seed-1
      payload: {sku: A-1, quantity: 2}

Examples:
  chainlog seed --db ./ledger.db --file fixtures/orders.yaml
  chainlog seed --db ./ledger.db --file orders.yaml --schema events.cue`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite ledger (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.File, "file", "", "path to YAML seed file (required)")
	_ = cmd.MarkFlagRequired("file")
	cmd.Flags().StringVar(&opts.SchemaFile, "schema", "", "CUE schema file for payload validation")

	return cmd
}

func runSeed(opts *SeedOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := formatter(cmd, opts.RootOptions)

	seed, err := loadSeedFile(opts.File)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load seed file", err)
	}

	validator, err := loadValidator(opts.SchemaFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load schema", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result := SeedResult{EventIDs: []string{}}
	for i, entry := range seed.Events {
		payload, err := seedPayload(entry.Payload)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("entry %d: bad payload", i+1), err)
		}
		if err := validator.Validate(entry.Name, payload); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("entry %d: payload rejected by schema", i+1), err)
		}

		previous := entry.Previous
		if previous == "" {
			tail, ok, err := st.LatestEventID(ctx, entry.Entity, entry.Key)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("entry %d: failed to resolve stream tail", i+1), err)
			}
			if ok {
				previous = tail
			}
		}

		ev, err := st.Append(ctx, ledger.Candidate{
			Entity:     entry.Entity,
			EntityKey:  entry.Key,
			EventName:  entry.Name,
			Payload:    payload,
			AppendKey:  entry.AppendKey,
			PreviousID: previous,
		})
		if err != nil {
			f.VerboseLog("entry %d rejected", i+1)
			return conflictExit(f, err)
		}
		result.Appended++
		result.EventIDs = append(result.EventIDs, ev.EventID)
		f.VerboseLog("entry %d appended as %s (seq %d)", i+1, ev.EventID, ev.GlobalSeq)
	}

	if opts.Format == "json" {
		return f.Success(result)
	}
	return f.Success(fmt.Sprintf("appended %d event(s)", result.Appended))
}

func loadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &seed, nil
}

// seedPayload converts a decoded YAML value to its JSON encoding. A missing
// payload becomes an empty body.
func seedPayload(v any) ([]byte, error) {
	if v == nil {
		return []byte{}, nil
	}
	return json.Marshal(v)
}
