package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chainlog/chainlog/internal/ledger"
	"github.com/chainlog/chainlog/internal/store"
)

// execute runs the full CLI with the given args and returns captured output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// tempLedgerPath returns a db path inside a fresh temp dir. The file does
// not exist yet; opening the store creates it.
func tempLedgerPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "ledger.db")
}

// testCandidate builds an append candidate with a small JSON payload.
func testCandidate(entity, key, name, appendKey, previousID string) ledger.Candidate {
	return ledger.Candidate{
		Entity:     entity,
		EntityKey:  key,
		EventName:  name,
		Payload:    []byte(`{"n":1}`),
		AppendKey:  appendKey,
		PreviousID: previousID,
	}
}

// seedLedger creates a ledger at path with deterministic event ids and a
// fixed clock, appends the given candidates in order, and closes it.
func seedLedger(t *testing.T, path string, ids []string, candidates ...ledger.Candidate) {
	t.Helper()
	st, err := store.Open(path,
		store.WithIDGenerator(ledger.NewFixedGenerator(ids...)),
		store.WithNowFunc(func() time.Time {
			return time.Date(2025, 4, 7, 12, 0, 0, 0, time.UTC)
		}),
	)
	require.NoError(t, err)
	defer st.Close()

	for _, c := range candidates {
		_, err := st.Append(context.Background(), c)
		require.NoError(t, err)
	}
}
