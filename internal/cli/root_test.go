package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainlog/chainlog/internal/ledger"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "chainlog", cmd.Use)
	assert.Contains(t, cmd.Long, "append-only")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"append", "replay", "tail", "streams", "seed"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestInvalidFormatRejected(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--format", "xml", "streams", "--db", "unused.db"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestAppendCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	appendCmd, _, err := cmd.Find([]string{"append"})
	require.NoError(t, err)

	for _, name := range []string{"db", "entity", "key", "name", "append-key", "payload", "payload-file", "previous", "schema"} {
		flag := appendCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "append should have --%s", name)
		// all append flags default to empty
		assert.Equal(t, "", flag.DefValue)
	}
}

func TestReplayCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	replayCmd, _, err := cmd.Find([]string{"replay"})
	require.NoError(t, err)

	for _, name := range []string{"db", "entity", "key", "names", "after"} {
		flag := replayCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "replay should have --%s", name)
	}
}

func TestTailCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	tailCmd, _, err := cmd.Find([]string{"tail"})
	require.NoError(t, err)

	for _, name := range []string{"db", "entity", "key"} {
		flag := tailCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "tail should have --%s", name)
	}
}

func TestSeedCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	seedCmd, _, err := cmd.Find([]string{"seed"})
	require.NoError(t, err)

	for _, name := range []string{"db", "file", "schema"} {
		flag := seedCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "seed should have --%s", name)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("closed pipe")
}

func TestConflictExit(t *testing.T) {
	conflict := ledger.NewStalePreviousError("order", "O001", "ev-1")

	t.Run("conflict reported with conflict exit code", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf}

		err := conflictExit(f, conflict)
		assert.Equal(t, ExitConflict, GetExitCode(err))
		assert.Contains(t, buf.String(), "STALE_PREVIOUS")
	})

	t.Run("formatter write failure surfaces as command error", func(t *testing.T) {
		f := &OutputFormatter{Format: "json", Writer: failingWriter{}}

		err := conflictExit(f, conflict)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "failed to write output")
	})

	t.Run("non-conflict error gets command exit code", func(t *testing.T) {
		buf := &bytes.Buffer{}
		f := &OutputFormatter{Format: "text", Writer: buf}

		err := conflictExit(f, errors.New("disk full"))
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, 0, ExitSuccess)
	assert.Equal(t, 1, ExitConflict)
	assert.Equal(t, 2, ExitCommandError)
}
