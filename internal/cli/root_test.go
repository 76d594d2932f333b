package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "threadstate", cmd.Use)
	assert.Contains(t, cmd.Long, "verification audit log")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"thread", "create"},
		{"thread", "delete"},
		{"thread", "list"},
		{"config", "show"},
		{"config", "set"},
		{"durations"},
		{"verify", "record"},
		{"verify", "list"},
		{"outbox", "list"},
		{"outbox", "ack"},
		{"stats"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
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

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestConfigSetFlags(t *testing.T) {
	cmd := NewRootCommand()
	setCmd, _, err := cmd.Find([]string{"config", "set"})
	require.NoError(t, err)

	for _, name := range []string{"thread", "enabled", "disabled", "duration"} {
		assert.NotNil(t, setCmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestInvalidFormat(t *testing.T) {
	out, code := execute(t, "durations", "--format", "yaml")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, out, "invalid format")
}

func TestUnknownCommandIsUsageError(t *testing.T) {
	out, code := execute(t, "frobnicate")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, out, "INVALID_ARGUMENT")
}
