package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "deliver", cmd.Use)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"compile", "validate", "launch", "item", "test", "render", "events", "verify", "scenario"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestRootCommand_PersistentFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"verbose", "format", "db", "specs"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag --%s", name)
	}
	assert.Equal(t, "v", cmd.PersistentFlags().Lookup("verbose").Shorthand)
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
}

func TestItemCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	item, _, err := cmd.Find([]string{"item"})
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, sub := range item.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"attempt", "close", "reinit", "reset", "solution", "playback", "terminate", "result", "source"} {
		assert.True(t, names[want], "missing item command %q", want)
	}
}

func TestTestCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	test, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, sub := range test.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"enter", "menu", "select-item", "finish-item", "respond", "end-part", "review-part", "review-item", "solution-item", "advance-part", "exit", "result", "source"} {
		assert.True(t, names[want], "missing test command %q", want)
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := execute(t, "validate", contentDir, "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestParseSessionID(t *testing.T) {
	id, err := parseSessionID("42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := parseSessionID(bad)
		require.Error(t, err, bad)
		assert.Equal(t, ExitCommandError, GetExitCode(err), bad)
	}
}

func TestActionURLs(t *testing.T) {
	assert.Empty(t, actionURLs("").Attempt)

	urls := actionURLs("/sessions/2/")
	assert.Equal(t, "/sessions/2/attempt", urls.Attempt)
	assert.Equal(t, "/sessions/2/playback/", urls.Playback)
	assert.Equal(t, "/sessions/2/select/", urls.SelectItem)
	assert.Equal(t, "/sessions/2/exit-test", urls.ExitTest)
}
