package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes body to a scenario file next to an empty content
// directory and returns the file path.
func writeScenario(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "content"), 0o755))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario_Fixtures(t *testing.T) {
	for _, name := range []string{"practice_lifecycle", "quiz_walkthrough"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)
			assert.Equal(t, name, s.Name)
			assert.True(t, filepath.IsAbs(s.Content) || filepath.Base(s.Content) == "content")
			assert.NotEmpty(t, s.Steps)
			assert.Equal(t, OpLaunch, s.Steps[0].Op)
		})
	}
}

func TestLoadScenario_ResolvesContentRelativeToFile(t *testing.T) {
	path := writeScenario(t, `
name: relative
description: content next to the scenario
content: content
steps:
  - op: launch
    delivery: practice
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "content"), s.Content)
}

func TestLoadScenario_ParsesExpectations(t *testing.T) {
	path := writeScenario(t, `
name: expectations
description: every expect field
content: content
seed: 42
steps:
  - op: launch
    delivery: practice
    expect:
      event: INIT
      closed: false
  - op: attempt
    responses:
      RESPONSE: [A, B]
    expect:
      error: FORBIDDEN
      privilege: MAKE_ATTEMPT
      terminated: false
  - op: render
    expect:
      contains: Paris
assertions:
  - type: final_state
    expect:
      num_attempts: 1
      closed: true
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(42), s.Seed)
	require.Len(t, s.Steps, 3)
	launch := s.Steps[0]
	require.NotNil(t, launch.Expect)
	require.NotNil(t, launch.Expect.Closed)
	assert.False(t, *launch.Expect.Closed)
	assert.Nil(t, launch.Expect.Terminated)

	attempt := s.Steps[1]
	assert.Equal(t, []string{"A", "B"}, attempt.Responses["RESPONSE"])
	assert.Equal(t, "MAKE_ATTEMPT", attempt.Expect.Privilege)

	require.Len(t, s.Assertions, 1)
	assert.Equal(t, 1, s.Assertions[0].Expect["num_attempts"])
	assert.Equal(t, true, s.Assertions[0].Expect["closed"])
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown field",
			body: `
name: x
description: x
content: content
proctor: abc
steps:
  - op: launch
    delivery: practice
`,
			want: "field proctor not found",
		},
		{
			name: "missing name",
			body: `
description: x
content: content
steps:
  - op: launch
    delivery: practice
`,
			want: "name is required",
		},
		{
			name: "missing content directory",
			body: `
name: x
description: x
content: nowhere
steps:
  - op: launch
    delivery: practice
`,
			want: "content directory not found",
		},
		{
			name: "no steps",
			body: `
name: x
description: x
content: content
`,
			want: "steps list is required",
		},
		{
			name: "unknown op",
			body: `
name: x
description: x
content: content
steps:
  - op: launch
    delivery: practice
  - op: teleport
`,
			want: `unknown op "teleport"`,
		},
		{
			name: "launch without delivery",
			body: `
name: x
description: x
content: content
steps:
  - op: launch
`,
			want: "delivery is required for launch",
		},
		{
			name: "double launch",
			body: `
name: x
description: x
content: content
steps:
  - op: launch
    delivery: practice
  - op: launch
    delivery: exam
`,
			want: `session "main" launched twice`,
		},
		{
			name: "session not launched",
			body: `
name: x
description: x
content: content
steps:
  - op: launch
    delivery: practice
  - op: close
    session: other
`,
			want: `session "other" is not launched`,
		},
		{
			name: "select item without item",
			body: `
name: x
description: x
content: content
steps:
  - op: launch
    delivery: quiz
  - op: select_item
`,
			want: "item is required for select_item",
		},
		{
			name: "playback of a later step",
			body: `
name: x
description: x
content: content
steps:
  - op: launch
    delivery: practice
  - op: playback
    target: 3
  - op: close
`,
			want: "target must name an earlier step",
		},
		{
			name: "unknown final state key",
			body: `
name: x
description: x
content: content
steps:
  - op: launch
    delivery: practice
assertions:
  - type: final_state
    expect:
      flavour: vanilla
`,
			want: `unknown final_state key "flavour"`,
		},
		{
			name: "assertion on unknown session",
			body: `
name: x
description: x
content: content
steps:
  - op: launch
    delivery: practice
assertions:
  - type: chain_intact
    session: ghost
`,
			want: `session "ghost" is not launched`,
		},
		{
			name: "event count without event",
			body: `
name: x
description: x
content: content
steps:
  - op: launch
    delivery: practice
assertions:
  - type: event_count
    count: 2
`,
			want: "event is required for event_count",
		},
		{
			name: "unknown assertion type",
			body: `
name: x
description: x
content: content
steps:
  - op: launch
    delivery: practice
assertions:
  - type: trace_contains
`,
			want: `unknown assertion type "trace_contains"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
