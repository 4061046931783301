package main

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

// quick keeps the race test short.
var quick = []string{"--race-count", "16", "--race-sleep", "1ms", "--workers", "2"}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := newApp(&stdout, &stderr).Run(append([]string{"splat"}, args...))
	return stdout.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	ec, ok := err.(cli.ExitCoder)
	require.True(t, ok, "error %v is not an exit coder", err)
	return ec.ExitCode()
}

func TestList(t *testing.T) {
	out, err := runApp(t, "list")
	require.NoError(t, err)

	assert.Contains(t, out, "0x0400 mutex")
	assert.Contains(t, out, "Kernel Mutex Tests")
	for _, name := range []string{"0x0401 tryenter", "0x0402 race", "0x0403 owned", "0x0404 owner"} {
		assert.Contains(t, out, name)
	}
}

func TestRun_OneTest(t *testing.T) {
	out, err := runApp(t, append(quick, "run", "mutex", "race")...)
	require.NoError(t, err)

	assert.Contains(t, out, "mutex: race: 2 racing threads correctly entered/exited the mutex 16 times")
	assert.Contains(t, out, "--- PASS mutex:race (0)")
	assert.NotContains(t, out, "owned")
}

func TestRun_ByID(t *testing.T) {
	out, err := runApp(t, "run", "0x0400", "1027")
	require.NoError(t, err)
	assert.Contains(t, out, "mutex: owned: Correct mutex_owned() behavior")
}

func TestRun_All(t *testing.T) {
	out, err := runApp(t, append(quick, "--mutex", "chan", "run", "--stats")...)
	require.NoError(t, err)

	for _, name := range []string{"tryenter", "race", "owned", "owner"} {
		assert.Contains(t, out, "--- PASS mutex:"+name)
	}
	assert.Contains(t, out, "splat.mutex.owner.pass")
	assert.Contains(t, out, "workq.mutex_wq.completed")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown subsystem", []string{"run", "rwlock"}},
		{"unknown test", []string{"run", "mutex", "0x0499"}},
		{"too many args", []string{"run", "mutex", "race", "extra"}},
		{"bad mutex kind", []string{"--mutex", "spin", "run"}},
		{"bad count", []string{"--race-count", "0", "run", "mutex", "race"}},
		{"missing config", []string{"--config", "/nonexistent/splat.yaml", "list"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, tt.args...)
			assert.Equal(t, 1, exitCode(t, err))
		})
	}
}

func TestRun_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splat.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(`
mutex:
  kind: chan
race:
  count: 1000
  sleep: 1ms
  workers: 3
`), 0o644))

	// Flags override the file.
	out, err := runApp(t, "--config", path, "--race-count", "12", "run", "mutex", "race")
	require.NoError(t, err)
	assert.Contains(t, out, "3 racing threads correctly entered/exited the mutex 12 times")
}

func TestRun_EnvironmentMutex(t *testing.T) {
	t.Setenv("SPLAT_MUTEX", "spin")
	_, err := runApp(t, "list")
	assert.Equal(t, 1, exitCode(t, err))
}

func TestVersion(t *testing.T) {
	out, err := runApp(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "splat version 0.1.0")
	assert.Contains(t, out, "mutex kinds: chan, default")
}
