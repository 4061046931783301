// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/splat/internal/kmutex"
	"github.com/kolkov/splat/internal/subsys/mutex"
)

const testVersion = "v0.2.0"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate(testVersion))

	assert.Equal(t, kmutex.KindDefault, cfg.Mutex.Kind)
	assert.Equal(t, mutex.DefaultCount, cfg.Race.Count)

	d, err := cfg.SleepDuration()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, d)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "splat.yaml", `
log:
  level: debug
mutex:
  kind: chan
race:
  count: 64
  sleep: 2ms
  workers: 4
  queue_depth: 80
min_version: v0.1.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate(testVersion))

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "stderr", cfg.Log.Output, "unset fields keep their defaults")
	assert.Equal(t, kmutex.KindChan, cfg.Mutex.Kind)
	assert.Equal(t, RaceConfig{Count: 64, Sleep: "2ms", Workers: 4, QueueDepth: 80}, cfg.Race)

	opts, err := cfg.MutexOptions()
	require.NoError(t, err)
	assert.Equal(t, 64, opts.Count)
	assert.Equal(t, 2*time.Millisecond, opts.Sleep)
	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, 80, opts.QueueDepth)
	require.NotNil(t, opts.Factory)
	assert.IsType(t, &kmutex.ChanMutex{}, opts.Factory("probe"))
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "splat.json", `{"race": {"count": 3, "sleep": "0s"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate(testVersion))
	assert.Equal(t, 3, cfg.Race.Count)
	assert.Equal(t, kmutex.KindDefault, cfg.Mutex.Kind)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yml", "race: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.json", "race:\n  count: 1\n"))
	assert.Error(t, err, "non-yaml extensions are parsed as JSON")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"mutex kind", func(c *Config) { c.Mutex.Kind = "spin" }},
		{"zero count", func(c *Config) { c.Race.Count = 0 }},
		{"negative count", func(c *Config) { c.Race.Count = -1 }},
		{"bad sleep", func(c *Config) { c.Race.Sleep = "soon" }},
		{"negative sleep", func(c *Config) { c.Race.Sleep = "-1ms" }},
		{"negative workers", func(c *Config) { c.Race.Workers = -1 }},
		{"too many workers", func(c *Config) { c.Race.Workers = 1 << 20 }},
		{"negative depth", func(c *Config) { c.Race.QueueDepth = -1 }},
		{"invalid min version", func(c *Config) { c.MinVersion = "1.0" }},
		{"newer min version", func(c *Config) { c.MinVersion = "v0.3.0" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate(testVersion))
		})
	}
}

func TestValidate_MinVersion(t *testing.T) {
	cfg := Default()
	cfg.MinVersion = testVersion
	assert.NoError(t, cfg.Validate(testVersion))

	cfg.MinVersion = "v0.1.9"
	assert.NoError(t, cfg.Validate(testVersion))

	assert.Error(t, cfg.Validate("dev"))
}
