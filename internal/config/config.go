// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the harness configuration: the mutex kind under test,
// the race test parameters and the logger setup. A Config is built from
// Default, optionally overlaid by a YAML or JSON file, and then by flags.
package config

import (
	"encoding/json"
	"io/ioutil"
	"path/filepath"
	"time"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"golang.org/x/mod/semver"

	"github.com/kolkov/splat/internal/kmutex"
	"github.com/kolkov/splat/internal/log"
	"github.com/kolkov/splat/internal/subsys/mutex"
	"github.com/kolkov/splat/internal/workq"
)

// LogConfig selects the logger output and level.
type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Output string `json:"output,omitempty"`
}

// MutexConfig selects the mutex implementation under test.
type MutexConfig struct {
	Kind string `json:"kind,omitempty"`
}

// RaceConfig parameterizes the race test.
type RaceConfig struct {
	Count      int    `json:"count,omitempty"`
	Sleep      string `json:"sleep,omitempty"`
	Workers    int    `json:"workers,omitempty"`
	QueueDepth int    `json:"queue_depth,omitempty"`
}

// Config is the harness configuration.
type Config struct {
	Log   LogConfig   `json:"log,omitempty"`
	Mutex MutexConfig `json:"mutex,omitempty"`
	Race  RaceConfig  `json:"race,omitempty"`

	// MinVersion, if set, is the oldest harness version the file is meant for.
	MinVersion string `json:"min_version,omitempty"`
}

// Default returns the configuration the harness runs with when nothing is
// overridden.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Output: "stderr",
		},
		Mutex: MutexConfig{
			Kind: kmutex.KindDefault,
		},
		Race: RaceConfig{
			Count: mutex.DefaultCount,
			Sleep: mutex.DefaultSleep.String(),
		},
	}
}

// Load reads path over the defaults. Files ending in .yaml or .yml are
// converted from YAML first; anything else is parsed as JSON.
func Load(path string) (*Config, error) {
	content, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if yamlFormat(path) {
		content, err = yaml.YAMLToJSON(content)
		if err != nil {
			return nil, errors.Wrapf(err, "translate yaml config %s", path)
		}
	}

	cfg := Default()
	if err := json.Unmarshal(content, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	log.DefaultLogger.Debugf("[config] loaded %s", path)
	return cfg, nil
}

func yamlFormat(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

// SleepDuration parses Race.Sleep. An empty value is the default sleep.
func (c *Config) SleepDuration() (time.Duration, error) {
	if c.Race.Sleep == "" {
		return mutex.DefaultSleep, nil
	}
	d, err := time.ParseDuration(c.Race.Sleep)
	if err != nil {
		return 0, errors.Wrap(err, "race.sleep")
	}
	return d, nil
}

// Validate checks every field. version is the running harness version and is
// compared with MinVersion.
func (c *Config) Validate(version string) error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	if _, err := kmutex.FactoryFor(c.Mutex.Kind); err != nil {
		return errors.Wrap(err, "mutex.kind")
	}
	if c.Race.Count < 1 {
		return errors.Errorf("race.count %d: must be at least 1", c.Race.Count)
	}
	d, err := c.SleepDuration()
	if err != nil {
		return err
	}
	if d < 0 {
		return errors.Errorf("race.sleep %v: must not be negative", d)
	}
	if c.Race.Workers < 0 || c.Race.Workers > workq.MaxWorkers {
		return errors.Errorf("race.workers %d: must be in [0, %d]", c.Race.Workers, workq.MaxWorkers)
	}
	if c.Race.QueueDepth < 0 {
		return errors.Errorf("race.queue_depth %d: must not be negative", c.Race.QueueDepth)
	}

	if c.MinVersion != "" {
		if !semver.IsValid(c.MinVersion) {
			return errors.Errorf("min_version %q: not a semantic version", c.MinVersion)
		}
		if !semver.IsValid(version) {
			return errors.Errorf("harness version %q: not a semantic version", version)
		}
		if semver.Compare(version, c.MinVersion) < 0 {
			return errors.Errorf("config requires harness %s or newer, running %s", c.MinVersion, version)
		}
	}
	return nil
}

// MutexOptions converts the configuration into mutex subsystem options.
// The metrics registry is left for the caller to set.
func (c *Config) MutexOptions() (mutex.Options, error) {
	factory, err := kmutex.FactoryFor(c.Mutex.Kind)
	if err != nil {
		return mutex.Options{}, err
	}
	sleep, err := c.SleepDuration()
	if err != nil {
		return mutex.Options{}, err
	}
	return mutex.Options{
		Factory:    factory,
		Count:      c.Race.Count,
		Sleep:      sleep,
		Workers:    c.Race.Workers,
		QueueDepth: c.Race.QueueDepth,
	}, nil
}
