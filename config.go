// Copyright 2026 The Drover Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package drover

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kballard/go-shellquote"
)

// Defaults for the timing knobs.  These suit typical app-server workers;
// manifests only need to override them for unusually slow starters.
const (
	DefaultMonitorInterval = 10 * time.Second
	DefaultGracePeriod     = 5 * time.Second
	DefaultSummaryInterval = 60 * time.Second
	DefaultSoftStopSignal  = "SIGUSR1"
)

// Config describes one worker pool.  A zero value is not usable; Command,
// ProcessCount and MemoryPercentLimit must be set.  Everything else has a
// default.  Durations unmarshal from JSON as nanosecond counts.
type Config struct {
	// Name identifies the pool in logs and in the status API.
	Name string `json:"name"`

	// Command is the worker argv: program first, then its arguments.
	// The launcher injects the pidfile and cluster arguments between
	// the program and these arguments.
	Command []string `json:"command"`

	// Dir is the working directory for workers.  Empty means inherit.
	Dir string `json:"dir"`

	// Env lists extra KEY=VALUE entries appended to the inherited
	// environment of every worker.
	Env []string `json:"env"`

	// PidfilePrefix is the path prefix for per-slot pidfiles; slot i
	// uses PidfilePrefix + "." + i.  Defaults to a name-derived path
	// under the system temp directory.
	PidfilePrefix string `json:"pidfilePrefix"`

	// ProcessCount is the fixed pool size.  Must be positive.
	ProcessCount int `json:"processCount"`

	// MemoryPercentLimit is the whole-pool memory ceiling as a percent
	// of system RAM, in (0, 100].  Each worker's budget is this divided
	// by ProcessCount.
	MemoryPercentLimit float64 `json:"memoryPercentLimit"`

	// ClusterTag is an opaque string passed to every worker via the
	// injected --cluster argument.  Empty omits the argument.
	ClusterTag string `json:"clusterTag"`

	// SoftStopSignal names the signal sent to oversized workers before
	// the hard kill, and forwarded to the pool when the supervisor
	// itself receives it.  Accepts "USR1" or "SIGUSR1" forms.
	SoftStopSignal string `json:"softStopSignal"`

	MonitorInterval time.Duration `json:"monitorInterval"`
	GracePeriod     time.Duration `json:"gracePeriod"`
	SummaryInterval time.Duration `json:"summaryInterval"`

	// StatusAddr is the listen address for the read-only status API.
	// Empty disables the listener.
	StatusAddr string `json:"statusAddr"`

	// Debug turns on per-sample and per-signal log chatter.
	Debug bool `json:"debug"`
}

// pidfile returns the pidfile path for a slot.  This is the one place the
// path is derived, so the launcher and the replacement procedures cannot
// disagree about which file to remove.
func (c *Config) pidfile(slot int) string {
	return c.PidfilePrefix + "." + strconv.Itoa(slot)
}

// validate fills defaults and rejects unusable configurations.
func (c *Config) validate() error {
	if c.Name == "" {
		c.Name = "drover"
	}
	if len(c.Command) == 0 || c.Command[0] == "" {
		return ErrBadCommand
	}
	if c.ProcessCount <= 0 {
		return ErrBadCount
	}
	if c.MemoryPercentLimit <= 0 || c.MemoryPercentLimit > 100 {
		return ErrBadLimit
	}
	if c.PidfilePrefix == "" {
		c.PidfilePrefix = filepath.Join(os.TempDir(), c.Name)
	}
	if c.SoftStopSignal == "" {
		c.SoftStopSignal = DefaultSoftStopSignal
	}
	if _, err := lookupSignal(c.SoftStopSignal); err != nil {
		return err
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = DefaultMonitorInterval
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	if c.SummaryInterval <= 0 {
		c.SummaryInterval = DefaultSummaryInterval
	}
	return nil
}

// SplitCommand splits a single command string into an argv using shell
// quoting rules.  It exists so manifests and command lines can supply the
// worker command as one string.
func SplitCommand(s string) ([]string, error) {
	args, err := shellquote.Split(s)
	if err != nil || len(args) == 0 {
		return nil, ErrBadCommand
	}
	return args, nil
}

// LoadConfig reads a JSON pool manifest.  The command field may be either
// an array of strings or a single string, which is split with shell
// quoting rules.  Defaults are applied and the result validated.
func LoadConfig(r io.Reader) (*Config, error) {
	type wire struct {
		Config
		Command json.RawMessage `json:"command"`
	}
	var w wire
	dec := json.NewDecoder(r)
	if err := dec.Decode(&w); err != nil {
		return nil, err
	}
	cfg := w.Config
	if len(w.Command) > 0 {
		var list []string
		if err := json.Unmarshal(w.Command, &list); err == nil {
			cfg.Command = list
		} else {
			var str string
			if err := json.Unmarshal(w.Command, &str); err != nil {
				return nil, ErrBadCommand
			}
			args, err := SplitCommand(str)
			if err != nil {
				return nil, err
			}
			cfg.Command = args
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
