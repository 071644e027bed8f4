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
	"time"
)

// Health is the memory monitor's verdict on one worker.
type Health int

const (
	// Healthy workers are alive and within their memory budget.
	Healthy Health = iota
	// Dead workers sample at exactly zero percent, or have already
	// been reaped.
	Dead
	// Oversized workers exceed the per-worker memory budget.
	Oversized
)

func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Dead:
		return "dead"
	case Oversized:
		return "oversized"
	}
	return "unknown"
}

// PoolState is the lifecycle state of the whole pool.
type PoolState int

const (
	PoolIdle PoolState = iota
	PoolStarting
	PoolRunning
	PoolShuttingDown
	PoolStopped
)

func (s PoolState) String() string {
	switch s {
	case PoolIdle:
		return "idle"
	case PoolStarting:
		return "starting"
	case PoolRunning:
		return "running"
	case PoolShuttingDown:
		return "shutting down"
	case PoolStopped:
		return "stopped"
	}
	return "unknown"
}

// worker is one live (or recently live) slot occupant.  All mutable fields
// are guarded by the supervisor mutex; the immutable launch facts (index,
// pid, launchID, pidfile, started) are set before the worker is adopted
// into the table and never change afterward.
type worker struct {
	index    int
	pid      int
	launchID string
	pidfile  string
	started  time.Time

	// wait blocks until the operating system process has exited and
	// been reaped, returning the exit error as cmd.Wait reports it.
	// Fakes substitute their own.
	wait func() error

	exited  bool
	health  Health
	memPct  float64
	sampled time.Time
}

// WorkerInfo is a read-only snapshot of one slot.  A zero Pid means the
// slot is vacant (its last occupant was torn down and the replacement has
// not landed yet).
type WorkerInfo struct {
	Slot       int
	Pid        int
	LaunchID   string
	Pidfile    string
	StartedAt  time.Time
	Health     Health
	MemPercent float64
	SampledAt  time.Time
	Exited     bool
}

// PoolInfo is a read-only snapshot of the pool.
type PoolInfo struct {
	Name               string
	State              PoolState
	ProcessCount       int
	MemoryPercentLimit float64
	WorkerBudget       float64
	Serial             int64
	CreateTime         time.Time
	UpdateTime         time.Time
}

// info snapshots a worker.  Call with the supervisor lock held.
func (w *worker) info() *WorkerInfo {
	return &WorkerInfo{
		Slot:       w.index,
		Pid:        w.pid,
		LaunchID:   w.launchID,
		Pidfile:    w.pidfile,
		StartedAt:  w.started,
		Health:     w.health,
		MemPercent: w.memPct,
		SampledAt:  w.sampled,
		Exited:     w.exited,
	}
}
