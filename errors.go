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
	"errors"
	"fmt"
)

var (
	ErrBadCommand = errors.New("Empty or unusable worker command")
	ErrBadCount   = errors.New("Process count must be positive")
	ErrBadLimit   = errors.New("Memory limit must be in (0, 100]")
	ErrBadSignal  = errors.New("Unknown signal name")
	ErrNoSuchSlot = errors.New("No such worker slot")
	ErrNotIdle    = errors.New("Pool already started")
	ErrPoolClosed = errors.New("Pool is shut down")
)

// LaunchError reports a failure to start a worker process.  It carries the
// slot the launch was for, so callers can log the substitution context, and
// wraps the underlying cause from os/exec.
type LaunchError struct {
	Slot int
	Cmd  string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch worker %d (%s): %v", e.Slot, e.Cmd, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
