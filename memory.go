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
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// MemorySource reports a process's memory usage as a percentage of system
// RAM.  A pid that no longer exists reports 0.0 with a nil error: vanished
// is "using nothing", not a sampling failure.  Errors are reserved for the
// sampling machinery itself breaking.
type MemorySource interface {
	PercentOf(pid int) (float64, error)
}

// psMemory samples by shelling out to ps(1).  It is the portable fallback
// for systems where /proc is not available.
type psMemory struct{}

func (psMemory) PercentOf(pid int) (float64, error) {
	out, err := exec.Command("ps", "-o", "%mem=", "-p",
		strconv.Itoa(pid)).Output()
	if err != nil {
		// ps exits nonzero with no output when the pid is gone.
		var ee *exec.ExitError
		if errors.As(err, &ee) && len(bytes.TrimSpace(out)) == 0 {
			return 0, nil
		}
		return 0, err
	}
	return parseMemPercent(string(out))
}

func parseMemPercent(s string) (float64, error) {
	f := strings.TrimSpace(s)
	v, err := strconv.ParseFloat(f, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable ps memory output %q", f)
	}
	return v, nil
}
