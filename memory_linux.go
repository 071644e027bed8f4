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

//go:build linux

package drover

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// procMemory samples resident set sizes from /proc/<pid>/statm.  Total
// system memory is read once at construction; the per-worker budget math
// assumes a fixed denominator anyway.
type procMemory struct {
	pageSize uint64
	totalRAM uint64
}

func newProcMemory() (*procMemory, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return nil, err
	}
	total := uint64(si.Totalram) * uint64(si.Unit)
	if total == 0 {
		return nil, errors.New("sysinfo reports zero total memory")
	}
	return &procMemory{
		pageSize: uint64(os.Getpagesize()),
		totalRAM: total,
	}, nil
}

func (p *procMemory) PercentOf(pid int) (float64, error) {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/statm")
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	// statm fields: size resident shared text lib data dt (in pages)
	fields := strings.Fields(string(b))
	if len(fields) < 2 {
		return 0, fmt.Errorf("malformed statm for pid %d", pid)
	}
	rss, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed statm for pid %d: %v", pid, err)
	}
	return float64(rss*p.pageSize) / float64(p.totalRAM) * 100.0, nil
}

func defaultMemorySource() MemorySource {
	if ms, err := newProcMemory(); err == nil {
		return ms
	}
	return psMemory{}
}
