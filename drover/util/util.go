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

// Package util is used for internal implementation bits in the CLI/UI.
package util

import (
	"fmt"
	"time"

	"github.com/drover-io/drover/rest"
)

// Status reduces a slot snapshot to one word: "vacant" for an empty
// slot, otherwise the monitor's verdict.
func Status(w *rest.WorkerInfo) string {
	if w.Vacant {
		return "vacant"
	}
	return w.Health
}

func FormatDuration(d time.Duration) string {

	sec := int((d % time.Minute) / time.Second)
	min := int((d % time.Hour) / time.Minute)
	hour := int(d / time.Hour)

	return fmt.Sprintf("%d:%02d:%02d", hour, min, sec)
}

// Uptime formats how long a worker has been running, or "-" for a slot
// with nothing in it.
func Uptime(w *rest.WorkerInfo) string {
	if w.Vacant || w.StartedAt.IsZero() {
		return "-"
	}
	d := time.Since(w.StartedAt)
	d -= d % time.Second
	return FormatDuration(d)
}

// FormatWorker renders one slot as a fixed width table row.
func FormatWorker(w *rest.WorkerInfo) string {
	if w.Vacant {
		return fmt.Sprintf("%4d %8s %-10s %8s %10s",
			w.Slot, "-", "vacant", "-", "-")
	}
	return fmt.Sprintf("%4d %8d %-10s %7.2f%% %10s  %s",
		w.Slot, w.Pid, w.Health, w.MemPercent, Uptime(w), w.Pidfile)
}
