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
	"os"
	"strconv"
	"syscall"
	"time"
)

// replaceDead removes a dead worker from the table, clears its pidfile,
// and launches a replacement into the same slot.  The procedure is a no-op
// if the slot has already moved on or the pool stopped respawning.
func (s *Supervisor) replaceDead(w *worker) {
	s.lock()
	if s.slots[w.index] != w || !s.autoRespawn {
		s.unlock()
		return
	}
	s.slots[w.index] = nil
	if s.tracked[w.pid] == w {
		delete(s.tracked, w.pid)
	}
	s.bumpSerial()
	s.unlock()

	s.removePidfile(w)
	s.relaunch(w.index, w.pid)
}

// replaceOversized walks an over-budget worker down.  The order matters:
// the worker leaves the signal set before anything else, so a shutdown
// arriving mid-procedure cannot deliver to a pid that is being torn down.
// Then the soft-stop signal, a full grace period, an unconditional kill,
// and only after all that the replacement launch for the same slot.
func (s *Supervisor) replaceOversized(w *worker) {
	s.lock()
	if s.slots[w.index] != w {
		s.unlock()
		return
	}
	if s.tracked[w.pid] == w {
		delete(s.tracked, w.pid)
	}
	s.slots[w.index] = nil
	s.bumpSerial()
	soft := s.softStop
	grace := s.cfg.GracePeriod
	s.unlock()

	s.logger.Printf("INFO: worker.%d pid %d: sending %v, then %v grace",
		w.index, w.pid, soft, grace)
	if err := s.kill(w.pid, soft); err != nil {
		s.logger.Printf("ERROR: worker.%d pid %d: soft stop failed: %v",
			w.index, w.pid, err)
	}
	time.Sleep(grace)
	// Unconditional: a worker that exited during grace makes this an
	// error we ignore.
	s.logger.Printf("INFO: worker.%d pid %d: hard kill after grace",
		w.index, w.pid)
	if err := s.kill(w.pid, syscall.SIGKILL); err != nil && s.cfg.Debug {
		s.logger.Printf("DEBUG: worker.%d pid %d: kill: %v",
			w.index, w.pid, err)
	}

	s.relaunch(w.index, w.pid)
}

// relaunch fills a vacant slot.  oldPid is for the substitution log line;
// zero means the slot was simply found vacant (an earlier replacement
// launch failed) rather than actively replaced this round.
func (s *Supervisor) relaunch(slot int, oldPid int) {
	s.lock()
	if !s.autoRespawn || s.slots[slot] != nil {
		s.unlock()
		return
	}
	s.unlock()

	w, err := s.launcher.Launch(slot)
	if err != nil {
		s.logger.Printf("ERROR: %v; slot %d left vacant until next round",
			err, slot)
		return
	}
	if !s.adopt(w) {
		return
	}
	go s.reap(w)
	if oldPid != 0 {
		s.logger.Printf("INFO: worker.%d replaced: pid %d -> pid %d (launch %s)",
			slot, oldPid, w.pid, w.launchID)
	} else {
		s.logger.Printf("INFO: worker.%d launched pid %d (launch %s)",
			slot, w.pid, w.launchID)
	}
}

// writePidfile records a worker's pid so external tooling can find it even
// when the worker ignores the injected --pidfile argument.  A write failure
// only logs; the worker keeps running.
func (s *Supervisor) writePidfile(w *worker) {
	data := []byte(strconv.Itoa(w.pid) + "\n")
	if err := os.WriteFile(w.pidfile, data, 0644); err != nil {
		s.logger.Printf("ERROR: worker.%d pidfile %s: %v",
			w.index, w.pidfile, err)
	}
}

func (s *Supervisor) removePidfile(w *worker) {
	if err := os.Remove(w.pidfile); err != nil && !os.IsNotExist(err) {
		s.logger.Printf("ERROR: worker.%d pidfile %s: %v",
			w.index, w.pidfile, err)
	}
}
