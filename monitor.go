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
	"fmt"
	"strings"
	"time"
)

// verdict is the outcome of sampling one worker in one monitor round.
type verdict struct {
	w       *worker
	health  Health
	pct     float64
	sampled bool
}

// monitor drives the sampling rounds until the supervisor stops.
func (s *Supervisor) monitor() {
	ticker := time.NewTicker(s.cfg.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.pollOnce()
		}
	}
}

// pollOnce runs one monitor round: sample and classify every occupied
// slot, publish the observations, then act.  Classification of the whole
// pool finishes before any replacement starts, so one slot's teardown
// latency never delays another slot's verdict.
func (s *Supervisor) pollOnce() {
	type obs struct {
		w      *worker
		exited bool
		prev   Health
	}

	s.lock()
	snap := make([]obs, 0, len(s.slots))
	vacant := make([]int, 0)
	for i, w := range s.slots {
		if w == nil {
			vacant = append(vacant, i)
			continue
		}
		snap = append(snap, obs{w: w, exited: w.exited, prev: w.health})
	}
	budget := s.budget
	s.unlock()

	verdicts := make([]verdict, 0, len(snap))
	for _, o := range snap {
		v := verdict{w: o.w, sampled: true}
		switch {
		case o.exited:
			// Already reaped; no point sampling a pid that may
			// have been reused by now.
			v.health, v.pct = Dead, 0
		default:
			pct, err := s.mem.PercentOf(o.w.pid)
			if err != nil {
				s.logger.Printf("ERROR: worker.%d pid %d memory sample failed: %v (keeping %s)",
					o.w.index, o.w.pid, err, o.prev)
				v.sampled = false
				v.health = o.prev
			} else {
				v.pct = pct
				switch {
				case pct == 0.0:
					v.health = Dead
				case pct > budget:
					v.health = Oversized
				default:
					v.health = Healthy
				}
				if s.cfg.Debug {
					s.logger.Printf("DEBUG: worker.%d pid %d mem %.2f%% of %.2f%% budget",
						o.w.index, o.w.pid, pct, budget)
				}
			}
		}
		if v.sampled && v.health != o.prev {
			switch v.health {
			case Dead:
				s.logger.Printf("ERROR: worker.%d pid %d is dead (memory 0.0%%)",
					o.w.index, o.w.pid)
			case Oversized:
				s.logger.Printf("ERROR: worker.%d pid %d oversized: %.2f%% exceeds %.2f%% budget",
					o.w.index, o.w.pid, v.pct, budget)
			case Healthy:
				s.logger.Printf("INFO: worker.%d pid %d healthy (%.2f%%)",
					o.w.index, o.w.pid, v.pct)
			}
		}
		verdicts = append(verdicts, v)
	}

	s.lock()
	now := time.Now()
	for _, v := range verdicts {
		if s.slots[v.w.index] != v.w {
			continue
		}
		v.w.health = v.health
		if v.sampled {
			v.w.memPct = v.pct
			v.w.sampled = now
		}
	}
	if len(verdicts) > 0 {
		s.bumpSerial()
	}
	due := now.Sub(s.lastSummary) >= s.cfg.SummaryInterval
	if due {
		s.lastSummary = now
	}
	respawn := s.autoRespawn
	s.unlock()

	if due {
		s.logSummary(verdicts, vacant)
	}
	if !respawn {
		return
	}

	for _, v := range verdicts {
		switch v.health {
		case Dead:
			s.replaceDead(v.w)
		case Oversized:
			s.replaceOversized(v.w)
		}
	}
	for _, slot := range vacant {
		s.relaunch(slot, 0)
	}
}

// logSummary emits the single per-round pool overview line.  The monitor
// throttles it to once per SummaryInterval however often rounds run.
func (s *Supervisor) logSummary(verdicts []verdict, vacant []int) {
	parts := make([]string, s.cfg.ProcessCount)
	for _, v := range verdicts {
		pct := fmt.Sprintf("%.1f%%", v.pct)
		if !v.sampled {
			pct = "?"
		}
		parts[v.w.index] = fmt.Sprintf("slot %d pid %d %s %s",
			v.w.index, v.w.pid, pct, v.health)
	}
	for _, slot := range vacant {
		parts[slot] = fmt.Sprintf("slot %d vacant", slot)
	}
	s.logger.Printf("INFO: pool %s: budget %.2f%%/worker: %s",
		s.cfg.Name, s.budget, strings.Join(parts, ", "))
}
