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
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// lookupSignal resolves a signal name to its number.  Both bare ("USR1")
// and prefixed ("SIGUSR1") forms are accepted, case-insensitively.
func lookupSignal(name string) (syscall.Signal, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(n, "SIG") {
		n = "SIG" + n
	}
	if sig := unix.SignalNum(n); sig != 0 {
		return sig, nil
	}
	return 0, ErrBadSignal
}

// watchSignals subscribes to the operator signals: SIGINT and SIGTERM for
// shutdown, plus the configured soft-stop signal for fan-out to the pool.
// The router goroutine owns the channel until the supervisor stops.
func (s *Supervisor) watchSignals() {
	signal.Notify(s.sigCh, syscall.SIGINT, syscall.SIGTERM, s.softStop)
	go s.route()
}

// route dispatches received signals.  SIGINT/SIGTERM win over a soft-stop
// signal configured to the same number; everything else that arrives here
// is the soft-stop signal and is forwarded verbatim.
func (s *Supervisor) route() {
	for {
		select {
		case <-s.stopCh:
			signal.Stop(s.sigCh)
			return
		case sig := <-s.sigCh:
			num, ok := sig.(syscall.Signal)
			if !ok {
				continue
			}
			switch num {
			case syscall.SIGINT, syscall.SIGTERM:
				s.logger.Printf("INFO: pool %s: received %v, shutting down",
					s.cfg.Name, num)
				s.beginShutdown(num)
			default:
				s.logger.Printf("INFO: pool %s: forwarding %v to all workers",
					s.cfg.Name, num)
				s.forward(num)
			}
		}
	}
}

// forward delivers sig to every tracked pid.  A delivery failure is logged
// and skipped; it never interrupts the fan-out and never propagates.  The
// snapshot of pids is taken under the lock, the sends happen outside it.
func (s *Supervisor) forward(sig syscall.Signal) {
	s.lock()
	pids := make([]int, 0, len(s.tracked))
	for pid := range s.tracked {
		pids = append(pids, pid)
	}
	s.unlock()
	sort.Ints(pids)
	for _, pid := range pids {
		if err := s.kill(pid, sig); err != nil {
			s.logger.Printf("ERROR: pool %s: signal %v to pid %d failed: %v",
				s.cfg.Name, sig, pid, err)
		} else if s.cfg.Debug {
			s.logger.Printf("DEBUG: pool %s: signal %v sent to pid %d",
				s.cfg.Name, sig, pid)
		}
	}
}

// kill sends one signal to one pid through the supervisor's kill function,
// which tests replace to observe deliveries.
func (s *Supervisor) kill(pid int, sig syscall.Signal) error {
	return s.killFn(pid, sig)
}

func defaultKill(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}
