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
	"io"
	"log"
	"os"
	"sync"
	"syscall"
	"time"
)

// Supervisor owns one worker pool.  The slot table is the single source of
// truth for which pid occupies which slot; every read or write of it, of
// the signal set, and of the pool state goes through the one mutex.  All
// blocking work (launches, grace periods, sampling) happens outside it.
type Supervisor struct {
	cfg     Config
	budget  float64
	slots   []*worker
	tracked map[int]*worker

	state       PoolState
	autoRespawn bool
	softStop    syscall.Signal

	launcher Launcher
	mem      MemorySource
	killFn   func(pid int, sig syscall.Signal) error

	logger    *log.Logger
	extLogger *log.Logger
	mlog      *MultiLogger
	log       *Log

	serial      int64
	createTime  time.Time
	updateTime  time.Time
	lastSummary time.Time

	sigCh  chan os.Signal
	stopCh chan struct{}
	doneCh chan struct{}

	doneOnce sync.Once
	stopOnce sync.Once
	wg       sync.WaitGroup

	mx  sync.Mutex
	cvs map[*sync.Cond]bool
}

// NewSupervisor validates the configuration and assembles a pool that has
// not started anything yet.  The per-worker budget is fixed here, once,
// from the configured limit and count.
func NewSupervisor(c *Config) (*Supervisor, error) {
	cfg := *c
	cfg.Command = append([]string(nil), c.Command...)
	cfg.Env = append([]string(nil), c.Env...)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	soft, err := lookupSignal(cfg.SoftStopSignal)
	if err != nil {
		return nil, err
	}

	s := &Supervisor{
		cfg:         cfg,
		budget:      cfg.MemoryPercentLimit / float64(cfg.ProcessCount),
		slots:       make([]*worker, cfg.ProcessCount),
		tracked:     make(map[int]*worker),
		state:       PoolIdle,
		autoRespawn: true,
		softStop:    soft,
		killFn:      defaultKill,
		// Seeding the serial from the clock means a restarted
		// supervisor invalidates any serial a client cached.
		serial: time.Now().UnixNano(),
		sigCh:  make(chan os.Signal, 2),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		cvs:    make(map[*sync.Cond]bool),
	}
	s.createTime = time.Now()
	s.updateTime = s.createTime
	s.mlog = NewMultiLogger()
	s.log = NewLog()
	s.mlog.AddLogger(log.New(s.log, "", 0))
	s.logger = s.mlog.Logger()
	s.launcher = &execLauncher{cfg: &s.cfg, logger: s.logger}
	s.mem = defaultMemorySource()
	return s, nil
}

func (s *Supervisor) lock() {
	s.mx.Lock()
}

func (s *Supervisor) unlock() {
	s.mx.Unlock()
}

// bumpSerial increments the serial and wakes watchers.  Call with the lock
// held, otherwise woken goroutines may miss the new value.
func (s *Supervisor) bumpSerial() int64 {
	s.updateTime = time.Now()
	s.serial++
	for cv := range s.cvs {
		cv.Broadcast()
	}
	return s.serial
}

// liveLocked counts occupied slots.  Call with the lock held.
func (s *Supervisor) liveLocked() int {
	n := 0
	for _, w := range s.slots {
		if w != nil {
			n++
		}
	}
	return n
}

// SetLogWriter attaches an additional destination for supervisor output.
// The in-memory ring always receives a copy regardless.  Passing nil
// detaches the previous writer.
func (s *Supervisor) SetLogWriter(w io.Writer) {
	s.lock()
	defer s.unlock()
	if s.extLogger != nil {
		s.mlog.DelLogger(s.extLogger)
		s.extLogger = nil
	}
	if w != nil {
		s.extLogger = log.New(w, "", log.LstdFlags)
		s.mlog.AddLogger(s.extLogger)
	}
}

// SetLauncher replaces the process launcher.  Only effective before Start.
func (s *Supervisor) SetLauncher(l Launcher) {
	s.lock()
	if s.state == PoolIdle {
		s.launcher = l
	}
	s.unlock()
}

// SetMemorySource replaces the memory sampler.  Only effective before
// Start.
func (s *Supervisor) SetMemorySource(m MemorySource) {
	s.lock()
	if s.state == PoolIdle {
		s.mem = m
	}
	s.unlock()
}

// Name returns the pool name.
func (s *Supervisor) Name() string {
	return s.cfg.Name
}

// Budget returns the per-worker memory budget in percent of system RAM.
func (s *Supervisor) Budget() float64 {
	return s.budget
}

// Serial returns the pool serial, which increments on every externally
// visible change.
func (s *Supervisor) Serial() int64 {
	s.lock()
	rv := s.serial
	s.unlock()
	return rv
}

// WatchSerial blocks until the pool serial differs from old or the
// expiration passes, and returns the current serial.  A zero expiration
// polls without blocking.
func (s *Supervisor) WatchSerial(old int64, expire time.Duration) int64 {
	expired := false
	var timer *time.Timer
	cv := sync.NewCond(&s.mx)
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			s.lock()
			expired = true
			cv.Broadcast()
			s.unlock()
		})
	} else {
		expired = true
	}

	s.lock()
	s.cvs[cv] = true
	for s.serial == old && !expired {
		cv.Wait()
	}
	delete(s.cvs, cv)
	rv := s.serial
	s.unlock()
	if timer != nil {
		timer.Stop()
	}
	return rv
}

// GetLog returns buffered log records newer than lastid, plus the newest
// record id for use as a change marker.
func (s *Supervisor) GetLog(lastid int64) ([]LogRecord, int64) {
	return s.log.GetRecords(lastid)
}

// WatchLog blocks until the log moves past old or the expiration passes.
func (s *Supervisor) WatchLog(old int64, expire time.Duration) int64 {
	return s.log.Watch(old, expire)
}

// Pool snapshots pool-level state.
func (s *Supervisor) Pool() *PoolInfo {
	s.lock()
	defer s.unlock()
	return &PoolInfo{
		Name:               s.cfg.Name,
		State:              s.state,
		ProcessCount:       s.cfg.ProcessCount,
		MemoryPercentLimit: s.cfg.MemoryPercentLimit,
		WorkerBudget:       s.budget,
		Serial:             s.serial,
		CreateTime:         s.createTime,
		UpdateTime:         s.updateTime,
	}
}

// Workers snapshots every slot in slot order.  Vacant slots yield entries
// with a zero Pid.
func (s *Supervisor) Workers() []*WorkerInfo {
	s.lock()
	defer s.unlock()
	rv := make([]*WorkerInfo, 0, len(s.slots))
	for i, w := range s.slots {
		if w == nil {
			rv = append(rv, &WorkerInfo{Slot: i})
		} else {
			rv = append(rv, w.info())
		}
	}
	return rv
}

// Worker snapshots a single slot.
func (s *Supervisor) Worker(slot int) (*WorkerInfo, error) {
	s.lock()
	defer s.unlock()
	if slot < 0 || slot >= len(s.slots) {
		return nil, ErrNoSuchSlot
	}
	if w := s.slots[slot]; w != nil {
		return w.info(), nil
	}
	return &WorkerInfo{Slot: slot}, nil
}

// adopt installs a freshly launched worker into the table and the signal
// set, and writes its pidfile.  If the pool stopped respawning while the
// launch was in flight the newcomer is discarded instead: it gets SIGTERM,
// a detached reap, and no slot.
func (s *Supervisor) adopt(w *worker) bool {
	s.lock()
	if !s.autoRespawn {
		s.unlock()
		s.kill(w.pid, syscall.SIGTERM)
		go func() { _ = w.wait() }()
		s.logger.Printf("INFO: worker.%d pid %d discarded: pool is shutting down",
			w.index, w.pid)
		return false
	}
	w.health = Healthy
	s.slots[w.index] = w
	s.tracked[w.pid] = w
	s.bumpSerial()
	s.unlock()
	s.writePidfile(w)
	return true
}

// reap waits for one worker's OS process and records the exit.  Reaping is
// bookkeeping only: while the pool runs, a dead worker stays in its slot
// until the monitor classifies it Dead and the replacement procedure acts.
// During shutdown the reap itself retires the slot, and the last one out
// releases the waiters.
func (s *Supervisor) reap(w *worker) {
	err := w.wait()
	s.lock()
	w.exited = true
	if s.tracked[w.pid] == w {
		delete(s.tracked, w.pid)
	}
	if s.state == PoolShuttingDown {
		if s.slots[w.index] == w {
			s.slots[w.index] = nil
		}
		remaining := s.liveLocked()
		s.bumpSerial()
		s.unlock()
		if err != nil {
			s.logger.Printf("INFO: worker.%d pid %d exited (%v), %d remaining",
				w.index, w.pid, err, remaining)
		} else {
			s.logger.Printf("INFO: worker.%d pid %d exited, %d remaining",
				w.index, w.pid, remaining)
		}
		if remaining == 0 {
			s.finish()
		}
		return
	}
	s.bumpSerial()
	s.unlock()
	if s.cfg.Debug {
		s.logger.Printf("DEBUG: worker.%d pid %d exited (%v); awaiting monitor verdict",
			w.index, w.pid, err)
	}
}

// Start launches the full pool, then the monitor and the signal router.
// Any launch failure aborts the whole startup: workers launched so far are
// torn down again and the structured error is returned.  A pool can be
// started once.  A Stop that lands while launches are still in flight wins:
// the pool never reaches Running, the workers adopted so far drain through
// their reapers, and Start still returns nil with Wait releasing once the
// drain completes.
func (s *Supervisor) Start() error {
	s.lock()
	switch s.state {
	case PoolIdle:
	case PoolShuttingDown, PoolStopped:
		s.unlock()
		return ErrPoolClosed
	default:
		s.unlock()
		return ErrNotIdle
	}
	s.state = PoolStarting
	s.bumpSerial()
	s.unlock()

	s.logger.Printf("*** Drover pool starting: %s (%d workers, budget %.2f%%/worker) ***",
		s.cfg.Name, s.cfg.ProcessCount, s.budget)

	launched := make([]*worker, 0, s.cfg.ProcessCount)
	for i := 0; i < s.cfg.ProcessCount; i++ {
		w, err := s.launcher.Launch(i)
		if err != nil {
			s.logger.Printf("ERROR: %v; aborting pool startup", err)
			s.rollback(launched)
			return err
		}
		if !s.adopt(w) {
			// Shutdown began while the launch was in flight; adopt
			// already discarded the newcomer.
			break
		}
		launched = append(launched, w)
		s.logger.Printf("INFO: worker.%d launched pid %d (launch %s)",
			i, w.pid, w.launchID)
	}

	s.lock()
	if s.state != PoolStarting {
		// Stop won the race.  The pool never reaches Running: no
		// monitor, no signal router.  The adopted workers still get
		// reapers so the shutdown drain completes.
		s.unlock()
		s.logger.Printf("INFO: pool %s: startup interrupted by shutdown",
			s.cfg.Name)
		for _, w := range launched {
			go s.reap(w)
		}
		if len(launched) == 0 {
			s.finish()
		}
		return nil
	}
	s.state = PoolRunning
	s.bumpSerial()
	s.unlock()

	// Reapers only start once the whole pool is up, so a startup
	// rollback owns every wait unconditionally.
	for _, w := range launched {
		go s.reap(w)
	}
	s.watchSignals()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.monitor()
	}()
	s.logger.Printf("*** Drover pool running: %s ***", s.cfg.Name)
	return nil
}

// rollback tears down the partially launched pool after a startup failure.
// Each worker gets SIGTERM, a grace timer backed by SIGKILL, and a
// synchronous reap; pidfiles are removed.
func (s *Supervisor) rollback(launched []*worker) {
	s.lock()
	s.autoRespawn = false
	s.state = PoolStopped
	for i := range s.slots {
		s.slots[i] = nil
	}
	s.tracked = make(map[int]*worker)
	s.bumpSerial()
	s.unlock()

	for _, w := range launched {
		if err := s.kill(w.pid, syscall.SIGTERM); err != nil {
			s.logger.Printf("ERROR: worker.%d pid %d rollback signal: %v",
				w.index, w.pid, err)
		}
		timer := time.AfterFunc(s.cfg.GracePeriod, func() {
			s.kill(w.pid, syscall.SIGKILL)
		})
		_ = w.wait()
		timer.Stop()
		s.removePidfile(w)
		s.logger.Printf("INFO: worker.%d pid %d rolled back", w.index, w.pid)
	}

	s.doneOnce.Do(func() {
		close(s.doneCh)
	})
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// beginShutdown moves the pool to ShuttingDown exactly once, permanently
// disables respawning, and forwards the triggering signal to every tracked
// worker.  Repeat shutdown signals just fan out again.  The transition is
// one-way; nothing ever re-enables respawning.
func (s *Supervisor) beginShutdown(sig syscall.Signal) {
	s.lock()
	if s.state == PoolShuttingDown || s.state == PoolStopped {
		s.unlock()
		s.forward(sig)
		return
	}
	s.state = PoolShuttingDown
	s.autoRespawn = false
	// Workers that already exited were reaped; retire their slots here
	// so the wait below counts only live ones.
	for i, w := range s.slots {
		if w != nil && w.exited {
			s.slots[i] = nil
		}
	}
	remaining := s.liveLocked()
	s.bumpSerial()
	s.unlock()

	s.forward(sig)
	if remaining == 0 {
		s.finish()
	}
}

// finish marks the pool stopped and releases Run and Wait.  Safe to call
// more than once.
func (s *Supervisor) finish() {
	s.lock()
	if s.state != PoolStopped {
		s.state = PoolStopped
		s.bumpSerial()
	}
	s.unlock()
	s.doneOnce.Do(func() {
		s.logger.Printf("*** Drover pool stopped: %s ***", s.cfg.Name)
		close(s.doneCh)
	})
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Stop shuts the pool down programmatically, exactly as if SIGTERM had
// arrived: respawning is disabled forever and SIGTERM is forwarded to
// every tracked worker.
func (s *Supervisor) Stop() {
	s.beginShutdown(syscall.SIGTERM)
}

// Wait blocks until the pool has fully stopped: every tracked worker
// reaped and the monitor's final round, including any grace period it was
// in, run to completion.
func (s *Supervisor) Wait() {
	<-s.doneCh
	s.wg.Wait()
}

// Run starts the pool and blocks until it shuts down.  This is the whole
// daemon lifecycle in one call.
func (s *Supervisor) Run() error {
	if err := s.Start(); err != nil {
		return err
	}
	s.Wait()
	return nil
}
