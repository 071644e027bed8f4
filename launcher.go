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
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Launcher starts the worker process for a slot.  The production
// implementation forks; tests substitute a fake that invents pids.
type Launcher interface {
	Launch(slot int) (*worker, error)
}

// execLauncher launches workers with os/exec.  The argv it builds is the
// configured program, then the injected --pidfile and --cluster arguments,
// then the user's remaining arguments in their original order, so a worker
// can override the injected values positionally if it insists.
type execLauncher struct {
	cfg    *Config
	logger *log.Logger
}

// doLog drains one output pipe into the supervisor log, a line at a time.
func (l *execLauncher) doLog(r io.ReadCloser, prefix string) {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) != 0 {
			l.logger.Print(prefix, strings.Trim(line, "\n"))
		}
		if err != nil {
			return
		}
	}
}

func (l *execLauncher) Launch(slot int) (*worker, error) {
	prog := l.cfg.Command[0]
	pidfile := l.cfg.pidfile(slot)

	args := make([]string, 0, len(l.cfg.Command)+4)
	args = append(args, "--pidfile", pidfile)
	if l.cfg.ClusterTag != "" {
		args = append(args, "--cluster", l.cfg.ClusterTag)
	}
	args = append(args, l.cfg.Command[1:]...)

	cmd := exec.Command(prog, args...)
	cmd.Dir = l.cfg.Dir
	cmd.Env = append(os.Environ(), "DROVER_SLOT="+strconv.Itoa(slot))
	cmd.Env = append(cmd.Env, l.cfg.Env...)

	if stdout, err := cmd.StdoutPipe(); err != nil {
		l.logger.Printf("ERROR: worker.%d failed to capture stdout: %v",
			slot, err)
	} else {
		go l.doLog(stdout, fmt.Sprintf("worker.%d stdout> ", slot))
	}
	if stderr, err := cmd.StderrPipe(); err != nil {
		l.logger.Printf("ERROR: worker.%d failed to capture stderr: %v",
			slot, err)
	} else {
		go l.doLog(stderr, fmt.Sprintf("worker.%d stderr> ", slot))
	}

	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Slot: slot, Cmd: prog, Err: err}
	}

	return &worker{
		index:    slot,
		pid:      cmd.Process.Pid,
		launchID: uuid.NewString(),
		pidfile:  pidfile,
		started:  time.Now(),
		wait:     cmd.Wait,
	}, nil
}
