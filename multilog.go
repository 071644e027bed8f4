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
	"log"
	"strings"
	"sync"
)

// MultiLogger fans one log.Logger out to several.  It implements io.Writer;
// writes are split into lines and each line is delivered to every attached
// logger.  The attached loggers keep their own prefixes and flags.  The
// supervisor uses one of these so the same stream lands in the in-memory
// Log ring and in whatever writer the operator attached.
type MultiLogger struct {
	log     *log.Logger
	loggers []*log.Logger
	mx      sync.Mutex
}

// Write implements io.Writer in the line-at-a-time fashion that log.Logger
// produces.  It never fails; a destination that errors is silently skipped
// by log.Println itself.
func (m *MultiLogger) Write(b []byte) (int, error) {
	lines := strings.Split(strings.Trim(string(b), "\n"), "\n")
	m.mx.Lock()
	for _, line := range lines {
		for _, l := range m.loggers {
			l.Println(line)
		}
	}
	m.mx.Unlock()
	return len(b), nil
}

// AddLogger attaches a destination logger.  Adding the same logger twice
// has no effect.
func (m *MultiLogger) AddLogger(l *log.Logger) {
	m.mx.Lock()
	defer m.mx.Unlock()
	for _, x := range m.loggers {
		if x == l {
			return
		}
	}
	m.loggers = append(m.loggers, l)
}

// DelLogger detaches a destination logger previously added.
func (m *MultiLogger) DelLogger(l *log.Logger) {
	m.mx.Lock()
	defer m.mx.Unlock()
	for i, x := range m.loggers {
		if x == l {
			m.loggers = append(m.loggers[:i], m.loggers[i+1:]...)
			break
		}
	}
}

// Logger returns the front logger; everything printed on it is fanned out
// to the attached destinations.
func (m *MultiLogger) Logger() *log.Logger {
	return m.log
}

func NewMultiLogger() *MultiLogger {
	m := &MultiLogger{}
	m.log = log.New(m, "", 0)
	return m
}
