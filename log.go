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
	"strings"
	"sync"
	"time"
)

// MaxLogRecords bounds the in-memory log ring.  Old records fall off the
// back once the ring is full.
const MaxLogRecords = 1000

// LogRecord is one line of supervisor output.  Ids increase monotonically
// for the life of a Log instance, so they double as change markers for
// pollers; they are not unique across instances.
type LogRecord struct {
	Id   int64     `json:"id,string"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Log is a bounded ring of LogRecords.  It implements io.Writer so that a
// stdlib log.Logger can write straight into it, and it supports blocking
// watches so that pollers (the REST API, the log follower) can wait for
// new records without spinning.
type Log struct {
	recs  []LogRecord
	count int
	size  int
	id    int64
	cvs   map[*sync.Cond]bool
	mx    sync.Mutex
}

func (l *Log) lock() {
	l.mx.Lock()
}

func (l *Log) unlock() {
	l.mx.Unlock()
}

// Write implements io.Writer for use by log.Logger.  Each newline-delimited
// line in b becomes its own record.
func (l *Log) Write(b []byte) (int, error) {
	str := strings.Trim(string(b), "\n")
	l.lock()
	for _, line := range strings.Split(str, "\n") {
		idx := l.count % l.size
		l.id++
		l.recs[idx] = LogRecord{Id: l.id, Time: time.Now(), Text: line}
		// count keeps growing past size; it tracks the next index
		// and how far the ring has wrapped.
		l.count++
	}
	for cv := range l.cvs {
		cv.Broadcast()
	}
	l.unlock()
	return len(b), nil
}

// Clear drops all buffered records.  The id sequence restarts from the
// current time in nanoseconds, which keeps ids moving forward provided
// records are not logged more often than once per nanosecond.
func (l *Log) Clear() {
	l.lock()
	l.count = 0
	l.id = time.Now().UnixNano()
	for cv := range l.cvs {
		cv.Broadcast()
	}
	l.unlock()
}

// GetRecords returns the buffered records along with the newest id, which
// is suitable for use as an Etag.  If last matches the newest id the log
// has not changed and nil is returned immediately.  Passing a record id
// returns only records logged after it.
func (l *Log) GetRecords(last int64) ([]LogRecord, int64) {
	l.lock()
	defer l.unlock()
	if l.id == last {
		return nil, last
	}
	n := l.count
	if n > l.size {
		n = l.size
	}
	recs := make([]LogRecord, 0, n)
	for j := l.count - n; j < l.count; j++ {
		r := l.recs[j%l.size]
		if r.Id > last {
			recs = append(recs, r)
		}
	}
	return recs, l.id
}

// Watch blocks until the newest record id differs from old, or until the
// expiration passes.  It returns the newest id.  An expiration of zero
// makes this a non-blocking poll.
func (l *Log) Watch(old int64, expire time.Duration) int64 {
	expired := false
	var timer *time.Timer
	cv := sync.NewCond(&l.mx)
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			l.lock()
			expired = true
			cv.Broadcast()
			l.unlock()
		})
	} else {
		expired = true
	}

	l.lock()
	l.cvs[cv] = true
	for l.id == old && !expired {
		cv.Wait()
	}
	delete(l.cvs, cv)
	rv := l.id
	l.unlock()
	if timer != nil {
		timer.Stop()
	}
	return rv
}

// NewLog returns an empty Log.  The id sequence is seeded from the clock
// so that a restarted supervisor never reissues ids a client has cached.
func NewLog() *Log {
	return &Log{
		recs: make([]LogRecord, MaxLogRecords),
		size: MaxLogRecords,
		id:   time.Now().UnixNano(),
		cvs:  make(map[*sync.Cond]bool),
	}
}
