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
	"log"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogRing(t *testing.T) {
	Convey("Given a new log", t, func() {
		l := NewLog()
		So(l, ShouldNotBeNil)

		recs, id := l.GetRecords(0)
		So(recs, ShouldBeEmpty)
		So(id, ShouldNotEqual, 0)

		Convey("Writes become records with increasing ids", func() {
			fmt.Fprintln(l, "first")
			fmt.Fprintln(l, "second")
			recs, newid := l.GetRecords(0)
			So(len(recs), ShouldEqual, 2)
			So(recs[0].Text, ShouldEqual, "first")
			So(recs[1].Text, ShouldEqual, "second")
			So(recs[1].Id, ShouldBeGreaterThan, recs[0].Id)
			So(newid, ShouldEqual, recs[1].Id)

			Convey("An incremental read sees only the tail", func() {
				fmt.Fprintln(l, "third")
				tail, tid := l.GetRecords(newid)
				So(len(tail), ShouldEqual, 1)
				So(tail[0].Text, ShouldEqual, "third")
				So(tid, ShouldBeGreaterThan, newid)
			})

			Convey("A read at the newest id returns nothing", func() {
				same, sid := l.GetRecords(newid)
				So(same, ShouldBeNil)
				So(sid, ShouldEqual, newid)
			})
		})

		Convey("A multi line write is split into records", func() {
			l.Write([]byte("one\ntwo\nthree\n"))
			recs, _ := l.GetRecords(0)
			So(len(recs), ShouldEqual, 3)
			So(recs[0].Text, ShouldEqual, "one")
			So(recs[2].Text, ShouldEqual, "three")
		})

		Convey("A write without a newline records at once", func() {
			l.Write([]byte("unterminated"))
			recs, _ := l.GetRecords(0)
			So(len(recs), ShouldEqual, 1)
			So(recs[0].Text, ShouldEqual, "unterminated")
		})

		Convey("The ring keeps only the newest records", func() {
			for i := 0; i < MaxLogRecords+10; i++ {
				fmt.Fprintf(l, "line %d\n", i)
			}
			recs, _ := l.GetRecords(0)
			So(len(recs), ShouldEqual, MaxLogRecords)
			So(recs[0].Text, ShouldEqual, "line 10")
			So(recs[len(recs)-1].Text, ShouldEqual,
				fmt.Sprintf("line %d", MaxLogRecords+9))
		})

		Convey("Clear empties the ring", func() {
			fmt.Fprintln(l, "doomed")
			l.Clear()
			recs, _ := l.GetRecords(0)
			So(recs, ShouldBeEmpty)
		})
	})
}

func TestLogWatch(t *testing.T) {
	Convey("Given a log with one record", t, func() {
		l := NewLog()
		fmt.Fprintln(l, "hello")
		_, id := l.GetRecords(0)

		Convey("A watch behind the newest id returns at once", func() {
			So(l.Watch(0, time.Minute), ShouldEqual, id)
		})

		Convey("A watch at the newest id expires unchanged", func() {
			start := time.Now()
			So(l.Watch(id, 50*time.Millisecond), ShouldEqual, id)
			So(time.Since(start), ShouldBeGreaterThanOrEqualTo,
				50*time.Millisecond)
		})

		Convey("A watch wakes on a new record", func() {
			go func() {
				time.Sleep(20 * time.Millisecond)
				fmt.Fprintln(l, "wake up")
			}()
			So(l.Watch(id, 5*time.Second), ShouldBeGreaterThan, id)
		})

		Convey("A zero expiration polls without blocking", func() {
			So(l.Watch(id, 0), ShouldEqual, id)
		})
	})
}

func TestMultiLogger(t *testing.T) {
	Convey("Given a multilogger with two sinks", t, func() {
		ml := NewMultiLogger()
		b1 := &strings.Builder{}
		b2 := &strings.Builder{}
		l1 := log.New(b1, "", 0)
		l2 := log.New(b2, "", 0)
		ml.AddLogger(l1)
		ml.AddLogger(l2)

		ml.Logger().Printf("fan out")
		So(b1.String(), ShouldContainSubstring, "fan out")
		So(b2.String(), ShouldContainSubstring, "fan out")

		Convey("Adding a sink twice delivers once", func() {
			ml.AddLogger(l1)
			ml.Logger().Printf("once")
			So(strings.Count(b1.String(), "once"), ShouldEqual, 1)
		})

		Convey("Removing a sink stops its feed", func() {
			ml.DelLogger(l2)
			ml.Logger().Printf("second line")
			So(b1.String(), ShouldContainSubstring, "second line")
			So(b2.String(), ShouldNotContainSubstring, "second line")
		})
	})
}
