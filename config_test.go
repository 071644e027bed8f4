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
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConfigValidation(t *testing.T) {
	Convey("Validating pool configurations", t, func() {
		good := func() *Config {
			return &Config{
				Command:            []string{"/bin/sleep", "3600"},
				ProcessCount:       4,
				MemoryPercentLimit: 60,
			}
		}

		Convey("A minimal config passes and gains defaults", func() {
			c := good()
			So(c.validate(), ShouldBeNil)
			So(c.Name, ShouldEqual, "drover")
			So(c.PidfilePrefix, ShouldNotBeBlank)
			So(c.SoftStopSignal, ShouldEqual, "SIGUSR1")
			So(c.MonitorInterval, ShouldEqual, DefaultMonitorInterval)
			So(c.GracePeriod, ShouldEqual, DefaultGracePeriod)
			So(c.SummaryInterval, ShouldEqual, DefaultSummaryInterval)
		})

		Convey("Pidfiles hang off the prefix by slot", func() {
			c := good()
			c.PidfilePrefix = "/run/crawler/pid"
			So(c.validate(), ShouldBeNil)
			So(c.pidfile(0), ShouldEqual, "/run/crawler/pid.0")
			So(c.pidfile(7), ShouldEqual, "/run/crawler/pid.7")
		})

		Convey("A missing command is rejected", func() {
			c := good()
			c.Command = nil
			So(c.validate(), ShouldEqual, ErrBadCommand)
		})

		Convey("A non positive process count is rejected", func() {
			c := good()
			c.ProcessCount = 0
			So(c.validate(), ShouldEqual, ErrBadCount)
			c = good()
			c.ProcessCount = -2
			So(c.validate(), ShouldEqual, ErrBadCount)
		})

		Convey("The memory limit must be in (0, 100]", func() {
			c := good()
			c.MemoryPercentLimit = 0
			So(c.validate(), ShouldEqual, ErrBadLimit)
			c = good()
			c.MemoryPercentLimit = 100.1
			So(c.validate(), ShouldEqual, ErrBadLimit)
			c = good()
			c.MemoryPercentLimit = 100
			So(c.validate(), ShouldBeNil)
		})

		Convey("An unknown soft stop signal is rejected", func() {
			c := good()
			c.SoftStopSignal = "SIGBOGUS"
			So(c.validate(), ShouldEqual, ErrBadSignal)
		})

		Convey("Bare signal names are accepted", func() {
			c := good()
			c.SoftStopSignal = "usr2"
			So(c.validate(), ShouldBeNil)
		})
	})
}

func TestSplitCommand(t *testing.T) {
	Convey("Splitting command strings", t, func() {
		Convey("Shell quoting rules apply", func() {
			args, e := SplitCommand("/bin/worker --tag 'a b' -v")
			So(e, ShouldBeNil)
			So(args, ShouldResemble,
				[]string{"/bin/worker", "--tag", "a b", "-v"})
		})

		Convey("An empty string is rejected", func() {
			_, e := SplitCommand("")
			So(e, ShouldEqual, ErrBadCommand)
		})

		Convey("An unbalanced quote is rejected", func() {
			_, e := SplitCommand("/bin/worker 'oops")
			So(e, ShouldEqual, ErrBadCommand)
		})
	})
}

func TestLoadConfig(t *testing.T) {
	Convey("Loading JSON manifests", t, func() {
		Convey("With the command as an array", func() {
			m := `{
				"name": "crawler",
				"command": ["/usr/bin/crawler", "--verbose"],
				"processCount": 3,
				"memoryPercentLimit": 45,
				"clusterTag": "blue",
				"monitorInterval": 5000000000
			}`
			c, e := LoadConfig(strings.NewReader(m))
			So(e, ShouldBeNil)
			So(c.Name, ShouldEqual, "crawler")
			So(c.Command, ShouldResemble,
				[]string{"/usr/bin/crawler", "--verbose"})
			So(c.ProcessCount, ShouldEqual, 3)
			So(c.ClusterTag, ShouldEqual, "blue")
			So(c.MonitorInterval, ShouldEqual, 5*time.Second)
			So(c.GracePeriod, ShouldEqual, DefaultGracePeriod)
		})

		Convey("With the command as a single string", func() {
			m := `{
				"command": "/usr/bin/crawler --tag 'a b'",
				"processCount": 1,
				"memoryPercentLimit": 10
			}`
			c, e := LoadConfig(strings.NewReader(m))
			So(e, ShouldBeNil)
			So(c.Command, ShouldResemble,
				[]string{"/usr/bin/crawler", "--tag", "a b"})
		})

		Convey("A manifest without a command is rejected", func() {
			m := `{"processCount": 1, "memoryPercentLimit": 10}`
			_, e := LoadConfig(strings.NewReader(m))
			So(e, ShouldEqual, ErrBadCommand)
		})

		Convey("Malformed JSON is rejected", func() {
			_, e := LoadConfig(strings.NewReader(`{"command": [`))
			So(e, ShouldNotBeNil)
		})

		Convey("Validation failures surface", func() {
			m := `{"command": ["/bin/true"], "processCount": 0,
				"memoryPercentLimit": 10}`
			_, e := LoadConfig(strings.NewReader(m))
			So(e, ShouldEqual, ErrBadCount)
		})
	})
}

func TestSupervisorBudget(t *testing.T) {
	Convey("Given a 60% limit across 4 workers", t, func() {
		s, e := NewSupervisor(&Config{
			Name:               "budget",
			Command:            []string{"/bin/sleep", "3600"},
			ProcessCount:       4,
			MemoryPercentLimit: 60,
		})
		So(e, ShouldBeNil)

		Convey("Each worker gets a 15% budget", func() {
			So(s.Budget(), ShouldEqual, 15.0)
		})
	})
}
