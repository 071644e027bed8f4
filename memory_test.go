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

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package drover

import (
	"os"
	"os/exec"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseMemPercent(t *testing.T) {
	Convey("Given ps output", t, func() {
		Convey("Plain figures parse", func() {
			v, e := parseMemPercent("12.3\n")
			So(e, ShouldBeNil)
			So(v, ShouldEqual, 12.3)

			v, e = parseMemPercent(" 0.0 ")
			So(e, ShouldBeNil)
			So(v, ShouldEqual, 0.0)
		})

		Convey("Garbage is rejected", func() {
			_, e := parseMemPercent("junk")
			So(e, ShouldNotBeNil)
			So(e.Error(), ShouldContainSubstring, "unparseable")

			_, e = parseMemPercent("")
			So(e, ShouldNotBeNil)
		})
	})
}

func TestPsMemory(t *testing.T) {
	Convey("Given the ps sampler", t, func() {
		ms := psMemory{}

		Convey("Our own process samples cleanly", func() {
			v, e := ms.PercentOf(os.Getpid())
			So(e, ShouldBeNil)
			So(v, ShouldBeGreaterThanOrEqualTo, 0)
			So(v, ShouldBeLessThan, 100)
		})

		Convey("A vanished pid reports zero, not an error", func() {
			cmd := exec.Command("sh", "-c", "exit 0")
			So(cmd.Run(), ShouldBeNil)
			v, e := ms.PercentOf(cmd.Process.Pid)
			So(e, ShouldBeNil)
			So(v, ShouldEqual, 0.0)
		})
	})
}
