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

//go:build linux

package drover

import (
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestProcMemory(t *testing.T) {
	Convey("Given the /proc sampler", t, func() {
		ms, e := newProcMemory()
		So(e, ShouldBeNil)
		So(ms.totalRAM, ShouldBeGreaterThan, 0)
		So(ms.pageSize, ShouldBeGreaterThan, 0)

		Convey("Our own process has a nonzero share", func() {
			v, e := ms.PercentOf(os.Getpid())
			So(e, ShouldBeNil)
			So(v, ShouldBeGreaterThan, 0)
			So(v, ShouldBeLessThan, 100)
		})

		Convey("A nonexistent pid reports zero, not an error", func() {
			v, e := ms.PercentOf(99999999)
			So(e, ShouldBeNil)
			So(v, ShouldEqual, 0.0)
		})

		Convey("The default source prefers /proc", func() {
			_, ok := defaultMemorySource().(*procMemory)
			So(ok, ShouldBeTrue)
		})
	})
}
