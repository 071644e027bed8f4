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

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"

	"github.com/drover-io/drover"
)

type testLog struct {
	t *testing.T
}

func (tl *testLog) Write(p []byte) (n int, err error) {
	tl.t.Log(strings.Trim(string(p), "\n"))
	return len(p), nil
}

const parkedWorker = `#!/bin/sh
exec sleep 60
`

func newTestPool(t *testing.T) *drover.Supervisor {
	dir := t.TempDir()
	script := filepath.Join(dir, "worker.sh")
	if err := os.WriteFile(script, []byte(parkedWorker), 0755); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	s, e := drover.NewSupervisor(&drover.Config{
		Name:               "resttest",
		Command:            []string{script},
		ProcessCount:       1,
		MemoryPercentLimit: 90,
		PidfilePrefix:      filepath.Join(dir, "pid"),
		MonitorInterval:    time.Hour,
	})
	So(e, ShouldBeNil)
	s.SetLogWriter(&testLog{t: t})
	So(s.Start(), ShouldBeNil)
	Reset(func() {
		s.Stop()
		done := make(chan struct{})
		go func() {
			s.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Errorf("pool failed to stop")
		}
	})
	return s
}

func TestHandler(t *testing.T) {
	Convey("Given a served pool", t, func() {
		s := newTestPool(t)
		h := NewHandler(s)
		srv := httptest.NewServer(h)
		Reset(srv.Close)

		get := func(path string, hdr map[string]string) (*http.Response, []byte) {
			req, e := http.NewRequest("GET", srv.URL+path, nil)
			So(e, ShouldBeNil)
			for k, v := range hdr {
				req.Header.Set(k, v)
			}
			res, e := srv.Client().Do(req)
			So(e, ShouldBeNil)
			b, e := io.ReadAll(res.Body)
			res.Body.Close()
			So(e, ShouldBeNil)
			return res, b
		}

		Convey("GET / reports the pool", func() {
			res, b := get("/", nil)
			So(res.StatusCode, ShouldEqual, http.StatusOK)
			So(res.Header.Get("Etag"), ShouldNotBeBlank)
			So(res.Header.Get("Content-Type"), ShouldEqual, mimeJson)
			info := &PoolInfo{}
			So(json.Unmarshal(b, info), ShouldBeNil)
			So(info.Name, ShouldEqual, "resttest")
			So(info.State, ShouldEqual, "running")
			So(info.ProcessCount, ShouldEqual, 1)
			So(info.WorkerBudget, ShouldEqual, 90.0)

			Convey("And a matching If-None-Match yields 304", func() {
				res2, _ := get("/", map[string]string{
					"If-None-Match": res.Header.Get("Etag"),
				})
				So(res2.StatusCode, ShouldEqual, http.StatusNotModified)
			})
		})

		Convey("GET /workers lists every slot", func() {
			res, b := get("/workers", nil)
			So(res.StatusCode, ShouldEqual, http.StatusOK)
			var l []*WorkerInfo
			So(json.Unmarshal(b, &l), ShouldBeNil)
			So(len(l), ShouldEqual, 1)
			So(l[0].Slot, ShouldEqual, 0)
			So(l[0].Pid, ShouldBeGreaterThan, 0)
			So(l[0].Health, ShouldEqual, "healthy")
			So(l[0].Vacant, ShouldBeFalse)
			So(l[0].LaunchId, ShouldNotBeBlank)
		})

		Convey("GET /workers/0 reports the slot", func() {
			res, b := get("/workers/0", nil)
			So(res.StatusCode, ShouldEqual, http.StatusOK)
			w := &WorkerInfo{}
			So(json.Unmarshal(b, w), ShouldBeNil)
			So(w.Slot, ShouldEqual, 0)
			So(strings.HasSuffix(w.Pidfile, "pid.0"), ShouldBeTrue)
		})

		Convey("An out of range slot is a JSON 404", func() {
			res, b := get("/workers/9", nil)
			So(res.StatusCode, ShouldEqual, http.StatusNotFound)
			e := &Error{}
			So(json.Unmarshal(b, e), ShouldBeNil)
			So(e.Code, ShouldEqual, http.StatusNotFound)
			So(e.Message, ShouldEqual, "No such worker")
		})

		Convey("GET /log returns the startup trail", func() {
			res, b := get("/log", nil)
			So(res.StatusCode, ShouldEqual, http.StatusOK)
			var recs []drover.LogRecord
			So(json.Unmarshal(b, &recs), ShouldBeNil)
			found := false
			for _, r := range recs {
				if strings.Contains(r.Text, "pool running: resttest") {
					found = true
				}
			}
			So(found, ShouldBeTrue)
			etag := res.Header.Get("Etag")
			So(etag, ShouldNotBeBlank)

			Convey("And a matching If-None-Match yields 304", func() {
				res2, _ := get("/log", map[string]string{
					"If-None-Match": etag,
				})
				So(res2.StatusCode, ShouldEqual, http.StatusNotModified)
			})

			Convey("And later reads are incremental", func() {
				s.Stop()
				var fresh []drover.LogRecord
				deadline := time.Now().Add(5 * time.Second)
				for time.Now().Before(deadline) {
					res2, b2 := get("/log", map[string]string{
						"If-None-Match": etag,
					})
					if res2.StatusCode == http.StatusOK {
						So(json.Unmarshal(b2, &fresh), ShouldBeNil)
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(len(fresh), ShouldBeGreaterThan, 0)
				for _, r := range fresh {
					So(r.Text, ShouldNotContainSubstring, "pool starting")
				}
			})
		})

		Convey("A long poll on / wakes when the pool changes", func() {
			res, _ := get("/", nil)
			etag := res.Header.Get("Etag")
			go func() {
				time.Sleep(100 * time.Millisecond)
				s.Stop()
			}()
			res2, b2 := get("/", map[string]string{
				"If-None-Match": etag,
				PollEtagHeader:  etag,
				PollTimeHeader:  "30",
			})
			So(res2.StatusCode, ShouldEqual, http.StatusOK)
			So(res2.Header.Get("Etag"), ShouldNotEqual, etag)
			info := &PoolInfo{}
			So(json.Unmarshal(b2, info), ShouldBeNil)
			So(info.State, ShouldBeIn, "shutting down", "stopped")
		})

		Convey("With authentication configured", func() {
			hash, e := bcrypt.GenerateFromPassword([]byte("sekret"),
				bcrypt.MinCost)
			So(e, ShouldBeNil)
			h.SetAuth("admin", hash)

			Convey("No credentials is a JSON 401", func() {
				res, b := get("/", nil)
				So(res.StatusCode, ShouldEqual, http.StatusUnauthorized)
				So(res.Header.Get("WWW-Authenticate"),
					ShouldContainSubstring, "Basic")
				So(res.Header.Get("WWW-Authenticate"),
					ShouldContainSubstring, `realm="resttest"`)
				e := &Error{}
				So(json.Unmarshal(b, e), ShouldBeNil)
				So(e.Code, ShouldEqual, http.StatusUnauthorized)
			})

			Convey("A wrong password is refused", func() {
				req, e := http.NewRequest("GET", srv.URL+"/", nil)
				So(e, ShouldBeNil)
				req.SetBasicAuth("admin", "wrong")
				res, e := srv.Client().Do(req)
				So(e, ShouldBeNil)
				res.Body.Close()
				So(res.StatusCode, ShouldEqual, http.StatusUnauthorized)
			})

			Convey("The right credentials pass", func() {
				req, e := http.NewRequest("GET", srv.URL+"/", nil)
				So(e, ShouldBeNil)
				req.SetBasicAuth("admin", "sekret")
				res, e := srv.Client().Do(req)
				So(e, ShouldBeNil)
				res.Body.Close()
				So(res.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestClient(t *testing.T) {
	Convey("Given a client against a served pool", t, func() {
		s := newTestPool(t)
		h := NewHandler(s)
		srv := httptest.NewServer(h)
		Reset(srv.Close)
		c := NewClient(nil, srv.URL)

		Convey("GetPool round-trips", func() {
			p, e := c.GetPool()
			So(e, ShouldBeNil)
			So(p.Name, ShouldEqual, "resttest")
			So(p.State, ShouldEqual, "running")
			So(p.WorkerBudget, ShouldEqual, 90.0)
		})

		Convey("GetWorkers and GetWorker agree", func() {
			l, e := c.GetWorkers()
			So(e, ShouldBeNil)
			So(len(l.Workers), ShouldEqual, 1)
			w, e := c.GetWorker(0)
			So(e, ShouldBeNil)
			So(w.Pid, ShouldEqual, l.Workers[0].Pid)
			So(w.Health, ShouldEqual, "healthy")
		})

		Convey("A missing worker is a typed 404", func() {
			_, e := c.GetWorker(42)
			So(e, ShouldNotBeNil)
			var re *Error
			So(errors.As(e, &re), ShouldBeTrue)
			So(re.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("GetLog returns the startup trail", func() {
			li, e := c.GetLog()
			So(e, ShouldBeNil)
			So(len(li.Records), ShouldBeGreaterThan, 0)
		})

		Convey("WatchPool wakes on shutdown", func() {
			p, e := c.GetPool()
			So(e, ShouldBeNil)
			go func() {
				time.Sleep(100 * time.Millisecond)
				s.Stop()
			}()
			ctx, cancel := context.WithTimeout(context.Background(),
				30*time.Second)
			defer cancel()
			p2, e := c.WatchPool(ctx, p)
			So(e, ShouldBeNil)
			So(p2.State, ShouldBeIn, "shutting down", "stopped")
		})

		Convey("An authenticated pool demands credentials", func() {
			hash, e := bcrypt.GenerateFromPassword([]byte("sekret"),
				bcrypt.MinCost)
			So(e, ShouldBeNil)
			h.SetAuth("admin", hash)

			_, ge := c.GetPool()
			var re *Error
			So(errors.As(ge, &re), ShouldBeTrue)
			So(re.Code, ShouldEqual, http.StatusUnauthorized)

			c.SetAuth("admin", "sekret")
			p, e2 := c.GetPool()
			So(e2, ShouldBeNil)
			So(p.Name, ShouldEqual, "resttest")
		})
	})
}
