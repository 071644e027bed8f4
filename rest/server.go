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

package rest

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/netutil"

	"github.com/drover-io/drover"
)

// maxConns bounds concurrent status connections; long pollers hold theirs
// open, so the listener needs a ceiling.
const maxConns = 64

// Handler wraps a Supervisor, adding http.Handler functionality.  Every
// route is a GET.
type Handler struct {
	s *drover.Supervisor
	r *mux.Router

	authUser string
	authHash []byte
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, etag string, v interface{}) {
	if b, e := json.Marshal(v); e != nil {
		h.internalError(w, e)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		if etag != "" {
			w.Header().Set("Etag", etag)
		}
		w.Write(b)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	if b, err := json.Marshal(e); err != nil {
		h.internalError(w, err)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.WriteHeader(e.Code)
		w.Write(b)
	}
}

// waitSerial implements the long-poll contract on the pool serial.  A
// request carrying the poll headers blocks until the serial moves past the
// supplied value or the window expires; everything else returns the
// current serial immediately.
func (h *Handler) waitSerial(r *http.Request) int64 {
	etag := r.Header.Get(PollEtagHeader)
	if etag == "" {
		return h.s.Serial()
	}
	old, err := strconv.ParseInt(etag, 10, 64)
	if err != nil {
		return h.s.Serial()
	}
	secs, err := strconv.Atoi(r.Header.Get(PollTimeHeader))
	if err != nil || secs <= 0 {
		return h.s.Serial()
	}
	if secs > maxPollSecs {
		secs = maxPollSecs
	}
	return h.s.WatchSerial(old, time.Duration(secs)*time.Second)
}

func notModified(r *http.Request, etag string) bool {
	return etag != "" && r.Header.Get("If-None-Match") == etag
}

func poolDTO(p *drover.PoolInfo) *PoolInfo {
	return &PoolInfo{
		Name:               p.Name,
		State:              p.State.String(),
		ProcessCount:       p.ProcessCount,
		MemoryPercentLimit: p.MemoryPercentLimit,
		WorkerBudget:       p.WorkerBudget,
		CreateTime:         p.CreateTime,
		UpdateTime:         p.UpdateTime,
	}
}

func workerDTO(w *drover.WorkerInfo) *WorkerInfo {
	return &WorkerInfo{
		Slot:       w.Slot,
		Pid:        w.Pid,
		LaunchId:   w.LaunchID,
		Pidfile:    w.Pidfile,
		StartedAt:  w.StartedAt,
		Health:     w.Health.String(),
		MemPercent: w.MemPercent,
		SampledAt:  w.SampledAt,
		Vacant:     w.Pid == 0,
	}
}

func (h *Handler) getPool(w http.ResponseWriter, r *http.Request) {
	serial := h.waitSerial(r)
	etag := strconv.FormatInt(serial, 10)
	if notModified(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.writeJson(w, etag, poolDTO(h.s.Pool()))
}

func (h *Handler) listWorkers(w http.ResponseWriter, r *http.Request) {
	serial := h.waitSerial(r)
	etag := strconv.FormatInt(serial, 10)
	if notModified(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	infos := h.s.Workers()
	l := make([]*WorkerInfo, 0, len(infos))
	for _, info := range infos {
		l = append(l, workerDTO(info))
	}
	h.writeJson(w, etag, l)
}

func (h *Handler) getWorker(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slot, err := strconv.Atoi(vars["slot"])
	if err != nil {
		h.writeError(w, &Error{http.StatusNotFound, "No such worker"})
		return
	}
	serial := h.waitSerial(r)
	etag := strconv.FormatInt(serial, 10)
	if notModified(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	info, err := h.s.Worker(slot)
	if err != nil {
		h.writeError(w, &Error{http.StatusNotFound, "No such worker"})
		return
	}
	h.writeJson(w, etag, workerDTO(info))
}

// getLog long-polls on the log ring's own id sequence, and returns only
// the records the caller has not seen when it sends the previous etag.
func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	var last int64
	if v, err := strconv.ParseInt(r.Header.Get("If-None-Match"), 10, 64); err == nil {
		last = v
	}
	if secs, err := strconv.Atoi(r.Header.Get(PollTimeHeader)); err == nil &&
		secs > 0 && last != 0 {
		if secs > maxPollSecs {
			secs = maxPollSecs
		}
		h.s.WatchLog(last, time.Duration(secs)*time.Second)
	}
	recs, id := h.s.GetLog(last)
	etag := strconv.FormatInt(id, 10)
	if notModified(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if recs == nil {
		recs = []drover.LogRecord{}
	}
	h.writeJson(w, etag, recs)
}

// authorized checks HTTP basic credentials against the configured bcrypt
// hash.  With no hash configured every request passes.
func (h *Handler) authorized(r *http.Request) bool {
	if len(h.authHash) == 0 {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok || user != h.authUser {
		return false
	}
	return bcrypt.CompareHashAndPassword(h.authHash, []byte(pass)) == nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if !h.authorized(req) {
		w.Header().Set("WWW-Authenticate",
			fmt.Sprintf("Basic realm=%q", h.s.Name()))
		h.writeError(w, &Error{http.StatusUnauthorized, "Authorization required"})
		return
	}
	h.r.ServeHTTP(w, req)
}

// SetAuth enables basic authentication.  hash must be a bcrypt hash of
// the password, never the password itself.
func (h *Handler) SetAuth(user string, hash []byte) {
	h.authUser = user
	h.authHash = hash
}

// Serve listens on addr with a bounded connection count and serves the
// handler until the listener fails.
func (h *Handler) Serve(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer l.Close()
	return http.Serve(netutil.LimitListener(l, maxConns), h)
}

func NewHandler(s *drover.Supervisor) *Handler {
	r := mux.NewRouter()
	h := &Handler{s: s, r: r}
	r.HandleFunc("/", h.getPool).Methods("GET")
	r.HandleFunc("/workers", h.listWorkers).Methods("GET")
	r.HandleFunc("/workers/{slot:[0-9]+}", h.getWorker).Methods("GET")
	r.HandleFunc("/log", h.getLog).Methods("GET")
	return h
}
