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

// Package rest is the read-only status API for a drover pool: a server
// wrapping a Supervisor, a matching client, and the DTOs they share.
// There are deliberately no mutating routes; drover pools are controlled
// by signals on the host, not over the network.
package rest

import (
	"time"
)

const (
	mimeJson = "application/json; charset=UTF-8"

	// PollEtagHeader and PollTimeHeader turn a conditional GET into a
	// long poll: the server holds the request until its etag moves past
	// the supplied value or the window (in seconds) expires, then
	// answers 304 or the fresh body.
	PollEtagHeader = "X-Drover-Etag"
	PollTimeHeader = "X-Drover-Poll"

	// maxPollSecs caps how long the server will hold a single poll.
	maxPollSecs = 300
)

// PoolInfo describes the pool as a whole.
type PoolInfo struct {
	Name               string    `json:"name"`
	State              string    `json:"state"`
	ProcessCount       int       `json:"processCount"`
	MemoryPercentLimit float64   `json:"memoryPercentLimit"`
	WorkerBudget       float64   `json:"workerBudget"`
	CreateTime         time.Time `json:"created"`
	UpdateTime         time.Time `json:"updated"`

	etag string
}

// WorkerInfo describes one slot.  Vacant slots (a replacement launch is
// pending) report a zero Pid and Vacant true.
type WorkerInfo struct {
	Slot       int       `json:"slot"`
	Pid        int       `json:"pid"`
	LaunchId   string    `json:"launchId"`
	Pidfile    string    `json:"pidfile"`
	StartedAt  time.Time `json:"started"`
	Health     string    `json:"health"`
	MemPercent float64   `json:"memPercent"`
	SampledAt  time.Time `json:"sampled"`
	Vacant     bool      `json:"vacant"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}
