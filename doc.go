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

// Package drover keeps a fixed-size pool of identical worker processes
// alive on a single machine.  It launches N copies of a worker command,
// samples the memory footprint of each one, replaces workers that die or
// grow past a per-worker budget, forwards operator signals to the pool,
// and tears the whole pool down cleanly on SIGINT or SIGTERM.
//
// Unlike service managers such as supervisord, drover does not manage a
// set of heterogeneous services with dependencies between them.  Every
// worker in the pool runs the same command, slots are interchangeable,
// and nothing survives a restart of the supervisor itself.  The intended
// use is herding a cluster of identical job runners or app servers behind
// a single local supervisor.
//
// The Supervisor type is the entry point.  A read-only HTTP status API
// lives in the rest subpackage, the droverd command wraps the supervisor
// in a daemon, and the drover command is a client for the status API.
package drover
