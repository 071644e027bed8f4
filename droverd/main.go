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

// Command droverd supervises a fixed pool of identical worker processes.
// The pool is described either by a JSON manifest (-c) or by flags plus
// the worker command line given after the flags:
//
//	droverd -n crawler -N 4 -m 60 -- /usr/bin/crawler --verbose
//
// A read-only status API is served on the status address; drover(1) is
// the matching client.
package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/drover-io/drover"
	"github.com/drover-io/drover/rest"
)

var defaultAddr = "127.0.0.1:8377"

var (
	manifest string
	name     string = "drover"
	prefix   string
	count    int     = 1
	limit    float64 = 50.0
	tag      string
	softSig  string
	addr     string
	authFile string
	debug    bool
)

func loadAuth(h *rest.Handler, fname string) {
	b, e := os.ReadFile(fname)
	if e != nil {
		log.Fatalf("Failed to read auth file %s: %v", fname, e)
	}
	line := strings.TrimSpace(string(b))
	user, hash, ok := strings.Cut(line, ":")
	if !ok || user == "" || hash == "" {
		log.Fatalf("Auth file %s is not user:bcrypt-hash", fname)
	}
	h.SetAuth(user, []byte(hash))
}

func configure() *drover.Config {
	if manifest != "" {
		f, e := os.Open(manifest)
		if e != nil {
			log.Fatalf("Failed to open manifest %s: %v", manifest, e)
		}
		defer f.Close()
		cfg, e := drover.LoadConfig(f)
		if e != nil {
			log.Fatalf("Failed to load manifest %s: %v", manifest, e)
		}
		return cfg
	}

	args := flag.Args()
	if len(args) == 1 {
		split, e := drover.SplitCommand(args[0])
		if e != nil {
			log.Fatalf("Bad worker command: %v", e)
		}
		args = split
	}
	return &drover.Config{
		Name:               name,
		Command:            args,
		PidfilePrefix:      prefix,
		ProcessCount:       count,
		MemoryPercentLimit: limit,
		ClusterTag:         tag,
		SoftStopSignal:     softSig,
		StatusAddr:         addr,
		Debug:              debug,
	}
}

func main() {
	flag.StringVar(&manifest, "c", manifest, "pool manifest (overrides pool flags)")
	flag.StringVar(&name, "n", name, "pool name")
	flag.StringVar(&prefix, "p", prefix, "pidfile prefix")
	flag.IntVar(&count, "N", count, "worker process count")
	flag.Float64Var(&limit, "m", limit, "total memory percent limit")
	flag.StringVar(&tag, "t", tag, "cluster tag")
	flag.StringVar(&softSig, "s", softSig, "soft stop signal")
	flag.StringVar(&addr, "a", addr, "status listen address (default "+defaultAddr+")")
	flag.StringVar(&authFile, "A", authFile, "status auth file (user:bcrypt-hash)")
	flag.BoolVar(&debug, "d", debug, "log per-sample detail")
	flag.Parse()

	cfg := configure()
	if addr != "" {
		cfg.StatusAddr = addr
	}
	if cfg.StatusAddr == "" {
		cfg.StatusAddr = defaultAddr
	}
	if debug {
		cfg.Debug = true
	}

	s, e := drover.NewSupervisor(cfg)
	if e != nil {
		log.Fatalf("Failed to create pool: %v", e)
	}
	s.SetLogWriter(os.Stderr)

	h := rest.NewHandler(s)
	if authFile != "" {
		loadAuth(h, authFile)
	}
	go func() {
		log.Fatal(h.Serve(cfg.StatusAddr))
	}()

	if e := s.Run(); e != nil {
		log.Fatalf("Pool failed: %v", e)
	}
}
