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

// Command drover is the client side of droverd.  It uses subcommands.
//
// The flags are
//
//	-a <address>	- select the daemon address, default is
//			  http://127.0.0.1:8377
//	-u <user:pass>	- user name & password for basic auth
//
// Subcommands are
//
//	status       - one-screen pool summary
//	workers      - list every slot
//	info <slot>  - show detail for one slot
//	log [-f]     - print the pool log, -f follows it
//	top          - full screen live view (the default)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/drover-io/drover/drover/util"
	"github.com/drover-io/drover/rest"
)

var addr string = "http://127.0.0.1:8377"
var auth string = ""

func usage() {
	log.Fatalf("Usage: %s [-a <address>] [-u <user:pass>] <subcommand>",
		os.Args[0])
}

func showWorker(w *rest.WorkerInfo) {
	fmt.Println(util.FormatWorker(w))
}

func fatalIf(e error) {
	if e != nil {
		log.Fatalf("Failed: %v", e)
	}
}

func main() {
	flag.StringVar(&addr, "a", addr, "droverd address")
	flag.StringVar(&auth, "u", auth, "user:pass authentication")
	flag.Parse()

	client := rest.NewClient(nil, addr)
	if auth != "" {
		a := strings.SplitN(auth, ":", 2)
		if len(a) != 2 {
			log.Fatalf("Bad user:pass supplied")
		}
		client.SetAuth(a[0], a[1])
	}

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"top"}
	}

	switch args[0] {
	case "status":
		if len(args) != 1 {
			usage()
		}
		p, e := client.GetPool()
		fatalIf(e)
		l, e := client.GetWorkers()
		fatalIf(e)
		counts := make(map[string]int)
		for _, w := range l.Workers {
			counts[util.Status(w)]++
		}
		up := time.Since(p.CreateTime)
		up -= up % time.Second
		fmt.Printf("%s: %s, up %s\n",
			p.Name, p.State, util.FormatDuration(up))
		fmt.Printf("%d workers: %d healthy, %d oversized, %d dead, %d vacant\n",
			p.ProcessCount, counts["healthy"], counts["oversized"],
			counts["dead"], counts["vacant"])
		fmt.Printf("memory: %.1f%% pool limit, %.2f%% per-worker budget\n",
			p.MemoryPercentLimit, p.WorkerBudget)
	case "workers":
		if len(args) != 1 {
			usage()
		}
		l, e := client.GetWorkers()
		fatalIf(e)
		for _, w := range l.Workers {
			showWorker(w)
		}
	case "info":
		if len(args) != 2 {
			usage()
		}
		slot, e := strconv.Atoi(args[1])
		if e != nil {
			usage()
		}
		w, e := client.GetWorker(slot)
		fatalIf(e)
		fmt.Printf("Slot:     %d\n", w.Slot)
		fmt.Printf("Status:   %s\n", util.Status(w))
		if w.Vacant {
			break
		}
		fmt.Printf("Pid:      %d\n", w.Pid)
		fmt.Printf("Launch:   %s\n", w.LaunchId)
		fmt.Printf("Memory:   %.2f%%\n", w.MemPercent)
		if w.SampledAt.IsZero() {
			fmt.Printf("Sampled:  never\n")
		} else {
			fmt.Printf("Sampled:  %v\n", w.SampledAt)
		}
		fmt.Printf("Uptime:   %s\n", util.Uptime(w))
		fmt.Printf("Pidfile:  %s\n", w.Pidfile)
	case "log":
		follow := false
		switch {
		case len(args) == 1:
		case len(args) == 2 && args[1] == "-f":
			follow = true
		default:
			usage()
		}
		info, e := client.GetLog()
		fatalIf(e)
		for {
			for _, r := range info.Records {
				fmt.Printf("%s %s\n",
					r.Time.Format(time.StampMilli), r.Text)
			}
			if !follow {
				break
			}
			ctx, cancel := context.WithTimeout(
				context.Background(), time.Hour)
			info, e = client.WatchLog(ctx, info)
			cancel()
			fatalIf(e)
		}
	case "top":
		if len(args) != 1 {
			usage()
		}
		doUI(client, addr)
	default:
		usage()
	}
}
