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

package main

import (
	"log"

	"github.com/drover-io/drover/drover/ui"
	"github.com/drover-io/drover/rest"
)

func doUI(client *rest.Client, url string) {
	app := ui.NewApp(client, url)
	if e := app.Run(); e != nil {
		log.Fatalf("Failed: %v", e)
	}
}

/*
   Our screen has the following appearance:

                              http://localhost:8377/            Drover v1.0
    crawler running       up 0:04:11  budget 15.00%    4 Healthy ...
   ____________________________________________________________________________
      0    71234 healthy       3.21%    0:04:11  /tmp/crawler.0
      1    71236 oversized    19.80%    0:04:11  /tmp/crawler.1
      2    71239 dead          0.00%    0:02:05  /tmp/crawler.2
      3        - vacant            -          -
   ____________________________________________________________________________
   [Q] Quit [H] Help [L] Log
*/
