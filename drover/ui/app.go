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

// Package ui is the full screen live view used by drover top.  It keeps
// a pool snapshot and the tail of the pool log fresh over the status
// API's long polls, and renders them with tcell widgets.
package ui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/drover-io/drover/rest"
)

// logKeep bounds how many log lines the viewer retains; older lines fall
// off the top, mirroring the daemon's own ring.
const logKeep = 1000

type App struct {
	app       *views.Application
	view      views.View
	panel     views.Widget
	pool      *PoolPanel
	logp      *LogPanel
	help      *HelpPanel
	client    *rest.Client
	url       string
	err       error
	info      *rest.PoolInfo
	items     []*rest.WorkerInfo
	logLines  []string
	logErr    error
	logCancel context.CancelFunc

	views.WidgetWatchers
}

func (a *App) show(w views.Widget) {
	if w != a.panel {
		a.panel.SetView(nil)
		a.panel = w
	}
	a.panel.SetView(a.view)
	a.panel.Resize()
	a.app.Refresh()
}

func (a *App) ShowHelp() {
	a.show(a.help)
}

// ShowLog switches to the log screen and (re)starts the tail.  Any tail
// left over from a previous visit is cancelled first.
func (a *App) ShowLog() {
	if a.logCancel != nil {
		a.logCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.logLines = nil
	a.logErr = nil
	a.logCancel = cancel
	go a.refreshLog(ctx)

	a.show(a.logp)
}

func (a *App) ShowPool() {
	a.show(a.pool)
}

func (a *App) Quit() {
	a.app.Quit()
}

func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		// Intercept a few control keys up front, for global handling.
		case tcell.KeyCtrlC:
			a.Quit()
			return true
		case tcell.KeyCtrlL:
			a.app.Refresh()
			return true
		}
	}

	if a.panel != nil {
		return a.panel.HandleEvent(ev)
	}
	return false
}

func (a *App) Draw() {
	if a.panel != nil {
		a.panel.Draw()
	}
}

func (a *App) Resize() {
	if a.panel != nil {
		a.panel.Resize()
	}
}

func (a *App) SetView(view views.View) {
	a.view = view
	if a.panel != nil {
		a.panel.SetView(view)
	}
}

func (a *App) Size() (int, int) {
	if a.panel != nil {
		return a.panel.Size()
	}
	return 0, 0
}

func (a *App) GetClient() *rest.Client {
	return a.client
}

func (a *App) GetAppName() string {
	return "Drover v1.0"
}

// getItems fetches the pool header and the slot table together.
func (a *App) getItems() (*rest.PoolInfo, []*rest.WorkerInfo, error) {
	info, e := a.client.GetPool()
	if e != nil {
		return nil, nil, e
	}
	list, e := a.client.GetWorkers()
	if e != nil {
		return nil, nil, e
	}
	return info, list.Workers, nil
}

// refresh keeps the pool snapshot current.  The pool's change marker
// moves on any slot change, so one long poll covers the whole table.
func (a *App) refresh() {
	for {
		info, items, e := a.getItems()

		a.app.PostFunc(func() {
			a.info = info
			a.items = items
			a.err = e
			a.app.Update()
		})
		if e != nil {
			time.Sleep(2 * time.Second)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(),
			time.Hour)
		_, e = a.client.WatchPool(ctx, info)
		cancel()
		if e != nil {
			time.Sleep(2 * time.Second)
		}
	}
}

// refreshLog tails the pool log until ctx ends.  Records arrive
// incrementally; the viewer keeps the most recent logKeep lines.
func (a *App) refreshLog(ctx context.Context) {
	var last *rest.LogInfo
	for {
		info, e := a.client.WatchLog(ctx, last)
		select {
		case <-ctx.Done():
			return
		default:
		}
		if e != nil {
			a.app.PostFunc(func() {
				a.logErr = e
				a.app.Update()
			})
			time.Sleep(2 * time.Second)
			continue
		}
		last = info
		lines := make([]string, 0, len(info.Records))
		for _, r := range info.Records {
			lines = append(lines,
				r.Time.Format(time.StampMilli)+" "+r.Text)
		}
		a.app.PostFunc(func() {
			a.logErr = nil
			a.logLines = append(a.logLines, lines...)
			if n := len(a.logLines); n > logKeep {
				a.logLines = a.logLines[n-logKeep:]
			}
			a.app.Update()
		})
	}
}

// GetPool returns the most recent pool snapshot.  Called with the
// application lock held, from panel update paths.
func (a *App) GetPool() (*rest.PoolInfo, []*rest.WorkerInfo, error) {
	return a.info, a.items, a.err
}

// GetLogLines returns the accumulated log tail.  A nil slice with a nil
// error means the first batch has not arrived yet.
func (a *App) GetLogLines() ([]string, error) {
	return a.logLines, a.logErr
}

func (a *App) Run() error {
	a.app.SetRootWidget(a)
	a.ShowPool()
	go a.refresh()
	go func() {
		// Give us periodic updates
		for {
			a.app.Update()
			time.Sleep(time.Second)
		}
	}()
	return a.app.Run()
}

func NewApp(client *rest.Client, url string) *App {

	app := &App{}
	app.app = &views.Application{}
	app.client = client
	app.url = url
	app.pool = NewPoolPanel(app, url)
	app.help = NewHelpPanel(app)
	app.logp = NewLogPanel(app)
	app.panel = app.pool

	return app
}
