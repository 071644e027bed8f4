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

package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/drover-io/drover/drover/util"
	"github.com/drover-io/drover/rest"
)

var (
	styleNormal = tcell.StyleDefault.
			Foreground(tcell.ColorSilver).
			Background(tcell.ColorBlack)
	styleGood = tcell.StyleDefault.
			Foreground(tcell.ColorGreen).
			Background(tcell.ColorBlack)
	styleWarn = tcell.StyleDefault.
			Foreground(tcell.ColorYellow).
			Background(tcell.ColorBlack)
	styleError = tcell.StyleDefault.
			Foreground(tcell.ColorMaroon).
			Background(tcell.ColorBlack)
)

// PoolPanel is the main screen: one row per slot, colored by the
// monitor's verdict, with the pool summary on the status line.
type PoolPanel struct {
	content  *views.CellView
	info     *rest.PoolInfo
	err      error
	selected int
	width    int
	height   int
	curx     int
	cury     int
	lines    []string
	styles   []tcell.Style
	items    []*rest.WorkerInfo

	Panel
}

// poolModel provides the model for the slot table's CellArea.
type poolModel struct {
	m *PoolPanel
}

func NewPoolPanel(app *App, server string) *PoolPanel {
	m := &PoolPanel{selected: -1}

	m.Panel.Init(app)
	m.content = views.NewCellView()
	m.SetContent(m.content)

	m.content.SetModel(&poolModel{m})
	m.content.SetStyle(styleNormal)

	m.SetTitle(server)
	m.SetKeys([]string{"[Q] Quit", "[H] Help", "[L] Log"})

	return m
}

func (m *PoolPanel) Draw() {
	m.update()
	m.Panel.Draw()
}

func (m *PoolPanel) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			m.unselect()
			return true
		case tcell.KeyF1:
			m.App().ShowHelp()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				m.App().Quit()
				return true
			case 'H', 'h':
				m.App().ShowHelp()
				return true
			case 'L', 'l':
				m.App().ShowLog()
				return true
			}
		}
	}
	return m.Panel.HandleEvent(ev)
}

func (model *poolModel) GetCell(x, y int) (rune, tcell.Style, []rune, int) {
	var ch rune
	var style tcell.Style

	m := model.m

	if y < 0 || y >= len(m.lines) {
		return ch, styleNormal, nil, 1
	}

	if x >= 0 && x < len(m.lines[y]) {
		ch = rune(m.lines[y][x])
	} else {
		ch = ' '
	}
	style = m.styles[y]
	if y == m.selected {
		style = style.Reverse(true)
	}
	return ch, style, nil, 1
}

func (model *poolModel) GetBounds() (int, int) {
	// This assumes that all content is displayable runes of width 1.
	m := model.m
	y := len(m.lines)
	x := 0
	for _, l := range m.lines {
		if x < len(l) {
			x = len(l)
		}
	}
	return x, y
}

func (model *poolModel) GetCursor() (int, int, bool, bool) {
	m := model.m
	return m.curx, m.cury, true, false
}

func (model *poolModel) MoveCursor(offx, offy int) {
	m := model.m
	m.curx += offx
	m.cury += offy
	m.updateCursor(true)
}

func (model *poolModel) SetCursor(x, y int) {
	m := model.m
	m.curx = x
	m.cury = y
	m.updateCursor(true)
}

func (m *PoolPanel) unselect() {
	m.cury = 0
	m.curx = 0
	m.updateCursor(false)
}

func (m *PoolPanel) updateCursor(selected bool) {
	if m.curx > m.width-1 {
		m.curx = m.width - 1
	}
	if m.cury > m.height-1 {
		m.cury = m.height - 1
	}
	if m.curx < 0 {
		m.curx = 0
	}
	if m.cury < 0 {
		m.cury = 0
	}
	if selected && m.height > 0 {
		if m.selected < 0 {
			m.curx = 0
			m.cury = 0
		}
		m.selected = m.cury
	} else {
		m.selected = -1
	}
}

// update rebuilds the table from the latest snapshot.  It is called from
// Draw, with the application lock held.
func (m *PoolPanel) update() {

	info, items, err := m.App().GetPool()
	m.info = info
	m.items = items
	m.err = err

	if err != nil {
		m.SetError()
		m.SetStatus(fmt.Sprintf("Cannot load pool: %v", err))
		m.lines = []string{}
		m.styles = []tcell.Style{}
		m.height = 0
		m.width = 0
		return
	}
	if info == nil {
		m.SetNormal()
		m.SetStatus("Loading ...")
		m.lines = []string{}
		m.styles = []tcell.Style{}
		m.height = 0
		m.width = 0
		return
	}

	lines := make([]string, 0, len(items))
	styles := make([]tcell.Style, 0, len(items))

	counts := make(map[string]int)

	m.height = 0
	m.width = 0

	for _, w := range items {
		status := util.Status(w)
		counts[status]++

		line := util.FormatWorker(w)
		if len(line) > m.width {
			m.width = len(line)
		}
		m.height++
		lines = append(lines, line)

		var style tcell.Style
		switch status {
		case "healthy":
			style = styleGood
		case "oversized":
			style = styleWarn
		case "dead":
			style = styleError
		default:
			style = styleNormal
		}
		styles = append(styles, style)
	}

	m.lines = lines
	m.styles = styles

	up := time.Since(info.CreateTime)
	up -= up % time.Second
	m.SetStatus(fmt.Sprintf(
		"%s %-13s up %s  budget %.2f%%  %3d Healthy %3d Oversized %3d Dead %3d Vacant",
		info.Name, info.State, util.FormatDuration(up),
		info.WorkerBudget,
		counts["healthy"], counts["oversized"],
		counts["dead"], counts["vacant"]))

	if counts["dead"] > 0 || counts["vacant"] > 0 {
		m.SetError()
	} else if counts["oversized"] > 0 {
		m.SetWarn()
	} else if counts["healthy"] > 0 {
		m.SetGood()
	} else {
		m.SetNormal()
	}
}
