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
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"
)

var (
	styleChrome = tcell.StyleDefault.
			Foreground(tcell.ColorBlack).
			Background(tcell.ColorSilver)
	styleChromeKey = tcell.StyleDefault.
			Foreground(tcell.ColorBlue).
			Background(tcell.ColorSilver).Bold(true)
	styleBarGood = tcell.StyleDefault.
			Foreground(tcell.ColorWhite).
			Background(tcell.ColorGreen).Bold(true)
	styleBarWarn = tcell.StyleDefault.
			Foreground(tcell.ColorBlack).
			Background(tcell.ColorYellow)
	styleBarError = tcell.StyleDefault.
			Foreground(tcell.ColorWhite).
			Background(tcell.ColorMaroon).Bold(true)
)

// newBar builds a styled text bar with 'N' (normal) and 'A' (accent)
// markup styles registered on all three segments.
func newBar(normal tcell.Style, accent tcell.Style) *views.SimpleStyledTextBar {
	b := &views.SimpleStyledTextBar{}
	b.Init()
	b.SetStyle(normal)
	b.RegisterLeftStyle('N', normal)
	b.RegisterLeftStyle('A', accent)
	b.RegisterCenterStyle('N', normal)
	b.RegisterCenterStyle('A', accent)
	b.RegisterRightStyle('N', normal)
	b.RegisterRightStyle('A', accent)
	return b
}

// Panel is the chrome every drover screen shares: a title bar, a status
// line whose color tracks pool condition, the content widget, and a key
// legend.  It wraps views.Panel so the individual screens only deal in
// strings.
type Panel struct {
	tb     *views.SimpleStyledTextBar
	sb     *views.SimpleStyledTextBar
	kb     *views.SimpleStyledTextBar
	status string
	once   sync.Once
	app    *App

	views.Panel
}

func (p *Panel) Init(app *App) {
	p.once.Do(func() {
		p.app = app

		p.tb = newBar(styleChrome, styleChromeKey)
		p.tb.SetRight(app.GetAppName())
		p.tb.SetCenter(" ")

		p.sb = newBar(styleChrome, styleChrome)
		p.kb = newBar(styleChrome, styleChromeKey)

		p.Panel.SetTitle(p.tb)
		p.Panel.SetMenu(p.sb)
		p.Panel.SetStatus(p.kb)
	})
}

func (p *Panel) App() *App {
	return p.app
}

func (p *Panel) SetTitle(title string) {
	p.tb.SetCenter(title)
}

func (p *Panel) SetStatus(status string) {
	p.status = status
	p.sb.SetLeft(status)
}

func (p *Panel) setBarStyle(style tcell.Style) {
	p.sb.SetStyle(style)
	p.sb.RegisterLeftStyle('N', style)
	p.sb.SetLeft(p.status)
}

func (p *Panel) SetGood() {
	p.setBarStyle(styleBarGood)
}

func (p *Panel) SetNormal() {
	p.setBarStyle(styleChrome)
}

func (p *Panel) SetWarn() {
	p.setBarStyle(styleBarWarn)
}

func (p *Panel) SetError() {
	p.setBarStyle(styleBarError)
}

// SetKeys renders the key legend.  Text inside brackets is shown in the
// accent style, so "[Q] Quit" highlights the Q.
func (p *Panel) SetKeys(words []string) {
	b := make([]rune, 0, 80)
	for i, w := range words {
		esc := false
		if i != 0 && len(w) != 0 {
			b = append(b, ' ')
		}
		for _, r := range w {
			if esc {
				if r == ']' {
					b = append(b, '%', 'N')
					esc = false
				} else if r == '%' {
					b = append(b, '%')
				}
				b = append(b, r)
			} else {
				b = append(b, r)
				if r == '[' {
					esc = true
					b = append(b, '%', 'A')
				} else if r == '%' {
					b = append(b, '%')
				}
			}
		}
	}
	p.kb.SetLeft(string(b))
}
