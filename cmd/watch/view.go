package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gdamore/tcell/v2"

	"colonyctl.ai/internal/protocol"
	"colonyctl.ai/internal/sim/colony/feature/layout"
	"colonyctl.ai/internal/sim/colony/logic/geom"
	"colonyctl.ai/internal/sim/colony/model"
	"colonyctl.ai/internal/sim/colony/operation"
)

const maxAudits = 8

// view is everything the watcher draws. It is updated only from the UI goroutine.
type view struct {
	welcome protocol.WelcomeMsg
	report  operation.TickReport
	overlay []layout.Marker
	audits  []operation.AuditEntry
	status  string
}

// apply folds one server message into the view. It reports whether anything changed.
func (v *view) apply(raw []byte) bool {
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		return false
	}
	switch base.Type {
	case protocol.TypeWelcome:
		return json.Unmarshal(raw, &v.welcome) == nil
	case protocol.TypeReport:
		var msg protocol.ReportMsg
		if err := json.Unmarshal(raw, &msg); err != nil {
			return false
		}
		v.report = msg.Report
		v.overlay = msg.Overlay
		v.audits = append(v.audits, msg.Audits...)
		if n := len(v.audits); n > maxAudits {
			v.audits = append([]operation.AuditEntry(nil), v.audits[n-maxAudits:]...)
		}
		return true
	case protocol.TypeCommandResult:
		var res protocol.CommandResultMsg
		if err := json.Unmarshal(raw, &res); err != nil {
			return false
		}
		if res.Accepted {
			v.status = fmt.Sprintf("tick %d: ok", res.Tick)
			if res.SnapshotPath != "" {
				v.status += " " + res.SnapshotPath
			}
		} else {
			v.status = fmt.Sprintf("tick %d: %s %s", res.Tick, res.Code, res.Message)
		}
		return true
	}
	return false
}

var glyphs = map[model.Kind]rune{
	model.KindSpawn:      'S',
	model.KindExtension:  'e',
	model.KindRoad:       '.',
	model.KindWall:       '#',
	model.KindRampart:    'R',
	model.KindLink:       'k',
	model.KindStorage:    'O',
	model.KindTower:      'T',
	model.KindObserver:   'o',
	model.KindPowerSpawn: 'P',
	model.KindExtractor:  'x',
	model.KindLab:        'L',
	model.KindTerminal:   'M',
	model.KindContainer:  'c',
	model.KindNuker:      'N',
}

func glyph(k model.Kind) rune {
	if r, ok := glyphs[k]; ok {
		return r
	}
	return '?'
}

func kindStyle(k model.Kind) tcell.Style {
	switch k {
	case model.KindRampart, model.KindWall:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	case model.KindTower:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	case model.KindSpawn, model.KindStorage:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	case model.KindRoad:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorBlue)
	}
}

// draw renders the grid on the left and the status panel to its right.
func (v *view) draw(s tcell.Screen) {
	s.Clear()
	dim := tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	for y := 0; y < geom.GridSize; y++ {
		for x := 0; x < geom.GridSize; x++ {
			s.SetContent(x, y, '·', nil, dim)
		}
	}
	for _, m := range v.overlay {
		s.SetContent(m.Pos.X, m.Pos.Y, glyph(m.Kind), nil, kindStyle(m.Kind))
	}
	ids := make([]string, 0, len(v.report.StandPoints))
	for id := range v.report.StandPoints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := v.report.StandPoints[id]
		s.SetContent(p.X, p.Y, '@', nil, tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true))
	}

	col := geom.GridSize + 2
	row := 0
	line := func(format string, args ...any) {
		putString(s, col, row, fmt.Sprintf(format, args...), tcell.StyleDefault)
		row++
	}
	r := v.report
	line("site %s  tick %d  level %d", v.welcome.Site, r.Tick, r.Level)
	line("session %s", v.welcome.SessionID)
	line("ready %v  hostiles %d  threats %d", r.Ready, r.Hostiles, r.Threats)
	line("at risk %d  required rate %d", r.AtRisk, r.RequiredRate)
	if r.StepKind != "" {
		line("step %s", r.StepKind)
	} else if r.StepSkipped != "" {
		line("step skipped: %s", r.StepSkipped)
	} else {
		line("step -")
	}
	line("repairs %d  work orders %d", r.Repairs, r.WorkOrders)
	row++

	roles := make([]string, 0, len(r.Populations))
	for role := range r.Populations {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		p := r.Populations[role]
		line("%-8s %d/%d", role, p.Live, p.Desired)
	}
	for _, w := range r.Warnings {
		putString(s, col, row, "! "+w, tcell.StyleDefault.Foreground(tcell.ColorRed))
		row++
	}
	row++
	for _, a := range v.audits {
		text := fmt.Sprintf("%d %s %s", a.Tick, a.Action, a.Kind)
		if a.Pos != nil {
			text += fmt.Sprintf(" (%d,%d)", a.Pos.X, a.Pos.Y)
		}
		line("%s", text)
	}

	putString(s, 0, geom.GridSize+1, "q quit  l layout  i invalidate  s snapshot", dim)
	if v.status != "" {
		putString(s, 0, geom.GridSize+2, v.status, tcell.StyleDefault)
	}
	s.Show()
}

func putString(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
