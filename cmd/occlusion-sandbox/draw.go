package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/muffle/core"
	"github.com/lixenwraith/muffle/engine"
	"github.com/lixenwraith/muffle/topology"
)

// hudRows is the number of status lines under the map
const hudRows = 4

var (
	styleWall     = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleWater    = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleDoorOpen = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleDoorShut = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleListener = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
	styleLabel    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleHUD      = tcell.StyleDefault.Foreground(tcell.ColorWhite)
)

// tierStyles colours emitters by muffle tier
var tierStyles = map[string]tcell.Style{
	"none":   tcell.StyleDefault.Foreground(tcell.ColorGreen),
	"light":  tcell.StyleDefault.Foreground(tcell.ColorYellow),
	"medium": tcell.StyleDefault.Foreground(tcell.ColorOrange),
	"heavy":  tcell.StyleDefault.Foreground(tcell.ColorRed),
}

// viewport maps world coordinates into a screen rectangle; world Y grows upward
type viewport struct {
	minX, minY float64
	scaleX     float64
	scaleY     float64
	w, h       int
}

func newViewport(g *topology.Graph, w, h int) viewport {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	g.Spaces(func(s *topology.Space) bool {
		minX = min(minX, s.Bounds.X)
		minY = min(minY, s.Bounds.Y)
		maxX = max(maxX, s.Bounds.Right())
		maxY = max(maxY, s.Bounds.Top())
		return true
	})
	v := viewport{minX: minX, minY: minY, w: max(w, 1), h: max(h, 1)}
	if spanX := maxX - minX; spanX > 0 {
		v.scaleX = float64(v.w-1) / spanX
	}
	if spanY := maxY - minY; spanY > 0 {
		v.scaleY = float64(v.h-1) / spanY
	}
	return v
}

func (v viewport) cell(p core.Vec2) (int, int) {
	x := int(math.Round((p.X - v.minX) * v.scaleX))
	y := v.h - 1 - int(math.Round((p.Y-v.minY)*v.scaleY))
	return x, y
}

func (v viewport) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < v.w && y < v.h
}

// draw renders the map and the HUD for the latest report
func draw(s tcell.Screen, w *world, r engine.Report) {
	s.Clear()
	sw, sh := s.Size()
	mapRows := sh - hudRows - len(r.Channels)
	vp := newViewport(w.graph, sw, max(mapRows, 3))

	w.graph.Spaces(func(sp *topology.Space) bool {
		drawSpace(s, vp, sp)
		return true
	})
	w.graph.Portals(func(p *topology.Portal) bool {
		drawPortal(s, vp, p)
		return true
	})

	for _, ch := range r.Channels {
		x, y := vp.cell(ch.Position)
		if !vp.inside(x, y) {
			continue
		}
		glyph := '?'
		if ch.Sound != "" {
			glyph = rune(ch.Sound[0])
		}
		s.SetContent(x, y, glyph, nil, tierStyles[ch.Tier])
	}

	if x, y := vp.cell(w.input.Position); vp.inside(x, y) {
		s.SetContent(x, y, '@', nil, styleListener)
	}

	drawHUD(s, w, r, vp.h)
	s.Show()
}

func drawSpace(s tcell.Screen, vp viewport, sp *topology.Space) {
	x0, y1 := vp.cell(core.Vec2{X: sp.Bounds.X, Y: sp.Bounds.Y})
	x1, y0 := vp.cell(core.Vec2{X: sp.Bounds.Right(), Y: sp.Bounds.Top()})

	if sp.WaterLevel > 0 {
		_, ys := vp.cell(core.Vec2{Y: sp.SurfaceY()})
		for y := max(ys, y0+1); y < y1; y++ {
			for x := x0 + 1; x < x1; x++ {
				if vp.inside(x, y) {
					s.SetContent(x, y, '~', nil, styleWater)
				}
			}
		}
	}

	for x := x0; x <= x1; x++ {
		setIn(s, vp, x, y0, '─', styleWall)
		setIn(s, vp, x, y1, '─', styleWall)
	}
	for y := y0; y <= y1; y++ {
		setIn(s, vp, x0, y, '│', styleWall)
		setIn(s, vp, x1, y, '│', styleWall)
	}

	for i, c := range sp.Name {
		setIn(s, vp, x0+1+i, y0+1, c, styleLabel)
	}
}

func drawPortal(s tcell.Screen, vp viewport, p *topology.Portal) {
	glyph, style := ' ', tcell.StyleDefault
	if p.IsDoor() {
		glyph, style = '+', styleDoorShut
		if !p.Closed() {
			glyph, style = '/', styleDoorOpen
		}
	}
	x0, y1 := vp.cell(core.Vec2{X: p.Rect.X, Y: p.Rect.Y})
	x1, y0 := vp.cell(core.Vec2{X: p.Rect.Right(), Y: p.Rect.Top()})
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			setIn(s, vp, x, y, glyph, style)
		}
	}
}

func drawHUD(s tcell.Screen, w *world, r engine.Report, top int) {
	l := r.Listener
	space := l.SpaceName
	if space == "" {
		space = "exterior"
	}
	lines := []string{
		fmt.Sprintf("tick %d  listener %s (%.0f, %.0f)  reverb %.0f  sidechain %.2f %s  clones %d",
			r.Tick, space, l.Position.X, l.Position.Y, l.ReverbArea, r.Sidechain, r.SidechainGroup, r.Clones),
		fmt.Sprintf("suit %t  submerged %t  eavesdrop %.2f  hydrophone %.2f  %s",
			l.Suit, l.Submerged, l.Eavesdrop, l.Hydrophone, w.message),
		"arrows move  d door  f/g flood/drain  e eavesdrop  h hydrophone  s suit  a alarm  q quit",
	}
	for _, ch := range r.Channels {
		lines = append(lines, fmt.Sprintf("%-8s %-28s %-6s gain %.2f pitch %.2f %s %.0fHz dist %.0f",
			ch.Sound, ch.Obstructions, ch.Tier, ch.Gain, ch.Pitch, ch.Filter, ch.Cutoff, ch.Distance))
	}

	for i, line := range lines {
		for j, c := range line {
			s.SetContent(j, top+1+i, c, nil, styleHUD)
		}
	}
}

func setIn(s tcell.Screen, vp viewport, x, y int, c rune, st tcell.Style) {
	if vp.inside(x, y) {
		s.SetContent(x, y, c, nil, st)
	}
}
