package render

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/playmatatu/carom/internal/carom"
)

var (
	feltStyle   = tcell.StyleDefault.Background(tcell.ColorDarkGreen)
	wallStyle   = tcell.StyleDefault.Foreground(tcell.ColorSaddleBrown).Background(tcell.ColorSaddleBrown)
	pathStyle   = feltStyle.Foreground(tcell.ColorLightGray)
	markerStyle = feltStyle.Foreground(tcell.ColorAqua).Bold(true)
	stickStyle  = feltStyle.Foreground(tcell.ColorTan)
	textStyle   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	hintStyle   = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

// BallStyle colours a ball by role.
func BallStyle(role carom.BallRole) tcell.Style {
	switch role {
	case carom.Red0, carom.Red1:
		return feltStyle.Foreground(tcell.ColorRed).Bold(true)
	case carom.Yellow:
		return feltStyle.Foreground(tcell.ColorYellow).Bold(true)
	}
	return feltStyle.Foreground(tcell.ColorWhite).Bold(true)
}

// Viewport maps the table plane onto a block of terminal cells. +z is up.
type Viewport struct {
	Left, Top  int
	Cols, Rows int
}

// NewViewport fits the table into a w x h screen, leaving a status line on
// top and a hint line at the bottom.
func NewViewport(w, h int) Viewport {
	return Viewport{Left: 0, Top: 1, Cols: max(w, 2), Rows: max(h-2, 2)}
}

// ToCell returns the cell that contains the table point (x, z).
func (v Viewport) ToCell(x, z float64) (col, row int) {
	fx := (x + carom.TableWidth/2) / carom.TableWidth
	fz := (carom.TableDepth/2 - z) / carom.TableDepth
	col = v.Left + int(math.Round(fx*float64(v.Cols-1)))
	row = v.Top + int(math.Round(fz*float64(v.Rows-1)))
	return col, row
}

// ToTable returns the table point at the centre of a cell.
func (v Viewport) ToTable(col, row int) (x, z float64) {
	fx := float64(col-v.Left) / float64(v.Cols-1)
	fz := float64(row-v.Top) / float64(v.Rows-1)
	return fx*carom.TableWidth - carom.TableWidth/2, carom.TableDepth/2 - fz*carom.TableDepth
}

func (v Viewport) contains(col, row int) bool {
	return col >= v.Left && col < v.Left+v.Cols && row >= v.Top && row < v.Top+v.Rows
}

// Renderer draws snapshots onto a tcell screen.
type Renderer struct {
	screen tcell.Screen
	floor  carom.Wall
	walls  []carom.Wall
}

// New takes the static geometry of t; balls and stick come from snapshots.
func New(screen tcell.Screen, t *carom.Table) *Renderer {
	return &Renderer{screen: screen, floor: t.Floor, walls: t.Walls}
}

func (r *Renderer) Viewport() Viewport {
	w, h := r.screen.Size()
	return NewViewport(w, h)
}

// Draw paints one frame: the floor, walls, aim path, stick, marker, balls and
// the status and hint lines. It does not call Show.
func (r *Renderer) Draw(s carom.Snapshot, path []carom.Vec3, status string) {
	r.screen.Clear()
	v := r.Viewport()

	r.fillBox(v, r.floor, ' ', feltStyle)
	for _, w := range r.walls {
		r.fillBox(v, w, '█', wallStyle)
	}

	for _, p := range path {
		r.put(v, p.X, p.Z, '·', pathStyle)
	}
	if s.Stick.State != carom.StickIdle.String() {
		r.drawStick(v, s.Stick)
	}
	r.put(v, s.Marker.X, s.Marker.Z, '+', markerStyle)

	for _, b := range s.Balls {
		ch := 'o'
		if b.Role == s.CurrentBall {
			ch = 'O'
		}
		r.put(v, b.Position.X, b.Position.Z, ch, BallStyle(b.Role))
	}

	r.text(0, 0, fmt.Sprintf("P1 %3d   P2 %3d   Player %d on %s   %s",
		s.Score1, s.Score2, s.CurrentPlayer, s.CurrentBall, status), textStyle)
	_, h := r.screen.Size()
	r.text(0, h-1, "arrows/mouse aim  space shoot  c cancel  q quit", hintStyle)
}

// fillBox paints the cells covered by the plan view of a box.
func (r *Renderer) fillBox(v Viewport, w carom.Wall, ch rune, style tcell.Style) {
	c0, r0 := v.ToCell(w.Position.X-w.Width/2, w.Position.Z+w.Depth/2)
	c1, r1 := v.ToCell(w.Position.X+w.Width/2, w.Position.Z-w.Depth/2)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			if v.contains(col, row) {
				r.screen.SetContent(col, row, ch, nil, style)
			}
		}
	}
}

// drawStick traces the cue axis around its centre.
func (r *Renderer) drawStick(v Viewport, s carom.StickSnapshot) {
	dx, dz := -math.Sin(s.Angle), -math.Cos(s.Angle)
	half := s.Length / 2
	for t := -half; t <= half; t += carom.AimStep / 2 {
		r.put(v, s.Position.X+dx*t, s.Position.Z+dz*t, '=', stickStyle)
	}
}

func (r *Renderer) put(v Viewport, x, z float64, ch rune, style tcell.Style) {
	col, row := v.ToCell(x, z)
	if v.contains(col, row) {
		r.screen.SetContent(col, row, ch, nil, style)
	}
}

func (r *Renderer) text(col, row int, s string, style tcell.Style) {
	for _, ch := range s {
		r.screen.SetContent(col, row, ch, nil, style)
		col++
	}
}
