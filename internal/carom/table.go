package carom

import (
	"errors"
	"fmt"
)

// Layout places the four balls and the aim marker on the plane.
type Layout struct {
	Balls  [NumBalls]Vec2 `json:"balls"`
	Marker Vec2           `json:"marker"`
}

// StandardLayout is the opening position: reds on the long axis, yellow at the
// far end and white below the first red.
func StandardLayout() Layout {
	return Layout{
		Balls: [NumBalls]Vec2{
			Red0:   {X: -2.7, Z: 0},
			Red1:   {X: 2.4, Z: 0},
			Yellow: {X: 3.3, Z: 0},
			White:  {X: -2.7, Z: -0.9},
		},
	}
}

// StandardWalls returns the four cushions around a 9 x 6.24 surface.
func StandardWalls() []Wall {
	return []Wall{
		NewWall(0, WallThickness, WallOffsetZ, TableWidth, WallHeight, WallThickness),
		NewWall(0, WallThickness, -WallOffsetZ, TableWidth, WallHeight, WallThickness),
		NewWall(WallOffsetX, WallThickness, 0, WallThickness, WallHeight, TableDepth),
		NewWall(-WallOffsetX, WallThickness, 0, WallThickness, WallHeight, TableDepth),
	}
}

// Table owns every body the simulation touches. Bodies live for the whole game.
type Table struct {
	Balls  [NumBalls]*Ball
	Walls  []Wall
	Floor  Wall
	Stick  *Stick
	Marker *Ball
}

// NewTable builds a table with the standard cushions and the given layout.
func NewTable(layout Layout) (*Table, error) {
	return NewTableWithWalls(layout, StandardWalls())
}

// NewTableWithWalls validates the geometry before building the bodies.
func NewTableWithWalls(layout Layout, walls []Wall) (*Table, error) {
	if len(walls) == 0 {
		return nil, errors.New("table needs at least one wall")
	}
	for i, w := range walls {
		if w.Width <= 0 || w.Depth <= 0 || w.Height <= 0 {
			return nil, fmt.Errorf("wall %d has non-positive dimensions", i)
		}
	}

	t := &Table{
		Walls:  append([]Wall(nil), walls...),
		Floor:  NewWall(0, 0, 0, TableWidth, FloorHeight, FloorDepth),
		Stick:  NewStick(StickLength),
		Marker: NewBall(MarkerRole, layout.Marker.X, layout.Marker.Z),
	}
	for i := 0; i < NumBalls; i++ {
		p := layout.Balls[i]
		t.Balls[i] = NewBall(BallRole(i), p.X, p.Z)
	}

	for i := 0; i < NumBalls; i++ {
		for j := i + 1; j < NumBalls; j++ {
			if t.Balls[i].Intersects(t.Balls[j]) {
				return nil, fmt.Errorf("%s and %s overlap at setup", BallRole(i), BallRole(j))
			}
		}
	}

	return t, nil
}

// NewStandardTable builds the opening position.
func NewStandardTable() *Table {
	t, err := NewTable(StandardLayout())
	if err != nil {
		panic(err)
	}
	return t
}

// Ball returns the ball in the given slot.
// Ball returns the ball in slot role, or nil for the marker or an unknown role.
func (t *Table) Ball(role BallRole) *Ball {
	if !role.Valid() {
		return nil
	}
	return t.Balls[role]
}

// AllStopped reports whether every ball is under the stop threshold right now.
func (t *Table) AllStopped() bool {
	for _, b := range t.Balls {
		if !b.IsStopped() {
			return false
		}
	}
	return true
}
