package carom

import "iter"

// Game is the boundary hosts drive: one table, one match state and the
// commands a player can issue. It is not safe for concurrent use.
type Game struct {
	table *Table
	state MatchState
}

// NewGame starts a match on t with player 1 to shoot.
func NewGame(t *Table) *Game {
	return &Game{table: t, state: NewMatchState()}
}

func NewStandardGame() *Game {
	return NewGame(NewStandardTable())
}

// Advance runs one simulation frame.
func (g *Game) Advance(dt float64) []Event {
	var events []Event
	g.state, events = Step(g.table, g.state, dt)
	return events
}

// Aim moves the marker to target at ball height. The stick starts aiming when
// the active ball is at rest and no stroke is under way. It reports whether the
// stick is aiming afterwards.
func (g *Game) Aim(target Vec3) bool {
	g.table.Marker.SetCenter(target.X, target.Z)

	stick := g.table.Stick
	if stick.State != StickLaunched && g.ActiveBall().IsStopped() {
		stick.State = StickAiming
	}
	if stick.State == StickAiming {
		stick.SetTarget(g.ActiveBall().Position, g.table.Marker.Position)
		return true
	}
	return false
}

// NudgeMarker moves the marker by a planar delta.
func (g *Game) NudgeMarker(dx, dz float64) bool {
	m := g.table.Marker.Position
	return g.Aim(NewVec3(m.X+dx, BallRadius, m.Z+dz))
}

// CancelAim drops an aim in progress. A launched stroke is unaffected.
func (g *Game) CancelAim() {
	if g.table.Stick.State == StickAiming {
		g.table.Stick.State = StickIdle
	}
}

// Shoot launches the stick with power equal to the marker's offset from the
// active ball and starts a new rally. It is a no-op returning false unless the
// stick is aiming and the active ball is at rest.
func (g *Game) Shoot() bool {
	stick := g.table.Stick
	active := g.ActiveBall()
	if stick.State != StickAiming || !active.IsStopped() {
		return false
	}

	power := g.table.Marker.Position.Planar().Minus(active.Position.Planar())
	stick.SetTarget(active.Position, g.table.Marker.Position)
	stick.SetPower(power.X, power.Z)
	g.state.Hit = [NumBalls]bool{}
	return stick.IsMoving()
}

func (g *Game) Table() *Table         { return g.table }
func (g *Game) State() MatchState     { return g.state }
func (g *Game) Stick() *Stick         { return g.table.Stick }
func (g *Game) Marker() Vec3          { return g.table.Marker.Position }
func (g *Game) Ball(r BallRole) *Ball { return g.table.Ball(r) }
func (g *Game) CurrentPlayer() Player { return g.state.CurrentPlayer }
func (g *Game) CurrentBall() BallRole { return g.state.CurrentBall }
func (g *Game) Score(p Player) int    { return g.state.Score(p) }

// ActiveBall is the ball the current player strikes.
func (g *Game) ActiveBall() *Ball {
	return g.table.Balls[g.state.CurrentBall]
}

// Settled reports whether nothing on the table is moving.
func (g *Game) Settled() bool {
	return g.table.AllStopped() && !g.table.Stick.IsMoving()
}

// AimPath previews the line from the active ball toward the marker.
func (g *Game) AimPath() iter.Seq[Vec3] {
	return AimPath(g.ActiveBall().Position, g.table.Marker.Position)
}

type BallSnapshot struct {
	Role     BallRole `json:"role"`
	Name     string   `json:"name"`
	Position Vec3     `json:"position"`
	Velocity Vec2     `json:"velocity"`
	Moving   bool     `json:"moving"`
}

type StickSnapshot struct {
	Position Vec3    `json:"position"`
	Angle    float64 `json:"angle"`
	Length   float64 `json:"length"`
	State    string  `json:"state"`
}

// Snapshot is a copy of everything a client needs to draw a frame.
type Snapshot struct {
	Balls         []BallSnapshot `json:"balls"`
	Stick         StickSnapshot  `json:"stick"`
	Marker        Vec3           `json:"marker"`
	CurrentPlayer Player         `json:"current_player"`
	CurrentBall   BallRole       `json:"current_ball"`
	Score1        int            `json:"score1"`
	Score2        int            `json:"score2"`
	NewTurn       bool           `json:"new_turn"`
	Settled       bool           `json:"settled"`
}

func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Balls: make([]BallSnapshot, 0, NumBalls),
		Stick: StickSnapshot{
			Position: g.table.Stick.Position,
			Angle:    g.table.Stick.Angle,
			Length:   g.table.Stick.Length,
			State:    g.table.Stick.State.String(),
		},
		Marker:        g.table.Marker.Position,
		CurrentPlayer: g.state.CurrentPlayer,
		CurrentBall:   g.state.CurrentBall,
		Score1:        g.state.Score1,
		Score2:        g.state.Score2,
		NewTurn:       g.state.NewTurn,
		Settled:       g.Settled(),
	}
	for _, b := range g.table.Balls {
		s.Balls = append(s.Balls, BallSnapshot{
			Role:     b.Role,
			Name:     b.Role.String(),
			Position: b.Position,
			Velocity: b.Velocity,
			Moving:   !b.IsStopped(),
		})
	}
	return s
}
