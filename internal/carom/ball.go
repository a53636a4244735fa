package carom

import (
	"fmt"
	"math"
)

// BallRole names the fixed slot a ball occupies on the table.
type BallRole int

const (
	Red0 BallRole = iota
	Red1
	Yellow
	White

	NumBalls = 4

	// MarkerRole tags the aim marker, which never collides.
	MarkerRole BallRole = -1
)

var ballRoleNames = [NumBalls]string{"red0", "red1", "yellow", "white"}

func (r BallRole) String() string {
	if !r.Valid() {
		return fmt.Sprintf("ball(%d)", int(r))
	}
	return ballRoleNames[r]
}

// Valid reports whether r is one of the four table slots.
func (r BallRole) Valid() bool {
	return r >= Red0 && r <= White
}

// Ball is a planar circle with a fixed height.
type Ball struct {
	Role     BallRole `json:"role"`
	Position Vec3     `json:"position"`
	Velocity Vec2     `json:"velocity"`
	Radius   float64  `json:"radius"`
}

// NewBall places a resting ball of the standard radius at (x, z).
func NewBall(role BallRole, x, z float64) *Ball {
	return &Ball{
		Role:     role,
		Position: NewVec3(x, BallRadius, z),
		Radius:   BallRadius,
	}
}

// SetPower replaces the ball's velocity.
func (b *Ball) SetPower(vx, vz float64) {
	b.Velocity = Vec2{X: vx, Z: vz}
}

// SetCenter moves the ball; the height is kept.
func (b *Ball) SetCenter(x, z float64) {
	b.Position.X = x
	b.Position.Z = z
}

// IsStopped uses the turn/stop threshold, not the integration threshold.
func (b *Ball) IsStopped() bool {
	return b.Velocity.Below(StopThreshold)
}

// Intersects assumes equal radii.
func (b *Ball) Intersects(other *Ball) bool {
	dx := b.Position.X - other.Position.X
	dz := b.Position.Z - other.Position.Z
	return math.Sqrt(dx*dx+dz*dz) < 2*b.Radius
}

// HitBy exchanges the normal velocity components of two touching balls. Masses
// are ignored and overlapping balls are not pushed apart. Callers resolve each
// unordered pair at most once per frame.
func (b *Ball) HitBy(other *Ball) bool {
	if !b.Intersects(other) {
		return false
	}

	rel := other.Velocity.Minus(b.Velocity)
	normal := other.Position.Planar().Minus(b.Position.Planar()).Normalize()
	impulse := rel.Dot(normal)

	b.Velocity = b.Velocity.Plus(normal.Times(impulse))
	other.Velocity = other.Velocity.Minus(normal.Times(impulse))
	return true
}

// Update integrates position over dt seconds and applies frame-rate compensated
// damping. Walls are the only thing keeping balls on the table.
func (b *Ball) Update(dt float64) {
	if b.Velocity.Exceeds(MoveThreshold) {
		b.Position.X += TimeScale * dt * b.Velocity.X
		b.Position.Z += TimeScale * dt * b.Velocity.Z
	} else {
		b.Velocity = Vec2{}
	}

	b.Velocity = b.Velocity.Times(dampingRate(dt))
}

func dampingRate(dt float64) float64 {
	rate := 1 - (1-DecreaseRate)*dt*dampingFrames
	if rate < 0 {
		return 0
	}
	return rate
}
