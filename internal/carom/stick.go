package carom

import "math"

// StickState is the cue's lifecycle within a shot.
type StickState int

const (
	StickIdle StickState = iota
	StickAiming
	StickLaunched
)

func (s StickState) String() string {
	switch s {
	case StickIdle:
		return "idle"
	case StickAiming:
		return "aiming"
	case StickLaunched:
		return "launched"
	}
	return "unknown"
}

// Stick is the cue. While aiming it follows the active ball and marker; once
// launched it travels until it touches the active ball and hands over its
// velocity.
type Stick struct {
	Position Vec3       `json:"position"`
	Length   float64    `json:"length"`
	Angle    float64    `json:"angle"`
	Velocity Vec2       `json:"velocity"`
	State    StickState `json:"state"`
}

func NewStick(length float64) *Stick {
	return &Stick{Length: length}
}

// IsMoving reports whether a stroke is under way.
func (s *Stick) IsMoving() bool {
	return s.State == StickLaunched
}

// SetTarget poses the stick behind start, pointing at end. The angle is measured
// from +z, clockwise seen from above.
func (s *Stick) SetTarget(start, end Vec3) {
	dir := end.Minus(start)
	length := dir.Magnitude()
	if length == 0 {
		return
	}

	angle := math.Acos(-dir.Z / length)
	if dir.X > 0 {
		angle = -angle
	}

	offset := s.Length*0.5 + BallRadius + length*0.5
	s.Position = start.Plus(dir.Times(-offset / length))
	s.Angle = angle
}

// SetPower launches the stick when either component is above the stop threshold.
func (s *Stick) SetPower(vx, vz float64) {
	s.Velocity = Vec2{X: vx, Z: vz}
	if s.Velocity.Exceeds(StopThreshold) {
		s.State = StickLaunched
	}
}

// Update moves a launched stick. Orientation is fixed for the stroke.
func (s *Stick) Update(dt float64) {
	if s.Velocity.Exceeds(StopThreshold) {
		s.Position.X += TimeScale * dt * s.Velocity.X
		s.Position.Z += TimeScale * dt * s.Velocity.Z
		return
	}
	s.Velocity = Vec2{}
	if s.State == StickLaunched {
		s.State = StickIdle
	}
}

// Intersects treats the stick's half-length as a radius around its centre.
func (s *Stick) Intersects(b *Ball) bool {
	dx := b.Position.X - s.Position.X
	dz := b.Position.Z - s.Position.Z
	half := s.Length / 2
	return dx*dx+dz*dz < half*half
}

// HitBy transfers the stick's velocity to b and stops the stick.
func (s *Stick) HitBy(b *Ball) bool {
	if !s.Intersects(b) {
		return false
	}
	b.SetPower(s.Velocity.X, s.Velocity.Z)
	s.Velocity = Vec2{}
	s.State = StickIdle
	return true
}
