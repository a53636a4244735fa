package carom

import "math"

// Wall is an axis-aligned box. Its orientation is inferred from its footprint:
// wider-than-deep walls run along x and bounce the z component.
type Wall struct {
	Position Vec3    `json:"position"`
	Width    float64 `json:"width"`
	Depth    float64 `json:"depth"`
	Height   float64 `json:"height"`
}

func NewWall(x, y, z, width, height, depth float64) Wall {
	return Wall{Position: NewVec3(x, y, z), Width: width, Depth: depth, Height: height}
}

// Intersects is a bounding-box test against the ball's square hull, so a ball
// near a wall's corner can register a contact the exact circle test would not.
func (w Wall) Intersects(b *Ball) bool {
	return math.Abs(b.Position.X-w.Position.X) < w.Width/2+b.Radius &&
		math.Abs(b.Position.Z-w.Position.Z) < w.Depth/2+b.Radius
}

// HitBy reflects the ball only while it moves toward the wall, so a ball resting
// against a cushion is not bounced every frame.
func (w Wall) HitBy(b *Ball) bool {
	if !w.Intersects(b) {
		return false
	}

	if w.Width > w.Depth {
		if b.Velocity.Z*(w.Position.Z-b.Position.Z) > 0 {
			b.SetPower(WallRestitution*b.Velocity.X, -WallRestitution*b.Velocity.Z)
			return true
		}
		return false
	}

	if b.Velocity.X*(w.Position.X-b.Position.X) > 0 {
		b.SetPower(-WallRestitution*b.Velocity.X, WallRestitution*b.Velocity.Z)
		return true
	}
	return false
}
