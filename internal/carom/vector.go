package carom

import "math"

// Vec3 is a point in table space.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec2 is a vector on the table plane. Its components are the x and z axes of
// table space; there is no vertical motion.
type Vec2 struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

func NewVec3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Plus(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vec3) Minus(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vec3) Times(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vec3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Planar drops the height component.
func (v Vec3) Planar() Vec2 {
	return Vec2{X: v.X, Z: v.Z}
}

func (v Vec2) Plus(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Z: v.Z + o.Z}
}

func (v Vec2) Minus(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Z: v.Z - o.Z}
}

func (v Vec2) Times(s float64) Vec2 {
	return Vec2{X: v.X * s, Z: v.Z * s}
}

func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Z*o.Z
}

func (v Vec2) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Z*v.Z)
}

func (v Vec2) MagnitudeSquared() float64 {
	return v.X*v.X + v.Z*v.Z
}

// Normalize returns the unit vector, or the zero vector for zero input.
func (v Vec2) Normalize() Vec2 {
	m := v.Magnitude()
	if m == 0 {
		return Vec2{}
	}
	return v.Times(1.0 / m)
}

func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Z == 0
}

// Exceeds reports whether either component's magnitude is above limit.
func (v Vec2) Exceeds(limit float64) bool {
	return math.Abs(v.X) > limit || math.Abs(v.Z) > limit
}

// Below reports whether both components' magnitudes are under limit.
func (v Vec2) Below(limit float64) bool {
	return math.Abs(v.X) < limit && math.Abs(v.Z) < limit
}
