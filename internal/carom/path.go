package carom

import "iter"

// AimPath yields points every AimStep units from start toward end, beginning
// one step out. It stops at the table bounds or after AimMaxSamples points.
// The sequence holds no state and can be ranged over repeatedly.
func AimPath(start, end Vec3) iter.Seq[Vec3] {
	return func(yield func(Vec3) bool) {
		dir := end.Minus(start)
		length := dir.Magnitude()
		if length == 0 {
			return
		}

		step := dir.Times(AimStep / length)
		pos := start.Plus(step)
		for i := 0; i < AimMaxSamples && insideAimBounds(pos); i++ {
			if !yield(pos) {
				return
			}
			pos = pos.Plus(step)
		}
	}
}

func insideAimBounds(p Vec3) bool {
	return p.X > -AimHalfWidth && p.X < AimHalfWidth &&
		p.Z > -AimHalfDepth && p.Z < AimHalfDepth
}
