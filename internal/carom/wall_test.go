package carom

import "testing"

func TestWideWallReflectsApproachingBall(t *testing.T) {
	w := NewWall(0, WallThickness, WallOffsetZ, TableWidth, WallHeight, WallThickness)
	b := NewBall(White, 0, 2.9)
	b.SetPower(1, 2)

	if !w.HitBy(b) {
		t.Fatal("Expected ball moving into the wall to bounce")
	}
	if !near(b.Velocity.X, 0.7, eps) || !near(b.Velocity.Z, -1.4, eps) {
		t.Errorf("Expected (0.7, -1.4), got (%.3f, %.3f)", b.Velocity.X, b.Velocity.Z)
	}
}

func TestWideWallIgnoresRecedingBall(t *testing.T) {
	w := NewWall(0, WallThickness, WallOffsetZ, TableWidth, WallHeight, WallThickness)
	b := NewBall(White, 0, 2.9)
	b.SetPower(1, -2)

	if w.HitBy(b) {
		t.Error("Ball moving away from the wall bounced")
	}
	if b.Velocity != (Vec2{X: 1, Z: -2}) {
		t.Errorf("Velocity changed: %+v", b.Velocity)
	}
}

func TestDeepWallReflectsX(t *testing.T) {
	w := NewWall(WallOffsetX, WallThickness, 0, WallThickness, WallHeight, TableDepth)
	b := NewBall(Red1, 4.4, 0)
	b.SetPower(2, 1)

	if !w.HitBy(b) {
		t.Fatal("Expected ball moving into the wall to bounce")
	}
	if !near(b.Velocity.X, -1.4, eps) || !near(b.Velocity.Z, 0.7, eps) {
		t.Errorf("Expected (-1.4, 0.7), got (%.3f, %.3f)", b.Velocity.X, b.Velocity.Z)
	}
}

func TestWallCornerUsesBoundingBox(t *testing.T) {
	w := NewWall(0, WallThickness, WallOffsetZ, TableWidth, WallHeight, WallThickness)
	// The circle is 0.25 from the wall's corner, but inside the box hull.
	b := NewBall(White, 4.68, 3.3)

	if !w.Intersects(b) {
		t.Error("Expected the bounding-box test to report contact near the corner")
	}
}

func TestWallFarAway(t *testing.T) {
	w := NewWall(0, WallThickness, WallOffsetZ, TableWidth, WallHeight, WallThickness)
	b := NewBall(White, 0, 0)
	b.SetPower(0, 3)
	if w.HitBy(b) {
		t.Error("Ball at the table centre touched the cushion")
	}
}
