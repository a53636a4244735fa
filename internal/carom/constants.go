package carom

// The playing surface is 9 x 6.24 units with the origin at its centre and y
// pointing up.

const (
	BallRadius = 0.21

	// TimeScale is a tuning multiplier on integrated displacement. It has no
	// physical derivation; it sets how fast shots feel on screen.
	TimeScale = 3.3

	// DecreaseRate is the per-frame damping factor at the reference frame time.
	DecreaseRate = 0.9982
	// dampingFrames compensates DecreaseRate for variable frame time.
	dampingFrames = 400.0

	MoveThreshold = 0.0001 // below this on both axes a ball is snapped to rest
	StopThreshold = 0.01   // turn, stop and stick-launch threshold

	WallRestitution = 0.7

	StickLength = 7.0

	AimStep       = 0.2
	AimMaxSamples = 60
	AimHalfWidth  = 4.5
	AimHalfDepth  = 3.12

	StartingScore = 50
	RallyPoints   = 10
)

// Standard wall geometry.
const (
	WallThickness = 0.12
	WallHeight    = 0.3
	WallOffsetZ   = 3.06
	WallOffsetX   = 4.56
	TableWidth    = 9.0
	TableDepth    = 6.24
	FloorDepth    = 6.0
	FloorHeight   = 0.03
)
