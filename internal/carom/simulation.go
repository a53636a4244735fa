package carom

// EventType tags what happened during a frame.
type EventType string

const (
	EventBallHit  EventType = "ball"
	EventWallHit  EventType = "wall"
	EventStrike   EventType = "stick"
	EventNewTurn  EventType = "turn"
	EventRallyEnd EventType = "rally"
)

// Event is reported by Step for hosts that log, play sounds or notify clients.
// Target is the other ball's role for ball hits, the wall index for wall hits
// and the new current player for turn events.
type Event struct {
	Type   EventType     `json:"type"`
	Ball   BallRole      `json:"ball"`
	Target int           `json:"target"`
	Speed  float64       `json:"speed"`
	Rally  *RallyOutcome `json:"rally,omitempty"`
}

// Step advances the table by dt seconds and threads the match state through
// the frame. Walls respond before ball pairs, and each unordered pair is
// resolved once in index order.
func Step(t *Table, state MatchState, dt float64) (MatchState, []Event) {
	var events []Event

	for _, b := range t.Balls {
		b.Update(dt)
	}

	for wi, w := range t.Walls {
		for _, b := range t.Balls {
			speed := b.Velocity.Magnitude()
			if w.HitBy(b) {
				events = append(events, Event{Type: EventWallHit, Ball: b.Role, Target: wi, Speed: speed})
			}
		}
	}

	for i := 0; i < NumBalls; i++ {
		for j := i + 1; j < NumBalls; j++ {
			a, b := t.Balls[i], t.Balls[j]
			speed := b.Velocity.Minus(a.Velocity).Magnitude()
			if a.HitBy(b) {
				events = append(events, Event{Type: EventBallHit, Ball: a.Role, Target: int(b.Role), Speed: speed})
			}
		}
	}

	for i := 0; i < NumBalls; i++ {
		for j := 0; j < NumBalls; j++ {
			if i == j {
				continue
			}
			if t.Balls[i].Intersects(t.Balls[j]) {
				state.Hit[i] = true
			}
		}
		if t.Balls[i].IsStopped() {
			state.Stopped[i] = true
		}
	}

	// Both axes must exceed the threshold; a shot along an axis never switches.
	active := t.Balls[state.CurrentBall]
	if !state.NewTurn && abs(active.Velocity.X) > StopThreshold && abs(active.Velocity.Z) > StopThreshold {
		state.SwitchTurn()
		events = append(events, Event{Type: EventNewTurn, Ball: state.CurrentBall, Target: int(state.CurrentPlayer)})
	}

	if state.AllStopped() {
		out := state.ResolveRally()
		if out.Counts() {
			events = append(events, Event{Type: EventRallyEnd, Ball: out.Shooter.CueBall(), Target: int(out.Shooter), Rally: &out})
		}
	}

	active = t.Balls[state.CurrentBall]
	if t.Stick.State == StickLaunched {
		t.Stick.Update(dt)
		speed := t.Stick.Velocity.Magnitude()
		if t.Stick.HitBy(active) {
			events = append(events, Event{Type: EventStrike, Ball: active.Role, Speed: speed})
		}
	}
	if t.Stick.State == StickAiming {
		t.Stick.SetTarget(active.Position, t.Marker.Position)
	}

	return state, events
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
