package carom

// Player identifies one of the two seats.
type Player int

const (
	Player1 Player = 1
	Player2 Player = 2
)

func (p Player) Opponent() Player {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// CueBall is the ball the player strikes.
func (p Player) CueBall() BallRole {
	if p == Player2 {
		return Yellow
	}
	return White
}

// PenaltyBall is the opponent's cue ball; touching it costs points.
func (p Player) PenaltyBall() BallRole {
	return p.Opponent().CueBall()
}

// MatchState is the turn and score bookkeeping threaded through every Step.
type MatchState struct {
	CurrentPlayer Player         `json:"current_player"`
	CurrentBall   BallRole       `json:"current_ball"`
	Score1        int            `json:"score1"`
	Score2        int            `json:"score2"`
	Hit           [NumBalls]bool `json:"hit"`
	Stopped       [NumBalls]bool `json:"stopped"`
	NewTurn       bool           `json:"new_turn"`
}

// NewMatchState starts player 1 on the white ball with both scores at 50.
func NewMatchState() MatchState {
	return MatchState{
		CurrentPlayer: Player1,
		CurrentBall:   White,
		Score1:        StartingScore,
		Score2:        StartingScore,
	}
}

func (s MatchState) Score(p Player) int {
	if p == Player2 {
		return s.Score2
	}
	return s.Score1
}

func (s *MatchState) setScore(p Player, v int) {
	if p == Player2 {
		s.Score2 = v
		return
	}
	s.Score1 = v
}

// AllStopped reports whether every ball has been seen at rest since the last
// resolution.
func (s MatchState) AllStopped() bool {
	for _, stopped := range s.Stopped {
		if !stopped {
			return false
		}
	}
	return true
}

// SwitchTurn hands the table to the other player.
func (s *MatchState) SwitchTurn() {
	s.CurrentPlayer = s.CurrentPlayer.Opponent()
	s.CurrentBall = s.CurrentPlayer.CueBall()
	s.NewTurn = true
}

// RallyKind classifies a resolved rally.
type RallyKind string

const (
	RallyMiss    RallyKind = "miss"
	RallyFoul    RallyKind = "foul"
	RallyScore   RallyKind = "score"
	RallyNeutral RallyKind = "neutral"
)

// RallyOutcome is the result of resolving a fully stopped table.
type RallyOutcome struct {
	Shooter Player         `json:"shooter"`
	Kind    RallyKind      `json:"kind"`
	Delta   int            `json:"delta"`
	Score   int            `json:"score"`
	NewTurn bool           `json:"new_turn"`
	Hit     [NumBalls]bool `json:"hit"`
}

// Counts reports whether the outcome belongs to a real shot rather than an idle
// frame in which nothing moved.
func (o RallyOutcome) Counts() bool {
	return o.NewTurn || o.Kind != RallyNeutral
}

// EvaluateRally applies the scoring table for shooter. The miss branch only
// checks the reds and the penalty ball, never the shooter's own ball.
func EvaluateRally(hit [NumBalls]bool, shooter Player, newTurn bool) (RallyKind, int) {
	penalty := shooter.PenaltyBall()
	switch {
	case !hit[Red0] && !hit[Red1] && !hit[penalty] && newTurn:
		return RallyMiss, -RallyPoints
	case hit[penalty]:
		return RallyFoul, -RallyPoints
	case hit[Red0] && hit[Red1]:
		return RallyScore, RallyPoints
	}
	return RallyNeutral, 0
}

// ResolveRally scores the player who just shot (the one not on turn) and clears
// the per-rally flags. The zero floor on a scoring rally applies to the
// shooter's own score for either seat; the opponent's score is never touched.
func (s *MatchState) ResolveRally() RallyOutcome {
	shooter := s.CurrentPlayer.Opponent()
	kind, delta := EvaluateRally(s.Hit, shooter, s.NewTurn)

	score := s.Score(shooter) + delta
	if kind == RallyScore && score < 0 {
		score = 0
	}
	s.setScore(shooter, score)

	out := RallyOutcome{
		Shooter: shooter,
		Kind:    kind,
		Delta:   delta,
		Score:   score,
		NewTurn: s.NewTurn,
		Hit:     s.Hit,
	}

	s.Hit = [NumBalls]bool{}
	s.Stopped = [NumBalls]bool{}
	s.NewTurn = false
	return out
}
