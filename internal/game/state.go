package game

// MatchStatus represents the current state of the match
type MatchStatus string

const (
	StatusWaiting    MatchStatus = "WAITING"
	StatusInProgress MatchStatus = "IN_PROGRESS"
	StatusCompleted  MatchStatus = "COMPLETED"
	StatusCancelled  MatchStatus = "CANCELLED"
)

// How a completed match was decided.
const (
	WinByScore   = "score"
	WinByConcede = "concede"
	WinByIdle    = "idle"
	WinByForfeit = "forfeit"
)
