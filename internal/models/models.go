package models

import (
	"database/sql"
	"time"
)

// Player is a named participant. Guests get a row the first time they play.
type Player struct {
	ID            int          `db:"id" json:"id"`
	DisplayName   string       `db:"display_name" json:"display_name"`
	MatchesPlayed int          `db:"matches_played" json:"matches_played"`
	MatchesWon    int          `db:"matches_won" json:"matches_won"`
	RalliesScored int          `db:"rallies_scored" json:"rallies_scored"`
	Fouls         int          `db:"fouls" json:"fouls"`
	Misses        int          `db:"misses" json:"misses"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	LastActive    sql.NullTime `db:"last_active" json:"last_active,omitempty"`
}

// MatchSession represents a match between two players
type MatchSession struct {
	ID          int            `db:"id" json:"id"`
	MatchToken  string         `db:"match_token" json:"match_token"`
	Player1ID   int            `db:"player1_id" json:"player1_id"`
	Player2ID   sql.NullInt64  `db:"player2_id" json:"player2_id,omitempty"`
	Status      string         `db:"status" json:"status"`
	WinnerID    sql.NullInt64  `db:"winner_id" json:"winner_id,omitempty"`
	WinType     sql.NullString `db:"win_type" json:"win_type,omitempty"`
	Score1      int            `db:"score1" json:"score1"`
	Score2      int            `db:"score2" json:"score2"`
	RallyCount  int            `db:"rally_count" json:"rally_count"`
	Private     bool           `db:"private" json:"private"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	StartedAt   sql.NullTime   `db:"started_at" json:"started_at,omitempty"`
	CompletedAt sql.NullTime   `db:"completed_at" json:"completed_at,omitempty"`
	ExpiryTime  time.Time      `db:"expiry_time" json:"expiry_time"`
}

// Rally is one resolved shot. Hits holds the JSON-encoded touched-ball flags.
type Rally struct {
	ID          int           `db:"id" json:"id"`
	SessionID   int           `db:"session_id" json:"session_id"`
	RallyNumber int           `db:"rally_number" json:"rally_number"`
	ShooterSlot int           `db:"shooter_slot" json:"shooter_slot"`
	ShooterID   sql.NullInt64 `db:"shooter_id" json:"shooter_id,omitempty"`
	Kind        string        `db:"kind" json:"kind"`
	Delta       int           `db:"delta" json:"delta"`
	Score1      int           `db:"score1" json:"score1"`
	Score2      int           `db:"score2" json:"score2"`
	Hits        string        `db:"hits" json:"hits"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}

// LeaderboardEntry is a ranked row of the leaderboard
type LeaderboardEntry struct {
	PlayerID      int    `db:"id" json:"player_id"`
	DisplayName   string `db:"display_name" json:"display_name"`
	MatchesPlayed int    `db:"matches_played" json:"matches_played"`
	MatchesWon    int    `db:"matches_won" json:"matches_won"`
	RalliesScored int    `db:"rallies_scored" json:"rallies_scored"`
}
