package game

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/carom/internal/carom"
	"github.com/playmatatu/carom/internal/models"
)

var ErrPlayerNotFound = errors.New("player not found")

// Store persists players, match sessions and rallies. Queries are written with
// ? placeholders and rebound, so the same SQL runs on PostgreSQL and SQLite.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// CreatePlayer adds a player row for one seat. Display names are not
// identities, so two seats with the same name get separate rows.
func (s *Store) CreatePlayer(ctx context.Context, name string) (*models.Player, error) {
	var id int
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`
		INSERT INTO players (display_name, last_active)
		VALUES (?, CURRENT_TIMESTAMP)
		RETURNING id
	`), name).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create player %q: %w", name, err)
	}
	return s.GetPlayer(ctx, id)
}

func (s *Store) GetPlayer(ctx context.Context, id int) (*models.Player, error) {
	var p models.Player
	err := s.db.GetContext(ctx, &p, s.db.Rebind(`SELECT * FROM players WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player %d: %w", id, err)
	}
	return &p, nil
}

// CreateSession records a new WAITING match.
func (s *Store) CreateSession(ctx context.Context, token string, player1ID int, private bool, expiry time.Time) (int, error) {
	var id int
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`
		INSERT INTO match_sessions (match_token, player1_id, status, private, score1, score2, expiry_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), token, player1ID, string(StatusWaiting), private, carom.StartingScore, carom.StartingScore, expiry.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// StartSession seats player 2 and marks the match in progress.
func (s *Store) StartSession(ctx context.Context, sessionID, player2ID int) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE match_sessions SET player2_id = ?, status = ?, started_at = CURRENT_TIMESTAMP WHERE id = ?
	`), player2ID, string(StatusInProgress), sessionID)
	if err != nil {
		return fmt.Errorf("start session %d: %w", sessionID, err)
	}
	return nil
}

// RecordRally stores one resolved rally, refreshes the running score and
// updates the shooter's tallies in a single transaction.
func (s *Store) RecordRally(ctx context.Context, sessionID, shooterID int, r RallyRecord, score1, score2 int) error {
	hits, err := json.Marshal(r.Hit)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var shooter sql.NullInt64
	if shooterID > 0 {
		shooter = sql.NullInt64{Int64: int64(shooterID), Valid: true}
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO rallies (session_id, rally_number, shooter_slot, shooter_id, kind, delta, score1, score2, hits)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), sessionID, r.Number, int(r.Shooter), shooter, string(r.Kind), r.Delta, score1, score2, string(hits)); err != nil {
		return fmt.Errorf("insert rally: %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE match_sessions SET rally_count = ?, score1 = ?, score2 = ? WHERE id = ?
	`), r.Number, score1, score2, sessionID); err != nil {
		return fmt.Errorf("update session score: %w", err)
	}

	if shooterID > 0 {
		var scored, fouls, misses int
		switch r.Kind {
		case carom.RallyScore:
			scored = 1
		case carom.RallyFoul:
			fouls = 1
		case carom.RallyMiss:
			misses = 1
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			UPDATE players SET rallies_scored = rallies_scored + ?, fouls = fouls + ?, misses = misses + ?, last_active = CURRENT_TIMESTAMP
			WHERE id = ?
		`), scored, fouls, misses, shooterID); err != nil {
			return fmt.Errorf("update player tallies: %w", err)
		}
	}

	return tx.Commit()
}

// SessionResult is the final state of a match written by FinishSession.
type SessionResult struct {
	Status     MatchStatus
	WinnerID   int
	LoserID    int
	WinType    string
	Score1     int
	Score2     int
	RallyCount int
}

// FinishSession closes a session and credits both players with the match.
func (s *Store) FinishSession(ctx context.Context, sessionID int, res SessionResult) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var winner sql.NullInt64
	if res.WinnerID > 0 {
		winner = sql.NullInt64{Int64: int64(res.WinnerID), Valid: true}
	}
	var winType sql.NullString
	if res.WinType != "" {
		winType = sql.NullString{String: res.WinType, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE match_sessions
		SET status = ?, winner_id = ?, win_type = ?, score1 = ?, score2 = ?, rally_count = ?, completed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`), string(res.Status), winner, winType, res.Score1, res.Score2, res.RallyCount, sessionID); err != nil {
		return fmt.Errorf("finish session %d: %w", sessionID, err)
	}

	if res.Status == StatusCompleted {
		for i, id := range []int{res.WinnerID, res.LoserID} {
			// a row is credited once even if both seats resolve to it
			if id <= 0 || (i == 1 && id == res.WinnerID) {
				continue
			}
			won := 0
			if id == res.WinnerID {
				won = 1
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(`
				UPDATE players SET matches_played = matches_played + 1, matches_won = matches_won + ? WHERE id = ?
			`), won, id); err != nil {
				return fmt.Errorf("update player %d stats: %w", id, err)
			}
		}
	}

	return tx.Commit()
}

func (s *Store) GetSession(ctx context.Context, token string) (*models.MatchSession, error) {
	var ms models.MatchSession
	err := s.db.GetContext(ctx, &ms, s.db.Rebind(`SELECT * FROM match_sessions WHERE match_token = ?`), token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &ms, nil
}

func (s *Store) ListRallies(ctx context.Context, sessionID int) ([]models.Rally, error) {
	var rallies []models.Rally
	err := s.db.SelectContext(ctx, &rallies, s.db.Rebind(`
		SELECT * FROM rallies WHERE session_id = ? ORDER BY rally_number
	`), sessionID)
	if err != nil {
		return nil, fmt.Errorf("list rallies: %w", err)
	}
	return rallies, nil
}

// Leaderboard ranks players by wins, then by scoring rallies.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	entries := []models.LeaderboardEntry{}
	err := s.db.SelectContext(ctx, &entries, s.db.Rebind(`
		SELECT id, display_name, matches_played, matches_won, rallies_scored
		FROM players
		WHERE matches_played > 0
		ORDER BY matches_won DESC, rallies_scored DESC, display_name, id
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return entries, nil
}
