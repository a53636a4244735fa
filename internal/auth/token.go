package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// PlayerClaims identifies a seat in one match.
type PlayerClaims struct {
	MatchToken string
	PlayerID   string
	Slot       int
	ExpiresAt  time.Time
}

// IssuePlayerToken signs an HS256 token for a player seat.
func IssuePlayerToken(secret string, ttl time.Duration, matchToken, playerID string, slot int) (string, error) {
	exp := time.Now().Add(ttl)
	claims := jwt.MapClaims{
		"match":  matchToken,
		"player": playerID,
		"slot":   slot,
		"exp":    jwt.NewNumericDate(exp).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParsePlayerToken verifies signature and expiry and extracts the seat.
func ParsePlayerToken(secret, token string) (*PlayerClaims, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	match, _ := claims["match"].(string)
	player, _ := claims["player"].(string)
	slot, _ := claims["slot"].(float64)
	exp, _ := claims["exp"].(float64)
	if match == "" || player == "" || (slot != 1 && slot != 2) {
		return nil, ErrInvalidToken
	}

	return &PlayerClaims{
		MatchToken: match,
		PlayerID:   player,
		Slot:       int(slot),
		ExpiresAt:  time.Unix(int64(exp), 0),
	}, nil
}
