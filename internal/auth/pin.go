package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadPINFormat = errors.New("PIN must be 4 to 8 digits")

// ValidatePIN accepts short numeric PINs only.
func ValidatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 8 {
		return ErrBadPINFormat
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrBadPINFormat
		}
	}
	return nil
}

// HashPIN returns the bcrypt hash of a private match PIN.
func HashPIN(pin string) (string, error) {
	if err := ValidatePIN(pin); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPIN reports whether pin matches hash. An empty hash means the match is public.
func CheckPIN(hash, pin string) bool {
	if hash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
