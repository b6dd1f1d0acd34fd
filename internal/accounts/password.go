// Package accounts holds credential rules shared by every account table.
package accounts

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/pharmalink-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pharmalink-backend/pkg/errors"
	"github.com/angelmondragon/pharmalink-backend/pkg/security"
)

const currentPasswordIncorrect = "Current password is incorrect"

// ReplacePassword checks current against storedHash and returns the hash of next.
func ReplacePassword(current, next, storedHash string, cfg config.PasswordConfig) (string, error) {
	if current == "" || next == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Both current and new password are required")
	}
	if err := security.ValidatePassword(next, cfg); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("New password must be at least %d characters", minLength(cfg)))
	}
	ok, err := security.VerifyPassword(current, storedHash)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, currentPasswordIncorrect)
	}
	hash, err := security.HashPassword(next, cfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	return hash, nil
}

// NormalizeUsername trims surrounding whitespace. Usernames stay case sensitive.
func NormalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

// ActivationVerb renders the past tense used in activation messages.
func ActivationVerb(active bool) string {
	if active {
		return "activated"
	}
	return "deactivated"
}

func minLength(cfg config.PasswordConfig) int {
	if cfg.MinLength <= 0 {
		return 6
	}
	return cfg.MinLength
}
