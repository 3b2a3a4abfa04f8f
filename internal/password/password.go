// Package password hashes and checks account passwords with bcrypt.
package password

import (
	"errors"
	"regexp"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
)

// Hasher is safe for concurrent use.
type Hasher struct {
	cost    int
	pattern *regexp.Regexp
}

// NewHasher returns a hasher using bcrypt cost (clamped to bcrypt's range)
// and the accepted password pattern.
func NewHasher(cost int, pattern *regexp.Regexp) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost, pattern: pattern}
}

// Hash returns the bcrypt hash of pw. Failures are BadRequest.
func (h *Hasher) Hash(pw string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(pw), h.cost)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindBadRequest, err.Error(), err)
	}
	return string(out), nil
}

// Compare reports whether pw matches hash. Missing input and corrupt
// hashes are Unauthorized failures; a plain mismatch is false.
func (h *Hasher) Compare(pw, hash string) (bool, error) {
	if pw == "" || hash == "" {
		return false, apperrors.Unauthorized("Enter value properly")
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, apperrors.Wrap(apperrors.KindUnauthorized, err.Error(), err)
	}
}

// CheckPattern reports whether pw has the accepted shape: it must match
// the configured pattern and contain at least one letter and one digit.
func (h *Hasher) CheckPattern(pw string) bool {
	if h.pattern != nil && !h.pattern.MatchString(pw) {
		return false
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}
