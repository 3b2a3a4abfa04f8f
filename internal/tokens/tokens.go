package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
)

// Signer issues and verifies HS256 access tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is the lifetime given to new tokens.
func (s *Signer) TTL() time.Duration { return s.ttl }

// CreateToken signs claims, adding iat, exp and a unique jti. Signing
// failures are reported as BadRequest.
func (s *Signer) CreateToken(claims map[string]interface{}) (string, error) {
	if len(s.secret) == 0 {
		return "", apperrors.BadRequest("token secret is not configured")
	}
	now := s.now()
	mc := jwt.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	mc["iat"] = now.Unix()
	mc["exp"] = now.Add(s.ttl).Unix()
	mc["jti"] = uuid.NewString()
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	signed, err := jt.SignedString(s.secret)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindBadRequest, err.Error(), err)
	}
	return signed, nil
}

// VerifyToken checks the signature and expiry of raw and returns its
// claims. Any failure is reported as Forbidden.
func (s *Signer) VerifyToken(raw string) (map[string]interface{}, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindForbidden, err.Error(), err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, apperrors.Forbidden("invalid token")
	}
	return claims, nil
}

// ExpiresAt reads the exp claim.
func ExpiresAt(claims map[string]interface{}) (time.Time, error) {
	exp, err := jwt.MapClaims(claims).GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return exp.Time, nil
}
