package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/service"
	"github.com/gogotex/gogotex/backend/crud-service/internal/mailer"
	"github.com/gogotex/gogotex/backend/crud-service/internal/password"
	"github.com/gogotex/gogotex/backend/crud-service/internal/tokens"
	"github.com/gogotex/gogotex/backend/crud-service/pkg/logger"
)

const invalidCredentials = "Invalid credentials"

// Revoker blacklists a token id until it expires. *sessions.Blacklist
// satisfies it.
type Revoker interface {
	Revoke(ctx context.Context, id string, expiresAt time.Time) error
}

// RegisterInput is the body of a registration request.
type RegisterInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginInput is the body of a login request.
type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Session is the outcome of a successful login.
type Session struct {
	AccessToken string
	ExpiresIn   int64
	Account     *Account
}

type Service struct {
	docs    *service.Service[*Account]
	hasher  *password.Hasher
	signer  *tokens.Signer
	mail    mailer.Mailer
	revoker Revoker
}

// NewService wires the account flows. mail and revoker may be nil.
func NewService(docs *service.Service[*Account], hasher *password.Hasher, signer *tokens.Signer, mail mailer.Mailer, revoker Revoker) *Service {
	return &Service{docs: docs, hasher: hasher, signer: signer, mail: mail, revoker: revoker}
}

// Documents exposes the generic document service behind the accounts.
func (s *Service) Documents() *service.Service[*Account] { return s.docs }

// Register creates an account with a hashed password and sends a welcome
// mail. A failed mail does not fail the registration.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	if !s.hasher.CheckPattern(in.Password) {
		return nil, apperrors.BadRequest("Password must be at least 8 characters long and contain a letter and a number")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	acc := &Account{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         RoleUser,
	}
	created, err := s.docs.CreateDocument(ctx, acc)
	if err != nil {
		return nil, err
	}
	s.welcome(ctx, created)
	return created, nil
}

func (s *Service) welcome(ctx context.Context, acc *Account) {
	if s.mail == nil {
		return
	}
	msg := mailer.Message{
		To:      acc.Email,
		Subject: "Welcome",
		Body:    fmt.Sprintf("<p>Hello %s,</p><p>your account has been created.</p>", acc.Name),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		logger.WithTag("Accounts").WithError(err).Warnf("welcome mail to %s failed", acc.Email)
	}
}

// Login checks the credentials and issues an access token. Unknown emails
// and wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	acc, err := s.docs.GetDocument(ctx, crud.ByFilter(crud.Filter{"email": normalizeEmail(in.Email)}))
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.Unauthorized(invalidCredentials)
		}
		return nil, err
	}
	ok, err := s.hasher.Compare(in.Password, acc.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.Unauthorized(invalidCredentials)
	}
	token, err := s.signer.CreateToken(map[string]interface{}{
		"sub":   acc.Identifier(),
		"email": acc.Email,
		"role":  acc.Role,
	})
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: token, ExpiresIn: int64(s.signer.TTL().Seconds()), Account: acc}, nil
}

// Logout revokes the token identified by id until its exp claim.
func (s *Service) Logout(ctx context.Context, claims map[string]interface{}, id string) error {
	if s.revoker == nil {
		return nil
	}
	exp, err := tokens.ExpiresAt(claims)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnauthorized, "Invalid token", err)
	}
	if err := s.revoker.Revoke(ctx, id, exp); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Me returns the account named by the sub claim.
func (s *Service) Me(ctx context.Context, claims map[string]interface{}) (*Account, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, apperrors.Unauthorized("Invalid token")
	}
	return s.docs.GetDocumentByID(ctx, sub)
}
