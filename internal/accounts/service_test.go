package accounts

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
	"github.com/gogotex/gogotex/backend/crud-service/internal/config"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/service"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/store"
	"github.com/gogotex/gogotex/backend/crud-service/internal/mailer"
	"github.com/gogotex/gogotex/backend/crud-service/internal/password"
	"github.com/gogotex/gogotex/backend/crud-service/internal/sessions"
	"github.com/gogotex/gogotex/backend/crud-service/internal/tokens"
)

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fixture struct {
	svc       *Service
	signer    *tokens.Signer
	mail      *fakeMailer
	blacklist *sessions.Blacklist
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := mr.RunT(t)
	bl := sessions.NewBlacklist(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	docs := service.NewWithGateway[*Account](store.NewMemoryGateway[*Account]("accounts", UniqueFields...))
	hasher := password.NewHasher(bcrypt.MinCost, regexp.MustCompile(config.DefaultPasswordPattern))
	signer := tokens.NewSigner("test-secret", time.Hour)
	mail := &fakeMailer{}
	return &fixture{
		svc:       NewService(docs, hasher, signer, mail, bl),
		signer:    signer,
		mail:      mail,
		blacklist: bl,
	}
}

func register(t *testing.T, f *fixture) *Account {
	t.Helper()
	acc, err := f.svc.Register(context.Background(), RegisterInput{Name: " Ada ", Email: "Ada@Example.com", Password: "secret123"})
	require.NoError(t, err)
	return acc
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	acc := register(t, f)

	assert.NotEmpty(t, acc.Identifier())
	assert.Equal(t, "Ada", acc.Name)
	assert.Equal(t, "ada@example.com", acc.Email)
	assert.Equal(t, RoleUser, acc.Role)
	assert.NotEqual(t, "secret123", acc.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte("secret123")))

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "ada@example.com", f.mail.sent[0].To)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	f := newFixture(t)
	for _, pw := range []string{"short1", "onlyletters", "12345678"} {
		_, err := f.svc.Register(context.Background(), RegisterInput{Name: "a", Email: "a@b.co", Password: pw})
		require.Error(t, err, pw)
		assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest), pw)
	}
	assert.Empty(t, f.mail.sent)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	register(t, f)

	_, err := f.svc.Register(context.Background(), RegisterInput{Name: "b", Email: "ada@example.com", Password: "secret456"})
	require.Error(t, err)
	rec := apperrors.Translate(err)
	assert.Equal(t, 400, rec.StatusCode)
	assert.Equal(t, "Duplicate value entered for email field!", rec.Message)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errors.New("smtp down")

	acc := register(t, f)
	assert.NotEmpty(t, acc.Identifier())
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	acc := register(t, f)

	sess, err := f.svc.Login(context.Background(), LoginInput{Email: "ADA@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.EqualValues(t, 3600, sess.ExpiresIn)
	assert.Equal(t, acc.Identifier(), sess.Account.Identifier())

	claims, err := f.signer.VerifyToken(sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, acc.Identifier(), claims["sub"])
	assert.Equal(t, "ada@example.com", claims["email"])
	assert.NotEmpty(t, claims["jti"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	register(t, f)

	for _, in := range []LoginInput{
		{Email: "ada@example.com", Password: "wrong1234"},
		{Email: "nobody@example.com", Password: "secret123"},
	} {
		_, err := f.svc.Login(context.Background(), in)
		require.Error(t, err)
		rec := apperrors.Translate(err)
		assert.Equal(t, 401, rec.StatusCode)
		assert.Equal(t, invalidCredentials, rec.Message)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	register(t, f)
	sess, err := f.svc.Login(context.Background(), LoginInput{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)
	claims, err := f.signer.VerifyToken(sess.AccessToken)
	require.NoError(t, err)

	jti := claims["jti"].(string)
	require.NoError(t, f.svc.Logout(context.Background(), claims, jti))

	revoked, err := f.blacklist.IsRevoked(context.Background(), jti)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestLogoutWithoutExpiry(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Logout(context.Background(), map[string]interface{}{"sub": "x"}, "id")
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	acc := register(t, f)

	got, err := f.svc.Me(context.Background(), map[string]interface{}{"sub": acc.Identifier()})
	require.NoError(t, err)
	assert.Equal(t, acc.Email, got.Email)

	_, err = f.svc.Me(context.Background(), map[string]interface{}{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))

	_, err = f.svc.Me(context.Background(), map[string]interface{}{"sub": "000000000000000000000000"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
