package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gogotex/gogotex/backend/crud-service/internal/accounts"
	"github.com/gogotex/gogotex/backend/crud-service/internal/config"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/service"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/store"
	"github.com/gogotex/gogotex/backend/crud-service/internal/mailer"
	"github.com/gogotex/gogotex/backend/crud-service/internal/password"
	"github.com/gogotex/gogotex/backend/crud-service/internal/sessions"
	"github.com/gogotex/gogotex/backend/crud-service/internal/tokens"
)

func testDeps(t *testing.T) (Deps, *mr.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := mr.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	signer := tokens.NewSigner("router-secret", time.Hour)
	bl := sessions.NewBlacklist(client)
	accountDocs := service.NewWithGateway[*accounts.Account](store.NewMemoryGateway[*accounts.Account]("accounts", accounts.UniqueFields...))
	hasher := password.NewHasher(bcrypt.MinCost, regexp.MustCompile(config.DefaultPasswordPattern))

	return Deps{
		Config:    &config.Config{},
		Redis:     client,
		Records:   store.NewMemoryGateway[crud.Record]("records"),
		Accounts:  accounts.NewService(accountDocs, hasher, signer, mailer.LogMailer{}, bl),
		Signer:    signer,
		Blacklist: bl,
	}, m
}

func send(t *testing.T, r http.Handler, method, path, body string, header ...string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	out := map[string]interface{}{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestOperationalEndpoints(t *testing.T) {
	d, _ := testDeps(t)
	r := NewRouter(d)

	w, _ := send(t, r, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, Banner, w.Body.String())

	w, _ = send(t, r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, out := send(t, r, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", out["status"])

	w, _ = send(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = send(t, r, http.MethodGet, "/api-docs/doc.json", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/records/{id}")
	assert.Contains(t, w.Body.String(), "/api/v1/accounts")

	w, _ = send(t, r, http.MethodOptions, "/api/v1/records", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestReadinessFailures(t *testing.T) {
	d, m := testDeps(t)
	d.Ping = func(ctx context.Context) error { return errors.New("store down") }
	r := NewRouter(d)

	w, out := send(t, r, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", out["status"])
	assert.Equal(t, false, out["deps"].(map[string]interface{})["store"])

	d.Ping = nil
	m.Close()
	w, out = send(t, NewRouter(d), http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, false, out["deps"].(map[string]interface{})["redis"])
}

func TestRouteNotExist(t *testing.T) {
	d, _ := testDeps(t)
	r := NewRouter(d)

	w, out := send(t, r, http.MethodGet, "/nope?x=1", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RouteNotExist", out["name"])
	assert.Equal(t, "GET /nope?x=1 doesn't exist!", out["message"])
}

func TestRecordLifecycle(t *testing.T) {
	d, _ := testDeps(t)
	r := NewRouter(d)

	w, out := send(t, r, http.MethodPost, "/api/v1/records", `{"data":{"title":"first","tags":["a","b"]}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	id := out["data"].(map[string]interface{})["_id"].(string)

	w, out = send(t, r, http.MethodGet, "/api/v1/records?tags=a", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, out["count"])

	w, _ = send(t, r, http.MethodPut, "/api/v1/records/"+id, `{"data":{"title":"second"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, out = send(t, r, http.MethodPut, "/api/v1/records/"+id, `{"data":{"title":"second"}}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Unable to update document!", out["message"])

	w, out = send(t, r, http.MethodPatch, "/api/v1/records/"+id, `{"data":{"$inc":{"views":1}}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, out["data"].(map[string]interface{})["views"])

	w, out = send(t, r, http.MethodGet, "/api/v1/records/not-an-id", "")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Id is invalid!", out["message"])

	w, _ = send(t, r, http.MethodDelete, "/api/v1/records/"+id, "")
	require.Equal(t, http.StatusGone, w.Code)

	w, out = send(t, r, http.MethodGet, "/api/v1/records/"+id, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No document found with ID "+id, out["message"])
}

func TestAuthenticatedAccounts(t *testing.T) {
	d, _ := testDeps(t)
	r := NewRouter(d)

	w, out := send(t, r, http.MethodPost, "/api/v1/auth/register", `{"name":"Ada","email":"ada@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := out["data"].(map[string]interface{})["_id"].(string)

	w, out = send(t, r, http.MethodPost, "/api/v1/auth/login", `{"email":"ada@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	token := out["accessToken"].(string)

	w, _ = send(t, r, http.MethodGet, "/api/v1/accounts", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, out = send(t, r, http.MethodGet, "/api/v1/accounts", "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", out["name"])

	w, out = send(t, r, http.MethodGet, "/api/v1/accounts/"+id, "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ada@example.com", out["data"].(map[string]interface{})["email"])
}

func TestRateLimitedBySubjectAfterAuth(t *testing.T) {
	d, _ := testDeps(t)
	d.Config.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2}
	r := NewRouter(d)
	from := func(ip string) []string { return []string{"X-Forwarded-For", ip} }

	w, _ := send(t, r, http.MethodPost, "/api/v1/auth/register", `{"name":"Ada","email":"ada@example.com","password":"secret123"}`, from("10.0.0.1")...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, out := send(t, r, http.MethodPost, "/api/v1/auth/login", `{"email":"ada@example.com","password":"secret123"}`, from("10.0.0.2")...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	bearer := "Bearer " + out["accessToken"].(string)

	// Every request comes from a fresh address; only the subject repeats.
	for i, ip := range []string{"10.0.0.3", "10.0.0.4"} {
		w, _ = send(t, r, http.MethodGet, "/api/v1/auth/me", "", "Authorization", bearer, "X-Forwarded-For", ip)
		require.Equal(t, http.StatusOK, w.Code, i)
	}
	w, out = send(t, r, http.MethodGet, "/api/v1/auth/me", "", "Authorization", bearer, "X-Forwarded-For", "10.0.0.5")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Rate limit exceeded", out["message"])
}

func TestRateLimitedRouter(t *testing.T) {
	d, _ := testDeps(t)
	d.Config.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	r := NewRouter(d)

	w, _ := send(t, r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	w, out := send(t, r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Rate limit exceeded", out["message"])
}

func TestRedisRateLimitedRouter(t *testing.T) {
	d, _ := testDeps(t)
	d.Config.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0, Burst: 2, UseRedis: true, Window: time.Minute}
	r := NewRouter(d)

	for i := 0; i < 2; i++ {
		w, _ := send(t, r, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, _ := send(t, r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}
