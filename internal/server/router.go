// Package server assembles the HTTP router: ambient middleware, the
// operational endpoints and every mounted resource.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/gogotex/gogotex/backend/crud-service/handlers"
	"github.com/gogotex/gogotex/backend/crud-service/internal/accounts"
	"github.com/gogotex/gogotex/backend/crud-service/internal/config"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/handler"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/service"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/store"
	"github.com/gogotex/gogotex/backend/crud-service/internal/sessions"
	"github.com/gogotex/gogotex/backend/crud-service/internal/tokens"
	"github.com/gogotex/gogotex/backend/crud-service/pkg/middleware"
)

const (
	APIPrefix = "/api/v1"
	Banner    = "CRUD Template: a generic document API. See /api-docs for the routes."
)

// Deps are the collaborators the router needs. Redis, Accounts and Ping
// are optional.
type Deps struct {
	Config *config.Config
	Redis  *redis.Client

	// Resource names the schema-less collection served at /api/v1/<Resource>.
	Resource string
	Records  store.Gateway[crud.Record]

	Accounts  *accounts.Service
	Signer    *tokens.Signer
	Blacklist *sessions.Blacklist

	// Ping checks the document store for /ready.
	Ping func(ctx context.Context) error
}

// NewRouter returns the configured engine.
func NewRouter(d Deps) *gin.Engine {
	started := time.Now()
	eh := middleware.NewErrorHandler()

	r := gin.New()
	r.Use(eh.Recovery(), middleware.RequestID(), middleware.RequestLogger(), middleware.CORS(), eh.Middleware())
	if limit := rateLimiter(d); limit != nil {
		r.Use(limit)
	}

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, Banner)
	})
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(d, started))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	resource := d.Resource
	if resource == "" {
		resource = "records"
	}
	api := r.Group(APIPrefix)
	svc := service.NewWithGateway(d.Records)
	handler.Register(api, "/"+resource, handler.New(resource, svc, eh))

	doc := handlers.APIDoc{Title: "CRUD Template", Version: "v1", Resources: []string{APIPrefix + "/" + resource}}
	if d.Accounts != nil {
		guard := []gin.HandlerFunc{middleware.AuthMiddleware(d.Signer, d.Blacklist)}
		// A second limiter behind auth buckets callers by subject.
		if limit := rateLimiter(d); limit != nil {
			guard = append(guard, limit)
		}
		accounts.RegisterRoutes(api, accounts.NewHandler(d.Accounts, eh), guard...)
		doc.Resources = append(doc.Resources, APIPrefix+"/accounts")
		doc.Auth = true
	}
	handlers.RegisterSwagger(r, doc)

	r.NoRoute(eh.RouteNotExist)
	return r
}

// rateLimiter returns the configured limiter, or nil when rate limiting is
// off. Each call has its own buckets.
func rateLimiter(d Deps) gin.HandlerFunc {
	rl := d.Config.RateLimit
	if !rl.Enabled {
		return nil
	}
	if rl.UseRedis && d.Redis != nil {
		return middleware.RedisRateLimitMiddleware(d.Redis, rl.RPS, rl.Burst, rl.Window)
	}
	return middleware.RateLimitMiddleware(rl.RPS, rl.Burst)
}

// readiness reports 200 only when the document store and, when configured,
// Redis answer a ping.
func readiness(d Deps, started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ready := true
		deps := map[string]bool{"store": true}
		if d.Ping != nil {
			if err := d.Ping(ctx); err != nil {
				deps["store"] = false
				ready = false
			}
		}
		if d.Redis != nil {
			deps["redis"] = d.Redis.Ping(ctx).Err() == nil
			if !deps["redis"] {
				ready = false
			}
		}

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(started).String()})
	}
}
