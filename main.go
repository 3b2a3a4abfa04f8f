package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogotex/gogotex/backend/crud-service/internal/accounts"
	"github.com/gogotex/gogotex/backend/crud-service/internal/config"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/service"
	"github.com/gogotex/gogotex/backend/crud-service/internal/database"
	"github.com/gogotex/gogotex/backend/crud-service/internal/mailer"
	"github.com/gogotex/gogotex/backend/crud-service/internal/password"
	"github.com/gogotex/gogotex/backend/crud-service/internal/server"
	"github.com/gogotex/gogotex/backend/crud-service/internal/sessions"
	"github.com/gogotex/gogotex/backend/crud-service/internal/tokens"
	"github.com/gogotex/gogotex/backend/crud-service/pkg/logger"
	"github.com/gogotex/gogotex/backend/crud-service/pkg/metrics"
)

func main() {
	// LOG_LEVEL is read again by LoadConfig; initialise early so config warnings are visible
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := logger.WithTag("APP")
	log.Infof("config loaded: mongo=%v redis=%v mailer=%v ratelimit=%v",
		cfg.MongoDB.URI != "", cfg.Redis.Enabled(), cfg.Mailer.Enabled(), cfg.RateLimit.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := server.OpenStore(ctx, cfg, database.ConnectMongo)
	if err != nil {
		logger.Fatalf("document store: %v", err)
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = st.Close(cctx)
	}()
	if st.Memory() {
		log.Warnf("documents are kept in memory and lost on restart")
	}

	records, err := server.Collection[crud.Record](ctx, st, "records")
	if err != nil {
		logger.Fatalf("records collection: %v", err)
	}
	accountDocs, err := server.Collection[*accounts.Account](ctx, st, "accounts", accounts.UniqueFields...)
	if err != nil {
		logger.Fatalf("accounts collection: %v", err)
	}

	rdb := server.OpenRedis(ctx, cfg.Redis)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	var mail mailer.Mailer = mailer.LogMailer{}
	if cfg.Mailer.Enabled() {
		mail = mailer.NewSMTPMailer(cfg.Mailer)
	}
	signer := tokens.NewSigner(cfg.JWT.Secret, cfg.JWT.TokenTTL)
	blacklist := sessions.NewBlacklist(rdb)
	hasher := password.NewHasher(cfg.Password.BcryptCost, cfg.Password.Pattern)
	accountSvc := accounts.NewService(service.NewWithGateway(accountDocs), hasher, signer, mail, blacklist)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	r := server.NewRouter(server.Deps{
		Config:    cfg,
		Redis:     rdb,
		Resource:  "records",
		Records:   records,
		Accounts:  accountSvc,
		Signer:    signer,
		Blacklist: blacklist,
		Ping:      st.Ping,
	})

	if err := server.Serve(ctx, cfg.Server, r); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}
