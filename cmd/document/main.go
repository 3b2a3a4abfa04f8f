// Command document serves one schema-less resource without accounts.
// DOC_SERVICE_PORT and DOC_RESOURCE override the listen port and the
// collection name.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogotex/gogotex/backend/crud-service/internal/config"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud"
	"github.com/gogotex/gogotex/backend/crud-service/internal/database"
	"github.com/gogotex/gogotex/backend/crud-service/internal/server"
	"github.com/gogotex/gogotex/backend/crud-service/pkg/logger"
	"github.com/gogotex/gogotex/backend/crud-service/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)

	cfg.Server.Port = envOr("DOC_SERVICE_PORT", "5010")
	resource := envOr("DOC_RESOURCE", "documents")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := server.OpenStore(ctx, cfg, database.ConnectMongo)
	if err != nil {
		logger.Fatalf("document store: %v", err)
	}
	defer func() { _ = st.Close(context.Background()) }()

	docs, err := server.Collection[crud.Record](ctx, st, resource)
	if err != nil {
		logger.Fatalf("%s collection: %v", resource, err)
	}
	rdb := server.OpenRedis(ctx, cfg.Redis)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r := server.NewRouter(server.Deps{Config: cfg, Redis: rdb, Resource: resource, Records: docs, Ping: st.Ping})

	logger.WithTag("APP").Infof("serving /api/v1/%s (memory=%v)", resource, st.Memory())
	if err := server.Serve(ctx, cfg.Server, r); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
