package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gogotex/gogotex/backend/crud-service/internal/config"
	"github.com/gogotex/gogotex/backend/crud-service/internal/crud/store"
	"github.com/gogotex/gogotex/backend/crud-service/internal/database"
	"github.com/gogotex/gogotex/backend/crud-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Store is the opened document store. A Store without a database keeps
// every collection in memory.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenStore connects to MongoDB with retries. Without a URI, or when the
// connection fails outside production, the in-memory store is used.
func OpenStore(ctx context.Context, cfg *config.Config, connect database.Connector) (*Store, error) {
	if cfg.MongoDB.URI == "" {
		return &Store{}, nil
	}
	client, err := database.ConnectWithRetry(ctx, connect, cfg.MongoDB.URI, cfg.MongoDB.Timeout, cfg.MongoDB.ConnectAttempts, time.Second)
	if err != nil {
		if cfg.Server.Environment == "production" {
			return nil, err
		}
		logger.WithTag("MongoDb").Warnf("%v; using in-memory store", err)
		return &Store{}, nil
	}
	return &Store{client: client, db: client.Database(cfg.MongoDB.Database)}, nil
}

// Memory reports whether collections live in process memory.
func (s *Store) Memory() bool { return s.db == nil }

func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// Collection returns the gateway for collection name and makes sure its
// unique indexes exist.
func Collection[T any](ctx context.Context, s *Store, name string, unique ...string) (store.Gateway[T], error) {
	if s.db == nil {
		return store.NewMemoryGateway[T](name, unique...), nil
	}
	gw := store.NewMongoGateway[T](s.db.Collection(name))
	if err := gw.EnsureIndexes(ctx, unique...); err != nil {
		return nil, err
	}
	return gw, nil
}

// OpenRedis returns a connected client, or nil when Redis is not
// configured or does not answer.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled() {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithTag("Redis").Warnf("failed to connect to Redis (%s): %v", cfg.Addr(), err)
		_ = client.Close()
		return nil
	}
	logger.WithTag("Redis").Infof("connected to %s", cfg.Addr())
	return client
}

// Serve runs h on cfg.Addr() until ctx is cancelled, then drains open
// requests.
func Serve(ctx context.Context, cfg config.ServerConfig, h http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		logger.WithTag("APP").Infof("listening on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.WithTag("APP").Infof("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
