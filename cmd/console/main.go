// Command console serves the DarziFlow admin console.
//
// @title        DarziFlow Console API
// @version      1.0
// @description  Session endpoints of the DarziFlow admin console.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/darziflow/console/internal/api"
	"github.com/darziflow/console/internal/api/middleware"
	"github.com/darziflow/console/internal/api/views"
	"github.com/darziflow/console/internal/core/ports"
	"github.com/darziflow/console/internal/core/service"
	"github.com/darziflow/console/internal/infrastructure/apiclient"
	"github.com/darziflow/console/internal/infrastructure/config"
	mongodb "github.com/darziflow/console/internal/infrastructure/db/mongo"
	redisdb "github.com/darziflow/console/internal/infrastructure/db/redis"
	"github.com/darziflow/console/internal/infrastructure/queue"
	"github.com/darziflow/console/internal/infrastructure/sessions"
	"github.com/darziflow/console/internal/infrastructure/tokenstore"
	"github.com/darziflow/console/pkg/logger"
)

const (
	serviceName     = "darziflow-console"
	shutdownTimeout = 10 * time.Second
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: serviceName,
	})

	if err := run(context.Background(), cfg, log); err != nil {
		log.Fatal().Err(err).Msg("console stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("env", cfg.Env).
		Str("backend", cfg.API.URL).
		Str("token_store", cfg.TokenStore).
		Bool("audit", cfg.Audit.Enabled).
		Msg("starting console")

	// --- Infrastructure ---
	var mdb *mongo.Database
	if cfg.MongoEnabled() {
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: serviceName})
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Error().Err(err).Msg("mongo disconnect")
			}
		}()
		mdb = db
	}

	var rdb goredis.UniversalClient
	if cfg.TokenStore == config.StoreRedis {
		client, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer client.Close()
		rdb = client
	}

	stores, err := tokenStores(ctx, cfg, mdb, rdb)
	if err != nil {
		return err
	}

	// --- Audit trail ---
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var (
		audit      *service.AuditService
		dispatcher *queue.Dispatcher
		sink       ports.EventSink = ports.NopSink{}
	)
	if cfg.Audit.Enabled {
		var repo ports.AuditRepository
		if mdb != nil {
			auditRepo := mongodb.NewAuditRepository(mdb)
			if err := auditRepo.EnsureIndexes(ctx); err != nil {
				return fmt.Errorf("audit indexes: %w", err)
			}
			repo = auditRepo
		}
		var dedup service.DedupChecker
		if rdb != nil {
			dedup = redisdb.NewDedupChecker(rdb)
		}
		audit = service.NewAuditService(repo, dedup, logger.Named("audit"))
		dispatcher = queue.NewDispatcher(cfg.Audit.Workers, audit, logger.Named("audit"))
		dispatcher.Start(workerCtx)
		sink = dispatcher
	}

	// --- Console sessions ---
	reg, err := sessions.NewRegistry(sessions.Config{
		BaseURL: cfg.API.URL,
		Size:    cfg.Session.CacheSize,
		TTL:     cfg.Session.TTL,
		Stores:  stores,
		Sink:    sink,
		Options: []apiclient.Option{
			apiclient.WithTimeout(cfg.API.Timeout),
			apiclient.WithUserAgent(serviceName),
			apiclient.WithPlatform("web"),
		},
	}, logger.Named("sessions"))
	if err != nil {
		return err
	}

	hashKey, blockKey := sessionKeys(cfg, log)
	renderer, err := views.NewRenderer()
	if err != nil {
		return err
	}

	e := api.NewRouter(api.Deps{
		Registry:   reg,
		Cookie:     middleware.NewSessionCookie(cfg.Session.CookieName, hashKey, blockKey, cfg.Session.TTL, cfg.Session.Secure),
		Renderer:   renderer,
		Audit:      audit,
		Mongo:      mdb,
		Redis:      rdb,
		BackendURL: cfg.API.URL,
		HTTPClient: &http.Client{Timeout: cfg.API.Timeout},
		Log:        logger.Named("http"),
	})

	// --- Serve until signalled ---
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("console listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	stopWorkers()
	if dispatcher != nil {
		dispatcher.Wait()
	}
	log.Info().Msg("console stopped")
	return nil
}

// tokenStores picks where console sessions keep their bearer tokens.
func tokenStores(ctx context.Context, cfg *config.Config, mdb *mongo.Database, rdb goredis.UniversalClient) (ports.TokenStoreFactory, error) {
	switch cfg.TokenStore {
	case config.StoreRedis:
		return tokenstore.NewRedis(rdb, cfg.Redis.Prefix, cfg.Session.TTL), nil
	case config.StoreMongo:
		store := tokenstore.NewMongo(mdb, cfg.Session.TTL)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("token store indexes: %w", err)
		}
		return store, nil
	default:
		return tokenstore.NewMemory(), nil
	}
}

// sessionKeys returns the cookie keys. Outside production missing keys are
// generated, which logs everyone out on restart.
func sessionKeys(cfg *config.Config, log zerolog.Logger) (hashKey, blockKey []byte) {
	hashKey = []byte(cfg.Session.HashKey)
	if len(hashKey) == 0 {
		log.Warn().Msg("SESSION_HASH_KEY not set, using a random key")
		hashKey = securecookie.GenerateRandomKey(32)
	}
	if cfg.Session.BlockKey != "" {
		blockKey = []byte(cfg.Session.BlockKey)
	}
	return hashKey, blockKey
}
