package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/videotube/backend/internal/auth"
	"github.com/ayush/videotube/backend/internal/config"
	"github.com/ayush/videotube/backend/internal/httpx"
	"github.com/ayush/videotube/backend/internal/logging"
	"github.com/ayush/videotube/backend/internal/media"
	"github.com/ayush/videotube/backend/internal/profile"
	"github.com/ayush/videotube/backend/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(logging.Config{
		Service: "videotube-backend",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── MongoDB ──────────────────────────────────────────────
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return err
	}
	defer mongoClient.Disconnect(context.Background())
	if err := mongoClient.Ping(connectCtx, nil); err != nil {
		return err
	}
	accounts := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := accounts.EnsureIndexes(connectCtx); err != nil {
		return err
	}

	// ── Redis (optional) ─────────────────────────────────────
	var cache *store.AccountCache
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(connectCtx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache = store.NewAccountCache(rdb, cfg.AccountCacheTTL)
	} else {
		logger.Info("account cache disabled")
	}

	// ── MinIO ────────────────────────────────────────────────
	objects, err := store.NewMinioStore(
		connectCtx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		return err
	}
	relay := media.NewRelay(objects, cfg.MinioPublicURL, objects.Bucket())

	// ── Services ─────────────────────────────────────────────
	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		AccessTTL:     cfg.AccessTokenExpiry,
		RefreshSecret: cfg.RefreshTokenSecret,
		RefreshTTL:    cfg.RefreshTokenExpiry,
	})
	if err != nil {
		return err
	}
	sessions := auth.NewManager(accounts, relay, tokens, auth.NewHasher(auth.DefaultCost))
	var invalidator profile.Invalidator
	if cache != nil {
		sessions.WithCache(cache)
		invalidator = cache
	}
	profiles := profile.NewService(accounts, relay, invalidator)

	cookies := httpx.CookieWriter{
		Secure:     cfg.CookieSecure,
		AccessTTL:  cfg.AccessTokenExpiry,
		RefreshTTL: cfg.RefreshTokenExpiry,
	}

	router := newRouter(routerDeps{
		logger:         logger,
		corsOrigins:    cfg.CORSOrigins,
		maxUploadBytes: cfg.MaxUploadBytes,
		authenticator:  sessions,
		sessions:       auth.NewHandler(sessions, cookies),
		profiles:       profile.NewHandler(profiles),
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("backend listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutCtx)
}
