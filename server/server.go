package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"VTube/cache"
	"VTube/config"
	"VTube/core/account"
	"VTube/core/auth"
	"VTube/core/registration"
	"VTube/db"
	"VTube/logger"
	"VTube/repository"
	"VTube/storage"
)

// Start wires every component from cfg and serves HTTP until SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	gdb, err := db.ConnectGorm(cfg)
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}

	redisClient, err := db.ConnectRedis(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	backend, err := storage.NewBackend(cfg)
	if err != nil {
		return err
	}
	if minioBackend, ok := backend.(*storage.MinioBackend); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := minioBackend.EnsureBucket(ctx)
		cancel()
		if err != nil {
			return err
		}
	}

	if err := ensureDirExists(cfg.UploadTempDir); err != nil {
		return err
	}

	users := repository.NewGormUserRepository(gdb)
	hasher := auth.NewHasher(cfg.BcryptCost)
	tokens := auth.NewTokenIssuer(cfg.AccessTokenSecret, cfg.AccessTokenExpiry, cfg.RefreshTokenSecret, cfg.RefreshTokenExpiry)

	registrar := registration.NewService(users, storage.NewUploader(backend), hasher)
	accounts := account.NewService(users, hasher, tokens)
	limiter := cache.NewRateLimiter(redisClient, "register", cfg.RegisterRateLimit, cfg.RegisterRateWindow)

	handler := NewRouter(Handlers{
		Users: NewUserHandler(registrar, cfg.UploadTempDir, cfg.MaxUploadBytes),
		Auth:  NewAuthHandler(accounts),
		Health: NewHealthHandler(
			HealthCheck{Name: "database", Check: func(ctx context.Context) error { return db.Ping(ctx, gdb) }},
			HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		),
		Limiter:    limiter,
		CORSOrigin: cfg.CORSOrigin,
		TrustProxy: cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("[Server] listening",
			logger.String("addr", srv.Addr),
			logger.String("mediaDriver", backend.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-stop:
	}

	logger.Info("[Server] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("[Server] stopped")
	return nil
}

func ensureDirExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("[Server] creating directory", logger.String("path", path))
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to check directory %s: %w", path, err)
	}
	return nil
}
