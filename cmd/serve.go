package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/rueidis"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	config "notegrid.app/notegrid/internal/configs"
	httpapi "notegrid.app/notegrid/internal/http"
	middleware "notegrid.app/notegrid/internal/http/middlewares"
	repository "notegrid.app/notegrid/internal/repositories"
	"notegrid.app/notegrid/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  "Starts the NoteGrid HTTP API on the configured store backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Info(".env file not found, using environment variables")
		}

		cfg := config.Load()
		logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var redisClient rueidis.Client
		if cfg.NeedsRedis() {
			redisClient = config.NewRedisClient(cfg.RedisAddr)
			defer redisClient.Close()
		}

		store, err := newStore(ctx, cfg, redisClient, logger)
		if err != nil {
			return err
		}

		opts := httpapi.RouteOptions{Limiter: newLimiter(cfg, redisClient)}
		if cfg.TracingEnabled {
			tp := config.NewTracerProvider(logger, cfg.Version)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.WithError(err).Warn("tracer shutdown failed")
				}
			}()
			opts.Tracer = tp.Tracer("notegrid/http")
		}

		handler := httpapi.NewHandler(
			services.NewAccountService(store, cfg.Version),
			services.NewDataService(store),
		)
		e := httpapi.NewEcho(logger)
		httpapi.Register(e, handler, logger, opts)

		go func() {
			logger.WithFields(log.Fields{
				"addr":    cfg.AppURL,
				"backend": cfg.StoreBackend,
				"version": cfg.Version,
			}).Info("HTTP server listening")
			if err := e.Start(cfg.AppURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("server stopped")
				stop()
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("HTTP server shutdown incomplete")
		}

		logger.Info("HTTP server shut down gracefully")
		return nil
	},
}

// newStore builds the backing store selected by STORE_BACKEND.
func newStore(ctx context.Context, cfg config.Config, redisClient rueidis.Client, logger *log.Logger) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		return repository.NewBlobStore(repository.NewRedisBlobs(redisClient, cfg.RedisKeyPrefix)), nil
	case config.BackendTable:
		client, err := config.NewTableClient(ctx, cfg.TableConnectionString, cfg.TableName)
		if err != nil {
			return nil, fmt.Errorf("table backend: %w", err)
		}
		return repository.NewBlobStore(repository.NewTableBlobs(client)), nil
	default:
		db := config.NewDatabaseClient(cfg.DatabaseDSN, repository.Models()...)
		var store repository.Store = repository.NewSQLStore(db)
		if cfg.CacheTTLSeconds > 0 {
			ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
			store = repository.NewCachedStore(store, redisClient, cfg.RedisKeyPrefix, ttl, logger)
		}
		return store, nil
	}
}

func newLimiter(cfg config.Config, redisClient rueidis.Client) middleware.Limiter {
	if cfg.RateLimitBackend == config.LimiterRedis {
		return middleware.NewRedisLimiter(redisClient, cfg.RedisKeyPrefix, cfg.RateLimit, time.Minute)
	}
	return middleware.NewMemoryLimiter(cfg.RateLimit, time.Minute)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
