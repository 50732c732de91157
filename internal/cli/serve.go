package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"git.sr.ht/~jakintosh/yourauth/internal/api"
	"git.sr.ht/~jakintosh/yourauth/internal/config"
	"git.sr.ht/~jakintosh/yourauth/internal/database"
	"git.sr.ht/~jakintosh/yourauth/internal/logging"
	"git.sr.ht/~jakintosh/yourauth/internal/service"
	"git.sr.ht/~jakintosh/yourauth/pkg/tokens"
)

const (
	defaultGracefulTimeout = 30 * time.Second
	serverHeaderTimeout    = 5 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second
	serverIdleTimeout      = 60 * time.Second
	redisPingTimeout       = 3 * time.Second
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the API server. Signing keys are loaded from JWT_PRIVATE_KEY and
JWT_PUBLIC_KEY when set, otherwise from KEYS_DIR, where they are created on
first run. Rate limiting is enabled when REDIS_ADDR is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	serveCmd.Flags().Int("port", 0, "port to listen on (PORT)")
	serveCmd.Flags().String("redis-addr", "", "Redis address for rate limiting (REDIS_ADDR)")
	serveCmd.Flags().String("cors-origins", "", "comma-separated allowed CORS origins (CORS_ORIGINS)")
	mustBind(v, config.KeyPort, serveCmd.Flags().Lookup("port"))
	mustBind(v, config.KeyRedisAddr, serveCmd.Flags().Lookup("redis-addr"))
	mustBind(v, config.KeyCORSOrigins, serveCmd.Flags().Lookup("cors-origins"))
	return serveCmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	keys, err := cfg.LoadKeys()
	if err != nil {
		return fmt.Errorf("failed to load signing keys: %w", err)
	}

	store, err := database.NewSQLiteStore(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	plans := service.NewPlanCatalog()
	if cfg.PlansDir != "" {
		if err := plans.Watch(ctx, cfg.PlansDir, logger); err != nil {
			return fmt.Errorf("failed to load plans: %w", err)
		}
	}

	issuer, validator := tokens.InitServer(keys, cfg.TokenOptions())
	svc := service.New(
		store.DeveloperStore(),
		store.UserStore(),
		store.LogStore(),
		plans,
		issuer,
		validator,
		service.PasswordModeProduction,
		logger,
	)

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = connectRedis(ctx, cfg, logger)
		defer func() { _ = rdb.Close() }()
	}

	handler := api.New(svc, keys, logger, api.Options{
		CORSOrigins: cfg.CORSOrigins,
		Redis:       rdb,
		RateLimit:   cfg.RateLimit,
		RateWindow:  cfg.RateWindow,
		Health:      store.Ping,
	}).Router()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: serverHeaderTimeout,
		ReadTimeout:       serverReadTimeout,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       serverIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", server.Addr),
			zap.String("issuer", cfg.Issuer),
			zap.Bool("rate_limit", rdb != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}

// connectRedis returns a client even when the first ping fails; the rate
// limiter lets requests through while Redis is unreachable.
func connectRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable; rate limiting will fail open",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err),
		)
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}
	return rdb
}
