package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/walletauth/adapters/events"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/adapters/users"
	"github.com/layer-3/walletauth/adapters/verifier"
	"github.com/layer-3/walletauth/config"
	"github.com/layer-3/walletauth/pkg/log"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
	httptransport "github.com/layer-3/walletauth/transport/http"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := log.NewZapLogger(cfg.Log).WithName("authd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("authd stopped", "err", err)
	}
	logger.Info("authd stopped")
}

func run(ctx context.Context, cfg config.ServerConfig, logger log.Logger) error {
	signingKey, err := loadSigningKey(cfg.SigningKey, logger)
	if err != nil {
		return err
	}

	db, err := users.ConnectDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	var (
		revocations ports.Store
		nonces      ports.NonceStore
		publisher   message.Publisher
	)
	wmLogger := events.NewLoggerAdapter(logger.WithName("events"))

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to reach Redis: %w", err)
		}

		revocations = store.NewRedisStore(redisClient)
		nonces = store.NewRedisNonceStore(redisClient)
		publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, wmLogger)
		if err != nil {
			return fmt.Errorf("failed to create Redis publisher: %w", err)
		}
		logger.Info("using redis stores")
	} else {
		revocations = store.NewMemoryStore()
		nonces = store.NewMemoryNonceStore()
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		logger.Warn("REDIS_URL not set, using in-memory stores")
	}
	defer publisher.Close()

	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer(signingKey, cfg.Issuer),
		revocations,
		nonces,
		users.NewGormUserRepo(db),
		verifier.NewRegistry(),
		events.NewWatermillPublisher(publisher),
		service.WithLogger(logger.WithName("service")),
		service.WithChallengeTTL(cfg.ChallengeTTL),
		service.WithSessionTTL(cfg.SessionTTL),
		service.WithAllowedDomains(cfg.AllowedDomains...),
	)

	router := httptransport.SetupRouter(authService, cfg.HTTP, httptransport.NewMetrics(), logger)
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadSigningKey(hexKey string, logger log.Logger) (*ecdsa.PrivateKey, error) {
	if hexKey != "" {
		key, err := tokenizer.ParseSigningKey(hexKey)
		if err != nil {
			return nil, fmt.Errorf("invalid WALLETAUTH_SIGNING_KEY: %w", err)
		}
		return key, nil
	}

	logger.Warn("WALLETAUTH_SIGNING_KEY not set, sessions will not survive a restart")
	return tokenizer.GenerateSigningKey()
}
