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

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"

	"profile-chat/handler"
	"profile-chat/internal/config"
	"profile-chat/internal/integrations/openrouter"
	"profile-chat/internal/integrations/paramstore"
	"profile-chat/internal/origin"
	"profile-chat/internal/profile"
	"profile-chat/internal/ratelimit"
	"profile-chat/internal/repository"
	"profile-chat/internal/usecase"
)

const sweepInterval = time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded, using system environment", "err", err)
	}

	cfg, err := config.Load("server")
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	h, err := buildHandler(ctx, cfg)
	if err != nil {
		slog.Error("failed to build handler", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("chat server listening", "addr", cfg.Addr, "backend", cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "err", err)
	}
}

// buildHandler wires the full pipeline: credential source, rate-limit store,
// context selector, upstream client, orchestration, and HTTP handler.
func buildHandler(ctx context.Context, cfg *config.Config) (*handler.Handler, error) {
	creds, err := credentialSource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := rateLimitStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	limiter, err := ratelimit.New(store, cfg.RateLimitMax, cfg.RateLimitWindow)
	if err != nil {
		return nil, err
	}

	client, err := openrouter.NewClient(creds,
		openrouter.WithAttribution(cfg.SiteURL, cfg.AppTitle),
	)
	if err != nil {
		return nil, err
	}

	selector := profile.NewSelector(profile.Sections(), profile.DefaultMaxBlocks)
	chat, err := usecase.NewChatService(selector, client, cfg.Model, cfg.FallbackModels)
	if err != nil {
		return nil, err
	}

	gate := origin.New(cfg.AllowedOrigins, cfg.StrictOrigin, cfg.Backend)
	return handler.New(gate, limiter, chat, cfg.Backend, cfg.Debug)
}

func credentialSource(ctx context.Context, cfg *config.Config) (openrouter.CredentialSource, error) {
	if cfg.APIKey != "" {
		return openrouter.StaticCredential(cfg.APIKey), nil
	}
	if cfg.ParamPrefix != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		return paramstore.New(awsssm.NewFromConfig(awsCfg), cfg.ParamPrefix)
	}
	// Requests still serve health checks; chat requests report the missing
	// credential per request.
	slog.Warn("no OpenRouter credentials configured, chat requests will fail")
	return openrouter.StaticCredential(""), nil
}

func rateLimitStore(ctx context.Context, cfg *config.Config) (ratelimit.Store, error) {
	if cfg.RateLimitTable == "" {
		return ratelimit.NewMemoryStore(sweepInterval), nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.RateLimitTable)
}
