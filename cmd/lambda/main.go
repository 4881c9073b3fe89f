package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambdaurl"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

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

// Execution environments are frozen between invocations, so the in-memory
// sweep would rarely run anyway; a shared DynamoDB counter is the useful
// configuration here.
const sweepInterval = 5 * time.Minute

func main() {
	ctx := context.Background()

	cfg, err := config.Load("lambda")
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	creds, store, err := awsDependencies(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize AWS dependencies", "err", err)
		os.Exit(1)
	}

	limiter, err := ratelimit.New(store, cfg.RateLimitMax, cfg.RateLimitWindow)
	if err != nil {
		slog.Error("failed to create rate limiter", "err", err)
		os.Exit(1)
	}

	client, err := openrouter.NewClient(creds,
		openrouter.WithAttribution(cfg.SiteURL, cfg.AppTitle),
	)
	if err != nil {
		slog.Error("failed to create OpenRouter client", "err", err)
		os.Exit(1)
	}

	selector := profile.NewSelector(profile.Sections(), profile.DefaultMaxBlocks)
	chat, err := usecase.NewChatService(selector, client, cfg.Model, cfg.FallbackModels)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	gate := origin.New(cfg.AllowedOrigins, cfg.StrictOrigin, cfg.Backend)
	h, err := handler.New(gate, limiter, chat, cfg.Backend, cfg.Debug)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	// lambdaurl streams the chi handler's response through the Function URL
	// response stream, so SSE frames reach the browser as they are written.
	lambdaurl.Start(h.Routes())
}

func awsDependencies(ctx context.Context, cfg *config.Config) (openrouter.CredentialSource, ratelimit.Store, error) {
	needAWS := (cfg.APIKey == "" && cfg.ParamPrefix != "") || cfg.RateLimitTable != ""

	var creds openrouter.CredentialSource
	var store ratelimit.Store

	if !needAWS {
		if cfg.APIKey != "" {
			creds = openrouter.StaticCredential(cfg.APIKey)
		} else {
			slog.Warn("no OpenRouter credentials configured, chat requests will fail")
			creds = openrouter.StaticCredential("")
		}
		return creds, ratelimit.NewMemoryStore(sweepInterval), nil
	}

	loaded, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case cfg.APIKey != "":
		creds = openrouter.StaticCredential(cfg.APIKey)
	case cfg.ParamPrefix != "":
		creds, err = paramstore.New(awsssm.NewFromConfig(loaded), cfg.ParamPrefix)
		if err != nil {
			return nil, nil, err
		}
	default:
		slog.Warn("no OpenRouter credentials configured, chat requests will fail")
		creds = openrouter.StaticCredential("")
	}

	if cfg.RateLimitTable != "" {
		store, err = repository.New(awsdynamodb.NewFromConfig(loaded), cfg.RateLimitTable)
		if err != nil {
			return nil, nil, err
		}
	} else {
		store = ratelimit.NewMemoryStore(sweepInterval)
	}

	return creds, store, nil
}
