package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Built-in defaults used when the corresponding environment variable is unset.
var (
	defaultAllowedOrigins = []string{
		"https://miguelgarglez.github.io",
		"http://localhost:4321",
		"http://localhost:4321/personal_site",
	}
	defaultFallbackModels = []string{
		"stepfun/step-3.5-flash:free",
		"arcee-ai/trinity-large-preview:free",
		"nvidia/nemotron-3-nano-30b-a3b:free",
	}
)

const (
	defaultModel    = "openrouter/free"
	defaultSiteURL  = "https://miguelgarglez.github.io"
	defaultAppTitle = "Miguel Garcia Profile Chat"

	defaultRateLimitMax    = 20
	defaultRateLimitWindow = 60 * time.Second
)

// Config aggregates every environment-sourced setting. All fields have
// working defaults except the OpenRouter credential, which may also come from
// SSM when ParamPrefix is set.
type Config struct {
	Addr            string
	AllowedOrigins  []string
	StrictOrigin    bool
	APIKey          string
	ParamPrefix     string
	Model           string
	FallbackModels  []string
	SiteURL         string
	AppTitle        string
	Backend         string
	Debug           bool
	RateLimitTable  string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// Load reads configuration from the environment. backend names the deployment
// (reported in the X-Chat-Backend header) and can be overridden via
// CHAT_BACKEND.
func Load(backend string) (*Config, error) {
	strict, err := envBool("STRICT_ORIGIN", false)
	if err != nil {
		return nil, err
	}
	debug, err := envBool("DEBUG", false)
	if err != nil {
		return nil, err
	}

	maxHits, err := envInt("RATE_LIMIT_MAX", defaultRateLimitMax)
	if err != nil {
		return nil, err
	}
	if maxHits <= 0 {
		return nil, fmt.Errorf("config: RATE_LIMIT_MAX must be positive, got %d", maxHits)
	}
	windowSeconds, err := envInt("RATE_LIMIT_WINDOW_SECONDS", int(defaultRateLimitWindow/time.Second))
	if err != nil {
		return nil, err
	}
	if windowSeconds <= 0 {
		return nil, fmt.Errorf("config: RATE_LIMIT_WINDOW_SECONDS must be positive, got %d", windowSeconds)
	}

	port := envOrDefault("PORT", "8080")
	addr := port
	if !strings.Contains(port, ":") {
		addr = ":" + port
	}

	model := envOrDefault("OPENROUTER_MODEL", defaultModel)
	fallbacks := splitList(os.Getenv("OPENROUTER_FALLBACK_MODELS"))
	if len(fallbacks) == 0 {
		fallbacks = defaultFallbackModels
	}

	origins := splitList(os.Getenv("ALLOWED_ORIGINS"))
	if len(origins) == 0 {
		origins = defaultAllowedOrigins
	}

	return &Config{
		Addr:            addr,
		AllowedOrigins:  origins,
		StrictOrigin:    strict,
		APIKey:          strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")),
		ParamPrefix:     strings.TrimSpace(os.Getenv("PARAM_PREFIX")),
		Model:           model,
		FallbackModels:  fallbacks,
		SiteURL:         envOrDefault("OPENROUTER_SITE_URL", defaultSiteURL),
		AppTitle:        envOrDefault("OPENROUTER_APP_TITLE", defaultAppTitle),
		Backend:         envOrDefault("CHAT_BACKEND", backend),
		Debug:           debug,
		RateLimitTable:  strings.TrimSpace(os.Getenv("RATE_LIMIT_TABLE")),
		RateLimitMax:    maxHits,
		RateLimitWindow: time.Duration(windowSeconds) * time.Second,
	}, nil
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s value %q: %w", key, raw, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config: invalid %s value %q: %w", key, raw, err)
	}
	return v, nil
}

// splitList parses a comma separated environment value, dropping empty
// entries.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
