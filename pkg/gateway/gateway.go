// Package gateway wraps the external language-model completion service
// behind a single narrow interface. It is the only package that talks to
// the model provider; everything above it deals in plain prompt/response
// text and typed errors.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

var (
	// ErrUnavailable means the completion service could not be reached
	// after the configured retries. Runs abort on this error.
	ErrUnavailable = errors.New("gateway unavailable")

	// ErrInvalidCredentials means the configured API key is malformed.
	// Checked at construction, before any network call.
	ErrInvalidCredentials = errors.New("invalid gateway credentials")
)

// apiKeyPrefix is the provider's expected key prefix. Keys are format-checked
// only; validity is established by the first live call.
const (
	apiKeyPrefix = "sk-ant-"
	minKeyLength = 16
)

// Client is the narrow completion interface the agents consume.
type Client interface {
	// Complete sends a prompt and returns the raw response text. The system
	// prompt carries the calling agent's role. Each call is independently
	// cancellable via ctx.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config holds the gateway configuration. All fields are explicit; nothing
// is read from the environment here.
type Config struct {
	Logger *slog.Logger

	// APIKey is the provider credential. Empty selects stub mode.
	APIKey string

	// Model identifies the completion model; empty selects the default.
	Model     string
	MaxTokens int64

	// RequestTimeout bounds each individual completion call.
	RequestTimeout time.Duration

	// MaxRetries is the number of automatic retries on transient failure.
	MaxRetries uint64

	// InitialBackoff is the first retry delay; subsequent delays grow
	// exponentially.
	InitialBackoff time.Duration
}

// Validate applies defaults and checks the credential format.
func (cfg *Config) Validate() error {
	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.APIKey != "" {
		if !strings.HasPrefix(cfg.APIKey, apiKeyPrefix) || len(cfg.APIKey) < minKeyLength {
			return fmt.Errorf("%w: key must start with %q", ErrInvalidCredentials, apiKeyPrefix)
		}
	}
	return nil
}

// New builds a Client from cfg. With no API key configured it returns the
// deterministic stub so the orchestration loop stays testable offline.
func New(cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		if cfg.Logger != nil {
			cfg.Logger.Warn("no gateway credential configured, running in stub mode")
		}
		return NewStub(), nil
	}
	return newAnthropicClient(cfg), nil
}
