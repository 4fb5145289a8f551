// Package llm provides the text generation backends used by the research loop.
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/metalagman/researchloop/internal/config"
)

// ErrMissingCredential is returned when a backend requires an API key that is not configured.
var ErrMissingCredential = errors.New("llm credential is not configured")

// Request is a single generation call: one user-role message rendered from a prompt.
type Request struct {
	Prompt      string
	Temperature float64
}

// Generator produces a text completion for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Describe() Info
}

// Info describes how a generator is invoked.
type Info struct {
	Provider string
	Model    string
	BaseURL  string
	Cmd      []string
}

// New constructs a generator for the configured provider.
func New(cfg config.LLMConfig) (Generator, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAI(cfg, nil)
	case config.ProviderGemini:
		return NewGemini(context.Background(), cfg, nil)
	case config.ProviderExec:
		return NewExec(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// ResolveAPIKey returns the configured key, falling back to the named environment variable.
func ResolveAPIKey(cfg config.LLMConfig, defaultEnv string) (string, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey != "" {
		return apiKey, nil
	}
	envKey := strings.TrimSpace(cfg.APIKeyEnv)
	if envKey == "" {
		envKey = defaultEnv
	}
	apiKey = strings.TrimSpace(os.Getenv(envKey))
	if apiKey == "" {
		return "", fmt.Errorf("%w: set llm.api_key or export %s", ErrMissingCredential, envKey)
	}
	return apiKey, nil
}
