package analyst

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Request is one completion call.
type Request struct {
	Model       string
	Temperature float64
	System      string
	Prompt      string
}

// Provider generates text from a prompt.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// Provider kinds accepted by NewProvider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderNone   = "none"
)

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Kind      string
	APIKey    string
	OllamaURL string
	Timeout   time.Duration
}

// NewProvider builds the configured provider. It returns (nil, nil) for
// ProviderNone so the server can run without question answering.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case ProviderGemini:
		g, err := NewGemini(ctx, cfg.APIKey)
		if err != nil {
			return nil, err
		}
		return g, nil
	case ProviderOllama:
		return NewOllama(cfg.OllamaURL, cfg.Timeout), nil
	case ProviderNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown analyst provider %q", cfg.Kind)
	}
}
