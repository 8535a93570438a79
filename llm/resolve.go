package llm

import (
	"os"
	"time"

	gerrors "github.com/vinayprograms/llmgate/errors"
)

// Provider tags, used for diagnostics and error metadata.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Environment variables holding backend credentials, read at construction.
const (
	OpenRouterEnvVar = "OPEN_ROUTER_API_KEY"
	GeminiEnvVar     = "GEMINI_API_KEY"
)

// Gate-specific configuration keys. Config files and parameter bags may
// carry them alongside backend parameters; forwarding them to a backend
// constructor would be a configuration error, so Resolve strips them.
const (
	KeyAPICallDelaySeconds = "api_call_delay_seconds"
	KeyUseOpenRouter       = "use_openrouter"
)

// ResolveConfig is the construction parameter bag for backend selection.
// Gate-level options (minimum interval) live on the gate, not here; the only
// gate-owned field is the provider selection flag.
type ResolveConfig struct {
	// UseOpenRouter selects the primary backend (OpenRouter) when true and
	// the alternate backend (Gemini) when false.
	UseOpenRouter bool

	Model       string
	MaxTokens   int
	Temperature *float64
	Timeout     time.Duration

	// Extra carries backend-specific pass-through parameters. Reserved gate
	// keys are stripped before the backend constructor sees the map.
	Extra map[string]interface{}
}

// ProviderName returns the tag of the backend this config selects.
func (c ResolveConfig) ProviderName() string {
	if c.UseOpenRouter {
		return ProviderOpenRouter
	}
	return ProviderGemini
}

// filterReserved returns a copy of extra without the reserved gate keys.
// Returns nil for an empty result so constructors see absence, not an empty
// map.
func filterReserved(extra map[string]interface{}) map[string]interface{} {
	if len(extra) == 0 {
		return nil
	}
	filtered := make(map[string]interface{}, len(extra))
	for k, v := range extra {
		if k == KeyAPICallDelaySeconds || k == KeyUseOpenRouter {
			continue
		}
		filtered[k] = v
	}
	if len(filtered) == 0 {
		return nil
	}
	return filtered
}

// Resolve selects and constructs the backend for the given configuration.
//
// The primary backend (OpenRouter) gets the fixed base URL, the "openrouter"
// provider tag, and its credential from OPEN_ROUTER_API_KEY. The alternate
// backend (Gemini) gets its credential from GEMINI_API_KEY. A missing
// credential fails construction with a MISSING_CREDENTIAL error naming the
// provider; no client is ever produced in a state that would fail silently
// on first use.
func Resolve(cfg ResolveConfig) (Provider, error) {
	if cfg.Model == "" {
		return nil, gerrors.InvalidConfig("model is required")
	}

	extra := filterReserved(cfg.Extra)

	if cfg.UseOpenRouter {
		apiKey := os.Getenv(OpenRouterEnvVar)
		if apiKey == "" {
			return nil, gerrors.MissingCredential(ProviderOpenRouter, OpenRouterEnvVar)
		}
		return NewOpenRouterProvider(OpenRouterConfig{
			APIKey:       apiKey,
			BaseURL:      OpenRouterBaseURL,
			Model:        cfg.Model,
			MaxTokens:    cfg.MaxTokens,
			Temperature:  cfg.Temperature,
			Timeout:      cfg.Timeout,
			ProviderName: ProviderOpenRouter,
			Extra:        extra,
		})
	}

	apiKey := os.Getenv(GeminiEnvVar)
	if apiKey == "" {
		return nil, gerrors.MissingCredential(ProviderGemini, GeminiEnvVar)
	}
	return NewGeminiProvider(GeminiConfig{
		APIKey:      apiKey,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Extra:       extra,
	})
}
