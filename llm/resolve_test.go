package llm

import (
	"testing"

	gerrors "github.com/vinayprograms/llmgate/errors"
)

func TestResolve_MissingCredential_OpenRouter(t *testing.T) {
	t.Setenv(OpenRouterEnvVar, "")

	_, err := Resolve(ResolveConfig{
		UseOpenRouter: true,
		Model:         "google/gemini-2.5-flash-lite",
	})
	if err == nil {
		t.Fatal("expected construction to fail without credential")
	}
	if !gerrors.Is(err, gerrors.ErrCodeMissingCredential) {
		t.Errorf("expected MISSING_CREDENTIAL, got %v", err)
	}
	if md := gerrors.GetMetadata(err); md["provider"] != ProviderOpenRouter {
		t.Errorf("expected error to identify openrouter, got %v", md)
	}
}

func TestResolve_MissingCredential_Gemini(t *testing.T) {
	t.Setenv(GeminiEnvVar, "")

	_, err := Resolve(ResolveConfig{
		UseOpenRouter: false,
		Model:         "gemini-2.5-flash",
	})
	if err == nil {
		t.Fatal("expected construction to fail without credential")
	}
	if !gerrors.Is(err, gerrors.ErrCodeMissingCredential) {
		t.Errorf("expected MISSING_CREDENTIAL, got %v", err)
	}
	if md := gerrors.GetMetadata(err); md["provider"] != ProviderGemini {
		t.Errorf("expected error to identify gemini, got %v", md)
	}
}

func TestResolve_ModelRequired(t *testing.T) {
	t.Setenv(OpenRouterEnvVar, "test-key")

	_, err := Resolve(ResolveConfig{UseOpenRouter: true})
	if !gerrors.Is(err, gerrors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestResolve_SelectsOpenRouter(t *testing.T) {
	t.Setenv(OpenRouterEnvVar, "test-key")

	p, err := Resolve(ResolveConfig{
		UseOpenRouter: true,
		Model:         "google/gemini-2.5-flash-lite",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	or, ok := p.(*OpenRouterProvider)
	if !ok {
		t.Fatalf("expected OpenRouterProvider, got %T", p)
	}
	if or.Name() != ProviderOpenRouter {
		t.Errorf("expected provider tag openrouter, got %s", or.Name())
	}
}

func TestResolve_SelectsGemini(t *testing.T) {
	t.Setenv(GeminiEnvVar, "test-key")

	p, err := Resolve(ResolveConfig{
		UseOpenRouter: false,
		Model:         "gemini-2.5-flash",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, ok := p.(*GeminiProvider); !ok {
		t.Fatalf("expected GeminiProvider, got %T", p)
	}
}

func TestResolve_StripsReservedKeys(t *testing.T) {
	t.Setenv(OpenRouterEnvVar, "test-key")

	p, err := Resolve(ResolveConfig{
		UseOpenRouter: true,
		Model:         "google/gemini-2.5-flash-lite",
		Extra: map[string]interface{}{
			KeyAPICallDelaySeconds: 120,
			KeyUseOpenRouter:       true,
			"top_p":                0.9,
		},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	or := p.(*OpenRouterProvider)
	if _, ok := or.extra[KeyAPICallDelaySeconds]; ok {
		t.Error("expected api_call_delay_seconds to be stripped before backend construction")
	}
	if _, ok := or.extra[KeyUseOpenRouter]; ok {
		t.Error("expected use_openrouter to be stripped before backend construction")
	}
	if _, ok := or.extra["top_p"]; !ok {
		t.Error("expected backend parameter top_p to pass through")
	}
}

func TestFilterReserved(t *testing.T) {
	extra := map[string]interface{}{
		KeyAPICallDelaySeconds: 60,
		KeyUseOpenRouter:       false,
		"transforms":           []string{"middle-out"},
	}

	filtered := filterReserved(extra)

	if len(filtered) != 1 {
		t.Fatalf("expected 1 key after filtering, got %d", len(filtered))
	}
	if _, ok := filtered["transforms"]; !ok {
		t.Error("expected transforms to survive filtering")
	}
	// Original bag untouched.
	if len(extra) != 3 {
		t.Error("expected filtering not to mutate the input map")
	}
}

func TestFilterReserved_EmptyResults(t *testing.T) {
	if filterReserved(nil) != nil {
		t.Error("expected nil for nil input")
	}
	only := map[string]interface{}{KeyUseOpenRouter: true}
	if filterReserved(only) != nil {
		t.Error("expected nil when only reserved keys are present")
	}
}

func TestResolveConfig_ProviderName(t *testing.T) {
	if got := (ResolveConfig{UseOpenRouter: true}).ProviderName(); got != ProviderOpenRouter {
		t.Errorf("expected openrouter, got %s", got)
	}
	if got := (ResolveConfig{}).ProviderName(); got != ProviderGemini {
		t.Errorf("expected gemini, got %s", got)
	}
}
