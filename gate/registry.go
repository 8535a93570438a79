package gate

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vinayprograms/llmgate/config"
	"github.com/vinayprograms/llmgate/llm"
	"github.com/vinayprograms/llmgate/logging"
	"github.com/vinayprograms/llmgate/telemetry"
)

// Agent roles, each with its own gate and model tier.
const (
	RoleCoordinator = "coordinator"
	RoleSpecialist  = "specialist"
	RoleDocument    = "document"
	RoleAnalysis    = "analysis"
)

// Registry holds one gate per agent role. Roles that share a quota should
// share a gate instance instead of registering separate ones.
type Registry struct {
	mu    sync.RWMutex
	gates map[string]*Gate
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		gates: make(map[string]*Gate),
	}
}

// Set registers a gate for a role, replacing any existing one.
func (r *Registry) Set(role string, g *Gate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gates[role] = g
}

// Get returns the gate for a role.
func (r *Registry) Get(role string) (*Gate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, exists := r.gates[role]
	if !exists {
		return nil, fmt.Errorf("no gate configured for role: %s", role)
	}
	return g, nil
}

// Roles returns the registered role names, sorted.
func (r *Registry) Roles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]string, 0, len(r.gates))
	for role := range r.gates {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// BuildRegistry constructs one gate per agent role from the configuration.
// Each role resolves its own backend client (so per-role models and
// temperatures apply) and its own gate, since each model tier has its own
// quota. Construction fails fast on a missing credential.
func BuildRegistry(cfg *config.Configuration, log *logging.Logger, exporter telemetry.Exporter) (*Registry, error) {
	roles := []struct {
		name        string
		model       string
		temperature *float64
	}{
		{RoleCoordinator, cfg.CoordinatorModel, &cfg.CoordinatorTemperature},
		{RoleSpecialist, cfg.SpecialistModel, nil},
		{RoleDocument, cfg.DocumentModel, &cfg.DocumentTemperature},
		{RoleAnalysis, cfg.AnalysisModel, &cfg.AnalysisTemperature},
	}

	registry := NewRegistry()

	for _, role := range roles {
		rc := llm.ResolveConfig{
			UseOpenRouter: cfg.UseOpenRouter,
			Model:         role.model,
			Temperature:   role.temperature,
		}

		provider, err := llm.Resolve(rc)
		if err != nil {
			return nil, fmt.Errorf("resolving backend for role %s: %w", role.name, err)
		}

		g, err := New(provider, Config{
			MinInterval: cfg.APICallDelay(),
			Provider:    rc.ProviderName(),
			Logger:      log,
			Exporter:    exporter,
		})
		if err != nil {
			return nil, fmt.Errorf("building gate for role %s: %w", role.name, err)
		}

		registry.Set(role.name, g)
	}

	return registry, nil
}
