package llm

import (
	"fmt"
	"sync"
	"time"

	"github.com/rbarrantes/triage/internal/config"
	"github.com/rbarrantes/triage/internal/logging"
)

// Registry manages inference provider clients and resolves model references
// to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		aliases: make(map[string]string),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered inference provider")
}

// Alias maps a model name/alias to a provider.
// e.g., Alias("llama3", "ollama") means "llama3" resolves to the "ollama" provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the default provider used when no model/provider match is found.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given model reference.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.clients[model]; ok {
		return c, nil
	}

	if provider, ok := r.aliases[model]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}

	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no inference provider for model %q", model)
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	return names
}

// NewRegistryFromConfig builds a Registry with the configured Ollama runtime
// registered as the fallback provider. The configured model name is aliased
// to the provider so requests can name either.
func NewRegistryFromConfig(cfg config.OllamaConfig, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	client := NewOllamaClient(cfg.BaseURL, cfg.Model, time.Duration(cfg.TimeoutSecs)*time.Second)
	reg.Register("ollama", client)
	reg.SetFallback("ollama")
	if cfg.Model != "" {
		reg.Alias(cfg.Model, "ollama")
	}

	return reg
}
