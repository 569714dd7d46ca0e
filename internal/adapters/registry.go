// Registry manages adapter registration and lookup.
//
// DESIGN: Thread-safe map of provider → Adapter. The five built-in adapters
// are registered from ProvidersConfig at startup. Register can replace an
// adapter later (tests inject adapters with their own HTTP clients).
package adapters

import (
	"sync"

	"github.com/compresr/chat-gateway/internal/config"
)

// Registry manages adapter registration.
type Registry struct {
	adapters map[Provider]Adapter
	mu       sync.RWMutex
}

// NewRegistry creates a registry with all built-in adapters sharing client.
// A nil client uses a shared default.
func NewRegistry(providers config.ProvidersConfig, client HTTPDoer) *Registry {
	r := &Registry{
		adapters: make(map[Provider]Adapter),
	}

	r.Register(NewOpenAIAdapter(providers.OpenAI, client))
	r.Register(NewAnthropicAdapter(providers.Anthropic, client))
	r.Register(NewGoogleAdapter(providers.Google, client))
	r.Register(NewAzureAdapter(providers.Azure, client))
	r.Register(NewCustomAdapter(providers.Custom, client))

	return r
}

// NewEmptyRegistry creates a registry with no adapters.
func NewEmptyRegistry() *Registry {
	return &Registry{adapters: make(map[Provider]Adapter)}
}

// Register adds or replaces the adapter for its provider.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Provider()] = adapter
}

// Get returns the adapter for a provider, or nil.
func (r *Registry) Get(provider Provider) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[provider]
}

// Resolve maps a provider identifier to its adapter. Unknown identifiers
// resolve to the OpenAI adapter with fallback=true.
func (r *Registry) Resolve(identifier string) (adapter Adapter, provider Provider, fallback bool) {
	provider, ok := ParseProvider(identifier)
	return r.Get(provider), provider, !ok
}
