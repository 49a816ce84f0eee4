// Package provider contains model completion abstractions and implementations.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/alienxp03/arena/internal/core"
)

// CompletionRequest is one prompt sent to a model.
type CompletionRequest struct {
	ModelID      string
	Messages     []core.ContextMessage
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
}

// Finish reasons reported by providers.
const (
	FinishStop   = "stop"
	FinishLength = "length"
	FinishError  = "error"
)

// CompletionResponse is one model's raw answer.
type CompletionResponse struct {
	ModelID        string `json:"model_id"`
	Content        string `json:"content"`
	InputTokens    int    `json:"input_tokens"`
	OutputTokens   int    `json:"output_tokens"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	FinishReason   string `json:"finish_reason"`
}

// Provider defines the interface for model completion backends.
type Provider interface {
	// Name returns the provider's identifier.
	Name() string

	// Available checks if the provider can serve requests.
	Available() bool

	// Complete sends a request and returns the model's response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// Lookup resolves a model ID to the provider serving it.
type Lookup func(modelID string) (Provider, bool)

// Registry manages available providers by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return p, nil
}

// List returns all registered providers.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	return providers
}

// Available returns all providers that are currently usable.
func (r *Registry) Available() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var available []Provider
	for _, p := range r.providers {
		if p.Available() {
			available = append(available, p)
		}
	}
	return available
}
