package provider

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/iishyfishyy/tweak/internal/config"
)

// Mode selects how the Router picks a model.
type Mode int

const (
	// Default uses the provider's first available model.
	Default Mode = iota
	// Interactive uses a caller-chosen model from ListModels.
	Interactive
)

func (m Mode) String() string {
	switch m {
	case Default:
		return "default"
	case Interactive:
		return "interactive"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Selection is the model selection for one route.
type Selection struct {
	Mode  Mode
	Model string // required in Interactive mode
}

// Route is an active client plus the model to use with it.
type Route struct {
	Client Client
	Model  string
}

// Router resolves provider ids to clients. Clients are built lazily and cached.
type Router struct {
	cfg *config.Config

	mu      sync.Mutex
	clients map[string]Client
}

// NewRouter creates a router over cfg. Tokens must already be resolved.
func NewRouter(cfg *config.Config) *Router {
	return &Router{cfg: cfg, clients: make(map[string]Client)}
}

// Providers returns the configured provider ids in sorted order.
func (r *Router) Providers() []string {
	return r.cfg.ProviderIDs()
}

// Client returns the client for providerID, building it on first use.
func (r *Router) Client(providerID string) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[providerID]; ok {
		return c, nil
	}

	p, ok := r.cfg.Provider(providerID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNoProviderConfigured, providerID)
	}

	c, err := New(p, r.cfg.Generation)
	if err != nil {
		return nil, err
	}
	r.clients[providerID] = c
	return c, nil
}

// Route selects the client and model for one completion.
func (r *Router) Route(ctx context.Context, providerID string, sel Selection) (*Route, error) {
	c, err := r.Client(providerID)
	if err != nil {
		return nil, err
	}

	switch sel.Mode {
	case Default:
		p, _ := r.cfg.Provider(providerID)
		if model := p.DefaultModel(); model != "" {
			return &Route{Client: c, Model: model}, nil
		}
		models, err := c.ListModels(ctx)
		if err != nil {
			return nil, err
		}
		if len(models) == 0 {
			return nil, &InvalidModelError{Provider: providerID}
		}
		return &Route{Client: c, Model: models[0]}, nil

	case Interactive:
		models, err := c.ListModels(ctx)
		if err != nil {
			return nil, err
		}
		if sel.Model == "" || !slices.Contains(models, sel.Model) {
			return nil, &InvalidModelError{Provider: providerID, Model: sel.Model, Available: models}
		}
		return &Route{Client: c, Model: sel.Model}, nil

	default:
		return nil, fmt.Errorf("unknown selection mode %v", sel.Mode)
	}
}

// ListModels delegates to the provider's client.
func (r *Router) ListModels(ctx context.Context, providerID string) ([]string, error) {
	c, err := r.Client(providerID)
	if err != nil {
		return nil, err
	}
	return c.ListModels(ctx)
}

// IsNotConfigured reports whether err means credentials are missing.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNoProviderConfigured)
}
