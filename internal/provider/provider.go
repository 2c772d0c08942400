// Package provider normalizes LLM backends behind one completion contract.
// Request and response JSON shapes never leave this package.
package provider

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iishyfishyy/tweak/internal/config"
)

// Request is one completion request. It is a value type; clients never retain it.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	FileContent  string
	Model        string
}

// userMessage joins the instruction and the file the way every family sends it.
func (r Request) userMessage() string {
	if r.FileContent == "" {
		return r.UserPrompt
	}
	return r.UserPrompt + "\n\n" + r.FileContent
}

// Response is the normalized completion output. OK is false when the
// provider answered successfully but produced no text.
type Response struct {
	Text     string
	Provider string
	Model    string
	OK       bool
}

// Client performs completions against one configured provider.
type Client interface {
	// ID returns the provider id from configuration (e.g. "openrouter").
	ID() string

	// Complete issues exactly one request. It never retries.
	Complete(ctx context.Context, req Request) (*Response, error)

	// ListModels returns the models the provider accepts, default first.
	ListModels(ctx context.Context) ([]string, error)
}

// Factory builds a Client for one provider entry.
type Factory func(p *config.Provider, gen config.Generation) (Client, error)

// Registration describes a provider family.
type Registration struct {
	New Factory
	// RequiresAuth families refuse to run without a token.
	RequiresAuth bool
}

var (
	registryMu sync.RWMutex
	registry   = map[config.Family]Registration{}
)

// Register adds a family. It panics if the family is already registered.
func Register(family config.Family, reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[family]; exists {
		panic(fmt.Sprintf("provider: family %q already registered", family))
	}
	registry[family] = reg
}

// Lookup returns the registration for family.
func Lookup(family config.Family) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[family]
	return reg, ok
}

// Families returns the registered family names in sorted order.
func Families() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for f := range registry {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return names
}

// New builds a client for p. Missing credentials for an authenticating family
// are reported as ErrNoProviderConfigured.
func New(p *config.Provider, gen config.Generation) (Client, error) {
	reg, ok := Lookup(p.Family)
	if !ok {
		return nil, fmt.Errorf("%w: %s (family %q)", ErrUnknownFamily, p.ID, p.Family)
	}
	if reg.RequiresAuth && p.Token == "" {
		return nil, fmt.Errorf("%w: no API key for %s", ErrNoProviderConfigured, p.ID)
	}
	return reg.New(p, gen)
}
