package arbor

import (
	"context"
	"errors"
	"sync"

	"github.com/zoobzio/zyn"
)

// Provider is the LLM backend behind a ProviderOracle.
// Any zyn.Provider satisfies it.
type Provider interface {
	Call(ctx context.Context, messages []zyn.Message, temperature float32) (*zyn.ProviderResponse, error)
	Name() string
}

// StructuredProvider is a Provider with a native JSON output mode.
// ProviderOracle routes structured requests through CallStructured when it is available.
type StructuredProvider interface {
	Provider
	CallStructured(ctx context.Context, messages []zyn.Message, temperature float32) (*zyn.ProviderResponse, error)
}

// ErrNoProvider means a reasoner had neither an oracle nor any provider to fall back on.
var ErrNoProvider = errors.New("no provider configured: set via context, reasoner, or global")

type providerKeyType struct{}

var providerKey = providerKeyType{}

// fallback is the process-wide provider used when nothing narrower is set.
var fallback struct {
	mu       sync.RWMutex
	provider Provider
}

// SetProvider installs the process-wide fallback. Passing nil clears it.
func SetProvider(p Provider) {
	fallback.mu.Lock()
	fallback.provider = p
	fallback.mu.Unlock()
}

// GetProvider returns the process-wide fallback, or nil.
func GetProvider() Provider {
	fallback.mu.RLock()
	defer fallback.mu.RUnlock()
	return fallback.provider
}

// WithProvider returns a context carrying p for every reasoner run under it.
func WithProvider(ctx context.Context, p Provider) context.Context {
	return context.WithValue(ctx, providerKey, p)
}

// ProviderFromContext returns the provider attached by WithProvider.
func ProviderFromContext(ctx context.Context) (Provider, bool) {
	p, ok := ctx.Value(providerKey).(Provider)
	return p, ok
}

// ResolveProvider picks the provider for a run. The narrowest scope wins:
//
//  1. explicit, the provider set on the reasoner with WithProvider
//  2. a non-nil provider attached to ctx
//  3. the process-wide fallback from SetProvider
//
// With none of them set it returns ErrNoProvider.
func ResolveProvider(ctx context.Context, explicit Provider) (Provider, error) {
	if explicit != nil {
		return explicit, nil
	}

	if p, ok := ProviderFromContext(ctx); ok && p != nil {
		return p, nil
	}

	if p := GetProvider(); p != nil {
		return p, nil
	}

	return nil, ErrNoProvider
}
