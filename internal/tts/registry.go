package tts

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// MockName is the reserved registry key for the deterministic fallback
// provider.
const MockName = "mock"

// ProviderFactory constructs the default provider during lazy population.
type ProviderFactory func() (Provider, error)

// Registry maps provider names to providers. It populates itself on first
// use: the configured default is attempted and skipped if its assets are
// missing, lazy extras are attempted the same way, and the mock is always
// available under MockName. Explicit Register calls before first use
// suppress population entirely.
type Registry struct {
	mu          sync.Mutex
	providers   map[string]Provider
	defaultName string
	newDefault  ProviderFactory
	extras      []namedFactory
	fallback    Provider
}

type namedFactory struct {
	name  string
	build ProviderFactory
}

// NewRegistry builds an empty registry. newDefault may be nil when no
// engine-backed provider is configured; fallback may be nil to run
// without the mock safety net.
func NewRegistry(defaultName string, newDefault ProviderFactory, fallback Provider) *Registry {
	if defaultName == "" {
		defaultName = MockName
	}
	return &Registry{
		providers:   make(map[string]Provider),
		defaultName: defaultName,
		newDefault:  newDefault,
		fallback:    fallback,
	}
}

// AddLazy queues another provider for lazy population. Unlike Register it
// does not mark the registry as populated, so the default and the mock
// still come up alongside it.
func (r *Registry) AddLazy(name string, build ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extras = append(r.extras, namedFactory{name: name, build: build})
}

// DefaultName reports the provider used when a request names none.
func (r *Registry) DefaultName() string { return r.defaultName }

// Register adds or replaces a provider under name.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; ok {
		slog.Debug("replacing registered provider", "name", name)
	}
	r.providers[name] = p
}

// Get resolves a provider by name, or the default when name is empty.
// When the default itself is unavailable the mock stands in for it;
// any other unknown name is an error listing what is registered.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.providers) == 0 {
		r.populateLocked()
	}
	if name == "" {
		name = r.defaultName
	}
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	if name == r.defaultName {
		if mock, ok := r.providers[MockName]; ok {
			slog.Warn("default provider unavailable, serving mock instead", "requested", name)
			return mock, nil
		}
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrProviderNotFound, name, strings.Join(r.namesLocked(), ", "))
}

// Names lists registered provider names in sorted order, populating the
// registry first if it is empty.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.providers) == 0 {
		r.populateLocked()
	}
	return r.namesLocked()
}

func (r *Registry) populateLocked() {
	if r.newDefault != nil {
		r.buildLocked(r.defaultName, r.newDefault)
	}
	for _, f := range r.extras {
		r.buildLocked(f.name, f.build)
	}
	if r.fallback != nil {
		if _, ok := r.providers[MockName]; !ok {
			r.providers[MockName] = r.fallback
		}
	}
}

func (r *Registry) buildLocked(name string, build ProviderFactory) {
	p, err := build()
	switch {
	case err == nil:
		r.providers[name] = p
	case errors.Is(err, ErrAssetNotFound):
		slog.Warn("provider assets missing, continuing without it",
			"provider", name, "error", err)
	default:
		slog.Error("provider failed to initialize",
			"provider", name, "error", err)
	}
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
