package annotation

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/agnivade/levenshtein"
)

// ErrUnknownProperty is returned when no registered provider serves a property
var ErrUnknownProperty = errors.New("unknown property")

// Provider computes overlay text for the properties it supports
type Provider interface {
	CanProvideValueForPropertyName(propertyName string) bool
	GetValueForPropertyName(propertyName string, attrs Attributes, slice *Slice) (string, error)
	SupportedProperties() []string
}

// Registry holds named providers in registration order
type Registry struct {
	mu        sync.RWMutex
	names     []string
	providers map[string]Provider
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds p under name. A second registration under the same name is
// refused with a warning.
func (r *Registry) Register(name string, p Provider) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; ok {
		slog.Warn("annotation provider already registered", slog.String("provider", name))
		return false
	}
	r.providers[name] = p
	r.names = append(r.names, name)
	return true
}

// Names returns provider names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Provider returns the provider registered under name
func (r *Registry) Provider(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Lookup returns the first provider, in registration order, serving propertyName
func (r *Registry) Lookup(propertyName string) (string, Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range r.names {
		if p := r.providers[name]; p.CanProvideValueForPropertyName(propertyName) {
			return name, p, true
		}
	}
	return "", nil, false
}

// Value resolves propertyName with the first provider that serves it
func (r *Registry) Value(propertyName string, attrs Attributes, slice *Slice) (string, error) {
	_, p, ok := r.Lookup(propertyName)
	if !ok {
		return "", fmt.Errorf("%q: %w", propertyName, ErrUnknownProperty)
	}
	return p.GetValueForPropertyName(propertyName, attrs, slice)
}

// Properties returns every supported property name, sorted
func (r *Registry) Properties() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, name := range r.names {
		for _, prop := range r.providers[name].SupportedProperties() {
			if !seen[prop] {
				seen[prop] = true
				out = append(out, prop)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Suggest returns the supported property closest to propertyName, or "" if
// nothing is within a third of its length (minimum 2 edits).
func (r *Registry) Suggest(propertyName string) string {
	limit := len(propertyName) / 3
	if limit < 2 {
		limit = 2
	}
	best, bestDist := "", limit+1
	for _, prop := range r.Properties() {
		if d := levenshtein.ComputeDistance(propertyName, prop); d < bestDist {
			best, bestDist = prop, d
		}
	}
	return best
}
