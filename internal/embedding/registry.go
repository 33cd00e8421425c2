package embedding

import (
	"sort"

	"github.com/citewise/citewise/internal/errs"
)

// Registry holds the embedders constructed at startup, keyed by provider
// name. The default provider serves requests that name no provider.
type Registry struct {
	embedders   map[string]Embedder
	defaultName string
}

// NewRegistry creates a registry with the given default provider name. The
// default must be registered before use.
func NewRegistry(defaultName string) *Registry {
	return &Registry{
		embedders:   make(map[string]Embedder),
		defaultName: defaultName,
	}
}

// Register adds an embedder under the given provider name, replacing any
// previous registration.
func (r *Registry) Register(name string, e Embedder) {
	r.embedders[name] = e
}

// Get resolves a provider name to an embedder. An empty name resolves to
// the default provider.
func (r *Registry) Get(name string) (Embedder, error) {
	if name == "" {
		name = r.defaultName
	}
	e, ok := r.embedders[name]
	if !ok {
		return nil, errs.Validationf("unknown embedding provider: %s", name)
	}
	return e, nil
}

// DefaultName returns the default provider name.
func (r *Registry) DefaultName() string {
	return r.defaultName
}

// ResolveName maps an empty override to the default provider name.
func (r *Registry) ResolveName(name string) string {
	if name == "" {
		return r.defaultName
	}
	return name
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.embedders))
	for name := range r.embedders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes all registered embedders, returning the first error.
func (r *Registry) Close() error {
	var firstErr error
	for _, e := range r.embedders {
		if err := e.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
