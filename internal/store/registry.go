package store

import (
	"fmt"
	"sync"
)

// Factory constructs a gateway from an opaque options value supplied by the
// binding's configuration section.
type Factory func(opts any) (Gateway, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// RegisterBinding registers a gateway factory under a binding name. Bindings
// register themselves from an init func; selection happens once at startup via
// the STORE_BINDING configuration value, so call sites never name a concrete
// implementation.
func RegisterBinding(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("store: binding %q registered twice", name))
	}
	factories[name] = f
}

// NewGateway builds the gateway for the named binding.
func NewGateway(binding string, opts any) (Gateway, error) {
	factoriesMu.RLock()
	f, ok := factories[binding]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store: unknown binding %q", binding)
	}
	return f(opts)
}
