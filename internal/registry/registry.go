// Package registry provides a global registry for simulator backends.
// Backends register themselves in init() functions, allowing the CLI
// to connect to any of them by name without hardcoded dependencies.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vovakirdan/carlaview/internal/sim"
)

// ErrUnknownBackend is returned when no backend is registered under a name.
var ErrUnknownBackend = errors.New("registry: unknown backend")

// Dialer opens a connection to a simulator at the given endpoint.
type Dialer func(ctx context.Context, ep sim.Endpoint) (sim.Client, error)

// BackendInfo contains metadata about a registered backend.
type BackendInfo struct {
	Name        string
	Description string
}

type entry struct {
	dial        Dialer
	description string
}

var (
	backends = make(map[string]entry)
	mu       sync.RWMutex
)

// Register adds a backend to the registry.
// Typically called from a backend's init() function.
// Panics if a backend with the same name is already registered.
func Register(name, description string, d Dialer) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := backends[name]; exists {
		panic(fmt.Sprintf("registry: backend %q already registered", name))
	}

	backends[name] = entry{dial: d, description: description}
}

// List returns information about all registered backends, sorted by name.
func List() []BackendInfo {
	mu.RLock()
	defer mu.RUnlock()

	result := make([]BackendInfo, 0, len(backends))
	for name, e := range backends {
		result = append(result, BackendInfo{
			Name:        name,
			Description: e.description,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// Exists checks if a backend with the given name is registered.
func Exists(name string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := backends[name]
	return ok
}

// Dial opens a raw connection through the named backend.
func Dial(ctx context.Context, name string, ep sim.Endpoint) (sim.Client, error) {
	mu.RLock()
	e, ok := backends[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, name)
	}

	return e.dial(ctx, ep)
}

// Connect dials the named backend and verifies the world is reachable.
// Every failure, including an unknown backend, is reported as a
// *sim.ConnectionError.
func Connect(ctx context.Context, name string, ep sim.Endpoint) (sim.Client, error) {
	if ep.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ep.Timeout)
		defer cancel()
	}

	client, err := Dial(ctx, name, ep)
	if err != nil {
		return nil, &sim.ConnectionError{Host: ep.Host, Port: ep.Port, Err: err}
	}

	if _, err := client.World(ctx); err != nil {
		_ = client.Close()
		return nil, &sim.ConnectionError{Host: ep.Host, Port: ep.Port, Err: err}
	}

	return client, nil
}
