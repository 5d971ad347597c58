// Package fake is an in-process simulator backend. It serves a
// deterministic straight-street town with a kinematic vehicle model and
// synthetic camera, lidar, semantic lidar and radar output, so every
// carlaview command and loop can run without a simulator server.
//
// Importing the package registers it under the name "fake".
package fake

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/vovakirdan/carlaview/internal/registry"
	"github.com/vovakirdan/carlaview/internal/sim"
)

// Name is the registry name of this backend.
const Name = "fake"

// DefaultTown is the town loaded on connect.
const DefaultTown = "Town05"

// Towns lists the town names LoadWorld accepts.
var Towns = []string{"Town01", "Town02", "Town03", "Town04", "Town05", "Town10HD"}

// ErrClosed is returned by a closed client.
var ErrClosed = errors.New("fake: client closed")

func init() {
	registry.Register(Name, "in-process synthetic simulator", Dial)
}

// Dial connects to the fake simulator. Ports outside 1..65535 and empty
// hosts are refused, as a real server would be unreachable there.
func Dial(ctx context.Context, ep sim.Endpoint) (sim.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ep.Host == "" {
		return nil, errors.New("fake: empty host")
	}
	if ep.Port <= 0 || ep.Port > 65535 {
		return nil, fmt.Errorf("fake: connection refused on port %d", ep.Port)
	}
	return New(), nil
}

// Client is a connection to a fake simulator.
type Client struct {
	mu     sync.Mutex
	world  *World
	tms    map[int]*trafficManager
	closed bool
}

var _ sim.Client = (*Client)(nil)

// New returns a client with DefaultTown loaded.
func New() *Client {
	return &Client{
		world: newWorld(DefaultTown),
		tms:   make(map[int]*trafficManager),
	}
}

func (c *Client) World(ctx context.Context) (sim.World, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	return c.world, nil
}

// FakeWorld returns the concrete world for inspection in tests.
func (c *Client) FakeWorld() *World {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.world
}

func (c *Client) LoadWorld(ctx context.Context, town string) (sim.World, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !slices.Contains(Towns, town) {
		return nil, fmt.Errorf("fake: unknown town %q", town)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	c.world.destroyAll()
	c.world = newWorld(town)
	return c.world, nil
}

func (c *Client) TrafficManager(port int) (sim.TrafficManager, error) {
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("fake: invalid traffic manager port %d", port)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	tm, ok := c.tms[port]
	if !ok {
		tm = &trafficManager{port: port}
		c.tms[port] = tm
	}
	return tm, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type trafficManager struct {
	mu   sync.Mutex
	port int
	sync bool
}

func (t *trafficManager) Port() int { return t.port }

func (t *trafficManager) SetSynchronousMode(enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sync = enabled
	return nil
}

// Synchronous reports the last mode set.
func (t *trafficManager) Synchronous() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sync
}
