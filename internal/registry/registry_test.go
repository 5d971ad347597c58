package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/carlaview/internal/sim"
)

type stubClient struct {
	worldErr error
	closed   bool
}

func (c *stubClient) World(context.Context) (sim.World, error)             { return nil, c.worldErr }
func (c *stubClient) LoadWorld(context.Context, string) (sim.World, error) { return nil, c.worldErr }
func (c *stubClient) TrafficManager(int) (sim.TrafficManager, error)       { return nil, nil }
func (c *stubClient) Close() error                                         { c.closed = true; return nil }

func TestRegisterAndList(t *testing.T) {
	Register("test-list-b", "second", func(context.Context, sim.Endpoint) (sim.Client, error) { return &stubClient{}, nil })
	Register("test-list-a", "first", func(context.Context, sim.Endpoint) (sim.Client, error) { return &stubClient{}, nil })

	assert.True(t, Exists("test-list-a"))
	assert.False(t, Exists("test-list-missing"))

	var names []string
	for _, b := range List() {
		names = append(names, b.Name)
	}
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "test-list-a")
}

func TestRegisterDuplicatePanics(t *testing.T) {
	d := func(context.Context, sim.Endpoint) (sim.Client, error) { return &stubClient{}, nil }
	Register("test-dup", "", d)
	assert.Panics(t, func() { Register("test-dup", "", d) })
}

func TestDialUnknown(t *testing.T) {
	_, err := Dial(context.Background(), "test-nope", sim.Endpoint{})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestConnectWrapsFailures(t *testing.T) {
	ep := sim.Endpoint{Host: "10.0.0.1", Port: 2000}

	_, err := Connect(context.Background(), "test-nope", ep)
	require.ErrorIs(t, err, sim.ErrConnection)
	assert.ErrorIs(t, err, ErrUnknownBackend)

	stub := &stubClient{worldErr: errors.New("timeout")}
	Register("test-noworld", "", func(context.Context, sim.Endpoint) (sim.Client, error) { return stub, nil })

	_, err = Connect(context.Background(), "test-noworld", ep)
	var ce *sim.ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "10.0.0.1", ce.Host)
	assert.True(t, stub.closed, "a client whose world is unreachable is closed")

	Register("test-refused", "", func(context.Context, sim.Endpoint) (sim.Client, error) {
		return nil, errors.New("connection refused")
	})
	_, err = Connect(context.Background(), "test-refused", ep)
	assert.ErrorIs(t, err, sim.ErrConnection)
}
