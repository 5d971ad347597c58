// Package sim defines the client-side view of a driving simulator: the
// connection, world, blueprint and actor operations the rest of carlaview
// needs. Concrete backends register themselves with internal/registry.
package sim

import (
	"context"
	"net"
	"path"
	"strconv"
	"time"
)

// Endpoint addresses a simulator instance.
type Endpoint struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// Address returns host:port.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Client is a connection to one simulator instance.
type Client interface {
	// World returns the currently loaded world.
	World(ctx context.Context) (World, error)

	// LoadWorld replaces the current world with the named town.
	LoadWorld(ctx context.Context, town string) (World, error)

	// TrafficManager returns the traffic manager listening on port.
	TrafficManager(port int) (TrafficManager, error)

	// Close releases the connection. Actors are not destroyed.
	Close() error
}

// World is the live simulation.
type World interface {
	Settings() WorldSettings
	ApplySettings(s WorldSettings) error

	// Tick advances a synchronous world by one step and returns the new
	// frame number once every sensor callback for that step has been delivered.
	Tick(ctx context.Context) (uint64, error)

	// WaitForTick blocks until the next step of a free-running world.
	WaitForTick(ctx context.Context) (uint64, error)

	SetWeather(w Weather) error
	Weather() Weather

	Blueprints() BlueprintLibrary
	Map() Map

	// SpawnActor creates an actor, attached to parent when parent is non-nil.
	SpawnActor(bp Blueprint, t Transform, parent Actor) (Actor, error)

	// TrySpawnActor is like SpawnActor but reports failure with ok=false,
	// for example when the spawn point is occupied.
	TrySpawnActor(bp Blueprint, t Transform, parent Actor) (Actor, bool)

	// Actors lists live actors whose type ID matches a glob pattern.
	Actors(pattern string) []Actor
}

// Map is the static road network of a world.
type Map interface {
	Name() string
	SpawnPoints() []Transform

	// Waypoint projects loc onto the nearest driving lane.
	Waypoint(loc Location) (Waypoint, bool)
}

// BlueprintLibrary lists the actor templates a world can spawn.
type BlueprintLibrary interface {
	Find(id string) (Blueprint, error)
	Filter(pattern string) []Blueprint
}

// Blueprint is a template for spawning an actor. Blueprints returned by a
// library are copies; setting attributes does not affect the library.
type Blueprint interface {
	ID() string
	HasAttribute(id string) bool
	Attribute(id string) (Attribute, bool)
	SetAttribute(id, value string) error
}

// Actor is any spawned simulator object.
type Actor interface {
	ID() int
	TypeID() string
	IsAlive() bool
	Destroy() error
}

// Vehicle is an actor that accepts control commands.
type Vehicle interface {
	Actor
	ApplyControl(c VehicleControl) error
	Control() VehicleControl
	Transform() Transform
	Velocity() Vector3
	Acceleration() Vector3
	SetAutopilot(enabled bool, tmPort int) error
}

// Sensor is an actor that delivers measurements to a listener.
type Sensor interface {
	Actor
	Listen(fn func(Measurement)) error
	Stop() error
	IsListening() bool
}

// TrafficManager drives autopilot vehicles.
type TrafficManager interface {
	Port() int
	SetSynchronousMode(enabled bool) error
}

// MatchPattern reports whether a type ID matches a glob pattern such as
// "*model3*" or "vehicle.*". Malformed patterns match nothing.
func MatchPattern(pattern, typeID string) bool {
	ok, err := path.Match(pattern, typeID)
	return err == nil && ok
}
