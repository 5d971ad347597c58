package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection is matched by every failure to reach a simulator.
	ErrConnection = errors.New("sim: connection failed")

	// ErrSpawn is matched by every failure to spawn a vehicle.
	ErrSpawn = errors.New("sim: spawn failed")

	// ErrVehicleNotFound is returned when no live vehicle matches a pattern.
	ErrVehicleNotFound = errors.New("sim: vehicle not found")
)

// ConnectionError reports a failed connection attempt. It is fatal to startup.
type ConnectionError struct {
	Host string
	Port int
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("sim: failed to connect to simulator at %s:%d: %v", e.Host, e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrConnection) true for any ConnectionError.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnection
}

// SpawnReason classifies a SpawnError.
type SpawnReason int

const (
	SpawnNoBlueprint SpawnReason = iota
	SpawnNoSpawnPoint
	SpawnCollision
)

func (r SpawnReason) String() string {
	switch r {
	case SpawnNoBlueprint:
		return "no blueprint"
	case SpawnNoSpawnPoint:
		return "no spawn point"
	case SpawnCollision:
		return "collision"
	default:
		return "unknown"
	}
}

// SpawnError reports a failed vehicle spawn. Callers may retry with other
// parameters.
type SpawnError struct {
	Reason SpawnReason
	Detail string
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("sim: spawn failed (%s): %s", e.Reason, e.Detail)
}

// Is makes errors.Is(err, ErrSpawn) true for any SpawnError.
func (e *SpawnError) Is(target error) bool {
	return target == ErrSpawn
}
