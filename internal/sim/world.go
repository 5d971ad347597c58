package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

// SetupSynchronousMode puts the traffic manager and the world into
// synchronous mode with a fixed step. It returns the settings that were in
// effect before, to be restored on exit.
func SetupSynchronousMode(w World, tm TrafficManager, fixedDelta float64) (WorldSettings, error) {
	original := w.Settings()

	if tm != nil {
		if err := tm.SetSynchronousMode(true); err != nil {
			return original, fmt.Errorf("sim: enable traffic manager sync mode: %w", err)
		}
	}

	settings := w.Settings()
	settings.SynchronousMode = true
	settings.FixedDeltaSeconds = fixedDelta
	if err := w.ApplySettings(settings); err != nil {
		return original, fmt.Errorf("sim: apply synchronous settings: %w", err)
	}
	return original, nil
}

// RestoreSettings re-applies previously saved world settings.
func RestoreSettings(w World, s WorldSettings) error {
	if err := w.ApplySettings(s); err != nil {
		return fmt.Errorf("sim: restore world settings: %w", err)
	}
	return nil
}

// VehicleBlueprint returns the first blueprint matching filter.
func VehicleBlueprint(w World, filter string) (Blueprint, error) {
	bps := w.Blueprints().Filter(filter)
	if len(bps) == 0 {
		return nil, &SpawnError{
			Reason: SpawnNoBlueprint,
			Detail: fmt.Sprintf("no vehicle blueprints found matching pattern: %s", filter),
		}
	}
	return bps[0], nil
}

// SpawnPointsByRoad returns the spawn points whose projected waypoint lies
// on one of roadIDs.
func SpawnPointsByRoad(m Map, roadIDs []int) []Transform {
	var points []Transform
	for _, p := range m.SpawnPoints() {
		wp, ok := m.Waypoint(p.Location)
		if !ok {
			continue
		}
		if slices.Contains(roadIDs, wp.RoadID) {
			points = append(points, p)
		}
	}
	return points
}

// SpawnOptions controls vehicle spawning. Zero values select a blueprint
// by Filter and a random spawn point.
type SpawnOptions struct {
	Blueprint  Blueprint
	Filter     string
	SpawnPoint *Transform
	Autopilot  bool
	TMPort     int
	Rand       *rand.Rand
}

func (o SpawnOptions) blueprint(w World) (Blueprint, error) {
	if o.Blueprint != nil {
		return o.Blueprint, nil
	}
	return VehicleBlueprint(w, o.Filter)
}

func (o SpawnOptions) pick(points []Transform) Transform {
	if o.Rand != nil {
		return points[o.Rand.IntN(len(points))]
	}
	return points[rand.IntN(len(points))]
}

// SpawnVehicle spawns a vehicle at opts.SpawnPoint, or at a random map
// spawn point, and sets its autopilot.
func SpawnVehicle(w World, opts SpawnOptions) (Vehicle, error) {
	bp, err := opts.blueprint(w)
	if err != nil {
		return nil, err
	}

	var point Transform
	if opts.SpawnPoint != nil {
		point = *opts.SpawnPoint
	} else {
		points := w.Map().SpawnPoints()
		if len(points) == 0 {
			return nil, &SpawnError{Reason: SpawnNoSpawnPoint, Detail: "no spawn points available in the map"}
		}
		point = opts.pick(points)
	}

	return spawnAt(w, bp, point, opts)
}

// SpawnVehicleOnRoad spawns a vehicle at a random spawn point on one of
// roadIDs, then waits settle for the vehicle to drop onto the road.
// The wait is cut short when ctx is cancelled; the vehicle is still returned.
func SpawnVehicleOnRoad(ctx context.Context, w World, roadIDs []int, settle time.Duration, opts SpawnOptions) (Vehicle, error) {
	bp, err := opts.blueprint(w)
	if err != nil {
		return nil, err
	}

	points := SpawnPointsByRoad(w.Map(), roadIDs)
	if len(points) == 0 {
		return nil, &SpawnError{
			Reason: SpawnNoSpawnPoint,
			Detail: fmt.Sprintf("no spawn points found on road IDs: %v", roadIDs),
		}
	}

	v, err := spawnAt(w, bp, opts.pick(points), opts)
	if err != nil {
		return nil, err
	}

	if settle > 0 {
		t := time.NewTimer(settle)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		}
	}
	return v, nil
}

func spawnAt(w World, bp Blueprint, point Transform, opts SpawnOptions) (Vehicle, error) {
	actor, ok := w.TrySpawnActor(bp, point, nil)
	if !ok {
		return nil, &SpawnError{
			Reason: SpawnCollision,
			Detail: fmt.Sprintf("failed to spawn vehicle at %s", point.Location),
		}
	}

	v, ok := actor.(Vehicle)
	if !ok {
		_ = actor.Destroy()
		return nil, &SpawnError{
			Reason: SpawnNoBlueprint,
			Detail: fmt.Sprintf("blueprint %s did not produce a vehicle", bp.ID()),
		}
	}

	if err := v.SetAutopilot(opts.Autopilot, opts.TMPort); err != nil {
		_ = v.Destroy()
		return nil, fmt.Errorf("sim: set autopilot: %w", err)
	}
	return v, nil
}

// FindVehicle returns the first live vehicle whose type ID matches pattern.
func FindVehicle(w World, pattern string) (Vehicle, error) {
	for _, a := range w.Actors(pattern) {
		if v, ok := a.(Vehicle); ok && v.IsAlive() {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: no vehicle matching %q", ErrVehicleNotFound, pattern)
}

// DestroyActor destroys a live actor. Nil and already destroyed actors are
// ignored.
func DestroyActor(a Actor) error {
	if a == nil || !a.IsAlive() {
		return nil
	}
	if s, ok := a.(Sensor); ok && s.IsListening() {
		if err := s.Stop(); err != nil {
			return fmt.Errorf("sim: stop sensor %d: %w", a.ID(), err)
		}
	}
	if err := a.Destroy(); err != nil {
		return fmt.Errorf("sim: destroy actor %d (%s): %w", a.ID(), a.TypeID(), err)
	}
	return nil
}

// DestroyActors destroys every actor, continuing past failures.
func DestroyActors(actors []Actor) error {
	var errs []error
	for _, a := range actors {
		if err := DestroyActor(a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DestroyAllVehicles destroys every vehicle in the world.
func DestroyAllVehicles(w World) error {
	return DestroyActors(w.Actors("*vehicle*"))
}

// DestroyAllSensors destroys every sensor in the world.
func DestroyAllSensors(w World) error {
	return DestroyActors(w.Actors("*sensor*"))
}
