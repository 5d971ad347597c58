package fake

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font"

	"github.com/vovakirdan/carlaview/internal/overlay"
	"github.com/vovakirdan/carlaview/internal/sim"
)

// defaultDelta is the step used when no fixed delta is configured.
const defaultDelta = 0.05

// minSpawnClearance is the distance under which a vehicle spawn collides.
const minSpawnClearance = 2.0

// World is an in-process simulated world. Tick delivers every listening
// sensor's measurement synchronously, outside the world lock, before it
// returns.
type World struct {
	mu       sync.Mutex
	settings sim.WorldSettings
	weather  sim.Weather
	m        *worldMap
	lib      *library
	actors   map[int]actor
	nextID   int
	frame    uint64
	elapsed  float64
	face     font.Face
}

var _ sim.World = (*World)(nil)

func newWorld(town string) *World {
	face, _ := overlay.NewFace(10)
	return &World{
		m:      newMap(town),
		lib:    &library{bps: defaultBlueprints()},
		actors: make(map[int]actor),
		nextID: 1,
		face:   face,
	}
}

func (w *World) Settings() sim.WorldSettings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings
}

func (w *World) ApplySettings(s sim.WorldSettings) error {
	if s.FixedDeltaSeconds < 0 {
		return fmt.Errorf("fake: negative fixed delta %v", s.FixedDeltaSeconds)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.settings = s
	return nil
}

// Frame returns the current frame number.
func (w *World) Frame() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frame
}

func (w *World) Tick(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return w.step(), nil
}

// ErrStalled is returned by WaitForTick on a synchronous world. A real
// server would block until a client ticks it.
var ErrStalled = errors.New("fake: synchronous world waits for a client tick")

// WaitForTick advances the world as a free-running server would.
func (w *World) WaitForTick(ctx context.Context) (uint64, error) {
	if w.Settings().SynchronousMode {
		return 0, ErrStalled
	}
	return w.Tick(ctx)
}

type delivery struct {
	fn func(sim.Measurement)
	m  sim.Measurement
}

func (w *World) step() uint64 {
	w.mu.Lock()

	dt := w.settings.FixedDeltaSeconds
	if dt <= 0 {
		dt = defaultDelta
	}
	w.frame++
	w.elapsed += dt

	ids := w.sortedIDs()
	for _, id := range ids {
		if v, ok := w.actors[id].(*vehicle); ok {
			v.step(dt)
		}
	}

	var out []delivery
	for _, id := range ids {
		s, ok := w.actors[id].(*sensor)
		if !ok || s.listener == nil || !s.due(w.elapsed) {
			continue
		}
		m := w.measure(s, dt)
		m.Transform = w.worldTransform(s)
		out = append(out, delivery{fn: s.listener, m: m})
	}
	frame := w.frame
	w.mu.Unlock()

	for _, d := range out {
		d.fn(d.m)
	}
	return frame
}

// measure synthesises one measurement. Caller holds the lock.
func (w *World) measure(s *sensor, dt float64) sim.Measurement {
	p := w.poseOf(s)
	switch {
	case s.typeID == BlueprintCamera:
		return w.renderCamera(s, p)
	case s.typeID == BlueprintLidar:
		return w.lidarScan(s, dt, false)
	case s.typeID == BlueprintSemanticLidar:
		return w.lidarScan(s, dt, true)
	case s.typeID == BlueprintRadar:
		return w.radarScan(s, p, dt)
	default:
		return sim.Measurement{Frame: w.frame, Timestamp: w.elapsed}
	}
}

func (w *World) poseOf(s *sensor) pose {
	v, ok := w.actors[s.parent].(*vehicle)
	if !ok || !v.alive {
		return pose{loc: s.transform.Location}
	}
	return pose{
		loc:      v.transform.Location,
		yaw:      v.yaw,
		offset:   w.m.lateralOffset(v.transform.Location),
		odometer: v.odometer,
		speed:    v.speed,
	}
}

func (w *World) worldTransform(s *sensor) sim.Transform {
	v, ok := w.actors[s.parent].(*vehicle)
	if !ok {
		return s.transform
	}
	pt := v.transformLocked()
	rad := pt.Rotation.Yaw * math.Pi / 180
	rel := s.transform.Location
	return sim.Transform{
		Location: sim.Location{
			X: pt.Location.X + rel.X*math.Cos(rad) - rel.Y*math.Sin(rad),
			Y: pt.Location.Y + rel.X*math.Sin(rad) + rel.Y*math.Cos(rad),
			Z: pt.Location.Z + rel.Z,
		},
		Rotation: sim.Rotation{
			Pitch: pt.Rotation.Pitch + s.transform.Rotation.Pitch,
			Yaw:   math.Remainder(pt.Rotation.Yaw+s.transform.Rotation.Yaw, 360),
			Roll:  pt.Rotation.Roll + s.transform.Rotation.Roll,
		},
	}
}

func (w *World) SetWeather(wp sim.Weather) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.weather = wp
	return nil
}

func (w *World) Weather() sim.Weather {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.weather
}

func (w *World) Blueprints() sim.BlueprintLibrary { return w.lib }

func (w *World) Map() sim.Map { return w.m }

func (w *World) SpawnActor(bp sim.Blueprint, t sim.Transform, parent sim.Actor) (sim.Actor, error) {
	fb, ok := bp.(*blueprint)
	if !ok || fb == nil {
		return nil, fmt.Errorf("fake: foreign blueprint %T", bp)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	parentID := 0
	if parent != nil {
		pa, ok := w.actors[parent.ID()]
		if !ok || !pa.base().alive {
			return nil, fmt.Errorf("fake: parent actor %d is not alive", parent.ID())
		}
		parentID = parent.ID()
	}

	base := actorBase{
		world:     w,
		id:        w.nextID,
		typeID:    fb.id,
		bp:        fb.clone(),
		transform: t,
		parent:    parentID,
		alive:     true,
	}

	var a actor
	switch {
	case strings.HasPrefix(fb.id, "vehicle."):
		for _, other := range w.actors {
			ov, ok := other.(*vehicle)
			if ok && ov.transform.Location.Distance(t.Location) < minSpawnClearance {
				return nil, fmt.Errorf("fake: spawn failed because of collision at spawn position %s", t.Location)
			}
		}
		a = &vehicle{actorBase: base, yaw: t.Rotation.Yaw}
	case strings.HasPrefix(fb.id, "sensor."):
		a = &sensor{actorBase: base, lastTime: w.elapsed}
	default:
		return nil, fmt.Errorf("fake: cannot spawn %s", fb.id)
	}

	w.actors[w.nextID] = a
	w.nextID++
	return a, nil
}

func (w *World) TrySpawnActor(bp sim.Blueprint, t sim.Transform, parent sim.Actor) (sim.Actor, bool) {
	a, err := w.SpawnActor(bp, t, parent)
	if err != nil {
		return nil, false
	}
	return a, true
}

func (w *World) Actors(pattern string) []sim.Actor {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []sim.Actor
	for _, id := range w.sortedIDs() {
		a := w.actors[id]
		if sim.MatchPattern(pattern, a.TypeID()) {
			out = append(out, a)
		}
	}
	return out
}

// Len returns the number of live actors.
func (w *World) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.actors)
}

func (w *World) destroy(id int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	a, ok := w.actors[id]
	if !ok {
		return errDestroyed(id)
	}
	a.base().alive = false
	if s, ok := a.(*sensor); ok {
		s.listener = nil
	}
	delete(w.actors, id)
	return nil
}

// destroyAll removes every actor, as loading a new map does.
func (w *World) destroyAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, a := range w.actors {
		a.base().alive = false
		if s, ok := a.(*sensor); ok {
			s.listener = nil
		}
		delete(w.actors, id)
	}
}

func (w *World) sortedIDs() []int {
	ids := make([]int, 0, len(w.actors))
	for id := range w.actors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
