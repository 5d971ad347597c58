// Package sensor spawns simulator sensors on a vehicle and turns their raw
// measurements into frames for the display grid.
package sensor

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/carlaview/internal/core"
	"github.com/vovakirdan/carlaview/internal/display"
	"github.com/vovakirdan/carlaview/internal/sim"
)

// Defaults applied before per-sensor options.
const (
	DefaultCameraSize      = 256
	DefaultLidarRange      = 100.0
	DefaultRangeMultiplier = 2.0
)

// Config describes one sensor: what to spawn, where to mount it on the
// vehicle, blueprint attribute overrides and the grid cell it draws into.
type Config struct {
	Kind      Kind
	Transform sim.Transform
	Options   map[string]string
	Cell      display.Cell
}

// Option customises a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for conversion failures.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithRangeMultiplier sets the point cloud range multiplier.
func WithRangeMultiplier(x float64) Option {
	return func(m *Manager) { m.multiplier = x }
}

// WithColor sets the point cloud color.
func WithColor(c core.Color) Option {
	return func(m *Manager) { m.color = c }
}

// WithCameraSize sets the camera image size requested before options apply.
func WithCameraSize(w, h int) Option {
	return func(m *Manager) { m.cameraW, m.cameraH = w, h }
}

// Manager owns one spawned sensor. Measurement callbacks may arrive on any
// goroutine; each converted frame replaces the previous one in a single
// slot, and readers always see a complete frame.
type Manager struct {
	kind   Kind
	cell   display.Cell
	sensor sim.Sensor
	logger *log.Logger

	cellW, cellH int
	rangeM       float64
	multiplier   float64
	color        core.Color
	cameraW      int
	cameraH      int

	slot  atomic.Pointer[core.Frame]
	radar atomic.Pointer[[]RadarDetection]
	stats Stats

	destroyOnce sync.Once
	destroyErr  error
}

// New spawns a sensor attached to parent, starts listening and registers
// the manager with dm.
func New(world sim.World, dm *display.Manager, cfg Config, parent sim.Actor, opts ...Option) (*Manager, error) {
	m := &Manager{
		kind:       cfg.Kind,
		cell:       cfg.Cell,
		logger:     log.Default(),
		multiplier: DefaultRangeMultiplier,
		color:      core.ColorWhite,
		cameraW:    DefaultCameraSize,
		cameraH:    DefaultCameraSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cellW, m.cellH = dm.CellSize()

	if !dm.Contains(cfg.Cell) {
		return nil, fmt.Errorf("sensor: %s cell %s outside the grid", cfg.Kind, cfg.Cell)
	}

	bp, err := m.blueprint(world, cfg.Options)
	if err != nil {
		return nil, err
	}
	if cfg.Kind == KindLiDAR || cfg.Kind == KindSemanticLiDAR {
		a, _ := bp.Attribute("range")
		m.rangeM, err = strconv.ParseFloat(a.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("sensor: %s range %q: %w", cfg.Kind, a.Value, err)
		}
	}

	actor, err := world.SpawnActor(bp, cfg.Transform, parent)
	if err != nil {
		return nil, fmt.Errorf("sensor: spawn %s: %w", cfg.Kind, err)
	}
	s, ok := actor.(sim.Sensor)
	if !ok {
		_ = actor.Destroy()
		return nil, fmt.Errorf("sensor: %s is not a sensor", actor.TypeID())
	}
	m.sensor = s

	if err := s.Listen(m.handle); err != nil {
		_ = s.Destroy()
		return nil, fmt.Errorf("sensor: listen %s: %w", cfg.Kind, err)
	}
	if err := dm.Add(m); err != nil {
		_ = m.Destroy()
		return nil, err
	}
	return m, nil
}

// blueprint prepares the blueprint: kind defaults first, then options in
// sorted key order.
func (m *Manager) blueprint(world sim.World, options map[string]string) (sim.Blueprint, error) {
	id := m.kind.Blueprint()
	if id == "" {
		return nil, fmt.Errorf("sensor: unsupported kind %s", m.kind)
	}
	bp, err := world.Blueprints().Find(id)
	if err != nil {
		return nil, fmt.Errorf("sensor: find blueprint: %w", err)
	}

	set := func(k, v string) error {
		if err := bp.SetAttribute(k, v); err != nil {
			return fmt.Errorf("sensor: %s attribute %s=%s: %w", m.kind, k, v, err)
		}
		return nil
	}

	switch m.kind {
	case KindRGBCamera:
		if err := set("image_size_x", strconv.Itoa(m.cameraW)); err != nil {
			return nil, err
		}
		if err := set("image_size_y", strconv.Itoa(m.cameraH)); err != nil {
			return nil, err
		}
	case KindLiDAR:
		if err := set("range", strconv.FormatFloat(DefaultLidarRange, 'f', -1, 64)); err != nil {
			return nil, err
		}
		for _, attr := range []string{"dropoff_general_rate", "dropoff_intensity_limit", "dropoff_zero_intensity"} {
			a, ok := bp.Attribute(attr)
			if !ok || len(a.Recommended) == 0 {
				continue
			}
			if err := set(attr, a.Recommended[0]); err != nil {
				return nil, err
			}
		}
	case KindSemanticLiDAR:
		if err := set("range", strconv.FormatFloat(DefaultLidarRange, 'f', -1, 64)); err != nil {
			return nil, err
		}
	}

	for _, k := range slices.Sorted(maps.Keys(options)) {
		if err := set(k, options[k]); err != nil {
			return nil, err
		}
	}
	return bp, nil
}

// handle converts one measurement and stores the result.
func (m *Manager) handle(meas sim.Measurement) {
	start := time.Now()
	defer func() { m.stats.Add(time.Since(start)) }()

	switch m.kind {
	case KindRGBCamera:
		f, err := ConvertBGRA(meas.Raw, meas.Width, meas.Height)
		if err != nil {
			m.logger.Warn("drop camera frame", "frame", meas.Frame, "err", err)
			return
		}
		m.slot.Store(f)
	case KindLiDAR, KindSemanticLiDAR:
		f, err := RasterizePoints(meas.Raw, m.kind.Stride(), m.raster())
		if err != nil {
			m.logger.Warn("drop point cloud", "sensor", m.kind, "frame", meas.Frame, "err", err)
			return
		}
		m.slot.Store(f)
	case KindRadar:
		d, err := ParseRadar(meas.Raw)
		if err != nil {
			m.logger.Warn("drop radar measurement", "frame", meas.Frame, "err", err)
			return
		}
		m.radar.Store(&d)
	}
}

func (m *Manager) raster() Raster {
	return Raster{
		Width:      m.cellW,
		Height:     m.cellH,
		Range:      m.rangeM,
		Multiplier: m.multiplier,
		Color:      m.color,
	}
}

// Kind returns the sensor kind.
func (m *Manager) Kind() Kind {
	return m.kind
}

// Cell implements display.Source.
func (m *Manager) Cell() display.Cell {
	return m.cell
}

// Frame implements display.Source. It returns nil until the first
// measurement has been converted, and always nil for radar.
func (m *Manager) Frame() *core.Frame {
	return m.slot.Load()
}

// Detections returns the latest radar detections.
func (m *Manager) Detections() []RadarDetection {
	d := m.radar.Load()
	if d == nil {
		return nil
	}
	return *d
}

// Sensor returns the spawned sensor actor.
func (m *Manager) Sensor() sim.Sensor {
	return m.sensor
}

// Stats returns processing time statistics.
func (m *Manager) Stats() StatsSnapshot {
	return m.stats.Snapshot()
}

// Destroy stops and destroys the sensor. Later calls return the first
// result.
func (m *Manager) Destroy() error {
	m.destroyOnce.Do(func() {
		if m.sensor == nil {
			return
		}
		m.destroyErr = sim.DestroyActor(m.sensor)
	})
	return m.destroyErr
}
