package control

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/carlaview/internal/core"
	"github.com/vovakirdan/carlaview/internal/display"
	"github.com/vovakirdan/carlaview/internal/sensor"
	"github.com/vovakirdan/carlaview/internal/sim"
)

// StatsRecorder receives per-sensor timing statistics at the end of a run.
// Recorders may implement it alongside Recorder.
type StatsRecorder interface {
	RecordSensorStats(kind string, s sensor.StatsSnapshot) error
}

// Env carries what every scenario needs besides its own options.
type Env struct {
	Client   sim.Client
	Surface  display.Surface // nil runs headless
	Runtime  core.RuntimeConfig
	Recorder Recorder
	Logger   *log.Logger
	MaxTicks int
}

func (e Env) logger() *log.Logger {
	if e.Logger == nil {
		return log.Default()
	}
	return e.Logger
}

func (e Env) loop(world sim.World, v sim.Vehicle, dm *display.Manager) LoopConfig {
	return LoopConfig{
		World:    world,
		Vehicle:  v,
		Display:  dm,
		Input:    display.Inputs(e.Surface),
		Runtime:  e.Runtime,
		MaxTicks: e.MaxTicks,
		Recorder: e.Recorder,
		Logger:   e.logger(),
	}
}

// VehicleRecorder is told the type of the vehicle a scenario drives.
// Recorders may implement it alongside Recorder.
type VehicleRecorder interface {
	SetVehicle(typeID string) error
}

func (e Env) noteVehicle(v sim.Vehicle) {
	vr, ok := e.Recorder.(VehicleRecorder)
	if !ok {
		return
	}
	if err := vr.SetVehicle(v.TypeID()); err != nil {
		e.logger().Warn("record vehicle", "err", err)
	}
}

func (e Env) saveStats(managers []*sensor.Manager) {
	sr, ok := e.Recorder.(StatsRecorder)
	if !ok {
		return
	}
	for _, m := range managers {
		if err := sr.RecordSensorStats(m.Kind().String(), m.Stats()); err != nil {
			e.logger().Warn("record sensor stats", "sensor", m.Kind(), "err", err)
		}
	}
}

// Guard runs fn and closes sess on every exit path, panics included.
// A cleanup failure is joined to fn's error.
func Guard(ctx context.Context, sess *sim.Session, fn func(context.Context) error) (err error) {
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("control: cleanup: %w", cerr))
		}
	}()
	return fn(ctx)
}

func track(sess *sim.Session, managers []*sensor.Manager) {
	for _, m := range managers {
		sess.Track(m.Sensor())
	}
}

// SensorsOptions configures the multi-sensor grid scenario.
type SensorsOptions struct {
	Sync          bool
	FixedDelta    float64
	TMPort        int
	VehicleFilter string
	Autopilot     bool
	SpawnPoint    *sim.Transform // nil picks a random map spawn point
	Weather       *sim.Weather
	Display       display.Config
	Sensors       []sensor.Config
	SensorOptions []sensor.Option
	Rand          *rand.Rand
}

// DefaultSensorsOptions returns the synchronous six-sensor layout on a
// 1280x720 2x3 grid.
func DefaultSensorsOptions() SensorsOptions {
	w := sim.DefaultWeather()
	return SensorsOptions{
		Sync:          true,
		FixedDelta:    sim.DefaultFixedDelta,
		TMPort:        sim.DefaultTMPort,
		VehicleFilter: sim.DefaultVehicleFilter,
		Weather:       &w,
		Display:       display.DefaultConfig(),
		Sensors:       sensor.DefaultConfigs(),
	}
}

// Sensors spawns a vehicle with the configured sensors and renders them in
// a grid until quit. The vehicle and sensors are destroyed and the world
// settings restored on return.
func Sensors(ctx context.Context, env Env, o SensorsOptions) error {
	logger := env.logger()
	world, err := env.Client.World(ctx)
	if err != nil {
		return fmt.Errorf("control: get world: %w", err)
	}

	sess := sim.NewSession(world, logger)
	sess.RememberSettings(world.Settings())

	return Guard(ctx, sess, func(ctx context.Context) error {
		if o.Sync {
			tm, err := env.Client.TrafficManager(o.TMPort)
			if err != nil {
				return fmt.Errorf("control: traffic manager: %w", err)
			}
			if _, err := sim.SetupSynchronousMode(world, tm, o.FixedDelta); err != nil {
				return err
			}
		}
		if o.Weather != nil {
			if err := world.SetWeather(*o.Weather); err != nil {
				return fmt.Errorf("control: set weather: %w", err)
			}
		}

		v, err := sim.SpawnVehicle(world, sim.SpawnOptions{
			Filter:     o.VehicleFilter,
			SpawnPoint: o.SpawnPoint,
			Autopilot:  o.Autopilot,
			TMPort:     o.TMPort,
			Rand:       o.Rand,
		})
		if err != nil {
			return err
		}
		sess.Track(v)
		logger.Info("spawned vehicle", "id", v.ID(), "type", v.TypeID())
		env.noteVehicle(v)

		dm, err := display.NewManager(o.Display, env.Surface)
		if err != nil {
			return err
		}
		managers, err := sensor.SpawnFromConfigs(world, dm, v, o.Sensors, o.SensorOptions...)
		if err != nil {
			return err
		}
		track(sess, managers)
		defer env.saveStats(managers)
		logger.Info("sensors ready", "count", len(managers), "grid", fmt.Sprintf("%dx%d", o.Display.Rows, o.Display.Cols))

		cfg := env.loop(world, v, dm)
		cfg.Synchronous = o.Sync
		return RunSensors(ctx, cfg)
	})
}

// DriveOptions configures the lane-following scenario.
type DriveOptions struct {
	Town          string // empty keeps the loaded map
	FixedDelta    float64
	TMPort        int
	VehicleFilter string
	RoadIDs       []int
	SpawnDelay    time.Duration
	Camera        sensor.Config
	Predictor     Predictor
	Speed         SpeedController
	Annotator     Annotator
	Rand          *rand.Rand
}

// DefaultDriveOptions returns the lane-following defaults: road 37, a five
// second settle delay and a 60 km/h cruise. Predictor must still be set.
func DefaultDriveOptions() DriveOptions {
	return DriveOptions{
		FixedDelta:    sim.DefaultFixedDelta,
		TMPort:        sim.DefaultTMPort,
		VehicleFilter: sim.DefaultVehicleFilter,
		RoadIDs:       []int{37},
		SpawnDelay:    5 * time.Second,
		Camera:        sensor.DriveCamera(),
		Speed:         DefaultSpeedController(),
	}
}

// Drive spawns a vehicle on one of the preferred roads and steers it from
// the predictor. On return every sensor and vehicle in the world is
// destroyed and the world settings restored.
func Drive(ctx context.Context, env Env, o DriveOptions) error {
	if o.Predictor == nil {
		return errors.New("control: drive needs a predictor")
	}
	logger := env.logger()

	var (
		world sim.World
		err   error
	)
	if o.Town != "" {
		logger.Info("loading town", "town", o.Town)
		world, err = env.Client.LoadWorld(ctx, o.Town)
	} else {
		world, err = env.Client.World(ctx)
	}
	if err != nil {
		return fmt.Errorf("control: get world: %w", err)
	}

	sess := sim.NewSession(world, logger)
	sess.RememberSettings(world.Settings())
	sess.Sweep("*sensor*", "*vehicle*")

	return Guard(ctx, sess, func(ctx context.Context) error {
		tm, err := env.Client.TrafficManager(o.TMPort)
		if err != nil {
			return fmt.Errorf("control: traffic manager: %w", err)
		}
		if _, err := sim.SetupSynchronousMode(world, tm, o.FixedDelta); err != nil {
			return err
		}

		v, err := sim.SpawnVehicleOnRoad(ctx, world, o.RoadIDs, o.SpawnDelay, sim.SpawnOptions{
			Filter: o.VehicleFilter,
			Rand:   o.Rand,
		})
		if err != nil {
			return err
		}
		sess.Track(v)
		logger.Info("spawned vehicle", "id", v.ID(), "at", v.Transform().Location)
		env.noteVehicle(v)

		w, h := cameraSize(o.Camera)
		dm, err := display.NewManager(display.Config{Rows: 1, Cols: 1, Width: w, Height: h}, env.Surface)
		if err != nil {
			return err
		}
		cam, err := sensor.New(world, dm, o.Camera, v, sensor.WithLogger(logger))
		if err != nil {
			return err
		}
		sess.Track(cam.Sensor())
		defer env.saveStats([]*sensor.Manager{cam})

		panel := display.NewPanel(o.Camera.Cell)
		if err := dm.Add(panel); err != nil {
			return err
		}

		cfg := env.loop(world, v, dm)
		cfg.Synchronous = true
		return RunPredictive(ctx, cfg, PredictiveConfig{
			Camera:    cam,
			Predictor: o.Predictor,
			Speed:     o.Speed,
			Annotator: o.Annotator,
			Panel:     panel,
		})
	})
}

// ManualOptions configures the keyboard control scenario.
type ManualOptions struct {
	VehicleFilter string
	Increments    Increments
	Display       display.Config
	// Camera, when set, is attached to the controlled vehicle and shown in
	// the window.
	Camera *sensor.Config
	// Synchronous ticks the world from the loop. The world must already be
	// in synchronous mode.
	Synchronous bool
	// Spawn places a vehicle matching VehicleFilter at a random spawn point
	// instead of attaching to an existing one. It is destroyed on return.
	Spawn bool
	Rand  *rand.Rand
}

// DefaultManualOptions returns a 512x256 window with the default increments.
func DefaultManualOptions() ManualOptions {
	return ManualOptions{
		VehicleFilter: sim.DefaultVehicleFilter,
		Increments:    DefaultIncrements(),
		Display:       display.Config{Rows: 1, Cols: 1, Width: 512, Height: 256},
	}
}

// Manual takes keyboard control of a vehicle. An existing vehicle is left
// in the world on return; only actors spawned here are destroyed.
func Manual(ctx context.Context, env Env, o ManualOptions) error {
	logger := env.logger()
	world, err := env.Client.World(ctx)
	if err != nil {
		return fmt.Errorf("control: get world: %w", err)
	}
	step := world.WaitForTick
	if o.Synchronous {
		step = world.Tick
	}
	if _, err := step(ctx); err != nil {
		return fmt.Errorf("control: first tick: %w", err)
	}

	sess := sim.NewSession(world, logger)
	return Guard(ctx, sess, func(ctx context.Context) error {
		var v sim.Vehicle
		if o.Spawn {
			v, err = sim.SpawnVehicle(world, sim.SpawnOptions{Filter: o.VehicleFilter, Rand: o.Rand})
			if err != nil {
				return err
			}
			sess.Track(v)
			logger.Info("spawned vehicle", "type", v.TypeID(), "id", v.ID())
		} else {
			v, err = sim.FindVehicle(world, o.VehicleFilter)
			if err != nil {
				return err
			}
			logger.Info("controlling vehicle", "type", v.TypeID(), "id", v.ID())
		}
		env.noteVehicle(v)

		dm, err := display.NewManager(o.Display, env.Surface)
		if err != nil {
			return err
		}
		if o.Camera != nil {
			cam, err := sensor.New(world, dm, *o.Camera, v, sensor.WithLogger(logger),
				sensor.WithCameraSize(o.Display.Width, o.Display.Height))
			if err != nil {
				return err
			}
			sess.Track(cam.Sensor())
			defer env.saveStats([]*sensor.Manager{cam})
		}

		cfg := env.loop(world, v, dm)
		cfg.Synchronous = o.Synchronous
		cfg.Pace = true
		return RunManual(ctx, cfg, NewManualController(o.Increments))
	})
}

// cameraSize reads the requested image size from a camera config.
func cameraSize(c sensor.Config) (int, int) {
	w, h := sensor.DefaultCameraSize, sensor.DefaultCameraSize
	if v, ok := atoiOption(c.Options, "image_size_x"); ok {
		w = v
	}
	if v, ok := atoiOption(c.Options, "image_size_y"); ok {
		h = v
	}
	return w, h
}

func atoiOption(opts map[string]string, key string) (int, bool) {
	v, ok := opts[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
