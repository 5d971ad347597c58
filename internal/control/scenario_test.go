package control

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/vovakirdan/carlaview/internal/core"
	"github.com/vovakirdan/carlaview/internal/display"
	"github.com/vovakirdan/carlaview/internal/sensor"
	"github.com/vovakirdan/carlaview/internal/sim"
	"github.com/vovakirdan/carlaview/internal/sim/fake"
)

// interruptingWorld cancels the run context in the middle of step n, the
// way a signal arriving during a blocking tick would.
type interruptingWorld struct {
	sim.World
	cancel context.CancelFunc
	at     int
	steps  int
}

func (w *interruptingWorld) Tick(ctx context.Context) (uint64, error) {
	w.steps++
	if w.steps == w.at {
		w.cancel()
	}
	return w.World.Tick(ctx)
}

type worldClient struct {
	sim.Client
	world sim.World
}

func (c worldClient) World(context.Context) (sim.World, error) { return c.world, nil }

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestSensorsScenarioCleansUp(t *testing.T) {
	client := fake.New()
	w := client.FakeWorld()
	original := w.Settings()

	surface := &scriptSurface{script: repeat(core.NewInputFrame(), 2)}
	rec := &memRecorder{}
	o := DefaultSensorsOptions()
	o.Display = display.Config{Rows: 2, Cols: 3, Width: 300, Height: 200}
	o.Rand = seeded()

	err := Sensors(context.Background(), Env{Client: client, Surface: surface, Recorder: rec}, o)
	if err != nil {
		t.Fatalf("Sensors() error = %v", err)
	}

	if w.Len() != 0 {
		t.Errorf("%d actors left in the world", w.Len())
	}
	if w.Settings() != original {
		t.Errorf("settings = %+v, expected restored %+v", w.Settings(), original)
	}
	if w.Weather() != sim.DefaultWeather() {
		t.Errorf("weather = %+v, expected the default weather", w.Weather())
	}
	if surface.presented != 3 {
		t.Errorf("presented %d frames, expected 3", surface.presented)
	}
	if len(rec.samples) != 2 {
		t.Errorf("recorded %d samples, expected 2", len(rec.samples))
	}
	for _, kind := range []string{"RGBCamera", "LiDAR", "SemanticLiDAR"} {
		if s, ok := rec.stats[kind]; !ok || s.Ticks == 0 {
			t.Errorf("stats for %s = %+v, %v", kind, s, ok)
		}
	}
}

func TestSensorsScenarioLeavesOtherVehicles(t *testing.T) {
	client := fake.New()
	w := client.FakeWorld()
	points := w.Map().SpawnPoints()
	if _, err := sim.SpawnVehicle(w, sim.SpawnOptions{Filter: "*audi*", SpawnPoint: &points[0]}); err != nil {
		t.Fatal(err)
	}
	o := DefaultSensorsOptions()
	o.Sensors = o.Sensors[:1]
	o.SpawnPoint = &points[1]

	err := Sensors(context.Background(), Env{Client: client, MaxTicks: 1}, o)
	if err != nil {
		t.Fatalf("Sensors() error = %v", err)
	}
	if n := len(w.Actors("*vehicle*")); n != 1 {
		t.Errorf("%d vehicles left, expected only the pre-existing one", n)
	}
}

func TestSensorsScenarioSpawnFailureStillRestores(t *testing.T) {
	client := fake.New()
	w := client.FakeWorld()
	original := w.Settings()

	o := DefaultSensorsOptions()
	o.VehicleFilter = "*hovercraft*"
	err := Sensors(context.Background(), Env{Client: client}, o)
	if !errors.Is(err, sim.ErrSpawn) {
		t.Fatalf("Sensors() error = %v, expected ErrSpawn", err)
	}
	if w.Settings() != original {
		t.Errorf("settings not restored after a failed spawn: %+v", w.Settings())
	}
}

func TestDriveScenario(t *testing.T) {
	client := fake.New()
	w := client.FakeWorld()
	original := w.Settings()

	o := DefaultDriveOptions()
	o.SpawnDelay = 0
	o.Rand = seeded()
	o.Predictor = PredictFunc(func(*core.Frame) (float64, error) { return 0, nil })
	rec := &memRecorder{}

	err := Drive(context.Background(), Env{Client: client, Recorder: rec, MaxTicks: 4}, o)
	if err != nil {
		t.Fatalf("Drive() error = %v", err)
	}
	if w.Len() != 0 {
		t.Errorf("%d actors left in the world", w.Len())
	}
	if w.Settings() != original {
		t.Errorf("settings = %+v, expected restored %+v", w.Settings(), original)
	}
	if len(rec.samples) != 4 {
		t.Errorf("recorded %d samples, expected 4", len(rec.samples))
	}
	if _, ok := rec.stats["RGBCamera"]; !ok {
		t.Error("camera stats not recorded")
	}
}

func TestDriveScenarioLoadsTown(t *testing.T) {
	client := fake.New()
	o := DefaultDriveOptions()
	o.Town = "Town04"
	o.SpawnDelay = 0
	o.Predictor = PredictFunc(func(*core.Frame) (float64, error) { return 0, nil })

	if err := Drive(context.Background(), Env{Client: client, MaxTicks: 1}, o); err != nil {
		t.Fatalf("Drive() error = %v", err)
	}
	if got := client.FakeWorld().Map().Name(); got != "Town04" {
		t.Errorf("map = %q, expected Town04", got)
	}

	o.Town = "Atlantis"
	if err := Drive(context.Background(), Env{Client: client, MaxTicks: 1}, o); err == nil {
		t.Error("unknown town should fail")
	}
}

func TestDriveScenarioPredictorFailure(t *testing.T) {
	client := fake.New()
	w := client.FakeWorld()
	original := w.Settings()
	errModel := errors.New("bad weights")

	o := DefaultDriveOptions()
	o.SpawnDelay = 0
	o.Predictor = PredictFunc(func(*core.Frame) (float64, error) { return 0, errModel })

	err := Drive(context.Background(), Env{Client: client}, o)
	if !errors.Is(err, errModel) {
		t.Fatalf("Drive() error = %v, expected the predictor error", err)
	}
	if w.Len() != 0 || w.Settings() != original {
		t.Errorf("cleanup incomplete: %d actors, settings %+v", w.Len(), w.Settings())
	}
}

func TestDriveScenarioInterruptedMidTick(t *testing.T) {
	client := fake.New()
	fw := client.FakeWorld()
	original := fw.Settings()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	iw := &interruptingWorld{World: fw, cancel: cancel, at: 3}

	o := DefaultDriveOptions()
	o.SpawnDelay = 0
	o.Predictor = PredictFunc(func(*core.Frame) (float64, error) { return 0.1, nil })

	err := Drive(ctx, Env{Client: worldClient{Client: client, world: iw}}, o)
	if err != nil {
		t.Fatalf("Drive() error = %v, expected nil on interrupt", err)
	}
	if iw.steps != 3 {
		t.Errorf("loop made %d steps, expected it to stop at 3", iw.steps)
	}
	if fw.Len() != 0 {
		t.Errorf("%d actors left after interrupt", fw.Len())
	}
	if fw.Settings() != original {
		t.Errorf("settings not restored after interrupt: %+v", fw.Settings())
	}
}

func TestDriveNeedsPredictor(t *testing.T) {
	if err := Drive(context.Background(), Env{Client: fake.New()}, DefaultDriveOptions()); err == nil {
		t.Error("Drive() without a predictor should fail")
	}
}

func TestManualScenario(t *testing.T) {
	client := fake.New()
	w := client.FakeWorld()
	v, err := sim.SpawnVehicle(w, sim.SpawnOptions{Filter: sim.DefaultVehicleFilter, Rand: seeded()})
	if err != nil {
		t.Fatal(err)
	}

	surface := &scriptSurface{script: repeat(core.InputOf(core.ActionAccelerate, core.ActionSteerRight), 3)}
	o := DefaultManualOptions()
	camera := sensor.DriveCamera()
	o.Camera = &camera
	o.Synchronous = true

	err = Manual(context.Background(), Env{
		Client:  client,
		Surface: surface,
		Runtime: core.RuntimeConfig{TickRate: 1000},
	}, o)
	if err != nil {
		t.Fatalf("Manual() error = %v", err)
	}

	if !v.IsAlive() {
		t.Error("manual control must not destroy the vehicle it drove")
	}
	if n := len(w.Actors("*sensor*")); n != 0 {
		t.Errorf("%d sensors left after manual control", n)
	}
	ctl := v.Control()
	if !near(ctl.Throttle, 0.15) || !near(ctl.Steer, 0.15) {
		t.Errorf("control = %+v, expected throttle and steer 0.15", ctl)
	}
	if surface.presented != 3 {
		t.Errorf("presented %d frames, expected 3", surface.presented)
	}
}

func TestManualScenarioWithoutVehicle(t *testing.T) {
	err := Manual(context.Background(), Env{Client: fake.New()}, DefaultManualOptions())
	if !errors.Is(err, sim.ErrVehicleNotFound) {
		t.Errorf("Manual() error = %v, expected ErrVehicleNotFound", err)
	}
}

func TestGuardClosesOnPanic(t *testing.T) {
	w, v := syncWorld(t)
	sess := sim.NewSession(w, nil)
	sess.Track(v)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic should propagate")
			}
		}()
		_ = Guard(context.Background(), sess, func(context.Context) error {
			panic("boom")
		})
	}()

	if !sess.Closed() {
		t.Error("session should be closed after a panic")
	}
	if v.IsAlive() {
		t.Error("tracked vehicle should be destroyed")
	}
}

func TestGuardJoinsCleanupError(t *testing.T) {
	w, _ := syncWorld(t)
	sess := sim.NewSession(w, nil)
	sess.RememberSettings(sim.WorldSettings{FixedDeltaSeconds: -1})

	errRun := errors.New("run failed")
	err := Guard(context.Background(), sess, func(context.Context) error { return errRun })
	if !errors.Is(err, errRun) {
		t.Errorf("Guard() error = %v, expected the run error", err)
	}
	if err == errRun {
		t.Error("cleanup failure should be joined to the run error")
	}
}

func TestManualScenarioTicksSynchronousWorld(t *testing.T) {
	client := fake.New()
	w := client.FakeWorld()
	if err := w.ApplySettings(sim.WorldSettings{SynchronousMode: true, FixedDeltaSeconds: 0.05}); err != nil {
		t.Fatal(err)
	}
	if _, err := sim.SpawnVehicle(w, sim.SpawnOptions{Filter: sim.DefaultVehicleFilter, Rand: seeded()}); err != nil {
		t.Fatal(err)
	}

	o := DefaultManualOptions()
	o.Synchronous = true
	surface := &scriptSurface{script: repeat(core.InputOf(core.ActionAccelerate), 3)}
	err := Manual(context.Background(), Env{Client: client, Surface: surface, Runtime: core.RuntimeConfig{TickRate: 1000}}, o)
	if err != nil {
		t.Fatalf("Manual() error = %v", err)
	}
	if got := w.Frame(); got < 4 {
		t.Errorf("Frame() = %d, expected at least 4 after the first tick and three steps", got)
	}

	o.Synchronous = false
	err = Manual(context.Background(), Env{Client: client, Surface: &scriptSurface{}}, o)
	if !errors.Is(err, fake.ErrStalled) {
		t.Errorf("Manual() error = %v, expected a stall waiting on a synchronous world", err)
	}
}

func TestManualScenarioSpawnedVehicleIsDestroyed(t *testing.T) {
	client := fake.New()
	w := client.FakeWorld()
	rec := &memRecorder{}

	o := DefaultManualOptions()
	o.Spawn = true
	o.Rand = seeded()
	surface := &scriptSurface{script: repeat(core.InputOf(core.ActionAccelerate), 2)}
	err := Manual(context.Background(), Env{Client: client, Surface: surface, Recorder: rec, Runtime: core.RuntimeConfig{TickRate: 1000}}, o)
	if err != nil {
		t.Fatalf("Manual() error = %v", err)
	}
	if n := len(w.Actors("*vehicle*")); n != 0 {
		t.Errorf("%d vehicles left after manual control with spawn", n)
	}
	if !sim.MatchPattern(sim.DefaultVehicleFilter, rec.vehicle) {
		t.Errorf("recorded vehicle = %q, expected a type matching %q", rec.vehicle, sim.DefaultVehicleFilter)
	}
}
