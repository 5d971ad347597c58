package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/carlaview/internal/core"
	"github.com/vovakirdan/carlaview/internal/display"
	"github.com/vovakirdan/carlaview/internal/sim"
)

// Recorder receives one telemetry sample per tick.
type Recorder interface {
	RecordTick(s core.TickSample) error
}

// FrameSource yields the latest frame of a sensor, or nil before the first
// measurement.
type FrameSource interface {
	Frame() *core.Frame
}

// Predictor maps a camera frame to a steering value in [-1, 1].
type Predictor interface {
	Predict(f *core.Frame) (float64, error)
}

// PredictFunc adapts a plain function to Predictor.
type PredictFunc func(f *core.Frame) (float64, error)

func (fn PredictFunc) Predict(f *core.Frame) (float64, error) { return fn(f) }

// Annotator draws captions onto a frame.
type Annotator interface {
	Annotate(f *core.Frame, kph, angle float64)
}

// LoopConfig is shared by every loop.
type LoopConfig struct {
	World   sim.World
	Vehicle sim.Vehicle // nil for RunSensors without a vehicle

	// Display is rendered once per tick. Nil or headless managers skip
	// rendering.
	Display *display.Manager
	// Input is polled once per tick. Nil never quits from input.
	Input display.InputSource

	// Synchronous advances the world with Tick; otherwise the loop waits
	// for the server's next tick.
	Synchronous bool
	Runtime     core.RuntimeConfig
	// Pace sleeps out the remainder of Runtime.TickInterval each tick.
	Pace bool
	// MaxTicks stops the loop after that many ticks; 0 runs until quit.
	MaxTicks int

	Recorder Recorder
	Logger   *log.Logger
}

func (c LoopConfig) logger() *log.Logger {
	if c.Logger == nil {
		return log.Default()
	}
	return c.Logger
}

func (c LoopConfig) check(needVehicle bool) error {
	if c.World == nil {
		return errors.New("control: nil world")
	}
	if needVehicle && c.Vehicle == nil {
		return fmt.Errorf("control: %w", sim.ErrVehicleNotFound)
	}
	return nil
}

func (c LoopConfig) poll() core.InputFrame {
	if c.Input == nil {
		return core.NewInputFrame()
	}
	return c.Input.Poll()
}

func (c LoopConfig) render() error {
	if c.Display == nil {
		return nil
	}
	return c.Display.Render()
}

// advance performs one simulator step.
func (c LoopConfig) advance(ctx context.Context) (uint64, error) {
	if c.Synchronous {
		return c.World.Tick(ctx)
	}
	return c.World.WaitForTick(ctx)
}

func (c LoopConfig) simTime(frame uint64) float64 {
	dt := c.World.Settings().FixedDeltaSeconds
	if dt <= 0 {
		return 0
	}
	return float64(frame) * dt
}

func (c LoopConfig) record(s core.TickSample) {
	if c.Recorder == nil {
		return
	}
	if err := c.Recorder.RecordTick(s); err != nil {
		c.logger().Warn("record tick", "tick", s.Tick, "err", err)
	}
}

// pacer sleeps out the remainder of each tick interval.
type pacer struct {
	interval time.Duration
	next     time.Time
}

func newPacer(c LoopConfig) *pacer {
	p := &pacer{}
	if c.Pace {
		p.interval = c.Runtime.TickInterval()
	}
	p.next = time.Now().Add(p.interval)
	return p
}

func (p *pacer) wait(ctx context.Context) {
	if p.interval <= 0 {
		return
	}
	d := time.Until(p.next)
	if d > 0 {
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
		case <-t.C:
		}
		t.Stop()
	}
	now := time.Now()
	p.next = p.next.Add(p.interval)
	if p.next.Before(now) {
		p.next = now.Add(p.interval)
	}
}

// interrupted reports whether a failed step was cut short by ctx.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// RunManual applies keyboard control to cfg.Vehicle until the input quits,
// MaxTicks is reached or ctx is cancelled. Per tick it polls input, updates
// mc, applies the control, advances the world and renders.
func RunManual(ctx context.Context, cfg LoopConfig, mc *ManualController) error {
	if err := cfg.check(true); err != nil {
		return err
	}
	logger := cfg.logger()
	p := newPacer(cfg)

	for tick := 1; cfg.MaxTicks == 0 || tick <= cfg.MaxTicks; tick++ {
		if ctx.Err() != nil {
			logger.Debug("manual loop interrupted", "tick", tick)
			return nil
		}
		if mc.Update(cfg.poll()) == StateStopped {
			logger.Debug("manual loop stopped", "tick", tick)
			return nil
		}

		ctl := mc.Control()
		if err := cfg.Vehicle.ApplyControl(ctl); err != nil {
			return fmt.Errorf("control: apply control: %w", err)
		}

		frame, err := cfg.advance(ctx)
		if err != nil {
			if interrupted(ctx, err) {
				return nil
			}
			return fmt.Errorf("control: tick: %w", err)
		}
		if err := cfg.render(); err != nil {
			return err
		}

		cfg.record(core.TickSample{
			Tick:     tick,
			SimTime:  cfg.simTime(frame),
			SpeedKPH: SpeedKPH(cfg.Vehicle),
			Throttle: ctl.Throttle,
			Steer:    ctl.Steer,
			Brake:    ctl.Brake,
		})
		p.wait(ctx)
	}
	return nil
}

// PredictiveConfig holds the collaborators of RunPredictive.
type PredictiveConfig struct {
	Camera    FrameSource
	Predictor Predictor
	Speed     SpeedController
	// Annotator draws captions on a copy of the camera frame. Nil shows the
	// frame unannotated.
	Annotator Annotator
	// Panel receives the annotated frame for display.
	Panel *display.Panel
}

// RunPredictive steers cfg.Vehicle from pc.Predictor and holds speed with
// pc.Speed. Per tick it advances the world, checks for quit, predicts from
// the latest camera frame, applies throttle and the negated prediction as
// steer and renders. A predictor error ends the loop and is returned.
func RunPredictive(ctx context.Context, cfg LoopConfig, pc PredictiveConfig) error {
	if err := cfg.check(true); err != nil {
		return err
	}
	if pc.Camera == nil || pc.Predictor == nil {
		return errors.New("control: predictive loop needs a camera and a predictor")
	}
	logger := cfg.logger()
	p := newPacer(cfg)

	for tick := 1; cfg.MaxTicks == 0 || tick <= cfg.MaxTicks; tick++ {
		if ctx.Err() != nil {
			logger.Debug("predictive loop interrupted", "tick", tick)
			return nil
		}

		frameNo, err := cfg.advance(ctx)
		if err != nil {
			if interrupted(ctx, err) {
				return nil
			}
			return fmt.Errorf("control: tick: %w", err)
		}
		if cfg.poll().Has(core.ActionQuit) {
			logger.Debug("predictive loop stopped", "tick", tick)
			return nil
		}

		img := pc.Camera.Frame()
		if img == nil {
			logger.Debug("no camera frame yet", "tick", tick)
			p.wait(ctx)
			continue
		}

		angle, err := pc.Predictor.Predict(img)
		if err != nil {
			return fmt.Errorf("control: predict: %w", err)
		}
		kph := SpeedKPH(cfg.Vehicle)

		if pc.Panel != nil {
			shown := img.Clone()
			if pc.Annotator != nil {
				pc.Annotator.Annotate(shown, kph, angle)
			}
			pc.Panel.Set(shown)
		}

		ctl := sim.VehicleControl{Throttle: pc.Speed.Throttle(kph), Steer: -angle}
		if err := cfg.Vehicle.ApplyControl(ctl); err != nil {
			return fmt.Errorf("control: apply control: %w", err)
		}
		if err := cfg.render(); err != nil {
			return err
		}

		cfg.record(core.TickSample{
			Tick:      tick,
			SimTime:   cfg.simTime(frameNo),
			SpeedKPH:  kph,
			Throttle:  ctl.Throttle,
			Steer:     ctl.Steer,
			Predicted: angle,
		})
		p.wait(ctx)
	}
	return nil
}

// RunSensors advances the world and renders every sensor until the input
// quits, MaxTicks is reached or ctx is cancelled.
func RunSensors(ctx context.Context, cfg LoopConfig) error {
	if err := cfg.check(false); err != nil {
		return err
	}
	logger := cfg.logger()
	p := newPacer(cfg)

	for tick := 1; cfg.MaxTicks == 0 || tick <= cfg.MaxTicks; tick++ {
		if ctx.Err() != nil {
			logger.Debug("sensor loop interrupted", "tick", tick)
			return nil
		}

		frame, err := cfg.advance(ctx)
		if err != nil {
			if interrupted(ctx, err) {
				return nil
			}
			return fmt.Errorf("control: tick: %w", err)
		}
		if err := cfg.render(); err != nil {
			return err
		}
		if cfg.poll().Has(core.ActionQuit) {
			logger.Debug("sensor loop stopped", "tick", tick)
			return nil
		}

		s := core.TickSample{Tick: tick, SimTime: cfg.simTime(frame)}
		if cfg.Vehicle != nil {
			s.SpeedKPH = SpeedKPH(cfg.Vehicle)
			ctl := cfg.Vehicle.Control()
			s.Throttle, s.Steer, s.Brake = ctl.Throttle, ctl.Steer, ctl.Brake
		}
		cfg.record(s)
		p.wait(ctx)
	}
	return nil
}
