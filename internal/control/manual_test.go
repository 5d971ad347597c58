package control

import (
	"math"
	"testing"

	"github.com/vovakirdan/carlaview/internal/core"
	"github.com/vovakirdan/carlaview/internal/sim"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestManualThrottleClamp(t *testing.T) {
	c := NewManualController(DefaultIncrements())
	hold := core.InputOf(core.ActionAccelerate)

	c.Update(hold)
	if got := c.Control().Throttle; !near(got, 0.05) {
		t.Errorf("throttle after one tick = %v, expected 0.05", got)
	}

	for i := 0; i < 100; i++ {
		c.Update(hold)
		if got := c.Control().Throttle; got > 1.0 {
			t.Fatalf("throttle = %v after %d ticks, expected <= 1", got, i+2)
		}
	}
	if got := c.Control().Throttle; got != 1.0 {
		t.Errorf("throttle after holding = %v, expected 1.0", got)
	}

	c.Update(core.NewInputFrame())
	if got := c.Control().Throttle; got != 0 {
		t.Errorf("throttle after release = %v, expected 0", got)
	}
}

func TestManualBrakeClamp(t *testing.T) {
	c := NewManualController(DefaultIncrements())
	hold := core.InputOf(core.ActionBrake)

	expected := []float64{0.2, 0.4, 0.6, 0.8, 1.0, 1.0, 1.0}
	for i, e := range expected {
		c.Update(hold)
		if got := c.Control().Brake; !near(got, e) && !(e == 1.0 && got == 1.0) {
			t.Errorf("brake after %d ticks = %v, expected %v", i+1, got, e)
		}
	}
}

func TestManualSteerClamp(t *testing.T) {
	c := NewManualController(DefaultIncrements())

	for i := 0; i < 100; i++ {
		c.Update(core.InputOf(core.ActionSteerLeft))
		if s := c.Control().Steer; s < -1 || s > 1 {
			t.Fatalf("steer = %v, expected within [-1, 1]", s)
		}
	}
	if got := c.Control().Steer; got != -1 {
		t.Errorf("steer after holding left = %v, expected -1", got)
	}

	c.Update(core.InputOf(core.ActionSteerRight))
	if got := c.Control().Steer; !near(got, -0.95) {
		t.Errorf("steer after one right tick = %v, expected -0.95", got)
	}

	// Left wins when both are held.
	c.Update(core.InputOf(core.ActionSteerLeft, core.ActionSteerRight))
	if got := c.Control().Steer; !near(got, -1) {
		t.Errorf("steer with both held = %v, expected -1", got)
	}

	c.Update(core.NewInputFrame())
	if got := c.Control().Steer; got != 0 {
		t.Errorf("steer after release = %v, expected 0", got)
	}
}

func TestManualHandbrake(t *testing.T) {
	c := NewManualController(DefaultIncrements())

	c.Update(core.InputOf(core.ActionHandbrake))
	if !c.Control().HandBrake {
		t.Error("handbrake should be set while held")
	}
	c.Update(core.NewInputFrame())
	if c.Control().HandBrake {
		t.Error("handbrake should be released")
	}
}

func TestManualQuit(t *testing.T) {
	c := NewManualController(DefaultIncrements())
	c.Update(core.InputOf(core.ActionAccelerate))
	before := c.Control()

	if s := c.Update(core.InputOf(core.ActionQuit, core.ActionAccelerate)); s != StateStopped {
		t.Fatalf("Update() = %v, expected STOPPED", s)
	}
	if c.Control() != before {
		t.Error("quit tick should not change the control")
	}

	if s := c.Update(core.InputOf(core.ActionAccelerate)); s != StateStopped {
		t.Errorf("Update() after stop = %v, expected STOPPED", s)
	}
	if c.Control() != before {
		t.Error("stopped controller should ignore input")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s        State
		expected string
	}{
		{StateRunning, "RUNNING"},
		{StateStopped, "STOPPED"},
		{State(9), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %q, expected %q", int(tt.s), got, tt.expected)
		}
	}
}

func TestSpeedControllerBands(t *testing.T) {
	sc := SpeedController{Target: 60, Threshold: 5}

	tests := []struct {
		speed    float64
		expected float64
	}{
		{65, 0.0},
		{60, 0.0},
		{58, 0.3},
		{55, 0.3},
		{54.9, 0.8},
		{50, 0.8},
		{0, 0.8},
	}
	for _, tt := range tests {
		if got := sc.Throttle(tt.speed); got != tt.expected {
			t.Errorf("Throttle(%v) = %v, expected %v", tt.speed, got, tt.expected)
		}
	}

	if DefaultSpeedController() != sc {
		t.Errorf("DefaultSpeedController() = %+v, expected %+v", DefaultSpeedController(), sc)
	}
}

type movingVehicle struct {
	sim.Vehicle
	velocity, accel sim.Vector3
}

func (v movingVehicle) Velocity() sim.Vector3     { return v.velocity }
func (v movingVehicle) Acceleration() sim.Vector3 { return v.accel }

func TestVehicleMonitor(t *testing.T) {
	v := movingVehicle{
		velocity: sim.Vector3{X: 3, Y: 4},
		accel:    sim.Vector3{X: 0.12, Y: 0.16},
	}
	if got := SpeedKPH(v); got != 18 {
		t.Errorf("SpeedKPH() = %v, expected 18", got)
	}
	if got := AccelerationMPS2(v); got != 0.2 {
		t.Errorf("AccelerationMPS2() = %v, expected 0.2", got)
	}

	v.velocity = sim.Vector3{X: 16.8}
	if got := SpeedKPH(v); got != 60 {
		t.Errorf("SpeedKPH() = %v, expected 60", got)
	}
}
