// Package control drives a simulated vehicle from keyboard input or from a
// steering predictor, one simulator step per loop iteration.
package control

import (
	"github.com/vovakirdan/carlaview/internal/core"
	"github.com/vovakirdan/carlaview/internal/sim"
)

// State is the manual controller state.
type State int

const (
	StateRunning State = iota
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Increments are the per-tick control steps applied while a key is held.
type Increments struct {
	Throttle float64
	Brake    float64
	Steer    float64
}

// DefaultIncrements returns throttle 0.05, brake 0.2 and steer 0.05 per tick.
func DefaultIncrements() Increments {
	return Increments{Throttle: 0.05, Brake: 0.2, Steer: 0.05}
}

// ManualController accumulates held-key input into a vehicle control.
// Steps are fixed per tick, not scaled by elapsed time.
type ManualController struct {
	inc     Increments
	control sim.VehicleControl
	state   State
}

// NewManualController creates a running controller with zero control.
func NewManualController(inc Increments) *ManualController {
	return &ManualController{inc: inc}
}

// Update folds one tick of input into the control and returns the new
// state. Once stopped the controller ignores further input.
func (c *ManualController) Update(in core.InputFrame) State {
	if c.state == StateStopped {
		return c.state
	}
	if in.Has(core.ActionQuit) {
		c.state = StateStopped
		return c.state
	}

	if in.Has(core.ActionAccelerate) {
		c.control.Throttle = min(c.control.Throttle+c.inc.Throttle, 1.0)
	} else {
		c.control.Throttle = 0
	}

	if in.Has(core.ActionBrake) {
		c.control.Brake = min(c.control.Brake+c.inc.Brake, 1.0)
	} else {
		c.control.Brake = 0
	}

	switch {
	case in.Has(core.ActionSteerLeft):
		c.control.Steer = max(c.control.Steer-c.inc.Steer, -1.0)
	case in.Has(core.ActionSteerRight):
		c.control.Steer = min(c.control.Steer+c.inc.Steer, 1.0)
	default:
		c.control.Steer = 0
	}

	c.control.HandBrake = in.Has(core.ActionHandbrake)
	return c.state
}

// Control returns the current control command.
func (c *ManualController) Control() sim.VehicleControl {
	return c.control
}

// State returns the controller state.
func (c *ManualController) State() State {
	return c.state
}

// Stop moves the controller to STOPPED.
func (c *ManualController) Stop() {
	c.state = StateStopped
}
