package fake

import (
	"math"

	"github.com/vovakirdan/carlaview/internal/sim"
)

// Kinematic bicycle model constants.
const (
	wheelbase     = 2.9  // m
	maxSteerDeg   = 35.0 // front wheel angle at steer=1
	maxAccel      = 4.0  // m/s^2 at full throttle
	maxBrake      = 8.0  // m/s^2 at full brake
	handbrakeDecl = 10.0 // m/s^2
	dragCoeff     = 0.05 // 1/s
	autopilotMPS  = 30.0 / 3.6
)

type vehicle struct {
	actorBase

	control   sim.VehicleControl
	yaw       float64 // degrees
	speed     float64 // m/s along heading
	accel     float64 // m/s^2 along heading
	odometer  float64 // m
	autopilot bool
}

var _ sim.Vehicle = (*vehicle)(nil)

func (v *vehicle) ApplyControl(c sim.VehicleControl) error {
	v.world.mu.Lock()
	defer v.world.mu.Unlock()
	if !v.alive {
		return errDestroyed(v.id)
	}
	v.control = c
	return nil
}

func (v *vehicle) Control() sim.VehicleControl {
	v.world.mu.Lock()
	defer v.world.mu.Unlock()
	return v.control
}

func (v *vehicle) Transform() sim.Transform {
	v.world.mu.Lock()
	defer v.world.mu.Unlock()
	return v.transformLocked()
}

func (v *vehicle) transformLocked() sim.Transform {
	t := v.transform
	t.Rotation.Yaw = v.yaw
	return t
}

func (v *vehicle) Velocity() sim.Vector3 {
	v.world.mu.Lock()
	defer v.world.mu.Unlock()
	rad := v.yaw * math.Pi / 180
	return sim.Vector3{X: v.speed * math.Cos(rad), Y: v.speed * math.Sin(rad)}
}

func (v *vehicle) Acceleration() sim.Vector3 {
	v.world.mu.Lock()
	defer v.world.mu.Unlock()
	rad := v.yaw * math.Pi / 180
	return sim.Vector3{X: v.accel * math.Cos(rad), Y: v.accel * math.Sin(rad)}
}

func (v *vehicle) SetAutopilot(enabled bool, _ int) error {
	v.world.mu.Lock()
	defer v.world.mu.Unlock()
	if !v.alive {
		return errDestroyed(v.id)
	}
	v.autopilot = enabled
	return nil
}

// step advances the vehicle by dt seconds. Caller holds the world lock.
func (v *vehicle) step(dt float64) {
	c := v.control
	if v.autopilot {
		c = v.autopilotControl()
	}

	throttle := clamp01(c.Throttle)
	brake := clamp01(c.Brake)
	steer := math.Max(-1, math.Min(1, c.Steer))

	a := throttle*maxAccel - brake*maxBrake - dragCoeff*v.speed
	if c.HandBrake {
		a -= handbrakeDecl
	}

	// Reverse gear is not modelled; the vehicle stops at zero speed.
	prev := v.speed
	v.speed = math.Max(0, v.speed+a*dt)
	v.accel = (v.speed - prev) / dt

	wheel := steer * maxSteerDeg * math.Pi / 180
	v.yaw += (v.speed / wheelbase) * math.Tan(wheel) * dt * 180 / math.Pi
	v.yaw = math.Remainder(v.yaw, 360)

	rad := v.yaw * math.Pi / 180
	v.transform.Location.X += v.speed * math.Cos(rad) * dt
	v.transform.Location.Y += v.speed * math.Sin(rad) * dt
	v.odometer += math.Abs(v.speed * dt)
}

// autopilotControl holds a cruise speed and steers back to the lane centre.
func (v *vehicle) autopilotControl() sim.VehicleControl {
	var c sim.VehicleControl
	if v.speed < autopilotMPS {
		c.Throttle = 0.5
	}
	offset := v.world.m.lateralOffset(v.transform.Location)
	c.Steer = math.Max(-1, math.Min(1, -0.3*offset-0.05*v.yaw))
	return c
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
