package control

import (
	"math"

	"github.com/vovakirdan/carlaview/internal/sim"
)

const mpsToKPH = 3.6

// Throttle bands.
const (
	ThrottleFar  = 0.8
	ThrottleNear = 0.3
)

// SpeedController picks a throttle from the current speed using three
// bands around a target cruise speed.
type SpeedController struct {
	Target    float64 // km/h
	Threshold float64 // km/h below Target where the near band starts
}

// DefaultSpeedController cruises at 60 km/h with a 5 km/h band.
func DefaultSpeedController() SpeedController {
	return SpeedController{Target: 60, Threshold: 5}
}

// Throttle returns 0 at or above the target, ThrottleFar below
// Target-Threshold and ThrottleNear in between.
func (s SpeedController) Throttle(kph float64) float64 {
	switch {
	case kph >= s.Target:
		return 0
	case kph < s.Target-s.Threshold:
		return ThrottleFar
	default:
		return ThrottleNear
	}
}

// SpeedKPH returns the vehicle speed in km/h rounded to a whole number.
func SpeedKPH(v sim.Vehicle) float64 {
	return math.RoundToEven(mpsToKPH * v.Velocity().Length())
}

// AccelerationMPS2 returns the acceleration magnitude rounded to 0.1 m/s^2.
func AccelerationMPS2(v sim.Vehicle) float64 {
	return math.RoundToEven(v.Acceleration().Length()*10) / 10
}
