// Package report turns recorded session telemetry into summaries, PNG
// plots and interactive HTML charts.
package report

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/vovakirdan/carlaview/internal/core"
)

// Series is one telemetry channel over time.
type Series struct {
	Name string
	Y    []float64
}

// Telemetry holds the recorded channels on a shared time axis.
type Telemetry struct {
	X      []float64
	XLabel string
	Speed  Series
	Inputs []Series // throttle, steer, brake and predicted angle
}

// FromTicks splits samples into channels. The axis is simulation time
// when any sample carries it, the tick index otherwise.
func FromTicks(ticks []core.TickSample) Telemetry {
	t := Telemetry{
		X:      make([]float64, len(ticks)),
		XLabel: "Tick",
		Speed:  Series{Name: "Speed (km/h)", Y: make([]float64, len(ticks))},
	}
	throttle := Series{Name: "Throttle", Y: make([]float64, len(ticks))}
	steer := Series{Name: "Steer", Y: make([]float64, len(ticks))}
	brake := Series{Name: "Brake", Y: make([]float64, len(ticks))}
	predicted := Series{Name: "Predicted", Y: make([]float64, len(ticks))}

	simTime := false
	for _, s := range ticks {
		if s.SimTime != 0 {
			simTime = true
			break
		}
	}
	if simTime {
		t.XLabel = "Simulation time (s)"
	}

	for i, s := range ticks {
		t.X[i] = float64(s.Tick)
		if simTime {
			t.X[i] = s.SimTime
		}
		t.Speed.Y[i] = s.SpeedKPH
		throttle.Y[i] = s.Throttle
		steer.Y[i] = s.Steer
		brake.Y[i] = s.Brake
		predicted.Y[i] = s.Predicted
	}
	t.Inputs = []Series{throttle, steer, brake, predicted}
	return t
}

// Summary is the aggregate view of one session.
type Summary struct {
	Ticks         int
	MeanSpeedKPH  float64
	MaxSpeedKPH   float64
	SteerStdDev   float64
	MeanAbsSteer  float64
	BrakeFraction float64 // share of ticks with any brake applied
}

// Summarize computes aggregates over ticks. An empty slice gives a zero
// Summary.
func Summarize(ticks []core.TickSample) Summary {
	if len(ticks) == 0 {
		return Summary{}
	}
	t := FromTicks(ticks)
	steer := t.Inputs[1].Y
	brake := t.Inputs[2].Y

	abs := make([]float64, len(steer))
	braking := 0
	for i, v := range steer {
		abs[i] = math.Abs(v)
		if brake[i] > 0 {
			braking++
		}
	}

	s := Summary{
		Ticks:         len(ticks),
		MeanSpeedKPH:  stat.Mean(t.Speed.Y, nil),
		MaxSpeedKPH:   floats.Max(t.Speed.Y),
		MeanAbsSteer:  stat.Mean(abs, nil),
		BrakeFraction: float64(braking) / float64(len(ticks)),
	}
	if len(steer) > 1 {
		s.SteerStdDev = stat.StdDev(steer, nil)
	}
	return s
}
