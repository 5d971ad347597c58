package core

import "time"

// RuntimeConfig contains settings shared by every control loop run.
type RuntimeConfig struct {
	TickRate int   // Loop iterations per second (default 60)
	Seed     int64 // RNG seed for spawn point selection
	Headless bool  // Skip window creation; rendering becomes a no-op
}

// DefaultConfig returns a RuntimeConfig with sensible defaults.
func DefaultConfig() RuntimeConfig {
	return RuntimeConfig{
		TickRate: 60,
		Seed:     0, // 0 means use current time in the CLI layer
	}
}

// TickInterval returns the wall-clock period of one loop iteration.
// A non-positive tick rate disables pacing.
func (c RuntimeConfig) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.TickRate)
}

// TickSample is the telemetry captured after one control loop tick.
type TickSample struct {
	Tick      int
	SimTime   float64 // Simulator elapsed seconds, 0 when unknown
	SpeedKPH  float64
	Throttle  float64
	Steer     float64
	Brake     float64
	Predicted float64 // Predicted steering, 0 for manual runs
}
