package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/carlaview.yaml
var defaultYAML []byte

// DefaultYAML returns the embedded default configuration document.
func DefaultYAML() []byte {
	out := make([]byte, len(defaultYAML))
	copy(out, defaultYAML)
	return out
}

// Default returns the built-in configuration. It matches the embedded
// defaults/carlaview.yaml.
func Default() Config {
	return Config{
		Simulator: SimulatorConfig{
			Backend:            "fake",
			Host:               "127.0.0.1",
			Port:               2000,
			Timeout:            5 * time.Second,
			TrafficManagerPort: 8000,
			VehicleFilter:      "*model3*",
		},
		Simulation: SimulationConfig{
			Synchronous:       true,
			FixedDeltaSeconds: 0.05,
		},
		Weather: WeatherConfig{
			Precipitation:    22,
			SunAzimuthAngle:  34,
			SunAltitudeAngle: 10,
			Wetness:          1.5,
		},
		Display: DisplayConfig{
			Rows:   2,
			Cols:   3,
			Width:  1280,
			Height: 720,
		},
		Sensors: SensorsConfig{
			CameraHeight: 2.4,
			CameraSize:   256,
			Lidar: LidarConfig{
				Channels:                64,
				Range:                   100,
				PointsPerSecond:         250000,
				SemanticPointsPerSecond: 100000,
				RotationFrequency:       20,
				RangeMultiplier:         2.0,
			},
			PointColor: []int{255, 255, 255},
		},
		Camera: CameraConfig{
			Width:  512,
			Height: 256,
			X:      0.9,
			Z:      1.6,
		},
		Model: ModelConfig{
			PreferredSpeedKPH:    60,
			SpeedThresholdKPH:    5,
			YawAdjustmentDegrees: 35,
			MaxSteerAngleDegrees: 35,
			ImageWidth:           640,
			ImageHeight:          360,
			HeightCropPortion:    0.4,
			WidthCropPortion:     0.5,
			CannyLow:             50,
			CannyHigh:            150,
			Normalization:        255,
		},
		Text: TextConfig{
			SpeedPosition: []int{30, 30},
			AnglePosition: []int{30, 50},
			Size:          12,
			Color:         []int{255, 255, 255},
		},
		Control: ControlConfig{
			ThrottleIncrement: 0.05,
			BrakeIncrement:    0.2,
			SteerIncrement:    0.05,
			FPS:               60,
		},
		Spawn: SpawnConfig{
			Delay:   5 * time.Second,
			RoadIDs: []int{37},
		},
		Serve: ServeConfig{
			Address:     ":23234",
			IdleTimeout: 30 * time.Minute,
		},
	}
}
