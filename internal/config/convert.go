package config

import (
	"image"
	"strconv"

	"github.com/vovakirdan/carlaview/internal/control"
	"github.com/vovakirdan/carlaview/internal/core"
	"github.com/vovakirdan/carlaview/internal/display"
	"github.com/vovakirdan/carlaview/internal/overlay"
	"github.com/vovakirdan/carlaview/internal/sensor"
	"github.com/vovakirdan/carlaview/internal/sim"
)

// Endpoint returns the simulator address.
func (c Config) Endpoint() sim.Endpoint {
	return sim.Endpoint{
		Host:    c.Simulator.Host,
		Port:    c.Simulator.Port,
		Timeout: c.Simulator.Timeout,
	}
}

// DisplayConfig returns the sensor grid.
func (c Config) DisplayConfig() display.Config {
	return display.Config{
		Rows:   c.Display.Rows,
		Cols:   c.Display.Cols,
		Width:  c.Display.Width,
		Height: c.Display.Height,
	}
}

// WeatherSettings returns the weather applied by the sensors mode.
func (c Config) WeatherSettings() sim.Weather {
	w := c.Weather
	return sim.Weather{
		Cloudiness:            w.Cloudiness,
		Precipitation:         w.Precipitation,
		PrecipitationDeposits: w.PrecipitationDeposits,
		WindIntensity:         w.WindIntensity,
		SunAzimuthAngle:       w.SunAzimuthAngle,
		SunAltitudeAngle:      w.SunAltitudeAngle,
		FogDensity:            w.FogDensity,
		Wetness:               w.Wetness,
	}
}

// LidarSettings returns the shared lidar options.
func (c Config) LidarSettings() sensor.LidarSettings {
	l := c.Sensors.Lidar
	return sensor.LidarSettings{
		Channels:                l.Channels,
		Range:                   l.Range,
		PointsPerSecond:         l.PointsPerSecond,
		SemanticPointsPerSecond: l.SemanticPointsPerSecond,
		RotationFrequency:       l.RotationFrequency,
	}
}

// SensorLayout returns the six sensor layout. Camera image sizes are set
// from sensors.camera_size.
func (c Config) SensorLayout() []sensor.Config {
	layout := sensor.Layout(c.LidarSettings(), c.Sensors.CameraHeight)
	size := strconv.Itoa(c.Sensors.CameraSize)
	for i := range layout {
		if layout[i].Kind != sensor.KindRGBCamera {
			continue
		}
		layout[i].Options["image_size_x"] = size
		layout[i].Options["image_size_y"] = size
	}
	return layout
}

// SensorOptions returns the manager options shared by every sensor.
func (c Config) SensorOptions() []sensor.Option {
	opts := []sensor.Option{sensor.WithRangeMultiplier(c.Sensors.Lidar.RangeMultiplier)}
	if col, ok := core.ParseColor(c.Sensors.PointColor); ok {
		opts = append(opts, sensor.WithColor(col))
	}
	return opts
}

// DriveCamera returns the forward camera.
func (c Config) DriveCamera() sensor.Config {
	cam := sensor.DriveCamera()
	cam.Transform.Location.X = c.Camera.X
	cam.Transform.Location.Z = c.Camera.Z
	cam.Options["image_size_x"] = strconv.Itoa(c.Camera.Width)
	cam.Options["image_size_y"] = strconv.Itoa(c.Camera.Height)
	return cam
}

// Increments returns the manual control steps.
func (c Config) Increments() control.Increments {
	return control.Increments{
		Throttle: c.Control.ThrottleIncrement,
		Brake:    c.Control.BrakeIncrement,
		Steer:    c.Control.SteerIncrement,
	}
}

// Speed returns the predictive throttle policy.
func (c Config) Speed() control.SpeedController {
	return control.SpeedController{
		Target:    c.Model.PreferredSpeedKPH,
		Threshold: c.Model.SpeedThresholdKPH,
	}
}

// OverlayOptions returns the caption layout.
func (c Config) OverlayOptions() overlay.Options {
	opts := overlay.DefaultOptions()
	if p := c.Text.SpeedPosition; len(p) == 2 {
		opts.SpeedPos = image.Pt(p[0], p[1])
	}
	if p := c.Text.AnglePosition; len(p) == 2 {
		opts.AnglePos = image.Pt(p[0], p[1])
	}
	if col, ok := core.ParseColor(c.Text.Color); ok {
		opts.Color = col
	}
	opts.Size = c.Text.Size
	return opts
}

// Runtime returns the loop settings.
func (c Config) Runtime() core.RuntimeConfig {
	rc := core.DefaultConfig()
	rc.TickRate = c.Control.FPS
	return rc
}

// SensorsOptions returns the sensors mode options.
func (c Config) SensorsOptions() control.SensorsOptions {
	o := control.DefaultSensorsOptions()
	w := c.WeatherSettings()
	o.Sync = c.Simulation.Synchronous
	o.FixedDelta = c.Simulation.FixedDeltaSeconds
	o.TMPort = c.Simulator.TrafficManagerPort
	o.VehicleFilter = c.Simulator.VehicleFilter
	o.Weather = &w
	o.Display = c.DisplayConfig()
	o.Sensors = c.SensorLayout()
	o.SensorOptions = c.SensorOptions()
	return o
}

// DriveOptions returns the drive mode options. The predictor and
// annotator are left for the caller.
func (c Config) DriveOptions() control.DriveOptions {
	o := control.DefaultDriveOptions()
	o.Town = c.Simulator.Town
	o.FixedDelta = c.Simulation.FixedDeltaSeconds
	o.TMPort = c.Simulator.TrafficManagerPort
	o.VehicleFilter = c.Simulator.VehicleFilter
	o.RoadIDs = append([]int(nil), c.Spawn.RoadIDs...)
	o.SpawnDelay = c.Spawn.Delay
	o.Camera = c.DriveCamera()
	o.Speed = c.Speed()
	return o
}

// ManualOptions returns the manual mode options. The window matches the
// forward camera. A synchronous simulation is ticked from the loop.
func (c Config) ManualOptions() control.ManualOptions {
	o := control.DefaultManualOptions()
	o.VehicleFilter = c.Simulator.VehicleFilter
	o.Synchronous = c.Simulation.Synchronous
	o.Increments = c.Increments()
	o.Display = display.Config{Rows: 1, Cols: 1, Width: c.Camera.Width, Height: c.Camera.Height}
	return o
}
