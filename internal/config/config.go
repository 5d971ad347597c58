// Package config provides YAML configuration loading for carlaview:
// simulator connection, sensor layout, display grid, model and control
// settings.
package config

import "time"

// Config is the whole carlaview configuration document.
type Config struct {
	Simulator  SimulatorConfig  `yaml:"simulator"`
	Simulation SimulationConfig `yaml:"simulation"`
	Weather    WeatherConfig    `yaml:"weather"`
	Display    DisplayConfig    `yaml:"display"`
	Sensors    SensorsConfig    `yaml:"sensors"`
	Camera     CameraConfig     `yaml:"camera"`
	Model      ModelConfig      `yaml:"model"`
	Text       TextConfig       `yaml:"text"`
	Control    ControlConfig    `yaml:"control"`
	Spawn      SpawnConfig      `yaml:"spawn"`
	Storage    StorageConfig    `yaml:"storage"`
	Serve      ServeConfig      `yaml:"serve"`
}

// SimulatorConfig locates the simulator and the vehicle to use.
type SimulatorConfig struct {
	Backend            string        `yaml:"backend" validate:"empty=false"`
	Host               string        `yaml:"host" validate:"empty=false"`
	Port               int           `yaml:"port" validate:"gte=1 & lte=65535"`
	Timeout            time.Duration `yaml:"timeout"`
	TrafficManagerPort int           `yaml:"traffic_manager_port" validate:"gte=1 & lte=65535"`
	VehicleFilter      string        `yaml:"vehicle_filter" validate:"empty=false"`
	Town               string        `yaml:"town"` // empty keeps the loaded map
}

// SimulationConfig defines the world stepping mode.
type SimulationConfig struct {
	Synchronous       bool    `yaml:"synchronous"`
	FixedDeltaSeconds float64 `yaml:"fixed_delta_seconds" validate:"gt=0 & lte=1"`
}

// WeatherConfig mirrors the simulator weather parameters.
type WeatherConfig struct {
	Cloudiness            float64 `yaml:"cloudiness"`
	Precipitation         float64 `yaml:"precipitation"`
	PrecipitationDeposits float64 `yaml:"precipitation_deposits"`
	WindIntensity         float64 `yaml:"wind_intensity"`
	SunAzimuthAngle       float64 `yaml:"sun_azimuth_angle"`
	SunAltitudeAngle      float64 `yaml:"sun_altitude_angle"`
	FogDensity            float64 `yaml:"fog_density"`
	Wetness               float64 `yaml:"wetness"`
}

// DisplayConfig is the sensor grid shape and window size.
type DisplayConfig struct {
	Rows   int `yaml:"rows" validate:"gte=1"`
	Cols   int `yaml:"cols" validate:"gte=1"`
	Width  int `yaml:"width" validate:"gte=1"`
	Height int `yaml:"height" validate:"gte=1"`
}

// SensorsConfig holds the default sensor layout options.
type SensorsConfig struct {
	CameraHeight float64     `yaml:"camera_height"`
	CameraSize   int         `yaml:"camera_size" validate:"gte=1"`
	Lidar        LidarConfig `yaml:"lidar"`
	PointColor   []int       `yaml:"point_color"`
}

// LidarConfig defines the lidar and semantic lidar options.
type LidarConfig struct {
	Channels                int     `yaml:"channels" validate:"gte=1"`
	Range                   float64 `yaml:"range" validate:"gt=0"`
	PointsPerSecond         int     `yaml:"points_per_second" validate:"gte=1"`
	SemanticPointsPerSecond int     `yaml:"semantic_points_per_second" validate:"gte=1"`
	RotationFrequency       float64 `yaml:"rotation_frequency" validate:"gt=0"`
	RangeMultiplier         float64 `yaml:"range_multiplier" validate:"gt=0"`
}

// CameraConfig is the forward camera used by the drive and manual modes.
type CameraConfig struct {
	Width  int     `yaml:"width" validate:"gte=1"`
	Height int     `yaml:"height" validate:"gte=1"`
	X      float64 `yaml:"x"`
	Z      float64 `yaml:"z"`
}

// ModelConfig defines the lane model and speed policy.
type ModelConfig struct {
	Path                 string  `yaml:"path"` // empty uses the edge centroid predictor
	InputLayer           string  `yaml:"input_layer"`
	OutputLayer          string  `yaml:"output_layer"`
	PreferredSpeedKPH    float64 `yaml:"preferred_speed_kph" validate:"gt=0"`
	SpeedThresholdKPH    float64 `yaml:"speed_threshold_kph" validate:"gte=0"`
	YawAdjustmentDegrees float64 `yaml:"yaw_adjustment_degrees"`
	MaxSteerAngleDegrees float64 `yaml:"max_steer_angle_degrees" validate:"gt=0"`
	ImageWidth           int     `yaml:"image_width" validate:"gte=1"`
	ImageHeight          int     `yaml:"image_height" validate:"gte=1"`
	HeightCropPortion    float64 `yaml:"height_crop_portion" validate:"gt=0 & lte=1"`
	WidthCropPortion     float64 `yaml:"width_crop_portion" validate:"gt=0 & lte=1"`
	CannyLow             float64 `yaml:"canny_low"`
	CannyHigh            float64 `yaml:"canny_high"`
	Normalization        float64 `yaml:"normalization" validate:"gt=0"`
}

// TextConfig defines the caption overlay.
type TextConfig struct {
	SpeedPosition []int   `yaml:"speed_position"`
	AnglePosition []int   `yaml:"angle_position"`
	Size          float64 `yaml:"size" validate:"gt=0"`
	Color         []int   `yaml:"color"`
}

// ControlConfig defines manual control increments and loop rate.
type ControlConfig struct {
	ThrottleIncrement float64 `yaml:"throttle_increment" validate:"gt=0 & lte=1"`
	BrakeIncrement    float64 `yaml:"brake_increment" validate:"gt=0 & lte=1"`
	SteerIncrement    float64 `yaml:"steer_increment" validate:"gt=0 & lte=1"`
	FPS               int     `yaml:"fps" validate:"gte=1"`
}

// SpawnConfig defines where the drive mode places its vehicle.
type SpawnConfig struct {
	Delay   time.Duration `yaml:"delay"`
	RoadIDs []int         `yaml:"road_ids"`
}

// StorageConfig locates the telemetry database.
type StorageConfig struct {
	Path string `yaml:"path"` // empty uses ~/.carlaview/telemetry.db
}

// ServeConfig configures the SSH spectator server.
type ServeConfig struct {
	Address     string        `yaml:"address" validate:"empty=false"`
	HostKeyPath string        `yaml:"host_key_path"` // empty uses ~/.carlaview/host_key
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}
