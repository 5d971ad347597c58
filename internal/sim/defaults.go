package sim

import "time"

// Connection and spawning defaults.
const (
	DefaultHost          = "127.0.0.1"
	DefaultPort          = 2000
	DefaultTimeout       = 5 * time.Second
	DefaultTMPort        = 8000
	DefaultVehicleFilter = "*model3*"
	DefaultFixedDelta    = 0.05
)

// DefaultEndpoint returns the local simulator endpoint.
func DefaultEndpoint() Endpoint {
	return Endpoint{Host: DefaultHost, Port: DefaultPort, Timeout: DefaultTimeout}
}

// DefaultWeather is a light-rain late afternoon.
func DefaultWeather() Weather {
	return Weather{
		Precipitation:    22,
		SunAzimuthAngle:  34,
		SunAltitudeAngle: 10,
		Wetness:          1.5,
	}
}
