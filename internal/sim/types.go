package sim

import (
	"fmt"
	"math"
)

// Location is a point in world coordinates, in meters.
type Location struct {
	X, Y, Z float64
}

// Distance returns the euclidean distance to other.
func (l Location) Distance(other Location) float64 {
	return math.Sqrt((l.X-other.X)*(l.X-other.X) +
		(l.Y-other.Y)*(l.Y-other.Y) +
		(l.Z-other.Z)*(l.Z-other.Z))
}

func (l Location) String() string {
	return fmt.Sprintf("Location(x=%.2f, y=%.2f, z=%.2f)", l.X, l.Y, l.Z)
}

// Rotation is an orientation in degrees.
type Rotation struct {
	Pitch, Yaw, Roll float64
}

// Transform places an actor in the world, or relative to its parent
// when the actor is attached.
type Transform struct {
	Location Location
	Rotation Rotation
}

// Vector3 is a velocity or acceleration vector.
type Vector3 struct {
	X, Y, Z float64
}

// Length returns the magnitude of the vector.
func (v Vector3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// VehicleControl is one control command for a vehicle.
// Throttle and Brake are in [0, 1], Steer in [-1, 1].
type VehicleControl struct {
	Throttle  float64
	Steer     float64
	Brake     float64
	HandBrake bool
	Reverse   bool
}

// WorldSettings is the subset of world settings this client changes.
type WorldSettings struct {
	SynchronousMode   bool
	FixedDeltaSeconds float64
	NoRenderingMode   bool
}

// Weather holds the weather parameters applied to a world.
type Weather struct {
	Cloudiness            float64
	Precipitation         float64
	PrecipitationDeposits float64
	WindIntensity         float64
	SunAzimuthAngle       float64
	SunAltitudeAngle      float64
	FogDensity            float64
	Wetness               float64
}

// Waypoint is a road-projected location.
type Waypoint struct {
	RoadID    int
	LaneID    int
	Transform Transform
}

// Attribute is one blueprint attribute with its recommended values.
type Attribute struct {
	ID          string
	Value       string
	Recommended []string
}

// Measurement is one raw sensor output delivered to a listener.
//
// For cameras Raw holds Width*Height BGRA pixels. For point clouds and radar
// Raw holds little-endian float32 records and Width/Height are zero.
type Measurement struct {
	Frame     uint64
	Timestamp float64
	Width     int
	Height    int
	Raw       []byte
	Transform Transform
}
