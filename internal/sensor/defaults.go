package sensor

import (
	"errors"
	"strconv"

	"github.com/vovakirdan/carlaview/internal/display"
	"github.com/vovakirdan/carlaview/internal/sim"
)

// CameraHeight is the default mounting height above the vehicle origin.
const CameraHeight = 2.4

// LidarSettings holds the options shared by the default lidar sensors.
type LidarSettings struct {
	Channels                int
	Range                   float64
	PointsPerSecond         int
	SemanticPointsPerSecond int
	RotationFrequency       float64
}

// DefaultLidarSettings returns a 64 channel, 100 m lidar at 20 Hz.
func DefaultLidarSettings() LidarSettings {
	return LidarSettings{
		Channels:                64,
		Range:                   100,
		PointsPerSecond:         250000,
		SemanticPointsPerSecond: 100000,
		RotationFrequency:       20,
	}
}

func (l LidarSettings) options(pps int) map[string]string {
	return map[string]string{
		"channels":           strconv.Itoa(l.Channels),
		"range":              strconv.FormatFloat(l.Range, 'f', -1, 64),
		"points_per_second":  strconv.Itoa(pps),
		"rotation_frequency": strconv.FormatFloat(l.RotationFrequency, 'f', -1, 64),
	}
}

// DefaultConfigs returns the standard six sensor layout for a 2x3 grid:
// left, front and right cameras on the top row; lidar, rear camera and
// semantic lidar on the bottom row.
func DefaultConfigs() []Config {
	return Layout(DefaultLidarSettings(), CameraHeight)
}

// Layout returns the standard layout with the given lidar settings and
// mounting height.
func Layout(l LidarSettings, height float64) []Config {
	camera := func(yaw float64, cell display.Cell) Config {
		return Config{
			Kind: KindRGBCamera,
			Transform: sim.Transform{
				Location: sim.Location{Z: height},
				Rotation: sim.Rotation{Yaw: yaw},
			},
			Options: map[string]string{},
			Cell:    cell,
		}
	}
	mount := sim.Transform{Location: sim.Location{Z: height}}

	return []Config{
		camera(-90, display.Cell{Row: 0, Col: 0}),
		camera(0, display.Cell{Row: 0, Col: 1}),
		camera(90, display.Cell{Row: 0, Col: 2}),
		camera(180, display.Cell{Row: 1, Col: 1}),
		{
			Kind:      KindLiDAR,
			Transform: mount,
			Options:   l.options(l.PointsPerSecond),
			Cell:      display.Cell{Row: 1, Col: 0},
		},
		{
			Kind:      KindSemanticLiDAR,
			Transform: mount,
			Options:   l.options(l.SemanticPointsPerSecond),
			Cell:      display.Cell{Row: 1, Col: 2},
		},
	}
}

// SpawnFromConfigs creates one Manager per config, attached to parent.
// On failure the managers created so far are destroyed.
func SpawnFromConfigs(world sim.World, dm *display.Manager, parent sim.Actor, configs []Config, opts ...Option) ([]*Manager, error) {
	managers := make([]*Manager, 0, len(configs))
	for _, cfg := range configs {
		m, err := New(world, dm, cfg, parent, opts...)
		if err != nil {
			errs := []error{err}
			for _, done := range managers {
				errs = append(errs, done.Destroy())
			}
			return nil, errors.Join(errs...)
		}
		managers = append(managers, m)
	}
	return managers, nil
}

// DriveCamera returns the forward camera used for lane following: 512x256,
// 0.9 m ahead of the vehicle origin and 1.6 m up.
func DriveCamera() Config {
	return Config{
		Kind: KindRGBCamera,
		Transform: sim.Transform{
			Location: sim.Location{X: 0.9, Z: 1.6},
		},
		Options: map[string]string{
			"image_size_x": "512",
			"image_size_y": "256",
		},
	}
}
