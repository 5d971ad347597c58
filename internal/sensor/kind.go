package sensor

import (
	"fmt"
	"strings"
)

// Kind identifies a sensor type.
type Kind int

const (
	KindRGBCamera Kind = iota
	KindLiDAR
	KindSemanticLiDAR
	KindRadar
)

var kindNames = map[Kind]string{
	KindRGBCamera:     "RGBCamera",
	KindLiDAR:         "LiDAR",
	KindSemanticLiDAR: "SemanticLiDAR",
	KindRadar:         "Radar",
}

var kindBlueprints = map[Kind]string{
	KindRGBCamera:     "sensor.camera.rgb",
	KindLiDAR:         "sensor.lidar.ray_cast",
	KindSemanticLiDAR: "sensor.lidar.ray_cast_semantic",
	KindRadar:         "sensor.other.radar",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Blueprint returns the blueprint ID spawned for this kind.
func (k Kind) Blueprint() string {
	return kindBlueprints[k]
}

// Stride returns the number of 4-byte fields per point for point cloud
// kinds, and 0 otherwise.
func (k Kind) Stride() int {
	switch k {
	case KindLiDAR:
		return 4
	case KindSemanticLiDAR:
		return 6
	case KindRadar:
		return 4
	default:
		return 0
	}
}

// ParseKind accepts a kind name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("sensor: unknown sensor type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("sensor: unknown kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so kinds can be
// written by name in configuration files.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
