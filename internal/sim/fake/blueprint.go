package fake

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/vovakirdan/carlaview/internal/sim"
)

// Blueprint IDs provided by the fake library.
const (
	BlueprintModel3        = "vehicle.tesla.model3"
	BlueprintAudiTT        = "vehicle.audi.tt"
	BlueprintCamera        = "sensor.camera.rgb"
	BlueprintLidar         = "sensor.lidar.ray_cast"
	BlueprintSemanticLidar = "sensor.lidar.ray_cast_semantic"
	BlueprintRadar         = "sensor.other.radar"
)

type blueprint struct {
	id    string
	attrs map[string]sim.Attribute
}

var _ sim.Blueprint = (*blueprint)(nil)

func (b *blueprint) ID() string { return b.id }

func (b *blueprint) HasAttribute(id string) bool {
	_, ok := b.attrs[id]
	return ok
}

func (b *blueprint) Attribute(id string) (sim.Attribute, bool) {
	a, ok := b.attrs[id]
	return a, ok
}

func (b *blueprint) SetAttribute(id, value string) error {
	a, ok := b.attrs[id]
	if !ok {
		return fmt.Errorf("fake: blueprint %s has no attribute %q", b.id, id)
	}
	a.Value = value
	b.attrs[id] = a
	return nil
}

func (b *blueprint) clone() *blueprint {
	return &blueprint{id: b.id, attrs: maps.Clone(b.attrs)}
}

func attrs(kv ...string) map[string]sim.Attribute {
	m := make(map[string]sim.Attribute, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = sim.Attribute{ID: kv[i], Value: kv[i+1]}
	}
	return m
}

func recommended(m map[string]sim.Attribute, id string, values ...string) {
	a := m[id]
	a.Recommended = values
	m[id] = a
}

func defaultBlueprints() map[string]*blueprint {
	lidar := attrs(
		"channels", "32",
		"range", "10.0",
		"points_per_second", "56000",
		"rotation_frequency", "10.0",
		"upper_fov", "10.0",
		"lower_fov", "-30.0",
		"dropoff_general_rate", "0.45",
		"dropoff_intensity_limit", "0.8",
		"dropoff_zero_intensity", "0.4",
		"noise_stddev", "0.0",
		"sensor_tick", "0.0",
	)
	recommended(lidar, "dropoff_general_rate", "0.0")
	recommended(lidar, "dropoff_intensity_limit", "1.0")
	recommended(lidar, "dropoff_zero_intensity", "0.0")

	bps := []*blueprint{
		{id: BlueprintModel3, attrs: attrs("color", "255,255,255", "role_name", "autopilot")},
		{id: BlueprintAudiTT, attrs: attrs("color", "0,0,0", "role_name", "autopilot")},
		{id: BlueprintCamera, attrs: attrs(
			"image_size_x", "800",
			"image_size_y", "600",
			"fov", "90.0",
			"sensor_tick", "0.0",
		)},
		{id: BlueprintLidar, attrs: lidar},
		{id: BlueprintSemanticLidar, attrs: attrs(
			"channels", "32",
			"range", "10.0",
			"points_per_second", "56000",
			"rotation_frequency", "10.0",
			"upper_fov", "10.0",
			"lower_fov", "-30.0",
			"sensor_tick", "0.0",
		)},
		{id: BlueprintRadar, attrs: attrs(
			"horizontal_fov", "30.0",
			"vertical_fov", "30.0",
			"points_per_second", "1500",
			"range", "100.0",
			"sensor_tick", "0.0",
		)},
	}

	out := make(map[string]*blueprint, len(bps))
	for _, b := range bps {
		out[b.id] = b
	}
	return out
}

type library struct {
	bps map[string]*blueprint
}

var _ sim.BlueprintLibrary = (*library)(nil)

func (l *library) Find(id string) (sim.Blueprint, error) {
	b, ok := l.bps[id]
	if !ok {
		return nil, fmt.Errorf("fake: blueprint %q not found", id)
	}
	return b.clone(), nil
}

func (l *library) Filter(pattern string) []sim.Blueprint {
	ids := slices.Collect(maps.Keys(l.bps))
	sort.Strings(ids)

	var out []sim.Blueprint
	for _, id := range ids {
		if sim.MatchPattern(pattern, id) {
			out = append(out, l.bps[id].clone())
		}
	}
	return out
}
