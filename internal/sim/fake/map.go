package fake

import (
	"math"

	"github.com/vovakirdan/carlaview/internal/sim"
)

// road is a straight east-west road at a fixed y, lanes 3.5 m wide.
type road struct {
	id int
	y  float64
}

const laneWidth = 3.5

// Roads in every fake town. Road 37 is the long straight used for lane
// following.
var defaultRoads = []road{
	{id: 37, y: 0},
	{id: 12, y: 60},
	{id: 4, y: -60},
}

type worldMap struct {
	name   string
	roads  []road
	points []sim.Transform
}

var _ sim.Map = (*worldMap)(nil)

func newMap(name string) *worldMap {
	m := &worldMap{name: name, roads: defaultRoads}
	for _, r := range m.roads {
		for x := -100.0; x <= 100.0; x += 25 {
			m.points = append(m.points, sim.Transform{
				Location: sim.Location{X: x, Y: r.y + laneWidth/2, Z: 0.5},
			})
		}
	}
	return m
}

func (m *worldMap) Name() string { return m.name }

func (m *worldMap) SpawnPoints() []sim.Transform {
	out := make([]sim.Transform, len(m.points))
	copy(out, m.points)
	return out
}

// Waypoint projects onto the nearest road. Lane IDs are positive north of
// the road centre line and negative south of it.
func (m *worldMap) Waypoint(loc sim.Location) (sim.Waypoint, bool) {
	if len(m.roads) == 0 {
		return sim.Waypoint{}, false
	}
	best := m.roads[0]
	for _, r := range m.roads[1:] {
		if math.Abs(loc.Y-r.y) < math.Abs(loc.Y-best.y) {
			best = r
		}
	}
	lane := 1
	y := best.y + laneWidth/2
	if loc.Y < best.y {
		lane = -1
		y = best.y - laneWidth/2
	}
	return sim.Waypoint{
		RoadID: best.id,
		LaneID: lane,
		Transform: sim.Transform{
			Location: sim.Location{X: loc.X, Y: y},
		},
	}, true
}

// lateralOffset returns the signed distance from loc to the centre of its
// nearest lane.
func (m *worldMap) lateralOffset(loc sim.Location) float64 {
	wp, ok := m.Waypoint(loc)
	if !ok {
		return 0
	}
	return loc.Y - wp.Transform.Location.Y
}
