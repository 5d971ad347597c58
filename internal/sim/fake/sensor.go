package fake

import (
	"strconv"

	"github.com/vovakirdan/carlaview/internal/sim"
)

type sensor struct {
	actorBase

	listener func(sim.Measurement)
	lastTime float64
}

var _ sim.Sensor = (*sensor)(nil)

func (s *sensor) Listen(fn func(sim.Measurement)) error {
	s.world.mu.Lock()
	defer s.world.mu.Unlock()
	if !s.alive {
		return errDestroyed(s.id)
	}
	s.listener = fn
	return nil
}

func (s *sensor) Stop() error {
	s.world.mu.Lock()
	defer s.world.mu.Unlock()
	s.listener = nil
	return nil
}

func (s *sensor) IsListening() bool {
	s.world.mu.Lock()
	defer s.world.mu.Unlock()
	return s.listener != nil
}

func (s *sensor) attrFloat(id string, def float64) float64 {
	a, ok := s.bp.Attribute(id)
	if !ok {
		return def
	}
	v, err := strconv.ParseFloat(a.Value, 64)
	if err != nil {
		return def
	}
	return v
}

func (s *sensor) attrInt(id string, def int) int {
	return int(s.attrFloat(id, float64(def)))
}

// due reports whether the sensor produces a measurement at elapsed,
// honouring its sensor_tick attribute. Caller holds the world lock.
func (s *sensor) due(elapsed float64) bool {
	tick := s.attrFloat("sensor_tick", 0)
	if tick <= 0 || elapsed-s.lastTime >= tick-1e-9 {
		s.lastTime = elapsed
		return true
	}
	return false
}
