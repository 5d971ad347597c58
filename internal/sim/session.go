package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Session owns every actor spawned during one run and the world settings
// that were in effect before it started. Close releases all of it exactly
// once, however many exit paths call it.
type Session struct {
	world  World
	logger *log.Logger

	mu       sync.Mutex
	actors   []Actor
	original *WorldSettings
	sweep    []string

	once   sync.Once
	closed bool
	err    error
}

// NewSession creates a session bound to w. A nil logger uses log.Default().
func NewSession(w World, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{world: w, logger: logger}
}

// World returns the world the session is bound to.
func (s *Session) World() World {
	return s.world
}

// RememberSettings records the settings Close restores.
// Only the first call has effect.
func (s *Session) RememberSettings(ws WorldSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.original == nil {
		s.original = &ws
	}
}

// Track registers an actor for destruction on Close. Tracking after Close
// destroys the actor immediately.
func (s *Session) Track(a Actor) {
	if a == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if err := DestroyActor(a); err != nil {
			s.logger.Warn("destroy late actor", "actor", a.ID(), "err", err)
		}
		return
	}
	s.actors = append(s.actors, a)
	s.mu.Unlock()
}

// Sweep adds type ID patterns whose matching actors are destroyed on Close,
// whether or not this session spawned them.
func (s *Session) Sweep(patterns ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep = append(s.sweep, patterns...)
}

// Actors returns the tracked actors in spawn order.
func (s *Session) Actors() []Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Actor, len(s.actors))
	copy(out, s.actors)
	return out
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops sensors, destroys tracked actors in reverse spawn order,
// destroys actors matching the sweep patterns and restores the original
// world settings. Later calls return the first call's result.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		actors := s.actors
		s.actors = nil
		original := s.original
		sweep := s.sweep
		s.mu.Unlock()

		var errs []error

		// Sensors stop delivering before anything is destroyed.
		for _, a := range actors {
			if sn, ok := a.(Sensor); ok && sn.IsAlive() && sn.IsListening() {
				if err := sn.Stop(); err != nil {
					errs = append(errs, fmt.Errorf("sim: stop sensor %d: %w", a.ID(), err))
				}
			}
		}

		for i := len(actors) - 1; i >= 0; i-- {
			if err := DestroyActor(actors[i]); err != nil {
				errs = append(errs, err)
			}
		}

		for _, pattern := range sweep {
			if err := DestroyActors(s.world.Actors(pattern)); err != nil {
				errs = append(errs, err)
			}
		}

		if original != nil {
			if err := RestoreSettings(s.world, *original); err != nil {
				errs = append(errs, err)
			}
		}

		s.err = errors.Join(errs...)
		if s.err != nil {
			s.logger.Error("session cleanup incomplete", "err", s.err)
		} else {
			s.logger.Debug("session cleaned up", "actors", len(actors))
		}
	})
	return s.err
}
