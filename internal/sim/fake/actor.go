package fake

import (
	"fmt"

	"github.com/vovakirdan/carlaview/internal/sim"
)

func errDestroyed(id int) error {
	return fmt.Errorf("fake: actor %d already destroyed", id)
}

// actorBase holds the fields shared by every fake actor. All mutable state
// is guarded by the owning world's mutex.
type actorBase struct {
	world     *World
	id        int
	typeID    string
	bp        *blueprint
	transform sim.Transform // world transform, or relative to parent
	parent    int
	alive     bool
}

func (a *actorBase) ID() int        { return a.id }
func (a *actorBase) TypeID() string { return a.typeID }

func (a *actorBase) IsAlive() bool {
	a.world.mu.Lock()
	defer a.world.mu.Unlock()
	return a.alive
}

func (a *actorBase) Destroy() error {
	return a.world.destroy(a.id)
}

func (a *actorBase) base() *actorBase { return a }

type actor interface {
	sim.Actor
	base() *actorBase
}
