package display

import (
	"sync/atomic"

	"github.com/vovakirdan/carlaview/internal/core"
)

// Panel is a Source whose frame is set directly by the caller. It holds no
// simulator resources.
type Panel struct {
	cell  Cell
	frame atomic.Pointer[core.Frame]
}

// NewPanel creates an empty panel for cell.
func NewPanel(cell Cell) *Panel {
	return &Panel{cell: cell}
}

// Set replaces the panel frame.
func (p *Panel) Set(f *core.Frame) {
	p.frame.Store(f)
}

func (p *Panel) Frame() *core.Frame { return p.frame.Load() }

func (p *Panel) Cell() Cell { return p.cell }

func (p *Panel) Destroy() error { return nil }
