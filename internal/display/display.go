// Package display composites sensor frames into a fixed grid and hands the
// result to a window surface once per tick.
package display

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/vovakirdan/carlaview/internal/core"
)

// Cell is a (row, column) position in the grid.
type Cell struct {
	Row, Col int
}

func (c Cell) String() string {
	return fmt.Sprintf("[%d,%d]", c.Row, c.Col)
}

// Config is the grid shape and window size. It is fixed once a Manager is
// created.
type Config struct {
	Rows   int
	Cols   int
	Width  int
	Height int
}

// DefaultConfig is a 2x3 grid in a 1280x720 window.
func DefaultConfig() Config {
	return Config{Rows: 2, Cols: 3, Width: 1280, Height: 720}
}

// Check reports whether every cell gets at least one pixel.
func (c Config) Check() error {
	if c.Rows <= 0 || c.Cols <= 0 {
		return fmt.Errorf("display: grid %dx%d must be positive", c.Rows, c.Cols)
	}
	if c.Width < c.Cols || c.Height < c.Rows {
		return fmt.Errorf("display: window %dx%d too small for a %dx%d grid",
			c.Width, c.Height, c.Rows, c.Cols)
	}
	return nil
}

// Source is anything that owns a grid cell and produces frames for it.
type Source interface {
	// Frame returns the most recent frame, or nil if none has arrived.
	Frame() *core.Frame
	Cell() Cell
	Destroy() error
}

// Surface is a window the composited canvas is presented to.
type Surface interface {
	Present(canvas *image.RGBA) error
	Close() error
}

// InputSource reports the actions held since the last poll. Window close
// requests are reported as core.ActionQuit.
type InputSource interface {
	Poll() core.InputFrame
}

// Manager owns the grid and the canvas. A Manager without a surface is
// headless: Render does nothing.
type Manager struct {
	cfg     Config
	surface Surface
	canvas  *image.RGBA

	mu      sync.Mutex
	sources []Source
}

// NewManager creates a grid compositor. surface may be nil for headless runs.
func NewManager(cfg Config, surface Surface) (*Manager, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	canvas := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	// Opaque black until a cell is drawn.
	for i := 3; i < len(canvas.Pix); i += 4 {
		canvas.Pix[i] = 0xff
	}
	return &Manager{cfg: cfg, surface: surface, canvas: canvas}, nil
}

// Config returns the grid configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// WindowSize returns the window size in pixels.
func (m *Manager) WindowSize() (int, int) {
	return m.cfg.Width, m.cfg.Height
}

// CellSize returns the pixel size of one cell: Width/Cols by Height/Rows,
// truncated. Leftover pixels on the right and bottom edges are never drawn.
func (m *Manager) CellSize() (int, int) {
	return m.cfg.Width / m.cfg.Cols, m.cfg.Height / m.cfg.Rows
}

// CellOffset returns the top-left pixel of a cell.
func (m *Manager) CellOffset(c Cell) (int, int) {
	w, h := m.CellSize()
	return c.Col * w, c.Row * h
}

// CellRect returns the pixel region of a cell.
func (m *Manager) CellRect(c Cell) core.Rect {
	x, y := m.CellOffset(c)
	w, h := m.CellSize()
	return core.NewRect(x, y, w, h)
}

// Contains reports whether c lies inside the grid.
func (m *Manager) Contains(c Cell) bool {
	return c.Row >= 0 && c.Row < m.cfg.Rows && c.Col >= 0 && c.Col < m.cfg.Cols
}

// Add registers a source. Sources whose cell lies outside the grid are
// rejected.
func (m *Manager) Add(s Source) error {
	if !m.Contains(s.Cell()) {
		return fmt.Errorf("display: cell %s outside %dx%d grid", s.Cell(), m.cfg.Rows, m.cfg.Cols)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, s)
	return nil
}

// Sources returns the registered sources in insertion order.
func (m *Manager) Sources() []Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Source, len(m.sources))
	copy(out, m.sources)
	return out
}

// RenderEnabled reports whether a surface is attached.
func (m *Manager) RenderEnabled() bool {
	return m.surface != nil
}

// Compose copies every source's current frame into its cell. Frames whose
// size differs from the cell are resized to fit; sources without a frame
// leave their cell as it was. When several sources share a cell the last
// one added wins.
func (m *Manager) Compose() *image.RGBA {
	w, h := m.CellSize()
	for _, s := range m.Sources() {
		f := s.Frame()
		if f == nil {
			continue
		}
		if !f.SameSize(w, h) {
			f = f.Resize(w, h)
		}
		x, y := m.CellOffset(s.Cell())
		f.DrawInto(m.canvas, x, y)
	}
	return m.canvas
}

// Canvas returns the composited image. It is only valid until the next
// Compose or Render.
func (m *Manager) Canvas() *image.RGBA {
	return m.canvas
}

// Render composites all cells and presents the canvas. It is a no-op in
// headless mode.
func (m *Manager) Render() error {
	if !m.RenderEnabled() {
		return nil
	}
	if err := m.surface.Present(m.Compose()); err != nil {
		return fmt.Errorf("display: present: %w", err)
	}
	return nil
}

// Destroy destroys every source, continuing past failures.
func (m *Manager) Destroy() error {
	var errs []error
	for _, s := range m.Sources() {
		if err := s.Destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close releases the surface.
func (m *Manager) Close() error {
	if m.surface == nil {
		return nil
	}
	return m.surface.Close()
}
