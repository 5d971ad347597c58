package display

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/vovakirdan/carlaview/internal/core"
)

type staticSource struct {
	frame     *core.Frame
	cell      Cell
	destroyed int
	err       error
}

func (s *staticSource) Frame() *core.Frame { return s.frame }
func (s *staticSource) Cell() Cell         { return s.cell }
func (s *staticSource) Destroy() error {
	s.destroyed++
	return s.err
}

type recordingSurface struct {
	presented int
	last      *image.RGBA
	closed    bool
	input     core.InputFrame
}

func (s *recordingSurface) Present(c *image.RGBA) error {
	s.presented++
	s.last = c
	return nil
}

func (s *recordingSurface) Close() error {
	s.closed = true
	return nil
}

func (s *recordingSurface) Poll() core.InputFrame { return s.input }

func solid(w, h int, c core.Color) *core.Frame {
	f := core.NewFrame(w, h)
	f.Fill(c)
	return f
}

func TestCellGeometry(t *testing.T) {
	tests := []struct {
		rows, cols, w, h int
	}{
		{2, 3, 1280, 720},
		{1, 1, 640, 480},
		{3, 3, 1000, 1000},
		{4, 7, 1921, 1081},
		{5, 2, 5, 5},
	}

	for _, tc := range tests {
		m, err := NewManager(Config{Rows: tc.rows, Cols: tc.cols, Width: tc.w, Height: tc.h}, nil)
		if err != nil {
			t.Fatalf("NewManager(%+v) error = %v", tc, err)
		}

		cw, ch := m.CellSize()
		if cw != tc.w/tc.cols || ch != tc.h/tc.rows {
			t.Errorf("CellSize() = (%d, %d), expected (%d, %d)", cw, ch, tc.w/tc.cols, tc.h/tc.rows)
		}

		var rects []core.Rect
		for r := 0; r < tc.rows; r++ {
			for c := 0; c < tc.cols; c++ {
				rect := m.CellRect(Cell{Row: r, Col: c})
				if rect.W != cw || rect.H != ch {
					t.Errorf("CellRect(%d, %d) size = %dx%d, expected %dx%d", r, c, rect.W, rect.H, cw, ch)
				}
				if rect.X != c*cw || rect.Y != r*ch {
					t.Errorf("CellRect(%d, %d) origin = (%d, %d), expected (%d, %d)", r, c, rect.X, rect.Y, c*cw, r*ch)
				}
				if rect.Right() > tc.w || rect.Bottom() > tc.h {
					t.Errorf("CellRect(%d, %d) = %+v exceeds window %dx%d", r, c, rect, tc.w, tc.h)
				}
				rects = append(rects, rect)
			}
		}

		for i := range rects {
			for j := i + 1; j < len(rects); j++ {
				if !rects[i].Intersect(rects[j]).Empty() {
					t.Errorf("cells %+v and %+v overlap", rects[i], rects[j])
				}
			}
		}
	}
}

func TestConfigCheck(t *testing.T) {
	bad := []Config{
		{Rows: 0, Cols: 3, Width: 100, Height: 100},
		{Rows: 2, Cols: -1, Width: 100, Height: 100},
		{Rows: 2, Cols: 3, Width: 2, Height: 100},
		{Rows: 200, Cols: 3, Width: 100, Height: 100},
	}
	for _, cfg := range bad {
		if _, err := NewManager(cfg, nil); err == nil {
			t.Errorf("NewManager(%+v) should fail", cfg)
		}
	}
	if err := DefaultConfig().Check(); err != nil {
		t.Errorf("DefaultConfig().Check() = %v", err)
	}
}

func TestAddRejectsCellOutsideGrid(t *testing.T) {
	m, _ := NewManager(DefaultConfig(), nil)

	if err := m.Add(&staticSource{cell: Cell{Row: 2, Col: 0}}); err == nil {
		t.Error("Add() should reject row 2 in a 2-row grid")
	}
	if err := m.Add(&staticSource{cell: Cell{Row: 0, Col: -1}}); err == nil {
		t.Error("Add() should reject a negative column")
	}
	if err := m.Add(&staticSource{cell: Cell{Row: 1, Col: 2}}); err != nil {
		t.Errorf("Add() error = %v", err)
	}
	if len(m.Sources()) != 1 {
		t.Errorf("len(Sources()) = %d, expected 1", len(m.Sources()))
	}
}

func TestHeadlessRenderIsNoop(t *testing.T) {
	m, _ := NewManager(Config{Rows: 1, Cols: 1, Width: 4, Height: 4}, nil)
	_ = m.Add(&staticSource{frame: solid(4, 4, core.ColorWhite)})

	if m.RenderEnabled() {
		t.Fatal("manager without surface should be headless")
	}
	if err := m.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got := m.Canvas().RGBAAt(0, 0); got != (color.RGBA{A: 255}) {
		t.Errorf("headless Render() drew %v", got)
	}
	if err := m.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRenderCompositesCells(t *testing.T) {
	surf := &recordingSurface{}
	m, _ := NewManager(Config{Rows: 2, Cols: 2, Width: 8, Height: 6}, surf)

	_ = m.Add(&staticSource{frame: solid(4, 3, core.ColorRed), cell: Cell{0, 0}})
	_ = m.Add(&staticSource{frame: solid(4, 3, core.ColorGreen), cell: Cell{1, 1}})
	_ = m.Add(&staticSource{frame: nil, cell: Cell{0, 1}})

	if err := m.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if surf.presented != 1 {
		t.Fatalf("presented %d times, expected 1", surf.presented)
	}

	tests := []struct {
		name     string
		x, y     int
		expected color.RGBA
	}{
		{"top-left cell", 0, 0, color.RGBA{R: 255, A: 255}},
		{"top-left cell corner", 3, 2, color.RGBA{R: 255, A: 255}},
		{"empty cell stays blank", 5, 1, color.RGBA{A: 255}},
		{"undelivered cell stays blank", 0, 4, color.RGBA{A: 255}},
		{"bottom-right cell", 4, 3, color.RGBA{G: 255, A: 255}},
		{"bottom-right corner", 7, 5, color.RGBA{G: 255, A: 255}},
	}
	for _, tc := range tests {
		if got := surf.last.RGBAAt(tc.x, tc.y); got != tc.expected {
			t.Errorf("%s: RGBAAt(%d, %d) = %v, expected %v", tc.name, tc.x, tc.y, got, tc.expected)
		}
	}
}

func TestRenderResizesMismatchedFrames(t *testing.T) {
	surf := &recordingSurface{}
	m, _ := NewManager(Config{Rows: 1, Cols: 2, Width: 10, Height: 5}, surf)

	// A frame larger than its cell must not spill into the neighbour.
	_ = m.Add(&staticSource{frame: solid(256, 256, core.ColorBlue), cell: Cell{0, 0}})
	// A smaller one is scaled up to fill its cell.
	_ = m.Add(&staticSource{frame: solid(1, 1, core.ColorWhite), cell: Cell{0, 1}})

	if err := m.Render(); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			expected := color.RGBA{B: 255, A: 255}
			if x >= 5 {
				expected = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			if got := surf.last.RGBAAt(x, y); got != expected {
				t.Fatalf("RGBAAt(%d, %d) = %v, expected %v", x, y, got, expected)
			}
		}
	}
}

func TestCellReplacedNotMerged(t *testing.T) {
	surf := &recordingSurface{}
	m, _ := NewManager(Config{Rows: 1, Cols: 1, Width: 2, Height: 1}, surf)

	src := &staticSource{frame: core.NewFrame(2, 1)}
	src.frame.SetRGB(0, 0, core.ColorRed)
	_ = m.Add(src)
	_ = m.Render()

	next := core.NewFrame(2, 1)
	next.SetRGB(1, 0, core.ColorGreen)
	src.frame = next
	_ = m.Render()

	if got := surf.last.RGBAAt(0, 0); got != (color.RGBA{A: 255}) {
		t.Errorf("RGBAAt(0, 0) = %v, previous frame should be fully replaced", got)
	}
	if got := surf.last.RGBAAt(1, 0); got != (color.RGBA{G: 255, A: 255}) {
		t.Errorf("RGBAAt(1, 0) = %v, expected green", got)
	}
}

func TestDestroyVisitsEverySource(t *testing.T) {
	m, _ := NewManager(DefaultConfig(), nil)
	a := &staticSource{err: errors.New("boom")}
	b := &staticSource{cell: Cell{1, 1}}
	_ = m.Add(a)
	_ = m.Add(b)

	err := m.Destroy()
	if err == nil {
		t.Error("Destroy() should report the failing source")
	}
	if a.destroyed != 1 || b.destroyed != 1 {
		t.Errorf("destroyed = (%d, %d), expected (1, 1)", a.destroyed, b.destroyed)
	}
}

func TestTee(t *testing.T) {
	if Tee(nil, nil) != nil {
		t.Error("Tee of nil surfaces should be nil")
	}

	one := &recordingSurface{}
	if Tee(nil, one) != Surface(one) {
		t.Error("Tee of one surface should return it")
	}

	two := &recordingSurface{input: core.InputOf(core.ActionQuit)}
	s := Tee(one, two)
	canvas := image.NewRGBA(image.Rect(0, 0, 1, 1))
	if err := s.Present(canvas); err != nil {
		t.Fatalf("Present() error = %v", err)
	}
	if one.presented != 1 || two.presented != 1 {
		t.Errorf("presented = (%d, %d), expected (1, 1)", one.presented, two.presented)
	}

	if !Inputs(s).Poll().Has(core.ActionQuit) {
		t.Error("Tee should merge input from its surfaces")
	}
	if Inputs(nil).Poll().Has(core.ActionQuit) {
		t.Error("nil surface reports no input")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !one.closed || !two.closed {
		t.Error("Close() should close every surface")
	}
}

func TestPanelOverridesEarlierSource(t *testing.T) {
	m, err := NewManager(Config{Rows: 1, Cols: 1, Width: 4, Height: 4}, &recordingSurface{})
	if err != nil {
		t.Fatal(err)
	}
	under := core.NewFrame(4, 4)
	under.Fill(core.ColorRed)
	if err := m.Add(&staticSource{frame: under}); err != nil {
		t.Fatal(err)
	}
	p := NewPanel(Cell{})
	if err := m.Add(p); err != nil {
		t.Fatal(err)
	}

	if got := core.ColorFrom(m.Compose().At(1, 1)); got != core.ColorRed {
		t.Errorf("empty panel drew %v, expected the red source to show", got)
	}

	over := core.NewFrame(4, 4)
	over.Fill(core.ColorGreen)
	p.Set(over)
	if got := core.ColorFrom(m.Compose().At(1, 1)); got != core.ColorGreen {
		t.Errorf("pixel = %v, expected the panel frame", got)
	}
}
