// Package overlay draws telemetry text onto camera frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/vovakirdan/carlaview/internal/core"
)

// Options places and styles the overlay text. Positions are the left end
// of the text baseline.
type Options struct {
	SpeedPos image.Point
	AnglePos image.Point
	Size     float64 // Font size in pixels
	Color    core.Color
}

// DefaultOptions mirrors the classic HUD layout: speed above the
// predicted angle in the top-left corner, small white text.
func DefaultOptions() Options {
	return Options{
		SpeedPos: image.Pt(30, 30),
		AnglePos: image.Pt(30, 50),
		Size:     12,
		Color:    core.ColorWhite,
	}
}

var (
	regularOnce sync.Once
	regular     *truetype.Font
	regularErr  error
)

func regularFont() (*truetype.Font, error) {
	regularOnce.Do(func() {
		regular, regularErr = freetype.ParseFont(goregular.TTF)
	})
	return regular, regularErr
}

// NewFace returns a Go Regular face of the given pixel size.
func NewFace(size float64) (font.Face, error) {
	f, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("overlay: parse font: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		Hinting: font.HintingFull,
	}), nil
}

// DrawText draws text with its baseline starting at (x, y).
func DrawText(dst draw.Image, face font.Face, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// Renderer draws the speed and predicted angle captions.
// A Renderer is not safe for concurrent use.
type Renderer struct {
	opts Options
	face font.Face
}

// New creates a renderer with the given options.
func New(opts Options) (*Renderer, error) {
	if opts.Size <= 0 {
		opts.Size = DefaultOptions().Size
	}
	face, err := NewFace(opts.Size)
	if err != nil {
		return nil, err
	}
	return &Renderer{opts: opts, face: face}, nil
}

// SpeedText formats a speed caption. Fractions are truncated.
func SpeedText(kph float64) string {
	return fmt.Sprintf("Speed: %d", int(kph))
}

// AngleText formats a predicted steering value as an angle caption.
func AngleText(angle float64) string {
	return fmt.Sprintf("Predicted angle in lane: %d", int(angle*90))
}

// Speed draws the speed caption onto f.
func (r *Renderer) Speed(f *core.Frame, kph float64) {
	DrawText(f, r.face, r.opts.SpeedPos.X, r.opts.SpeedPos.Y, SpeedText(kph), r.opts.Color.RGBA())
}

// Angle draws the predicted angle caption onto f.
func (r *Renderer) Angle(f *core.Frame, angle float64) {
	DrawText(f, r.face, r.opts.AnglePos.X, r.opts.AnglePos.Y, AngleText(angle), r.opts.Color.RGBA())
}

// Annotate draws both captions.
func (r *Renderer) Annotate(f *core.Frame, kph, angle float64) {
	r.Angle(f, angle)
	r.Speed(f, kph)
}
