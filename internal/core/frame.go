package core

import (
	"fmt"
	"image"
	"image/color"
)

// Frame is a rectangular RGB pixel buffer produced by one sensor.
// It decouples sensor conversion from the window surface: sensors write
// pixels, the compositor copies whole frames into grid cells.
//
// Frame implements draw.Image so text and shapes can be drawn onto it
// with the standard drawing packages.
type Frame struct {
	width  int
	height int
	pix    []uint8 // RGB triples, row-major
}

// NewFrame creates a black frame with the given dimensions.
// Negative dimensions are treated as zero.
func NewFrame(width, height int) *Frame {
	width = max(width, 0)
	height = max(height, 0)
	return &Frame{
		width:  width,
		height: height,
		pix:    make([]uint8, width*height*3),
	}
}

// NewFrameFromPix wraps an existing RGB buffer without copying it.
// The buffer must hold exactly width*height*3 bytes.
func NewFrameFromPix(width, height int, pix []uint8) (*Frame, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("frame: negative dimensions %dx%d", width, height)
	}
	if len(pix) != width*height*3 {
		return nil, fmt.Errorf("frame: buffer holds %d bytes, %dx%d needs %d",
			len(pix), width, height, width*height*3)
	}
	return &Frame{width: width, height: height, pix: pix}, nil
}

// FrameFromImage copies any image into a new frame, dropping alpha.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := f.offset(x, y)
			f.pix[i] = uint8(r >> 8)
			f.pix[i+1] = uint8(g >> 8)
			f.pix[i+2] = uint8(bl >> 8)
		}
	}
	return f
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	return f.width
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	return f.height
}

// Pix exposes the underlying RGB buffer. Callers must not modify it once
// the frame has been handed to the compositor.
func (f *Frame) Pix() []uint8 {
	return f.pix
}

// Rect returns the frame area anchored at the origin.
func (f *Frame) Rect() Rect {
	return NewRect(0, 0, f.width, f.height)
}

// SameSize reports whether the frame is exactly w by h pixels.
func (f *Frame) SameSize(w, h int) bool {
	return f.width == w && f.height == h
}

func (f *Frame) offset(x, y int) int {
	return (y*f.width + x) * 3
}

func (f *Frame) inBounds(x, y int) bool {
	return x >= 0 && x < f.width && y >= 0 && y < f.height
}

// SetRGB stamps a color at (x, y).
// Out-of-bounds coordinates are silently ignored.
func (f *Frame) SetRGB(x, y int, c Color) {
	if !f.inBounds(x, y) {
		return
	}
	i := f.offset(x, y)
	f.pix[i] = c.R
	f.pix[i+1] = c.G
	f.pix[i+2] = c.B
}

// RGBAt returns the color at (x, y), or black for out-of-bounds coordinates.
func (f *Frame) RGBAt(x, y int) Color {
	if !f.inBounds(x, y) {
		return ColorBlack
	}
	i := f.offset(x, y)
	return Color{R: f.pix[i], G: f.pix[i+1], B: f.pix[i+2]}
}

// Bounds implements image.Image.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.width, f.height)
}

// ColorModel implements image.Image.
func (f *Frame) ColorModel() color.Model {
	return color.RGBAModel
}

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	return f.RGBAt(x, y).RGBA()
}

// Set implements draw.Image. Alpha is discarded.
func (f *Frame) Set(x, y int, c color.Color) {
	f.SetRGB(x, y, ColorFrom(c))
}

// Clear fills the frame with black.
func (f *Frame) Clear() {
	clear(f.pix)
}

// Fill paints every pixel with c.
func (f *Frame) Fill(c Color) {
	for i := 0; i < len(f.pix); i += 3 {
		f.pix[i] = c.R
		f.pix[i+1] = c.G
		f.pix[i+2] = c.B
	}
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	pix := make([]uint8, len(f.pix))
	copy(pix, f.pix)
	return &Frame{width: f.width, height: f.height, pix: pix}
}

// Equal reports whether two frames have the same size and pixels.
func (f *Frame) Equal(other *Frame) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.width != other.width || f.height != other.height {
		return false
	}
	for i := range f.pix {
		if f.pix[i] != other.pix[i] {
			return false
		}
	}
	return true
}

// Resize returns a new frame scaled to width x height using nearest
// neighbour sampling. The receiver is left untouched.
func (f *Frame) Resize(width, height int) *Frame {
	dst := NewFrame(width, height)
	if f.width == 0 || f.height == 0 {
		return dst
	}
	for y := 0; y < dst.height; y++ {
		sy := y * f.height / dst.height
		for x := 0; x < dst.width; x++ {
			sx := x * f.width / dst.width
			si := f.offset(sx, sy)
			di := dst.offset(x, y)
			copy(dst.pix[di:di+3], f.pix[si:si+3])
		}
	}
	return dst
}

// Blit copies src into the frame with its top-left corner at (x, y).
// Pixels falling outside the frame are clipped.
func (f *Frame) Blit(src *Frame, x, y int) {
	area := f.Rect().Intersect(NewRect(x, y, src.width, src.height))
	if area.Empty() {
		return
	}
	for row := area.Y; row < area.Bottom(); row++ {
		si := src.offset(area.X-x, row-y)
		di := f.offset(area.X, row)
		n := area.W * 3
		copy(f.pix[di:di+n], src.pix[si:si+n])
	}
}

// DrawInto copies the frame into an RGBA canvas at (x, y), clipped to the
// canvas bounds. Alpha is set to opaque.
func (f *Frame) DrawInto(dst *image.RGBA, x, y int) {
	area := image.Rect(x, y, x+f.width, y+f.height).Intersect(dst.Bounds())
	if area.Empty() {
		return
	}
	for py := area.Min.Y; py < area.Max.Y; py++ {
		si := f.offset(area.Min.X-x, py-y)
		di := dst.PixOffset(area.Min.X, py)
		for px := area.Min.X; px < area.Max.X; px++ {
			dst.Pix[di] = f.pix[si]
			dst.Pix[di+1] = f.pix[si+1]
			dst.Pix[di+2] = f.pix[si+2]
			dst.Pix[di+3] = 0xff
			si += 3
			di += 4
		}
	}
}

// RGBA returns the frame as an opaque RGBA image.
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(f.Bounds())
	f.DrawInto(img, 0, 0)
	return img
}

// FillRect paints the part of r that lies inside the frame.
func (f *Frame) FillRect(r Rect, c Color) {
	area := f.Rect().Intersect(r)
	for y := area.Y; y < area.Bottom(); y++ {
		for x := area.X; x < area.Right(); x++ {
			f.SetRGB(x, y, c)
		}
	}
}
