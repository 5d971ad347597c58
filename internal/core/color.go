package core

import "image/color"

// Color is a 24-bit RGB pixel value as stored in a Frame.
type Color struct {
	R, G, B uint8
}

// Named colors used for sensor rasters and overlays.
var (
	ColorWhite = Color{R: 255, G: 255, B: 255}
	ColorBlack = Color{}
	ColorRed   = Color{R: 255}
	ColorGreen = Color{G: 255}
	ColorBlue  = Color{B: 255}
)

// RGBA converts the color to an opaque color.RGBA.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// ColorFrom converts any color.Color, discarding alpha.
func ColorFrom(c color.Color) Color {
	r, g, b, _ := c.RGBA()
	return Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
}

// ParseColor builds a Color from a three element slice as found in
// configuration files. Components are clamped to [0, 255].
func ParseColor(rgb []int) (Color, bool) {
	if len(rgb) != 3 {
		return Color{}, false
	}
	return Color{
		R: uint8(Clamp(rgb[0], 0, 255)),
		G: uint8(Clamp(rgb[1], 0, 255)),
		B: uint8(Clamp(rgb[2], 0, 255)),
	}, true
}
