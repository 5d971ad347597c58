package sensor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vovakirdan/carlaview/internal/core"
)

// ConvertBGRA turns a raw camera image (width*height BGRA pixels) into an
// RGB frame: alpha is dropped and the channel order reversed.
func ConvertBGRA(raw []byte, width, height int) (*core.Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("sensor: invalid image size %dx%d", width, height)
	}
	if len(raw) < width*height*4 {
		return nil, fmt.Errorf("sensor: image buffer holds %d bytes, %dx%d BGRA needs %d",
			len(raw), width, height, width*height*4)
	}

	pix := make([]uint8, width*height*3)
	for i, j := 0, 0; j < len(pix); i, j = i+4, j+3 {
		pix[j] = raw[i+2]
		pix[j+1] = raw[i+1]
		pix[j+2] = raw[i]
	}
	return core.NewFrameFromPix(width, height, pix)
}

// Raster holds the parameters for projecting point clouds onto a cell.
type Raster struct {
	Width, Height int     // Cell size in pixels
	Range         float64 // Configured sensor range, meters
	Multiplier    float64 // Range multiplier, 2.0 shows the full diameter
	Color         core.Color
}

// Scale returns pixels per meter.
func (r Raster) Scale() float32 {
	return float32(float64(min(r.Width, r.Height)) / (r.Multiplier * r.Range))
}

// RasterizePoints draws a top-down image of a point cloud. raw holds
// little-endian float32 records of stride fields each; only the first two
// (x, y) are used. Each point is scaled, moved so the sensor origin lands
// in the cell centre, folded with an absolute value and truncated: x picks
// the column and y the row. Points landing outside the cell are dropped and
// later points overwrite earlier ones. A trailing partial record is ignored.
func RasterizePoints(raw []byte, stride int, r Raster) (*core.Frame, error) {
	if stride < 2 {
		return nil, fmt.Errorf("sensor: point stride %d too small", stride)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("sensor: invalid raster size %dx%d", r.Width, r.Height)
	}
	if r.Range <= 0 || r.Multiplier <= 0 {
		return nil, fmt.Errorf("sensor: invalid range %v x %v", r.Range, r.Multiplier)
	}

	f := core.NewFrame(r.Width, r.Height)
	scale := r.Scale()
	cx, cy := 0.5*float32(r.Width), 0.5*float32(r.Height)

	record := stride * 4
	for off := 0; off+record <= len(raw); off += record {
		x := math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
		y := math.Float32frombits(binary.LittleEndian.Uint32(raw[off+4:]))

		px := absf(x*scale + cx)
		py := absf(y*scale + cy)
		// NaN and huge values fail these comparisons and are dropped.
		if !(px < float32(r.Width)) || !(py < float32(r.Height)) {
			continue
		}
		f.SetRGB(int(px), int(py), r.Color)
	}
	return f, nil
}

func absf(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

// RadarDetection is one radar return.
type RadarDetection struct {
	Velocity float32 // m/s towards the sensor is negative
	Azimuth  float32 // radians
	Altitude float32 // radians
	Depth    float32 // meters
}

// ParseRadar decodes radar detections, four float32 fields each.
func ParseRadar(raw []byte) ([]RadarDetection, error) {
	if len(raw)%16 != 0 {
		return nil, fmt.Errorf("sensor: radar buffer length %d is not a multiple of 16", len(raw))
	}
	out := make([]RadarDetection, 0, len(raw)/16)
	for off := 0; off < len(raw); off += 16 {
		out = append(out, RadarDetection{
			Velocity: readFloat32(raw[off:]),
			Azimuth:  readFloat32(raw[off+4:]),
			Altitude: readFloat32(raw[off+8:]),
			Depth:    readFloat32(raw[off+12:]),
		})
	}
	return out, nil
}

func readFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
