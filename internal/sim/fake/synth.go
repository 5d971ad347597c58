package fake

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vovakirdan/carlaview/internal/core"
	"github.com/vovakirdan/carlaview/internal/overlay"
	"github.com/vovakirdan/carlaview/internal/sim"
)

// The fake environment is a straight street: building fronts run parallel
// to the road at streetHalfWidth on both sides, and cross walls close it
// off at streetHalfLength ahead and behind.
const (
	streetHalfWidth  = 12.0
	streetHalfLength = 45.0
	maxScanPoints    = 16384
	maxRadarPoints   = 64
)

// Semantic tags written by the semantic lidar.
const (
	tagBuilding uint32 = 1
	tagWall     uint32 = 11
)

var (
	colorSky      = core.Color{R: 135, G: 190, B: 235}
	colorGrass    = core.Color{R: 70, G: 110, B: 60}
	colorAsphalt  = core.Color{R: 70, G: 70, B: 75}
	colorMarking  = core.Color{R: 235, G: 235, B: 235}
	colorSidewalk = core.Color{R: 150, G: 150, B: 145}
	colorFacade   = core.Color{R: 150, G: 110, B: 90}
	colorWindow   = core.Color{R: 60, G: 80, B: 110}
)

// pose is the parent vehicle state a sensor observes from.
type pose struct {
	loc      sim.Location
	yaw      float64 // degrees, road heading is 0
	offset   float64 // lateral offset from lane centre, meters
	odometer float64
	speed    float64
}

func (w *World) renderCamera(s *sensor, p pose) sim.Measurement {
	width := s.attrInt("image_size_x", 800)
	height := s.attrInt("image_size_y", 600)
	f := core.NewFrame(width, height)

	rel := math.Remainder(s.transform.Rotation.Yaw, 360)
	horizon := height / 2
	f.FillRect(core.NewRect(0, 0, width, horizon), colorSky)
	f.FillRect(core.NewRect(0, horizon, width, height-horizon), colorGrass)

	switch {
	case math.Abs(rel) <= 45:
		drawRoad(f, horizon, p.offset, p.yaw, p.odometer)
	case math.Abs(rel) >= 135:
		drawRoad(f, horizon, -p.offset, -p.yaw, -p.odometer)
	default:
		drawRoadside(f, horizon, p.odometer, rel > 0)
	}

	if w.face != nil {
		caption := fmt.Sprintf("%s yaw %+.0f #%d", w.m.name, rel, w.frame)
		overlay.DrawText(f, w.face, 4, 12, caption, colorMarking.RGBA())
	}

	return sim.Measurement{
		Frame:     w.frame,
		Timestamp: w.elapsed,
		Width:     width,
		Height:    height,
		Raw:       toBGRA(f),
	}
}

// drawRoad paints the ego lane in perspective: a dashed line on the left
// and a solid edge on the right, shifted by the lateral offset.
func drawRoad(f *core.Frame, horizon int, offset, heading, odometer float64) {
	w, h := float64(f.Width()), f.Height()
	span := float64(h - horizon)
	for y := horizon + 1; y < h; y++ {
		t := float64(y-horizon) / span
		cx := w/2 - offset*t*w*0.12 - heading*(1-t)*w*0.02
		half := t * w * 0.45
		for x := int(cx - half); x <= int(cx+half); x++ {
			f.SetRGB(x, y, colorAsphalt)
		}

		lane := half * 0.55
		mark := max(1, int(t*4))
		ahead := 6 / t
		if int(math.Floor((ahead+odometer)/3))%2 == 0 {
			for dx := 0; dx < mark; dx++ {
				f.SetRGB(int(cx-lane)+dx, y, colorMarking)
			}
		}
		for dx := 0; dx < mark; dx++ {
			f.SetRGB(int(cx+lane)+dx, y, colorMarking)
		}
	}
}

// drawRoadside paints a sidewalk and a row of building fronts scrolling
// with the distance driven.
func drawRoadside(f *core.Frame, horizon int, odometer float64, right bool) {
	w, h := f.Width(), f.Height()
	f.FillRect(core.NewRect(0, horizon+(h-horizon)/2, w, h), colorSidewalk)

	const blockW, gap = 40, 20
	scroll := int(odometer*8) % (blockW + gap)
	if !right {
		scroll = -scroll
	}
	for i := -1; i*(blockW+gap) < w+blockW+gap; i++ {
		x := i*(blockW+gap) - scroll
		top := horizon/4 + (i*37&0x3f)%(horizon/2+1)
		f.FillRect(core.NewRect(x, top, blockW, horizon+(h-horizon)/2-top), colorFacade)
		for wy := top + 6; wy+6 < horizon; wy += 14 {
			f.FillRect(core.NewRect(x+8, wy, 8, 6), colorWindow)
			f.FillRect(core.NewRect(x+24, wy, 8, 6), colorWindow)
		}
	}
}

func toBGRA(f *core.Frame) []byte {
	pix := f.Pix()
	out := make([]byte, 0, len(pix)/3*4)
	for i := 0; i < len(pix); i += 3 {
		out = append(out, pix[i+2], pix[i+1], pix[i], 0xff)
	}
	return out
}

// streetDistance returns the distance along azimuth az (radians) to the
// nearest street boundary, and the semantic tag of what was hit.
func streetDistance(az float64) (float64, uint32) {
	dx, dy := math.Inf(1), math.Inf(1)
	if c := math.Abs(math.Cos(az)); c > 1e-9 {
		dx = streetHalfLength / c
	}
	if s := math.Abs(math.Sin(az)); s > 1e-9 {
		dy = streetHalfWidth / s
	}
	if dy <= dx {
		return dy, tagBuilding
	}
	return dx, tagWall
}

func appendFloat32(buf []byte, v float64) []byte {
	return binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v)))
}

// scanPoints returns the number of points a sensor emits in one step.
func scanPoints(s *sensor, dt float64, limit int) int {
	n := int(s.attrFloat("points_per_second", 0) * dt)
	return max(0, min(n, limit))
}

// lidarScan synthesises one step of a rotating lidar. Each point is
// x, y, z, intensity (stride 4) or, for the semantic variant,
// x, y, z, cos incidence, object index, object tag (stride 6).
func (w *World) lidarScan(s *sensor, dt float64, semantic bool) sim.Measurement {
	channels := max(1, s.attrInt("channels", 32))
	rangeM := s.attrFloat("range", 10)
	freq := s.attrFloat("rotation_frequency", 10)
	n := scanPoints(s, dt, maxScanPoints)

	stride := 4
	if semantic {
		stride = 6
	}
	buf := make([]byte, 0, n*stride*4)

	perChannel := max(1, n/channels)
	sweep := 2 * math.Pi * freq * dt
	phase := math.Mod(2*math.Pi*freq*w.elapsed, 2*math.Pi)
	z := s.transform.Location.Z

	for i := 0; i < n; i++ {
		ch := i % channels
		az := phase + sweep*float64(i/channels)/float64(perChannel)
		d, tag := streetDistance(az)
		if d > rangeM {
			continue
		}
		height := -z + 2*z*float64(ch)/float64(channels)
		x, y := d*math.Cos(az), d*math.Sin(az)

		buf = appendFloat32(buf, x)
		buf = appendFloat32(buf, y)
		buf = appendFloat32(buf, height)
		if semantic {
			buf = appendFloat32(buf, math.Abs(math.Cos(az)))
			buf = binary.LittleEndian.AppendUint32(buf, uint32(1000+ch))
			buf = binary.LittleEndian.AppendUint32(buf, tag)
		} else {
			buf = appendFloat32(buf, math.Max(0, 1-0.004*d))
		}
	}

	return sim.Measurement{Frame: w.frame, Timestamp: w.elapsed, Raw: buf}
}

// radarScan synthesises detections spread across the horizontal field of
// view. Each detection is velocity, azimuth, altitude, depth.
func (w *World) radarScan(s *sensor, p pose, dt float64) sim.Measurement {
	hfov := s.attrFloat("horizontal_fov", 30) * math.Pi / 180
	rangeM := s.attrFloat("range", 100)
	n := max(1, scanPoints(s, dt, maxRadarPoints))
	heading := s.transform.Rotation.Yaw * math.Pi / 180

	buf := make([]byte, 0, n*16)
	for i := 0; i < n; i++ {
		az := -hfov/2 + hfov*(float64(i)+0.5)/float64(n)
		d, _ := streetDistance(heading + az)
		if d > rangeM {
			continue
		}
		buf = appendFloat32(buf, -p.speed*math.Cos(heading+az))
		buf = appendFloat32(buf, az)
		buf = appendFloat32(buf, 0)
		buf = appendFloat32(buf, d)
	}
	return sim.Measurement{Frame: w.frame, Timestamp: w.elapsed, Raw: buf}
}
