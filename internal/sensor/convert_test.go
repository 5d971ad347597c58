package sensor

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/vovakirdan/carlaview/internal/core"
)

// points encodes records of stride float32 fields; each input point holds
// x and y, the remaining fields are filled with a marker value.
func points(stride int, xy ...[2]float32) []byte {
	var buf []byte
	for _, p := range xy {
		for i := 0; i < stride; i++ {
			v := float32(7)
			if i < 2 {
				v = p[i]
			}
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
		}
	}
	return buf
}

type pixel struct{ X, Y int }

func litPixels(f *core.Frame) []pixel {
	var out []pixel
	for y := 0; y < f.Height(); y++ {
		for x := 0; x < f.Width(); x++ {
			if f.RGBAt(x, y) != core.ColorBlack {
				out = append(out, pixel{x, y})
			}
		}
	}
	return out
}

func TestConvertBGRA(t *testing.T) {
	raw := []byte{1, 2, 3, 255, 4, 5, 6, 0}
	f, err := ConvertBGRA(raw, 2, 1)
	if err != nil {
		t.Fatalf("ConvertBGRA() error = %v", err)
	}
	if got := f.RGBAt(0, 0); got != (core.Color{R: 3, G: 2, B: 1}) {
		t.Errorf("RGBAt(0, 0) = %v, expected {3 2 1}", got)
	}
	if got := f.RGBAt(1, 0); got != (core.Color{R: 6, G: 5, B: 4}) {
		t.Errorf("RGBAt(1, 0) = %v, expected {6 5 4}", got)
	}

	if _, err := ConvertBGRA(raw[:7], 2, 1); err == nil {
		t.Error("short buffer should be rejected")
	}
	if _, err := ConvertBGRA(raw, 0, 1); err == nil {
		t.Error("zero width should be rejected")
	}
}

func TestRasterizePoints(t *testing.T) {
	// 100x50 cell, 100 m range, multiplier 2: 0.25 px per meter, origin at (50, 25).
	r := Raster{Width: 100, Height: 50, Range: 100, Multiplier: 2, Color: core.ColorWhite}

	tests := []struct {
		name     string
		pts      [][2]float32
		expected []pixel
	}{
		{"origin maps to cell centre", [][2]float32{{0, 0}}, []pixel{{50, 25}}},
		{"x picks the column", [][2]float32{{40, 0}}, []pixel{{60, 25}}},
		{"y picks the row", [][2]float32{{0, 40}}, []pixel{{50, 35}}},
		{"fractions truncate", [][2]float32{{3.9, 3.9}}, []pixel{{50, 25}}},
		{"negative coordinates fold onto positive pixels", [][2]float32{{-300, -180}}, []pixel{{25, 20}}},
		{"points past the right edge are dropped", [][2]float32{{200, 0}}, nil},
		{"points past the bottom edge are dropped", [][2]float32{{0, 100}}, nil},
		{"folded points past the edge are dropped", [][2]float32{{-700, 0}}, nil},
		{"non-finite points are dropped", [][2]float32{{float32(math.NaN()), 0}, {float32(math.Inf(1)), 0}}, nil},
		{"duplicates stamp once", [][2]float32{{8, 8}, {8, 8}}, []pixel{{52, 27}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := RasterizePoints(points(4, tc.pts...), 4, r)
			if err != nil {
				t.Fatalf("RasterizePoints() error = %v", err)
			}
			if f.Width() != 100 || f.Height() != 50 {
				t.Fatalf("frame = %dx%d, expected 100x50", f.Width(), f.Height())
			}
			if diff := cmp.Diff(tc.expected, litPixels(f)); diff != "" {
				t.Errorf("lit pixels mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRasterizePointsSemanticStride(t *testing.T) {
	r := Raster{Width: 20, Height: 20, Range: 10, Multiplier: 2, Color: core.ColorRed}
	raw := points(6, [2]float32{0, 0}, [2]float32{5, -5})

	f, err := RasterizePoints(raw, 6, r)
	if err != nil {
		t.Fatalf("RasterizePoints() error = %v", err)
	}
	expected := []pixel{{15, 5}, {10, 10}}
	if diff := cmp.Diff(expected, litPixels(f)); diff != "" {
		t.Errorf("lit pixels mismatch (-want +got):\n%s", diff)
	}
	if f.RGBAt(10, 10) != core.ColorRed {
		t.Errorf("RGBAt(10, 10) = %v, expected red", f.RGBAt(10, 10))
	}
}

func TestRasterizePointsIdempotent(t *testing.T) {
	r := Raster{Width: 64, Height: 48, Range: 100, Multiplier: 2, Color: core.ColorWhite}
	var xy [][2]float32
	for i := 0; i < 500; i++ {
		a := float64(i) * 0.1
		d := float32(5 + i%90)
		xy = append(xy, [2]float32{d * float32(math.Cos(a)), d * float32(math.Sin(a))})
	}
	raw := points(4, xy...)

	first, err := RasterizePoints(raw, 4, r)
	if err != nil {
		t.Fatalf("RasterizePoints() error = %v", err)
	}
	second, _ := RasterizePoints(raw, 4, r)
	if !first.Equal(second) {
		t.Error("rasterizing identical bytes should give identical frames")
	}
}

func TestRasterizePointsPartialRecord(t *testing.T) {
	r := Raster{Width: 10, Height: 10, Range: 5, Multiplier: 2, Color: core.ColorWhite}
	raw := points(4, [2]float32{0, 0})
	raw = append(raw, 1, 2, 3)

	f, err := RasterizePoints(raw, 4, r)
	if err != nil {
		t.Fatalf("RasterizePoints() error = %v", err)
	}
	if n := len(litPixels(f)); n != 1 {
		t.Errorf("lit %d pixels, expected 1", n)
	}
}

func TestRasterizePointsRejectsBadParameters(t *testing.T) {
	good := Raster{Width: 10, Height: 10, Range: 5, Multiplier: 2}
	bad := []struct {
		name   string
		stride int
		r      Raster
	}{
		{"stride", 1, good},
		{"width", 4, Raster{Width: 0, Height: 10, Range: 5, Multiplier: 2}},
		{"range", 4, Raster{Width: 10, Height: 10, Range: 0, Multiplier: 2}},
		{"multiplier", 4, Raster{Width: 10, Height: 10, Range: 5, Multiplier: -1}},
	}
	for _, tc := range bad {
		if _, err := RasterizePoints(nil, tc.stride, tc.r); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestParseRadar(t *testing.T) {
	var raw []byte
	for _, v := range []float32{-3, 0.1, 0.2, 40, 1, -0.1, 0, 12.5} {
		raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(v))
	}

	got, err := ParseRadar(raw)
	if err != nil {
		t.Fatalf("ParseRadar() error = %v", err)
	}
	expected := []RadarDetection{
		{Velocity: -3, Azimuth: 0.1, Altitude: 0.2, Depth: 40},
		{Velocity: 1, Azimuth: -0.1, Altitude: 0, Depth: 12.5},
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("ParseRadar() mismatch (-want +got):\n%s", diff)
	}

	if _, err := ParseRadar(raw[:15]); err == nil {
		t.Error("truncated radar buffer should be rejected")
	}
}

func TestStats(t *testing.T) {
	var s Stats
	if snap := s.Snapshot(); snap.Ticks != 0 || snap.MeanMS != 0 {
		t.Errorf("empty Snapshot() = %+v", snap)
	}

	s.Add(1 * time.Millisecond)
	if snap := s.Snapshot(); snap.MeanMS != 1 || snap.StdDevMS != 0 {
		t.Errorf("single sample Snapshot() = %+v, expected mean 1", snap)
	}

	s.Add(2 * time.Millisecond)
	s.Add(3 * time.Millisecond)
	snap := s.Snapshot()
	if snap.Ticks != 3 {
		t.Errorf("Ticks = %d, expected 3", snap.Ticks)
	}
	if snap.Total != 6*time.Millisecond {
		t.Errorf("Total = %v, expected 6ms", snap.Total)
	}
	if math.Abs(snap.MeanMS-2) > 1e-9 || math.Abs(snap.StdDevMS-1) > 1e-9 {
		t.Errorf("mean/stddev = %v/%v, expected 2/1", snap.MeanMS, snap.StdDevMS)
	}
}

func TestStatsWindow(t *testing.T) {
	var s Stats
	for i := 0; i < statsWindow; i++ {
		s.Add(time.Millisecond)
	}
	for i := 0; i < statsWindow; i++ {
		s.Add(3 * time.Millisecond)
	}
	snap := s.Snapshot()
	if snap.Ticks != 2*statsWindow {
		t.Errorf("Ticks = %d, expected %d", snap.Ticks, 2*statsWindow)
	}
	if math.Abs(snap.MeanMS-3) > 1e-9 {
		t.Errorf("MeanMS = %v, expected only the recent window", snap.MeanMS)
	}
}

func TestKind(t *testing.T) {
	k, err := ParseKind("semanticlidar")
	if err != nil || k != KindSemanticLiDAR {
		t.Errorf("ParseKind() = %v, %v", k, err)
	}
	if _, err := ParseKind("sonar"); err == nil {
		t.Error("ParseKind(sonar) should fail")
	}
	if KindLiDAR.Stride() != 4 || KindSemanticLiDAR.Stride() != 6 {
		t.Error("unexpected point strides")
	}
	if KindRadar.Blueprint() != "sensor.other.radar" {
		t.Errorf("Blueprint() = %q", KindRadar.Blueprint())
	}

	var parsed Kind
	if err := parsed.UnmarshalText([]byte("LiDAR")); err != nil || parsed != KindLiDAR {
		t.Errorf("UnmarshalText() = %v, %v", parsed, err)
	}
	text, err := KindRGBCamera.MarshalText()
	if err != nil || string(text) != "RGBCamera" {
		t.Errorf("MarshalText() = %q, %v", text, err)
	}
}
