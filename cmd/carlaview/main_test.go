package main

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/carlaview/internal/config"
	"github.com/vovakirdan/carlaview/internal/predict"
	"github.com/vovakirdan/carlaview/internal/sensor"
)

func TestParseRes(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"1280x720", 1280, 720, false},
		{"640X360", 640, 360, false},
		{"640", 0, 0, true},
		{"0x360", 0, 0, true},
		{"640x-1", 0, 0, true},
		{"axb", 0, 0, true},
	}
	for _, tt := range tests {
		w, h, err := parseRes(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseRes(%q) error = %v, expected error %v", tt.in, err, tt.wantErr)
			continue
		}
		if w != tt.w || h != tt.h {
			t.Errorf("parseRes(%q) = %dx%d, expected %dx%d", tt.in, w, h, tt.w, tt.h)
		}
	}
}

func TestPredictConfigMatchesDefaults(t *testing.T) {
	got := predictConfig(config.Default().Model)
	if diff := cmp.Diff(predict.DefaultConfig(), got); diff != "" {
		t.Errorf("predictConfig(default) mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&flagHost, "host", "", "")
	cmd.Flags().IntVar(&flagPort, "port", 0, "")
	t.Cleanup(func() { flagHost = "" })
	if err := cmd.Flags().Set("host", "sim.local"); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	applyOverrides(cmd, &cfg)
	if cfg.Simulator.Host != "sim.local" {
		t.Errorf("host = %q, expected sim.local", cfg.Simulator.Host)
	}
	if cfg.Simulator.Port != config.Default().Simulator.Port {
		t.Errorf("port = %d, expected unchanged %d", cfg.Simulator.Port, config.Default().Simulator.Port)
	}
}

func TestUnknownSurface(t *testing.T) {
	_, err := startRun(t.Context(), config.Default(), "sensors", &runFlags{surface: "vga"}, 10, 10)
	if err == nil {
		t.Fatal("startRun() expected error for unknown surface")
	}
}

func TestSensorsHelpMatchesLayout(t *testing.T) {
	counts := map[sensor.Kind]int{}
	for _, c := range sensor.DefaultConfigs() {
		counts[c.Kind]++
	}
	words := map[int]string{1: "a", 2: "two", 3: "three", 4: "four"}
	want := []string{
		words[counts[sensor.KindRGBCamera]] + " cameras",
		words[counts[sensor.KindLiDAR]] + " lidar",
		words[counts[sensor.KindSemanticLiDAR]] + " semantic lidar",
	}
	long := strings.Join(strings.Fields(sensorsCmd.Long), " ")
	for _, w := range want {
		if !strings.Contains(long, w) {
			t.Errorf("sensors help %q does not mention %q", long, w)
		}
	}
	if counts[sensor.KindRadar] == 0 && strings.Contains(long, "radar") {
		t.Error("sensors help mentions a radar the default layout does not spawn")
	}
}
