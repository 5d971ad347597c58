package main

import (
	"github.com/spf13/cobra"

	"github.com/vovakirdan/carlaview/internal/config"
	"github.com/vovakirdan/carlaview/internal/control"
	"github.com/vovakirdan/carlaview/internal/overlay"
	"github.com/vovakirdan/carlaview/internal/predict"
)

var (
	sensorsFlags     runFlags
	sensorsSync      bool
	sensorsAsync     bool
	sensorsAutopilot bool

	manualFlags  runFlags
	manualFilter string
	manualSpawn  bool
	manualCamera bool
	manualSync   bool
	manualAsync  bool

	driveFlags runFlags
	driveModel string
	driveTown  string
)

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "Show every sensor of a spawned vehicle in a grid",
	Long: `Spawn a vehicle with four cameras (left, front, right and rear), a lidar
and a semantic lidar, and show their output in a 2x3 grid until q or Esc is
pressed.

The vehicle, its sensors and the world settings are restored on exit.

Examples:
  carlaview sensors
  carlaview sensors --async --autopilot
  carlaview sensors --surface tui --res 640x360`,
	Args: cobra.NoArgs,
	RunE: runSensors,
}

var manualCmd = &cobra.Command{
	Use:   "manual",
	Short: "Drive an existing vehicle with the keyboard",
	Long: `Attach to the first vehicle matching the filter and drive it:

  W/Up     accelerate
  S/Down   brake
  A/Left   steer left
  D/Right  steer right
  Space    handbrake
  Q/Esc    quit

Examples:
  carlaview manual --spawn
  carlaview manual --vehicle-filter '*audi*'`,
	Args: cobra.NoArgs,
	RunE: runManual,
}

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Follow the lane with a camera model",
	Long: `Spawn a vehicle on one of the configured roads and steer it from the
forward camera. Without a model file the edge centroid predictor is used.

Examples:
  carlaview drive
  carlaview drive --model lane.onnx --town Town04`,
	Args: cobra.NoArgs,
	RunE: runDrive,
}

func init() {
	sensorsFlags.register(sensorsCmd)
	sensorsCmd.Flags().BoolVar(&sensorsSync, "sync", false, "Run the world in synchronous mode")
	sensorsCmd.Flags().BoolVar(&sensorsAsync, "async", false, "Run the world in asynchronous mode")
	sensorsCmd.Flags().BoolVar(&sensorsAutopilot, "autopilot", false, "Hand the vehicle to the traffic manager")
	sensorsCmd.MarkFlagsMutuallyExclusive("sync", "async")

	manualFlags.register(manualCmd)
	manualCmd.Flags().StringVar(&manualFilter, "vehicle-filter", "", "Vehicle type pattern (overrides config)")
	manualCmd.Flags().BoolVar(&manualSpawn, "spawn", false, "Spawn a vehicle first and destroy it on exit")
	manualCmd.Flags().BoolVar(&manualCamera, "camera", true, "Attach a forward camera and show it")
	manualCmd.Flags().BoolVar(&manualSync, "sync", false, "Tick the world from the control loop")
	manualCmd.Flags().BoolVar(&manualAsync, "async", false, "Wait for a free-running world instead of ticking it")
	manualCmd.MarkFlagsMutuallyExclusive("sync", "async")

	driveFlags.register(driveCmd)
	driveCmd.Flags().StringVar(&driveModel, "model", "", "Lane model file (overrides config)")
	driveCmd.Flags().StringVar(&driveTown, "town", "", "Town to load (overrides config)")
}

func runSensors(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if sensorsFlags.res != "" {
		if cfg.Display.Width, cfg.Display.Height, err = parseRes(sensorsFlags.res); err != nil {
			return err
		}
	}
	switch {
	case sensorsSync:
		cfg.Simulation.Synchronous = true
	case sensorsAsync:
		cfg.Simulation.Synchronous = false
	}
	if err := cfg.Check(); err != nil {
		return err
	}

	ctx := cmd.Context()
	r, err := startRun(ctx, cfg, "sensors", &sensorsFlags, cfg.Display.Width, cfg.Display.Height)
	if err != nil {
		return err
	}
	o := cfg.SensorsOptions()
	o.Autopilot = sensorsAutopilot
	return r.finish(ctx, control.Sensors(ctx, r.env(cfg, sensorsFlags.maxTicks), o))
}

func runManual(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if manualFilter != "" {
		cfg.Simulator.VehicleFilter = manualFilter
	}
	if manualFlags.res != "" {
		if cfg.Camera.Width, cfg.Camera.Height, err = parseRes(manualFlags.res); err != nil {
			return err
		}
	}
	switch {
	case manualSync:
		cfg.Simulation.Synchronous = true
	case manualAsync:
		cfg.Simulation.Synchronous = false
	}
	if err := cfg.Check(); err != nil {
		return err
	}

	ctx := cmd.Context()
	r, err := startRun(ctx, cfg, "manual", &manualFlags, cfg.Camera.Width, cfg.Camera.Height)
	if err != nil {
		return err
	}

	o := cfg.ManualOptions()
	if manualCamera {
		cam := cfg.DriveCamera()
		o.Camera = &cam
	}

	o.Spawn = manualSpawn
	return r.finish(ctx, control.Manual(ctx, r.env(cfg, manualFlags.maxTicks), o))
}

func runDrive(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if driveModel != "" {
		cfg.Model.Path = driveModel
	}
	if driveTown != "" {
		cfg.Simulator.Town = driveTown
	}
	if driveFlags.res != "" {
		if cfg.Camera.Width, cfg.Camera.Height, err = parseRes(driveFlags.res); err != nil {
			return err
		}
	}
	if err := cfg.Check(); err != nil {
		return err
	}

	predictor, closePredictor, err := newPredictor(cfg)
	if err != nil {
		return err
	}
	defer closePredictor()

	annotator, err := overlay.New(cfg.OverlayOptions())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	r, err := startRun(ctx, cfg, "drive", &driveFlags, cfg.Camera.Width, cfg.Camera.Height)
	if err != nil {
		return err
	}
	o := cfg.DriveOptions()
	o.Predictor = predictor
	o.Annotator = annotator
	return r.finish(ctx, control.Drive(ctx, r.env(cfg, driveFlags.maxTicks), o))
}

// predictConfig converts the model section into predictor settings.
func predictConfig(m config.ModelConfig) predict.Config {
	return predict.Config{
		ImageWidth:    m.ImageWidth,
		ImageHeight:   m.ImageHeight,
		HeightCrop:    m.HeightCropPortion,
		WidthCrop:     m.WidthCropPortion,
		CannyLow:      float32(m.CannyLow),
		CannyHigh:     float32(m.CannyHigh),
		Normalization: m.Normalization,
		YawAdjustment: m.YawAdjustmentDegrees,
		MaxSteerAngle: m.MaxSteerAngleDegrees,
	}
}

// newPredictor loads the lane model, or the centroid predictor when no
// model path is configured.
func newPredictor(cfg config.Config) (control.Predictor, func(), error) {
	pcfg := predictConfig(cfg.Model)
	if cfg.Model.Path == "" {
		c, err := predict.NewCentroid(pcfg)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	}
	p, err := predict.Load(cfg.Model.Path, pcfg, predict.WithLayers(cfg.Model.InputLayer, cfg.Model.OutputLayer))
	if err != nil {
		return nil, nil, err
	}
	return p, func() { _ = p.Close() }, nil
}
