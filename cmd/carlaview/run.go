package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/carlaview/internal/broadcast"
	"github.com/vovakirdan/carlaview/internal/config"
	"github.com/vovakirdan/carlaview/internal/control"
	"github.com/vovakirdan/carlaview/internal/display"
	"github.com/vovakirdan/carlaview/internal/platform/cvwindow"
	"github.com/vovakirdan/carlaview/internal/platform/glwindow"
	"github.com/vovakirdan/carlaview/internal/platform/tui"
	"github.com/vovakirdan/carlaview/internal/registry"
	"github.com/vovakirdan/carlaview/internal/sim"
	"github.com/vovakirdan/carlaview/internal/storage"
)

// Surface names accepted by --surface.
const (
	surfaceGL   = "gl"
	surfaceCV   = "cv"
	surfaceTUI  = "tui"
	surfaceNone = "none"
)

// runFlags are shared by the scenario commands.
type runFlags struct {
	surface  string
	res      string
	spectate string
	maxTicks int
	noRecord bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.surface, "surface", surfaceGL, "Window surface: gl, cv, tui or none")
	cmd.Flags().StringVar(&f.res, "res", "", "Window resolution WIDTHxHEIGHT (overrides config)")
	cmd.Flags().StringVar(&f.spectate, "spectate", "", "Stream the window to SSH spectators on this address")
	cmd.Flags().IntVar(&f.maxTicks, "max-ticks", 0, "Stop after this many ticks (0 = until quit)")
	cmd.Flags().BoolVar(&f.noRecord, "no-record", false, "Do not record telemetry")
}

// run holds everything a scenario command opens before the loop starts.
type run struct {
	mode     string
	logger   *log.Logger
	closeLog func()

	client   sim.Client
	surface  display.Surface
	store    *storage.Store
	recorder *storage.Recorder

	hub     *broadcast.Hub
	cancel  context.CancelFunc
	serving sync.WaitGroup
}

// startRun connects to the simulator and opens the surface, telemetry and
// spectator server for a scenario. On error everything opened so far is
// closed again.
func startRun(ctx context.Context, cfg config.Config, mode string, f *runFlags, width, height int) (r *run, err error) {
	switch f.surface {
	case surfaceGL, surfaceCV, surfaceTUI, surfaceNone:
	default:
		return nil, fmt.Errorf("unknown surface %q (use gl, cv, tui or none)", f.surface)
	}

	var logOut io.Writer = os.Stderr
	if f.surface == surfaceTUI {
		// The terminal belongs to the surface.
		logOut = io.Discard
	}
	logger, closeLog, err := newLogger(logOut)
	if err != nil {
		return nil, err
	}

	r = &run{mode: mode, logger: logger, closeLog: closeLog, cancel: func() {}}
	defer func() {
		if err != nil {
			_ = r.finish(ctx, err)
		}
	}()

	logger.Info("connecting", "backend", cfg.Simulator.Backend, "address", cfg.Endpoint().Address())
	r.client, err = registry.Connect(ctx, cfg.Simulator.Backend, cfg.Endpoint())
	if err != nil {
		return r, err
	}

	if !f.noRecord || f.spectate != "" {
		r.store, err = openStore(cfg)
		if err != nil {
			return r, err
		}
	}
	if !f.noRecord {
		r.recorder, err = storage.NewRecorder(r.store, mode, cfg.Simulator.Backend)
		if err != nil {
			return r, err
		}
		logger.Info("recording telemetry", "session", r.recorder.SessionID())
	}

	window, err := openSurface(f.surface, "carlaview "+mode, width, height, logger)
	if err != nil {
		return r, err
	}

	if f.spectate != "" {
		r.hub = broadcast.NewHub(broadcast.DefaultBuffer)
		r.hub.Announce(fmt.Sprintf("%s on %s", mode, cfg.Simulator.Backend))
		server, err := tui.NewSSHServer(tui.SSHServerConfig{
			Address:     f.spectate,
			HostKeyPath: cfg.Serve.HostKeyPath,
			IdleTimeout: cfg.Serve.IdleTimeout,
		}, r.hub, r.store, logger.WithPrefix("carlaview-ssh"))
		if err != nil {
			_ = closeSurface(window)
			return r, err
		}
		serveCtx, cancel := context.WithCancel(ctx)
		r.cancel = cancel
		r.serving.Add(1)
		go func() {
			defer r.serving.Done()
			if err := server.ListenAndServe(serveCtx); err != nil {
				logger.Error("spectator server", "err", err)
			}
		}()
	}

	if r.hub != nil {
		r.surface = display.Tee(window, r.hub)
	} else {
		r.surface = window
	}
	return r, nil
}

func openSurface(kind, title string, width, height int, logger *log.Logger) (display.Surface, error) {
	switch kind {
	case surfaceGL:
		w, err := glwindow.Open(title, width, height, glwindow.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return w, nil
	case surfaceCV:
		w, err := cvwindow.Open(title, width, height, logger)
		if err != nil {
			return nil, err
		}
		return w, nil
	case surfaceTUI:
		t := tui.NewTerminal()
		t.SetStatus(title + "  wasd/arrows drive  space handbrake  q quit")
		return t, nil
	}
	return nil, nil
}

func closeSurface(s display.Surface) error {
	if s == nil {
		return nil
	}
	return s.Close()
}

// env returns the scenario environment.
func (r *run) env(cfg config.Config, maxTicks int) control.Env {
	env := control.Env{
		Client:   r.client,
		Surface:  r.surface,
		Runtime:  cfg.Runtime(),
		Logger:   r.logger,
		MaxTicks: maxTicks,
	}
	if r.recorder != nil {
		env.Recorder = r.recorder
	}
	return env
}

// finish closes everything startRun opened and returns runErr joined with
// any close failure.
func (r *run) finish(ctx context.Context, runErr error) error {
	reason := "quit"
	switch {
	case runErr != nil:
		reason = "error"
	case ctx.Err() != nil:
		reason = "interrupted"
	}

	errs := []error{runErr}
	if r.recorder != nil {
		if err := r.recorder.Close(reason); err != nil {
			errs = append(errs, fmt.Errorf("close recorder: %w", err))
		} else {
			r.logger.Info("session recorded", "session", r.recorder.SessionID(), "reason", reason)
		}
	}
	if err := closeSurface(r.surface); err != nil {
		errs = append(errs, fmt.Errorf("close surface: %w", err))
	}
	r.cancel()
	r.serving.Wait()
	if r.client != nil {
		if err := r.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close client: %w", err))
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	r.closeLog()
	return errors.Join(errs...)
}
