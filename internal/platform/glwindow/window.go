// Package glwindow presents the composited sensor grid in a native
// OpenGL ES window and reads held driving keys from it.
package glwindow

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	gl "github.com/go-gl/gl/v3.1/gles2"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/vovakirdan/carlaview/internal/core"
)

// ErrClosed is returned by Present after the window has gone away.
var ErrClosed = errors.New("glwindow: window closed")

// pollInterval bounds how stale key state can get between frames.
const pollInterval = 10 * time.Millisecond

var bindings = map[glfw.Key]core.Action{
	glfw.KeyW:      core.ActionAccelerate,
	glfw.KeyUp:     core.ActionAccelerate,
	glfw.KeyS:      core.ActionBrake,
	glfw.KeyDown:   core.ActionBrake,
	glfw.KeyA:      core.ActionSteerLeft,
	glfw.KeyLeft:   core.ActionSteerLeft,
	glfw.KeyD:      core.ActionSteerRight,
	glfw.KeyRight:  core.ActionSteerRight,
	glfw.KeySpace:  core.ActionHandbrake,
	glfw.KeyQ:      core.ActionQuit,
	glfw.KeyEscape: core.ActionQuit,
}

// Window is a display.Surface and display.InputSource backed by GLFW.
// All GL and GLFW calls run on one goroutine locked to its OS thread.
type Window struct {
	title  string
	width  int
	height int
	logger *log.Logger

	frames chan *image.RGBA
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once

	mu   sync.Mutex
	held core.InputFrame
	quit bool
}

// Option configures a Window.
type Option func(*Window)

// WithLogger sets the logger used for render errors.
func WithLogger(l *log.Logger) Option {
	return func(w *Window) { w.logger = l }
}

// Open creates a window of the given size and starts its event loop.
func Open(title string, width, height int, opts ...Option) (*Window, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("glwindow: invalid size %dx%d", width, height)
	}
	w := &Window{
		title:  title,
		width:  width,
		height: height,
		logger: log.Default(),
		frames: make(chan *image.RGBA, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		held:   core.NewInputFrame(),
	}
	for _, opt := range opts {
		opt(w)
	}
	ready := make(chan error, 1)
	go w.run(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Window) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	if err := glfw.Init(); err != nil {
		ready <- fmt.Errorf("glwindow: init glfw: %w", err)
		return
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Focused, glfw.True)
	glfw.WindowHint(glfw.DoubleBuffer, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLESAPI)
	glfw.WindowHint(glfw.ContextVersionMajor, 2)
	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		ready <- fmt.Errorf("glwindow: create window: %w", err)
		return
	}
	defer win.Destroy()

	win.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		ready <- fmt.Errorf("glwindow: init gl: %w", err)
		return
	}
	r, err := newRenderer()
	if err != nil {
		ready <- err
		return
	}
	defer r.close()
	glfw.SwapInterval(0)
	ready <- nil

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case canvas := <-w.frames:
			fbw, fbh := win.GetFramebufferSize()
			gl.Viewport(0, 0, int32(fbw), int32(fbh))
			gl.ClearColor(0, 0, 0, 1)
			gl.Clear(gl.COLOR_BUFFER_BIT)
			r.draw(canvas, fbw, fbh)
			win.SwapBuffers()
		case <-ticker.C:
		}
		glfw.PollEvents()
		w.sample(win)
	}
}

// sample records which bound keys are down. A close request is sticky.
func (w *Window) sample(win *glfw.Window) {
	f := core.NewInputFrame()
	for key, action := range bindings {
		if win.GetKey(key) != glfw.Release {
			f.Set(action)
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if win.ShouldClose() || f.Has(core.ActionQuit) {
		w.quit = true
	}
	w.held = f
}

// Present queues a copy of canvas for display, replacing any frame the
// window has not drawn yet.
func (w *Window) Present(canvas *image.RGBA) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	frame := snapshot(canvas)
	select {
	case w.frames <- frame:
	default:
		select {
		case <-w.frames:
		default:
		}
		select {
		case w.frames <- frame:
		default:
			w.logger.Debug("glwindow: frame dropped")
		}
	}
	return nil
}

// Poll returns the keys held at the last event poll.
func (w *Window) Poll() core.InputFrame {
	select {
	case <-w.done:
		return core.InputOf(core.ActionQuit)
	default:
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	f := w.held.Clone()
	if w.quit {
		f.Set(core.ActionQuit)
	}
	return f
}

// Close stops the event loop and destroys the window. It is idempotent.
func (w *Window) Close() error {
	w.once.Do(func() { close(w.stop) })
	<-w.done
	return nil
}

func snapshot(canvas *image.RGBA) *image.RGBA {
	b := canvas.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := canvas.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], canvas.Pix[src:src+out.Stride])
	}
	return out
}
