// Package cvwindow presents the composited sensor grid in an OpenCV
// highgui window.
package cvwindow

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"gocv.io/x/gocv"

	"github.com/vovakirdan/carlaview/internal/core"
)

// ErrClosed is returned by Present after the window has gone away.
var ErrClosed = errors.New("cvwindow: window closed")

const (
	keyEscape = 27
	keySpace  = 32
	// waitMS is the highgui event pump interval.
	waitMS = 5
)

// keyAction maps a highgui key code to a driving action.
func keyAction(code int) core.Action {
	if code < 0 {
		return core.ActionNone
	}
	switch code & 0xff {
	case 'w', 'W':
		return core.ActionAccelerate
	case 's', 'S':
		return core.ActionBrake
	case 'a', 'A':
		return core.ActionSteerLeft
	case 'd', 'D':
		return core.ActionSteerRight
	case keySpace:
		return core.ActionHandbrake
	case 'q', 'Q', keyEscape:
		return core.ActionQuit
	}
	return core.ActionNone
}

// Window is a display.Surface and display.InputSource backed by a gocv
// window. highgui calls run on one goroutine locked to its OS thread.
type Window struct {
	title  string
	logger *log.Logger
	held   *core.HeldKeys

	frames chan *image.RGBA
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// Open creates a window of the given size and starts its event pump.
func Open(title string, width, height int, logger *log.Logger) (*Window, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("cvwindow: invalid size %dx%d", width, height)
	}
	if logger == nil {
		logger = log.Default()
	}
	w := &Window{
		title:  title,
		logger: logger,
		held:   core.NewHeldKeys(core.DefaultHold),
		frames: make(chan *image.RGBA, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go w.run(width, height)
	return w, nil
}

func (w *Window) run(width, height int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	window := gocv.NewWindow(w.title)
	defer window.Close()
	window.ResizeWindow(width, height)

	img := gocv.NewMat()
	defer img.Close()

	for {
		select {
		case <-w.stop:
			return
		case canvas := <-w.frames:
			if err := toBGR(canvas, &img); err != nil {
				w.logger.Error("cvwindow: convert frame", "err", err)
				break
			}
			window.IMShow(img)
		default:
		}
		w.held.Press(keyAction(window.WaitKey(waitMS)))
		if !window.IsOpen() {
			w.held.Press(core.ActionQuit)
			return
		}
	}
}

// toBGR converts an RGBA canvas into a BGR Mat for highgui.
func toBGR(canvas *image.RGBA, dst *gocv.Mat) error {
	b := canvas.Bounds()
	src, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, canvas.Pix)
	if err != nil {
		return err
	}
	defer src.Close()
	gocv.CvtColor(src, dst, gocv.ColorRGBAToBGR)
	return nil
}

// Present queues a copy of canvas, replacing any frame the window has
// not shown yet.
func (w *Window) Present(canvas *image.RGBA) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	b := canvas.Bounds()
	frame := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		off := canvas.PixOffset(b.Min.X, b.Min.Y+y)
		copy(frame.Pix[y*frame.Stride:(y+1)*frame.Stride], canvas.Pix[off:off+frame.Stride])
	}
	select {
	case <-w.frames:
	default:
	}
	select {
	case w.frames <- frame:
	default:
	}
	return nil
}

// Poll returns the keys pressed within the hold window.
func (w *Window) Poll() core.InputFrame {
	f := w.held.Poll()
	select {
	case <-w.done:
		f.Set(core.ActionQuit)
	default:
	}
	return f
}

// Close stops the event pump and destroys the window.
func (w *Window) Close() error {
	w.once.Do(func() { close(w.stop) })
	<-w.done
	return nil
}
