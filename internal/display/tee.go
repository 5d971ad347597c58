package display

import (
	"errors"
	"image"

	"github.com/vovakirdan/carlaview/internal/core"
)

// Tee presents to every surface in order. Nil surfaces are skipped, and
// Tee of no surfaces returns nil so the manager stays headless.
func Tee(surfaces ...Surface) Surface {
	var live []Surface
	for _, s := range surfaces {
		if s != nil {
			live = append(live, s)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return tee(live)
}

type tee []Surface

func (t tee) Present(canvas *image.RGBA) error {
	var errs []error
	for _, s := range t {
		if err := s.Present(canvas); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t tee) Close() error {
	var errs []error
	for _, s := range t {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Poll merges the input of every surface that is also an InputSource.
func (t tee) Poll() core.InputFrame {
	in := core.NewInputFrame()
	for _, s := range t {
		if src, ok := s.(InputSource); ok {
			in.Merge(src.Poll())
		}
	}
	return in
}

// Inputs returns the surface as an InputSource if it reports input,
// or a source that never reports anything.
func Inputs(s Surface) InputSource {
	if src, ok := s.(InputSource); ok {
		return src
	}
	return noInput{}
}

type noInput struct{}

func (noInput) Poll() core.InputFrame { return core.NewInputFrame() }
