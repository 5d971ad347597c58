package predict

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"github.com/vovakirdan/carlaview/internal/core"
)

// Centroid steers toward the mean column of the lane edges in the cropped
// region. It needs no trained model.
type Centroid struct {
	pre  *Preprocessor
	Gain float64
}

// NewCentroid creates a centroid predictor using the same preprocessing as
// the lane model.
func NewCentroid(cfg Config) (*Centroid, error) {
	pre, err := NewPreprocessor(cfg)
	if err != nil {
		return nil, err
	}
	return &Centroid{pre: pre, Gain: 1}, nil
}

// Predict returns a value in [-1, 1]. Edges right of centre give a
// negative value, which the control loop turns into a right steer.
// A frame without edges predicts 0.
func (c *Centroid) Predict(f *core.Frame) (float64, error) {
	edges, err := c.pre.Edges(f)
	if err != nil {
		return 0, err
	}
	defer edges.Close()

	cols := edges.Cols()
	if cols == 0 {
		return 0, errors.New("predict: empty edge map")
	}
	pix, err := edges.DataPtrUint8()
	if err != nil {
		return 0, err
	}

	xs := make([]float64, cols)
	weights := make([]float64, cols)
	for i := range xs {
		xs[i] = float64(i)
	}
	for i, v := range pix {
		if v != 0 {
			weights[i%cols]++
		}
	}
	if stat.Mean(weights, nil) == 0 {
		return 0, nil
	}

	mean := stat.Mean(xs, weights)
	centre := float64(cols-1) / 2
	offset := (mean - centre) / centre
	return core.ClampF(-offset*c.Gain, -1, 1), nil
}
