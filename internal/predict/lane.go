package predict

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/vovakirdan/carlaview/internal/core"
)

// ErrNoModel is returned when the model file cannot be loaded.
var ErrNoModel = errors.New("predict: model not available")

// Option customises a LanePredictor.
type Option func(*LanePredictor)

// WithLayers names the network input and output layers. Empty names use
// the network defaults.
func WithLayers(input, output string) Option {
	return func(p *LanePredictor) { p.input, p.output = input, output }
}

// WithBackend selects the DNN backend and target device.
func WithBackend(b gocv.NetBackendType, t gocv.NetTargetType) Option {
	return func(p *LanePredictor) {
		p.backend, p.target = b, t
		p.setBackend = true
	}
}

// LanePredictor runs a trained lane-following network on camera frames.
// It is safe for concurrent use.
type LanePredictor struct {
	cfg Config
	pre *Preprocessor

	mu  sync.Mutex
	net gocv.Net

	input, output string
	backend       gocv.NetBackendType
	target        gocv.NetTargetType
	setBackend    bool
}

// Load reads a network from path in any format gocv's dnn module accepts
// (ONNX, TensorFlow frozen graph, Caffe, Darknet).
func Load(path string, cfg Config, opts ...Option) (*LanePredictor, error) {
	pre, err := NewPreprocessor(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoModel, err)
	}

	p := &LanePredictor{cfg: cfg, pre: pre}
	for _, opt := range opts {
		opt(p)
	}

	p.net = gocv.ReadNet(path, "")
	if p.net.Empty() {
		return nil, fmt.Errorf("%w: cannot read %s", ErrNoModel, path)
	}
	if p.setBackend {
		if err := p.net.SetPreferableBackend(p.backend); err != nil {
			p.net.Close()
			return nil, fmt.Errorf("predict: set backend: %w", err)
		}
		if err := p.net.SetPreferableTarget(p.target); err != nil {
			p.net.Close()
			return nil, fmt.Errorf("predict: set target: %w", err)
		}
	}
	return p, nil
}

// Predict returns the steering value for f: the first network output
// scaled by YawAdjustment / MaxSteerAngle.
func (p *LanePredictor) Predict(f *core.Frame) (float64, error) {
	blob, err := p.pre.Blob(f)
	if err != nil {
		return 0, err
	}
	defer blob.Close()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.net.SetInput(blob, p.input)
	out := p.net.Forward(p.output)
	defer out.Close()

	if out.Empty() || out.Total() < 1 {
		return 0, errors.New("predict: network produced no output")
	}
	return p.cfg.Steer(float64(out.GetFloatAt(0, 0))), nil
}

// Close releases the network.
func (p *LanePredictor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.net.Close()
}
