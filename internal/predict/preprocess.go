package predict

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/vovakirdan/carlaview/internal/core"
)

// Preprocessor turns a camera frame into the model input: grayscale,
// resized, cropped, Canny edges scaled to [0, 1].
type Preprocessor struct {
	cfg  Config
	crop image.Rectangle
}

// NewPreprocessor validates cfg and precomputes the crop.
func NewPreprocessor(cfg Config) (*Preprocessor, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return &Preprocessor{cfg: cfg, crop: cfg.Crop()}, nil
}

// Crop returns the cropped region in resized image coordinates.
func (p *Preprocessor) Crop() image.Rectangle {
	return p.crop
}

// Edges returns the cropped 8-bit Canny edge map of f. The caller closes
// the returned Mat.
func (p *Preprocessor) Edges(f *core.Frame) (gocv.Mat, error) {
	if f == nil || f.Width() == 0 || f.Height() == 0 {
		return gocv.NewMat(), errors.New("predict: empty frame")
	}

	src, err := gocv.NewMatFromBytes(f.Height(), f.Width(), gocv.MatTypeCV8UC3, f.Pix())
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("predict: frame to mat: %w", err)
	}
	defer src.Close()

	// The network was trained on BGRA camera buffers read as RGB, so the
	// blue channel carries the red luminance weight.
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(gray, &resized, image.Pt(p.cfg.ImageWidth, p.cfg.ImageHeight), 0, 0, gocv.InterpolationLinear)

	region := resized.Region(p.crop)
	defer region.Close()

	edges := gocv.NewMat()
	gocv.Canny(region, &edges, p.cfg.CannyLow, p.cfg.CannyHigh)
	return edges, nil
}

// Preprocess returns the normalised float32 edge map, one channel,
// Crop().Dy() rows by Crop().Dx() columns. The caller closes it.
func (p *Preprocessor) Preprocess(f *core.Frame) (gocv.Mat, error) {
	edges, err := p.Edges(f)
	if err != nil {
		return edges, err
	}
	defer edges.Close()

	out := gocv.NewMat()
	edges.ConvertTo(&out, gocv.MatTypeCV32F)
	out.DivideFloat(float32(p.cfg.Normalization))
	return out, nil
}

// Blob returns the model input tensor for f. With a single channel the
// NCHW blob gocv produces has the same layout as the [1, h, w, 1] NHWC
// tensor the network expects. The caller closes it.
func (p *Preprocessor) Blob(f *core.Frame) (gocv.Mat, error) {
	img, err := p.Preprocess(f)
	if err != nil {
		return img, err
	}
	defer img.Close()

	blob := gocv.BlobFromImage(img, 1.0, image.Pt(img.Cols(), img.Rows()), gocv.NewScalar(0, 0, 0, 0), false, false)
	return blob, nil
}
