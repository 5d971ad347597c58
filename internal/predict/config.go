// Package predict turns camera frames into steering values: an OpenCV
// preprocessing pipeline, a DNN lane predictor and a model-free edge
// centroid predictor.
package predict

import (
	"errors"
	"image"
)

// Config describes the model input and output scaling.
type Config struct {
	ImageWidth  int     // frames are resized to this width before cropping
	ImageHeight int     // and this height
	HeightCrop  float64 // bottom portion of rows kept
	WidthCrop   float64 // centred portion of columns kept

	CannyLow  float32
	CannyHigh float32
	// Normalization divides edge values, mapping 255 to 1.
	Normalization float64

	YawAdjustment float64 // degrees
	MaxSteerAngle float64 // degrees
}

// DefaultConfig returns the settings the lane model was trained with.
func DefaultConfig() Config {
	return Config{
		ImageWidth:    640,
		ImageHeight:   360,
		HeightCrop:    0.4,
		WidthCrop:     0.5,
		CannyLow:      50,
		CannyHigh:     150,
		Normalization: 255,
		YawAdjustment: 35,
		MaxSteerAngle: 35,
	}
}

// Check reports configuration errors.
func (c Config) Check() error {
	var errs []error
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		errs = append(errs, errors.New("predict: image size must be positive"))
	}
	if c.HeightCrop <= 0 || c.HeightCrop > 1 || c.WidthCrop <= 0 || c.WidthCrop > 1 {
		errs = append(errs, errors.New("predict: crop portions must be in (0, 1]"))
	}
	if c.Normalization == 0 {
		errs = append(errs, errors.New("predict: normalization must be non-zero"))
	}
	if c.MaxSteerAngle == 0 {
		errs = append(errs, errors.New("predict: max steer angle must be non-zero"))
	}
	return errors.Join(errs...)
}

// Crop returns the region of the resized image fed to the model: the
// bottom HeightCrop of the rows and the centred WidthCrop of the columns.
func (c Config) Crop() image.Rectangle {
	top := int(float64(c.ImageHeight) * (1 - c.HeightCrop))
	left := int((float64(c.ImageWidth) - float64(c.ImageWidth)*c.WidthCrop) / 2)
	right := left + int(c.WidthCrop*float64(c.ImageWidth))
	return image.Rect(left, top, right, c.ImageHeight)
}

// Steer converts a raw model output to a steering value.
func (c Config) Steer(raw float64) float64 {
	return raw * c.YawAdjustment / c.MaxSteerAngle
}
