package detection

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// ImageProcessingConfig holds the tunable thresholds of the OMR pipeline.
//
// A config value is immutable for the duration of one pipeline run. The zero
// value is not usable; start from DefaultImageProcessingConfig and override
// individual fields.
type ImageProcessingConfig struct {
	// Threshold is the binarization cutoff applied by the preprocessor (1-255).
	Threshold int `json:"threshold" validate:"min=1,max=255"`

	// MinCircleRadius is the smallest mark radius in pixels. It also serves as
	// the deduplication distance.
	MinCircleRadius int `json:"min_circle_radius" validate:"min=1"`

	// MaxCircleRadius is the largest mark radius in pixels.
	MaxCircleRadius int `json:"max_circle_radius" validate:"min=1,gtefield=MinCircleRadius"`

	// GridTolerance is the maximum vertical gap in pixels between consecutive
	// marks of the same row.
	GridTolerance int `json:"grid_tolerance" validate:"min=0"`

	// FillThreshold is the dark-pixel fraction above which a mark is filled.
	FillThreshold float64 `json:"fill_threshold" validate:"gt=0,lt=1"`
}

// DefaultImageProcessingConfig returns the documented defaults.
func DefaultImageProcessingConfig() ImageProcessingConfig {
	return ImageProcessingConfig{
		Threshold:       128,
		MinCircleRadius: 10,
		MaxCircleRadius: 20,
		GridTolerance:   20,
		FillThreshold:   0.5,
	}
}

// TestRadius is the radius sampled by the circularity and fill tests: the
// midpoint of the configured radius range.
func (c ImageProcessingConfig) TestRadius() int {
	return (c.MinCircleRadius + c.MaxCircleRadius) / 2
}

// ScanStep is the window stride of the mark scan: a quarter of the radius
// range, clamped to [1, MaxScanStep]. A mark whose center falls between
// windows is then at most about 0.7 strides from one of them, which the ring
// test still accepts for outline-only bubbles.
func (c ImageProcessingConfig) ScanStep() int {
	step := (c.MaxCircleRadius - c.MinCircleRadius) / 4
	if step < 1 {
		return 1
	}
	if step > MaxScanStep {
		return MaxScanStep
	}
	return step
}

var validate = validator.New()

// Validate reports the first out-of-range field.
func (c ImageProcessingConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid image processing config")
	}
	return nil
}
