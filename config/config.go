package config

import (
	"github.com/okieraised/go-anchor-targets/processing"
	"github.com/pkg/errors"
)

// AnchorsConfig describes the anchor pyramid: one base size and stride per
// feature level, one shared aspect-ratio list. The octave scales are fixed
// and not configurable, see processing.AnchorScales.
type AnchorsConfig struct {
	Sizes        []float32 `json:"sizes"`
	Strides      []int     `json:"strides"`
	AspectRatios []float32 `json:"aspect_ratios"`
}

// DefaultAnchorsConfig covers pyramid levels P3 through P7.
var DefaultAnchorsConfig = &AnchorsConfig{
	Sizes:        []float32{32, 64, 128, 256, 512},
	Strides:      []int{8, 16, 32, 64, 128},
	AspectRatios: []float32{0.5, 1, 2},
}

func NewAnchorsConfig(sizes []float32, strides []int, aspectRatios []float32) *AnchorsConfig {
	return &AnchorsConfig{
		Sizes:        sizes,
		Strides:      strides,
		AspectRatios: aspectRatios,
	}
}

// NumLevels returns the number of configured feature levels.
func (c *AnchorsConfig) NumLevels() int {
	return len(c.Sizes)
}

// Level returns the single-level anchor parameters for level index i.
func (c *AnchorsConfig) Level(i int) processing.AnchorConfig {
	return processing.AnchorConfig{
		Size:   c.Sizes[i],
		Ratios: c.AspectRatios,
		Stride: c.Strides[i],
	}
}

// Levels expands the pyramid into per-level anchor parameters.
func (c *AnchorsConfig) Levels() []processing.AnchorConfig {
	levels := make([]processing.AnchorConfig, c.NumLevels())
	for i := range levels {
		levels[i] = c.Level(i)
	}
	return levels
}

func (c *AnchorsConfig) Validate() error {
	if len(c.Sizes) == 0 {
		return errors.Wrap(processing.ErrInvalidConfig, "at least one feature level is required")
	}
	if len(c.Sizes) != len(c.Strides) {
		return errors.Wrapf(processing.ErrInvalidConfig,
			"sizes and strides must pair up, got %d vs %d", len(c.Sizes), len(c.Strides))
	}
	if len(c.AspectRatios) == 0 {
		return errors.Wrap(processing.ErrInvalidConfig, "at least one aspect ratio is required")
	}
	for _, size := range c.Sizes {
		if size <= 0 {
			return errors.Wrapf(processing.ErrInvalidConfig, "size must be positive, got %v", size)
		}
	}
	for _, stride := range c.Strides {
		if stride <= 0 {
			return errors.Wrapf(processing.ErrInvalidConfig, "stride must be positive, got %d", stride)
		}
	}
	for _, ratio := range c.AspectRatios {
		if ratio <= 0 {
			return errors.Wrapf(processing.ErrInvalidConfig, "aspect ratio must be positive, got %v", ratio)
		}
	}
	return nil
}

// TargetParams controls ground-truth assignment. PaddingValue marks unused
// slots in the fixed-capacity per-image label array; it must not collide
// with any real class id, which live in [0, NumClasses).
type TargetParams struct {
	NumClasses      int     `json:"num_classes"`
	PaddingValue    float32 `json:"padding_value"`
	NegativeOverlap float32 `json:"negative_overlap"`
	PositiveOverlap float32 `json:"positive_overlap"`
}

// DefaultTargetParams matches the 20-class VOC setup.
var DefaultTargetParams = &TargetParams{
	NumClasses:      20,
	PaddingValue:    -1,
	NegativeOverlap: 0.4,
	PositiveOverlap: 0.5,
}

func NewTargetParams(numClasses int, paddingValue, negativeOverlap, positiveOverlap float32) *TargetParams {
	return &TargetParams{
		NumClasses:      numClasses,
		PaddingValue:    paddingValue,
		NegativeOverlap: negativeOverlap,
		PositiveOverlap: positiveOverlap,
	}
}

func (p *TargetParams) Validate() error {
	if p.NumClasses <= 0 {
		return errors.Wrapf(processing.ErrInvalidConfig, "numClasses must be positive, got %d", p.NumClasses)
	}
	if p.PaddingValue >= 0 && p.PaddingValue < float32(p.NumClasses) {
		return errors.Wrapf(processing.ErrInvalidConfig,
			"padding value %v collides with real class ids [0, %d)", p.PaddingValue, p.NumClasses)
	}
	if p.NegativeOverlap < 0 || p.NegativeOverlap > 1 ||
		p.PositiveOverlap < 0 || p.PositiveOverlap > 1 {
		return errors.Wrapf(processing.ErrInvalidConfig,
			"overlap thresholds must lie in [0, 1], got negative=%v positive=%v",
			p.NegativeOverlap, p.PositiveOverlap)
	}
	if p.NegativeOverlap > p.PositiveOverlap {
		return errors.Wrapf(processing.ErrInvalidConfig,
			"negative overlap %v must not exceed positive overlap %v",
			p.NegativeOverlap, p.PositiveOverlap)
	}
	return nil
}
