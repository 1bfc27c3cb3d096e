package processing

import (
	"github.com/chewxy/math32"
	"github.com/okieraised/go-anchor-targets/utils"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// AnchorConfig describes the canonical anchors of a single feature level.
type AnchorConfig struct {
	Size   float32   `json:"size"`
	Ratios []float32 `json:"ratios"`
	Stride int       `json:"stride"`
}

// AnchorScales returns the octave scale triad shared by every feature level.
func AnchorScales() []float32 {
	return []float32{
		math32.Pow(2, 0),
		math32.Pow(2, 1.0/3.0),
		math32.Pow(2, 2.0/3.0),
	}
}

// AnchorGenerator holds the canonical anchor set of one feature level and
// tiles it over feature-map grids. The canonical set is immutable once built.
type AnchorGenerator struct {
	cfg       AnchorConfig
	canonical *tensor.Dense
}

// NewAnchorGenerator builds the canonical anchor set for cfg: one corner-form
// box centered at the origin per (ratio, scale) pair, ratio-major.
func NewAnchorGenerator(cfg AnchorConfig) (*AnchorGenerator, error) {
	if cfg.Size <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "base size must be positive, got %v", cfg.Size)
	}
	if cfg.Stride <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "stride must be positive, got %d", cfg.Stride)
	}
	if len(cfg.Ratios) == 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "at least one aspect ratio is required")
	}
	for _, ratio := range cfg.Ratios {
		if ratio <= 0 {
			return nil, errors.Wrapf(ErrInvalidConfig, "aspect ratio must be positive, got %v", ratio)
		}
	}

	scales := AnchorScales()
	numAnchors := len(cfg.Ratios) * len(scales)
	backing := make([]float32, numAnchors*4)

	i := 0
	for _, ratio := range cfg.Ratios {
		for _, scale := range scales {
			side := cfg.Size * scale
			area := side * side
			w := math32.Sqrt(area / ratio)
			h := w * ratio
			backing[i*4+0] = -0.5 * w
			backing[i*4+1] = -0.5 * h
			backing[i*4+2] = 0.5 * w
			backing[i*4+3] = 0.5 * h
			i++
		}
	}

	canonical := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(numAnchors, 4),
		tensor.WithBacking(backing),
	)

	return &AnchorGenerator{cfg: cfg, canonical: canonical}, nil
}

// NumAnchors returns the canonical set size, |ratios| x |scales|.
func (g *AnchorGenerator) NumAnchors() int {
	return g.canonical.Shape()[0]
}

// Canonical returns a copy of the canonical anchor set, shape [A, 4].
func (g *AnchorGenerator) Canonical() *tensor.Dense {
	return g.canonical.Clone().(*tensor.Dense)
}

// Stride returns the feature-level stride in image pixels.
func (g *AnchorGenerator) Stride() int {
	return g.cfg.Stride
}

// TileOverFeatureMap shifts the canonical set to every cell of a height x
// width feature-map grid. Cell (row, col) is centered at
// ((col+0.5)*stride, (row+0.5)*stride); rows iterate outer, columns inner.
// The output has shape [H*W*A, 4] and anchor k at shift s sits at row s*A+k.
// Downstream index alignment with model output channels relies on this order.
func (g *AnchorGenerator) TileOverFeatureMap(height, width int) (*tensor.Dense, error) {
	if height <= 0 || width <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "feature map extents must be positive, got %dx%d", height, width)
	}

	a := g.NumAnchors()
	canonical := g.canonical.Float32s()
	stride := float32(g.cfg.Stride)
	backing := make([]float32, height*width*a*4)

	idx := 0
	for row := 0; row < height; row++ {
		sy := (float32(row) + 0.5) * stride
		for col := 0; col < width; col++ {
			sx := (float32(col) + 0.5) * stride
			for k := 0; k < a; k++ {
				backing[idx+0] = canonical[k*4+0] + sx
				backing[idx+1] = canonical[k*4+1] + sy
				backing[idx+2] = canonical[k*4+2] + sx
				backing[idx+3] = canonical[k*4+3] + sy
				idx += 4
			}
		}
	}

	return tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(height*width*a, 4),
		tensor.WithBacking(backing),
	), nil
}

// GenerateAnchorsFPN tiles one generator per feature level over the feature
// maps of an imageHeight x imageWidth input and concatenates the results
// level-major, in the order the configs are given. Feature-map extents are
// the image extents divided by the level stride, rounded up.
func GenerateAnchorsFPN(cfgs []AnchorConfig, imageHeight, imageWidth int) (*tensor.Dense, error) {
	if len(cfgs) == 0 {
		return nil, errors.Wrap(ErrInvalidConfig, "at least one feature level is required")
	}
	if imageHeight <= 0 || imageWidth <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "image extents must be positive, got %dx%d", imageHeight, imageWidth)
	}

	levels := make([]*tensor.Dense, 0, len(cfgs))
	for _, cfg := range cfgs {
		gen, err := NewAnchorGenerator(cfg)
		if err != nil {
			return nil, err
		}
		featHeight := (imageHeight + cfg.Stride - 1) / cfg.Stride
		featWidth := (imageWidth + cfg.Stride - 1) / cfg.Stride
		tiled, err := gen.TileOverFeatureMap(featHeight, featWidth)
		if err != nil {
			return nil, err
		}
		levels = append(levels, tiled)
	}

	all, err := utils.VStack(levels)
	if err != nil {
		return nil, errors.Wrap(err, "concatenating feature levels")
	}
	return all, nil
}
