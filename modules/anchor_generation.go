package modules

import (
	"github.com/okieraised/go-anchor-targets/config"
	"github.com/okieraised/go-anchor-targets/processing"
	"gorgonia.org/tensor"
)

// AnchorClient owns the anchor pyramid for one model configuration. The
// tiled anchors are a pure function of the configuration and the input image
// size, so they are computed once here and shared read-only by every batch
// of a training run.
type AnchorClient struct {
	Params *config.AnchorsConfig

	imageSize   [2]int
	anchors     *tensor.Dense
	levelCounts []int
}

// NewAnchorClient validates cfg and precomputes the concatenated anchor set
// for an imageSize of [height, width] pixels.
func NewAnchorClient(cfg *config.AnchorsConfig, imageSize [2]int) (*AnchorClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := &AnchorClient{
		Params:    cfg,
		imageSize: imageSize,
	}

	anchors, err := processing.GenerateAnchorsFPN(cfg.Levels(), imageSize[0], imageSize[1])
	if err != nil {
		return nil, err
	}
	client.anchors = anchors

	client.levelCounts = make([]int, cfg.NumLevels())
	perCell := len(cfg.AspectRatios) * len(processing.AnchorScales())
	for i, stride := range cfg.Strides {
		featHeight := (imageSize[0] + stride - 1) / stride
		featWidth := (imageSize[1] + stride - 1) / stride
		client.levelCounts[i] = featHeight * featWidth * perCell
	}

	return client, nil
}

// Anchors returns the concatenated anchor set, shape [N, 4], level-major.
// The tensor is shared; callers must treat it as read-only.
func (c *AnchorClient) Anchors() *tensor.Dense {
	return c.anchors
}

// NumAnchors returns the total anchor count over all levels.
func (c *AnchorClient) NumAnchors() int {
	return c.anchors.Shape()[0]
}

// LevelAnchorCounts returns the anchor count contributed by each feature
// level, in configuration order. The counts partition the rows of Anchors.
func (c *AnchorClient) LevelAnchorCounts() []int {
	counts := make([]int, len(c.levelCounts))
	copy(counts, c.levelCounts)
	return counts
}

// ImageSize returns the [height, width] the anchors were laid over.
func (c *AnchorClient) ImageSize() [2]int {
	return c.imageSize
}
