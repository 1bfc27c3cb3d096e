package go_anchor_targets

import (
	"github.com/okieraised/go-anchor-targets/config"
	"github.com/okieraised/go-anchor-targets/modules"
	"github.com/okieraised/go-anchor-targets/processing"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// TargetPipeline wires anchor generation, ground-truth target assignment and
// box decoding for one model configuration. The anchor pyramid is computed
// once at construction; Assign and Decode are pure per-batch computations.
type TargetPipeline struct {
	anchorGeneration *modules.AnchorClient
	targetAssignment *modules.TargetAssignClient
	boxDecoding      *modules.BoxDecodeClient
	channels         int
}

// NewTargetPipeline initializes the pipeline for images of imageSize
// [height, width] pixels.
func NewTargetPipeline(anchorsCfg *config.AnchorsConfig, targetParams *config.TargetParams, imageSize [2]int) (*TargetPipeline, error) {
	pipeline := &TargetPipeline{channels: 3}

	anchorGeneration, err := modules.NewAnchorClient(anchorsCfg, imageSize)
	if err != nil {
		return nil, err
	}
	pipeline.anchorGeneration = anchorGeneration

	targetAssignment, err := modules.NewTargetAssignClient(anchorGeneration.Anchors(), targetParams)
	if err != nil {
		return nil, err
	}
	pipeline.targetAssignment = targetAssignment

	boxDecoding, err := modules.NewBoxDecodeClient(anchorGeneration.Anchors(), imageSize)
	if err != nil {
		return nil, err
	}
	pipeline.boxDecoding = boxDecoding

	return pipeline, nil
}

// Anchors exposes the precomputed anchor set, shape [N, 4]. Read-only.
func (p *TargetPipeline) Anchors() *tensor.Dense {
	return p.anchorGeneration.Anchors()
}

// NumAnchors returns the total anchor count over all feature levels.
func (p *TargetPipeline) NumAnchors() int {
	return p.anchorGeneration.NumAnchors()
}

// LevelAnchorCounts returns the per-level partition of the anchor rows.
func (p *TargetPipeline) LevelAnchorCounts() []int {
	return p.anchorGeneration.LevelAnchorCounts()
}

// Assign labels every anchor against one batch of padded ground truth and
// returns the dense loss targets. The batch size is taken from gtBoxes.
func (p *TargetPipeline) Assign(gtBoxes, gtLabels *tensor.Dense) (*processing.Targets, error) {
	shape := gtBoxes.Shape()
	if len(shape) != 3 {
		return nil, errors.Wrapf(processing.ErrShapeMismatch, "gtBoxes must have shape [B, M, 4], got %v", shape)
	}

	imageSize := p.anchorGeneration.ImageSize()
	imageShape := processing.ImageShape{
		Batch:    shape[0],
		Height:   imageSize[0],
		Width:    imageSize[1],
		Channels: p.channels,
	}
	return p.targetAssignment.Infer(gtBoxes, gtLabels, imageShape)
}

// Decode inverts the regression parametrization for model predictions of
// shape [N, 4] or [B, N, 4], clipping the boxes into the image.
func (p *TargetPipeline) Decode(deltas *tensor.Dense) (*tensor.Dense, error) {
	return p.boxDecoding.Infer(deltas)
}
