package modules

import (
	"github.com/okieraised/go-anchor-targets/config"
	"github.com/okieraised/go-anchor-targets/processing"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// TargetAssignClient labels a fixed anchor set against per-batch ground
// truth. It holds no per-batch state; Infer may be called for every training
// batch with the same client.
type TargetAssignClient struct {
	Params *config.TargetParams

	anchors *tensor.Dense
}

func NewTargetAssignClient(anchors *tensor.Dense, params *config.TargetParams) (*TargetAssignClient, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	shape := anchors.Shape()
	if len(shape) != 2 || shape[1] != 4 {
		return nil, errors.Wrapf(processing.ErrShapeMismatch, "anchors must have shape [N, 4], got %v", shape)
	}
	return &TargetAssignClient{
		Params:  params,
		anchors: anchors,
	}, nil
}

// Infer computes the dense classification and regression targets for one
// batch of padded ground truth. gtBoxes is [B, M, 4], gtLabels is [B, M]
// with unused slots set to the configured padding value.
func (c *TargetAssignClient) Infer(gtBoxes, gtLabels *tensor.Dense, imageShape processing.ImageShape) (*processing.Targets, error) {
	return processing.AnchorTargets(
		c.anchors,
		gtBoxes,
		gtLabels,
		c.Params.NumClasses,
		imageShape,
		c.Params.PaddingValue,
		c.Params.NegativeOverlap,
		c.Params.PositiveOverlap,
	)
}
