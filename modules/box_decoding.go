package modules

import (
	"github.com/okieraised/go-anchor-targets/processing"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// BoxDecodeClient turns regression predictions back into image-space boxes.
// It applies the exact inverse of the target parametrization and clips the
// result into the image raster for the visualization and inference
// consumers.
type BoxDecodeClient struct {
	anchors   *tensor.Dense
	imageSize [2]int
}

func NewBoxDecodeClient(anchors *tensor.Dense, imageSize [2]int) (*BoxDecodeClient, error) {
	shape := anchors.Shape()
	if len(shape) != 2 || shape[1] != 4 {
		return nil, errors.Wrapf(processing.ErrShapeMismatch, "anchors must have shape [N, 4], got %v", shape)
	}
	if imageSize[0] <= 0 || imageSize[1] <= 0 {
		return nil, errors.Wrapf(processing.ErrShapeMismatch, "image size must be positive, got %v", imageSize)
	}
	return &BoxDecodeClient{
		anchors:   anchors,
		imageSize: imageSize,
	}, nil
}

// Infer decodes regression deltas of shape [N, 4] or [B, N, 4] into clipped
// corner boxes of the same shape.
func (c *BoxDecodeClient) Infer(deltas *tensor.Dense) (*tensor.Dense, error) {
	shape := deltas.Shape()
	imgShape := []int{c.imageSize[0], c.imageSize[1]}

	switch len(shape) {
	case 2:
		decoded, err := processing.DecodeBoxes(c.anchors, deltas)
		if err != nil {
			return nil, err
		}
		return processing.ClipBoxes(decoded, imgShape)
	case 3:
		batch, n := shape[0], shape[1]
		if n != c.anchors.Shape()[0] || shape[2] != 4 {
			return nil, errors.Wrapf(processing.ErrShapeMismatch,
				"deltas %v do not match %d anchors", shape, c.anchors.Shape()[0])
		}
		dv := deltas.Float32s()
		out := make([]float32, batch*n*4)
		for b := 0; b < batch; b++ {
			image := tensor.New(
				tensor.Of(tensor.Float32),
				tensor.WithShape(n, 4),
				tensor.WithBacking(dv[b*n*4:(b+1)*n*4]),
			)
			decoded, err := processing.DecodeBoxes(c.anchors, image)
			if err != nil {
				return nil, errors.Wrapf(err, "batch entry %d", b)
			}
			clipped, err := processing.ClipBoxes(decoded, imgShape)
			if err != nil {
				return nil, errors.Wrapf(err, "batch entry %d", b)
			}
			copy(out[b*n*4:(b+1)*n*4], clipped.Float32s())
		}
		return tensor.New(
			tensor.Of(tensor.Float32),
			tensor.WithShape(batch, n, 4),
			tensor.WithBacking(out),
		), nil
	default:
		return nil, errors.Wrapf(processing.ErrShapeMismatch,
			"deltas must have shape [N, 4] or [B, N, 4], got %v", shape)
	}
}
