package processing

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Corner-offset regression parametrization. The standardization constants are
// fixed: pretrained regression heads were trained against exactly these
// values, so they must never drift.
var (
	boxTargetMean = [4]float32{0, 0, 0, 0}
	boxTargetStd  = [4]float32{0.2, 0.2, 0.2, 0.2}
)

// EncodeBoxes computes standardized corner-offset regression targets between
// matched anchor/ground-truth pairs, both shaped [N, 4]. Each raw offset is
// the corner delta divided by the anchor extent on that axis, then shifted
// and scaled by the fixed mean/std.
func EncodeBoxes(anchors, gtBoxes *tensor.Dense) (*tensor.Dense, error) {
	if err := checkBoxes2D("anchors", anchors); err != nil {
		return nil, err
	}
	if err := checkBoxes2D("gtBoxes", gtBoxes); err != nil {
		return nil, err
	}
	n := anchors.Shape()[0]
	if gtBoxes.Shape()[0] != n {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"anchors and gtBoxes must pair up row for row, got %d vs %d", n, gtBoxes.Shape()[0])
	}

	av := anchors.Float32s()
	gv := gtBoxes.Float32s()
	out := make([]float32, n*4)

	for i := 0; i < n; i++ {
		ax1, ay1, ax2, ay2 := av[i*4], av[i*4+1], av[i*4+2], av[i*4+3]
		w := ax2 - ax1
		h := ay2 - ay1
		if w <= 0 || h <= 0 {
			return nil, errors.Wrapf(ErrDegenerateAnchor, "anchor %d has extent %vx%v", i, w, h)
		}

		out[i*4+0] = ((gv[i*4+0]-ax1)/w - boxTargetMean[0]) / boxTargetStd[0]
		out[i*4+1] = ((gv[i*4+1]-ay1)/h - boxTargetMean[1]) / boxTargetStd[1]
		out[i*4+2] = ((gv[i*4+2]-ax2)/w - boxTargetMean[2]) / boxTargetStd[2]
		out[i*4+3] = ((gv[i*4+3]-ay2)/h - boxTargetMean[3]) / boxTargetStd[3]
	}

	return tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(n, 4),
		tensor.WithBacking(out),
	), nil
}

// DecodeBoxes inverts EncodeBoxes: given anchors [N, 4] and standardized
// regression deltas [N, 4], it reconstructs the predicted corner boxes.
func DecodeBoxes(anchors, deltas *tensor.Dense) (*tensor.Dense, error) {
	if err := checkBoxes2D("anchors", anchors); err != nil {
		return nil, err
	}
	if err := checkBoxes2D("deltas", deltas); err != nil {
		return nil, err
	}
	n := anchors.Shape()[0]
	if deltas.Shape()[0] != n {
		return nil, errors.Wrapf(ErrShapeMismatch,
			"anchors and deltas must pair up row for row, got %d vs %d", n, deltas.Shape()[0])
	}

	av := anchors.Float32s()
	dv := deltas.Float32s()
	out := make([]float32, n*4)

	for i := 0; i < n; i++ {
		ax1, ay1, ax2, ay2 := av[i*4], av[i*4+1], av[i*4+2], av[i*4+3]
		w := ax2 - ax1
		h := ay2 - ay1
		if w <= 0 || h <= 0 {
			return nil, errors.Wrapf(ErrDegenerateAnchor, "anchor %d has extent %vx%v", i, w, h)
		}

		out[i*4+0] = ax1 + (dv[i*4+0]*boxTargetStd[0]+boxTargetMean[0])*w
		out[i*4+1] = ay1 + (dv[i*4+1]*boxTargetStd[1]+boxTargetMean[1])*h
		out[i*4+2] = ax2 + (dv[i*4+2]*boxTargetStd[2]+boxTargetMean[2])*w
		out[i*4+3] = ay2 + (dv[i*4+3]*boxTargetStd[3]+boxTargetMean[3])*h
	}

	return tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(n, 4),
		tensor.WithBacking(out),
	), nil
}

// ClipBoxes clamps corner boxes [N, 4] into the image raster in place and
// returns the same tensor. imgShape is [height, width]. Decoded predictions
// may overshoot the image and need clipping before display or evaluation.
func ClipBoxes(boxes *tensor.Dense, imgShape []int) (*tensor.Dense, error) {
	if err := checkBoxes2D("boxes", boxes); err != nil {
		return nil, err
	}
	if len(imgShape) < 2 || imgShape[0] <= 0 || imgShape[1] <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "imgShape must be [height, width], got %v", imgShape)
	}

	height := float32(imgShape[0] - 1)
	width := float32(imgShape[1] - 1)
	bv := boxes.Float32s()

	clamp := func(v, hi float32) float32 {
		if v < 0 {
			return 0
		}
		if v > hi {
			return hi
		}
		return v
	}

	for i := 0; i < boxes.Shape()[0]; i++ {
		bv[i*4+0] = clamp(bv[i*4+0], width)
		bv[i*4+1] = clamp(bv[i*4+1], height)
		bv[i*4+2] = clamp(bv[i*4+2], width)
		bv[i*4+3] = clamp(bv[i*4+3], height)
	}

	return boxes, nil
}
