package processing

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ComputeIoU returns the pairwise intersection-over-union between two
// corner-form box sets, shape [N, M]. When both boxes are degenerate the
// union is zero and the overlap is reported as 0 rather than dividing by it.
func ComputeIoU(boxesA, boxesB *tensor.Dense) (*tensor.Dense, error) {
	if err := checkBoxes2D("boxesA", boxesA); err != nil {
		return nil, err
	}
	if err := checkBoxes2D("boxesB", boxesB); err != nil {
		return nil, err
	}

	n := boxesA.Shape()[0]
	m := boxesB.Shape()[0]
	av := boxesA.Float32s()
	bv := boxesB.Float32s()
	out := make([]float32, n*m)

	for i := 0; i < n; i++ {
		ax1, ay1, ax2, ay2 := av[i*4], av[i*4+1], av[i*4+2], av[i*4+3]
		areaA := (ax2 - ax1) * (ay2 - ay1)
		for j := 0; j < m; j++ {
			bx1, by1, bx2, by2 := bv[j*4], bv[j*4+1], bv[j*4+2], bv[j*4+3]

			iw := math32.Min(ax2, bx2) - math32.Max(ax1, bx1)
			if iw < 0 {
				iw = 0
			}
			ih := math32.Min(ay2, by2) - math32.Max(ay1, by1)
			if ih < 0 {
				ih = 0
			}

			intersection := iw * ih
			union := areaA + (bx2-bx1)*(by2-by1) - intersection
			if union > 0 {
				out[i*m+j] = intersection / union
			}
		}
	}

	return tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(n, m),
		tensor.WithBacking(out),
	), nil
}

// ComputeIoUBatch computes per-image overlaps between a shared anchor set
// [N, 4] and batched ground-truth boxes [B, M, 4], producing [B, N, M].
// Images are independent: no value crosses the batch dimension.
func ComputeIoUBatch(anchors, gtBoxes *tensor.Dense) (*tensor.Dense, error) {
	if err := checkBoxes2D("anchors", anchors); err != nil {
		return nil, err
	}
	if err := checkBoxes3D("gtBoxes", gtBoxes); err != nil {
		return nil, err
	}

	batch := gtBoxes.Shape()[0]
	m := gtBoxes.Shape()[1]
	n := anchors.Shape()[0]
	gv := gtBoxes.Float32s()
	out := make([]float32, batch*n*m)

	for b := 0; b < batch; b++ {
		image := tensor.New(
			tensor.Of(tensor.Float32),
			tensor.WithShape(m, 4),
			tensor.WithBacking(gv[b*m*4:(b+1)*m*4]),
		)
		overlap, err := ComputeIoU(anchors, image)
		if err != nil {
			return nil, errors.Wrapf(err, "batch entry %d", b)
		}
		copy(out[b*n*m:(b+1)*n*m], overlap.Float32s())
	}

	return tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(batch, n, m),
		tensor.WithBacking(out),
	), nil
}
