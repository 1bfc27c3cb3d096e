package processing

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// MatchResult holds the per-image anchor assignment decided from the overlap
// matrix. Positive and Ignore are mutually exclusive; background is the
// complement of both. MatchedIndex is always filled, even for background
// anchors, so callers can gather the matched ground-truth row densely.
type MatchResult struct {
	Positive     [][]bool
	Ignore       [][]bool
	MatchedIndex [][]int
}

// MatchGroundTruth assigns every anchor to its highest-overlap ground-truth
// box per image. Ties on the maximum resolve to the lowest box index so that
// identical inputs always produce identical assignments.
//
// An anchor is positive when its best overlap reaches positiveOverlap
// (inclusive) and the matched box is not degenerate. It is ignored when the
// best overlap exceeds negativeOverlap (exclusive) without qualifying as
// positive, or when the matched box is degenerate (area below one pixel).
func MatchGroundTruth(anchors, gtBoxes *tensor.Dense, negativeOverlap, positiveOverlap float32) (*MatchResult, error) {
	if err := checkBoxes2D("anchors", anchors); err != nil {
		return nil, err
	}
	if err := checkBoxes3D("gtBoxes", gtBoxes); err != nil {
		return nil, err
	}
	if gtBoxes.Shape()[1] == 0 {
		return nil, errors.Wrap(ErrShapeMismatch, "ground-truth capacity must be at least one padded slot")
	}

	overlaps, err := ComputeIoUBatch(anchors, gtBoxes)
	if err != nil {
		return nil, err
	}

	batch := gtBoxes.Shape()[0]
	m := gtBoxes.Shape()[1]
	n := anchors.Shape()[0]
	ov := overlaps.Float32s()
	gv := gtBoxes.Float32s()

	result := &MatchResult{
		Positive:     make([][]bool, batch),
		Ignore:       make([][]bool, batch),
		MatchedIndex: make([][]int, batch),
	}

	for b := 0; b < batch; b++ {
		positive := make([]bool, n)
		ignore := make([]bool, n)
		matched := make([]int, n)

		for i := 0; i < n; i++ {
			row := ov[(b*n+i)*m : (b*n+i+1)*m]
			best := 0
			bestIoU := row[0]
			for j := 1; j < m; j++ {
				if row[j] > bestIoU {
					best = j
					bestIoU = row[j]
				}
			}
			matched[i] = best

			gt := gv[(b*m+best)*4 : (b*m+best+1)*4]
			degenerate := (gt[2]-gt[0])*(gt[3]-gt[1]) < 1

			positive[i] = bestIoU >= positiveOverlap && !degenerate
			ignore[i] = (bestIoU > negativeOverlap && !positive[i]) || degenerate
		}

		result.Positive[b] = positive
		result.Ignore[b] = ignore
		result.MatchedIndex[b] = matched
	}

	return result, nil
}
