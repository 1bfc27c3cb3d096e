package utils

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// VStack concatenates 2D tensors along the row axis, skipping empty inputs.
func VStack(tensors []*tensor.Dense) (*tensor.Dense, error) {
	nonEmpty := make([]*tensor.Dense, 0, len(tensors))
	for _, t := range tensors {
		if t.Shape()[0] > 0 {
			nonEmpty = append(nonEmpty, t)
		}
	}

	if len(nonEmpty) == 0 {
		return tensor.New(tensor.Of(tensor.Float32), tensor.WithShape(0, 4)), nil
	}
	if len(nonEmpty) == 1 {
		return nonEmpty[0], nil
	}

	result, err := nonEmpty[0].Concat(0, nonEmpty[1:]...)
	if err != nil {
		return nil, errors.Wrap(err, "concatenating tensors")
	}
	return result, nil
}

// GatherRows selects rows of a 2D tensor by explicit index, producing a new
// [len(indices), C] tensor. Indices may repeat.
func GatherRows(t *tensor.Dense, indices []int) (*tensor.Dense, error) {
	shape := t.Shape()
	if len(shape) != 2 {
		return nil, errors.Errorf("expected a 2D tensor, got shape %v", shape)
	}
	numRows, numCols := shape[0], shape[1]
	data := t.Float32s()

	selected := make([]float32, 0, len(indices)*numCols)
	for _, idx := range indices {
		if idx < 0 || idx >= numRows {
			return nil, errors.Errorf("row index %d out of bounds for %d rows", idx, numRows)
		}
		selected = append(selected, data[idx*numCols:(idx+1)*numCols]...)
	}

	return tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(len(indices), numCols),
		tensor.WithBacking(selected),
	), nil
}

// GatherValues selects elements of a 1D tensor by explicit index.
func GatherValues(t *tensor.Dense, indices []int) (*tensor.Dense, error) {
	shape := t.Shape()
	if len(shape) != 1 {
		return nil, errors.Errorf("expected a 1D tensor, got shape %v", shape)
	}
	data := t.Float32s()

	selected := make([]float32, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= shape[0] {
			return nil, errors.Errorf("index %d out of bounds for %d elements", idx, shape[0])
		}
		selected[i] = data[idx]
	}

	return tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(len(indices)),
		tensor.WithBacking(selected),
	), nil
}
