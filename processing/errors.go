package processing

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

var (
	// ErrInvalidConfig is returned when anchor or target parameters carry
	// non-positive sizes, ratios, scales or strides.
	ErrInvalidConfig = errors.New("invalid anchor configuration")

	// ErrShapeMismatch is returned when a box, label or overlap tensor does
	// not have the rank or dimensions a component expects.
	ErrShapeMismatch = errors.New("tensor shape mismatch")

	// ErrDegenerateAnchor is returned when a zero-extent anchor reaches the
	// regression encoder. Degenerate anchors are never clamped: encoding them
	// would silently produce inf/NaN targets.
	ErrDegenerateAnchor = errors.New("degenerate anchor")
)

// checkBoxes2D verifies that t holds corner-form boxes of shape [N, 4].
func checkBoxes2D(name string, t *tensor.Dense) error {
	shape := t.Shape()
	if len(shape) != 2 || shape[1] != 4 {
		return errors.Wrapf(ErrShapeMismatch, "%s must have shape [N, 4], got %v", name, shape)
	}
	return nil
}

// checkBoxes3D verifies that t holds batched corner-form boxes of shape [B, M, 4].
func checkBoxes3D(name string, t *tensor.Dense) error {
	shape := t.Shape()
	if len(shape) != 3 || shape[2] != 4 {
		return errors.Wrapf(ErrShapeMismatch, "%s must have shape [B, M, 4], got %v", name, shape)
	}
	return nil
}
