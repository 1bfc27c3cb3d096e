package processing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBoxes_Concrete(t *testing.T) {
	anchor := boxes(t, []float32{0, 0, 10, 10})
	gt := boxes(t, []float32{1, 1, 9, 9})

	deltas, err := EncodeBoxes(anchor, gt)
	require.NoError(t, err)

	// Raw offsets (0.1, 0.1, -0.1, -0.1) standardized by std 0.2.
	dv := deltas.Float32s()
	assert.InDelta(t, 0.5, dv[0], 1e-6)
	assert.InDelta(t, 0.5, dv[1], 1e-6)
	assert.InDelta(t, -0.5, dv[2], 1e-6)
	assert.InDelta(t, -0.5, dv[3], 1e-6)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	anchors := boxes(t, []float32{
		0, 0, 10, 10,
		20, 40, 52, 104,
		7, 3, 15, 9,
	})
	gt := boxes(t, []float32{
		1, 1, 9, 9,
		18, 44, 60, 98,
		0, 0, 22, 14,
	})

	deltas, err := EncodeBoxes(anchors, gt)
	require.NoError(t, err)

	decoded, err := DecodeBoxes(anchors, deltas)
	require.NoError(t, err)

	gv := gt.Float32s()
	dv := decoded.Float32s()
	for i := range gv {
		assert.InDelta(t, gv[i], dv[i], 1e-5)
	}
}

func TestEncodeBoxes_DegenerateAnchor(t *testing.T) {
	zeroWidth := boxes(t, []float32{5, 5, 5, 9})
	gt := boxes(t, []float32{0, 0, 10, 10})

	_, err := EncodeBoxes(zeroWidth, gt)
	assert.ErrorIs(t, err, ErrDegenerateAnchor)

	_, err = DecodeBoxes(zeroWidth, gt)
	assert.ErrorIs(t, err, ErrDegenerateAnchor)
}

func TestEncodeBoxes_ShapeMismatch(t *testing.T) {
	one := boxes(t, []float32{0, 0, 10, 10})
	two := boxes(t, []float32{
		0, 0, 10, 10,
		1, 1, 9, 9,
	})

	_, err := EncodeBoxes(one, two)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestClipBoxes(t *testing.T) {
	set := boxes(t, []float32{
		-5, -3, 10, 10,
		90, 40, 130, 80,
		20, 20, 30, 30,
	})

	clipped, err := ClipBoxes(set, []int{60, 100})
	require.NoError(t, err)

	cv := clipped.Float32s()
	for i := 0; i < clipped.Shape()[0]; i++ {
		assert.GreaterOrEqual(t, cv[i*4+0], float32(0))
		assert.GreaterOrEqual(t, cv[i*4+1], float32(0))
		assert.LessOrEqual(t, cv[i*4+2], float32(99))
		assert.LessOrEqual(t, cv[i*4+3], float32(59))
	}

	// Boxes already inside the raster are untouched.
	assert.Equal(t, []float32{20, 20, 30, 30}, cv[8:12])
}

func TestClipBoxes_InvalidShape(t *testing.T) {
	set := boxes(t, []float32{0, 0, 10, 10})
	_, err := ClipBoxes(set, []int{0, 100})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
