package modules

import (
	"testing"

	"github.com/okieraised/go-anchor-targets/processing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestBoxDecodeClient_ZeroDeltas(t *testing.T) {
	anchorClient := smallAnchorClient(t)
	client, err := NewBoxDecodeClient(anchorClient.Anchors(), [2]int{16, 16})
	require.NoError(t, err)

	n := anchorClient.NumAnchors()
	zero := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(n, 4),
		tensor.WithBacking(make([]float32, n*4)),
	)

	decoded, err := client.Infer(zero)
	require.NoError(t, err)

	// Zero deltas decode to the anchors themselves, clipped to the raster.
	dv := decoded.Float32s()
	for i := 0; i < n; i++ {
		assert.GreaterOrEqual(t, dv[i*4+0], float32(0))
		assert.GreaterOrEqual(t, dv[i*4+1], float32(0))
		assert.LessOrEqual(t, dv[i*4+2], float32(15))
		assert.LessOrEqual(t, dv[i*4+3], float32(15))
	}
}

func TestBoxDecodeClient_InvertsEncoding(t *testing.T) {
	anchors := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(2, 4),
		tensor.WithBacking([]float32{
			10, 10, 42, 42,
			50, 20, 90, 60,
		}),
	)
	gt := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(2, 4),
		tensor.WithBacking([]float32{
			12, 8, 44, 40,
			55, 25, 85, 55,
		}),
	)

	deltas, err := processing.EncodeBoxes(anchors, gt)
	require.NoError(t, err)

	client, err := NewBoxDecodeClient(anchors, [2]int{100, 100})
	require.NoError(t, err)

	decoded, err := client.Infer(deltas)
	require.NoError(t, err)

	gv := gt.Float32s()
	dv := decoded.Float32s()
	for i := range gv {
		assert.InDelta(t, gv[i], dv[i], 1e-4)
	}
}

func TestBoxDecodeClient_Batched(t *testing.T) {
	anchorClient := smallAnchorClient(t)
	client, err := NewBoxDecodeClient(anchorClient.Anchors(), [2]int{16, 16})
	require.NoError(t, err)

	n := anchorClient.NumAnchors()
	batched := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(2, n, 4),
		tensor.WithBacking(make([]float32, 2*n*4)),
	)

	decoded, err := client.Infer(batched)
	require.NoError(t, err)
	assert.Equal(t, []int{2, n, 4}, []int(decoded.Shape()))

	dv := decoded.Float32s()
	assert.Equal(t, dv[:n*4], dv[n*4:], "identical deltas decode identically per image")
}

func TestBoxDecodeClient_ShapeMismatch(t *testing.T) {
	anchorClient := smallAnchorClient(t)
	client, err := NewBoxDecodeClient(anchorClient.Anchors(), [2]int{16, 16})
	require.NoError(t, err)

	bad := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(4),
		tensor.WithBacking(make([]float32, 4)),
	)
	_, err = client.Infer(bad)
	assert.ErrorIs(t, err, processing.ErrShapeMismatch)

	wrongCount := tensor.New(
		tensor.Of(tensor.Float32),
		tensor.WithShape(1, 3, 4),
		tensor.WithBacking(make([]float32, 12)),
	)
	_, err = client.Infer(wrongCount)
	assert.ErrorIs(t, err, processing.ErrShapeMismatch)
}
