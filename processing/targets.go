package processing

import (
	"github.com/okieraised/go-anchor-targets/utils"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ImageShape describes the batched input raster the anchors were laid over.
// Only the extents are consulted; pixel data never enters this package.
type ImageShape struct {
	Batch    int
	Height   int
	Width    int
	Channels int
}

// AnchorState is the terminal training state of one anchor for one image.
type AnchorState = float32

const (
	AnchorStateIgnore     AnchorState = -1
	AnchorStateBackground AnchorState = 0
	AnchorStateForeground AnchorState = 1
)

// Targets carries the dense training targets for one batch.
//
// Regression is [B, N, 5]: four standardized corner offsets plus the anchor
// state. Class is [B, N, numClasses+1]: a one-hot (or all-zero) class vector
// plus the same state. The state column is the only place the
// ignore/foreground/background distinction lives; the loss consumer masks
// by it. EmptyImages lists batch entries whose ground-truth slots were all
// padding. Those images are valid, they just contribute no foreground.
type Targets struct {
	Regression  *tensor.Dense
	Class       *tensor.Dense
	EmptyImages []int
}

// AnchorTargets assigns every anchor of every batch image a classification
// and regression target against the padded ground truth.
//
// Order of the masking steps matters: overlap matching first, then demotion
// of anchors whose best match is an unused padding slot, then the
// out-of-image correction. An anchor whose center falls at or beyond the
// image extent is ignored no matter what it matched.
func AnchorTargets(
	anchors, gtBoxes, gtLabels *tensor.Dense,
	numClasses int,
	imageShape ImageShape,
	paddingValue, negativeOverlap, positiveOverlap float32,
) (*Targets, error) {
	if numClasses <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "numClasses must be positive, got %d", numClasses)
	}
	if imageShape.Height <= 0 || imageShape.Width <= 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "image extents must be positive, got %dx%d",
			imageShape.Height, imageShape.Width)
	}
	if err := checkBoxes2D("anchors", anchors); err != nil {
		return nil, err
	}
	if err := checkBoxes3D("gtBoxes", gtBoxes); err != nil {
		return nil, err
	}
	labelShape := gtLabels.Shape()
	if len(labelShape) != 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "gtLabels must have shape [B, M], got %v", labelShape)
	}
	batch := gtBoxes.Shape()[0]
	m := gtBoxes.Shape()[1]
	if labelShape[0] != batch || labelShape[1] != m {
		return nil, errors.Wrapf(ErrShapeMismatch, "gtLabels %v does not match gtBoxes [%d, %d, 4]",
			labelShape, batch, m)
	}
	if imageShape.Batch != batch {
		return nil, errors.Wrapf(ErrShapeMismatch, "image batch %d does not match ground-truth batch %d",
			imageShape.Batch, batch)
	}

	match, err := MatchGroundTruth(anchors, gtBoxes, negativeOverlap, positiveOverlap)
	if err != nil {
		return nil, err
	}

	n := anchors.Shape()[0]
	av := anchors.Float32s()
	gbv := gtBoxes.Float32s()
	glv := gtLabels.Float32s()

	width := float32(imageShape.Width)
	height := float32(imageShape.Height)

	regBacking := make([]float32, batch*n*5)
	clsBacking := make([]float32, batch*n*(numClasses+1))
	emptyImages := make([]int, 0)

	for b := 0; b < batch; b++ {
		imageBoxes := tensor.New(
			tensor.Of(tensor.Float32),
			tensor.WithShape(m, 4),
			tensor.WithBacking(gbv[b*m*4:(b+1)*m*4]),
		)
		imageLabels := tensor.New(
			tensor.Of(tensor.Float32),
			tensor.WithShape(m),
			tensor.WithBacking(glv[b*m:(b+1)*m]),
		)

		allPadding := true
		for _, label := range imageLabels.Float32s() {
			if label != paddingValue {
				allPadding = false
				break
			}
		}
		if allPadding {
			emptyImages = append(emptyImages, b)
		}

		matchedBoxes, err := utils.GatherRows(imageBoxes, match.MatchedIndex[b])
		if err != nil {
			return nil, errors.Wrapf(err, "gathering matched boxes for batch entry %d", b)
		}
		matchedLabels, err := utils.GatherValues(imageLabels, match.MatchedIndex[b])
		if err != nil {
			return nil, errors.Wrapf(err, "gathering matched labels for batch entry %d", b)
		}

		deltas, err := EncodeBoxes(anchors, matchedBoxes)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding regression targets for batch entry %d", b)
		}
		dv := deltas.Float32s()
		mlv := matchedLabels.Float32s()

		for i := 0; i < n; i++ {
			positive := match.Positive[b][i]
			ignore := match.Ignore[b][i]
			label := mlv[i]

			// Fewer real objects than padded capacity: an anchor matched to
			// an unused slot carries no signal either way.
			if label == paddingValue {
				positive = false
				ignore = true
			}

			cx := (av[i*4+0] + av[i*4+2]) / 2
			cy := (av[i*4+1] + av[i*4+3]) / 2
			if cx >= width || cy >= height {
				positive = false
				ignore = true
			}

			state := AnchorStateBackground
			switch {
			case ignore:
				state = AnchorStateIgnore
			case positive:
				state = AnchorStateForeground
			}

			ri := (b*n + i) * 5
			copy(regBacking[ri:ri+4], dv[i*4:(i+1)*4])
			regBacking[ri+4] = state

			ci := (b*n + i) * (numClasses + 1)
			if state == AnchorStateForeground {
				classIdx := int(label)
				if classIdx < 0 || classIdx >= numClasses {
					return nil, errors.Wrapf(ErrShapeMismatch,
						"class label %v of batch entry %d outside [0, %d)", label, b, numClasses)
				}
				clsBacking[ci+classIdx] = 1
			}
			clsBacking[ci+numClasses] = state
		}
	}

	return &Targets{
		Regression: tensor.New(
			tensor.Of(tensor.Float32),
			tensor.WithShape(batch, n, 5),
			tensor.WithBacking(regBacking),
		),
		Class: tensor.New(
			tensor.Of(tensor.Float32),
			tensor.WithShape(batch, n, numClasses+1),
			tensor.WithBacking(clsBacking),
		),
		EmptyImages: emptyImages,
	}, nil
}
