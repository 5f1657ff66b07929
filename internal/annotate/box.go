// Package annotate provides the annotation core: the per-image box store,
// the mode-driven interaction editor, and per-category visibility state.
package annotate

import (
	"errors"

	"box-labeler/pkg/geometry"
)

// Store operation errors. Both indicate desynchronized state rather than
// bad user input; callers report them and leave the box set untouched.
var (
	// ErrNotFound is returned when an operation references a box id that
	// is not present in the addressed category.
	ErrNotFound = errors.New("box not found")

	// ErrInvalidGeometry is returned when an edit would leave a box with
	// zero or negative area after clamping to the image.
	ErrInvalidGeometry = errors.New("invalid box geometry")
)

// Category partitions the boxes of an image.
type Category int

const (
	// GroundTruth is the authoritative, human-curated label set.
	GroundTruth Category = iota
	// Predicted holds transient boxes from a detection model, replaced
	// wholesale on every prediction run.
	Predicted
	// Extra holds machine-vision proposals pending human review.
	Extra

	// NumCategories is the number of box categories.
	NumCategories
)

func (c Category) String() string {
	switch c {
	case GroundTruth:
		return "GT"
	case Predicted:
		return "Pred"
	case Extra:
		return "Extra"
	default:
		return "Unknown"
	}
}

// Valid reports whether c is a usable category value.
func (c Category) Valid() bool {
	return c >= GroundTruth && c < NumCategories
}

// Box is a single annotation: a class label and a rectangle in image-pixel
// coordinates. ID is unique within its category for the lifetime of the
// editing session and is never reused after deletion.
type Box struct {
	ID    int
	Class int
	Rect  geometry.Box

	// Confidence is meaningful only when HasConf is set; ground-truth
	// boxes never carry a confidence.
	Confidence float64
	HasConf    bool
}
