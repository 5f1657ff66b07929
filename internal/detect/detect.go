// Package detect provides machine-vision box proposers and the
// asynchronous runner that drives them without blocking interaction.
package detect

import (
	"context"
	"image"

	"box-labeler/pkg/geometry"
)

// Proposal is one detector-suggested box in image-pixel coordinates.
type Proposal struct {
	Class      int
	Rect       geometry.Box
	Confidence float64
	HasConf    bool
}

// Proposer turns an image into box proposals. Implementations must honor
// ctx cancellation on long-running work and must not retain img after
// returning.
type Proposer interface {
	Name() string
	Propose(ctx context.Context, img image.Image) ([]Proposal, error)
}
