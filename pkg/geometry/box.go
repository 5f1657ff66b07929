package geometry

import (
	"math"
)

// Box is an axis-aligned rectangle in image-pixel coordinates.
// A well-formed box satisfies MinX < MaxX and MinY < MaxY; use Normalize
// to restore the invariant after an edit that may have crossed edges.
type Box struct {
	MinX float64 `json:"x1"`
	MinY float64 `json:"y1"`
	MaxX float64 `json:"x2"`
	MaxY float64 `json:"y2"`
}

// NewBox creates a normalized box from two opposite corners.
func NewBox(x1, y1, x2, y2 float64) Box {
	return Box{MinX: x1, MinY: y1, MaxX: x2, MaxY: y2}.Normalize()
}

// Normalize returns the box with min/max coordinates ordered.
func (b Box) Normalize() Box {
	if b.MinX > b.MaxX {
		b.MinX, b.MaxX = b.MaxX, b.MinX
	}
	if b.MinY > b.MaxY {
		b.MinY, b.MaxY = b.MaxY, b.MinY
	}
	return b
}

// Width returns the horizontal extent.
func (b Box) Width() float64 {
	return b.MaxX - b.MinX
}

// Height returns the vertical extent.
func (b Box) Height() float64 {
	return b.MaxY - b.MinY
}

// Area returns the box area, or 0 for a degenerate box.
func (b Box) Area() float64 {
	return math.Max(0, b.Width()) * math.Max(0, b.Height())
}

// Center returns the center point.
func (b Box) Center() Point2D {
	return Point2D{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// Contains returns true if the point lies inside the box (edges inclusive).
func (b Box) Contains(p Point2D) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Empty reports whether the box has zero or negative extent on either axis.
func (b Box) Empty() bool {
	return b.Width() <= 0 || b.Height() <= 0
}

// Translate returns the box moved by delta without clamping.
func (b Box) Translate(delta Point2D) Box {
	return Box{
		MinX: b.MinX + delta.X,
		MinY: b.MinY + delta.Y,
		MaxX: b.MaxX + delta.X,
		MaxY: b.MaxY + delta.Y,
	}
}

// IoU returns the intersection-over-union with another box.
func (b Box) IoU(other Box) float64 {
	ix1 := math.Max(b.MinX, other.MinX)
	iy1 := math.Max(b.MinY, other.MinY)
	ix2 := math.Min(b.MaxX, other.MaxX)
	iy2 := math.Min(b.MaxY, other.MaxY)

	inter := math.Max(0, ix2-ix1) * math.Max(0, iy2-iy1)
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// ClampToImage clamps every coordinate into [0,width] x [0,height].
// The box shrinks only when it cannot fit at its current position.
func ClampToImage(b Box, width, height float64) Box {
	b = b.Normalize()
	b.MinX = clamp(b.MinX, 0, width)
	b.MaxX = clamp(b.MaxX, 0, width)
	b.MinY = clamp(b.MinY, 0, height)
	b.MaxY = clamp(b.MaxY, 0, height)
	return b
}

// ClampTranslate shifts a (possibly out-of-bounds) box back inside the
// image, preserving width and height when the box fits. A box larger than
// the image is pinned to the origin and clipped.
func ClampTranslate(b Box, width, height float64) Box {
	w := b.Width()
	h := b.Height()
	if b.MinX < 0 {
		b.MinX = 0
		b.MaxX = w
	}
	if b.MinY < 0 {
		b.MinY = 0
		b.MaxY = h
	}
	if b.MaxX > width {
		b.MaxX = width
		b.MinX = width - w
	}
	if b.MaxY > height {
		b.MaxY = height
		b.MinY = height - h
	}
	return ClampToImage(b, width, height)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
