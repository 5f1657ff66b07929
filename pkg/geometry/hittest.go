package geometry

import (
	"math"
)

// Handle identifies an edge or corner affordance on a box.
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTopRight
	HandleBottomRight
	HandleBottomLeft
	HandleTop
	HandleRight
	HandleBottom
	HandleLeft
)

func (h Handle) String() string {
	switch h {
	case HandleTopLeft:
		return "top-left"
	case HandleTopRight:
		return "top-right"
	case HandleBottomRight:
		return "bottom-right"
	case HandleBottomLeft:
		return "bottom-left"
	case HandleTop:
		return "top"
	case HandleRight:
		return "right"
	case HandleBottom:
		return "bottom"
	case HandleLeft:
		return "left"
	default:
		return "none"
	}
}

// IsCorner reports whether the handle is one of the four corners.
func (h Handle) IsCorner() bool {
	switch h {
	case HandleTopLeft, HandleTopRight, HandleBottomRight, HandleBottomLeft:
		return true
	}
	return false
}

// Region classifies where a point lies relative to a box.
type Region int

const (
	RegionOutside Region = iota
	RegionInside
	RegionEdge
	RegionCorner
)

// Hit is the result of a hit test: the region and, for edge/corner hits,
// the specific handle.
type Hit struct {
	Region Region
	Handle Handle
}

// OnBox reports whether the hit touches the box at all (inside or handle).
func (h Hit) OnBox() bool {
	return h.Region != RegionOutside
}

// HitTest classifies a point against a box. tol is the handle hit radius
// in image units; callers derive it from a fixed screen-pixel radius via
// ViewTransform.HandleTolerance. Corner handles take precedence over
// edges, edges over the interior.
func HitTest(p Point2D, b Box, tol float64) Hit {
	corners := [4]struct {
		pt Point2D
		h  Handle
	}{
		{Point2D{X: b.MinX, Y: b.MinY}, HandleTopLeft},
		{Point2D{X: b.MaxX, Y: b.MinY}, HandleTopRight},
		{Point2D{X: b.MaxX, Y: b.MaxY}, HandleBottomRight},
		{Point2D{X: b.MinX, Y: b.MaxY}, HandleBottomLeft},
	}
	for _, c := range corners {
		if math.Abs(p.X-c.pt.X) <= tol && math.Abs(p.Y-c.pt.Y) <= tol {
			return Hit{Region: RegionCorner, Handle: c.h}
		}
	}

	withinX := p.X >= b.MinX-tol && p.X <= b.MaxX+tol
	withinY := p.Y >= b.MinY-tol && p.Y <= b.MaxY+tol
	if withinX && withinY {
		switch {
		case math.Abs(p.Y-b.MinY) <= tol:
			return Hit{Region: RegionEdge, Handle: HandleTop}
		case math.Abs(p.Y-b.MaxY) <= tol:
			return Hit{Region: RegionEdge, Handle: HandleBottom}
		case math.Abs(p.X-b.MinX) <= tol:
			return Hit{Region: RegionEdge, Handle: HandleLeft}
		case math.Abs(p.X-b.MaxX) <= tol:
			return Hit{Region: RegionEdge, Handle: HandleRight}
		}
	}

	if b.Contains(p) {
		return Hit{Region: RegionInside}
	}
	return Hit{Region: RegionOutside}
}

// Resize returns the box with the given handle dragged by delta (image
// units). Dragging past the opposite edge flips the box rather than
// collapsing it; the result is normalized but not clamped.
func Resize(b Box, handle Handle, delta Point2D) Box {
	switch handle {
	case HandleTopLeft:
		b.MinX += delta.X
		b.MinY += delta.Y
	case HandleTopRight:
		b.MaxX += delta.X
		b.MinY += delta.Y
	case HandleBottomRight:
		b.MaxX += delta.X
		b.MaxY += delta.Y
	case HandleBottomLeft:
		b.MinX += delta.X
		b.MaxY += delta.Y
	case HandleTop:
		b.MinY += delta.Y
	case HandleRight:
		b.MaxX += delta.X
	case HandleBottom:
		b.MaxY += delta.Y
	case HandleLeft:
		b.MinX += delta.X
	}
	return b.Normalize()
}
