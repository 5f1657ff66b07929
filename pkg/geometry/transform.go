package geometry

// Zoom limits shared by every view of an image.
const (
	MinScale = 0.1
	MaxScale = 10.0
	ZoomStep = 1.25
)

// ViewTransform maps image coordinates to screen coordinates:
// screen = image*Scale + Offset. Scale is always positive, so the
// transform is invertible for every pointer-event translation.
type ViewTransform struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// NewViewTransform returns the identity transform.
func NewViewTransform() ViewTransform {
	return ViewTransform{Scale: 1}
}

// FitTransform returns a transform that scales an image of the given size
// to fit entirely inside the view, centered.
func FitTransform(imgW, imgH, viewW, viewH float64) ViewTransform {
	if imgW <= 0 || imgH <= 0 || viewW <= 0 || viewH <= 0 {
		return NewViewTransform()
	}
	scale := viewW / imgW
	if s := viewH / imgH; s < scale {
		scale = s
	}
	scale = clampScale(scale)
	return ViewTransform{
		Scale:   scale,
		OffsetX: (viewW - imgW*scale) / 2,
		OffsetY: (viewH - imgH*scale) / 2,
	}
}

// ToScreen maps an image-space point to screen space.
func (t ViewTransform) ToScreen(p Point2D) Point2D {
	return Point2D{X: p.X*t.Scale + t.OffsetX, Y: p.Y*t.Scale + t.OffsetY}
}

// ToImage maps a screen-space point back to image space.
func (t ViewTransform) ToImage(p Point2D) Point2D {
	return Point2D{X: (p.X - t.OffsetX) / t.Scale, Y: (p.Y - t.OffsetY) / t.Scale}
}

// BoxToScreen maps an image-space box to screen space.
func (t ViewTransform) BoxToScreen(b Box) Box {
	tl := t.ToScreen(Point2D{X: b.MinX, Y: b.MinY})
	br := t.ToScreen(Point2D{X: b.MaxX, Y: b.MaxY})
	return Box{MinX: tl.X, MinY: tl.Y, MaxX: br.X, MaxY: br.Y}
}

// HandleTolerance converts a hit tolerance given in screen pixels to image
// units under this transform, so handle size stays resolution-independent.
func (t ViewTransform) HandleTolerance(screenPx float64) float64 {
	return screenPx / t.Scale
}

// ZoomAt returns the transform zoomed by factor with the image point under
// the given screen position held fixed.
func (t ViewTransform) ZoomAt(screen Point2D, factor float64) ViewTransform {
	anchor := t.ToImage(screen)
	scale := clampScale(t.Scale * factor)
	return ViewTransform{
		Scale:   scale,
		OffsetX: screen.X - anchor.X*scale,
		OffsetY: screen.Y - anchor.Y*scale,
	}
}

// Pan returns the transform shifted by a screen-space delta.
func (t ViewTransform) Pan(dx, dy float64) ViewTransform {
	t.OffsetX += dx
	t.OffsetY += dy
	return t
}

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
