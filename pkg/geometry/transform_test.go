package geometry

import (
	"math"
	"testing"
)

func approxPoint(a, b Point2D, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps
}

func TestTransformRoundTrip(t *testing.T) {
	transforms := []ViewTransform{
		NewViewTransform(),
		{Scale: 2.5, OffsetX: 120, OffsetY: -40},
		{Scale: 0.3, OffsetX: -7.5, OffsetY: 300},
	}
	points := []Point2D{
		{X: 0, Y: 0},
		{X: 639, Y: 479},
		{X: 12.25, Y: 300.75},
	}
	for _, tr := range transforms {
		for _, p := range points {
			got := tr.ToImage(tr.ToScreen(p))
			if !approxPoint(got, p, 1e-9) {
				t.Errorf("round trip through %+v: %+v -> %+v", tr, p, got)
			}
		}
	}
}

func TestFitTransformCentersImage(t *testing.T) {
	// A 640x480 image in a 1280x720 view is height-limited: scale 1.5,
	// leaving horizontal margins.
	tr := FitTransform(640, 480, 1280, 720)
	if tr.Scale != 1.5 {
		t.Fatalf("scale = %v, want 1.5", tr.Scale)
	}
	if tr.OffsetX != 160 || tr.OffsetY != 0 {
		t.Errorf("offset = (%v, %v), want (160, 0)", tr.OffsetX, tr.OffsetY)
	}
	// Image corners land inside the view.
	tl := tr.ToScreen(Point2D{})
	br := tr.ToScreen(Point2D{X: 640, Y: 480})
	if tl.X < 0 || tl.Y < 0 || br.X > 1280 || br.Y > 720 {
		t.Errorf("image spills out of view: %+v .. %+v", tl, br)
	}
}

func TestFitTransformDegenerateInput(t *testing.T) {
	if tr := FitTransform(0, 480, 1280, 720); tr != NewViewTransform() {
		t.Errorf("zero-width image: %+v, want identity", tr)
	}
	if tr := FitTransform(640, 480, 1280, 0); tr != NewViewTransform() {
		t.Errorf("zero-height view: %+v, want identity", tr)
	}
}

func TestFitTransformClampsScale(t *testing.T) {
	// A tiny image in a huge view would need more than the zoom ceiling.
	tr := FitTransform(10, 10, 5000, 5000)
	if tr.Scale != MaxScale {
		t.Errorf("scale = %v, want MaxScale", tr.Scale)
	}
}

func TestZoomAtKeepsAnchorFixed(t *testing.T) {
	tr := ViewTransform{Scale: 1, OffsetX: 50, OffsetY: 20}
	cursor := Point2D{X: 400, Y: 300}
	before := tr.ToImage(cursor)

	zoomed := tr.ZoomAt(cursor, ZoomStep)
	if zoomed.Scale != 1.25 {
		t.Fatalf("scale = %v, want 1.25", zoomed.Scale)
	}
	after := zoomed.ToImage(cursor)
	if !approxPoint(after, before, 1e-9) {
		t.Errorf("anchor moved: %+v -> %+v", before, after)
	}

	out := zoomed.ZoomAt(cursor, 1/ZoomStep)
	if math.Abs(out.Scale-tr.Scale) > 1e-12 {
		t.Errorf("zoom out scale = %v, want %v", out.Scale, tr.Scale)
	}
}

func TestZoomAtClampsScale(t *testing.T) {
	tr := ViewTransform{Scale: MaxScale, OffsetX: 0, OffsetY: 0}
	if got := tr.ZoomAt(Point2D{}, ZoomStep).Scale; got != MaxScale {
		t.Errorf("scale above ceiling: %v", got)
	}
	tr.Scale = MinScale
	if got := tr.ZoomAt(Point2D{}, 1/ZoomStep).Scale; got != MinScale {
		t.Errorf("scale below floor: %v", got)
	}
}

func TestPan(t *testing.T) {
	tr := ViewTransform{Scale: 2, OffsetX: 10, OffsetY: 20}
	got := tr.Pan(-30, 15)
	if got.OffsetX != -20 || got.OffsetY != 35 || got.Scale != 2 {
		t.Errorf("Pan = %+v", got)
	}
}

func TestHandleTolerance(t *testing.T) {
	tr := ViewTransform{Scale: 4}
	if got := tr.HandleTolerance(6); got != 1.5 {
		t.Errorf("tolerance at 4x = %v, want 1.5", got)
	}
	tr.Scale = 0.5
	if got := tr.HandleTolerance(6); got != 12 {
		t.Errorf("tolerance at 0.5x = %v, want 12", got)
	}
}

func TestBoxToScreen(t *testing.T) {
	tr := ViewTransform{Scale: 2, OffsetX: 100, OffsetY: 50}
	got := tr.BoxToScreen(NewBox(10, 20, 30, 40))
	if want := NewBox(120, 90, 160, 130); got != want {
		t.Errorf("BoxToScreen = %+v, want %+v", got, want)
	}
}
