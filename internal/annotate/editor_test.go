package annotate

import (
	"testing"

	"box-labeler/pkg/geometry"
)

func newTestEditor() (*Editor, *BoxSet) {
	s := NewBoxSet(640, 480)
	e := NewEditor()
	e.SetBoxSet(s)
	return e, s
}

func pt(x, y float64) geometry.Point2D {
	return geometry.NewPoint2D(x, y)
}

func TestEditorDrawCommitsOnRelease(t *testing.T) {
	e, s := newTestEditor()
	e.SetMode(ModeDraw)
	e.SetDrawClass(4)

	e.Press(pt(10, 20))
	e.Drag(pt(50, 30))
	if n := s.Count(GroundTruth); n != 0 {
		t.Fatalf("box committed before release (%d boxes)", n)
	}
	live, ok := e.LiveBox()
	if !ok {
		t.Fatalf("no live rubber band during draw")
	}
	if want := geometry.NewBox(10, 20, 50, 30); live != want {
		t.Errorf("live = %+v, want %+v", live, want)
	}
	e.Drag(pt(110, 80))
	e.Release(pt(110, 80))

	boxes := s.Boxes(GroundTruth)
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1", len(boxes))
	}
	if want := geometry.NewBox(10, 20, 110, 80); boxes[0].Rect != want {
		t.Errorf("rect = %+v, want %+v", boxes[0].Rect, want)
	}
	if boxes[0].Class != 4 {
		t.Errorf("class = %d, want 4", boxes[0].Class)
	}
	if _, ok := e.LiveBox(); ok {
		t.Errorf("live box survived release")
	}
}

func TestEditorDrawBackwardDragNormalizes(t *testing.T) {
	e, s := newTestEditor()
	e.SetMode(ModeDraw)

	e.Press(pt(100, 90))
	e.Release(pt(40, 30))

	boxes := s.Boxes(GroundTruth)
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1", len(boxes))
	}
	if want := geometry.NewBox(40, 30, 100, 90); boxes[0].Rect != want {
		t.Errorf("rect = %+v, want %+v", boxes[0].Rect, want)
	}
}

func TestEditorDrawDiscardsClick(t *testing.T) {
	e, s := newTestEditor()
	e.SetMode(ModeDraw)

	e.Press(pt(50, 50))
	e.Release(pt(50.2, 120)) // width rounds to zero

	if n := s.Count(GroundTruth); n != 0 {
		t.Errorf("degenerate draw committed %d boxes", n)
	}
}

func TestEditorDrawClampsToImage(t *testing.T) {
	e, s := newTestEditor()
	e.SetMode(ModeDraw)

	e.Press(pt(600, 440))
	e.Drag(pt(900, 700)) // far outside, clamped per event
	e.Release(pt(900, 700))

	boxes := s.Boxes(GroundTruth)
	if len(boxes) != 1 {
		t.Fatalf("got %d boxes, want 1", len(boxes))
	}
	if want := geometry.NewBox(600, 440, 640, 480); boxes[0].Rect != want {
		t.Errorf("rect = %+v, want %+v", boxes[0].Rect, want)
	}
}

func TestEditorDrawTargetsEditCategory(t *testing.T) {
	e, s := newTestEditor()
	e.SetMode(ModeDraw)
	e.SetEditTarget(Extra)

	e.Press(pt(0, 0))
	e.Release(pt(30, 30))

	if s.Count(Extra) != 1 || s.Count(GroundTruth) != 0 {
		t.Errorf("draw went to wrong category: extra=%d gt=%d", s.Count(Extra), s.Count(GroundTruth))
	}
}

func TestEditorMoveCommitsOnlyOnRelease(t *testing.T) {
	e, s := newTestEditor()
	id, _ := s.Add(GroundTruth, Box{Rect: geometry.NewBox(100, 100, 200, 200)})
	e.SetMode(ModeMoveResize)

	e.Press(pt(150, 150)) // interior
	e.Drag(pt(170, 160))

	b, _ := s.Get(GroundTruth, id)
	if want := geometry.NewBox(100, 100, 200, 200); b.Rect != want {
		t.Fatalf("store mutated mid-drag: %+v", b.Rect)
	}
	live, ok := e.LiveBox()
	if !ok {
		t.Fatalf("no move preview")
	}
	if want := geometry.NewBox(120, 110, 220, 210); live != want {
		t.Errorf("preview = %+v, want %+v", live, want)
	}

	e.Release(pt(170, 160))
	b, _ = s.Get(GroundTruth, id)
	if want := geometry.NewBox(120, 110, 220, 210); b.Rect != want {
		t.Errorf("rect after release = %+v, want %+v", b.Rect, want)
	}
}

func TestEditorMovePreservesSizeAtBorder(t *testing.T) {
	e, s := newTestEditor()
	id, _ := s.Add(GroundTruth, Box{Rect: geometry.NewBox(10, 10, 110, 110)})
	e.SetMode(ModeMoveResize)

	e.Press(pt(60, 60))
	e.Release(pt(0, 0)) // tries to push the box past the top-left corner

	b, _ := s.Get(GroundTruth, id)
	if want := geometry.NewBox(0, 0, 100, 100); b.Rect != want {
		t.Errorf("rect = %+v, want %+v (size must survive the clamp)", b.Rect, want)
	}
}

func TestEditorResizeCornerFlip(t *testing.T) {
	e, s := newTestEditor()
	id, _ := s.Add(GroundTruth, Box{Rect: geometry.NewBox(10, 10, 50, 50)})
	e.SetMode(ModeMoveResize)

	e.Press(pt(10, 10)) // top-left handle
	e.Release(pt(60, 60))

	b, _ := s.Get(GroundTruth, id)
	if want := geometry.NewBox(50, 50, 60, 60); b.Rect != want {
		t.Errorf("rect = %+v, want %+v (drag past the far corner flips)", b.Rect, want)
	}
}

func TestEditorResizeEdgeMovesOneSide(t *testing.T) {
	e, s := newTestEditor()
	id, _ := s.Add(GroundTruth, Box{Rect: geometry.NewBox(100, 100, 200, 200)})
	e.SetMode(ModeMoveResize)

	e.Press(pt(200, 150)) // right edge, between corner handles
	e.Release(pt(250, 170))

	b, _ := s.Get(GroundTruth, id)
	if want := geometry.NewBox(100, 100, 250, 200); b.Rect != want {
		t.Errorf("rect = %+v, want %+v (only the dragged edge moves)", b.Rect, want)
	}
}

func TestEditorResizeToZeroKeepsOriginal(t *testing.T) {
	e, s := newTestEditor()
	id, _ := s.Add(GroundTruth, Box{Rect: geometry.NewBox(100, 100, 200, 200)})
	e.SetMode(ModeMoveResize)

	var failed error
	e.OnError = func(err error) { failed = err }

	// Drag the right edge exactly onto the left edge.
	e.Press(pt(200, 150))
	e.Drag(pt(100, 150))
	e.Release(pt(100, 150))

	if failed != nil {
		t.Fatalf("collapsing resize surfaced an error: %v", failed)
	}
	b, _ := s.Get(GroundTruth, id)
	if want := geometry.NewBox(100, 100, 200, 200); b.Rect != want {
		t.Errorf("rect = %+v, want original %+v (degenerate resize discarded)", b.Rect, want)
	}
	if e.Dragging() {
		t.Errorf("drag still active after release")
	}
}

func TestEditorMoveResizeTopmostWins(t *testing.T) {
	e, s := newTestEditor()
	s.Add(GroundTruth, Box{Rect: geometry.NewBox(100, 100, 300, 300)})
	top, _ := s.Add(GroundTruth, Box{Rect: geometry.NewBox(150, 150, 250, 250)})
	e.SetMode(ModeMoveResize)

	e.Press(pt(200, 200)) // inside both; the later box is on top
	cat, id, ok := e.ActiveBox()
	if !ok {
		t.Fatalf("no active box")
	}
	if cat != GroundTruth || id != top {
		t.Errorf("active = %s #%d, want GT #%d", cat, id, top)
	}
	e.Release(pt(200, 200))
}

func TestEditorMoveResizeIgnoresOtherCategories(t *testing.T) {
	e, s := newTestEditor()
	s.Add(Predicted, Box{Rect: geometry.NewBox(100, 100, 200, 200)})
	e.SetMode(ModeMoveResize)

	e.Press(pt(150, 150))
	if e.Dragging() {
		t.Errorf("move started on a box outside the edit category")
	}
}

func TestEditorMissIsSilent(t *testing.T) {
	e, s := newTestEditor()
	s.Add(GroundTruth, Box{Rect: geometry.NewBox(100, 100, 200, 200)})
	var failed error
	e.OnError = func(err error) { failed = err }
	e.SetMode(ModeMoveResize)

	e.Press(pt(400, 400))
	e.Release(pt(400, 400))

	if failed != nil {
		t.Errorf("miss raised error: %v", failed)
	}
	if got, _ := s.Get(GroundTruth, 0); got.Rect != geometry.NewBox(100, 100, 200, 200) {
		t.Errorf("miss changed the set: %+v", got.Rect)
	}
}

func TestEditorDeleteTopmostAcrossCategories(t *testing.T) {
	e, s := newTestEditor()
	g, _ := s.Add(GroundTruth, Box{Rect: geometry.NewBox(100, 100, 200, 200)})
	p, _ := s.Add(Predicted, Box{Rect: geometry.NewBox(100, 100, 200, 200)})
	x, _ := s.Add(Extra, Box{Rect: geometry.NewBox(100, 100, 200, 200)})
	e.SetMode(ModeDelete)

	e.Press(pt(150, 150))
	e.Release(pt(150, 150))
	if _, ok := s.Get(Extra, x); ok {
		t.Errorf("extra box should go first")
	}

	e.Press(pt(150, 150))
	e.Release(pt(150, 150))
	if _, ok := s.Get(Predicted, p); ok {
		t.Errorf("predicted box should go second")
	}

	e.Press(pt(150, 150))
	e.Release(pt(150, 150))
	if _, ok := s.Get(GroundTruth, g); ok {
		t.Errorf("ground-truth box should go last")
	}
}

func TestEditorValidatePromotes(t *testing.T) {
	e, s := newTestEditor()
	pid, _ := s.Add(Predicted, Box{Class: 5, Rect: geometry.NewBox(50, 50, 150, 150), Confidence: 0.9, HasConf: true})
	e.SetMode(ModeValidate)

	e.Press(pt(100, 100))
	e.Release(pt(100, 100))

	if _, ok := s.Get(Predicted, pid); ok {
		t.Errorf("prediction still present after validation")
	}
	gt := s.Boxes(GroundTruth)
	if len(gt) != 1 {
		t.Fatalf("got %d ground-truth boxes, want 1", len(gt))
	}
	if gt[0].Class != 5 || gt[0].HasConf {
		t.Errorf("promoted box = %+v", gt[0])
	}
}

func TestEditorValidateIgnoresGroundTruth(t *testing.T) {
	e, s := newTestEditor()
	s.Add(GroundTruth, Box{Rect: geometry.NewBox(50, 50, 150, 150)})
	e.SetMode(ModeValidate)

	e.Press(pt(100, 100))
	e.Release(pt(100, 100))

	if n := s.Count(GroundTruth); n != 1 {
		t.Errorf("validate touched ground truth: %d boxes", n)
	}
}

func TestEditorModeSwitchCancelsDrag(t *testing.T) {
	e, s := newTestEditor()
	id, _ := s.Add(GroundTruth, Box{Rect: geometry.NewBox(100, 100, 200, 200)})
	e.SetMode(ModeMoveResize)

	e.Press(pt(150, 150))
	e.Drag(pt(300, 300))
	e.SetMode(ModeDraw)

	b, _ := s.Get(GroundTruth, id)
	if want := geometry.NewBox(100, 100, 200, 200); b.Rect != want {
		t.Errorf("cancelled drag committed: %+v", b.Rect)
	}
	if e.Dragging() {
		t.Errorf("drag survived mode switch")
	}
	// The release belonging to the abandoned gesture must be a no-op.
	e.Release(pt(300, 300))
	if n := s.Count(GroundTruth); n != 1 {
		t.Errorf("stray release created a box (%d total)", n)
	}
}

func TestEditorNoneModeIgnoresEvents(t *testing.T) {
	e, s := newTestEditor()
	e.Press(pt(10, 10))
	e.Drag(pt(50, 50))
	e.Release(pt(50, 50))
	if n := s.Count(GroundTruth); n != 0 {
		t.Errorf("idle mode created %d boxes", n)
	}
}

func TestEditorHandleToleranceScalesWithZoom(t *testing.T) {
	e, s := newTestEditor()
	s.Add(GroundTruth, Box{Rect: geometry.NewBox(100, 100, 200, 200)})
	e.SetMode(ModeMoveResize)

	// At 4x zoom the 6-pixel handle covers only 1.5 image units, so a
	// press 4 units off the corner is a body hit, not a handle grab.
	v := geometry.NewViewTransform()
	v.Scale = 4
	e.SetView(v)

	e.Press(pt(104, 104))
	if _, _, ok := e.ActiveBox(); !ok {
		t.Fatalf("press inside box not recognized")
	}
	e.Drag(pt(114, 114))
	live, _ := e.LiveBox()
	if want := geometry.NewBox(110, 110, 210, 210); live != want {
		t.Errorf("expected whole-box move, got %+v", live)
	}
	e.CancelDrag()

	// Zoomed out to 0.5x the same press lands within handle range.
	v.Scale = 0.5
	e.SetView(v)
	e.Press(pt(104, 104))
	e.Drag(pt(114, 114))
	live, _ = e.LiveBox()
	if want := geometry.NewBox(110, 110, 200, 200); live != want {
		t.Errorf("expected corner resize, got %+v", live)
	}
	e.Release(pt(114, 114))
}

func TestEditorOnChangeFires(t *testing.T) {
	e, _ := newTestEditor()
	e.SetMode(ModeDraw)
	calls := 0
	e.OnChange = func() { calls++ }

	e.Press(pt(10, 10))
	e.Drag(pt(50, 50))
	e.Release(pt(50, 50))

	if calls < 3 {
		t.Errorf("OnChange fired %d times over press/drag/release, want at least 3", calls)
	}
}
