package annotate

import (
	"box-labeler/pkg/geometry"
)

// Mode selects which pointer-event handler is live. Exactly one mode is
// active at a time; switching modes mid-drag cancels the gesture.
type Mode int

const (
	ModeNone Mode = iota
	ModeDraw
	ModeMoveResize
	ModeDelete
	ModeValidate

	numModes
)

func (m Mode) String() string {
	switch m {
	case ModeDraw:
		return "Draw"
	case ModeMoveResize:
		return "Move/Resize"
	case ModeDelete:
		return "Delete"
	case ModeValidate:
		return "Validate"
	default:
		return "None"
	}
}

// DefaultHandlePx is the handle hit radius in screen pixels.
const DefaultHandlePx = 6

type dragKind int

const (
	dragNone dragKind = iota
	dragDraw
	dragMove
	dragResize
)

type dragState struct {
	kind   dragKind
	anchor geometry.Point2D
	cat    Category
	id     int
	handle geometry.Handle
	orig   geometry.Box
	live   geometry.Box
}

// modeHandler is one row of the fixed dispatch table: the press/drag/
// release behavior of a single mode. All modes are known in advance, so
// dispatch is an array index, not an open-ended lookup.
type modeHandler struct {
	press   func(*Editor, geometry.Point2D)
	drag    func(*Editor, geometry.Point2D)
	release func(*Editor, geometry.Point2D)
}

var modeHandlers = [numModes]modeHandler{
	ModeNone: {},
	ModeDraw: {
		press:   (*Editor).pressDraw,
		drag:    (*Editor).dragDraw,
		release: (*Editor).releaseDraw,
	},
	ModeMoveResize: {
		press:   (*Editor).pressMoveResize,
		drag:    (*Editor).dragMoveResize,
		release: (*Editor).releaseMoveResize,
	},
	ModeDelete: {
		press: (*Editor).pressDelete,
	},
	ModeValidate: {
		press: (*Editor).pressValidate,
	},
}

// Editor is the annotation state machine. It consumes pointer events in
// image coordinates, hit-tests against the current box set, and mutates
// it through the store operations. Hit misses are normal user behavior
// and stay silent; store errors indicate desynchronized state and are
// routed to OnError.
type Editor struct {
	set  *BoxSet
	mode Mode
	view geometry.ViewTransform

	editTarget Category // category edited by Draw and Move/Resize
	drawClass  int
	handlePx   float64

	drag dragState

	// OnChange fires after any mutation or live-box update so the owner
	// can re-render. OnError receives store invariant violations.
	OnChange func()
	OnError  func(error)
}

// NewEditor creates an editor with no box set and the default handle size.
func NewEditor() *Editor {
	return &Editor{
		editTarget: GroundTruth,
		handlePx:   DefaultHandlePx,
		view:       geometry.NewViewTransform(),
	}
}

// SetBoxSet points the editor at a new image's boxes, cancelling any
// gesture in progress.
func (e *Editor) SetBoxSet(s *BoxSet) {
	e.CancelDrag()
	e.set = s
}

// BoxSet returns the set currently being edited.
func (e *Editor) BoxSet() *BoxSet {
	return e.set
}

// SetMode switches the active mode. An in-progress drag is cancelled
// without committing.
func (e *Editor) SetMode(m Mode) {
	if m < ModeNone || m >= numModes {
		m = ModeNone
	}
	if e.drag.kind != dragNone {
		e.CancelDrag()
	}
	e.mode = m
}

// Mode returns the active mode.
func (e *Editor) Mode() Mode {
	return e.mode
}

// SetView updates the view transform used to derive the image-space
// handle tolerance from the fixed screen-pixel handle radius.
func (e *Editor) SetView(v geometry.ViewTransform) {
	e.view = v
}

// SetEditTarget selects the category that Draw commits to and that
// Move/Resize edits.
func (e *Editor) SetEditTarget(c Category) {
	if c.Valid() {
		e.editTarget = c
	}
}

// EditTarget returns the active-edit category.
func (e *Editor) EditTarget() Category {
	return e.editTarget
}

// SetDrawClass sets the class id assigned to newly drawn boxes.
func (e *Editor) SetDrawClass(class int) {
	e.drawClass = class
}

// DrawClass returns the class id assigned to newly drawn boxes.
func (e *Editor) DrawClass() int {
	return e.drawClass
}

// Press starts an interaction unit at an image-space point.
func (e *Editor) Press(p geometry.Point2D) {
	if e.set == nil {
		return
	}
	if h := modeHandlers[e.mode].press; h != nil {
		h(e, e.clampPoint(p))
	}
}

// Drag continues the interaction unit.
func (e *Editor) Drag(p geometry.Point2D) {
	if e.set == nil || e.drag.kind == dragNone {
		return
	}
	if h := modeHandlers[e.mode].drag; h != nil {
		h(e, e.clampPoint(p))
	}
}

// Release ends the interaction unit.
func (e *Editor) Release(p geometry.Point2D) {
	if e.set == nil || e.drag.kind == dragNone {
		return
	}
	if h := modeHandlers[e.mode].release; h != nil {
		h(e, e.clampPoint(p))
	}
	e.drag = dragState{}
	e.changed()
}

// CancelDrag abandons the gesture in progress without committing.
func (e *Editor) CancelDrag() {
	if e.drag.kind == dragNone {
		return
	}
	e.drag = dragState{}
	e.changed()
}

// Dragging reports whether a gesture is in progress.
func (e *Editor) Dragging() bool {
	return e.drag.kind != dragNone
}

// LiveBox returns the in-progress rectangle (rubber band or move/resize
// preview) for rendering, if any.
func (e *Editor) LiveBox() (geometry.Box, bool) {
	if e.drag.kind == dragNone {
		return geometry.Box{}, false
	}
	return e.drag.live, true
}

// ActiveBox identifies the box being moved or resized so its committed
// geometry can be suppressed while the preview is drawn.
func (e *Editor) ActiveBox() (Category, int, bool) {
	if e.drag.kind != dragMove && e.drag.kind != dragResize {
		return 0, 0, false
	}
	return e.drag.cat, e.drag.id, true
}

// Draw mode: anchor at press, live rectangle while dragging, commit at
// release unless the result rounds to zero area.

func (e *Editor) pressDraw(p geometry.Point2D) {
	e.drag = dragState{kind: dragDraw, anchor: p, live: geometry.NewBox(p.X, p.Y, p.X, p.Y)}
	e.changed()
}

func (e *Editor) dragDraw(p geometry.Point2D) {
	e.drag.live = geometry.NewBox(e.drag.anchor.X, e.drag.anchor.Y, p.X, p.Y)
	e.changed()
}

func (e *Editor) releaseDraw(p geometry.Point2D) {
	rect := geometry.NewBox(e.drag.anchor.X, e.drag.anchor.Y, p.X, p.Y)
	if roundsToZero(rect.Width()) || roundsToZero(rect.Height()) {
		return // accidental click, nothing to commit
	}
	_, err := e.set.Add(e.editTarget, Box{Class: e.drawClass, Rect: rect})
	if err != nil {
		e.fail(err)
	}
}

// Move/Resize mode: hit-test the editable category at press (last-added
// wins ties), translate or resize a preview during the drag, and commit
// one store update at release.

func (e *Editor) pressMoveResize(p geometry.Point2D) {
	id, hit, ok := e.hitTopmost(p, e.editTarget)
	if !ok {
		return // clicked empty space
	}
	b, _ := e.set.Get(e.editTarget, id)
	d := dragState{anchor: p, cat: e.editTarget, id: id, orig: b.Rect, live: b.Rect}
	if hit.Region == geometry.RegionInside {
		d.kind = dragMove
	} else {
		d.kind = dragResize
		d.handle = hit.Handle
	}
	e.drag = d
	e.changed()
}

func (e *Editor) dragMoveResize(p geometry.Point2D) {
	delta := p.Sub(e.drag.anchor)
	switch e.drag.kind {
	case dragMove:
		moved := e.drag.orig.Translate(delta)
		e.drag.live = geometry.ClampTranslate(moved, e.set.Width, e.set.Height)
	case dragResize:
		resized := geometry.Resize(e.drag.orig, e.drag.handle, delta)
		e.drag.live = geometry.ClampToImage(resized, e.set.Width, e.set.Height)
	}
	e.changed()
}

func (e *Editor) releaseMoveResize(p geometry.Point2D) {
	e.dragMoveResize(p)
	// A handle dragged onto its opposite edge collapses the box; discard
	// the gesture and keep the committed geometry, like a zero-area draw.
	if e.drag.live.Empty() {
		return
	}
	if err := e.set.Update(e.drag.cat, e.drag.id, e.drag.live); err != nil {
		e.fail(err)
	}
}

// Delete mode: single-click removal, no drag phase, no confirmation.

func (e *Editor) pressDelete(p geometry.Point2D) {
	// Topmost across all categories, in reverse render order.
	for _, cat := range []Category{Extra, Predicted, GroundTruth} {
		id, hit, ok := e.hitTopmost(p, cat)
		if !ok || !hit.OnBox() {
			continue
		}
		if err := e.set.Remove(cat, id); err != nil {
			e.fail(err)
		}
		e.changed()
		return
	}
}

// Validate mode: promote a predicted or extra box into ground truth.

func (e *Editor) pressValidate(p geometry.Point2D) {
	for _, cat := range []Category{Predicted, Extra} {
		id, hit, ok := e.hitTopmost(p, cat)
		if !ok || !hit.OnBox() {
			continue
		}
		if _, err := e.set.Move(id, cat, GroundTruth); err != nil {
			e.fail(err)
		}
		e.changed()
		return
	}
}

// hitTopmost hit-tests a point against one category, most recently added
// box first, and returns the first hit.
func (e *Editor) hitTopmost(p geometry.Point2D, cat Category) (int, geometry.Hit, bool) {
	tol := e.view.HandleTolerance(e.handlePx)
	boxes := e.set.Boxes(cat)
	for i := len(boxes) - 1; i >= 0; i-- {
		hit := geometry.HitTest(p, boxes[i].Rect, tol)
		if hit.OnBox() {
			return boxes[i].ID, hit, true
		}
	}
	return 0, geometry.Hit{}, false
}

func (e *Editor) clampPoint(p geometry.Point2D) geometry.Point2D {
	if p.X < 0 {
		p.X = 0
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if p.X > e.set.Width {
		p.X = e.set.Width
	}
	if p.Y > e.set.Height {
		p.Y = e.set.Height
	}
	return p
}

func (e *Editor) changed() {
	if e.OnChange != nil {
		e.OnChange()
	}
}

func (e *Editor) fail(err error) {
	if e.OnError != nil {
		e.OnError(err)
	}
}
