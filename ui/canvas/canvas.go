// Package canvas provides the annotation canvas: image display with
// pan, zoom, and box editing.
package canvas

import (
	"image"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"box-labeler/internal/app"
	"box-labeler/pkg/geometry"
)

const (
	minZoom  = 0.1
	maxZoom  = 10.0
	zoomStep = 1.25
)

// AnnotationCanvas displays the current image with its box overlays and
// forwards pointer gestures to the session's editor.
type AnnotationCanvas struct {
	widget.BaseWidget

	state *app.State

	// Display state
	raster *fynecanvas.Raster
	zoom   float64

	// Cached scaled base image, invalidated on zoom or image change
	scaledBase image.Image
	scaledFor  image.Image
	scaledZoom float64

	// Container
	scroll  *zoomScroll
	content *annotationContent
	imgSize fyne.Size

	// Fit to window
	fitToWindow    bool
	lastScrollSize fyne.Size

	onZoomChange func(zoom float64)
}

// zoomScroll wraps a scroll container but intercepts wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *AnnotationCanvas
}

func newZoomScroll(content fyne.CanvasObject, canvas *AnnotationCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: canvas}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	// Use wheel for zoom, not scroll
	if ev.Scrolled.DY > 0 {
		zs.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		zs.canvas.ZoomOut()
	}
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

// Offset returns the scroll container's current offset.
func (zs *zoomScroll) Offset() fyne.Position {
	return zs.scroll.Offset
}

// Size returns the scroll container's size.
func (zs *zoomScroll) Size() fyne.Size {
	return zs.scroll.Size()
}

// Refresh refreshes the scroll container.
func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

// Resize sets the size of the scroll container.
func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
}

// annotationContent wraps the raster and translates mouse events into
// editor press/drag/release gestures.
type annotationContent struct {
	widget.BaseWidget
	canvas *AnnotationCanvas
	raster *fynecanvas.Raster

	pressed bool
}

var _ desktop.Mouseable = (*annotationContent)(nil)
var _ fyne.Draggable = (*annotationContent)(nil)

func newAnnotationContent(ac *AnnotationCanvas, raster *fynecanvas.Raster) *annotationContent {
	c := &annotationContent{canvas: ac, raster: raster}
	c.ExtendBaseWidget(c)
	return c
}

func (c *annotationContent) CreateRenderer() fyne.WidgetRenderer {
	return &annotationContentRenderer{content: c}
}

func (c *annotationContent) MinSize() fyne.Size {
	return c.raster.MinSize()
}

// imagePos converts a viewport-relative event position to image space.
func (c *annotationContent) imagePos(pos fyne.Position) geometry.Point2D {
	offset := c.canvas.scroll.Offset()
	return geometry.NewPoint2D(
		float64(pos.X+offset.X)/c.canvas.zoom,
		float64(pos.Y+offset.Y)/c.canvas.zoom,
	)
}

func (c *annotationContent) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	c.pressed = true
	c.canvas.state.Editor.Press(c.imagePos(ev.Position))
	c.canvas.Refresh()
}

func (c *annotationContent) MouseUp(ev *desktop.MouseEvent) {
	if !c.pressed {
		return
	}
	c.pressed = false
	c.canvas.state.Editor.Release(c.imagePos(ev.Position))
	c.canvas.Refresh()
}

func (c *annotationContent) Dragged(ev *fyne.DragEvent) {
	if !c.pressed {
		return
	}
	c.canvas.state.Editor.Drag(c.imagePos(ev.Position))
	c.canvas.Refresh()
}

func (c *annotationContent) DragEnd() {}

func (c *annotationContent) Scrolled(ev *fyne.ScrollEvent) {
	if ev.Scrolled.DY > 0 {
		c.canvas.ZoomIn()
	} else if ev.Scrolled.DY < 0 {
		c.canvas.ZoomOut()
	}
}

type annotationContentRenderer struct {
	content *annotationContent
}

func (r *annotationContentRenderer) Layout(size fyne.Size) {
	r.content.raster.Resize(size)
}

func (r *annotationContentRenderer) MinSize() fyne.Size {
	return r.content.raster.MinSize()
}

func (r *annotationContentRenderer) Refresh() {
	r.content.raster.Refresh()
}

func (r *annotationContentRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.content.raster}
}

func (r *annotationContentRenderer) Destroy() {}

// NewAnnotationCanvas creates a canvas bound to the session state.
func NewAnnotationCanvas(state *app.State) *AnnotationCanvas {
	ac := &AnnotationCanvas{
		state:   state,
		zoom:    1.0,
		imgSize: fyne.NewSize(400, 300),
	}

	ac.raster = fynecanvas.NewRaster(ac.draw)
	ac.raster.ScaleMode = fynecanvas.ImageScalePixels
	ac.raster.SetMinSize(ac.imgSize)

	ac.content = newAnnotationContent(ac, ac.raster)
	ac.scroll = newZoomScroll(ac.content, ac)

	ac.ExtendBaseWidget(ac)
	return ac
}

// Container returns the canvas container for embedding in layouts.
func (ac *AnnotationCanvas) Container() fyne.CanvasObject {
	return ac.scroll
}

// ImageChanged tells the canvas the session image was swapped.
func (ac *AnnotationCanvas) ImageChanged() {
	ac.scaledBase = nil
	ac.scaledFor = nil
	ac.updateContentSize()
	ac.syncEditorView()
}

// SetZoom sets the zoom level.
func (ac *AnnotationCanvas) SetZoom(zoom float64) {
	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}
	ac.zoom = zoom
	ac.updateContentSize()
	ac.syncEditorView()

	if ac.onZoomChange != nil {
		ac.onZoomChange(zoom)
	}
}

// GetZoom returns the current zoom level.
func (ac *AnnotationCanvas) GetZoom() float64 {
	return ac.zoom
}

// ZoomIn increases the zoom level.
func (ac *AnnotationCanvas) ZoomIn() {
	ac.SetZoom(ac.zoom * zoomStep)
}

// ZoomOut decreases the zoom level.
func (ac *AnnotationCanvas) ZoomOut() {
	ac.SetZoom(ac.zoom / zoomStep)
}

// FitToWindow adjusts zoom to fit the image in the visible area.
func (ac *AnnotationCanvas) FitToWindow() {
	bounds := ac.imageBounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return
	}
	viewSize := ac.scroll.Size()
	if viewSize.Width <= 0 || viewSize.Height <= 0 {
		return
	}

	zoomX := float64(viewSize.Width) / float64(bounds.Dx())
	zoomY := float64(viewSize.Height) / float64(bounds.Dy())
	zoom := zoomX
	if zoomY < zoomX {
		zoom = zoomY
	}
	ac.SetZoom(zoom * 0.95) // Leave a small margin
}

// SetFitToWindow enables or disables auto-fit on resize.
func (ac *AnnotationCanvas) SetFitToWindow(fit bool) {
	ac.fitToWindow = fit
	if fit {
		ac.FitToWindow()
	}
}

// GetFitToWindow returns the current fit-to-window state.
func (ac *AnnotationCanvas) GetFitToWindow() bool {
	return ac.fitToWindow
}

// OnZoomChange sets a callback for zoom changes.
func (ac *AnnotationCanvas) OnZoomChange(callback func(zoom float64)) {
	ac.onZoomChange = callback
}

// Pan shifts the scroll viewport by a pixel delta.
func (ac *AnnotationCanvas) Pan(dx, dy float32) {
	off := ac.scroll.scroll.Offset
	ac.scroll.scroll.Offset = fyne.NewPos(off.X+dx, off.Y+dy)
	ac.scroll.Refresh()
}

// Refresh refreshes the canvas display.
func (ac *AnnotationCanvas) Refresh() {
	ac.raster.Refresh()
}

// syncEditorView keeps the editor's handle tolerance in step with zoom.
func (ac *AnnotationCanvas) syncEditorView() {
	v := geometry.NewViewTransform()
	v.Scale = ac.zoom
	ac.state.Editor.SetView(v)
}

func (ac *AnnotationCanvas) imageBounds() image.Rectangle {
	if ac.state.Image == nil {
		return image.Rectangle{}
	}
	return ac.state.Image.Bounds()
}

// updateContentSize updates the content size based on image and zoom.
func (ac *AnnotationCanvas) updateContentSize() {
	bounds := ac.imageBounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		ac.imgSize = fyne.NewSize(400, 300)
	} else {
		width := float32(float64(bounds.Dx()) * ac.zoom)
		height := float32(float64(bounds.Dy()) * ac.zoom)
		ac.imgSize = fyne.NewSize(width, height)
	}

	ac.raster.SetMinSize(ac.imgSize)
	ac.raster.Resize(ac.imgSize)
	if ac.content != nil {
		ac.content.Resize(ac.imgSize)
		ac.content.Refresh()
	}
	ac.raster.Refresh()
	if ac.scroll != nil {
		ac.scroll.Refresh()
	}
}
