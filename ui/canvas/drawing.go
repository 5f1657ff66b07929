package canvas

import (
	"image"
	"image/color"
	"strconv"

	"github.com/disintegration/imaging"

	"box-labeler/internal/annotate"
	"box-labeler/pkg/geometry"
)

// categoryColors indexes annotate.Category.
var categoryColors = [annotate.NumCategories]color.RGBA{
	annotate.GroundTruth: {R: 0, G: 200, B: 60, A: 255},
	annotate.Predicted:   {R: 230, G: 40, B: 40, A: 255},
	annotate.Extra:       {R: 0, G: 170, B: 220, A: 255},
}

var liveColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

const handleSizePx = 6

// digitPatterns contains 3x5 pixel patterns for digits 0-9.
// Each digit is represented as 5 rows of 3 bits.
var digitPatterns = [10][5]uint8{
	{0b111, 0b101, 0b101, 0b101, 0b111}, // 0
	{0b010, 0b110, 0b010, 0b010, 0b111}, // 1
	{0b111, 0b001, 0b111, 0b100, 0b111}, // 2
	{0b111, 0b001, 0b111, 0b001, 0b111}, // 3
	{0b101, 0b101, 0b111, 0b001, 0b001}, // 4
	{0b111, 0b100, 0b111, 0b001, 0b111}, // 5
	{0b111, 0b100, 0b111, 0b101, 0b111}, // 6
	{0b111, 0b001, 0b001, 0b001, 0b001}, // 7
	{0b111, 0b101, 0b111, 0b101, 0b111}, // 8
	{0b111, 0b101, 0b111, 0b001, 0b111}, // 9
}

// draw is the raster drawing function.
func (ac *AnnotationCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))

	// Dark background (set alpha channel)
	for i := 3; i < len(output.Pix); i += 4 {
		output.Pix[i] = 255
	}

	base := ac.scaledImage()
	if base != nil {
		copyImage(output, base)
	}

	set := ac.state.BoxSet()
	if set == nil {
		return output
	}

	activeCat, activeID, hasActive := ac.state.Editor.ActiveBox()
	for _, rb := range ac.state.Visibility.RenderList(set) {
		if hasActive && rb.Category == activeCat && rb.Box.ID == activeID {
			// The committed geometry is hidden while its preview drags.
			continue
		}
		col := categoryColors[rb.Category]
		screen := ac.boxToScreen(rb.Box.Rect)
		ac.fillBox(output, screen, col, rb.Opacity)
		ac.strokeBox(output, screen, col)
		ac.drawClassLabel(output, screen, rb.Box.Class, col)
	}

	if live, ok := ac.state.Editor.LiveBox(); ok {
		screen := ac.boxToScreen(live)
		liveCat := ac.state.Editor.EditTarget()
		if hasActive {
			liveCat = activeCat
		}
		ac.fillBox(output, screen, categoryColors[liveCat], ac.state.Visibility.Opacity(liveCat))
		ac.strokeBox(output, screen, liveColor)
		ac.drawHandles(output, screen)
	}

	return output
}

// scaledImage returns the base image resized to the current zoom,
// recomputing only when the image or zoom changed.
func (ac *AnnotationCanvas) scaledImage() image.Image {
	src := ac.state.Image
	if src == nil {
		return nil
	}
	if ac.scaledBase != nil && ac.scaledFor == src && ac.scaledZoom == ac.zoom {
		return ac.scaledBase
	}

	bounds := src.Bounds()
	w := int(float64(bounds.Dx()) * ac.zoom)
	h := int(float64(bounds.Dy()) * ac.zoom)
	if w < 1 || h < 1 {
		return nil
	}
	if ac.zoom == 1.0 {
		ac.scaledBase = src
	} else {
		ac.scaledBase = imaging.Resize(src, w, h, imaging.NearestNeighbor)
	}
	ac.scaledFor = src
	ac.scaledZoom = ac.zoom
	return ac.scaledBase
}

func copyImage(dst *image.RGBA, src image.Image) {
	b := src.Bounds()
	dstB := dst.Bounds()
	for y := 0; y < b.Dy() && y < dstB.Dy(); y++ {
		for x := 0; x < b.Dx() && x < dstB.Dx(); x++ {
			dst.Set(x, y, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
}

type screenRect struct {
	x1, y1, x2, y2 int
}

func (ac *AnnotationCanvas) boxToScreen(b geometry.Box) screenRect {
	return screenRect{
		x1: int(b.MinX * ac.zoom),
		y1: int(b.MinY * ac.zoom),
		x2: int(b.MaxX * ac.zoom),
		y2: int(b.MaxY * ac.zoom),
	}
}

// fillBox alpha-blends the box interior at the category opacity.
func (ac *AnnotationCanvas) fillBox(output *image.RGBA, r screenRect, col color.RGBA, opacity float64) {
	if opacity <= 0 {
		return
	}
	bounds := output.Bounds()
	x1, y1 := max(r.x1, bounds.Min.X), max(r.y1, bounds.Min.Y)
	x2, y2 := min(r.x2, bounds.Max.X-1), min(r.y2, bounds.Max.Y-1)

	a := opacity
	for y := y1; y <= y2; y++ {
		for x := x1; x <= x2; x++ {
			i := output.PixOffset(x, y)
			output.Pix[i+0] = blend(output.Pix[i+0], col.R, a)
			output.Pix[i+1] = blend(output.Pix[i+1], col.G, a)
			output.Pix[i+2] = blend(output.Pix[i+2], col.B, a)
		}
	}
}

func blend(under, over uint8, a float64) uint8 {
	return uint8(float64(under)*(1-a) + float64(over)*a)
}

// strokeBox draws a 2 pixel thick rectangle outline.
func (ac *AnnotationCanvas) strokeBox(output *image.RGBA, r screenRect, col color.RGBA) {
	bounds := output.Bounds()
	for t := 0; t < 2; t++ {
		for x := r.x1; x <= r.x2; x++ {
			setPx(output, bounds, x, r.y1+t, col)
			setPx(output, bounds, x, r.y2-t, col)
		}
		for y := r.y1; y <= r.y2; y++ {
			setPx(output, bounds, r.x1+t, y, col)
			setPx(output, bounds, r.x2-t, y, col)
		}
	}
}

// drawHandles draws filled squares on the corners and edge midpoints.
func (ac *AnnotationCanvas) drawHandles(output *image.RGBA, r screenRect) {
	bounds := output.Bounds()
	mx := (r.x1 + r.x2) / 2
	my := (r.y1 + r.y2) / 2
	anchors := [8][2]int{
		{r.x1, r.y1}, {mx, r.y1}, {r.x2, r.y1},
		{r.x1, my}, {r.x2, my},
		{r.x1, r.y2}, {mx, r.y2}, {r.x2, r.y2},
	}
	half := handleSizePx / 2
	for _, a := range anchors {
		for dy := -half; dy <= half; dy++ {
			for dx := -half; dx <= half; dx++ {
				setPx(output, bounds, a[0]+dx, a[1]+dy, liveColor)
			}
		}
	}
}

// drawClassLabel draws the class number just inside the top-left corner.
func (ac *AnnotationCanvas) drawClassLabel(output *image.RGBA, r screenRect, class int, col color.RGBA) {
	if class < 0 {
		return
	}
	bounds := output.Bounds()
	digits := strconv.Itoa(class)
	const scale = 2
	x := r.x1 + 4
	y := r.y1 + 4
	for _, ch := range digits {
		pattern := digitPatterns[ch-'0']
		for row := 0; row < 5; row++ {
			for bit := 0; bit < 3; bit++ {
				if pattern[row]&(1<<(2-bit)) == 0 {
					continue
				}
				for sy := 0; sy < scale; sy++ {
					for sx := 0; sx < scale; sx++ {
						setPx(output, bounds, x+bit*scale+sx, y+row*scale+sy, col)
					}
				}
			}
		}
		x += 4 * scale
	}
}

func setPx(output *image.RGBA, bounds image.Rectangle, x, y int, col color.RGBA) {
	if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
		output.SetRGBA(x, y, col)
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
