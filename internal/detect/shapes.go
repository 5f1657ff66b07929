package detect

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"box-labeler/pkg/geometry"
)

// Circles detects circular objects with a Hough gradient transform.
type Circles struct {
	// DP is the inverse accumulator resolution ratio.
	DP float64
	// MinDist is the minimum distance between detected centers, pixels.
	MinDist float64
	// CannyThreshold is the upper Canny threshold fed to the gradient.
	CannyThreshold float64
	// AccumulatorThreshold gates circle candidates; lower finds more.
	AccumulatorThreshold float64
	MinRadius            int
	MaxRadius            int
	Class                int
}

// DefaultCircles mirrors the slider defaults of the detection panel.
func DefaultCircles() *Circles {
	return &Circles{
		DP:                   1.2,
		MinDist:              20,
		CannyThreshold:       100,
		AccumulatorThreshold: 30,
		MinRadius:            5,
		MaxRadius:            100,
	}
}

func (d *Circles) Name() string {
	return "circles"
}

func (d *Circles) Propose(ctx context.Context, img image.Image) ([]Proposal, error) {
	mat, err := imageToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: 9, Y: 9}, 2, 2, gocv.BorderDefault)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	circles := gocv.NewMat()
	defer circles.Close()
	gocv.HoughCirclesWithParams(blurred, &circles, gocv.HoughGradient,
		d.DP, d.MinDist, d.CannyThreshold, d.AccumulatorThreshold,
		d.MinRadius, d.MaxRadius)

	if circles.Empty() || circles.Cols() == 0 {
		return nil, nil
	}

	out := make([]Proposal, 0, circles.Cols())
	for i := 0; i < circles.Cols(); i++ {
		cx := float64(circles.GetFloatAt(0, i*3))
		cy := float64(circles.GetFloatAt(0, i*3+1))
		r := float64(circles.GetFloatAt(0, i*3+2))
		out = append(out, Proposal{
			Class: d.Class,
			Rect:  geometry.NewBox(cx-r, cy-r, cx+r, cy+r),
		})
	}
	return out, nil
}

// Polygons detects contours that approximate to a fixed vertex count.
// Vertices of 3 finds triangles, 4 finds quadrilaterals.
type Polygons struct {
	Vertices int
	// CannyLow and CannyHigh are the edge-detection thresholds.
	CannyLow  float32
	CannyHigh float32
	// EpsilonFrac is the contour-approximation tolerance as a fraction
	// of the contour perimeter.
	EpsilonFrac float64
	// MinArea discards small contours, pixels.
	MinArea float64
	// ConvexOnly rejects concave approximations.
	ConvexOnly bool
	Class      int
}

// DefaultPolygons returns an N-gon detector with the panel defaults.
func DefaultPolygons(vertices int) *Polygons {
	return &Polygons{
		Vertices:    vertices,
		CannyLow:    50,
		CannyHigh:   150,
		EpsilonFrac: 0.04,
		MinArea:     100,
		ConvexOnly:  true,
	}
}

// DefaultRectangles is the quad detector used by the "Rectangles" action.
func DefaultRectangles() *Polygons {
	return DefaultPolygons(4)
}

func (d *Polygons) Name() string {
	if d.Vertices == 3 {
		return "triangles"
	}
	if d.Vertices == 4 {
		return "rectangles"
	}
	return fmt.Sprintf("%d-gons", d.Vertices)
}

func (d *Polygons) Propose(ctx context.Context, img image.Image) ([]Proposal, error) {
	if d.Vertices < 3 {
		return nil, fmt.Errorf("polygon detector needs at least 3 vertices, got %d", d.Vertices)
	}
	mat, err := imageToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: 5, Y: 5}, 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, d.CannyLow, d.CannyHigh)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var out []Proposal
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if gocv.ContourArea(contour) < d.MinArea {
			continue
		}

		peri := gocv.ArcLength(contour, true)
		approx := gocv.ApproxPolyDP(contour, d.EpsilonFrac*peri, true)
		if approx.Size() != d.Vertices {
			approx.Close()
			continue
		}
		if d.ConvexOnly && !gocv.IsContourConvex(approx) {
			approx.Close()
			continue
		}

		rect := gocv.BoundingRect(approx)
		approx.Close()
		out = append(out, Proposal{
			Class: d.Class,
			Rect: geometry.NewBox(float64(rect.Min.X), float64(rect.Min.Y),
				float64(rect.Max.X), float64(rect.Max.Y)),
		})
	}
	return out, nil
}

// imageToMat converts a Go image to an 8-bit BGR Mat.
func imageToMat(srcImg image.Image) (gocv.Mat, error) {
	bounds := srcImg.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return gocv.Mat{}, fmt.Errorf("empty image")
	}

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := srcImg.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// 16-bit to 8-bit, BGR order for OpenCV
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return mat, nil
}
