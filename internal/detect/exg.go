package detect

import (
	"context"
	"image"

	"gonum.org/v1/gonum/stat"

	"box-labeler/pkg/geometry"
)

// ExcessGreen finds vegetation-like regions with the excess-green index
// ExG = G - max(R, B). Pixels above the threshold form a binary mask; a
// 3x3 dilation bridges small gaps before connected regions become boxes.
type ExcessGreen struct {
	// Threshold on the 8-bit ExG value. Zero selects the threshold
	// automatically as mean + one standard deviation of the image's ExG
	// distribution.
	Threshold float64

	// MinArea discards regions with fewer mask pixels.
	MinArea int

	// Class assigned to every proposal.
	Class int
}

func (d *ExcessGreen) Name() string {
	return "excess-green"
}

func (d *ExcessGreen) Propose(ctx context.Context, img image.Image) ([]Proposal, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, nil
	}

	exg := make([]float64, w*h)
	for y := 0; y < h; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			r8, g8, b8 := float64(r>>8), float64(g>>8), float64(b>>8)
			other := r8
			if b8 > other {
				other = b8
			}
			exg[y*w+x] = g8 - other
		}
	}

	threshold := d.Threshold
	if threshold <= 0 {
		mean, std := stat.MeanStdDev(exg, nil)
		threshold = mean + std
		if threshold < 1 {
			threshold = 1
		}
	}

	mask := make([]bool, w*h)
	for i, v := range exg {
		mask[i] = v > threshold
	}
	mask = dilate3x3(mask, w, h)

	minArea := d.MinArea
	if minArea <= 0 {
		minArea = 16
	}

	var out []Proposal
	seen := make([]bool, w*h)
	for i := range mask {
		if !mask[i] || seen[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		box, area := floodRegion(mask, seen, w, h, i)
		if area < minArea {
			continue
		}
		out = append(out, Proposal{Class: d.Class, Rect: box})
	}
	return out, nil
}

func dilate3x3(mask []bool, w, h int) []bool {
	out := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask[y*w+x] {
				continue
			}
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx >= 0 && nx < w && ny >= 0 && ny < h {
						out[ny*w+nx] = true
					}
				}
			}
		}
	}
	return out
}

// floodRegion walks the 4-connected region containing start and returns
// its bounding box and pixel count.
func floodRegion(mask, seen []bool, w, h, start int) (geometry.Box, int) {
	stack := []int{start}
	seen[start] = true
	minX, minY := start%w, start/w
	maxX, maxY := minX, minY
	area := 0

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		area++

		x, y := i%w, i/w
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}

		neighbors := [4]int{i - 1, i + 1, i - w, i + w}
		valid := [4]bool{x > 0, x < w-1, y > 0, y < h-1}
		for k, n := range neighbors {
			if valid[k] && mask[n] && !seen[n] {
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}

	// +1 so a single-pixel region still spans one pixel.
	return geometry.NewBox(float64(minX), float64(minY), float64(maxX+1), float64(maxY+1)), area
}
