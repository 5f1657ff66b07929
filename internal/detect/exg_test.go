package detect

import (
	"context"
	"image"
	"image/color"
	"testing"
)

// greenPatchImage is gray everywhere except one saturated green block.
func greenPatchImage(w, h int, patch image.Rectangle) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 120, G: 120, B: 120, A: 255}
			if image.Pt(x, y).In(patch) {
				c = color.RGBA{R: 30, G: 220, B: 30, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestExcessGreenFindsPatch(t *testing.T) {
	patch := image.Rect(20, 24, 40, 44)
	img := greenPatchImage(100, 100, patch)

	d := &ExcessGreen{MinArea: 16}
	got, err := d.Propose(context.Background(), img)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d proposals, want 1: %+v", len(got), got)
	}

	// Dilation may grow the box by a pixel on each side; it must still
	// cover the patch and stay close to it.
	r := got[0].Rect
	if r.MinX > float64(patch.Min.X) || r.MinY > float64(patch.Min.Y) ||
		r.MaxX < float64(patch.Max.X) || r.MaxY < float64(patch.Max.Y) {
		t.Errorf("box %+v does not cover patch %v", r, patch)
	}
	if r.Width() > float64(patch.Dx()+4) || r.Height() > float64(patch.Dy()+4) {
		t.Errorf("box %+v much larger than patch %v", r, patch)
	}
}

func TestExcessGreenSplitsSeparateRegions(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 100; x++ {
			c := color.RGBA{R: 100, G: 100, B: 100, A: 255}
			if (x >= 10 && x < 25 || x >= 60 && x < 80) && y >= 10 && y < 30 {
				c = color.RGBA{R: 20, G: 200, B: 20, A: 255}
			}
			img.Set(x, y, c)
		}
	}

	d := &ExcessGreen{MinArea: 16}
	got, err := d.Propose(context.Background(), img)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d proposals, want 2: %+v", len(got), got)
	}
	if got[0].Rect.MinX >= got[1].Rect.MinX {
		t.Errorf("regions out of scan order: %+v", got)
	}
}

func TestExcessGreenMinAreaFilter(t *testing.T) {
	// A 2x2 speck dilates to at most 4x4 = 16 pixels.
	img := greenPatchImage(50, 50, image.Rect(10, 10, 12, 12))
	d := &ExcessGreen{MinArea: 40}
	got, err := d.Propose(context.Background(), img)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("speck survived the area filter: %+v", got)
	}
}

func TestExcessGreenFixedThreshold(t *testing.T) {
	img := greenPatchImage(60, 60, image.Rect(5, 5, 25, 25))
	d := &ExcessGreen{Threshold: 50, MinArea: 16}
	got, err := d.Propose(context.Background(), img)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d proposals, want 1", len(got))
	}
}

func TestExcessGreenCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := &ExcessGreen{}
	if _, err := d.Propose(ctx, greenPatchImage(100, 100, image.Rect(0, 0, 10, 10))); err == nil {
		t.Errorf("cancelled context accepted")
	}
}
