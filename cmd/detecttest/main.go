// Command detecttest runs a box proposer on an image and prints the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
	"time"

	"box-labeler/internal/dataset"
	"box-labeler/internal/detect"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

func main() {
	imagePath := flag.String("image", "", "Path to image (PNG, JPEG, BMP, or TIFF)")
	detector := flag.String("detector", "exg", "Detector: exg, circles, rectangles, triangles, vision")
	class := flag.Int("class", 0, "Class index assigned to proposals")
	threshold := flag.Float64("threshold", 0, "Excess-green threshold (0 = auto)")
	minArea := flag.Int("min-area", 16, "Minimum region area in pixels")
	host := flag.String("host", "http://localhost:11434", "Ollama host (vision detector)")
	model := flag.String("model", "llava", "Ollama model (vision detector)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Detection timeout")
	yolo := flag.Bool("yolo", false, "Print YOLO label lines instead of a table")
	flag.Parse()

	if *imagePath == "" {
		fmt.Println("Usage: detecttest -image <path> [-detector exg|circles|rectangles|triangles|vision]")
		os.Exit(1)
	}

	f, err := os.Open(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open image: %v\n", err)
		os.Exit(1)
	}
	img, format, err := image.Decode(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to decode image: %v\n", err)
		os.Exit(1)
	}

	bounds := img.Bounds()
	fmt.Printf("Loaded %s image: %dx%d pixels\n", format, bounds.Dx(), bounds.Dy())

	proposer, err := buildProposer(*detector, *class, *threshold, *minArea, *host, *model)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("Running %s...\n", proposer.Name())
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	proposals, err := proposer.Propose(ctx, img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Detection failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Found %d proposals in %v\n\n", len(proposals), time.Since(start).Round(time.Millisecond))

	if *yolo {
		printYOLO(proposals, bounds.Dx(), bounds.Dy())
		return
	}
	printTable(proposals)
}

func buildProposer(name string, class int, threshold float64, minArea int, host, model string) (detect.Proposer, error) {
	switch strings.ToLower(name) {
	case "exg":
		return &detect.ExcessGreen{Threshold: threshold, MinArea: minArea, Class: class}, nil
	case "circles":
		c := detect.DefaultCircles()
		c.Class = class
		return c, nil
	case "rectangles":
		r := detect.DefaultRectangles()
		r.Class = class
		return r, nil
	case "triangles":
		tr := detect.DefaultPolygons(3)
		tr.Class = class
		return tr, nil
	case "vision":
		vm, err := detect.NewVisionModel(host, model)
		if err != nil {
			return nil, err
		}
		vm.Class = class
		return vm, nil
	default:
		return nil, fmt.Errorf("unknown detector %q", name)
	}
}

func printTable(proposals []detect.Proposal) {
	fmt.Printf("%-6s %10s %10s %10s %10s %10s\n", "Class", "X0", "Y0", "X1", "Y1", "Conf")
	for _, p := range proposals {
		conf := "-"
		if p.HasConf {
			conf = fmt.Sprintf("%.3f", p.Confidence)
		}
		fmt.Printf("%-6d %10.1f %10.1f %10.1f %10.1f %10s\n",
			p.Class, p.Rect.MinX, p.Rect.MinY, p.Rect.MaxX, p.Rect.MaxY, conf)
	}
}

func printYOLO(proposals []detect.Proposal, w, h int) {
	for _, p := range proposals {
		center := p.Rect.Center()
		rec := dataset.Record{
			Class:      p.Class,
			CX:         center.X / float64(w),
			CY:         center.Y / float64(h),
			W:          p.Rect.Width() / float64(w),
			H:          p.Rect.Height() / float64(h),
			Confidence: p.Confidence,
			HasConf:    p.HasConf,
		}
		fmt.Println(rec.String())
	}
}
