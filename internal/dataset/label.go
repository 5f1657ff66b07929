// Package dataset manages a YOLO-layout dataset directory: an images/
// folder with matching labels/ and predictions/ text files, plus
// navigation across the image list.
package dataset

import (
	"fmt"
	"strconv"
	"strings"

	"box-labeler/internal/annotate"
	"box-labeler/pkg/geometry"
)

// Record is one line of a label file: a class id and a center-size
// rectangle normalized to the image dimensions. Prediction files carry a
// sixth confidence column.
type Record struct {
	Class      int
	CX, CY     float64
	W, H       float64
	Confidence float64
	HasConf    bool
}

// ParseRecord parses one label line. Coordinates are clamped into [0, 1]
// so a file written with slight overshoot still round-trips.
func ParseRecord(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 && len(fields) != 6 {
		return Record{}, fmt.Errorf("expected 5 or 6 fields, got %d", len(fields))
	}

	class, err := strconv.Atoi(fields[0])
	if err != nil {
		return Record{}, fmt.Errorf("bad class id %q: %w", fields[0], err)
	}
	if class < 0 {
		return Record{}, fmt.Errorf("negative class id %d", class)
	}

	var vals [5]float64
	for i := 1; i < len(fields); i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return Record{}, fmt.Errorf("bad field %q: %w", fields[i], err)
		}
		vals[i-1] = v
	}

	r := Record{
		Class: class,
		CX:    clamp01(vals[0]),
		CY:    clamp01(vals[1]),
		W:     clamp01(vals[2]),
		H:     clamp01(vals[3]),
	}
	if len(fields) == 6 {
		r.Confidence = clamp01(vals[4])
		r.HasConf = true
	}
	return r, nil
}

// String formats the record as a label line, six decimal places per
// coordinate, with the confidence column appended when present.
func (r Record) String() string {
	s := fmt.Sprintf("%d %.6f %.6f %.6f %.6f", r.Class, r.CX, r.CY, r.W, r.H)
	if r.HasConf {
		s += fmt.Sprintf(" %.6f", r.Confidence)
	}
	return s
}

// RecordFromBox normalizes a pixel-space box against the image size.
func RecordFromBox(b annotate.Box, imgW, imgH float64) Record {
	c := b.Rect.Center()
	return Record{
		Class:      b.Class,
		CX:         clamp01(c.X / imgW),
		CY:         clamp01(c.Y / imgH),
		W:          clamp01(b.Rect.Width() / imgW),
		H:          clamp01(b.Rect.Height() / imgH),
		Confidence: b.Confidence,
		HasConf:    b.HasConf,
	}
}

// Box denormalizes the record into a pixel-space box.
func (r Record) Box(imgW, imgH float64) annotate.Box {
	halfW := r.W * imgW / 2
	halfH := r.H * imgH / 2
	cx := r.CX * imgW
	cy := r.CY * imgH
	return annotate.Box{
		Class:      r.Class,
		Rect:       geometry.NewBox(cx-halfW, cy-halfH, cx+halfW, cy+halfH),
		Confidence: r.Confidence,
		HasConf:    r.HasConf,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
