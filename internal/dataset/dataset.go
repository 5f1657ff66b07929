package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"box-labeler/internal/annotate"
	"box-labeler/internal/imageio"
)

// Directory names inside a dataset root.
const (
	ImagesDir      = "images"
	LabelsDir      = "labels"
	PredictionsDir = "predictions"
)

// ErrEmpty is returned when a dataset root contains no usable images.
var ErrEmpty = errors.New("dataset contains no images")

// Dataset is an open dataset directory with a cursor over its image
// list. The list is sorted by file name and fixed at open time; label
// and prediction files are read and written lazily per image.
type Dataset struct {
	root   string
	images []string // file names under root/images, sorted
	index  int
}

// Open scans root/images for supported image files. The labels and
// predictions directories are created on first save, so a bare image
// folder is a valid dataset.
func Open(root string) (*Dataset, error) {
	entries, err := os.ReadDir(filepath.Join(root, ImagesDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", root, err)
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() || !imageio.IsSupportedFormat(e.Name()) {
			continue
		}
		images = append(images, e.Name())
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrEmpty)
	}
	sort.Strings(images)

	return &Dataset{root: root, images: images}, nil
}

// Root returns the dataset root directory.
func (d *Dataset) Root() string {
	return d.root
}

// Count returns the number of images.
func (d *Dataset) Count() int {
	return len(d.images)
}

// Index returns the cursor position.
func (d *Dataset) Index() int {
	return d.index
}

// Name returns the current image file name.
func (d *Dataset) Name() string {
	return d.images[d.index]
}

// Next advances the cursor. Returns false at the end of the list.
func (d *Dataset) Next() bool {
	if d.index+1 >= len(d.images) {
		return false
	}
	d.index++
	return true
}

// Prev moves the cursor back. Returns false at the start of the list.
func (d *Dataset) Prev() bool {
	if d.index == 0 {
		return false
	}
	d.index--
	return true
}

// SeekTo moves the cursor to an absolute position.
func (d *Dataset) SeekTo(i int) error {
	if i < 0 || i >= len(d.images) {
		return fmt.Errorf("seek to %d: index out of range [0, %d)", i, len(d.images))
	}
	d.index = i
	return nil
}

// ImagePath returns the path of the current image.
func (d *Dataset) ImagePath() string {
	return filepath.Join(d.root, ImagesDir, d.Name())
}

// LabelPath returns the label file path for the current image.
func (d *Dataset) LabelPath() string {
	return filepath.Join(d.root, LabelsDir, stem(d.Name())+".txt")
}

// PredictionPath returns the prediction file path for the current image.
func (d *Dataset) PredictionPath() string {
	return filepath.Join(d.root, PredictionsDir, stem(d.Name())+".txt")
}

// LoadBoxes reads the current image's header plus its label and
// prediction files into a box set. A missing label or prediction file
// means no boxes of that category, not an error.
func (d *Dataset) LoadBoxes() (*annotate.BoxSet, error) {
	size, err := imageio.SizeOf(d.ImagePath())
	if err != nil {
		return nil, err
	}
	set := annotate.NewBoxSet(size.Width, size.Height)

	if err := d.loadFile(d.LabelPath(), set, annotate.GroundTruth); err != nil {
		return nil, err
	}
	if err := d.loadFile(d.PredictionPath(), set, annotate.Predicted); err != nil {
		return nil, err
	}
	return set, nil
}

func (d *Dataset) loadFile(path string, set *annotate.BoxSet, cat annotate.Category) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		rec, err := ParseRecord(text)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", path, line, err)
		}
		b := rec.Box(set.Width, set.Height)
		if _, err := set.Add(cat, b); err != nil {
			// A record that collapses below pixel size carries no
			// information worth keeping.
			continue
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// SaveLabels writes the ground-truth boxes of a set to the current
// image's label file, replacing it. An empty category produces an empty
// file rather than deleting it, so "reviewed, nothing present" is
// distinguishable from "never labeled".
func (d *Dataset) SaveLabels(set *annotate.BoxSet) error {
	return d.saveFile(d.LabelPath(), set, annotate.GroundTruth)
}

// SavePredictions writes the predicted boxes, confidence included, to
// the current image's prediction file.
func (d *Dataset) SavePredictions(set *annotate.BoxSet) error {
	return d.saveFile(d.PredictionPath(), set, annotate.Predicted)
}

func (d *Dataset) saveFile(path string, set *annotate.BoxSet, cat annotate.Category) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	var sb strings.Builder
	for _, b := range set.Boxes(cat) {
		sb.WriteString(RecordFromBox(b, set.Width, set.Height).String())
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// DeleteCurrent removes the current image with its label and prediction
// files and drops it from the list. The cursor stays in place unless the
// last image was removed, in which case it moves back one. Returns
// ErrEmpty when nothing is left.
func (d *Dataset) DeleteCurrent() error {
	if err := os.Remove(d.ImagePath()); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	// Missing companion files are fine: the image may never have been
	// labeled or predicted.
	for _, p := range []string{d.LabelPath(), d.PredictionPath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", p, err)
		}
	}

	d.images = append(d.images[:d.index], d.images[d.index+1:]...)
	if len(d.images) == 0 {
		return ErrEmpty
	}
	if d.index >= len(d.images) {
		d.index = len(d.images) - 1
	}
	return nil
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
