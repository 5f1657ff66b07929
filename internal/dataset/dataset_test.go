package dataset

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"box-labeler/internal/annotate"
	"box-labeler/pkg/geometry"
)

// writeTestDataset builds a dataset root with PNG images of the given
// size and returns the root path.
func writeTestDataset(t *testing.T, names []string, w, h int) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, ImagesDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for _, name := range names {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
		f.Close()
	}
	return root
}

func writeLabelFile(t *testing.T, root, dir, stem, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(root, dir), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, dir, stem+".txt"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestOpenSortsAndFilters(t *testing.T) {
	root := writeTestDataset(t, []string{"b.png", "a.png", "c.png"}, 4, 4)
	// Non-image clutter must be ignored.
	if err := os.WriteFile(filepath.Join(root, ImagesDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := Open(root)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if d.Count() != 3 {
		t.Fatalf("count = %d, want 3", d.Count())
	}
	if d.Name() != "a.png" {
		t.Errorf("first image = %s, want a.png", d.Name())
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("open of missing root accepted")
	}

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ImagesDir), 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(root); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty images dir: err = %v, want ErrEmpty", err)
	}
}

func TestNavigation(t *testing.T) {
	root := writeTestDataset(t, []string{"a.png", "b.png", "c.png"}, 4, 4)
	d, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}

	if d.Prev() {
		t.Errorf("Prev succeeded at start")
	}
	if !d.Next() || d.Name() != "b.png" {
		t.Errorf("after Next: %s", d.Name())
	}
	if !d.Next() || d.Name() != "c.png" {
		t.Errorf("after second Next: %s", d.Name())
	}
	if d.Next() {
		t.Errorf("Next succeeded at end")
	}
	if err := d.SeekTo(0); err != nil || d.Name() != "a.png" {
		t.Errorf("SeekTo(0): %v, %s", err, d.Name())
	}
	if err := d.SeekTo(3); err == nil {
		t.Errorf("SeekTo out of range accepted")
	}
}

func TestLoadBoxes(t *testing.T) {
	root := writeTestDataset(t, []string{"img.png"}, 100, 50)
	writeLabelFile(t, root, LabelsDir, "img",
		"0 0.500000 0.500000 0.200000 0.400000\n\n1 0.100000 0.100000 0.100000 0.100000\n")
	writeLabelFile(t, root, PredictionsDir, "img",
		"2 0.500000 0.500000 0.500000 0.500000 0.750000\n")

	d, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	set, err := d.LoadBoxes()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if set.Width != 100 || set.Height != 50 {
		t.Errorf("image size = %vx%v", set.Width, set.Height)
	}

	gt := set.Boxes(annotate.GroundTruth)
	if len(gt) != 2 {
		t.Fatalf("got %d ground-truth boxes, want 2", len(gt))
	}
	if want := geometry.NewBox(40, 15, 60, 35); gt[0].Rect != want {
		t.Errorf("gt[0].Rect = %+v, want %+v", gt[0].Rect, want)
	}

	pred := set.Boxes(annotate.Predicted)
	if len(pred) != 1 {
		t.Fatalf("got %d predictions, want 1", len(pred))
	}
	if !pred[0].HasConf || pred[0].Confidence != 0.75 {
		t.Errorf("prediction confidence = %+v", pred[0])
	}
}

func TestLoadBoxesMissingFilesIsEmpty(t *testing.T) {
	root := writeTestDataset(t, []string{"img.png"}, 10, 10)
	d, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	set, err := d.LoadBoxes()
	if err != nil {
		t.Fatalf("load without label files: %v", err)
	}
	if set.Count(annotate.GroundTruth) != 0 || set.Count(annotate.Predicted) != 0 {
		t.Errorf("boxes appeared from nowhere: %d/%d",
			set.Count(annotate.GroundTruth), set.Count(annotate.Predicted))
	}
}

func TestLoadBoxesMalformedLine(t *testing.T) {
	root := writeTestDataset(t, []string{"img.png"}, 10, 10)
	writeLabelFile(t, root, LabelsDir, "img", "0 0.5 0.5 bad 0.5\n")
	d, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.LoadBoxes(); err == nil {
		t.Errorf("malformed label accepted")
	}
}

func TestSaveLabelsRoundTrip(t *testing.T) {
	root := writeTestDataset(t, []string{"img.png"}, 640, 480)
	d, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}

	set := annotate.NewBoxSet(640, 480)
	set.Add(annotate.GroundTruth, annotate.Box{Class: 1, Rect: geometry.NewBox(100, 100, 200, 200)})
	set.Add(annotate.GroundTruth, annotate.Box{Class: 0, Rect: geometry.NewBox(0, 0, 640, 480)})
	set.Add(annotate.Predicted, annotate.Box{Class: 2, Rect: geometry.NewBox(50, 50, 150, 150), Confidence: 0.6, HasConf: true})

	if err := d.SaveLabels(set); err != nil {
		t.Fatalf("save labels: %v", err)
	}
	if err := d.SavePredictions(set); err != nil {
		t.Fatalf("save predictions: %v", err)
	}

	loaded, err := d.LoadBoxes()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	gt := loaded.Boxes(annotate.GroundTruth)
	if len(gt) != 2 {
		t.Fatalf("got %d ground-truth boxes, want 2", len(gt))
	}
	if gt[0].Class != 1 || gt[1].Class != 0 {
		t.Errorf("order not preserved: %+v", gt)
	}
	// Six-decimal quantization keeps pixel coordinates within a pixel.
	if got := gt[0].Rect; got.Center().Distance(geometry.NewPoint2D(150, 150)) > 1 {
		t.Errorf("reloaded rect drifted: %+v", got)
	}

	pred := loaded.Boxes(annotate.Predicted)
	if len(pred) != 1 || !pred[0].HasConf || pred[0].Confidence != 0.6 {
		t.Errorf("predictions did not round-trip: %+v", pred)
	}
}

func TestSaveLabelsEmptyWritesEmptyFile(t *testing.T) {
	root := writeTestDataset(t, []string{"img.png"}, 10, 10)
	d, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SaveLabels(annotate.NewBoxSet(10, 10)); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(d.LabelPath())
	if err != nil {
		t.Fatalf("label file not written: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("empty set wrote %q", data)
	}
}

func TestDeleteCurrent(t *testing.T) {
	root := writeTestDataset(t, []string{"a.png", "b.png", "c.png"}, 4, 4)
	writeLabelFile(t, root, LabelsDir, "b", "0 0.5 0.5 0.5 0.5\n")
	d, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SeekTo(1); err != nil {
		t.Fatal(err)
	}

	if err := d.DeleteCurrent(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if d.Count() != 2 || d.Name() != "c.png" {
		t.Errorf("after delete: count=%d current=%s", d.Count(), d.Name())
	}
	if _, err := os.Stat(filepath.Join(root, ImagesDir, "b.png")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("image file still present")
	}
	if _, err := os.Stat(filepath.Join(root, LabelsDir, "b.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("label file still present")
	}
}

func TestDeleteLastImage(t *testing.T) {
	root := writeTestDataset(t, []string{"a.png", "b.png"}, 4, 4)
	d, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SeekTo(1); err != nil {
		t.Fatal(err)
	}
	if err := d.DeleteCurrent(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if d.Name() != "a.png" {
		t.Errorf("cursor after deleting the tail = %s", d.Name())
	}
	if err := d.DeleteCurrent(); !errors.Is(err, ErrEmpty) {
		t.Errorf("deleting the final image: err = %v, want ErrEmpty", err)
	}
}
