package annotate

import (
	"fmt"
	"math"

	"box-labeler/pkg/geometry"
)

// BoxSet holds the boxes of one image, partitioned by category. Slice
// order is insertion order, which is also display order. BoxSet performs
// only in-memory mutation; persistence is the dataset collaborator's job.
//
// BoxSet is not safe for concurrent mutation; all edits happen on the
// interaction thread.
type BoxSet struct {
	Width  float64
	Height float64

	boxes  [NumCategories][]Box
	nextID [NumCategories]int
}

// NewBoxSet creates an empty box set for an image of the given size.
func NewBoxSet(width, height float64) *BoxSet {
	return &BoxSet{Width: width, Height: height}
}

// Add clamps the box to the image and appends it to the category,
// returning the assigned id. Returns ErrInvalidGeometry if the clamped
// box has no area.
func (s *BoxSet) Add(cat Category, b Box) (int, error) {
	if !cat.Valid() {
		return 0, fmt.Errorf("add: bad category %d", cat)
	}
	b.Rect = geometry.ClampToImage(b.Rect, s.Width, s.Height)
	if b.Rect.Empty() {
		return 0, fmt.Errorf("add to %s: %w", cat, ErrInvalidGeometry)
	}
	if cat == GroundTruth {
		b.Confidence = 0
		b.HasConf = false
	}
	b.ID = s.nextID[cat]
	s.nextID[cat]++
	s.boxes[cat] = append(s.boxes[cat], b)
	return b.ID, nil
}

// indexOf returns the slice index of the box with the given id, or -1.
// IDs are assigned in increasing order but deletions leave holes, so
// lookup is a linear scan of the (small) category slice.
func (s *BoxSet) indexOf(cat Category, id int) int {
	if !cat.Valid() {
		return -1
	}
	for i, b := range s.boxes[cat] {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// Update replaces the geometry of an existing box in place.
func (s *BoxSet) Update(cat Category, id int, rect geometry.Box) error {
	i := s.indexOf(cat, id)
	if i < 0 {
		return fmt.Errorf("update %s #%d: %w", cat, id, ErrNotFound)
	}
	rect = geometry.ClampToImage(rect, s.Width, s.Height)
	if rect.Empty() {
		return fmt.Errorf("update %s #%d: %w", cat, id, ErrInvalidGeometry)
	}
	s.boxes[cat][i].Rect = rect
	return nil
}

// Remove deletes a box. A missing id is signaled as ErrNotFound so the
// caller can distinguish "nothing to delete"; the set is left unchanged.
func (s *BoxSet) Remove(cat Category, id int) error {
	i := s.indexOf(cat, id)
	if i < 0 {
		return fmt.Errorf("remove %s #%d: %w", cat, id, ErrNotFound)
	}
	s.boxes[cat] = append(s.boxes[cat][:i], s.boxes[cat][i+1:]...)
	return nil
}

// Move removes a box from one category and appends it to another under a
// freshly assigned id, which is returned. Confidence is dropped when the
// destination is GroundTruth.
func (s *BoxSet) Move(id int, from, to Category) (int, error) {
	i := s.indexOf(from, id)
	if i < 0 {
		return 0, fmt.Errorf("move %s #%d to %s: %w", from, id, to, ErrNotFound)
	}
	b := s.boxes[from][i]
	s.boxes[from] = append(s.boxes[from][:i], s.boxes[from][i+1:]...)

	newID, err := s.Add(to, b)
	if err != nil {
		// Put the box back so a failed move leaves the set as it was.
		s.boxes[from] = append(s.boxes[from][:i], append([]Box{b}, s.boxes[from][i:]...)...)
		return 0, err
	}
	return newID, nil
}

// Clear empties one category. IDs are not reset, so ids from cleared
// boxes are never reused within the session.
func (s *BoxSet) Clear(cat Category) {
	if cat.Valid() {
		s.boxes[cat] = nil
	}
}

// ReplacePredictions clears Predicted and fills it from proposals as one
// update, so rendering never observes a partial result.
func (s *BoxSet) ReplacePredictions(boxes []Box) {
	s.Clear(Predicted)
	for _, b := range boxes {
		if _, err := s.Add(Predicted, b); err != nil {
			// Degenerate proposals are dropped silently; the detector
			// produced a box with no area inside the image.
			continue
		}
	}
}

// Boxes returns the boxes of one category in insertion order. The
// returned slice is owned by the set and must not be mutated.
func (s *BoxSet) Boxes(cat Category) []Box {
	if !cat.Valid() {
		return nil
	}
	return s.boxes[cat]
}

// Get returns the box with the given id, if present.
func (s *BoxSet) Get(cat Category, id int) (Box, bool) {
	i := s.indexOf(cat, id)
	if i < 0 {
		return Box{}, false
	}
	return s.boxes[cat][i], true
}

// Count returns the number of boxes in a category.
func (s *BoxSet) Count(cat Category) int {
	if !cat.Valid() {
		return 0
	}
	return len(s.boxes[cat])
}

// UnmatchedPredictions returns the predicted boxes whose IoU with every
// ground-truth box is at or below the threshold. These are the
// predictions worth reviewing as new objects.
func (s *BoxSet) UnmatchedPredictions(iouThreshold float64) []Box {
	var out []Box
	for _, p := range s.boxes[Predicted] {
		matched := false
		for _, g := range s.boxes[GroundTruth] {
			if p.Rect.IoU(g.Rect) > iouThreshold {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, p)
		}
	}
	return out
}

// roundsToZero reports whether a freshly drawn extent collapses to
// nothing at pixel resolution.
func roundsToZero(v float64) bool {
	return math.Round(v) == 0
}
