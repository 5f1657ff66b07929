// Package app provides the annotation session: dataset, editor,
// visibility, prediction runs, and application events.
package app

import (
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"box-labeler/internal/annotate"
	"box-labeler/internal/dataset"
	"box-labeler/internal/detect"
	"box-labeler/internal/imageio"
)

// EventType identifies different application events.
type EventType int

const (
	EventDatasetOpened EventType = iota
	EventImageChanged
	EventBoxesChanged
	EventModeChanged
	EventVisibilityChanged
	EventPredictionStarted
	EventPredictionComplete
	EventPredictionFailed
	EventSaved
	EventModified
	EventNotification
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// State is the annotation session. All box data flows through it: the
// open dataset, the per-image box sets, the editor, and async detection
// runs. UI widgets subscribe to events rather than polling.
type State struct {
	mu sync.RWMutex

	// Dataset and current image
	Dataset  *dataset.Dataset
	Image    image.Image
	Modified bool

	// Editing
	Editor     *annotate.Editor
	Visibility *annotate.Visibility

	// Detection
	Runner *detect.Runner
	// AutoAddExtras promotes IoU-unmatched predictions into Extra after
	// every run.
	AutoAddExtras bool
	// MatchIoU is the overlap above which a prediction counts as an
	// existing ground-truth object.
	MatchIoU float64

	// Box sets edited this session, keyed by image file name, so
	// navigating away and back keeps unsaved work.
	sets map[string]*annotate.BoxSet

	listeners map[EventType][]EventListener
	logger    *log.Logger

	// dispatch marshals detection results from the runner goroutine back
	// onto the interaction thread before any box set or widget is
	// touched. The UI wires this to fyne.Do; the default runs inline.
	dispatch func(func())
}

// NewState creates a session with no dataset open.
func NewState(logger *log.Logger) *State {
	s := &State{
		Editor:     annotate.NewEditor(),
		Visibility: annotate.NewVisibility(),
		MatchIoU:   0.5,
		sets:       make(map[string]*annotate.BoxSet),
		listeners:  make(map[EventType][]EventListener),
		logger:     logger,
		dispatch:   func(f func()) { f() },
	}
	s.Runner = detect.NewRunner(s.handleResult)
	s.Editor.OnChange = func() {
		if !s.Editor.Dragging() {
			s.SetModified(true)
		}
		s.Emit(EventBoxesChanged, nil)
	}
	s.Editor.OnError = func(err error) {
		s.logger.Printf("editor: %v", err)
		s.Notify(err.Error())
	}
	return s
}

// Logger returns the session logger.
func (s *State) Logger() *log.Logger {
	return s.logger
}

// SetDispatcher routes detection results through the given scheduler,
// which must run the function on the interaction thread.
func (s *State) SetDispatcher(d func(func())) {
	s.dispatch = d
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Notify emits a user-facing status message.
func (s *State) Notify(msg string) {
	s.Emit(EventNotification, msg)
}

// SetModified marks the session as modified and emits an event.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	changed := s.Modified != modified
	s.Modified = modified
	s.mu.Unlock()
	if changed {
		s.Emit(EventModified, modified)
	}
}

// OpenDataset opens a dataset root and loads its first image. Cached
// box sets from a previously open dataset are dropped.
func (s *State) OpenDataset(root string) error {
	d, err := dataset.Open(root)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.Dataset = d
	s.sets = make(map[string]*annotate.BoxSet)
	s.mu.Unlock()

	if err := s.loadCurrent(); err != nil {
		return err
	}
	s.logger.Printf("opened dataset %s (%d images)", root, d.Count())
	s.Emit(EventDatasetOpened, root)
	return nil
}

// HasDataset reports whether a dataset is open.
func (s *State) HasDataset() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Dataset != nil
}

// BoxSet returns the current image's boxes, or nil with no image.
func (s *State) BoxSet() *annotate.BoxSet {
	return s.Editor.BoxSet()
}

// loadCurrent loads the cursor image's pixels and boxes, reusing the
// session cache so unsaved edits survive navigation.
func (s *State) loadCurrent() error {
	img, err := imageio.Load(s.Dataset.ImagePath())
	if err != nil {
		return err
	}

	name := s.Dataset.Name()
	s.mu.Lock()
	set, cached := s.sets[name]
	s.mu.Unlock()
	if !cached {
		set, err = s.Dataset.LoadBoxes()
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.sets[name] = set
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.Image = img
	s.mu.Unlock()
	s.Editor.SetBoxSet(set)
	s.Emit(EventImageChanged, name)
	s.Emit(EventBoxesChanged, nil)
	return nil
}

// NextImage advances to the next image, if any.
func (s *State) NextImage() error {
	if !s.Dataset.Next() {
		return nil
	}
	return s.loadCurrent()
}

// PrevImage moves to the previous image, if any.
func (s *State) PrevImage() error {
	if !s.Dataset.Prev() {
		return nil
	}
	return s.loadCurrent()
}

// SeekImage jumps to an absolute image index.
func (s *State) SeekImage(i int) error {
	if i == s.Dataset.Index() {
		return nil
	}
	if err := s.Dataset.SeekTo(i); err != nil {
		return err
	}
	return s.loadCurrent()
}

// SaveCurrent writes the current image's ground-truth boxes to its
// label file.
func (s *State) SaveCurrent() error {
	set := s.BoxSet()
	if set == nil {
		return fmt.Errorf("no image loaded")
	}
	if err := s.Dataset.SaveLabels(set); err != nil {
		return err
	}
	s.SetModified(false)
	s.logger.Printf("saved %s", s.Dataset.LabelPath())
	s.Emit(EventSaved, s.Dataset.Name())
	return nil
}

// SetMode switches the editor mode. Selecting the active mode again
// drops back to idle, matching the panel's toggle behavior.
func (s *State) SetMode(m annotate.Mode) {
	if m == s.Editor.Mode() {
		m = annotate.ModeNone
	}
	s.Editor.SetMode(m)
	s.Emit(EventModeChanged, m)
}

// SetVisible toggles one category's visibility.
func (s *State) SetVisible(c annotate.Category, visible bool) {
	s.Visibility.SetVisible(c, visible)
	s.Emit(EventVisibilityChanged, c)
}

// SetOpacity adjusts one category's blend opacity.
func (s *State) SetOpacity(c annotate.Category, opacity float64) {
	s.Visibility.SetOpacity(c, opacity)
	s.Emit(EventVisibilityChanged, c)
}

// RunPrediction starts an asynchronous detection run on the current
// image. A run already in flight is superseded.
func (s *State) RunPrediction(p detect.Proposer) error {
	s.mu.RLock()
	img := s.Image
	s.mu.RUnlock()
	if img == nil {
		return fmt.Errorf("no image loaded")
	}

	key := s.Dataset.Name()
	s.Runner.Start(p, img, key)
	s.logger.Printf("detection %s started on %s", p.Name(), key)
	s.Emit(EventPredictionStarted, p.Name())
	return nil
}

// handleResult is the runner's delivery callback. It runs on the runner
// goroutine and only hands the result over to the interaction thread;
// boxes and listeners are never touched from here.
func (s *State) handleResult(res detect.Result) {
	s.dispatch(func() { s.applyResult(res) })
}

// applyResult consumes a finished detection run on the interaction
// thread. Results from a superseded run, or for an image the user has
// navigated away from, are discarded; Predicted is never touched on
// failure.
func (s *State) applyResult(res detect.Result) {
	if res.Token != s.Runner.Current() {
		s.logger.Printf("detection %s: stale result discarded", res.Proposer)
		return
	}
	if res.Key != s.Dataset.Name() {
		s.logger.Printf("detection %s: result for %s discarded after navigation", res.Proposer, res.Key)
		return
	}
	if res.Err != nil {
		s.logger.Printf("detection %s failed: %v", res.Proposer, res.Err)
		s.Emit(EventPredictionFailed, res.Err)
		s.Notify(fmt.Sprintf("Detection failed: %v", res.Err))
		return
	}

	set := s.BoxSet()
	boxes := make([]annotate.Box, len(res.Proposals))
	for i, p := range res.Proposals {
		boxes[i] = annotate.Box{
			Class:      p.Class,
			Rect:       p.Rect,
			Confidence: p.Confidence,
			HasConf:    p.HasConf,
		}
	}
	set.ReplacePredictions(boxes)

	if s.AutoAddExtras {
		for _, b := range set.UnmatchedPredictions(s.MatchIoU) {
			if _, err := set.Add(annotate.Extra, b); err != nil {
				s.logger.Printf("auto-add extra: %v", err)
			}
		}
	}

	if err := s.Dataset.SavePredictions(set); err != nil {
		s.logger.Printf("failed to persist predictions: %v", err)
	}

	s.logger.Printf("detection %s: %d proposals on %s", res.Proposer, len(res.Proposals), res.Key)
	s.Emit(EventPredictionComplete, len(res.Proposals))
	s.Emit(EventBoxesChanged, nil)
}

// ValidateAllPredictions promotes every predicted box to ground truth.
func (s *State) ValidateAllPredictions() {
	s.moveAll(annotate.Predicted)
}

// ValidateAllExtras promotes every extra box to ground truth.
func (s *State) ValidateAllExtras() {
	s.moveAll(annotate.Extra)
}

func (s *State) moveAll(from annotate.Category) {
	set := s.BoxSet()
	if set == nil {
		return
	}
	// Snapshot the ids first: Move mutates the slice being walked.
	boxes := set.Boxes(from)
	ids := make([]int, len(boxes))
	for i, b := range boxes {
		ids[i] = b.ID
	}
	for _, id := range ids {
		if _, err := set.Move(id, from, annotate.GroundTruth); err != nil {
			s.logger.Printf("validate all: %v", err)
		}
	}
	s.SetModified(true)
	s.Emit(EventBoxesChanged, nil)
}

// DeleteAllGroundTruth clears the ground-truth category.
func (s *State) DeleteAllGroundTruth() {
	set := s.BoxSet()
	if set == nil {
		return
	}
	set.Clear(annotate.GroundTruth)
	s.SetModified(true)
	s.Emit(EventBoxesChanged, nil)
}

// DeleteCurrentImage removes the current image and its label files from
// the dataset and moves to the nearest remaining image. With the last
// image gone the session keeps the empty dataset open and notifies.
func (s *State) DeleteCurrentImage() error {
	name := s.Dataset.Name()
	err := s.Dataset.DeleteCurrent()

	s.mu.Lock()
	delete(s.sets, name)
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, dataset.ErrEmpty) {
			s.mu.Lock()
			s.Image = nil
			s.mu.Unlock()
			s.Editor.SetBoxSet(nil)
			s.Notify("Dataset is now empty")
			s.Emit(EventImageChanged, "")
			return nil
		}
		return err
	}
	s.logger.Printf("deleted %s", name)
	return s.loadCurrent()
}
