package annotate

// CategoryDisplay holds the render settings for one box category.
type CategoryDisplay struct {
	Visible bool    `json:"visible"`
	Opacity float64 `json:"opacity"`
}

// Visibility controls which categories are drawn and with what fill
// opacity. Hidden categories are excluded from the render list entirely
// rather than drawn transparent, so hidden boxes never swallow clicks
// through the render path.
type Visibility struct {
	display [NumCategories]CategoryDisplay
}

// NewVisibility returns the default display settings: ground truth
// shown, predictions and extras hidden, all at 20% fill.
func NewVisibility() *Visibility {
	v := &Visibility{}
	v.display[GroundTruth] = CategoryDisplay{Visible: true, Opacity: 0.2}
	v.display[Predicted] = CategoryDisplay{Visible: false, Opacity: 0.2}
	v.display[Extra] = CategoryDisplay{Visible: false, Opacity: 0.2}
	return v
}

// SetVisible toggles a category on or off.
func (v *Visibility) SetVisible(c Category, visible bool) {
	if c.Valid() {
		v.display[c].Visible = visible
	}
}

// Visible reports whether a category is drawn.
func (v *Visibility) Visible(c Category) bool {
	return c.Valid() && v.display[c].Visible
}

// SetOpacity sets a category's fill opacity, clamped to [0, 1].
func (v *Visibility) SetOpacity(c Category, opacity float64) {
	if !c.Valid() {
		return
	}
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	v.display[c].Opacity = opacity
}

// Opacity returns a category's fill opacity.
func (v *Visibility) Opacity(c Category) float64 {
	if !c.Valid() {
		return 0
	}
	return v.display[c].Opacity
}

// Display returns the full settings for one category.
func (v *Visibility) Display(c Category) CategoryDisplay {
	if !c.Valid() {
		return CategoryDisplay{}
	}
	return v.display[c]
}

// SetDisplay replaces the full settings for one category, with the
// opacity clamped. Used when restoring saved preferences.
func (v *Visibility) SetDisplay(c Category, d CategoryDisplay) {
	if !c.Valid() {
		return
	}
	v.display[c].Visible = d.Visible
	v.SetOpacity(c, d.Opacity)
}

// RenderBox is one box queued for drawing, tagged with its category and
// the fill opacity to draw it at.
type RenderBox struct {
	Box      Box
	Category Category
	Opacity  float64
}

// RenderList flattens the visible categories of a set into draw order:
// ground truth first, then predictions, then extras, each in insertion
// order so later boxes paint on top.
func (v *Visibility) RenderList(s *BoxSet) []RenderBox {
	if s == nil {
		return nil
	}
	var out []RenderBox
	for c := Category(0); c < NumCategories; c++ {
		if !v.display[c].Visible {
			continue
		}
		for _, b := range s.Boxes(c) {
			out = append(out, RenderBox{Box: b, Category: c, Opacity: v.display[c].Opacity})
		}
	}
	return out
}
