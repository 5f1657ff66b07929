// Package panels provides UI panels for the application.
package panels

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"box-labeler/internal/annotate"
	"box-labeler/internal/app"
	"box-labeler/internal/detect"
	"box-labeler/ui/prefs"
)

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	state     *app.State
	container *container.AppTabs

	annotatePanel *AnnotatePanel
	detectPanel   *DetectPanel
}

// NewSidePanel creates a new side panel.
func NewSidePanel(state *app.State, p *prefs.Prefs) *SidePanel {
	sp := &SidePanel{state: state}

	sp.annotatePanel = NewAnnotatePanel(state)
	sp.detectPanel = NewDetectPanel(state, p)

	sp.container = container.NewAppTabs(
		container.NewTabItem("Annotate", sp.annotatePanel.Container()),
		container.NewTabItem("Detect", sp.detectPanel.Container()),
	)
	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// SetWindow sets the parent window for dialogs.
func (sp *SidePanel) SetWindow(w fyne.Window) {
	sp.annotatePanel.window = w
	sp.detectPanel.window = w
}

var modeNames = []string{"Draw", "Move/Resize", "Delete", "Validate"}

func modeFromName(name string) annotate.Mode {
	switch name {
	case "Draw":
		return annotate.ModeDraw
	case "Move/Resize":
		return annotate.ModeMoveResize
	case "Delete":
		return annotate.ModeDelete
	case "Validate":
		return annotate.ModeValidate
	default:
		return annotate.ModeNone
	}
}

// AnnotatePanel holds mode selection, visibility controls, and the bulk
// annotation actions.
type AnnotatePanel struct {
	state     *app.State
	window    fyne.Window
	container fyne.CanvasObject

	modeGroup   *widget.RadioGroup
	syncingMode bool

	targetSelect *widget.Select
	classEntry   *widget.Entry

	countsLabel *widget.Label
	shapeLabel  *widget.Label
}

// NewAnnotatePanel creates a new annotate panel.
func NewAnnotatePanel(state *app.State) *AnnotatePanel {
	ap := &AnnotatePanel{state: state}

	ap.countsLabel = widget.NewLabel("No image loaded")
	ap.shapeLabel = widget.NewLabel("")

	// Deselecting the active mode drops back to idle.
	ap.modeGroup = widget.NewRadioGroup(modeNames, func(selected string) {
		if ap.syncingMode {
			return
		}
		state.SetMode(modeFromName(selected))
	})

	ap.targetSelect = widget.NewSelect([]string{"GT", "Extra"}, func(selected string) {
		if selected == "Extra" {
			state.Editor.SetEditTarget(annotate.Extra)
		} else {
			state.Editor.SetEditTarget(annotate.GroundTruth)
		}
	})
	ap.targetSelect.SetSelected("GT")

	ap.classEntry = widget.NewEntry()
	ap.classEntry.SetText("0")
	ap.classEntry.OnChanged = func(text string) {
		if class, err := strconv.Atoi(text); err == nil && class >= 0 {
			state.Editor.SetDrawClass(class)
		}
	}

	visibility := container.NewVBox(
		ap.visibilityRow("GT", annotate.GroundTruth),
		ap.visibilityRow("Predicted", annotate.Predicted),
		ap.visibilityRow("Extra", annotate.Extra),
	)

	validatePredsButton := widget.NewButton("Validate All Predictions", func() {
		state.ValidateAllPredictions()
	})
	validateExtrasButton := widget.NewButton("Validate All Extras", func() {
		state.ValidateAllExtras()
	})
	deleteGTButton := widget.NewButton("Delete All GT", func() {
		state.DeleteAllGroundTruth()
	})
	deleteImageButton := widget.NewButton("Delete Image && Label", func() {
		if !state.HasDataset() {
			return
		}
		dialog.ShowConfirm("Delete Image",
			fmt.Sprintf("Delete %s and its label file?", state.Dataset.Name()),
			func(ok bool) {
				if !ok {
					return
				}
				if err := state.DeleteCurrentImage(); err != nil {
					state.Notify(fmt.Sprintf("Delete failed: %v", err))
				}
			}, ap.window)
	})

	ap.container = container.NewVBox(
		widget.NewCard("Mode", "", ap.modeGroup),
		widget.NewCard("Drawing", "", container.NewVBox(
			widget.NewLabel("Target:"),
			ap.targetSelect,
			widget.NewLabel("Class:"),
			ap.classEntry,
		)),
		widget.NewCard("Visibility", "", visibility),
		widget.NewCard("Actions", "", container.NewVBox(
			validatePredsButton,
			validateExtrasButton,
			deleteGTButton,
			deleteImageButton,
		)),
		widget.NewCard("Image", "", container.NewVBox(
			ap.shapeLabel,
			ap.countsLabel,
		)),
	)

	state.On(app.EventBoxesChanged, func(interface{}) {
		ap.updateCounts()
	})
	state.On(app.EventImageChanged, func(interface{}) {
		ap.updateCounts()
	})
	state.On(app.EventModeChanged, func(data interface{}) {
		if m, ok := data.(annotate.Mode); ok {
			ap.syncMode(m)
		}
	})

	return ap
}

// Container returns the panel content.
func (ap *AnnotatePanel) Container() fyne.CanvasObject {
	return ap.container
}

func (ap *AnnotatePanel) visibilityRow(label string, cat annotate.Category) fyne.CanvasObject {
	check := widget.NewCheck(label, func(on bool) {
		ap.state.SetVisible(cat, on)
	})
	check.SetChecked(ap.state.Visibility.Visible(cat))

	slider := widget.NewSlider(0, 1)
	slider.Step = 0.05
	slider.Value = ap.state.Visibility.Opacity(cat)
	slider.OnChanged = func(v float64) {
		ap.state.SetOpacity(cat, v)
	}
	return container.NewBorder(nil, nil, check, nil, slider)
}

// syncMode reflects a mode change made outside the panel.
func (ap *AnnotatePanel) syncMode(m annotate.Mode) {
	ap.syncingMode = true
	defer func() { ap.syncingMode = false }()
	if m == annotate.ModeNone {
		ap.modeGroup.SetSelected("")
	} else {
		ap.modeGroup.SetSelected(m.String())
	}
}

func (ap *AnnotatePanel) updateCounts() {
	set := ap.state.BoxSet()
	if set == nil {
		ap.countsLabel.SetText("No image loaded")
		ap.shapeLabel.SetText("")
		return
	}
	ap.shapeLabel.SetText(fmt.Sprintf("%.0f x %.0f", set.Width, set.Height))
	ap.countsLabel.SetText(fmt.Sprintf("GT: %d  Pred: %d  Extra: %d",
		set.Count(annotate.GroundTruth),
		set.Count(annotate.Predicted),
		set.Count(annotate.Extra)))
}

// DetectPanel configures and launches machine-vision runs.
type DetectPanel struct {
	state     *app.State
	prefs     *prefs.Prefs
	window    fyne.Window
	container fyne.CanvasObject

	detectorSelect *widget.Select
	statusLabel    *widget.Label

	// Excess green
	exgThreshold *widget.Entry
	exgMinArea   *widget.Entry

	// Shapes
	circleMinRadius *widget.Entry
	circleMaxRadius *widget.Entry
	polyMinArea     *widget.Entry

	// Vision model
	hostEntry  *widget.Entry
	modelEntry *widget.Entry

	autoExtras *widget.Check
	runButton  *widget.Button
}

// NewDetectPanel creates a new detect panel.
func NewDetectPanel(state *app.State, p *prefs.Prefs) *DetectPanel {
	dp := &DetectPanel{state: state, prefs: p}

	dp.statusLabel = widget.NewLabel("")
	dp.statusLabel.Wrapping = fyne.TextWrapWord

	dp.detectorSelect = widget.NewSelect(
		[]string{"Excess Green", "Circles", "Rectangles", "Triangles", "Vision Model"},
		func(string) {})
	dp.detectorSelect.SetSelected("Excess Green")

	dp.exgThreshold = newNumberEntry("0")
	dp.exgMinArea = newNumberEntry("16")
	dp.circleMinRadius = newNumberEntry("5")
	dp.circleMaxRadius = newNumberEntry("100")
	dp.polyMinArea = newNumberEntry("100")

	dp.hostEntry = widget.NewEntry()
	dp.hostEntry.SetText(p.OllamaHost())
	dp.modelEntry = widget.NewEntry()
	dp.modelEntry.SetText(p.OllamaModel())

	dp.autoExtras = widget.NewCheck("Add unmatched to Extras", func(on bool) {
		state.AutoAddExtras = on
	})

	dp.runButton = widget.NewButton("Run Detection", func() {
		dp.onRun()
	})

	dp.container = container.NewVBox(
		widget.NewCard("Detector", "", dp.detectorSelect),
		widget.NewCard("Excess Green", "", container.NewVBox(
			widget.NewLabel("Threshold (0 = auto):"),
			dp.exgThreshold,
			widget.NewLabel("Min area:"),
			dp.exgMinArea,
		)),
		widget.NewCard("Shapes", "", container.NewVBox(
			widget.NewLabel("Circle radius min/max:"),
			container.NewGridWithColumns(2, dp.circleMinRadius, dp.circleMaxRadius),
			widget.NewLabel("Polygon min area:"),
			dp.polyMinArea,
		)),
		widget.NewCard("Vision Model", "", container.NewVBox(
			widget.NewLabel("Ollama host:"),
			dp.hostEntry,
			widget.NewLabel("Model:"),
			dp.modelEntry,
		)),
		widget.NewCard("Run", "", container.NewVBox(
			dp.autoExtras,
			dp.runButton,
			dp.statusLabel,
		)),
	)

	state.On(app.EventPredictionStarted, func(data interface{}) {
		dp.statusLabel.SetText(fmt.Sprintf("Running %v...", data))
		dp.runButton.Disable()
	})
	state.On(app.EventPredictionComplete, func(data interface{}) {
		dp.statusLabel.SetText(fmt.Sprintf("%v proposals", data))
		dp.runButton.Enable()
	})
	state.On(app.EventPredictionFailed, func(data interface{}) {
		dp.statusLabel.SetText(fmt.Sprintf("Failed: %v", data))
		dp.runButton.Enable()
	})
	// Results for an image the user left are dropped without an event.
	state.On(app.EventImageChanged, func(interface{}) {
		dp.runButton.Enable()
	})

	return dp
}

// Container returns the panel content.
func (dp *DetectPanel) Container() fyne.CanvasObject {
	return dp.container
}

func (dp *DetectPanel) onRun() {
	proposer, err := dp.buildProposer()
	if err != nil {
		dp.statusLabel.SetText(err.Error())
		return
	}
	if err := dp.state.RunPrediction(proposer); err != nil {
		dp.statusLabel.SetText(err.Error())
	}
}

func (dp *DetectPanel) buildProposer() (detect.Proposer, error) {
	// Proposals carry the class the draw tool is currently set to.
	class := dp.state.Editor.DrawClass()

	switch dp.detectorSelect.Selected {
	case "Circles":
		c := detect.DefaultCircles()
		c.MinRadius = intEntry(dp.circleMinRadius, c.MinRadius)
		c.MaxRadius = intEntry(dp.circleMaxRadius, c.MaxRadius)
		c.Class = class
		return c, nil
	case "Rectangles":
		r := detect.DefaultRectangles()
		r.MinArea = floatEntry(dp.polyMinArea, r.MinArea)
		r.Class = class
		return r, nil
	case "Triangles":
		tr := detect.DefaultPolygons(3)
		tr.MinArea = floatEntry(dp.polyMinArea, tr.MinArea)
		tr.Class = class
		return tr, nil
	case "Vision Model":
		host := dp.hostEntry.Text
		model := dp.modelEntry.Text
		dp.prefs.SetOllamaHost(host)
		dp.prefs.SetOllamaModel(model)
		vm, err := detect.NewVisionModel(host, model)
		if err != nil {
			return nil, err
		}
		vm.Class = class
		return vm, nil
	default:
		return &detect.ExcessGreen{
			Threshold: floatEntry(dp.exgThreshold, 0),
			MinArea:   intEntry(dp.exgMinArea, 16),
			Class:     class,
		}, nil
	}
}

func newNumberEntry(initial string) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(initial)
	return e
}

func intEntry(e *widget.Entry, fallback int) int {
	if v, err := strconv.Atoi(e.Text); err == nil {
		return v
	}
	return fallback
}

func floatEntry(e *widget.Entry, fallback float64) float64 {
	if v, err := strconv.ParseFloat(e.Text, 64); err == nil {
		return v
	}
	return fallback
}
