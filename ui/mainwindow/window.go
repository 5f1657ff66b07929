// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"path/filepath"

	"box-labeler/internal/annotate"
	"box-labeler/internal/app"
	"box-labeler/internal/version"
	"box-labeler/ui/canvas"
	"box-labeler/ui/panels"
	"box-labeler/ui/prefs"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
)

const panStep = 40

var categoryPrefNames = [annotate.NumCategories]string{"gt", "pred", "extra"}

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	canvas    *canvas.AnnotationCanvas
	sidePanel *panels.SidePanel
	statusBar *widget.Label

	navSlider *widget.Slider
	navLabel  *widget.Label
	seeking   bool

	fitToWindowItem *fyne.MenuItem
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow("Box Labeler")

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.setupKeyboard()
	mw.restoreVisibility()
	mw.restoreLastDataset()

	win.SetCloseIntercept(func() {
		mw.SavePreferences()
		win.Close()
	})

	return mw
}

// SavePreferences snapshots display settings into the preference store
// and flushes it to disk.
func (mw *MainWindow) SavePreferences() {
	for c := annotate.Category(0); c < annotate.NumCategories; c++ {
		mw.prefs.SetCategory(categoryPrefNames[c], prefs.CategoryDisplay{
			Visible: mw.state.Visibility.Visible(c),
			Opacity: mw.state.Visibility.Opacity(c),
		})
	}
	mw.prefs.SetZoom(mw.canvas.GetZoom())
	if err := mw.prefs.Save(); err != nil {
		mw.state.Logger().Printf("Failed to save preferences: %v", err)
	}
}

// restoreVisibility applies display settings from the previous session.
// Categories the file never recorded keep their defaults.
func (mw *MainWindow) restoreVisibility() {
	for c := annotate.Category(0); c < annotate.NumCategories; c++ {
		if d, ok := mw.prefs.Category(categoryPrefNames[c]); ok {
			mw.state.Visibility.SetVisible(c, d.Visible)
			mw.state.Visibility.SetOpacity(c, d.Opacity)
		}
	}
	if z := mw.prefs.Zoom(); z > 0 {
		mw.canvas.SetZoom(z)
	}
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewAnnotationCanvas(mw.state)

	mw.sidePanel = panels.NewSidePanel(mw.state, mw.prefs)
	mw.sidePanel.SetWindow(mw.Window)

	mw.statusBar = widget.NewLabel("Ready")

	toolbar := mw.createToolbar()
	navBar := mw.createNavBar()

	canvasArea := container.NewBorder(
		toolbar,               // top
		navBar,                // bottom
		nil,                   // left
		nil,                   // right
		mw.canvas.Container(), // center
	)

	split := container.NewHSplit(
		mw.sidePanel.Container(),
		canvasArea,
	)
	split.SetOffset(0.25)

	content := container.NewBorder(
		nil,                               // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		split,                             // center
	)

	mw.SetContent(content)
}

// createToolbar creates the toolbar with zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	zoomOutBtn := widget.NewButton("-", func() {
		mw.onZoomOut()
	})
	zoomInBtn := widget.NewButton("+", func() {
		mw.onZoomIn()
	})
	fitBtn := widget.NewButton("Fit", func() {
		mw.onToggleFitToWindow()
	})
	actualBtn := widget.NewButton("1:1", func() {
		mw.onActualSize()
	})

	return container.NewHBox(
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		zoomInBtn,
		fitBtn,
		actualBtn,
	)
}

// createNavBar builds the image navigation strip below the canvas.
func (mw *MainWindow) createNavBar() fyne.CanvasObject {
	prevBtn := widget.NewButton("<", func() {
		mw.navigate(mw.state.PrevImage)
	})
	nextBtn := widget.NewButton(">", func() {
		mw.navigate(mw.state.NextImage)
	})

	mw.navLabel = widget.NewLabel("-/-")

	mw.navSlider = widget.NewSlider(0, 0)
	mw.navSlider.Step = 1
	mw.navSlider.OnChanged = func(v float64) {
		if mw.seeking || !mw.state.HasDataset() {
			return
		}
		if err := mw.state.SeekImage(int(v)); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}

	return container.NewBorder(nil, nil,
		container.NewHBox(prevBtn, nextBtn), mw.navLabel, mw.navSlider)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Dataset...", mw.onOpenDataset),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Labels", mw.onSave),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Draw Mode", func() { mw.state.SetMode(annotate.ModeDraw) }),
		fyne.NewMenuItem("Move/Resize Mode", func() { mw.state.SetMode(annotate.ModeMoveResize) }),
		fyne.NewMenuItem("Delete Mode", func() { mw.state.SetMode(annotate.ModeDelete) }),
		fyne.NewMenuItem("Validate Mode", func() { mw.state.SetMode(annotate.ModeValidate) }),
	)

	mw.fitToWindowItem = fyne.NewMenuItem("  Fit to Window", mw.onToggleFitToWindow)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		mw.fitToWindowItem,
		fyne.NewMenuItem("Actual Size", mw.onActualSize),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mainMenu := fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu)
	mw.SetMainMenu(mainMenu)
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventDatasetOpened, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.SetTitle("Box Labeler - " + filepath.Base(path))
			mw.updateStatus("Dataset opened: " + path)
		}
		mw.resetNavRange()
	})

	mw.state.On(app.EventImageChanged, func(interface{}) {
		mw.canvas.ImageChanged()
		mw.updateNav()
	})

	mw.state.On(app.EventBoxesChanged, func(interface{}) {
		mw.canvas.Refresh()
	})

	mw.state.On(app.EventVisibilityChanged, func(interface{}) {
		mw.canvas.Refresh()
	})

	mw.state.On(app.EventModeChanged, func(data interface{}) {
		if mode, ok := data.(annotate.Mode); ok {
			mw.updateStatus("Mode: " + mode.String())
		}
	})

	mw.state.On(app.EventSaved, func(data interface{}) {
		if name, ok := data.(string); ok {
			mw.updateStatus("Saved labels for " + name)
		}
	})

	mw.state.On(app.EventModified, func(data interface{}) {
		if modified, ok := data.(bool); ok {
			title := mw.Title()
			if modified && len(title) > 0 && title[len(title)-1] != '*' {
				mw.SetTitle(title + " *")
			}
		}
	})

	mw.state.On(app.EventNotification, func(data interface{}) {
		if msg, ok := data.(string); ok {
			mw.updateStatus(msg)
		}
	})

	mw.state.On(app.EventPredictionComplete, func(interface{}) {
		mw.canvas.Refresh()
	})
}

// setupKeyboard wires shortcuts that do not live in menus. Arrow keys
// navigate between images; with shift held they pan the view instead.
func (mw *MainWindow) setupKeyboard() {
	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyLeft:
			mw.navigate(mw.state.PrevImage)
		case fyne.KeyRight:
			mw.navigate(mw.state.NextImage)
		case fyne.KeyUp:
			mw.canvas.Pan(0, -panStep)
		case fyne.KeyDown:
			mw.canvas.Pan(0, panStep)
		case fyne.KeyS:
			mw.onSave()
		case fyne.KeyEscape:
			mw.state.SetMode(annotate.ModeNone)
		}
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) navigate(step func() error) {
	if !mw.state.HasDataset() {
		return
	}
	if err := step(); err != nil {
		dialog.ShowError(err, mw.Window)
	}
}

// resetNavRange resizes the slider after a dataset is opened or an
// image is deleted.
func (mw *MainWindow) resetNavRange() {
	if !mw.state.HasDataset() {
		return
	}
	mw.seeking = true
	mw.navSlider.Max = float64(mw.state.Dataset.Count() - 1)
	mw.seeking = false
	mw.updateNav()
}

func (mw *MainWindow) updateNav() {
	if !mw.state.HasDataset() || mw.state.Image == nil {
		mw.navLabel.SetText("-/-")
		return
	}
	ds := mw.state.Dataset
	if max := float64(ds.Count() - 1); mw.navSlider.Max != max {
		mw.navSlider.Max = max
	}
	mw.seeking = true
	mw.navSlider.SetValue(float64(ds.Index()))
	mw.seeking = false
	mw.navLabel.SetText(fmt.Sprintf("%d/%d %s", ds.Index()+1, ds.Count(), ds.Name()))
}

// getLastDir returns the last used dataset directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.LastDataset()
	if path == "" {
		return nil
	}
	uri := storage.NewFileURI(filepath.Dir(path))
	listable, err := storage.ListerForURI(uri)
	if err != nil {
		return nil
	}
	return listable
}

// restoreLastDataset reopens the dataset from the previous session.
func (mw *MainWindow) restoreLastDataset() {
	path := mw.prefs.LastDataset()
	if path == "" {
		return
	}
	if err := mw.state.OpenDataset(path); err != nil {
		mw.updateStatus(fmt.Sprintf("Could not reopen %s: %v", path, err))
		return
	}
	mw.state.SetModified(false)
}

// Menu action handlers

func (mw *MainWindow) onOpenDataset() {
	fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil || uri == nil {
			return
		}
		path := uri.Path()
		if err := mw.state.OpenDataset(path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.prefs.SetLastDataset(path)
	}, mw.Window)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSave() {
	if !mw.state.HasDataset() {
		return
	}
	if err := mw.state.SaveCurrent(); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	// Drop the modified marker from the title.
	title := mw.Title()
	if len(title) > 1 && title[len(title)-1] == '*' {
		mw.SetTitle(title[:len(title)-2])
	}
}

func (mw *MainWindow) onZoomIn() {
	mw.disableFitToWindow()
	mw.canvas.ZoomIn()
}

func (mw *MainWindow) onZoomOut() {
	mw.disableFitToWindow()
	mw.canvas.ZoomOut()
}

func (mw *MainWindow) onToggleFitToWindow() {
	enabled := !mw.canvas.GetFitToWindow()
	mw.canvas.SetFitToWindow(enabled)

	if enabled {
		mw.fitToWindowItem.Label = "✓ Fit to Window"
	} else {
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}

func (mw *MainWindow) onActualSize() {
	mw.disableFitToWindow()
	mw.canvas.SetZoom(1.0)
}

func (mw *MainWindow) disableFitToWindow() {
	if mw.canvas.GetFitToWindow() {
		mw.canvas.SetFitToWindow(false)
		mw.fitToWindowItem.Label = "  Fit to Window"
	}
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About Box Labeler",
		fmt.Sprintf("Box Labeler v%s\n\n"+
			"A bounding-box annotation tool for object detection datasets.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
