// Package main provides the entry point for the Box Labeler application.
package main

import (
	"log"
	"os"
	"time"

	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"

	"box-labeler/internal/app"
	"box-labeler/ui/mainwindow"
	"box-labeler/ui/prefs"

	"fyne.io/fyne/v2"
)

const appTitle = "Box Labeler"

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)
	logger.Printf("Starting %s", appTitle)

	fyneApp := fyneapp.NewWithID("box-labeler")
	fyneApp.Settings().SetTheme(&app.LabelerTheme{})

	appState := app.NewState(logger)
	// Detection finishes on a worker goroutine; results must land on the
	// Fyne main thread before boxes or widgets are touched.
	appState.SetDispatcher(fyne.Do)
	appPrefs := prefs.Load()

	win := mainwindow.New(fyneApp, appState, appPrefs)
	win.Resize(fyne.NewSize(1280, 800))

	// Open a dataset directory passed on the command line.
	if len(os.Args) > 1 {
		if err := appState.OpenDataset(os.Args[1]); err != nil {
			logger.Printf("Failed to open dataset %s: %v", os.Args[1], err)
		}
	}

	setupHotReload(win, logger)

	win.ShowAndRun()
}

// setupHotReload configures automatic restart detection when the binary is
// recompiled.
func setupHotReload(win *mainwindow.MainWindow, logger *log.Logger) {
	reloader := app.NewHotReloader(2 * time.Second)
	if reloader == nil {
		logger.Println("Hot reload: unable to determine executable path")
		return
	}

	logger.Printf("Hot reload: watching %s (modified %s)",
		reloader.ExecPath(), reloader.StartupTime().Format("15:04:05"))

	reloader.OnTick(func() {
		fyne.Do(win.SavePreferences)
	})

	reloader.OnNewBinary(func() {
		logger.Println("Hot reload: newer binary detected")
		fyne.Do(func() { promptRestart(win, reloader, logger) })
	})

	reloader.Start()
}

func promptRestart(win *mainwindow.MainWindow, reloader *app.HotReloader, logger *log.Logger) {
	dialog.ShowConfirm("New Version Available",
		"The application binary has been updated.\nRestart now?",
		func(restart bool) {
			if !restart {
				reloader.ResetBaseline()
				reloader.Start()
				return
			}
			logger.Println("Hot reload: saving preferences before restart...")
			win.SavePreferences()
			logger.Println("Hot reload: restarting...")
			if err := reloader.Restart(); err != nil {
				logger.Printf("Hot reload: restart failed: %v", err)
			}
		}, win)
}
