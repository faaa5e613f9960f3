// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lpwan-planner/internal/config"
	"lpwan-planner/internal/heatmap"
	"lpwan-planner/internal/interact"
	"lpwan-planner/internal/linkbudget"
	"lpwan-planner/internal/scene"
	"lpwan-planner/internal/simclient"
	"lpwan-planner/internal/version"
	"lpwan-planner/internal/viewport"
	"lpwan-planner/ui/canvas"
	"lpwan-planner/ui/panels"
)

// Initial display size used to derive the base pixels-per-km scale; the
// viewport tracks the real size once the window is laid out.
const (
	initialCanvasW = 1000
	initialCanvasH = 700
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app fyne.App
	cfg *config.Config

	store    *scene.Store
	vp       *viewport.Viewport
	machine  *interact.Machine
	renderer *heatmap.Renderer
	client   *simclient.Client

	canvas    *canvas.PlannerCanvas
	sidePanel *panels.SidePanel
	statusBar *widget.Label

	env    linkbudget.Environment
	logger zerolog.Logger
}

// New creates a new main window wired to a fresh scene.
func New(fyneApp fyne.App, cfg *config.Config) *MainWindow {
	win := fyneApp.NewWindow("LPWAN Planner")

	mw := &MainWindow{
		Window:   win,
		app:      fyneApp,
		cfg:      cfg,
		store:    scene.NewStore(cfg.Grid),
		renderer: heatmap.NewRenderer(),
		client:   simclient.New(cfg.Simulator.BaseURL, cfg.Simulator.Timeout),
		env:      linkbudget.EnvironmentFromString(cfg.Editor.Environment),
		logger:   log.With().Str("component", "mainwindow").Logger(),
	}
	mw.vp = viewport.New(cfg.Grid, initialCanvasW, initialCanvasH, 1.0)
	mw.machine = interact.New(mw.store, mw.vp, config.DeviceDefaults)

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	win.Resize(fyne.NewSize(1280, 800))
	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewPlannerCanvas(mw.store, mw.vp, mw.machine, mw.renderer)
	mw.canvas.SetEnvironment(mw.env)

	mw.sidePanel = panels.NewSidePanel(mw.store, mw.machine, mw.canvas, mw.renderer)
	mw.sidePanel.SetEnvironment(mw.env)
	mw.sidePanel.OnSimulateNow(mw.runSimulation)
	mw.sidePanel.OnEnvironmentChanged(func(env linkbudget.Environment) {
		mw.env = env
		if mw.sidePanel.AutoSimulate() {
			mw.runSimulation()
		}
	})

	mw.statusBar = widget.NewLabel("Ready")

	toolbar := mw.createToolbar()

	canvasArea := container.NewBorder(
		toolbar, // top
		nil,     // bottom
		nil,     // left
		nil,     // right
		mw.canvas,
	)

	split := container.NewHSplit(
		mw.sidePanel.Container(),
		canvasArea,
	)
	split.SetOffset(0.22)

	content := container.NewBorder(
		nil,                               // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		split,                             // center
	)

	mw.SetContent(content)

	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			mw.sidePanel.ClearSelection()
			mw.canvas.EscapePressed()
		}
	})
}

// createToolbar creates the toolbar with zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	zoomOutBtn := widget.NewButton("-", mw.onZoomOut)
	zoomInBtn := widget.NewButton("+", mw.onZoomIn)
	resetBtn := widget.NewButton("1:1", mw.onResetZoom)

	return container.NewHBox(
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		zoomInBtn,
		resetBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Scene", mw.onNewScene),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Grid Settings...", mw.onGridSettings),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		fyne.NewMenuItem("Actual Size", mw.onResetZoom),
	)

	simMenu := fyne.NewMenu("Simulation",
		fyne.NewMenuItem("Simulate Now", mw.runSimulation),
		fyne.NewMenuItem("Clear Results", mw.onClearResults),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, simMenu, helpMenu))
}

// setupEventHandlers registers for scene and interaction events.
func (mw *MainWindow) setupEventHandlers() {
	mw.store.On(scene.EventDevicesChanged, func(interface{}) {
		mw.canvas.SyncDominantTechnology()
		mw.canvas.Refresh()
	})
	mw.store.On(scene.EventObstaclesChanged, func(interface{}) {
		mw.canvas.Refresh()
	})
	mw.store.On(scene.EventGridChanged, func(data interface{}) {
		if grid, ok := data.(scene.GridConfig); ok {
			mw.vp.SetExtent(grid)
		}
		mw.renderer.Clear()
		mw.canvas.Refresh()
	})

	mw.machine.OnSceneEdit(func() {
		if mw.sidePanel.AutoSimulate() {
			mw.runSimulation()
		}
	})
}

// runSimulation snapshots the scene and posts it to the engine. The
// result lands asynchronously; stale responses are dropped by the client.
func (mw *MainWindow) runSimulation() {
	req := simclient.BuildRequest(
		mw.store.Grid(),
		mw.store.Devices(),
		mw.store.Obstacles(),
		mw.env,
		mw.cfg.Editor.ShadowFading,
		mw.cfg.Editor.Multipath,
	)

	mw.sidePanel.SetSimStatus("Simulating...")
	mw.updateStatus("Simulation running")

	mw.client.Simulate(context.Background(), req, func(data *heatmap.Data, err error) {
		if err != nil {
			mw.logger.Warn().Err(err).Msg("simulation failed")
			mw.sidePanel.SetSimStatus("Error: " + err.Error())
			mw.updateStatus("Simulation failed")
			return
		}
		mw.renderer.SetData(data)
		mw.canvas.SetShowHeatmap(true)
		mw.sidePanel.SetSimStatus("Done")
		mw.sidePanel.RefreshStats()
		mw.updateStatus("Simulation complete")
		mw.canvas.Refresh()
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// Menu action handlers

func (mw *MainWindow) onNewScene() {
	mw.store.Clear()
	mw.machine.Deselect()
	mw.sidePanel.ClearSelection()
	mw.renderer.Clear()
	mw.sidePanel.SetSimStatus("No simulation run")
	mw.sidePanel.RefreshStats()
	mw.canvas.Refresh()
	mw.updateStatus("New scene")
}

func (mw *MainWindow) onGridSettings() {
	grid := mw.store.Grid()

	widthEntry := widget.NewEntry()
	widthEntry.SetText(strconv.FormatFloat(grid.WidthKm, 'f', 1, 64))
	heightEntry := widget.NewEntry()
	heightEntry.SetText(strconv.FormatFloat(grid.HeightKm, 'f', 1, 64))
	resEntry := widget.NewEntry()
	resEntry.SetText(strconv.FormatFloat(grid.ResolutionM, 'f', 0, 64))

	items := []*widget.FormItem{
		widget.NewFormItem("Width (km)", widthEntry),
		widget.NewFormItem("Height (km)", heightEntry),
		widget.NewFormItem("Resolution (m)", resEntry),
	}

	dialog.ShowForm("Grid Settings", "Apply", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		next := grid
		if v, err := strconv.ParseFloat(widthEntry.Text, 64); err == nil && v > 0 {
			next.WidthKm = v
		}
		if v, err := strconv.ParseFloat(heightEntry.Text, 64); err == nil && v > 0 {
			next.HeightKm = v
		}
		if v, err := strconv.ParseFloat(resEntry.Text, 64); err == nil && v > 0 {
			next.ResolutionM = v
		}
		mw.store.SetGrid(next)
		mw.updateStatus(fmt.Sprintf("Grid: %.1f x %.1f km @ %.0f m", next.WidthKm, next.HeightKm, next.ResolutionM))
	}, mw.Window)
}

func (mw *MainWindow) onZoomIn() {
	mw.vp.ZoomIn()
	mw.canvas.Refresh()
}

func (mw *MainWindow) onZoomOut() {
	mw.vp.ZoomOut()
	mw.canvas.Refresh()
}

func (mw *MainWindow) onResetZoom() {
	mw.vp.SetZoom(1.0)
	mw.canvas.Refresh()
}

func (mw *MainWindow) onClearResults() {
	mw.renderer.Clear()
	mw.canvas.SetShowHeatmap(false)
	mw.sidePanel.SetSimStatus("No simulation run")
	mw.sidePanel.RefreshStats()
	mw.canvas.Refresh()
	mw.updateStatus("Results cleared")
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About LPWAN Planner",
		fmt.Sprintf("LPWAN Planner v%s\n\n"+
			"An interactive planning surface for low-power wide-area\n"+
			"wireless networks (HaLow, LoRaWAN, NB-IoT).\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
