// Package panels provides UI panels for the planner window.
package panels

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"lpwan-planner/internal/heatmap"
	"lpwan-planner/internal/interact"
	"lpwan-planner/internal/linkbudget"
	"lpwan-planner/internal/scene"
	"lpwan-planner/ui/canvas"
)

// wallMaterials lists the selectable wall materials in menu order.
var wallMaterials = []string{"brick", "cement", "wood", "glass", "metal"}

// SidePanel provides the main side panel with tabbed sections.
type SidePanel struct {
	container *container.AppTabs

	toolsPanel   *ToolsPanel
	displayPanel *DisplayPanel
	simPanel     *SimulationPanel
}

// NewSidePanel creates a new side panel.
func NewSidePanel(store *scene.Store, machine *interact.Machine, cvs *canvas.PlannerCanvas, renderer *heatmap.Renderer) *SidePanel {
	sp := &SidePanel{}

	sp.toolsPanel = NewToolsPanel(machine, cvs)
	sp.displayPanel = NewDisplayPanel(cvs, renderer)
	sp.simPanel = NewSimulationPanel(store, renderer, cvs)

	sp.container = container.NewAppTabs(
		container.NewTabItem("Tools", sp.toolsPanel.Container()),
		container.NewTabItem("Display", sp.displayPanel.Container()),
		container.NewTabItem("Simulation", sp.simPanel.Container()),
	)

	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// AutoSimulate reports whether simulation should run after every edit.
func (sp *SidePanel) AutoSimulate() bool {
	return sp.simPanel.autoCheck.Checked
}

// OnSimulateNow registers the manual simulation trigger.
func (sp *SidePanel) OnSimulateNow(fn func()) {
	sp.simPanel.onSimulate = fn
}

// OnEnvironmentChanged registers the environment-class change callback.
func (sp *SidePanel) OnEnvironmentChanged(fn func(linkbudget.Environment)) {
	sp.displayPanel.onEnvChanged = fn
}

// SetEnvironment selects the environment class without firing callbacks.
func (sp *SidePanel) SetEnvironment(env linkbudget.Environment) {
	sp.displayPanel.setEnvironment(env)
}

// SetSimStatus updates the simulation status line.
func (sp *SidePanel) SetSimStatus(text string) {
	sp.simPanel.statusLabel.SetText(text)
}

// RefreshStats re-reads coverage statistics from the renderer.
func (sp *SidePanel) RefreshStats() {
	sp.simPanel.refreshStats()
}

// ClearSelection resets the tool palette to no selection.
func (sp *SidePanel) ClearSelection() {
	sp.toolsPanel.clearSelection()
}

// ToolsPanel holds the device and obstacle placement palette.
type ToolsPanel struct {
	machine   *interact.Machine
	canvas    *canvas.PlannerCanvas
	container fyne.CanvasObject

	deviceSelect   *widget.RadioGroup
	obstacleSelect *widget.RadioGroup
	materialSelect *widget.Select
	measureButton  *widget.Button

	deviceByName   map[string]scene.DeviceType
	obstacleByName map[string]scene.ObstacleType

	// Guards against callback loops while one group clears the other.
	syncing bool
}

// NewToolsPanel creates the tool palette.
func NewToolsPanel(machine *interact.Machine, cvs *canvas.PlannerCanvas) *ToolsPanel {
	tp := &ToolsPanel{
		machine:        machine,
		canvas:         cvs,
		deviceByName:   make(map[string]scene.DeviceType),
		obstacleByName: make(map[string]scene.ObstacleType),
	}

	deviceNames := make([]string, 0, len(scene.DeviceTypes))
	for _, t := range scene.DeviceTypes {
		deviceNames = append(deviceNames, t.DisplayName())
		tp.deviceByName[t.DisplayName()] = t
	}

	obstacleNames := make([]string, 0, len(scene.ObstacleTypes))
	for _, t := range scene.ObstacleTypes {
		name := obstacleDisplayName(t)
		obstacleNames = append(obstacleNames, name)
		tp.obstacleByName[name] = t
	}

	tp.materialSelect = widget.NewSelect(wallMaterials, func(string) {
		tp.reapplyObstacleTool()
	})
	tp.materialSelect.SetSelected(wallMaterials[0])

	tp.deviceSelect = widget.NewRadioGroup(deviceNames, func(selected string) {
		if tp.syncing {
			return
		}
		if selected == "" {
			tp.onCleared()
			return
		}
		tp.syncing = true
		tp.obstacleSelect.SetSelected("")
		tp.syncing = false
		machine.SelectDeviceTool(tp.deviceByName[selected])
		cvs.Refresh()
	})

	tp.obstacleSelect = widget.NewRadioGroup(obstacleNames, func(selected string) {
		if tp.syncing {
			return
		}
		if selected == "" {
			tp.onCleared()
			return
		}
		tp.syncing = true
		tp.deviceSelect.SetSelected("")
		tp.syncing = false
		machine.SelectObstacleTool(tp.obstacleByName[selected], tp.materialSelect.Selected)
		cvs.Refresh()
	})

	tp.measureButton = widget.NewButton("Measure Distance", func() {
		tp.clearSelection()
		machine.ToggleMeasure()
		cvs.Refresh()
	})

	clearButton := widget.NewButton("Clear Tool (Esc)", func() {
		tp.clearSelection()
		machine.Deselect()
		cvs.Refresh()
	})

	tp.container = container.NewVScroll(container.NewVBox(
		widget.NewCard("Devices", "", tp.deviceSelect),
		widget.NewCard("Obstacles", "", container.NewVBox(
			tp.obstacleSelect,
			widget.NewLabel("Wall material:"),
			tp.materialSelect,
		)),
		widget.NewCard("Measure", "", tp.measureButton),
		clearButton,
	))

	return tp
}

// Container returns the panel container.
func (tp *ToolsPanel) Container() fyne.CanvasObject {
	return tp.container
}

func (tp *ToolsPanel) onCleared() {
	tp.machine.Deselect()
	tp.canvas.Refresh()
}

// reapplyObstacleTool refreshes the captured material when the wall
// material changes while an obstacle tool is active.
func (tp *ToolsPanel) reapplyObstacleTool() {
	if tp.machine.Tool().Kind != interact.ToolObstacle {
		return
	}
	tp.machine.SelectObstacleTool(tp.machine.Tool().Obstacle, tp.materialSelect.Selected)
}

func (tp *ToolsPanel) clearSelection() {
	tp.syncing = true
	tp.deviceSelect.SetSelected("")
	tp.obstacleSelect.SetSelected("")
	tp.syncing = false
}

func obstacleDisplayName(t scene.ObstacleType) string {
	switch t {
	case scene.ObstacleWall:
		return "Wall"
	case scene.ObstacleHouse:
		return "House"
	case scene.ObstacleWater:
		return "Water"
	case scene.ObstacleForest:
		return "Forest"
	case scene.ObstacleWaterTower:
		return "Water Tower"
	default:
		return "Obstacle"
	}
}

// DisplayPanel controls overlay visibility and the propagation
// environment.
type DisplayPanel struct {
	canvas    *canvas.PlannerCanvas
	renderer  *heatmap.Renderer
	container fyne.CanvasObject

	heatmapCheck      *widget.Check
	interferenceCheck *widget.Check
	linksCheck        *widget.Check
	envSelect         *widget.Select

	techChecks map[scene.Technology]*widget.Check
	meterCheck *widget.Check

	onEnvChanged func(linkbudget.Environment)
}

// NewDisplayPanel creates the display panel.
func NewDisplayPanel(cvs *canvas.PlannerCanvas, renderer *heatmap.Renderer) *DisplayPanel {
	dp := &DisplayPanel{
		canvas:     cvs,
		renderer:   renderer,
		techChecks: make(map[scene.Technology]*widget.Check),
	}

	dp.heatmapCheck = widget.NewCheck("Coverage Heatmap", func(checked bool) {
		cvs.SetShowHeatmap(checked)
	})

	dp.interferenceCheck = widget.NewCheck("Interference Overlay", func(checked bool) {
		renderer.SetInterferenceVisible(checked)
		cvs.Refresh()
	})

	dp.linksCheck = widget.NewCheck("Link Lines", func(checked bool) {
		cvs.SetShowLinks(checked)
	})
	dp.linksCheck.SetChecked(true)

	techNames := []struct {
		tech scene.Technology
		name string
	}{
		{scene.TechHaLow, "HaLow (802.11ah)"},
		{scene.TechLoRaWAN, "LoRaWAN"},
		{scene.TechNBIoT, "NB-IoT"},
	}
	techBox := container.NewVBox()
	for _, tn := range techNames {
		check := widget.NewCheck(tn.name, func(bool) {
			dp.applyTechFilter()
		})
		check.SetChecked(true)
		dp.techChecks[tn.tech] = check
		techBox.Add(check)
	}
	dp.meterCheck = widget.NewCheck("Power Meters", func(bool) {
		dp.applyTechFilter()
	})
	dp.meterCheck.SetChecked(true)
	techBox.Add(dp.meterCheck)

	dp.envSelect = widget.NewSelect([]string{"rural", "suburban", "urban"}, func(selected string) {
		env := linkbudget.EnvironmentFromString(selected)
		cvs.SetEnvironment(env)
		if dp.onEnvChanged != nil {
			dp.onEnvChanged(env)
		}
	})
	dp.envSelect.SetSelected("suburban")

	dp.container = container.NewVScroll(container.NewVBox(
		widget.NewCard("Overlays", "", container.NewVBox(
			dp.heatmapCheck,
			dp.interferenceCheck,
			dp.linksCheck,
		)),
		widget.NewCard("Technologies", "", techBox),
		widget.NewCard("Environment", "", dp.envSelect),
	))

	return dp
}

// Container returns the panel container.
func (dp *DisplayPanel) Container() fyne.CanvasObject {
	return dp.container
}

func (dp *DisplayPanel) setEnvironment(env linkbudget.Environment) {
	dp.envSelect.SetSelected(env.String())
}

// applyTechFilter rebuilds the visibility predicate from the checkboxes
// and installs it on the canvas.
func (dp *DisplayPanel) applyTechFilter() {
	visible := map[scene.Technology]bool{
		scene.TechHaLow:   dp.techChecks[scene.TechHaLow].Checked,
		scene.TechLoRaWAN: dp.techChecks[scene.TechLoRaWAN].Checked,
		scene.TechNBIoT:   dp.techChecks[scene.TechNBIoT].Checked,
	}
	meters := dp.meterCheck.Checked

	dp.canvas.SetTechFilter(func(t scene.DeviceType) bool {
		if t.Role() == scene.RoleNoise {
			return meters
		}
		return visible[t.Technology()]
	})
}

// SimulationPanel holds the simulation trigger and coverage statistics.
type SimulationPanel struct {
	store     *scene.Store
	renderer  *heatmap.Renderer
	canvas    *canvas.PlannerCanvas
	container fyne.CanvasObject

	autoCheck   *widget.Check
	statusLabel *widget.Label
	statsLabel  *widget.Label
	gridLabel   *widget.Label

	onSimulate func()
}

// NewSimulationPanel creates the simulation panel.
func NewSimulationPanel(store *scene.Store, renderer *heatmap.Renderer, cvs *canvas.PlannerCanvas) *SimulationPanel {
	sp := &SimulationPanel{
		store:    store,
		renderer: renderer,
		canvas:   cvs,
	}

	// Toggling simulation off discards the displayed grid rather than
	// letting it go stale against further edits.
	sp.autoCheck = widget.NewCheck("Simulate after every edit", func(checked bool) {
		if checked {
			return
		}
		sp.clearResults()
	})

	simulateButton := widget.NewButton("Simulate Now", func() {
		if sp.onSimulate != nil {
			sp.onSimulate()
		}
	})

	sp.statusLabel = widget.NewLabel("No simulation run")
	sp.statusLabel.Wrapping = fyne.TextWrapWord
	sp.statsLabel = widget.NewLabel("")
	sp.statsLabel.Wrapping = fyne.TextWrapWord

	sp.gridLabel = widget.NewLabel(gridSummary(store.Grid()))
	store.On(scene.EventGridChanged, func(interface{}) {
		sp.gridLabel.SetText(gridSummary(store.Grid()))
	})

	sp.container = container.NewVScroll(container.NewVBox(
		widget.NewCard("Simulation", "", container.NewVBox(
			sp.autoCheck,
			simulateButton,
			sp.statusLabel,
		)),
		widget.NewCard("Coverage", "", sp.statsLabel),
		widget.NewCard("Grid", "", sp.gridLabel),
	))

	return sp
}

// Container returns the panel container.
func (sp *SimulationPanel) Container() fyne.CanvasObject {
	return sp.container
}

func (sp *SimulationPanel) clearResults() {
	sp.renderer.Clear()
	sp.refreshStats()
	sp.statusLabel.SetText("No simulation run")
	sp.canvas.Refresh()
}

func (sp *SimulationPanel) refreshStats() {
	stats, ok := sp.renderer.Stats()
	if !ok {
		sp.statsLabel.SetText("")
		return
	}
	sp.statsLabel.SetText(fmt.Sprintf(
		"Coverage: %.1f%%\nMean RSSI: %.1f dBm\nMean SNR: %.1f dB\nPoints: %d",
		stats.CoveragePct, stats.MeanRSSIDBm, stats.MeanSNRDB, stats.TotalPoints,
	))
}

func gridSummary(g scene.GridConfig) string {
	return fmt.Sprintf("%.1f × %.1f km\n%.0f m resolution (%d × %d cells)",
		g.WidthKm, g.HeightKm, g.ResolutionM, g.Rows(), g.Cols())
}
