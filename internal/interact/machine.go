// Package interact owns the current tool and editing mode and drives all
// scene mutations in response to pointer and keyboard input.
//
// Input arrives through an explicit event queue and redraws are requested
// through a flag consumed once per scheduling tick, so the whole state
// machine is testable without a display surface.
package interact

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lpwan-planner/internal/hittest"
	"lpwan-planner/internal/scene"
	"lpwan-planner/internal/viewport"
	"lpwan-planner/pkg/geometry"
)

// DragThresholdPx is how far (canvas pixels) the pointer must travel from
// its down position before the gesture counts as a drag, not a click.
const DragThresholdPx = 4.0

// State is the current editing mode.
type State int

const (
	StateIdle State = iota
	StatePlacing
	StateDrawingObstacle
	StateDragging
	StateResizing
	StateMeasuring
)

// ToolKind tags the selected tool variant.
type ToolKind int

const (
	ToolNone ToolKind = iota
	ToolDevice
	ToolObstacle
	ToolMeasure
)

// Tool is the palette selection, held independently of the state.
type Tool struct {
	Kind     ToolKind
	Device   scene.DeviceType
	Obstacle scene.ObstacleType
}

// Measurement holds up to two snapped points and the distance between
// them. It is transient: cleared on tool change or Escape.
type Measurement struct {
	Points     []geometry.Point2D
	DistanceKm float64
}

// Complete reports whether both points are set.
func (m Measurement) Complete() bool {
	return len(m.Points) == 2
}

// ParamsFunc supplies the RF parameters captured when a device of the
// given type is placed.
type ParamsFunc func(scene.DeviceType) scene.RFParams

// Machine is the interaction state machine.
type Machine struct {
	store  *scene.Store
	vp     *viewport.Viewport
	params ParamsFunc
	logger zerolog.Logger

	queue []Event

	state State
	tool  Tool

	wallMaterial string

	// drag / resize targets
	dragDeviceID   int
	dragObstacleID int
	dragOffset     geometry.Point2D
	resizeID       int
	resizeAnchor   geometry.Point2D

	// drawing
	drawAnchor  geometry.Point2D
	provisional *scene.Obstacle

	// click vs drag
	downCanvas geometry.Point2D
	didMove    bool

	measure Measurement

	redrawRequested bool
	onSceneEdit     func()
}

// New creates a machine over the given store and viewport.
func New(store *scene.Store, vp *viewport.Viewport, params ParamsFunc) *Machine {
	return &Machine{
		store:  store,
		vp:     vp,
		params: params,
		logger: log.With().Str("component", "interact").Logger(),
		state:  StateIdle,
	}
}

// OnSceneEdit registers the callback fired after every committed edit
// (placement, obstacle commit, move, resize, deletion). The main window
// uses it to re-trigger an active simulation.
func (m *Machine) OnSceneEdit(fn func()) {
	m.onSceneEdit = fn
}

// State returns the current editing mode.
func (m *Machine) State() State {
	return m.state
}

// Tool returns the currently selected tool.
func (m *Machine) Tool() Tool {
	return m.tool
}

// Measure returns the current measurement selection.
func (m *Machine) Measure() Measurement {
	return m.measure
}

// Provisional returns the obstacle being drawn, or nil.
func (m *Machine) Provisional() *scene.Obstacle {
	return m.provisional
}

// RequestRedraw marks the scene dirty for the next scheduling tick.
func (m *Machine) RequestRedraw() {
	m.redrawRequested = true
}

// ConsumeRedraw reports and clears the redraw flag. Multiple mutations
// within one tick coalesce into a single repaint.
func (m *Machine) ConsumeRedraw() bool {
	r := m.redrawRequested
	m.redrawRequested = false
	return r
}

// SelectDeviceTool selects a device placement tool.
func (m *Machine) SelectDeviceTool(t scene.DeviceType) {
	m.tool = Tool{Kind: ToolDevice, Device: t}
	m.clearMeasure()
	if m.state == StateMeasuring {
		m.state = StateIdle
	}
	m.RequestRedraw()
}

// SelectObstacleTool selects an obstacle drawing tool. The material is
// captured for walls; other types default to their type name.
func (m *Machine) SelectObstacleTool(t scene.ObstacleType, material string) {
	m.tool = Tool{Kind: ToolObstacle, Obstacle: t}
	m.wallMaterial = material
	m.clearMeasure()
	if m.state == StateMeasuring {
		m.state = StateIdle
	}
	m.RequestRedraw()
}

// Deselect clears the tool and measurement and returns to idle.
func (m *Machine) Deselect() {
	m.deselect()
}

// ToggleMeasure switches the measure tool on or off. Measuring is sticky:
// it stays active across clicks until explicitly toggled off.
func (m *Machine) ToggleMeasure() {
	if m.state == StateMeasuring {
		m.deselect()
		return
	}
	m.tool = Tool{Kind: ToolMeasure}
	m.state = StateMeasuring
	m.clearMeasure()
	m.RequestRedraw()
}

// pointerDown evaluates the transition table in priority order.
func (m *Machine) pointerDown(screen geometry.Point2D) {
	canvasPt := m.vp.ScreenToCanvas(screen)
	pt := m.vp.CanvasToKm(canvasPt)
	m.downCanvas = canvasPt
	m.didMove = false

	if m.state == StateMeasuring {
		m.measureClick(pt)
		return
	}

	devices := m.store.Devices()
	obstacles := m.store.Obstacles()
	pxPerKm := m.vp.PxPerKm()

	if o := hittest.HandleAt(obstacles, pt, pxPerKm); o != nil {
		m.state = StateResizing
		m.resizeID = o.ID
		m.resizeAnchor = o.Bounds.TopLeft()
		m.RequestRedraw()
		return
	}

	if d := hittest.DeviceAt(devices, pt, pxPerKm); d != nil {
		m.state = StateDragging
		m.dragDeviceID = d.ID
		m.dragObstacleID = 0
		m.RequestRedraw()
		return
	}

	if o := hittest.ObstacleAt(obstacles, pt); o != nil && m.tool.Kind == ToolNone {
		m.beginObstacleDrag(o, pt)
		return
	}

	if m.tool.Kind == ToolObstacle {
		m.state = StateDrawingObstacle
		grid := m.store.Grid()
		m.drawAnchor = pt.Clamp(grid.WidthKm, grid.HeightKm)
		m.provisional = &scene.Obstacle{
			Type:     m.tool.Obstacle,
			Material: m.obstacleMaterial(),
			Bounds:   geometry.NewRect(m.drawAnchor.X, m.drawAnchor.Y, 0, 0),
		}
		m.RequestRedraw()
		return
	}

	if m.tool.Kind == ToolDevice {
		// Commit happens on pointer-up so a drag can still deselect
		// instead of placing.
		m.state = StatePlacing
		return
	}

	if o := hittest.ObstacleAt(obstacles, pt); o != nil {
		m.beginObstacleDrag(o, pt)
	}
}

func (m *Machine) beginObstacleDrag(o *scene.Obstacle, pt geometry.Point2D) {
	m.state = StateDragging
	m.dragObstacleID = o.ID
	m.dragDeviceID = 0
	// Capture the grab offset so the obstacle does not jump to the cursor.
	m.dragOffset = pt.Sub(o.Bounds.TopLeft())
	m.RequestRedraw()
}

func (m *Machine) pointerMove(screen geometry.Point2D) {
	canvasPt := m.vp.ScreenToCanvas(screen)
	pt := m.vp.CanvasToKm(canvasPt)

	if canvasPt.Distance(m.downCanvas) > DragThresholdPx {
		m.didMove = true
	}

	switch m.state {
	case StateDragging:
		if m.dragDeviceID != 0 {
			m.store.MoveDevice(m.dragDeviceID, pt)
		} else if m.dragObstacleID != 0 {
			m.store.MoveObstacle(m.dragObstacleID, pt.Sub(m.dragOffset))
		}
		m.RequestRedraw()

	case StateResizing:
		// Anchored at top-left, growing down-right only.
		m.store.ResizeObstacle(m.resizeID, pt.X-m.resizeAnchor.X, pt.Y-m.resizeAnchor.Y)
		m.RequestRedraw()

	case StateDrawingObstacle:
		grid := m.store.Grid()
		cursor := pt.Clamp(grid.WidthKm, grid.HeightKm)
		// min/max of anchor and cursor, so drawing works in any direction.
		m.provisional.Bounds = geometry.FromCorners(m.drawAnchor, cursor)
		m.RequestRedraw()
	}
}

func (m *Machine) pointerUp(screen geometry.Point2D) {
	pt := m.vp.CanvasToKm(m.vp.ScreenToCanvas(screen))

	switch m.state {
	case StatePlacing:
		if !m.didMove {
			d := m.store.AddDevice(m.tool.Device, pt, m.captureParams(m.tool.Device))
			m.logger.Info().Int("id", d.ID).Str("label", d.Label).Msg("device placed")
			m.sceneEdited()
			m.RequestRedraw()
		}
		// Tool stays selected: repeated clicks place more devices.
		m.state = StateIdle

	case StateDrawingObstacle:
		if m.provisional != nil {
			if o, ok := m.store.CommitObstacle(m.provisional.Type, m.provisional.Bounds, m.provisional.Material); ok {
				m.logger.Info().Int("id", o.ID).Str("type", o.Type.String()).Msg("obstacle committed")
				m.sceneEdited()
			}
		}
		m.provisional = nil
		m.state = StateIdle
		m.RequestRedraw()

	case StateDragging, StateResizing:
		// Position and size were live-updated on move.
		if m.didMove {
			m.sceneEdited()
		}
		m.dragDeviceID = 0
		m.dragObstacleID = 0
		m.resizeID = 0
		m.state = StateIdle
		m.RequestRedraw()

	case StateMeasuring:
		// Sticky until explicitly toggled off.
	default:
		m.state = StateIdle
	}
}

// rightClick removes the entity under the cursor, or deselects the tool
// and clears any in-progress measurement when over empty space.
func (m *Machine) rightClick(screen geometry.Point2D) {
	pt := m.vp.CanvasToKm(m.vp.ScreenToCanvas(screen))
	pxPerKm := m.vp.PxPerKm()

	if d := hittest.DeviceAt(m.store.Devices(), pt, pxPerKm); d != nil {
		m.store.RemoveDevice(d.ID)
		m.sceneEdited()
		m.RequestRedraw()
		return
	}
	if o := hittest.ObstacleAt(m.store.Obstacles(), pt); o != nil {
		m.store.RemoveObstacle(o.ID)
		m.sceneEdited()
		m.RequestRedraw()
		return
	}
	m.deselect()
}

// escape unconditionally deselects the tool, clears the measurement, and
// returns to idle.
func (m *Machine) escape() {
	m.provisional = nil
	m.deselect()
}

func (m *Machine) wheel(dy float64) {
	if dy > 0 {
		m.vp.ZoomIn()
	} else if dy < 0 {
		m.vp.ZoomOut()
	}
	m.RequestRedraw()
}

// measureClick resolves the snap point and advances the measurement:
// first click sets the pending point, the second completes the distance,
// the next starts over with one point pending.
func (m *Machine) measureClick(pt geometry.Point2D) {
	snapped := hittest.ResolveSnap(m.store.Devices(), m.store.Obstacles(), pt, m.vp.PxPerKm())

	switch len(m.measure.Points) {
	case 1:
		m.measure.Points = append(m.measure.Points, snapped)
		m.measure.DistanceKm = m.measure.Points[0].Distance(m.measure.Points[1])
	default:
		m.measure = Measurement{Points: []geometry.Point2D{snapped}}
	}
	m.RequestRedraw()
}

func (m *Machine) deselect() {
	m.tool = Tool{}
	m.clearMeasure()
	m.state = StateIdle
	m.RequestRedraw()
}

func (m *Machine) clearMeasure() {
	m.measure = Measurement{}
}

func (m *Machine) obstacleMaterial() string {
	if m.tool.Obstacle == scene.ObstacleWall && m.wallMaterial != "" {
		return m.wallMaterial
	}
	return m.tool.Obstacle.String()
}

func (m *Machine) captureParams(t scene.DeviceType) scene.RFParams {
	if m.params == nil {
		return scene.RFParams{}
	}
	return m.params(t)
}

func (m *Machine) sceneEdited() {
	if m.onSceneEdit != nil {
		m.onSceneEdit()
	}
}
