package canvas

import (
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"lpwan-planner/internal/heatmap"
	"lpwan-planner/internal/hittest"
	"lpwan-planner/internal/interact"
	"lpwan-planner/internal/linkbudget"
	"lpwan-planner/internal/scene"
	"lpwan-planner/internal/viewport"
	"lpwan-planner/pkg/geometry"
)

var (
	backgroundColor = color.RGBA{24, 26, 27, 255}
	gridlineColor   = color.RGBA{58, 62, 64, 255}
	handleColor     = color.RGBA{240, 240, 240, 255}
	outlineColor    = color.RGBA{15, 15, 15, 255}
	labelColor      = color.RGBA{230, 230, 230, 255}
	measureColor    = color.RGBA{255, 220, 60, 255}
	provisionColor  = color.RGBA{255, 255, 0, 255}

	gatewayColor  = color.RGBA{0, 200, 220, 255}
	endpointColor = color.RGBA{120, 230, 90, 255}
	noiseColor    = color.RGBA{230, 60, 50, 255}

	linkGoodColor     = color.RGBA{60, 200, 80, 255}
	linkMarginalColor = color.RGBA{240, 200, 40, 255}
	linkDeadColor     = color.RGBA{230, 70, 50, 255}

	obstacleColors = map[scene.ObstacleType]color.RGBA{
		scene.ObstacleWall:       {130, 130, 130, 255},
		scene.ObstacleHouse:      {165, 110, 60, 255},
		scene.ObstacleWater:      {60, 120, 200, 255},
		scene.ObstacleForest:     {40, 130, 60, 255},
		scene.ObstacleWaterTower: {150, 160, 175, 255},
	}
)

const obstacleFillOpacity = 0.45

// PlannerCanvas renders the scene and routes pointer input into the
// interaction state machine.
type PlannerCanvas struct {
	widget.BaseWidget

	store    *scene.Store
	vp       *viewport.Viewport
	machine  *interact.Machine
	renderer *heatmap.Renderer

	env         linkbudget.Environment
	showHeatmap bool
	showLinks   bool
	techVisible func(scene.DeviceType) bool

	raster  *fynecanvas.Raster
	content *plannerContent
	scroll  *zoomScroll

	lastSize fyne.Size
}

// NewPlannerCanvas builds the drawing surface. The machine, viewport,
// and renderer are shared with the rest of the window.
func NewPlannerCanvas(store *scene.Store, vp *viewport.Viewport, machine *interact.Machine, renderer *heatmap.Renderer) *PlannerCanvas {
	p := &PlannerCanvas{
		store:       store,
		vp:          vp,
		machine:     machine,
		renderer:    renderer,
		env:         linkbudget.EnvSuburban,
		showLinks:   true,
		techVisible: func(scene.DeviceType) bool { return true },
	}

	p.raster = fynecanvas.NewRaster(p.draw)
	p.raster.ScaleMode = fynecanvas.ImageScalePixels
	p.content = newPlannerContent(p, p.raster)
	p.scroll = newZoomScroll(p.content, p)

	vp.OnChanged(p.updateContentSize)
	p.updateContentSize()

	p.ExtendBaseWidget(p)
	return p
}

// Container returns the scrollable canvas for embedding in layouts.
func (p *PlannerCanvas) Container() fyne.CanvasObject {
	return p.scroll
}

// SetEnvironment selects the path-loss environment for link overlays.
func (p *PlannerCanvas) SetEnvironment(env linkbudget.Environment) {
	p.env = env
	p.Refresh()
}

// SetShowHeatmap toggles the simulation raster underlay.
func (p *PlannerCanvas) SetShowHeatmap(show bool) {
	p.showHeatmap = show
	p.Refresh()
}

// SetShowLinks toggles the analytic link overlays.
func (p *PlannerCanvas) SetShowLinks(show bool) {
	p.showLinks = show
	p.Refresh()
}

// SetTechFilter installs the per-device-type visibility filter.
func (p *PlannerCanvas) SetTechFilter(visible func(scene.DeviceType) bool) {
	if visible == nil {
		visible = func(scene.DeviceType) bool { return true }
	}
	p.techVisible = visible
	p.renderer.SetDominantTechnology(scene.DominantTechnology(p.store.Devices(), visible))
	p.renderer.Invalidate()
	p.Refresh()
}

// SyncDominantTechnology re-derives the heatmap color ramp from the
// currently visible devices. Called after device placements and removals.
func (p *PlannerCanvas) SyncDominantTechnology() {
	p.renderer.SetDominantTechnology(scene.DominantTechnology(p.store.Devices(), p.techVisible))
}

// EscapePressed feeds the universal deselect into the state machine.
func (p *PlannerCanvas) EscapePressed() {
	p.machine.Enqueue(interact.Event{Kind: interact.EventEscape})
	p.pump()
}

// Refresh repaints the raster.
func (p *PlannerCanvas) Refresh() {
	p.raster.Refresh()
}

// pump drains queued input events and repaints once if anything asked
// for it.
func (p *PlannerCanvas) pump() {
	p.machine.Drain()
	if p.machine.ConsumeRedraw() {
		p.Refresh()
	}
}

// updateContentSize resizes the raster to the viewport's canvas size,
// so zooming grows the scrollable area.
func (p *PlannerCanvas) updateContentSize() {
	w, h := p.vp.CanvasSize()
	size := fyne.NewSize(float32(w), float32(h))
	p.raster.SetMinSize(size)
	p.raster.Resize(size)
	if p.content != nil {
		p.content.Resize(size)
		p.content.Refresh()
	}
	p.raster.Refresh()
	if p.scroll != nil {
		p.scroll.Refresh()
	}
}

// draw renders the full scene into the raster buffer.
func (p *PlannerCanvas) draw(w, h int) image.Image {
	output := image.NewRGBA(image.Rect(0, 0, w, h))
	stddraw.Draw(output, output.Bounds(), image.NewUniform(backgroundColor), image.Point{}, stddraw.Src)

	grid := p.store.Grid()
	canvasW, canvasH := p.vp.CanvasSize()
	if canvasW <= 0 || canvasH <= 0 || grid.WidthKm <= 0 {
		return output
	}
	// Raster pixels per canvas point; they differ on HiDPI outputs.
	scale := float64(w) / float64(canvasW)
	pxPerKm := p.vp.PxPerKm() * scale

	toPx := func(pt geometry.Point2D) (int, int) {
		c := p.vp.KmToCanvas(pt)
		return int(c.X * scale), int(c.Y * scale)
	}

	if p.showHeatmap {
		if img := p.renderer.Scaled(int(grid.WidthKm*pxPerKm), int(grid.HeightKm*pxPerKm)); img != nil {
			stddraw.Draw(output, img.Bounds(), img, image.Point{}, stddraw.Src)
		}
	}

	p.drawGridlines(output, grid, pxPerKm)
	obstacles := p.store.Obstacles()
	for _, o := range obstacles {
		p.drawObstacle(output, o, toPx, scale)
	}
	if p.showLinks {
		p.drawLinks(output, obstacles, toPx)
	}
	for _, d := range p.store.Devices() {
		if p.techVisible(d.Type) {
			p.drawDevice(output, d, toPx, scale)
		}
	}
	if prov := p.machine.Provisional(); prov != nil {
		x1, y1 := toPx(prov.Bounds.TopLeft())
		x2, y2 := toPx(prov.Bounds.BottomRight())
		drawDashedRect(output, x1, y1, x2, y2, provisionColor)
	}
	p.drawMeasurement(output, toPx)

	return output
}

func (p *PlannerCanvas) drawGridlines(output *image.RGBA, grid scene.GridConfig, pxPerKm float64) {
	maxX := int(grid.WidthKm * pxPerKm)
	maxY := int(grid.HeightKm * pxPerKm)
	for km := 0.0; km <= grid.WidthKm; km++ {
		x := int(km * pxPerKm)
		drawLine(output, x, 0, x, maxY, gridlineColor, 1)
	}
	for km := 0.0; km <= grid.HeightKm; km++ {
		y := int(km * pxPerKm)
		drawLine(output, 0, y, maxX, y, gridlineColor, 1)
	}
}

func (p *PlannerCanvas) drawObstacle(output *image.RGBA, o *scene.Obstacle, toPx func(geometry.Point2D) (int, int), scale float64) {
	col, ok := obstacleColors[o.Type]
	if !ok {
		col = obstacleColors[scene.ObstacleWall]
	}
	x1, y1 := toPx(o.Bounds.TopLeft())
	x2, y2 := toPx(o.Bounds.BottomRight())

	fillRectBlend(output, x1, y1, x2, y2, col, obstacleFillOpacity)
	drawRectOutline(output, x1, y1, x2, y2, col, 2)

	// Resize handle on the bottom-right corner.
	half := int(float64(hittest.HandleSizePx) * scale / 2)
	drawFilledSquare(output, x2, y2, half, handleColor, outlineColor)

	if x2-x1 > 40 {
		drawTextCentered(output, o.Material, (x1+x2)/2, (y1+y2)/2, labelColor, labelScale(scale))
	}
}

func (p *PlannerCanvas) drawDevice(output *image.RGBA, d *scene.Device, toPx func(geometry.Point2D) (int, int), scale float64) {
	cx, cy := toPx(d.Position)
	r := float64(hittest.DeviceHitRadiusPx) * scale

	switch d.Type.Role() {
	case scene.RoleGateway:
		drawFilledCircle(output, cx, cy, r, gatewayColor, outlineColor)
	case scene.RoleNoise:
		drawCrossMarker(output, cx, cy, int(r), noiseColor)
	default:
		drawFilledSquare(output, cx, cy, int(r*0.8), endpointColor, outlineColor)
	}

	drawTextCentered(output, d.Label, cx, cy+int(r)+8, labelColor, labelScale(scale))
}

// drawLinks draws one line per same-technology gateway/endpoint pair,
// colored by the analytic link margin and annotated with the estimated
// RSSI at the endpoint.
func (p *PlannerCanvas) drawLinks(output *image.RGBA, obstacles []*scene.Obstacle, toPx func(geometry.Point2D) (int, int)) {
	devices := p.store.Devices()
	for _, gw := range devices {
		if gw.Type.Role() != scene.RoleGateway || !p.techVisible(gw.Type) {
			continue
		}
		for _, ep := range devices {
			if ep.Type.Role() != scene.RoleEndpoint || !p.techVisible(ep.Type) {
				continue
			}
			if ep.Type.Technology() != gw.Type.Technology() {
				continue
			}

			rssi := linkbudget.EstimateRSSI(gw, ep, obstacles, p.env)
			margin := rssi - linkbudget.SensitivityDBm(ep)
			col := linkDeadColor
			if margin >= 10 {
				col = linkGoodColor
			} else if margin >= 0 {
				col = linkMarginalColor
			}

			x1, y1 := toPx(gw.Position)
			x2, y2 := toPx(ep.Position)
			drawLine(output, x1, y1, x2, y2, col, 2)
			drawTextCentered(output, fmt.Sprintf("%.0f", rssi), (x1+x2)/2, (y1+y2)/2-10, col, 2)
		}
	}
}

func (p *PlannerCanvas) drawMeasurement(output *image.RGBA, toPx func(geometry.Point2D) (int, int)) {
	m := p.machine.Measure()
	if len(m.Points) == 0 {
		return
	}

	x1, y1 := toPx(m.Points[0])
	drawCrossMarker(output, x1, y1, 5, measureColor)
	if !m.Complete() {
		return
	}

	x2, y2 := toPx(m.Points[1])
	drawCrossMarker(output, x2, y2, 5, measureColor)
	drawLine(output, x1, y1, x2, y2, measureColor, 2)
	label := fmt.Sprintf("%.2f KM", m.DistanceKm)
	drawTextCentered(output, label, (x1+x2)/2, (y1+y2)/2-12, measureColor, 2)
}

func labelScale(scale float64) int {
	s := int(2 * scale)
	if s < 2 {
		s = 2
	}
	if s > 4 {
		s = 4
	}
	return s
}

// zoomScroll wraps a scroll container but intercepts the wheel for zoom.
type zoomScroll struct {
	widget.BaseWidget
	scroll *container.Scroll
	canvas *PlannerCanvas
}

func newZoomScroll(content fyne.CanvasObject, canvas *PlannerCanvas) *zoomScroll {
	scroll := container.NewScroll(content)
	scroll.Direction = container.ScrollBoth
	zs := &zoomScroll{scroll: scroll, canvas: canvas}
	zs.ExtendBaseWidget(zs)
	return zs
}

func (zs *zoomScroll) Scrolled(ev *fyne.ScrollEvent) {
	zs.canvas.machine.Enqueue(interact.Event{Kind: interact.EventWheel, WheelDY: float64(ev.Scrolled.DY)})
	zs.canvas.pump()
}

func (zs *zoomScroll) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(zs.scroll)
}

// Offset returns the scroll container's current offset.
func (zs *zoomScroll) Offset() fyne.Position {
	return zs.scroll.Offset
}

func (zs *zoomScroll) Refresh() {
	zs.scroll.Refresh()
	zs.BaseWidget.Refresh()
}

func (zs *zoomScroll) Resize(size fyne.Size) {
	zs.scroll.Resize(size)
	zs.BaseWidget.Resize(size)
}

// plannerContent wraps the raster and feeds pointer events into the
// interaction machine.
type plannerContent struct {
	widget.BaseWidget
	canvas *PlannerCanvas
	raster *fynecanvas.Raster
}

func newPlannerContent(p *PlannerCanvas, raster *fynecanvas.Raster) *plannerContent {
	pc := &plannerContent{canvas: p, raster: raster}
	pc.ExtendBaseWidget(pc)
	return pc
}

func (pc *plannerContent) CreateRenderer() fyne.WidgetRenderer {
	return &plannerContentRenderer{content: pc}
}

func (pc *plannerContent) MinSize() fyne.Size {
	return pc.raster.MinSize()
}

// screenPoint converts a viewport-relative event position to canvas
// coordinates. Event positions are relative to the visible area, so the
// scroll offset is added back.
func (pc *plannerContent) screenPoint(pos fyne.Position) geometry.Point2D {
	offset := pc.canvas.scroll.Offset()
	return geometry.Point2D{
		X: float64(pos.X + offset.X),
		Y: float64(pos.Y + offset.Y),
	}
}

func (pc *plannerContent) MouseDown(ev *desktop.MouseEvent) {
	switch ev.Button {
	case desktop.MouseButtonPrimary:
		pc.canvas.machine.Enqueue(interact.Event{Kind: interact.EventPointerDown, Screen: pc.screenPoint(ev.Position)})
	case desktop.MouseButtonSecondary:
		pc.canvas.machine.Enqueue(interact.Event{Kind: interact.EventRightClick, Screen: pc.screenPoint(ev.Position)})
	}
	pc.canvas.pump()
}

func (pc *plannerContent) MouseUp(ev *desktop.MouseEvent) {
	if ev.Button == desktop.MouseButtonPrimary {
		pc.canvas.machine.Enqueue(interact.Event{Kind: interact.EventPointerUp, Screen: pc.screenPoint(ev.Position)})
		pc.canvas.pump()
	}
}

func (pc *plannerContent) MouseIn(*desktop.MouseEvent) {}

func (pc *plannerContent) MouseMoved(ev *desktop.MouseEvent) {
	pc.canvas.machine.Enqueue(interact.Event{Kind: interact.EventPointerMove, Screen: pc.screenPoint(ev.Position)})
	pc.canvas.pump()
}

func (pc *plannerContent) MouseOut() {}

func (pc *plannerContent) Dragged(ev *fyne.DragEvent) {
	pc.canvas.machine.Enqueue(interact.Event{Kind: interact.EventPointerMove, Screen: pc.screenPoint(ev.Position)})
	pc.canvas.pump()
}

func (pc *plannerContent) DragEnd() {}

func (pc *plannerContent) Scrolled(ev *fyne.ScrollEvent) {
	pc.canvas.machine.Enqueue(interact.Event{Kind: interact.EventWheel, WheelDY: float64(ev.Scrolled.DY)})
	pc.canvas.pump()
}

type plannerContentRenderer struct {
	content *plannerContent
}

func (r *plannerContentRenderer) Layout(size fyne.Size) {
	r.content.raster.Resize(size)
}

func (r *plannerContentRenderer) MinSize() fyne.Size {
	return r.content.raster.MinSize()
}

func (r *plannerContentRenderer) Refresh() {
	r.content.raster.Refresh()
}

func (r *plannerContentRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.content.raster}
}

func (r *plannerContentRenderer) Destroy() {}

// CreateRenderer implements fyne.Widget.
func (p *PlannerCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &plannerCanvasRenderer{canvas: p}
}

type plannerCanvasRenderer struct {
	canvas *PlannerCanvas
}

func (r *plannerCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.scroll.Resize(size)
	if size != r.canvas.lastSize && size.Width > 0 && size.Height > 0 {
		r.canvas.lastSize = size
		r.canvas.vp.Resize(float64(size.Width), float64(size.Height))
	}
}

func (r *plannerCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(200, 200)
}

func (r *plannerCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *plannerCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.scroll}
}

func (r *plannerCanvasRenderer) Destroy() {}
