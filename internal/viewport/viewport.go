// Package viewport converts between screen pixels, canvas pixels, and
// world coordinates in kilometers, and owns the zoom level.
package viewport

import (
	"math"

	"lpwan-planner/internal/scene"
	"lpwan-planner/pkg/geometry"
)

const (
	// MinZoom and MaxZoom clamp the zoom range; ZoomStep is the
	// multiplicative factor applied per wheel tick.
	MinZoom  = 0.1
	MaxZoom  = 10.0
	ZoomStep = 1.25
)

// Viewport owns the zoom level and the pixels-per-kilometer scale derived
// from fitting the grid extent into the available display area.
//
// Three coordinate systems are kept distinct: screen pixels (logical,
// what pointer events report), canvas pixels (physical, screen x device
// pixel ratio), and world kilometers. Hit-testing and placement operate
// in kilometers; drawing operates in canvas pixels.
type Viewport struct {
	widthKm  float64
	heightKm float64

	displayW float64 // logical pixels
	displayH float64
	dpr      float64

	zoom      float64
	basePxKm  float64 // canvas pixels per km at zoom 1
	onChanged func()
}

// New creates a viewport for the given grid extent and display area.
func New(grid scene.GridConfig, displayW, displayH, devicePixelRatio float64) *Viewport {
	v := &Viewport{
		widthKm:  grid.WidthKm,
		heightKm: grid.HeightKm,
		displayW: displayW,
		displayH: displayH,
		dpr:      devicePixelRatio,
		zoom:     1.0,
	}
	v.recompute()
	return v
}

// OnChanged registers a callback invoked after every recomputation.
func (v *Viewport) OnChanged(fn func()) {
	v.onChanged = fn
}

// Zoom returns the current zoom level.
func (v *Viewport) Zoom() float64 {
	return v.zoom
}

// SetZoom sets and clamps the zoom level, then recomputes the canvas
// scale. The physical canvas resolution depends on device pixel ratio,
// logical size, and zoom, so every zoom change is a full recompute.
func (v *Viewport) SetZoom(zoom float64) {
	v.zoom = math.Min(math.Max(zoom, MinZoom), MaxZoom)
	v.recompute()
}

// ZoomIn applies one multiplicative wheel tick inward.
func (v *Viewport) ZoomIn() {
	v.SetZoom(v.zoom * ZoomStep)
}

// ZoomOut applies one multiplicative wheel tick outward.
func (v *Viewport) ZoomOut() {
	v.SetZoom(v.zoom / ZoomStep)
}

// Resize updates the logical display area and recomputes.
func (v *Viewport) Resize(displayW, displayH float64) {
	v.displayW = displayW
	v.displayH = displayH
	v.recompute()
}

// SetExtent updates the grid extent and recomputes.
func (v *Viewport) SetExtent(grid scene.GridConfig) {
	v.widthKm = grid.WidthKm
	v.heightKm = grid.HeightKm
	v.recompute()
}

// PxPerKm returns the current canvas pixels per kilometer.
func (v *Viewport) PxPerKm() float64 {
	return v.basePxKm * v.zoom
}

// CanvasSize returns the physical canvas dimensions in pixels.
func (v *Viewport) CanvasSize() (w, h int) {
	return int(math.Round(v.widthKm * v.PxPerKm())),
		int(math.Round(v.heightKm * v.PxPerKm()))
}

// ScreenToCanvas converts logical screen pixels to canvas pixels.
func (v *Viewport) ScreenToCanvas(p geometry.Point2D) geometry.Point2D {
	return p.Scale(v.dpr)
}

// CanvasToScreen converts canvas pixels to logical screen pixels.
func (v *Viewport) CanvasToScreen(p geometry.Point2D) geometry.Point2D {
	return p.Scale(1 / v.dpr)
}

// CanvasToKm converts canvas pixels to kilometers.
func (v *Viewport) CanvasToKm(p geometry.Point2D) geometry.Point2D {
	return p.Scale(1 / v.PxPerKm())
}

// KmToCanvas converts kilometers to canvas pixels.
func (v *Viewport) KmToCanvas(p geometry.Point2D) geometry.Point2D {
	return p.Scale(v.PxPerKm())
}

// recompute derives the base scale from fitting the extent into the
// display area at the current device pixel ratio.
func (v *Viewport) recompute() {
	if v.widthKm <= 0 || v.heightKm <= 0 || v.displayW <= 0 || v.displayH <= 0 {
		v.basePxKm = 1
	} else {
		fitX := v.displayW * v.dpr / v.widthKm
		fitY := v.displayH * v.dpr / v.heightKm
		v.basePxKm = math.Min(fitX, fitY)
	}
	if v.onChanged != nil {
		v.onChanged()
	}
}
