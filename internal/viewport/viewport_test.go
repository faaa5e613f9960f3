package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lpwan-planner/internal/scene"
	"lpwan-planner/pkg/geometry"
)

func testViewport() *Viewport {
	grid := scene.GridConfig{WidthKm: 5, HeightKm: 5, ResolutionM: 50}
	return New(grid, 800, 600, 2.0)
}

func TestRoundTripAtEveryZoom(t *testing.T) {
	v := testViewport()

	points := []geometry.Point2D{
		{X: 0, Y: 0},
		{X: 2.5, Y: 2.5},
		{X: 5, Y: 5},
		{X: 0.123, Y: 4.876},
	}

	for zoom := MinZoom; zoom <= MaxZoom; zoom *= ZoomStep {
		v.SetZoom(zoom)
		for _, p := range points {
			rt := v.CanvasToKm(v.KmToCanvas(p))
			assert.InDelta(t, p.X, rt.X, 1e-9, "zoom %v", zoom)
			assert.InDelta(t, p.Y, rt.Y, 1e-9, "zoom %v", zoom)
		}
	}
}

func TestScreenCanvasUsesPixelRatio(t *testing.T) {
	v := testViewport()

	c := v.ScreenToCanvas(geometry.Point2D{X: 100, Y: 50})
	assert.Equal(t, geometry.Point2D{X: 200, Y: 100}, c)
	assert.Equal(t, geometry.Point2D{X: 100, Y: 50}, v.CanvasToScreen(c))
}

func TestZoomClampAndStep(t *testing.T) {
	v := testViewport()

	v.SetZoom(100)
	assert.Equal(t, MaxZoom, v.Zoom())
	v.SetZoom(0.0001)
	assert.Equal(t, MinZoom, v.Zoom())

	v.SetZoom(1.0)
	v.ZoomIn()
	assert.InDelta(t, ZoomStep, v.Zoom(), 1e-12)
	v.ZoomOut()
	assert.InDelta(t, 1.0, v.Zoom(), 1e-12)
}

func TestZoomScalesCanvas(t *testing.T) {
	v := testViewport()
	v.SetZoom(1.0)
	w1, h1 := v.CanvasSize()

	v.SetZoom(2.0)
	w2, h2 := v.CanvasSize()
	assert.InDelta(t, float64(w1)*2, float64(w2), 1.0)
	assert.InDelta(t, float64(h1)*2, float64(h2), 1.0)
}

func TestResizeRecomputesScale(t *testing.T) {
	v := testViewport()
	before := v.PxPerKm()

	var changed int
	v.OnChanged(func() { changed++ })

	v.Resize(400, 300)
	assert.Equal(t, 1, changed)
	assert.InDelta(t, before/2, v.PxPerKm(), 1e-9)

	v.SetExtent(scene.GridConfig{WidthKm: 10, HeightKm: 10})
	assert.Equal(t, 2, changed)
	assert.InDelta(t, before/4, v.PxPerKm(), 1e-9)
}

func TestFitUsesLimitingDimension(t *testing.T) {
	grid := scene.GridConfig{WidthKm: 10, HeightKm: 5}
	v := New(grid, 500, 500, 1.0)

	// Width is the limiting dimension: 500 px / 10 km.
	assert.InDelta(t, 50.0, v.PxPerKm(), 1e-9)
}
