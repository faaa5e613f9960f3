package heatmap

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpwan-planner/internal/scene"
)

func gridData(rows, cols int, rssi float64) *Data {
	g := make([][]float64, rows)
	for y := range g {
		g[y] = make([]float64, cols)
		for x := range g[y] {
			g[y][x] = rssi
		}
	}
	return &Data{GridShape: [2]int{rows, cols}, RSSIGrid: g}
}

func TestRampClampsAndInterpolates(t *testing.T) {
	r := RampFor(scene.TechNone)

	assert.Equal(t, color.RGBA{68, 1, 84, 255}, r.ColorAt(-200), "below range clamps to weakest")
	assert.Equal(t, color.RGBA{253, 231, 37, 255}, r.ColorAt(0), "above range clamps to strongest")

	// Halfway between the -110 and -90 stops.
	mid := r.ColorAt(-100)
	assert.Equal(t, uint8(46), mid.R)
	assert.Equal(t, uint8(113), mid.G)
}

func TestRampFamilies(t *testing.T) {
	strong := -50.0
	h := RampFor(scene.TechHaLow).ColorAt(strong)
	l := RampFor(scene.TechLoRaWAN).ColorAt(strong)
	n := RampFor(scene.TechNBIoT).ColorAt(strong)
	assert.NotEqual(t, h, l)
	assert.NotEqual(t, l, n)
	assert.NotEqual(t, h, n)
}

func TestBaseRasterOnePixelPerCell(t *testing.T) {
	r := NewRenderer()
	r.SetData(gridData(3, 4, -80))

	img := r.Base()
	require.NotNil(t, img)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())
	assert.Equal(t, neutralRamp.ColorAt(-80), img.RGBAAt(0, 0))
}

func TestCacheSurvivesRepeatedDraws(t *testing.T) {
	r := NewRenderer()
	r.SetData(gridData(2, 2, -90))

	first := r.Base()
	second := r.Base()
	assert.Same(t, first, second, "no rebuild without invalidation")

	// Rescaling alone reuses both the base and the scaled image.
	s1 := r.Scaled(200, 200)
	s2 := r.Scaled(200, 200)
	assert.Same(t, s1, s2)
	assert.Same(t, first, r.Base())
}

func TestToggleInvalidates(t *testing.T) {
	r := NewRenderer()
	d := gridData(2, 2, -80)
	d.InterferenceGrid = [][]float64{{-60, -200}, {-200, -200}}
	r.SetData(d)

	plain := r.Base()
	r.SetInterferenceVisible(true)
	overlaid := r.Base()
	assert.NotSame(t, plain, overlaid)

	// The hot cell picked up red; the quiet cell did not change.
	assert.Greater(t, overlaid.RGBAAt(0, 0).R, plain.RGBAAt(0, 0).R)
	assert.Equal(t, plain.RGBAAt(1, 1), overlaid.RGBAAt(1, 1))

	// Toggling to the same value is a no-op.
	r.SetInterferenceVisible(true)
	assert.Same(t, overlaid, r.Base())
}

func TestTechnologyChangeInvalidates(t *testing.T) {
	r := NewRenderer()
	r.SetData(gridData(2, 2, -70))

	neutral := r.Base()
	r.SetDominantTechnology(scene.TechHaLow)
	green := r.Base()
	assert.NotSame(t, neutral, green)
	assert.NotEqual(t, neutral.RGBAAt(0, 0), green.RGBAAt(0, 0))

	// Same technology again keeps the cache.
	r.SetDominantTechnology(scene.TechHaLow)
	assert.Same(t, green, r.Base())
}

func TestScaledNearestNeighborKeepsCellsCrisp(t *testing.T) {
	r := NewRenderer()
	d := gridData(1, 2, -120)
	d.RSSIGrid[0][1] = -55
	r.SetData(d)

	img := r.Scaled(100, 50)
	require.NotNil(t, img)
	// Left half uniform weak, right half uniform strong, hard edge.
	assert.Equal(t, img.RGBAAt(0, 10), img.RGBAAt(49, 10))
	assert.Equal(t, img.RGBAAt(50, 10), img.RGBAAt(99, 10))
	assert.NotEqual(t, img.RGBAAt(49, 10), img.RGBAAt(50, 10))
}

func TestInterferenceAlphaRamp(t *testing.T) {
	assert.Zero(t, interferenceAlpha(-130))
	assert.Zero(t, interferenceAlpha(-120))
	assert.InDelta(t, interferenceMaxAlpha/2, interferenceAlpha(-90), 1e-12)
	assert.InDelta(t, interferenceMaxAlpha, interferenceAlpha(-40), 1e-12, "capped above span")
}

func TestEnsureStatsComputedWhenMissing(t *testing.T) {
	d := gridData(2, 2, -100)
	d.RSSIGrid[1][1] = -140 // below coverage floor

	s := d.EnsureStats(-120)
	assert.Equal(t, 4, s.TotalPoints)
	assert.InDelta(t, 75.0, s.CoveragePct, 1e-9)
	assert.InDelta(t, -110.0, s.MeanRSSIDBm, 1e-9)

	// Response-provided stats are passed through untouched.
	d2 := gridData(1, 1, -50)
	d2.Stats = &Stats{CoveragePct: 42}
	assert.Equal(t, 42.0, d2.EnsureStats(-120).CoveragePct)
}

// Results arrive on the simulation client's goroutine while the raster
// draw callback reads on the render thread. Alternating grid shapes
// during delivery exercises the rebuild path against swapped data; run
// with -race to check the interleaving.
func TestDeliveryConcurrentWithDraw(t *testing.T) {
	r := NewRenderer()
	r.SetData(gridData(2, 4, -80))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			if i%2 == 0 {
				r.SetData(gridData(20, 40, -60))
			} else {
				r.SetData(gridData(2, 4, -80))
			}
		}
	}()

	for i := 0; i < 500; i++ {
		if img := r.Scaled(100, 50); img != nil {
			assert.Equal(t, 100, img.Bounds().Dx())
		}
		r.Stats()
	}
	<-done

	require.NotNil(t, r.Data())
	assert.NotNil(t, r.Scaled(100, 50))
}

func TestClearAndInvalidData(t *testing.T) {
	r := NewRenderer()
	r.SetData(gridData(2, 2, -80))
	require.NotNil(t, r.Base())

	r.Clear()
	assert.Nil(t, r.Base())
	assert.Nil(t, r.Scaled(100, 100))
	_, ok := r.Stats()
	assert.False(t, ok)

	// Shape mismatch is rejected, never rendered.
	bad := &Data{GridShape: [2]int{2, 2}, RSSIGrid: [][]float64{{-80, -80}}}
	r.SetData(bad)
	assert.Nil(t, r.Base())
}
