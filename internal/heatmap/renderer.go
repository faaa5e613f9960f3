package heatmap

import (
	"image"
	"image/color"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"

	"lpwan-planner/internal/scene"
)

const (
	// interferenceFloorDBm is where the overlay becomes visible;
	// interferenceSpanDB above it the alpha reaches the cap.
	interferenceFloorDBm = -120.0
	interferenceSpanDB   = 60.0
	interferenceMaxAlpha = 0.6

	// coverageFloorDBm is the covered/uncovered cut used when the
	// simulator omits stats.
	coverageFloorDBm = -120.0
)

// Renderer builds a one-pixel-per-cell raster from simulation data and
// caches it. The cache survives pure zoom and pan, which only rescale;
// scene edits, toggle changes, and new data invalidate it.
//
// A mutex guards all state: results are delivered on the simulation
// client's goroutine while the draw path reads on the render thread.
// Rebuilds always allocate a fresh image, so rasters handed out earlier
// stay consistent snapshots.
type Renderer struct {
	logger zerolog.Logger

	mu sync.Mutex

	data *Data
	tech scene.Technology
	ramp Ramp

	showInterference bool

	base  *image.RGBA // one pixel per grid cell
	dirty bool

	scaled     *image.RGBA
	scaledW    int
	scaledH    int
	scaleDirty bool
}

// NewRenderer returns a renderer with no data and the neutral ramp.
func NewRenderer() *Renderer {
	return &Renderer{
		logger: log.With().Str("component", "heatmap").Logger(),
		ramp:   neutralRamp,
	}
}

// SetData replaces the displayed grid. Passing nil clears it.
func (r *Renderer) SetData(d *Data) {
	r.mu.Lock()
	r.data = d
	r.invalidateLocked()
	r.mu.Unlock()

	if d != nil {
		r.logger.Debug().Int("rows", d.Rows()).Int("cols", d.Cols()).Msg("grid data replaced")
	}
}

// Data returns the currently displayed grid, nil when cleared.
func (r *Renderer) Data() *Data {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

// Clear discards the displayed grid.
func (r *Renderer) Clear() { r.SetData(nil) }

// SetDominantTechnology switches the color family. A no-op change does
// not invalidate the cache.
func (r *Renderer) SetDominantTechnology(tech scene.Technology) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tech == r.tech {
		return
	}
	r.tech = tech
	r.ramp = RampFor(tech)
	r.invalidateLocked()
}

// SetInterferenceVisible toggles the interference overlay pass.
func (r *Renderer) SetInterferenceVisible(show bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if show == r.showInterference {
		return
	}
	r.showInterference = show
	r.invalidateLocked()
}

// Invalidate marks the base raster for rebuild on the next draw.
func (r *Renderer) Invalidate() {
	r.mu.Lock()
	r.invalidateLocked()
	r.mu.Unlock()
}

func (r *Renderer) invalidateLocked() {
	r.dirty = true
	r.scaleDirty = true
}

// Stats returns summary statistics for the displayed grid, computing
// them when the response omitted them.
func (r *Renderer) Stats() (Stats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil || !r.data.Valid() {
		return Stats{}, false
	}
	return r.data.EnsureStats(coverageFloorDBm), true
}

// Base returns the cached cell-resolution raster, rebuilding it only
// when invalidated. Returns nil when no valid data is loaded.
func (r *Renderer) Base() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.baseLocked()
}

func (r *Renderer) baseLocked() *image.RGBA {
	if r.data == nil || !r.data.Valid() {
		return nil
	}
	if r.base == nil || r.dirty {
		r.rebuildLocked()
	}
	return r.base
}

// Scaled returns the base raster rescaled to w x h with nearest-neighbor
// sampling, so grid cells stay crisp at any zoom. Repeated calls at the
// same size reuse the previous rescale.
func (r *Renderer) Scaled(w, h int) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := r.baseLocked()
	if base == nil || w <= 0 || h <= 0 {
		return nil
	}
	if !r.scaleDirty && r.scaled != nil && r.scaledW == w && r.scaledH == h {
		return r.scaled
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), base, base.Bounds(), xdraw.Src, nil)
	r.scaled = dst
	r.scaledW = w
	r.scaledH = h
	r.scaleDirty = false
	return dst
}

// rebuildLocked renders one pixel per grid cell: the RSSI ramp first,
// then the translucent interference pass when enabled.
func (r *Renderer) rebuildLocked() {
	rows, cols := r.data.Rows(), r.data.Cols()
	out := image.NewRGBA(image.Rect(0, 0, cols, rows))

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			out.SetRGBA(x, y, r.ramp.ColorAt(r.data.RSSIGrid[y][x]))
		}
	}

	if r.showInterference && len(r.data.InterferenceGrid) == rows {
		for y := 0; y < rows; y++ {
			row := r.data.InterferenceGrid[y]
			if len(row) != cols {
				continue
			}
			for x := 0; x < cols; x++ {
				a := interferenceAlpha(row[x])
				if a <= 0 {
					continue
				}
				out.SetRGBA(x, y, blendRed(out.RGBAAt(x, y), a))
			}
		}
	}

	r.base = out
	r.dirty = false
	r.scaleDirty = true
	r.logger.Debug().Int("rows", rows).Int("cols", cols).Bool("interference", r.showInterference).Msg("raster rebuilt")
}

// interferenceAlpha ramps from 0 at the floor to the cap 60 dB above it.
func interferenceAlpha(dbm float64) float64 {
	a := (dbm - interferenceFloorDBm) / interferenceSpanDB
	if a <= 0 {
		return 0
	}
	if a > 1 {
		a = 1
	}
	return a * interferenceMaxAlpha
}

func blendRed(dst color.RGBA, alpha float64) color.RGBA {
	inv := 1 - alpha
	return color.RGBA{
		R: uint8(255*alpha + float64(dst.R)*inv),
		G: uint8(float64(dst.G) * inv),
		B: uint8(float64(dst.B) * inv),
		A: 255,
	}
}
