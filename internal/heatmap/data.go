// Package heatmap turns externally computed signal grids into a cached
// raster image composited under the editor scene.
package heatmap

import (
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes a simulated grid.
type Stats struct {
	CoveragePct float64 `json:"coverage_pct"`
	MeanRSSIDBm float64 `json:"mean_rssi_dbm"`
	MeanSNRDB   float64 `json:"mean_snr_db"`
	TotalPoints int     `json:"total_points"`
}

// Data holds one simulation result. The renderer treats it as read-only.
type Data struct {
	GridShape        [2]int           `json:"grid_shape"`
	RSSIGrid         [][]float64      `json:"rssi_grid"`
	InterferenceGrid [][]float64      `json:"interference_grid,omitempty"`
	SNRGrid          [][]float64      `json:"snr_grid,omitempty"`
	Stats            *Stats           `json:"stats,omitempty"`
	PerTechStats     map[string]Stats `json:"per_tech_stats,omitempty"`
}

// Rows returns the grid row count.
func (d *Data) Rows() int { return d.GridShape[0] }

// Cols returns the grid column count.
func (d *Data) Cols() int { return d.GridShape[1] }

// Valid reports whether the grids match the declared shape.
func (d *Data) Valid() bool {
	if d == nil || d.Rows() <= 0 || d.Cols() <= 0 {
		return false
	}
	if len(d.RSSIGrid) != d.Rows() {
		return false
	}
	for _, row := range d.RSSIGrid {
		if len(row) != d.Cols() {
			return false
		}
	}
	return true
}

// EnsureStats returns the response stats, computing them from the RSSI
// grid when the simulator omitted them. A cell counts as covered when
// its RSSI reaches coverageFloorDBm.
func (d *Data) EnsureStats(coverageFloorDBm float64) Stats {
	if d.Stats != nil {
		return *d.Stats
	}

	flat := make([]float64, 0, d.Rows()*d.Cols())
	covered := 0
	for _, row := range d.RSSIGrid {
		for _, v := range row {
			flat = append(flat, v)
			if v >= coverageFloorDBm {
				covered++
			}
		}
	}
	s := Stats{TotalPoints: len(flat)}
	if len(flat) > 0 {
		s.MeanRSSIDBm = stat.Mean(flat, nil)
		s.CoveragePct = 100 * float64(covered) / float64(len(flat))
	}
	if len(d.SNRGrid) > 0 {
		snr := make([]float64, 0, len(flat))
		for _, row := range d.SNRGrid {
			snr = append(snr, row...)
		}
		if len(snr) > 0 {
			s.MeanSNRDB = stat.Mean(snr, nil)
		}
	}
	d.Stats = &s
	return s
}
