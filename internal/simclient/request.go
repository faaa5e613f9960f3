package simclient

import (
	"strconv"

	"lpwan-planner/internal/linkbudget"
	"lpwan-planner/internal/scene"
	"lpwan-planner/pkg/geometry"
)

// Request is the simulation job sent to the external engine. Device
// parameter fields sit flat next to type and position, matching what
// the engine reads.
type Request struct {
	WidthKm     float64    `json:"width_km"`
	HeightKm    float64    `json:"height_km"`
	ResolutionM float64    `json:"resolution_m"`
	Devices     []Device   `json:"devices"`
	Obstacles   []Obstacle `json:"obstacles"`

	Environment     string  `json:"environment,omitempty"`
	ShadowFadingStd float64 `json:"shadow_fading_std,omitempty"`
	MultipathFading bool    `json:"multipath_fading,omitempty"`
}

// Device is one placed radio in wire form.
type Device struct {
	Type     string           `json:"type"`
	Label    string           `json:"label"`
	Position geometry.Point2D `json:"position"`
	scene.RFParams
}

// Obstacle is one rectangular feature in wire form. Position is the
// top-left corner in kilometers.
type Obstacle struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Position geometry.Point2D `json:"position"`
	WidthKm  float64          `json:"width_km"`
	HeightKm float64          `json:"height_km"`
	Material string           `json:"material"`
}

// BuildRequest snapshots the scene into a simulation request.
func BuildRequest(grid scene.GridConfig, devices []*scene.Device, obstacles []*scene.Obstacle,
	env linkbudget.Environment, shadowStd float64, multipath bool) Request {

	req := Request{
		WidthKm:         grid.WidthKm,
		HeightKm:        grid.HeightKm,
		ResolutionM:     grid.ResolutionM,
		Devices:         make([]Device, 0, len(devices)),
		Obstacles:       make([]Obstacle, 0, len(obstacles)),
		Environment:     env.String(),
		ShadowFadingStd: shadowStd,
		MultipathFading: multipath,
	}
	for _, d := range devices {
		req.Devices = append(req.Devices, Device{
			Type:     d.Type.String(),
			Label:    d.Label,
			Position: d.Position,
			RFParams: d.Params,
		})
	}
	for _, o := range obstacles {
		req.Obstacles = append(req.Obstacles, Obstacle{
			ID:       strconv.Itoa(o.ID),
			Type:     o.Type.String(),
			Position: o.Bounds.TopLeft(),
			WidthKm:  o.Bounds.Width,
			HeightKm: o.Bounds.Height,
			Material: o.Material,
		})
	}
	return req
}
