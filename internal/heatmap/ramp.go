package heatmap

import (
	"image/color"
	"sort"

	"lpwan-planner/internal/scene"
)

// rampStop pins one RSSI value to a color; values between stops are
// linearly interpolated.
type rampStop struct {
	DBm float64
	C   color.RGBA
}

// Ramp maps RSSI in dBm to a display color via break-point stops.
type Ramp struct {
	stops []rampStop
}

func newRamp(stops ...rampStop) Ramp {
	sort.Slice(stops, func(i, j int) bool { return stops[i].DBm < stops[j].DBm })
	return Ramp{stops: stops}
}

// ColorAt returns the interpolated color for an RSSI value. Values
// outside the stop range clamp to the end colors.
func (r Ramp) ColorAt(dbm float64) color.RGBA {
	if len(r.stops) == 0 {
		return color.RGBA{A: 255}
	}
	if dbm <= r.stops[0].DBm {
		return r.stops[0].C
	}
	last := r.stops[len(r.stops)-1]
	if dbm >= last.DBm {
		return last.C
	}
	for i := 1; i < len(r.stops); i++ {
		lo, hi := r.stops[i-1], r.stops[i]
		if dbm <= hi.DBm {
			t := (dbm - lo.DBm) / (hi.DBm - lo.DBm)
			return color.RGBA{
				R: lerp8(lo.C.R, hi.C.R, t),
				G: lerp8(lo.C.G, hi.C.G, t),
				B: lerp8(lo.C.B, hi.C.B, t),
				A: 255,
			}
		}
	}
	return last.C
}

func lerp8(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

// Ramps run from -130 dBm (edge of decodability) to -50 dBm (strong).
// Each technology gets its own hue family so a filtered scene reads at
// a glance; mixed or empty scenes fall back to the neutral ramp.
var (
	neutralRamp = newRamp(
		rampStop{-130, color.RGBA{68, 1, 84, 255}},
		rampStop{-110, color.RGBA{59, 82, 139, 255}},
		rampStop{-90, color.RGBA{33, 145, 140, 255}},
		rampStop{-70, color.RGBA{94, 201, 98, 255}},
		rampStop{-50, color.RGBA{253, 231, 37, 255}},
	)
	halowRamp = newRamp(
		rampStop{-130, color.RGBA{5, 35, 15, 255}},
		rampStop{-110, color.RGBA{10, 80, 40, 255}},
		rampStop{-90, color.RGBA{25, 135, 65, 255}},
		rampStop{-70, color.RGBA{110, 200, 100, 255}},
		rampStop{-50, color.RGBA{225, 255, 190, 255}},
	)
	lorawanRamp = newRamp(
		rampStop{-130, color.RGBA{10, 20, 60, 255}},
		rampStop{-110, color.RGBA{25, 60, 120, 255}},
		rampStop{-90, color.RGBA{50, 110, 180, 255}},
		rampStop{-70, color.RGBA{110, 175, 225, 255}},
		rampStop{-50, color.RGBA{210, 235, 255, 255}},
	)
	nbiotRamp = newRamp(
		rampStop{-130, color.RGBA{50, 15, 5, 255}},
		rampStop{-110, color.RGBA{110, 45, 10, 255}},
		rampStop{-90, color.RGBA{185, 95, 20, 255}},
		rampStop{-70, color.RGBA{235, 160, 70, 255}},
		rampStop{-50, color.RGBA{255, 230, 175, 255}},
	)
)

// RampFor selects the color family for the dominant visible technology.
func RampFor(tech scene.Technology) Ramp {
	switch tech {
	case scene.TechHaLow:
		return halowRamp
	case scene.TechLoRaWAN:
		return lorawanRamp
	case scene.TechNBIoT:
		return nbiotRamp
	default:
		return neutralRamp
	}
}
