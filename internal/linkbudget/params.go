// Package linkbudget computes analytic point-to-point received-signal
// estimates between paired devices. It is independent of the full-grid
// simulation service and exists to annotate gateway-endpoint links on the
// canvas.
package linkbudget

import "lpwan-planner/internal/scene"

// Environment selects the path-loss exponent class.
type Environment int

const (
	EnvRural Environment = iota
	EnvSuburban
	EnvUrban
)

// String returns the wire name used in simulation requests.
func (e Environment) String() string {
	switch e {
	case EnvRural:
		return "rural"
	case EnvUrban:
		return "urban"
	default:
		return "suburban"
	}
}

// EnvironmentFromString parses a configuration value. Unknown values
// fall back to suburban.
func EnvironmentFromString(s string) Environment {
	switch s {
	case "rural":
		return EnvRural
	case "urban":
		return EnvUrban
	default:
		return EnvSuburban
	}
}

// PathLossExponent returns the log-distance exponent for the class.
// Higher exponent means steeper attenuation with distance.
func (e Environment) PathLossExponent() float64 {
	switch e {
	case EnvRural:
		return 2.2
	case EnvUrban:
		return 3.2
	default:
		return 2.7
	}
}

// materialAttenuationDB maps material names to a fixed crossing penalty.
var materialAttenuationDB = map[string]float64{
	"wood":        4.0,
	"glass":       3.0,
	"cement":      12.0,
	"metal":       25.0,
	"brick":       10.0,
	"water":       12.0,
	"foliage":     8.0,
	"water_tower": 15.0,
}

// defaultAttenuationDB applies to unknown materials.
const defaultAttenuationDB = 10.0

// ObstacleAttenuationDB returns the decibel penalty for crossing one
// obstacle. Non-wall types map to a fixed material regardless of the
// stored material field; walls look their material up and fall back to a
// flat default.
func ObstacleAttenuationDB(o *scene.Obstacle) float64 {
	switch o.Type {
	case scene.ObstacleHouse:
		return materialAttenuationDB["brick"]
	case scene.ObstacleWater:
		return materialAttenuationDB["water"]
	case scene.ObstacleForest:
		return materialAttenuationDB["foliage"]
	case scene.ObstacleWaterTower:
		return materialAttenuationDB["water_tower"]
	default:
		if att, ok := materialAttenuationDB[o.Material]; ok {
			return att
		}
		return defaultAttenuationDB
	}
}

// nbiotBandFreqMHz maps 3GPP band names to downlink center frequencies.
var nbiotBandFreqMHz = map[string]float64{
	"B1":  2140.0,
	"B3":  1805.0,
	"B5":  869.0,
	"B8":  925.0,
	"B20": 791.0,
	"B28": 758.0,
}

const (
	defaultHaLowChannel   = 2
	defaultNBIoTFreqMHz   = 869.0 // B5
	defaultMeterFreqMHz   = 925.0
	defaultCarrierFreqMHz = 900.0
)

// HaLowCenterFreqMHz returns the 802.11ah US channel center frequency.
func HaLowCenterFreqMHz(channel int) float64 {
	return 902.0 + float64(channel)*0.5
}

// CarrierFreqMHz determines the transmit frequency for a device from its
// technology and captured channel/region/band configuration. Missing or
// malformed values fall back to per-technology defaults; this never fails.
func CarrierFreqMHz(d *scene.Device) float64 {
	switch d.Type.Technology() {
	case scene.TechHaLow:
		ch := d.Params.Channel
		if ch <= 0 {
			ch = defaultHaLowChannel
		}
		return HaLowCenterFreqMHz(ch)
	case scene.TechLoRaWAN:
		if d.Params.Region == "US915" {
			return 915.0
		}
		return 868.0
	case scene.TechNBIoT:
		if f, ok := nbiotBandFreqMHz[d.Params.Band]; ok {
			return f
		}
		return defaultNBIoTFreqMHz
	default:
		if d.Type == scene.PowerMeter {
			if d.Params.FrequencyMHz > 0 {
				return d.Params.FrequencyMHz
			}
			return defaultMeterFreqMHz
		}
		return defaultCarrierFreqMHz
	}
}

// loraSFSensitivityDBm is receiver sensitivity per spreading factor at
// 125 kHz bandwidth.
var loraSFSensitivityDBm = map[int]float64{
	7:  -124.0,
	8:  -127.0,
	9:  -130.0,
	10: -133.0,
	11: -135.0,
	12: -137.0,
}

// SensitivityDBm returns the receiver sensitivity for a device from its
// technology and captured configuration.
func SensitivityDBm(d *scene.Device) float64 {
	switch d.Type.Technology() {
	case scene.TechHaLow:
		// Rough curve: higher MCS trades sensitivity for rate.
		return -130.0 + float64(d.Params.MCS)*3.0
	case scene.TechLoRaWAN:
		if s, ok := loraSFSensitivityDBm[d.Params.SpreadingFactor]; ok {
			return s
		}
		return -130.0
	case scene.TechNBIoT:
		return -141.0
	default:
		return -120.0
	}
}
