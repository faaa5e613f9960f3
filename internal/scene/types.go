// Package scene owns the authoritative editor state: placed devices,
// obstacles, grid configuration, and id/label allocation.
package scene

import (
	"fmt"

	"lpwan-planner/pkg/geometry"
)

// Technology identifies the wireless technology family of a device.
type Technology int

const (
	TechNone Technology = iota
	TechHaLow
	TechLoRaWAN
	TechNBIoT
)

// String returns the wire name used in simulation requests.
func (t Technology) String() string {
	switch t {
	case TechHaLow:
		return "halow"
	case TechLoRaWAN:
		return "lorawan"
	case TechNBIoT:
		return "nbiot"
	default:
		return "none"
	}
}

// Role distinguishes infrastructure nodes from endpoints and pure
// interference sources.
type Role int

const (
	RoleGateway Role = iota
	RoleEndpoint
	RoleNoise
)

// DeviceType enumerates every placeable radio device.
type DeviceType int

const (
	HaLowAP DeviceType = iota
	HaLowEndpoint
	LoRaWANGateway
	LoRaWANEndpoint
	NBIoTBase
	NBIoTEndpoint
	PowerMeter
)

// String returns the wire name used in simulation requests.
func (d DeviceType) String() string {
	switch d {
	case HaLowAP:
		return "halow_ap"
	case HaLowEndpoint:
		return "halow_endpoint"
	case LoRaWANGateway:
		return "lorawan_gateway"
	case LoRaWANEndpoint:
		return "lorawan_endpoint"
	case NBIoTBase:
		return "nbiot_base"
	case NBIoTEndpoint:
		return "nbiot_endpoint"
	case PowerMeter:
		return "power_meter"
	default:
		return "unknown"
	}
}

// DisplayName returns the label prefix shown on the canvas.
func (d DeviceType) DisplayName() string {
	switch d {
	case HaLowAP:
		return "HaLow AP"
	case HaLowEndpoint:
		return "HaLow EP"
	case LoRaWANGateway:
		return "LoRa GW"
	case LoRaWANEndpoint:
		return "LoRa EP"
	case NBIoTBase:
		return "NB-IoT Base"
	case NBIoTEndpoint:
		return "NB-IoT EP"
	case PowerMeter:
		return "Meter"
	default:
		return "Device"
	}
}

// Technology returns the technology family for this device type.
func (d DeviceType) Technology() Technology {
	switch d {
	case HaLowAP, HaLowEndpoint:
		return TechHaLow
	case LoRaWANGateway, LoRaWANEndpoint:
		return TechLoRaWAN
	case NBIoTBase, NBIoTEndpoint:
		return TechNBIoT
	default:
		return TechNone
	}
}

// Role returns whether this device type acts as a gateway, an endpoint,
// or a noise source.
func (d DeviceType) Role() Role {
	switch d {
	case HaLowAP, LoRaWANGateway, NBIoTBase:
		return RoleGateway
	case PowerMeter:
		return RoleNoise
	default:
		return RoleEndpoint
	}
}

// DeviceTypes lists every placeable type in palette order.
var DeviceTypes = []DeviceType{
	HaLowAP, HaLowEndpoint,
	LoRaWANGateway, LoRaWANEndpoint,
	NBIoTBase, NBIoTEndpoint,
	PowerMeter,
}

// RFParams holds the technology-specific radio attributes of a device.
// They are captured by value when the device is created; later
// configuration changes never touch already-placed devices.
type RFParams struct {
	TxPowerDBm     float64 `json:"tx_power_dbm"`
	AntennaGainDBi float64 `json:"antenna_gain_dbi"`
	ElevationM     float64 `json:"elevation_m"`

	// HaLow
	Channel         int     `json:"channel,omitempty"`
	ChannelWidthMHz float64 `json:"channel_width_mhz,omitempty"`
	MCS             int     `json:"mcs,omitempty"`

	// LoRaWAN
	Region          string  `json:"region,omitempty"`
	SpreadingFactor int     `json:"spreading_factor,omitempty"`
	BandwidthKHz    float64 `json:"bandwidth_khz,omitempty"`

	// NB-IoT
	Band     string `json:"band,omitempty"`
	ToneMode string `json:"tone_mode,omitempty"`

	// Power meter
	FrequencyMHz float64 `json:"frequency_mhz,omitempty"`
}

// Device represents one placed radio endpoint or interference source.
type Device struct {
	ID       int              `json:"id"`
	Type     DeviceType       `json:"-"`
	Position geometry.Point2D `json:"position"`
	Label    string           `json:"label"`
	Params   RFParams         `json:"params"`
}

// ObstacleType enumerates the rectangular physical features.
type ObstacleType int

const (
	ObstacleWall ObstacleType = iota
	ObstacleHouse
	ObstacleWater
	ObstacleForest
	ObstacleWaterTower
)

// String returns the wire name used in simulation requests.
func (o ObstacleType) String() string {
	switch o {
	case ObstacleWall:
		return "wall"
	case ObstacleHouse:
		return "house"
	case ObstacleWater:
		return "water"
	case ObstacleForest:
		return "forest"
	case ObstacleWaterTower:
		return "water_tower"
	default:
		return "unknown"
	}
}

// ObstacleTypes lists every drawable type in palette order.
var ObstacleTypes = []ObstacleType{
	ObstacleWall, ObstacleHouse, ObstacleWater, ObstacleForest, ObstacleWaterTower,
}

// Obstacle represents a rectangular physical feature attenuating signal.
// Position is the top-left corner in kilometers; y increases downward.
type Obstacle struct {
	ID       int           `json:"id"`
	Type     ObstacleType  `json:"-"`
	Material string        `json:"material"`
	Bounds   geometry.Rect `json:"bounds"`
}

// GridConfig defines the editable extent and the resolution at which the
// external simulation grid is computed.
type GridConfig struct {
	WidthKm     float64 `json:"width_km"`
	HeightKm    float64 `json:"height_km"`
	ResolutionM float64 `json:"resolution_m"`
}

// Rows returns the simulation grid row count for this configuration.
func (g GridConfig) Rows() int {
	return int(g.HeightKm * 1000 / g.ResolutionM)
}

// Cols returns the simulation grid column count for this configuration.
func (g GridConfig) Cols() int {
	return int(g.WidthKm * 1000 / g.ResolutionM)
}

func deviceLabel(t DeviceType, n int) string {
	return fmt.Sprintf("%s %d", t.DisplayName(), n)
}
