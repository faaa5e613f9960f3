// Package config loads planner configuration from the environment and an
// optional config file. Missing or malformed values always fall back to
// defaults; loading never fails the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"lpwan-planner/internal/scene"
)

func userConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "lpwan-planner"), nil
}

// Config holds all configuration for the planner.
type Config struct {
	Simulator SimulatorConfig
	Grid      scene.GridConfig
	Editor    EditorConfig
}

// SimulatorConfig holds the external simulation service settings.
type SimulatorConfig struct {
	BaseURL string
	Timeout time.Duration
}

// EditorConfig holds editor behavior settings.
type EditorConfig struct {
	Environment  string // rural | suburban | urban
	ShadowFading float64
	Multipath    bool
}

// Load reads configuration from environment variables and an optional
// planner.yaml in the working directory or user config dir.
func Load() *Config {
	viper.SetDefault("SIMULATOR_URL", "http://127.0.0.1:8001")
	viper.SetDefault("SIMULATOR_TIMEOUT", "30s")
	viper.SetDefault("GRID_WIDTH_KM", 5.0)
	viper.SetDefault("GRID_HEIGHT_KM", 5.0)
	viper.SetDefault("GRID_RESOLUTION_M", 50.0)
	viper.SetDefault("ENVIRONMENT_CLASS", "suburban")
	viper.SetDefault("SHADOW_FADING_STD", 0.0)
	viper.SetDefault("MULTIPATH_FADING", false)

	setDeviceDefaults()

	viper.SetConfigName("planner")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if dir, err := userConfigDir(); err == nil {
		viper.AddConfigPath(dir)
	}
	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("file", viper.ConfigFileUsed()).Msg("config file loaded")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return &Config{
		Simulator: SimulatorConfig{
			BaseURL: viper.GetString("SIMULATOR_URL"),
			Timeout: viper.GetDuration("SIMULATOR_TIMEOUT"),
		},
		Grid: scene.GridConfig{
			WidthKm:     viper.GetFloat64("GRID_WIDTH_KM"),
			HeightKm:    viper.GetFloat64("GRID_HEIGHT_KM"),
			ResolutionM: viper.GetFloat64("GRID_RESOLUTION_M"),
		},
		Editor: EditorConfig{
			Environment:  viper.GetString("ENVIRONMENT_CLASS"),
			ShadowFading: viper.GetFloat64("SHADOW_FADING_STD"),
			Multipath:    viper.GetBool("MULTIPATH_FADING"),
		},
	}
}

// setDeviceDefaults registers the per-technology RF defaults captured at
// device placement.
func setDeviceDefaults() {
	// HaLow (802.11ah)
	viper.SetDefault("HALOW_AP_TX_POWER_DBM", 30.0)
	viper.SetDefault("HALOW_AP_ANTENNA_GAIN_DBI", 3.0)
	viper.SetDefault("HALOW_EP_TX_POWER_DBM", 10.0)
	viper.SetDefault("HALOW_CHANNEL", 2)
	viper.SetDefault("HALOW_CHANNEL_WIDTH_MHZ", 2.0)
	viper.SetDefault("HALOW_MCS", 2)

	// LoRaWAN
	viper.SetDefault("LORA_REGION", "US915")
	viper.SetDefault("LORA_SPREADING_FACTOR", 12)
	viper.SetDefault("LORA_BANDWIDTH_KHZ", 125.0)
	viper.SetDefault("LORA_GW_TX_POWER_DBM", 14.0)
	viper.SetDefault("LORA_GW_ANTENNA_GAIN_DBI", 6.0)
	viper.SetDefault("LORA_EP_TX_POWER_DBM", 14.0)

	// NB-IoT
	viper.SetDefault("NBIOT_BAND", "B5")
	viper.SetDefault("NBIOT_TONE_MODE", "single-15")
	viper.SetDefault("NBIOT_TX_POWER_DBM", 23.0)
	viper.SetDefault("NBIOT_BASE_ANTENNA_GAIN_DBI", 8.0)

	// Power meter noise source
	viper.SetDefault("METER_TX_POWER_DBM", 20.0)
	viper.SetDefault("METER_FREQUENCY_MHZ", 925.0)
	viper.SetDefault("METER_BANDWIDTH_KHZ", 50000.0)

	viper.SetDefault("DEVICE_ELEVATION_M", 1.0)
}

// DeviceDefaults returns the RF parameters captured by value when a
// device of the given type is placed.
func DeviceDefaults(t scene.DeviceType) scene.RFParams {
	p := scene.RFParams{ElevationM: viper.GetFloat64("DEVICE_ELEVATION_M")}

	switch t {
	case scene.HaLowAP:
		p.TxPowerDBm = viper.GetFloat64("HALOW_AP_TX_POWER_DBM")
		p.AntennaGainDBi = viper.GetFloat64("HALOW_AP_ANTENNA_GAIN_DBI")
		p.Channel = viper.GetInt("HALOW_CHANNEL")
		p.ChannelWidthMHz = viper.GetFloat64("HALOW_CHANNEL_WIDTH_MHZ")
		p.MCS = viper.GetInt("HALOW_MCS")
	case scene.HaLowEndpoint:
		p.TxPowerDBm = viper.GetFloat64("HALOW_EP_TX_POWER_DBM")
		p.Channel = viper.GetInt("HALOW_CHANNEL")
		p.ChannelWidthMHz = viper.GetFloat64("HALOW_CHANNEL_WIDTH_MHZ")
		p.MCS = viper.GetInt("HALOW_MCS")
	case scene.LoRaWANGateway:
		p.TxPowerDBm = viper.GetFloat64("LORA_GW_TX_POWER_DBM")
		p.AntennaGainDBi = viper.GetFloat64("LORA_GW_ANTENNA_GAIN_DBI")
		p.Region = viper.GetString("LORA_REGION")
		p.SpreadingFactor = viper.GetInt("LORA_SPREADING_FACTOR")
		p.BandwidthKHz = viper.GetFloat64("LORA_BANDWIDTH_KHZ")
	case scene.LoRaWANEndpoint:
		p.TxPowerDBm = viper.GetFloat64("LORA_EP_TX_POWER_DBM")
		p.Region = viper.GetString("LORA_REGION")
		p.SpreadingFactor = viper.GetInt("LORA_SPREADING_FACTOR")
		p.BandwidthKHz = viper.GetFloat64("LORA_BANDWIDTH_KHZ")
	case scene.NBIoTBase:
		p.TxPowerDBm = viper.GetFloat64("NBIOT_TX_POWER_DBM")
		p.AntennaGainDBi = viper.GetFloat64("NBIOT_BASE_ANTENNA_GAIN_DBI")
		p.Band = viper.GetString("NBIOT_BAND")
		p.ToneMode = viper.GetString("NBIOT_TONE_MODE")
	case scene.NBIoTEndpoint:
		p.TxPowerDBm = viper.GetFloat64("NBIOT_TX_POWER_DBM")
		p.Band = viper.GetString("NBIOT_BAND")
		p.ToneMode = viper.GetString("NBIOT_TONE_MODE")
	case scene.PowerMeter:
		p.TxPowerDBm = viper.GetFloat64("METER_TX_POWER_DBM")
		p.FrequencyMHz = viper.GetFloat64("METER_FREQUENCY_MHZ")
		p.BandwidthKHz = viper.GetFloat64("METER_BANDWIDTH_KHZ")
	}
	return p
}
