// Package main provides the entry point for the LPWAN Planner
// application.
package main

import (
	"os"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lpwan-planner/internal/config"
	"lpwan-planner/internal/version"
	"lpwan-planner/ui/mainwindow"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	if os.Getenv("PLANNER_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Str("version", version.Version).Msg("starting lpwan-planner")

	cfg := config.Load()
	log.Info().
		Str("simulator", cfg.Simulator.BaseURL).
		Float64("width_km", cfg.Grid.WidthKm).
		Float64("height_km", cfg.Grid.HeightKm).
		Float64("resolution_m", cfg.Grid.ResolutionM).
		Msg("configuration loaded")

	a := fyneapp.NewWithID("io.lpwan.planner")
	win := mainwindow.New(a, cfg)
	win.ShowAndRun()
}
