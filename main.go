package main

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/NivethaMadhavan/Attendance/config"
	"github.com/NivethaMadhavan/Attendance/database"
	"github.com/NivethaMadhavan/Attendance/handlers"
	"github.com/NivethaMadhavan/Attendance/qr"
	"github.com/NivethaMadhavan/Attendance/sessions"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// database
	store, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()

	// attendance core
	renderer := qr.NewRenderer(cfg.SubmitBaseURL)
	registry := sessions.NewRegistry(cfg, store, sessions.WithRenderer(renderer))
	defer registry.CloseAll()

	// router
	router := gin.Default()
	handlers.New(cfg, registry, store, renderer).Routes(router)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("starting attendance server")
	if err := router.Run(cfg.HTTPAddr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
