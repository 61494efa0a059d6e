package main

import (
	"studio/config"
	"studio/di"
	"studio/helper"
	"studio/shared/logger"

	"github.com/rs/zerolog/log"
)

// @title Studio Booking API
// @version 1.0
// @description Hourly booking of studio rooms.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Get()

	logger.InitLogger(cfg)

	if cfg.DB.Postgres.AutoMigrate {
		if err := helper.Up(cfg); err != nil {
			log.Fatal().Err(err).Msg("failed to run database migrations")
		}
	}

	http := di.InitializeService()
	http.Serve()
}
