package main

import (
	"context"
	"os"

	"studio/config"
	"studio/di"
	"studio/helper"
	"studio/shared/logger"

	"github.com/rs/zerolog/log"
)

const (
	argLength = 2
)

func main() {
	if len(os.Args) < argLength {
		log.Fatal().Msg("Migration direction (up/down/drop/step-up/seed) is required")
	}

	cfg := config.Get()

	logger.InitLogger(cfg)

	var err error

	switch os.Args[1] {
	case "up":
		err = helper.Up(cfg)
	case "down":
		err = helper.Down(cfg)
	case "drop":
		err = helper.Drop(cfg)
	case "step-up":
		err = helper.StepUp(cfg)
	case "seed":
		err = di.InitializeSeeder().Run(context.Background())
	default:
		log.Fatal().Msg("Invalid direction. Use 'up', 'down', 'drop', 'step-up' or 'seed'")
	}

	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("migration command failed")
	}
}
