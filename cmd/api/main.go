package main

import (
	"context"

	"homefind-backend/bootstrap"

	"github.com/rs/zerolog/log"
)

func main() {
	app, err := bootstrap.New()
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}

	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("database: get DB")
		}
		if err := sqlDB.Ping(); err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		log.Info().Msg("database connected")
	}
	if app.Redis != nil {
		if err := app.Redis.Ping(context.Background()).Err(); err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		log.Info().Msg("redis connected")
	}

	port := app.Config.Port
	log.Info().Str("port", port).Msgf("server running at http://localhost:%s, health at /health/json", port)
	if err := app.Fiber.Listen(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
