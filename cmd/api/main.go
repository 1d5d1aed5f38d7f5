package main

import (
	"context"
	"os"
	"time"

	"middlemarket-backend/internal/app"
	"middlemarket-backend/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	fiberApp, db, rdb, err := app.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}

	if db != nil {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.Ping() != nil {
			log.Fatal().Err(err).Msg("database is unreachable")
		}
		log.Info().Msg("database connection established")
	} else {
		log.Warn().Msg("DATABASE_URL not set, running without a database")
	}

	if rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatal().Err(err).Msg("redis is unreachable")
		}
		cancel()
		log.Info().Msg("redis connection established")
	}

	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("starting server")
	if err := fiberApp.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
