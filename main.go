// main.go
//
// Entrypoint for the ChessHawk tactics trainer server.
// Boot order: env file, logger, config, database (optional), puzzle
// collection (file or embedded fallback), HTTP server.

package main

import (
	"database/sql"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bvst/ChessHawk-sub000/assets"
	"github.com/bvst/ChessHawk-sub000/internal/httpserver"
	"github.com/bvst/ChessHawk-sub000/internal/puzzle"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	cfg := loadConfig()

	var db *sql.DB
	if cfg.Database.Path == "" {
		log.Warn().Msg("database disabled: accounts and daily results will not persist")
	} else {
		var err error
		db, err = openDB(cfg.Database.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("open database")
		}
		if err := migrate(db); err != nil {
			log.Fatal().Err(err).Msg("apply migrations")
		}
	}

	puzzles, err := puzzle.Load(cfg.Puzzles.Path, assets.BuiltinPuzzles())
	if err != nil {
		log.Fatal().Err(err).Msg("load puzzle collection")
	}
	log.Info().Int("puzzles", puzzles.Count()).Str("source", puzzles.Source()).Msg("collection ready")

	srv := httpserver.New(httpserver.Options{
		DB:             db,
		Puzzles:        puzzles,
		ClientOrigin:   cfg.Server.ClientOrigin,
		JWTSecret:      cfg.Auth.JWTSecret,
		JWTExpiresDays: cfg.Auth.JWTExpiresDays,
		CookieName:     cfg.Auth.CookieName,
		DailySalt:      cfg.Daily.Salt,
		OpponentDelay:  cfg.opponentDelay(),
		Production:     cfg.Server.Production,
	})

	log.Info().Str("port", cfg.Server.Port).Msg("starting chesshawk server")
	if err := srv.Start(":" + cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
