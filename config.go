// config.go
//
// Runtime configuration for the trainer server.
// Precedence: defaults, then an optional TOML file (CONFIG_FILE, default
// ./chesshawk.toml), then the environment. The environment wins so
// container deployments can override a baked-in file.

package main

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

// config is the TOML file shape.
type config struct {
	Server struct {
		Port         string `toml:"port"`
		ClientOrigin string `toml:"client_origin"`
		Production   bool   `toml:"production"`
	} `toml:"server"`
	Database struct {
		Path string `toml:"path"` // empty runs without persistence
	} `toml:"database"`
	Puzzles struct {
		Path string `toml:"path"` // empty uses the embedded collection
	} `toml:"puzzles"`
	Auth struct {
		JWTSecret      string `toml:"jwt_secret"`
		JWTExpiresDays int    `toml:"jwt_expires_days"`
		CookieName     string `toml:"cookie_name"`
	} `toml:"auth"`
	Daily struct {
		Salt string `toml:"salt"`
	} `toml:"daily"`
	Trainer struct {
		OpponentDelayMs int `toml:"opponent_delay_ms"`
	} `toml:"trainer"`
}

// defaultConfig returns development defaults.
func defaultConfig() config {
	var c config
	c.Server.Port = "5175"
	c.Server.ClientOrigin = "http://localhost:5173"
	c.Database.Path = "./data/chesshawk.db"
	c.Auth.JWTSecret = "dev_secret_change_me"
	c.Auth.JWTExpiresDays = 14
	c.Auth.CookieName = "chesshawk_token"
	c.Daily.Salt = "local_dev_salt"
	c.Trainer.OpponentDelayMs = 800
	return c
}

// loadConfig merges defaults, the optional TOML file, and the environment.
func loadConfig() config {
	c := defaultConfig()

	path := getEnv("CONFIG_FILE", "chesshawk.toml")
	if _, err := toml.DecodeFile(path, &c); err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("no config file, using defaults")
		} else {
			log.Warn().Err(err).Str("path", path).Msg("config file ignored")
		}
	}

	// Environment overrides
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.ClientOrigin = getEnv("CLIENT_ORIGIN", c.Server.ClientOrigin)
	if os.Getenv("NODE_ENV") == "production" {
		c.Server.Production = true
	}
	c.Database.Path = getEnv("DATABASE_PATH", c.Database.Path)
	c.Puzzles.Path = getEnv("PUZZLES_PATH", c.Puzzles.Path)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.JWTExpiresDays = envInt("JWT_EXPIRES_DAYS", c.Auth.JWTExpiresDays)
	c.Auth.CookieName = getEnv("COOKIE_NAME", c.Auth.CookieName)
	c.Daily.Salt = getEnv("DAILY_SALT", c.Daily.Salt)
	c.Trainer.OpponentDelayMs = envInt("OPPONENT_DELAY_MS", c.Trainer.OpponentDelayMs)
	return c
}

// opponentDelay converts the configured reply delay to a duration.
func (c config) opponentDelay() time.Duration {
	return time.Duration(c.Trainer.OpponentDelayMs) * time.Millisecond
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt parses an integer environment override; def on absence or junk.
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
