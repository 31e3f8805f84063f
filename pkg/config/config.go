// Package config loads process configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"github.com/google/uuid"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/0xwonj/dungeon-sim/pkg/logger"
)

// Config is the full set of environment-driven settings for the
// simulation process.
type Config struct {
	SessionID         string `env:"GAME_SESSION_ID"`
	SaveDataDir       string `env:"SAVE_DATA_DIR,default=./data"`
	ContentDir        string `env:"CONTENT_DIR,default=./content"`
	EnableZKProving   bool   `env:"ENABLE_ZK_PROVING,default=false"`
	EnablePersistence bool   `env:"ENABLE_PERSISTENCE,default=true"`
	CheckpointInterval int   `env:"CHECKPOINT_INTERVAL,default=10"`
	MaxHookDepth      int    `env:"MAX_HOOK_DEPTH,default=16"`
	ProverBackend     string `env:"PROVER_BACKEND,default=stub"`
	HTTPAddr          string `env:"HTTP_ADDR,default="`

	Logging logger.Config
}

// Load reads a .env file if present (missing file is not an error) then
// decodes environment variables into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil {
		return nil, err
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	return cfg, nil
}
