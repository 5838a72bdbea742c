package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables supplying flag defaults.
const (
	EnvDatabase = "WHEREABOUTS_DB"
	EnvCache    = "WHEREABOUTS_CACHE"
	EnvRedisURL = "WHEREABOUTS_REDIS_URL"
	EnvPolicy   = "WHEREABOUTS_POLICY"
)

// LoadEnv loads .env style files into the process environment. Variables
// already set win. With no files it reads ./.env; a missing file is not an
// error.
func LoadEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
