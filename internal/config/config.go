package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr      string
	DBDriver  string
	DBDSN     string
	JWTSecret string
	JWTTTL    time.Duration
}

// Load reads configuration from the environment once at startup. Values are
// treated as immutable afterwards.
func Load() Config {
	cfg := Config{
		Addr:      ":8080",
		DBDriver:  "sqlite3",
		DBDSN:     "messenger.db",
		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    24 * time.Hour,
	}

	if v := os.Getenv("APP_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.DBDriver = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DBDSN = v
	}
	if v := os.Getenv("JWT_TTL_HOURS"); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h > 0 {
			cfg.JWTTTL = time.Duration(h) * time.Hour
		}
	}
	return cfg
}
