package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults are the form defaults applied when an optimize request omits a
// parameter. Targets and weight are whole percents, as entered by the user.
type Defaults struct {
	MainCol    string  `yaml:"main_col"`
	SecCol     string  `yaml:"sec_col"`
	MainTarget float64 `yaml:"main_target"`
	SecTarget  float64 `yaml:"sec_target"`
	MainWeight float64 `yaml:"main_weight"`
}

type Config struct {
	Port           string        `yaml:"port"`
	HTTPTimeout    time.Duration `yaml:"-"`
	LogLevel       slog.Level    `yaml:"-"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	ExcludeSites   string        `yaml:"exclude_sites"` // regex, empty = built-in default
	Defaults       Defaults      `yaml:"defaults"`
}

// FromEnv builds the config from the environment, optionally merged over a
// YAML file pointed at by CONFIG_FILE. A local .env is honored when present.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:           "8080",
		HTTPTimeout:    15 * time.Second,
		LogLevel:       slog.LevelInfo,
		MaxUploadBytes: 64 << 20,
		Defaults: Defaults{
			MainCol:    "I",
			SecCol:     "K",
			MainTarget: 10.0,
			SecTarget:  5.0,
			MainWeight: 80.0,
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &cfg)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil {
			cfg.HTTPTimeout = d
		}
	}
	if os.Getenv("LOG_LEVEL") == "debug" {
		cfg.LogLevel = slog.LevelDebug
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxUploadBytes = n
		}
	}
	cfg.ExcludeSites = envOr("EXCLUDE_SITES", cfg.ExcludeSites)
	return cfg
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
