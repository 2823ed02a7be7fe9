package application

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SeriesConfig bounds time-series responses.
type SeriesConfig struct {
	MaxPoints int `yaml:"max_points"`
}

// PaginationConfig bounds listing pages.
type PaginationConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// Config defines telemetry policy knobs.
type Config struct {
	Series     SeriesConfig      `yaml:"series"`
	Pagination PaginationConfig  `yaml:"pagination"`
	Units      map[string]string `yaml:"units"`
}

// LoadConfig loads telemetry policy from yaml or env defaults.
func LoadConfig() (Config, error) {
	cfg := Config{
		Series: SeriesConfig{
			MaxPoints: getenvIntDefault("SERIES_MAX_POINTS", 100),
		},
		Pagination: PaginationConfig{
			DefaultLimit: getenvIntDefault("PAGE_DEFAULT_LIMIT", 100),
			MaxLimit:     getenvIntDefault("PAGE_MAX_LIMIT", 1000),
		},
	}

	if path := os.Getenv("TELEMETRY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.Series.MaxPoints < 1 {
		return cfg, errors.New("telemetry: series max_points must be positive")
	}
	if cfg.Pagination.DefaultLimit < 1 || cfg.Pagination.MaxLimit < cfg.Pagination.DefaultLimit {
		return cfg, errors.New("telemetry: invalid pagination bounds")
	}
	return cfg, nil
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
