// Package config reads process settings from the environment, an optional
// .env file and an optional YAML optimizer tuning file.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"

	"canvassplan/internal/opt"
)

const (
	DefaultPort      = "8080"
	DefaultMaxPoints = 5000
	DefaultTenant    = "t_demo"
)

// DefaultMaxRoutePoints bounds one route ordering. Construction and
// driving-mode 2-opt grow roughly with the cube of the point count.
const DefaultMaxRoutePoints = 300

type Config struct {
	Port            string
	DatabaseURL     string
	DBDriver        string // pgx or sqlite
	DBMigrate       bool
	RedisURL        string
	RateRPS         float64
	RateBurst       int
	MaxPoints       int // stops per request
	MaxRoutePoints  int // stops ordered as one route
	OptimizerConfig string
	Tuning          opt.Tuning
}

// Load reads .env when present, then the environment. Values already set in
// the environment win over .env.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	c := Config{
		Port:            getEnv("PORT", DefaultPort),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DBDriver:        os.Getenv("DB_DRIVER"),
		RedisURL:        os.Getenv("REDIS_URL"),
		OptimizerConfig: os.Getenv("OPTIMIZER_CONFIG"),
		MaxPoints:       DefaultMaxPoints,
		MaxRoutePoints:  DefaultMaxRoutePoints,
		Tuning:          opt.DefaultTuning(),
	}
	if c.DBDriver == "" && c.DatabaseURL != "" {
		c.DBDriver = DriverFor(c.DatabaseURL)
	}
	if c.DBDriver != "" && c.DBDriver != "pgx" && c.DBDriver != "sqlite" {
		return c, fmt.Errorf("config: DB_DRIVER %q: want pgx or sqlite", c.DBDriver)
	}

	var err error
	if c.DBMigrate, err = getBool("DB_MIGRATE", c.DBDriver == "sqlite"); err != nil {
		return c, err
	}
	if c.RateRPS, err = getFloat("RATE_RPS", 0); err != nil {
		return c, err
	}
	if c.RateBurst, err = getInt("RATE_BURST", 20); err != nil {
		return c, err
	}
	if c.MaxPoints, err = getInt("MAX_POINTS", DefaultMaxPoints); err != nil {
		return c, err
	}
	if c.MaxRoutePoints, err = getInt("MAX_ROUTE_POINTS", DefaultMaxRoutePoints); err != nil {
		return c, err
	}
	if c.OptimizerConfig != "" {
		if c.Tuning, err = LoadTuning(c.OptimizerConfig); err != nil {
			return c, err
		}
	}
	return c, nil
}

// DriverFor guesses the database/sql driver from a DATABASE_URL.
func DriverFor(url string) string {
	u := strings.ToLower(url)
	if strings.HasPrefix(u, "postgres://") || strings.HasPrefix(u, "postgresql://") || strings.Contains(u, "host=") {
		return "pgx"
	}
	return "sqlite"
}

// LoadTuning reads a YAML file of optimizer constants. Keys left out keep
// their default values.
func LoadTuning(path string) (opt.Tuning, error) {
	t := opt.DefaultTuning()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("config: read tuning %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return opt.DefaultTuning(), fmt.Errorf("config: parse tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return opt.DefaultTuning(), fmt.Errorf("config: tuning %s: %w", path, err)
	}
	return t, nil
}

// Redacted returns settings safe to echo on the debug endpoint.
func (c Config) Redacted() map[string]any {
	return map[string]any{
		"port":            c.Port,
		"dbDriver":        c.DBDriver,
		"database":        c.DatabaseURL != "",
		"dbMigrate":       c.DBMigrate,
		"redis":           c.RedisURL != "",
		"rateRps":         c.RateRPS,
		"rateBurst":       c.RateBurst,
		"maxPoints":       c.MaxPoints,
		"maxRoutePoints":  c.MaxRoutePoints,
		"optimizerConfig": c.OptimizerConfig,
		"tuning":          c.Tuning,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}
