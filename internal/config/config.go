// Package config loads the scenario, training and service settings from a
// YAML file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fuel-route-rl/internal/engine"
)

// Environment variables that override the file.
const (
	EnvAddr      = "FUEL_ROUTE_ADDR"
	EnvGinMode   = "GIN_MODE"
	EnvRedisAddr = "REDIS_ADDR"
	EnvEpisodes  = "FUEL_ROUTE_EPISODES"
	EnvSeed      = "FUEL_ROUTE_SEED"
	EnvLogLevel  = "FUEL_ROUTE_LOG_LEVEL"
	EnvLogFormat = "FUEL_ROUTE_LOG_FORMAT"
)

// Config is everything a command needs to run.
type Config struct {
	Scenario engine.EnvironmentConfig `yaml:"scenario"`
	Training engine.Hyperparameters   `yaml:"training"`
	Server   ServerConfig             `yaml:"server"`
	Log      LogConfig                `yaml:"log"`
}

type ServerConfig struct {
	Addr      string        `yaml:"addr"`      // listen address for the HTTP API
	GinMode   string        `yaml:"ginMode"`   // debug, release or test
	RedisAddr string        `yaml:"redisAddr"` // enables the cross-process training lock
	LockKey   string        `yaml:"lockKey"`
	LockTTL   time.Duration `yaml:"lockTTL"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn or error
	Format string `yaml:"format"` // text or json
}

// Default returns the stock navigation scenario, a 16x16 map with clustered
// obstacles and seven stations, and the learning settings tuned for it.
func Default() *Config {
	return &Config{
		Scenario: engine.EnvironmentConfig{
			GridSize: 16,
			Start:    engine.Position{X: 0, Y: 0},
			Goal:     engine.Position{X: 15, Y: 15},
			Obstacles: []engine.Position{
				{X: 2, Y: 2}, {X: 2, Y: 3}, {X: 3, Y: 2},
				{X: 5, Y: 5}, {X: 5, Y: 6}, {X: 6, Y: 5},
				{X: 8, Y: 3}, {X: 9, Y: 3}, {X: 8, Y: 4},
				{X: 1, Y: 8}, {X: 2, Y: 8}, {X: 1, Y: 9},
				{X: 7, Y: 9}, {X: 7, Y: 10}, {X: 8, Y: 9},
				{X: 11, Y: 11}, {X: 12, Y: 11}, {X: 11, Y: 12},
				{X: 14, Y: 7}, {X: 13, Y: 7}, {X: 14, Y: 8},
				{X: 4, Y: 13}, {X: 5, Y: 13}, {X: 4, Y: 14},
			},
			FuelStations: []engine.Position{
				{X: 3, Y: 6}, {X: 8, Y: 7}, {X: 5, Y: 2}, {X: 9, Y: 10},
				{X: 12, Y: 4}, {X: 6, Y: 12}, {X: 13, Y: 13},
			},
			MaxFuel: 100,
		},
		Training: engine.Hyperparameters{
			LearningRate:   0.15,
			DiscountFactor: 0.99,
			Epsilon:        1.0,
			EpsilonDecay:   0.99,
			MinEpsilon:     0.01,
			Episodes:       200,
		},
		Server: ServerConfig{
			Addr:    ":8080",
			GinMode: "release",
			LockKey: "fuel-route:training",
			LockTTL: 10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load starts from Default, overlays the YAML file at path (if any), loads
// envFiles (".env" when none are given; a missing file is not an error) and
// finally applies environment overrides. The result is validated.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var result *multierror.Error
	if v, ok := lookupEnv(EnvAddr); ok {
		c.Server.Addr = v
	}
	if v, ok := lookupEnv(EnvGinMode); ok {
		c.Server.GinMode = v
	}
	if v, ok := lookupEnv(EnvRedisAddr); ok {
		c.Server.RedisAddr = v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := lookupEnv(EnvLogFormat); ok {
		c.Log.Format = v
	}
	if v, ok := lookupEnv(EnvEpisodes); ok {
		episodes, err := strconv.Atoi(v)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s must be an integer: %w", EnvEpisodes, err))
		} else {
			c.Training.Episodes = episodes
		}
	}
	if v, ok := lookupEnv(EnvSeed); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s must be an integer: %w", EnvSeed, err))
		} else {
			c.Training.Seed = seed
		}
	}
	return result.ErrorOrNil()
}

// Validate checks the scenario, the hyperparameters and the log settings.
func (c *Config) Validate() error {
	var result *multierror.Error
	if _, err := engine.NewEnvironment(c.Scenario); err != nil {
		result = multierror.Append(result, fmt.Errorf("scenario: %w", err))
	}
	if err := c.Training.Validate(); err != nil {
		result = multierror.Append(result, fmt.Errorf("training: %w", err))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("log format must be text or json (got %q)", c.Log.Format))
	}
	return result.ErrorOrNil()
}

// NewLogger builds the slog logger described by the log section.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", level)
	}
	return l, nil
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
