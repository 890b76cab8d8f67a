package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuel-route-rl/internal/engine"
)

const sampleYAML = `
scenario:
  gridSize: 5
  start: {x: 0, y: 0}
  goal: {x: 4, y: 0}
  obstacles:
    - {x: 1, y: 1}
  fuelStations:
    - {x: 2, y: 0}
  maxFuel: 3
training:
  learningRate: 0.2
  discountFactor: 0.9
  epsilon: 0.5
  epsilonDecay: 0.95
  minEpsilon: 0.05
  episodes: 40
  seed: 9
  stepDelayMs: 5
server:
  addr: ":9090"
  lockTTL: 90s
log:
  level: debug
  format: json
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvAddr, EnvGinMode, EnvRedisAddr, EnvEpisodes, EnvSeed, EnvLogLevel, EnvLogFormat} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 16, cfg.Scenario.GridSize)
	assert.Len(t, cfg.Scenario.Obstacles, 24)
	assert.Len(t, cfg.Scenario.FuelStations, 7)
	assert.Equal(t, 200, cfg.Training.Episodes)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeFile(t, "config.yaml", sampleYAML), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, engine.EnvironmentConfig{
		GridSize:     5,
		Start:        engine.Position{X: 0, Y: 0},
		Goal:         engine.Position{X: 4, Y: 0},
		Obstacles:    []engine.Position{{X: 1, Y: 1}},
		FuelStations: []engine.Position{{X: 2, Y: 0}},
		MaxFuel:      3,
	}, cfg.Scenario)
	assert.Equal(t, 0.2, cfg.Training.LearningRate)
	assert.Equal(t, 40, cfg.Training.Episodes)
	assert.Equal(t, int64(9), cfg.Training.Seed)
	assert.Equal(t, 5, cfg.Training.StepDelayMs)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "release", cfg.Server.GinMode, "unset keys keep their defaults")
	assert.Equal(t, 90*time.Second, cfg.Server.LockTTL)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAddr, ":7000")
	t.Setenv(EnvEpisodes, "12")
	t.Setenv(EnvRedisAddr, "localhost:6379")

	envFile := writeFile(t, ".env", "FUEL_ROUTE_SEED=42\nFUEL_ROUTE_EPISODES=99\n")
	cfg, err := Load(writeFile(t, "config.yaml", sampleYAML), envFile)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 12, cfg.Training.Episodes, "process environment wins over the env file")
	assert.Equal(t, int64(42), cfg.Training.Seed)
	assert.Equal(t, "localhost:6379", cfg.Server.RedisAddr)
}

func TestLoadRejectsBadInput(t *testing.T) {
	missingEnv := filepath.Join(t.TempDir(), "missing.env")

	t.Run("unreadable file", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), missingEnv)
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(writeFile(t, "bad.yaml", "scenario: [1, 2"), missingEnv)
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("non-numeric override", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvEpisodes, "many")
		_, err := Load("", missingEnv)
		assert.ErrorContains(t, err, EnvEpisodes+" must be an integer")
	})

	t.Run("invalid scenario", func(t *testing.T) {
		clearEnv(t)
		yaml := "scenario:\n  gridSize: 3\n  goal: {x: 0, y: 0}\n  obstacles: []\n  fuelStations: []\n"
		_, err := Load(writeFile(t, "c.yaml", yaml), missingEnv)
		require.Error(t, err)
		assert.ErrorIs(t, err, engine.ErrInvalidConfig)
		assert.Contains(t, err.Error(), "start and goal must differ")
	})

	t.Run("bad log settings", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvLogLevel, "loud")
		t.Setenv(EnvLogFormat, "xml")
		_, err := Load("", missingEnv)
		assert.ErrorContains(t, err, `unknown log level "loud"`)
		assert.ErrorContains(t, err, "log format must be text or json")
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "episode", 3)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"episode":3`)

	_, err = LogConfig{Level: "chatty"}.NewLogger(&buf)
	assert.Error(t, err)
}
