package engine

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ErrInvalidConfig is wrapped by every error returned while validating an
// environment or a set of hyperparameters.
var ErrInvalidConfig = errors.New("invalid configuration")

// Position is a cell on the grid. X grows to the right, Y grows downwards.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// EnvironmentConfig is the caller-supplied description of a world.
type EnvironmentConfig struct {
	GridSize     int        `json:"gridSize" yaml:"gridSize"`
	Start        Position   `json:"start" yaml:"start"`
	Goal         Position   `json:"goal" yaml:"goal"`
	Obstacles    []Position `json:"obstacles" yaml:"obstacles"`
	FuelStations []Position `json:"fuelStations" yaml:"fuelStations"`
	MaxFuel      float64    `json:"maxFuel" yaml:"maxFuel"`
}

type tileKind int

const (
	tileEmpty tileKind = iota
	tileObstacle
	tileFuelStation
)

// Environment is an immutable grid world. Build one with NewEnvironment.
type Environment struct {
	size    int
	start   Position
	goal    Position
	maxFuel float64
	tiles   map[Position]tileKind
	cfg     EnvironmentConfig
}

// NewEnvironment validates cfg and returns the world it describes. All
// violations are reported at once and the returned error wraps ErrInvalidConfig.
func NewEnvironment(cfg EnvironmentConfig) (*Environment, error) {
	var result *multierror.Error
	if cfg.GridSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("grid size must be positive (got %d)", cfg.GridSize))
	}
	if cfg.MaxFuel <= 0 {
		result = multierror.Append(result, fmt.Errorf("max fuel must be positive (got %g)", cfg.MaxFuel))
	}

	env := &Environment{
		size:    cfg.GridSize,
		start:   cfg.Start,
		goal:    cfg.Goal,
		maxFuel: cfg.MaxFuel,
		tiles:   make(map[Position]tileKind, len(cfg.Obstacles)+len(cfg.FuelStations)),
	}

	for _, pos := range cfg.Obstacles {
		if !env.InBounds(pos) {
			result = multierror.Append(result, fmt.Errorf("obstacle %v is outside the grid", pos))
			continue
		}
		env.tiles[pos] = tileObstacle
	}
	for _, pos := range cfg.FuelStations {
		if !env.InBounds(pos) {
			result = multierror.Append(result, fmt.Errorf("fuel station %v is outside the grid", pos))
			continue
		}
		switch env.tiles[pos] {
		case tileObstacle:
			result = multierror.Append(result, fmt.Errorf("fuel station %v overlaps an obstacle", pos))
			continue
		case tileFuelStation:
			result = multierror.Append(result, fmt.Errorf("fuel station %v is listed twice", pos))
			continue
		}
		env.tiles[pos] = tileFuelStation
	}

	for _, endpoint := range []struct {
		name string
		pos  Position
	}{{"start", cfg.Start}, {"goal", cfg.Goal}} {
		if !env.InBounds(endpoint.pos) {
			result = multierror.Append(result, fmt.Errorf("%s %v is outside the grid", endpoint.name, endpoint.pos))
			continue
		}
		if env.IsObstacle(endpoint.pos) {
			result = multierror.Append(result, fmt.Errorf("%s %v is on an obstacle", endpoint.name, endpoint.pos))
		}
	}
	if cfg.Start == cfg.Goal {
		result = multierror.Append(result, fmt.Errorf("start and goal must differ (both %v)", cfg.Start))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	env.cfg = cloneEnvironmentConfig(cfg)
	return env, nil
}

func (e *Environment) Size() int        { return e.size }
func (e *Environment) Start() Position  { return e.start }
func (e *Environment) Goal() Position   { return e.goal }
func (e *Environment) MaxFuel() float64 { return e.maxFuel }

// Config returns a copy of the configuration the environment was built from.
func (e *Environment) Config() EnvironmentConfig {
	return cloneEnvironmentConfig(e.cfg)
}

func (e *Environment) InBounds(pos Position) bool {
	return pos.X >= 0 && pos.X < e.size && pos.Y >= 0 && pos.Y < e.size
}

func (e *Environment) IsObstacle(pos Position) bool {
	return e.tileAt(pos) == tileObstacle
}

func (e *Environment) IsFuelStation(pos Position) bool {
	return e.tileAt(pos) == tileFuelStation
}

// IsTraversable reports whether an agent may stand on pos.
func (e *Environment) IsTraversable(pos Position) bool {
	return e.InBounds(pos) && !e.IsObstacle(pos)
}

// StepCap bounds both training episodes and greedy replays.
func (e *Environment) StepCap() int {
	return 2 * e.size * e.size
}

func (e *Environment) tileAt(pos Position) tileKind {
	if t, ok := e.tiles[pos]; ok {
		return t
	}
	return tileEmpty
}

// nextPosition returns the cell reached by a move. Moves into a wall or off
// the grid leave the agent where it is; refuel never moves it.
func (e *Environment) nextPosition(pos Position, action Action) Position {
	dx, dy := action.delta()
	next := Position{X: pos.X + dx, Y: pos.Y + dy}
	if !e.IsTraversable(next) {
		return pos
	}
	return next
}

func cloneEnvironmentConfig(cfg EnvironmentConfig) EnvironmentConfig {
	out := cfg
	out.Obstacles = clonePositions(cfg.Obstacles)
	out.FuelStations = clonePositions(cfg.FuelStations)
	return out
}

func clonePositions(positions []Position) []Position {
	if len(positions) == 0 {
		return nil
	}
	copied := make([]Position, len(positions))
	copy(copied, positions)
	return copied
}
