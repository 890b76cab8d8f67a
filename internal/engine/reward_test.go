package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	cfg := openGrid(5, 10)
	cfg.FuelStations = []Position{{2, 2}, {4, 4}}
	env := mustEnvironment(t, cfg)

	tests := []struct {
		name       string
		from       State
		action     Action
		wantState  State
		wantReward float64
	}{
		{
			name:       "step towards goal",
			from:       State{Position{0, 0}, 10},
			action:     ActionRight,
			wantState:  State{Position{1, 0}, 9},
			wantReward: stepReward + approachBonus,
		},
		{
			name:       "step away from goal",
			from:       State{Position{1, 0}, 9},
			action:     ActionLeft,
			wantState:  State{Position{0, 0}, 8},
			wantReward: stepReward + retreatPenalty,
		},
		{
			name:       "refuel fills the tank without shaping",
			from:       State{Position{2, 2}, 3},
			action:     ActionRefuel,
			wantState:  State{Position{2, 2}, 10},
			wantReward: refuelReward,
		},
		{
			name:       "running dry overrides the step cost",
			from:       State{Position{1, 0}, 1},
			action:     ActionLeft,
			wantState:  State{Position{0, 0}, 0},
			wantReward: depletedReward + retreatPenalty,
		},
		{
			name:       "running dry while approaching still earns shaping",
			from:       State{Position{1, 0}, 0.5},
			action:     ActionDown,
			wantState:  State{Position{1, 1}, -0.5},
			wantReward: depletedReward + approachBonus,
		},
		{
			name:       "goal pays a fuel bonus",
			from:       State{Position{3, 4}, 5},
			action:     ActionRight,
			wantState:  State{Position{4, 4}, 4},
			wantReward: goalReward + goalFuelBonus*4 + approachBonus,
		},
		{
			name:       "goal on the last drop beats depletion",
			from:       State{Position{4, 3}, 1},
			action:     ActionDown,
			wantState:  State{Position{4, 4}, 0},
			wantReward: 205,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, reward := env.transition(tt.from, tt.action)
			assert.Equal(t, tt.wantState, next)
			assert.Equal(t, tt.wantReward, reward)
		})
	}
}

func TestTransitionIntoGoalStationOnEmptyTank(t *testing.T) {
	cfg := openGrid(3, 4)
	cfg.FuelStations = []Position{cfg.Goal}
	env := mustEnvironment(t, cfg)

	next, reward := env.transition(State{Position{1, 2}, 1}, ActionRight)
	assert.Equal(t, env.Goal(), next.Position)
	assert.Equal(t, 0.0, next.Fuel)
	assert.Equal(t, 200.0+2*0+5, reward)
	assert.NotEqual(t, depletedReward, reward)
}

func TestTransitionBlockedFallbackStaysPut(t *testing.T) {
	cfg := openGrid(4, 5)
	cfg.Obstacles = []Position{{1, 0}, {0, 1}}
	env := mustEnvironment(t, cfg)

	next, reward := env.transition(State{Position{0, 0}, 5}, FallbackAction)
	assert.Equal(t, State{Position{0, 0}, 4}, next)
	assert.Equal(t, stepReward, reward)
}

func TestTransitionIsPure(t *testing.T) {
	env := mustEnvironment(t, openGrid(4, 5))
	from := State{Position{1, 1}, 3}
	a, ra := env.transition(from, ActionDown)
	b, rb := env.transition(from, ActionDown)
	assert.Equal(t, a, b)
	assert.Equal(t, ra, rb)
	assert.Equal(t, State{Position{1, 1}, 3}, from)
}
