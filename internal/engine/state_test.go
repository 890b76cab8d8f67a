package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegalActions(t *testing.T) {
	cfg := openGrid(5, 10)
	cfg.Obstacles = []Position{{X: 2, Y: 1}}
	cfg.FuelStations = []Position{{X: 3, Y: 3}}
	env := mustEnvironment(t, cfg)

	tests := []struct {
		name  string
		state State
		want  []Action
	}{
		{"top-left corner", State{Position{0, 0}, 10}, []Action{ActionDown, ActionRight}},
		{"bottom-right corner", State{Position{4, 4}, 10}, []Action{ActionUp, ActionLeft}},
		{"below obstacle", State{Position{2, 2}, 10}, []Action{ActionDown, ActionLeft, ActionRight}},
		{"station with room in tank", State{Position{3, 3}, 4.5}, []Action{ActionUp, ActionDown, ActionLeft, ActionRight, ActionRefuel}},
		{"station with full tank", State{Position{3, 3}, 10}, []Action{ActionUp, ActionDown, ActionLeft, ActionRight}},
		{"empty tank still moves", State{Position{0, 0}, 0}, []Action{ActionDown, ActionRight}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, env.legalActions(tt.state))
		})
	}
}

func TestLegalActionsNeverLeaveGridOrHitObstacles(t *testing.T) {
	cfg := EnvironmentConfig{
		GridSize: 6,
		Start:    Position{0, 0},
		Goal:     Position{5, 5},
		Obstacles: []Position{
			{1, 0}, {1, 1}, {3, 2}, {3, 3}, {3, 4}, {0, 4}, {5, 4}, {4, 1},
		},
		FuelStations: []Position{{2, 2}, {4, 4}},
		MaxFuel:      12,
	}
	env := mustEnvironment(t, cfg)

	for y := 0; y < env.Size(); y++ {
		for x := 0; x < env.Size(); x++ {
			pos := Position{X: x, Y: y}
			if env.IsObstacle(pos) {
				continue
			}
			for _, fuel := range []float64{0, 5.5, 12} {
				for _, action := range env.legalActions(State{Position: pos, Fuel: fuel}) {
					if action == ActionRefuel {
						assert.True(t, env.IsFuelStation(pos))
						assert.Less(t, fuel, env.MaxFuel())
						continue
					}
					dx, dy := action.delta()
					dest := Position{X: pos.X + dx, Y: pos.Y + dy}
					assert.True(t, env.InBounds(dest), "%v from %v leaves the grid", action, pos)
					assert.False(t, env.IsObstacle(dest), "%v from %v enters an obstacle", action, pos)
				}
			}
		}
	}
}

func TestLegalActionsEmptyWhenBoxedIn(t *testing.T) {
	cfg := openGrid(4, 5)
	cfg.Obstacles = []Position{{1, 0}, {0, 1}}
	env := mustEnvironment(t, cfg)
	assert.Empty(t, env.legalActions(State{Position{0, 0}, 5}))
}

func TestStateKeyFloorsFuel(t *testing.T) {
	a := State{Position{1, 2}, 3.0}
	b := State{Position{1, 2}, 3.99}
	c := State{Position{1, 2}, 4.0}
	assert.Equal(t, a.key(), b.key())
	assert.NotEqual(t, a.key(), c.key())
	assert.Equal(t, StateKey{X: 1, Y: 2, Fuel: 3}, b.key())
	assert.Equal(t, -1, State{Position{0, 0}, -0.5}.key().Fuel)
}

func TestActionText(t *testing.T) {
	assert.Equal(t, "refuel", ActionRefuel.String())
	assert.Equal(t, "action(9)", Action(9).String())

	raw, err := json.Marshal(map[Action]float64{ActionLeft: 1.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"left":1.5}`, string(raw))

	var decoded map[Action]float64
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 1.5, decoded[ActionLeft])

	var a Action
	assert.Error(t, a.UnmarshalText([]byte("sideways")))
}
