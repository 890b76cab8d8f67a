package engine

import (
	"fmt"
	"math"
)

// Action is one of the five things an agent can do in a step.
type Action int

const (
	ActionUp Action = iota
	ActionDown
	ActionLeft
	ActionRight
	ActionRefuel
)

// FallbackAction is taken when a state offers no legal action. That only
// happens when the agent is walled in and cannot refuel.
const FallbackAction = ActionUp

// actionOrder is the enumeration order; greedy selection breaks ties in favour
// of the action listed first.
var actionOrder = [...]Action{ActionUp, ActionDown, ActionLeft, ActionRight, ActionRefuel}

var actionNames = map[Action]string{
	ActionUp:     "up",
	ActionDown:   "down",
	ActionLeft:   "left",
	ActionRight:  "right",
	ActionRefuel: "refuel",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// MarshalText lets actions act as JSON object keys.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	for action, name := range actionNames {
		if name == string(text) {
			*a = action
			return nil
		}
	}
	return fmt.Errorf("unknown action %q", text)
}

func (a Action) isMove() bool {
	return a != ActionRefuel
}

func (a Action) delta() (int, int) {
	switch a {
	case ActionUp:
		return 0, -1
	case ActionDown:
		return 0, 1
	case ActionLeft:
		return -1, 0
	case ActionRight:
		return 1, 0
	}
	return 0, 0
}

// State is what the agent knows at a decision point. Fuel is continuous.
type State struct {
	Position Position `json:"position"`
	Fuel     float64  `json:"fuel"`
}

// StateKey is the discretized form of a State: fuel is floored so that the
// table of learned values stays finite.
type StateKey struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Fuel int `json:"fuel"`
}

func (s State) key() StateKey {
	return StateKey{X: s.Position.X, Y: s.Position.Y, Fuel: int(math.Floor(s.Fuel))}
}

// legalActions lists the actions available in s in enumeration order. Fuel
// never forbids a move; running dry is punished by the reward instead.
func (e *Environment) legalActions(s State) []Action {
	actions := make([]Action, 0, len(actionOrder))
	for _, action := range actionOrder {
		if !action.isMove() {
			continue
		}
		dx, dy := action.delta()
		if e.IsTraversable(Position{X: s.Position.X + dx, Y: s.Position.Y + dy}) {
			actions = append(actions, action)
		}
	}
	if e.IsFuelStation(s.Position) && s.Fuel < e.maxFuel {
		actions = append(actions, ActionRefuel)
	}
	return actions
}
