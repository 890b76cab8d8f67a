package engine

// refuelSafetyMargin pads the distance to the goal before comparing it with
// the fuel left.
const refuelSafetyMargin = 1.2

// NeedsRefuel reports whether currentFuel falls short of the distance to the
// goal plus a 20% margin. It does not look at where the stations are.
func NeedsRefuel(currentFuel, distanceToGoal float64) bool {
	return currentFuel < distanceToGoal*refuelSafetyMargin
}

func (t *Trainer) NeedsRefuel(currentFuel, distanceToGoal float64) bool {
	return NeedsRefuel(currentFuel, distanceToGoal)
}

// OptimalPath replays the learned values greedily from the start with a full
// tank. Refuel steps change the fuel but add no position. The replay stops at
// the goal, when no action is legal, or at the step cap, so the path may end
// short of the goal. It never writes to the value table and must not be
// called while Train is running.
func (t *Trainer) OptimalPath() []Position {
	state := t.startState()
	path := []Position{state.Position}
	for steps := 0; steps < t.env.StepCap(); steps++ {
		legal := t.env.legalActions(state)
		if len(legal) == 0 {
			break
		}
		s := state
		action := greedyAction(legal, func(a Action) float64 {
			return t.qvalues.peek(s, a)
		})
		state, _ = t.env.transition(state, action)
		if action != ActionRefuel {
			path = append(path, state.Position)
		}
		if state.Position == t.env.goal {
			break
		}
	}
	return path
}

// RouteSummary is what a caller shows once training is over.
type RouteSummary struct {
	Path        []Position `json:"path"`
	Steps       int        `json:"steps"`
	ReachesGoal bool       `json:"reachesGoal"`
	NeedsRefuel bool       `json:"needsRefuel"`
}

// Summarize extracts the greedy route and judges whether currentFuel covers
// its length.
func (t *Trainer) Summarize(currentFuel float64) RouteSummary {
	path := t.OptimalPath()
	steps := len(path) - 1
	return RouteSummary{
		Path:        path,
		Steps:       steps,
		ReachesGoal: path[len(path)-1] == t.env.goal,
		NeedsRefuel: NeedsRefuel(currentFuel, float64(steps)),
	}
}
