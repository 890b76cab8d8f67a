package engine

const (
	stepReward     = -1.0
	refuelReward   = -3.0
	depletedReward = -200.0
	goalReward     = 200.0
	goalFuelBonus  = 2.0
	approachBonus  = 5.0
	retreatPenalty = -3.0
)

// transitionResult is threaded through the reward stages in order.
type transitionResult struct {
	from   State
	action Action
	to     State
	reward float64
}

// rewardStage either overrides the reward or adds to it.
type rewardStage func(env *Environment, t *transitionResult)

// rewardStages run in this order: the depletion override comes before the
// goal override so that reaching the goal on the last drop of fuel still pays
// out, and shaping is added on top of whichever override won.
var rewardStages = []rewardStage{
	applyActionStage,
	depletionStage,
	goalArrivalStage,
	distanceShapingStage,
}

// transition applies action to s and returns the next state and its reward.
// It is pure: neither the environment nor any learned values change.
func (e *Environment) transition(s State, action Action) (State, float64) {
	t := transitionResult{from: s, action: action, to: s}
	for _, stage := range rewardStages {
		stage(e, &t)
	}
	return t.to, t.reward
}

func applyActionStage(env *Environment, t *transitionResult) {
	if t.action == ActionRefuel {
		t.to.Fuel = env.maxFuel
		t.reward = refuelReward
		return
	}
	t.to.Position = env.nextPosition(t.from.Position, t.action)
	t.to.Fuel = t.from.Fuel - 1
	t.reward = stepReward
}

func depletionStage(_ *Environment, t *transitionResult) {
	if t.to.Fuel <= 0 {
		t.reward = depletedReward
	}
}

func goalArrivalStage(env *Environment, t *transitionResult) {
	if t.to.Position == env.goal {
		t.reward = goalReward + goalFuelBonus*t.to.Fuel
	}
}

func distanceShapingStage(env *Environment, t *transitionResult) {
	before := env.DistanceToGoal(t.from.Position)
	after := env.DistanceToGoal(t.to.Position)
	switch {
	case after < before:
		t.reward += approachBonus
	case after > before && t.action != ActionRefuel:
		t.reward += retreatPenalty
	}
}
