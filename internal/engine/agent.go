package engine

import (
	"math/rand"
)

type epsilonGreedyAgent struct {
	rng     *rand.Rand
	qvalues *qTable
	epsilon float64
}

func newEpsilonGreedyAgent(rng *rand.Rand, qvalues *qTable, epsilon float64) *epsilonGreedyAgent {
	return &epsilonGreedyAgent{rng: rng, qvalues: qvalues, epsilon: epsilon}
}

func (a *epsilonGreedyAgent) act(env *Environment, s State) Action {
	legal := env.legalActions(s)
	if len(legal) == 0 {
		return FallbackAction
	}
	if a.rng.Float64() < a.epsilon {
		return legal[a.rng.Intn(len(legal))]
	}
	return greedyAction(legal, func(action Action) float64 {
		return a.qvalues.get(s, action)
	})
}

func (a *epsilonGreedyAgent) setEpsilon(epsilon float64) {
	a.epsilon = epsilon
}

// greedyAction returns the highest-valued action; the first one seen wins a tie.
// legal must not be empty.
func greedyAction(legal []Action, value func(Action) float64) Action {
	bestAction := legal[0]
	bestScore := value(bestAction)
	for _, action := range legal[1:] {
		if score := value(action); score > bestScore {
			bestScore = score
			bestAction = action
		}
	}
	return bestAction
}
