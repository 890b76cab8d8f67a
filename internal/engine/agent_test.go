package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentExploitsBestLegalAction(t *testing.T) {
	env := mustEnvironment(t, openGrid(4, 10))
	q := newQTable()
	agent := newEpsilonGreedyAgent(rand.New(rand.NewSource(1)), q, 0)
	s := State{Position{1, 1}, 10}

	assert.Equal(t, ActionUp, agent.act(env, s), "all-zero ties go to the first legal action")

	q.set(s, ActionLeft, 2)
	q.set(s, ActionRight, 2)
	assert.Equal(t, ActionLeft, agent.act(env, s), "equal values go to the first one seen")

	q.set(s, ActionRight, 2.5)
	assert.Equal(t, ActionRight, agent.act(env, s))
}

func TestAgentIgnoresValuesOfIllegalActions(t *testing.T) {
	env := mustEnvironment(t, openGrid(4, 10))
	q := newQTable()
	agent := newEpsilonGreedyAgent(rand.New(rand.NewSource(1)), q, 0)
	s := State{Position{0, 0}, 10}

	q.set(s, ActionUp, 100)
	q.set(s, ActionRefuel, 100)
	assert.Equal(t, ActionDown, agent.act(env, s))
}

func TestAgentExploresOnlyLegalActions(t *testing.T) {
	env := mustEnvironment(t, openGrid(4, 10))
	agent := newEpsilonGreedyAgent(rand.New(rand.NewSource(3)), newQTable(), 1)
	s := State{Position{0, 0}, 10}

	seen := make(map[Action]int)
	for i := 0; i < 200; i++ {
		seen[agent.act(env, s)]++
	}
	assert.Len(t, seen, 2)
	assert.Positive(t, seen[ActionDown])
	assert.Positive(t, seen[ActionRight])
}

func TestAgentFallsBackWhenBoxedIn(t *testing.T) {
	cfg := openGrid(4, 5)
	cfg.Obstacles = []Position{{1, 0}, {0, 1}}
	env := mustEnvironment(t, cfg)
	agent := newEpsilonGreedyAgent(rand.New(rand.NewSource(1)), newQTable(), 1)
	assert.Equal(t, FallbackAction, agent.act(env, State{Position{0, 0}, 5}))
}
