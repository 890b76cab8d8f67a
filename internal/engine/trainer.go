package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
)

// ErrTrainingInProgress is returned when Train is called on a trainer that is
// already training.
var ErrTrainingInProgress = errors.New("training already in progress")

const (
	StatusRunning         = "running"
	StatusEpisodeComplete = "episode_complete"
	StatusDone            = "done"
	StatusCancelled       = "cancelled"
)

// Outcome says why an episode ended.
type Outcome string

const (
	OutcomeGoal     Outcome = "goal"
	OutcomeDepleted Outcome = "depleted"
	OutcomeStepCap  Outcome = "step_cap"
)

// Hyperparameters control a training run. Epsilon is the starting
// exploration rate; the trainer decays its own copy after every episode.
type Hyperparameters struct {
	LearningRate   float64 `json:"learningRate" yaml:"learningRate"`
	DiscountFactor float64 `json:"discountFactor" yaml:"discountFactor"`
	Epsilon        float64 `json:"epsilon" yaml:"epsilon"`
	EpsilonDecay   float64 `json:"epsilonDecay" yaml:"epsilonDecay"`
	MinEpsilon     float64 `json:"minEpsilon" yaml:"minEpsilon"`
	Episodes       int     `json:"episodes" yaml:"episodes"`
	Seed           int64   `json:"seed" yaml:"seed"`
	StepDelayMs    int     `json:"stepDelayMs" yaml:"stepDelayMs"`
}

// Validate checks that every rate lies in [0, 1] and that there is work to do.
func (h Hyperparameters) Validate() error {
	var result *multierror.Error
	for _, rate := range []struct {
		name  string
		value float64
	}{
		{"learning rate", h.LearningRate},
		{"discount factor", h.DiscountFactor},
		{"epsilon", h.Epsilon},
		{"epsilon decay", h.EpsilonDecay},
		{"min epsilon", h.MinEpsilon},
	} {
		if rate.value < 0 || rate.value > 1 {
			result = multierror.Append(result, fmt.Errorf("%s must be between 0 and 1 (got %g)", rate.name, rate.value))
		}
	}
	if h.Episodes <= 0 {
		result = multierror.Append(result, fmt.Errorf("episodes must be positive (got %d)", h.Episodes))
	}
	if h.StepDelayMs < 0 {
		result = multierror.Append(result, fmt.Errorf("step delay must not be negative (got %d)", h.StepDelayMs))
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ActionValue is the learned value of one action in a state.
type ActionValue struct {
	Action Action  `json:"action"`
	Value  float64 `json:"value"`
}

// Snapshot is a progress event. Running snapshots are emitted after every
// step; an episode_complete snapshot closes each episode and carries its
// Outcome.
type Snapshot struct {
	Status            string        `json:"status"`
	Episode           int           `json:"episode"`
	Step              int           `json:"step"`
	EpisodeSteps      int           `json:"episodeSteps"`
	EpisodeReward     float64       `json:"episodeReward"`
	Reward            float64       `json:"reward"`
	Epsilon           float64       `json:"epsilon"`
	Position          Position      `json:"position"`
	Fuel              float64       `json:"fuel"`
	QValues           []ActionValue `json:"qValues,omitempty"`
	Outcome           Outcome       `json:"outcome,omitempty"`
	BestReward        float64       `json:"bestReward"`
	SuccessCount      int           `json:"successCount"`
	EpisodesCompleted int           `json:"episodesCompleted"`
	TotalSteps        int           `json:"totalSteps"`
}

// Observer receives snapshots synchronously from the training goroutine. A
// slow observer slows training down.
type Observer func(Snapshot)

type Option func(*Trainer)

// WithLogger sets the logger used for per-episode debug records and the run
// summary. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Trainer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Trainer owns one Q-table and learns it with one-step Q-learning.
type Trainer struct {
	env       *Environment
	hp        Hyperparameters
	rng       *rand.Rand
	agent     *epsilonGreedyAgent
	qvalues   *qTable
	logger    *slog.Logger
	observers []Observer
	running   atomic.Bool

	bestTrace         []Position
	bestReward        float64
	hasBest           bool
	step              int
	successCount      int
	episodesCompleted int
	totalSteps        int
}

// NewTrainer validates both inputs and returns a trainer ready to run.
func NewTrainer(envCfg EnvironmentConfig, hp Hyperparameters, opts ...Option) (*Trainer, error) {
	env, err := NewEnvironment(envCfg)
	if err != nil {
		return nil, err
	}
	if err := hp.Validate(); err != nil {
		return nil, err
	}
	seed := hp.Seed
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))
	qvalues := newQTable()
	t := &Trainer{
		env:       env,
		hp:        hp,
		rng:       rng,
		agent:     newEpsilonGreedyAgent(rng, qvalues, hp.Epsilon),
		qvalues:   qvalues,
		logger:    slog.New(slog.DiscardHandler),
		bestTrace: []Position{env.start},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// OnProgress registers an observer. Register observers before training starts.
func (t *Trainer) OnProgress(observer Observer) {
	if observer != nil {
		t.observers = append(t.observers, observer)
	}
}

func (t *Trainer) Environment() *Environment { return t.env }

func (t *Trainer) Hyperparameters() Hyperparameters { return t.hp }

// Epsilon is the current exploration rate.
func (t *Trainer) Epsilon() float64 { return t.agent.epsilon }

func (t *Trainer) BestReward() float64 { return t.bestReward }

// BestTrace returns a copy of the highest-reward episode trace seen so far.
// Before any episode finishes it holds just the start position.
func (t *Trainer) BestTrace() []Position {
	return clonePositions(t.bestTrace)
}

// QValues returns a deep copy of every learned value.
func (t *Trainer) QValues() map[StateKey]map[Action]float64 {
	return t.qvalues.snapshot()
}

// Train runs every episode and returns the best trace found. A cancelled
// context stops the run at the next step boundary; the best trace from the
// completed episodes is returned together with the context's error.
func (t *Trainer) Train(ctx context.Context) ([]Position, error) {
	return t.train(ctx, nil)
}

// Run trains in a new goroutine and streams every snapshot on the returned
// channel, which is closed when training stops.
func (t *Trainer) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		_, err := t.train(ctx, func(s Snapshot) {
			select {
			case out <- s:
			case <-ctx.Done():
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.logger.Warn("training did not start", "error", err)
		}
	}()
	return out
}

func (t *Trainer) train(ctx context.Context, sink Observer) ([]Position, error) {
	if !t.running.CompareAndSwap(false, true) {
		return nil, ErrTrainingInProgress
	}
	defer t.running.Store(false)

	emit := func(s Snapshot) {
		for _, observer := range t.observers {
			observer(s)
		}
		if sink != nil {
			sink(s)
		}
	}

	started := time.Now()
	for episode := 0; episode < t.hp.Episodes; episode++ {
		if err := ctx.Err(); err != nil {
			emit(t.snapshot(StatusCancelled, episode, 0, 0, 0, t.startState()))
			return t.BestTrace(), err
		}
		if err := t.runEpisode(ctx, episode, emit); err != nil {
			return t.BestTrace(), err
		}
		t.decayEpsilon()
	}
	emit(t.snapshot(StatusDone, t.hp.Episodes-1, 0, 0, 0, t.startState()))
	t.logger.Info("training finished",
		"episodes", t.episodesCompleted,
		"successes", t.successCount,
		"best_reward", t.bestReward,
		"states", t.qvalues.len(),
		"elapsed", time.Since(started))
	return t.BestTrace(), nil
}

func (t *Trainer) startState() State {
	return State{Position: t.env.start, Fuel: t.env.maxFuel}
}

func (t *Trainer) runEpisode(ctx context.Context, episode int, emit Observer) error {
	state := t.startState()
	trace := []Position{state.Position}
	episodeReward := 0.0
	outcome := OutcomeStepCap
	stepCap := t.env.StepCap()
	delay := time.Duration(t.hp.StepDelayMs) * time.Millisecond
	steps := 0
	for steps < stepCap {
		if err := ctx.Err(); err != nil {
			emit(t.snapshot(StatusCancelled, episode, steps, episodeReward, 0, state))
			return err
		}
		action := t.agent.act(t.env, state)
		next, reward := t.env.transition(state, action)
		t.updateQLearning(state, action, reward, next)

		episodeReward += reward
		state = next
		trace = append(trace, state.Position)
		steps++
		t.step++
		emit(t.snapshot(StatusRunning, episode, steps, episodeReward, reward, state))

		if state.Position == t.env.goal {
			outcome = OutcomeGoal
			break
		}
		if state.Fuel <= 0 {
			outcome = OutcomeDepleted
			break
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				emit(t.snapshot(StatusCancelled, episode, steps, episodeReward, reward, state))
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	if outcome == OutcomeGoal {
		t.successCount++
	}
	t.totalSteps += steps
	t.episodesCompleted++
	if !t.hasBest || episodeReward > t.bestReward {
		t.bestReward = episodeReward
		t.bestTrace = trace
		t.hasBest = true
	}
	t.logger.Debug("episode finished",
		"episode", episode,
		"reward", episodeReward,
		"steps", steps,
		"outcome", outcome,
		"epsilon", t.agent.epsilon)
	complete := t.snapshot(StatusEpisodeComplete, episode, steps, episodeReward, 0, state)
	complete.Outcome = outcome
	emit(complete)
	return nil
}

func (t *Trainer) updateQLearning(state State, action Action, reward float64, next State) {
	current := t.qvalues.get(state, action)
	nextValue := t.qvalues.maxValue(next, t.env.legalActions(next))
	target := reward + t.hp.DiscountFactor*nextValue
	t.qvalues.set(state, action, current+t.hp.LearningRate*(target-current))
}

func (t *Trainer) decayEpsilon() {
	t.agent.setEpsilon(maxFloat(t.hp.MinEpsilon, t.agent.epsilon*t.hp.EpsilonDecay))
}

func (t *Trainer) snapshot(status string, episode, episodeSteps int, episodeReward, reward float64, state State) Snapshot {
	var qvalues []ActionValue
	if status == StatusRunning {
		legal := t.env.legalActions(state)
		qvalues = make([]ActionValue, 0, len(legal))
		for _, action := range legal {
			qvalues = append(qvalues, ActionValue{Action: action, Value: t.qvalues.get(state, action)})
		}
	}
	return Snapshot{
		Status:            status,
		Episode:           episode,
		Step:              t.step,
		EpisodeSteps:      episodeSteps,
		EpisodeReward:     episodeReward,
		Reward:            reward,
		Epsilon:           t.agent.epsilon,
		Position:          state.Position,
		Fuel:              state.Fuel,
		QValues:           qvalues,
		BestReward:        t.bestReward,
		SuccessCount:      t.successCount,
		EpisodesCompleted: t.episodesCompleted,
		TotalSteps:        t.totalSteps,
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
