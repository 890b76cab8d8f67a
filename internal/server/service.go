// Package server exposes training runs over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"fuel-route-rl/internal/engine"
	"fuel-route-rl/internal/lock"
	"fuel-route-rl/internal/metrics"
)

var (
	ErrRunNotFound   = errors.New("run not found")
	ErrRunInProgress = errors.New("a training run is already in progress")
)

// Run states.
const (
	RunRunning   = "running"
	RunDone      = "done"
	RunCancelled = "cancelled"
	RunFailed    = "failed"
)

// Run is one training job and everything it has produced so far.
type Run struct {
	ID uuid.UUID

	mu         sync.RWMutex
	state      string
	latest     engine.Snapshot
	err        error
	startedAt  time.Time
	finishedAt time.Time
	summary    *engine.RouteSummary
	bestTrace  []engine.Position
	bestReward float64

	trainer *engine.Trainer
	cancel  context.CancelFunc
	done    chan struct{}
}

// Done is closed once the run has stopped for any reason.
func (r *Run) Done() <-chan struct{} { return r.done }

// observe runs on the training goroutine, so reading the trainer is safe.
func (r *Run) observe(s engine.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest = s
	if s.Status == engine.StatusEpisodeComplete {
		r.bestTrace = r.trainer.BestTrace()
		r.bestReward = s.BestReward
	}
}

// View copies the run into its wire form.
func (r *Run) View() RunView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	view := RunView{
		ID:         r.ID,
		State:      r.state,
		Progress:   r.latest,
		StartedAt:  r.startedAt,
		BestReward: r.bestReward,
		BestTrace:  r.bestTrace,
		Route:      r.summary,
	}
	if !r.finishedAt.IsZero() {
		finished := r.finishedAt
		view.FinishedAt = &finished
	}
	if r.err != nil {
		view.Error = r.err.Error()
	}
	return view
}

// Defaults supply whatever a run request leaves out.
type Defaults struct {
	Scenario engine.EnvironmentConfig
	Training engine.Hyperparameters
}

// Service starts training runs, one at a time, and remembers them.
type Service struct {
	defaults Defaults
	locker   lock.Locker
	recorder *metrics.Recorder
	logger   *slog.Logger

	mu   sync.RWMutex
	runs map[uuid.UUID]*Run
	wg   sync.WaitGroup
}

// NewService creates a Service. recorder may be nil.
func NewService(defaults Defaults, locker lock.Locker, recorder *metrics.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		defaults: defaults,
		locker:   locker,
		recorder: recorder,
		logger:   logger,
		runs:     make(map[uuid.UUID]*Run),
	}
}

// Start validates the request, takes the training lock and launches the run in
// the background. Invalid input wraps engine.ErrInvalidConfig.
func (s *Service) Start(ctx context.Context, req RunRequest) (*Run, error) {
	scenario, training := s.defaults.Scenario, s.defaults.Training
	if req.Scenario != nil {
		scenario = *req.Scenario
	}
	if req.Training != nil {
		training = *req.Training
	}

	id := uuid.New()
	logger := s.logger.With("run", id)
	trainer, err := engine.NewTrainer(scenario, training, engine.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.TryLock(ctx)
	if errors.Is(err, lock.ErrLocked) {
		return nil, ErrRunInProgress
	}
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := &Run{
		ID:        id,
		state:     RunRunning,
		startedAt: time.Now(),
		bestTrace: trainer.BestTrace(),
		trainer:   trainer,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	trainer.OnProgress(run.observe)
	if s.recorder != nil {
		trainer.OnProgress(s.recorder.Observe)
		s.recorder.RunStarted()
	}

	s.mu.Lock()
	s.runs[id] = run
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(run.done)
		defer cancel()
		s.train(runCtx, run, unlock, logger)
	}()

	logger.Info("training run started", "episodes", training.Episodes, "grid_size", scenario.GridSize)
	return run, nil
}

func (s *Service) train(ctx context.Context, run *Run, unlock func() error, logger *slog.Logger) {
	defer func() {
		if err := unlock(); err != nil {
			logger.Error("failed to release training lock", "error", err)
		}
		if s.recorder != nil {
			s.recorder.RunFinished()
		}
	}()

	trace, err := run.trainer.Train(ctx)

	run.mu.Lock()
	defer run.mu.Unlock()
	run.finishedAt = time.Now()
	run.bestTrace = trace
	run.bestReward = run.trainer.BestReward()
	switch {
	case err == nil:
		run.state = RunDone
		summary := run.trainer.Summarize(run.trainer.Environment().MaxFuel())
		run.summary = &summary
		logger.Info("training run finished", "best_reward", run.bestReward, "route_steps", summary.Steps)
	case errors.Is(err, context.Canceled):
		run.state = RunCancelled
		logger.Info("training run cancelled", "episodes_completed", run.latest.EpisodesCompleted)
	default:
		run.state = RunFailed
		run.err = err
		logger.Error("training run failed", "error", err)
	}
}

// Get looks a run up by ID.
func (s *Service) Get(id uuid.UUID) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

// Cancel asks a run to stop. Cancelling a finished run is a no-op.
func (s *Service) Cancel(id uuid.UUID) (*Run, error) {
	run, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	run.cancel()
	return run, nil
}

// Shutdown cancels every run and waits for them to stop or for ctx to end.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	for _, run := range s.runs {
		run.cancel()
	}
	s.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
