// Package metrics exports training progress as Prometheus series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fuel-route-rl/internal/engine"
)

// Recorder turns trainer snapshots into metric updates. Its Observe method
// has the engine.Observer signature so it can be passed to OnProgress.
type Recorder struct {
	// EpisodesTotal counts finished episodes by how they ended
	EpisodesTotal *prometheus.CounterVec

	// StepsTotal counts environment steps across all runs
	StepsTotal prometheus.Counter

	// EpisodeReward records the cumulative reward of each finished episode
	EpisodeReward prometheus.Histogram

	Epsilon    prometheus.Gauge
	BestReward prometheus.Gauge

	// RunsActive tracks training runs that have started but not finished
	RunsActive prometheus.Gauge
}

// NewRecorder creates the series and registers them on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		EpisodesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fuel_route_episodes_total",
			Help: "The total number of training episodes, by outcome",
		}, []string{"outcome"}),
		StepsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fuel_route_steps_total",
			Help: "The total number of environment steps taken while training",
		}),
		EpisodeReward: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fuel_route_episode_reward",
			Help:    "Cumulative reward of finished episodes",
			Buckets: []float64{-400, -200, -100, -50, 0, 50, 100, 200, 300, 400},
		}),
		Epsilon: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fuel_route_epsilon",
			Help: "Exploration rate of the most recent episode",
		}),
		BestReward: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fuel_route_best_reward",
			Help: "Best cumulative episode reward of the most recent run",
		}),
		RunsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fuel_route_runs_active",
			Help: "Training runs currently in progress",
		}),
	}
}

// Observe updates the series from one snapshot.
func (r *Recorder) Observe(s engine.Snapshot) {
	switch s.Status {
	case engine.StatusRunning:
		r.StepsTotal.Inc()
	case engine.StatusEpisodeComplete:
		r.EpisodesTotal.WithLabelValues(string(s.Outcome)).Inc()
		r.EpisodeReward.Observe(s.EpisodeReward)
		r.Epsilon.Set(s.Epsilon)
		r.BestReward.Set(s.BestReward)
	}
}

// RunStarted and RunFinished bracket one training run.
func (r *Recorder) RunStarted()  { r.RunsActive.Inc() }
func (r *Recorder) RunFinished() { r.RunsActive.Dec() }
