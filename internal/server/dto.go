package server

import (
	"time"

	"github.com/google/uuid"

	"fuel-route-rl/internal/engine"
)

// RunRequest starts a run. Omitted sections fall back to the service defaults.
type RunRequest struct {
	Scenario *engine.EnvironmentConfig `json:"scenario"`
	Training *engine.Hyperparameters   `json:"training"`
}

// RunCreatedResponse is returned once a run has been accepted.
type RunCreatedResponse struct {
	ID uuid.UUID `json:"id"`
}

// RunView is the state of a run as reported by GET /runs/:ID. Route is only
// set once training has finished normally.
type RunView struct {
	ID         uuid.UUID            `json:"id"`
	State      string               `json:"state"`
	Progress   engine.Snapshot      `json:"progress"`
	StartedAt  time.Time            `json:"startedAt"`
	FinishedAt *time.Time           `json:"finishedAt,omitempty"`
	BestReward float64              `json:"bestReward"`
	BestTrace  []engine.Position    `json:"bestTrace"`
	Route      *engine.RouteSummary `json:"route,omitempty"`
	Error      string               `json:"error,omitempty"`
}
