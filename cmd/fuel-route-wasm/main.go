//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"syscall/js"

	"fuel-route-rl/internal/engine"
)

var (
	startFnOnce sync.Once
	trainerMu   sync.Mutex
	currentCtx  context.CancelFunc
	onSnapshot  js.Value
)

// trainRequest is the JSON accepted by fuelRouteStartTraining.
type trainRequest struct {
	Scenario engine.EnvironmentConfig `json:"scenario"`
	Training engine.Hyperparameters   `json:"training"`
}

func main() {
	registerCallbacks()
	// Prevent the program from exiting.
	select {}
}

func registerCallbacks() {
	startFnOnce.Do(func() {
		js.Global().Set("fuelRouteRegisterSnapshotHandler", js.FuncOf(registerSnapshotHandler))
		js.Global().Set("fuelRouteStartTraining", js.FuncOf(startTraining))
		js.Global().Set("fuelRouteStopTraining", js.FuncOf(stopTraining))
	})
}

func registerSnapshotHandler(this js.Value, args []js.Value) interface{} {
	if len(args) != 1 || args[0].Type() != js.TypeFunction {
		fmt.Println("registerSnapshotHandler requires a function argument")
		return nil
	}
	onSnapshot = args[0]
	return nil
}

// startTraining returns an error string, or null once training has started.
func startTraining(this js.Value, args []js.Value) interface{} {
	if len(args) == 0 {
		return "startTraining requires a JSON config string"
	}
	var req trainRequest
	if err := json.Unmarshal([]byte(args[0].String()), &req); err != nil {
		return fmt.Sprintf("invalid config: %v", err)
	}
	if onSnapshot.IsUndefined() || onSnapshot.IsNull() {
		return "snapshot handler not registered"
	}
	trainer, err := engine.NewTrainer(req.Scenario, req.Training)
	if err != nil {
		return err.Error()
	}

	trainerMu.Lock()
	if currentCtx != nil {
		currentCtx()
	}
	ctx, cancel := context.WithCancel(context.Background())
	currentCtx = cancel
	trainerMu.Unlock()

	// Observers run on the training goroutine, so the value map can be read
	// between steps.
	trainer.OnProgress(func(s engine.Snapshot) {
		payload := snapshotToJS(s)
		if s.Status == engine.StatusEpisodeComplete {
			payload["valueMap"] = valueMapToJS(trainer.ValueMap())
		}
		onSnapshot.Invoke(js.ValueOf(payload))
	})
	go func() {
		defer cancel()
		if _, err := trainer.Train(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				fmt.Printf("training failed: %v\n", err)
			}
			return
		}
		route := trainer.Summarize(trainer.Environment().MaxFuel())
		onSnapshot.Invoke(js.ValueOf(map[string]interface{}{
			"status":      "route",
			"path":        positionsToJS(route.Path),
			"steps":       route.Steps,
			"reachesGoal": route.ReachesGoal,
			"needsRefuel": route.NeedsRefuel,
			"bestTrace":   positionsToJS(trainer.BestTrace()),
			"bestReward":  trainer.BestReward(),
		}))
	}()
	return nil
}

func stopTraining(this js.Value, args []js.Value) interface{} {
	trainerMu.Lock()
	if currentCtx != nil {
		currentCtx()
		currentCtx = nil
	}
	trainerMu.Unlock()
	return nil
}

func snapshotToJS(snapshot engine.Snapshot) map[string]interface{} {
	qvalues := make([]interface{}, len(snapshot.QValues))
	for i, qv := range snapshot.QValues {
		qvalues[i] = map[string]interface{}{
			"action": qv.Action.String(),
			"value":  qv.Value,
		}
	}
	return map[string]interface{}{
		"status":            snapshot.Status,
		"step":              snapshot.Step,
		"episode":           snapshot.Episode,
		"episodeSteps":      snapshot.EpisodeSteps,
		"episodeReward":     snapshot.EpisodeReward,
		"reward":            snapshot.Reward,
		"epsilon":           snapshot.Epsilon,
		"position":          positionToJS(snapshot.Position),
		"fuel":              snapshot.Fuel,
		"qValues":           qvalues,
		"outcome":           string(snapshot.Outcome),
		"bestReward":        snapshot.BestReward,
		"successCount":      snapshot.SuccessCount,
		"episodesCompleted": snapshot.EpisodesCompleted,
		"totalSteps":        snapshot.TotalSteps,
	}
}

// valueMapToJS sends unvisited cells as null.
func valueMapToJS(values [][]float64) []interface{} {
	rows := make([]interface{}, len(values))
	for y, row := range values {
		rowCopy := make([]interface{}, len(row))
		for x, v := range row {
			if math.IsNaN(v) {
				rowCopy[x] = nil
				continue
			}
			rowCopy[x] = v
		}
		rows[y] = rowCopy
	}
	return rows
}

func positionToJS(p engine.Position) map[string]interface{} {
	return map[string]interface{}{"x": p.X, "y": p.Y}
}

func positionsToJS(path []engine.Position) []interface{} {
	out := make([]interface{}, len(path))
	for i, p := range path {
		out[i] = positionToJS(p)
	}
	return out
}
