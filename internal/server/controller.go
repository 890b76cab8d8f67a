package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fuel-route-rl/internal/engine"
)

// RunController serves the training run endpoints.
type RunController struct {
	service *Service
}

func NewRunController(service *Service) *RunController {
	return &RunController{service: service}
}

// Register mounts the run routes on route.
func (rc *RunController) Register(route *gin.RouterGroup) {
	runs := route.Group("/runs")
	{
		runs.POST("", rc.start)
		runs.GET("/:ID", rc.runInfo)
		runs.DELETE("/:ID", rc.cancel)
	}
}

// start handles new training requests. An empty body trains the default
// scenario with the default hyperparameters.
func (rc *RunController) start(ctx *gin.Context) {
	var request RunRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&request); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	run, err := rc.service.Start(ctx, request)
	switch {
	case err == nil:
		ctx.JSON(http.StatusAccepted, RunCreatedResponse{ID: run.ID})
	case errors.Is(err, engine.ErrInvalidConfig):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrRunInProgress):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "error while starting training"})
	}
}

// runInfo reports the progress or the result of a run.
func (rc *RunController) runInfo(ctx *gin.Context) {
	run, ok := rc.lookup(ctx, rc.service.Get)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, run.View())
}

func (rc *RunController) cancel(ctx *gin.Context) {
	run, ok := rc.lookup(ctx, rc.service.Cancel)
	if !ok {
		return
	}
	ctx.JSON(http.StatusAccepted, RunCreatedResponse{ID: run.ID})
}

func (rc *RunController) lookup(ctx *gin.Context, find func(uuid.UUID) (*Run, error)) (*Run, bool) {
	ID, err := uuid.Parse(ctx.Params.ByName("ID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "malformed run id"})
		return nil, false
	}
	run, err := find(ID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no such run"})
		return nil, false
	}
	return run, true
}
