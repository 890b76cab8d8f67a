package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires the controllers, the metrics endpoint and the health check
// onto one gin engine.
type Router struct {
	addr     string
	baseURL  string
	runs     *RunController
	gatherer prometheus.Gatherer
}

// Config holds the settings for a new Router.
type Config struct {
	Addr     string // address to listen on
	BaseURL  string // prefix for the API routes, e.g. "/api"
	GinMode  string
	Service  *Service
	Gatherer prometheus.Gatherer // source of /metrics; the default registry when nil
}

func NewRouter(config Config) *Router {
	if config.GinMode != "" {
		gin.SetMode(config.GinMode)
	}
	gatherer := config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Router{
		addr:     config.Addr,
		baseURL:  config.BaseURL,
		runs:     NewRunController(config.Service),
		gatherer: gatherer,
	}
}

// Handler builds the gin engine with every route mounted.
func (r *Router) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	if gin.Mode() == gin.DebugMode {
		router.Use(gin.Logger())
	}

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	api := router.Group(r.baseURL)
	{
		v1 := api.Group("/v1")
		r.runs.Register(v1)
	}
	return router
}

// Run serves until ctx is cancelled, then shuts the listener down and cancels
// the runs still in flight.
func (r *Router) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              r.addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return r.runs.service.Shutdown(shutdownCtx)
}
