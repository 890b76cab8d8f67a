package main

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"fuel-route-rl/internal/config"
	"fuel-route-rl/internal/lock"
	"fuel-route-rl/internal/metrics"
	"fuel-route-rl/internal/server"
)

func serveCommand(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for starting and inspecting training runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			return runServe(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides the config")
	return cmd
}

func runServe(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.Server.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Server.RedisAddr})
		defer client.Close()
		if err := client.Ping(cmd.Context()).Err(); err != nil {
			return fmt.Errorf("failed to reach redis at %s: %w", cfg.Server.RedisAddr, err)
		}
		locker = lock.NewRedis(client, cfg.Server.LockKey, cfg.Server.LockTTL)
		logger.Info("using redis training lock", "addr", cfg.Server.RedisAddr, "key", cfg.Server.LockKey)
	}

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	service := server.NewService(server.Defaults{
		Scenario: cfg.Scenario,
		Training: cfg.Training,
	}, locker, recorder, logger)

	router := server.NewRouter(server.Config{
		Addr:    cfg.Server.Addr,
		BaseURL: "/api",
		GinMode: cfg.Server.GinMode,
		Service: service,
	})

	logger.Info("listening", slog.String("addr", cfg.Server.Addr))
	return router.Run(cmd.Context())
}
