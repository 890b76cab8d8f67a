package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fuel-route-rl/internal/config"
	"fuel-route-rl/internal/engine"
)

type trainFlags struct {
	episodes int
	seed     int64
	epsilon  float64
	alpha    float64
	gamma    float64
	verbose  bool
}

func trainCommand(configPath *string) *cobra.Command {
	var flags trainFlags

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train on the configured scenario and print the learned route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			applyTrainFlags(cmd, &cfg.Training, flags)
			return runTrain(cmd, cfg, flags.verbose)
		},
	}
	cmd.Flags().IntVar(&flags.episodes, "episodes", 0, "number of training episodes")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "deterministic seed (0 for default)")
	cmd.Flags().Float64Var(&flags.epsilon, "epsilon", 0, "starting exploration rate (0-1)")
	cmd.Flags().Float64Var(&flags.alpha, "alpha", 0, "learning rate (0-1)")
	cmd.Flags().Float64Var(&flags.gamma, "gamma", 0, "discount factor (0-1)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "print every episode")
	return cmd
}

// applyTrainFlags overrides the loaded hyperparameters with the flags the user
// actually set.
func applyTrainFlags(cmd *cobra.Command, hp *engine.Hyperparameters, flags trainFlags) {
	set := cmd.Flags().Changed
	if set("episodes") {
		hp.Episodes = flags.episodes
	}
	if set("seed") {
		hp.Seed = flags.seed
	}
	if set("epsilon") {
		hp.Epsilon = flags.epsilon
	}
	if set("alpha") {
		hp.LearningRate = flags.alpha
	}
	if set("gamma") {
		hp.DiscountFactor = flags.gamma
	}
}

func runTrain(cmd *cobra.Command, cfg *config.Config, verbose bool) error {
	out := cmd.OutOrStdout()
	logger, err := cfg.Log.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	hp := cfg.Training
	trainer, err := engine.NewTrainer(cfg.Scenario, hp, engine.WithLogger(logger))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "train config => grid=%d episodes=%d seed=%d epsilon=%.2f alpha=%.2f gamma=%.2f\n",
		cfg.Scenario.GridSize, hp.Episodes, hp.Seed, hp.Epsilon, hp.LearningRate, hp.DiscountFactor)

	var cumulativeReward float64
	var cumulativeSteps int
	trainer.OnProgress(func(s engine.Snapshot) {
		if s.Status != engine.StatusEpisodeComplete {
			return
		}
		cumulativeReward += s.EpisodeReward
		cumulativeSteps += s.EpisodeSteps
		if verbose {
			fmt.Fprintf(out, "episode %d: reward=%.2f steps=%d outcome=%s epsilon=%.3f\n",
				s.Episode+1, s.EpisodeReward, s.EpisodeSteps, s.Outcome, s.Epsilon)
		}
	})

	best, err := trainer.Train(cmd.Context())
	if err != nil {
		return err
	}

	episodes := float64(hp.Episodes)
	final := trainer.Summarize(cfg.Scenario.MaxFuel)
	fmt.Fprintf(out, "summary: avg_reward=%.2f avg_steps=%.2f best_reward=%.2f\n",
		cumulativeReward/episodes, float64(cumulativeSteps)/episodes, trainer.BestReward())
	fmt.Fprintf(out, "best episode: %s\n", formatPath(best))
	printRoute(out, final)
	trainer.PrintValueMap(out)
	return nil
}

func printRoute(w io.Writer, route engine.RouteSummary) {
	fmt.Fprintf(w, "greedy route (%d steps): %s\n", route.Steps, formatPath(route.Path))
	if !route.ReachesGoal {
		fmt.Fprintln(w, "greedy route does not reach the goal yet; train for more episodes")
	}
	if route.NeedsRefuel {
		fmt.Fprintln(w, "a full tank does not cover this route with margin; plan a refuel stop")
	}
}

func formatPath(path []engine.Position) string {
	var b []byte
	for i, p := range path {
		if i > 0 {
			b = append(b, " -> "...)
		}
		b = fmt.Appendf(b, "(%d,%d)", p.X, p.Y)
	}
	return string(b)
}
