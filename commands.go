package main

import (
	"fmt"

	"reflex/agent"
	"reflex/budget"
	"reflex/config"
	"reflex/engine"
	"reflex/experiments"
	"reflex/game"
	"reflex/game/sushi"

	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
)

var (
	logLevel   string
	configPath string

	// play
	players     int
	seed        uint64
	agentSpecs  []string
	heuristic   string
	budgetKind  string
	budgetLimit int
	budgetBreak int

	// bench
	decisions int

	rootCmd = &cobra.Command{
		Use:   "reflex",
		Short: "Reflexive MCTS and rolling horizon evolution agents for turn-based games",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
		SilenceUsage: true,
	}

	playCmd = &cobra.Command{
		Use:   "play",
		Short: "Play one sushi game between agents and print every move",
		Example: `  reflex play --agent rmcts:meta=1 --agent rhea:horizon=8,shift
  reflex play --players 3 --agent rmcts:meta=0 --budget fm_calls --limit 5000`,
		RunE: runPlay,
	}

	tournamentCmd = &cobra.Command{
		Use:   "tournament",
		Short: "Run the games of an experiment file and store their records",
		RunE:  runTournament,
	}

	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Measure the work each agent of an experiment file does per decision",
		RunE:  runBench,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "zerolog level (debug, info, warn, error)")

	playCmd.Flags().IntVar(&players, "players", 2, "number of players")
	playCmd.Flags().Uint64Var(&seed, "seed", 1, "seed for the deck and the agents")
	playCmd.Flags().StringArrayVar(&agentSpecs, "agent", []string{"rmcts", "rhea"},
		"agent description per seat, repeated for later seats when fewer than players")
	playCmd.Flags().StringVar(&heuristic, "heuristic", "score", "state evaluation (score, advantage)")
	playCmd.Flags().StringVar(&budgetKind, "budget", "time", "budget kind (time, iterations, fm_calls, copies, fm_and_copies)")
	playCmd.Flags().IntVar(&budgetLimit, "limit", 40, "budget limit, in milliseconds for time")
	playCmd.Flags().IntVar(&budgetBreak, "break-ms", 5, "milliseconds kept in reserve by time budgets")

	tournamentCmd.Flags().StringVar(&configPath, "config", "", "experiment file (YAML or JSON)")
	benchCmd.Flags().StringVar(&configPath, "config", "", "experiment file (YAML or JSON)")
	benchCmd.Flags().IntVar(&decisions, "decisions", 30, "decisions per agent")

	rootCmd.AddCommand(playCmd, tournamentCmd, benchCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	h, ok := sushi.Heuristics[heuristic]
	if !ok {
		return fmt.Errorf("unknown heuristic %q", heuristic)
	}
	kind, err := budget.ParseKind(budgetKind)
	if err != nil {
		return err
	}
	if len(agentSpecs) == 0 {
		return fmt.Errorf("at least one agent is required")
	}
	if players < sushi.MinPlayers || players > sushi.MaxPlayers {
		return fmt.Errorf("players must be between %d and %d, got %d", sushi.MinPlayers, sushi.MaxPlayers, players)
	}

	base := agent.DefaultConfig()
	base.Budget = budget.Budget{Kind: kind, Limit: budgetLimit, BreakMS: budgetBreak}
	base.Heuristic = h
	configs := make([]agent.Config, len(agentSpecs))
	for i, spec := range agentSpecs {
		if configs[i], err = agent.Parse(spec, base); err != nil {
			return err
		}
	}

	agents := make([]agent.Agent, players)
	for p := range agents {
		cfg := configs[p%len(configs)]
		cfg.Seed += seed + uint64(p)
		agents[p], err = agent.New(cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "player %d: %s\n", p, cfg)
	}

	rng := rand.New(rand.NewSource(seed))
	state := sushi.New(players, rng)
	out := cmd.OutOrStdout()
	e := engine.NewLocalEngine(state, agents, rng, engine.WithObserver(
		func(step int, player game.PlayerID, action game.Action, s engine.Game) {
			fmt.Fprintf(out, "%3d round %d player %d plays %s\n", step+1, s.Round()+1, player, action)
		}))

	gameMetric, _, err := e.Run(cmd.Context())
	if err != nil {
		return err
	}
	for p, score := range gameMetric.Scores {
		fmt.Fprintf(out, "player %d scored %d (%d puddings)\n", p, score, state.Puddings(game.PlayerID(p)))
	}
	if gameMetric.Winner == int(game.NoPlayer) {
		fmt.Fprintln(out, "shared win")
	} else {
		fmt.Fprintf(out, "player %d wins\n", gameMetric.Winner)
	}
	return nil
}

func runTournament(cmd *cobra.Command, args []string) error {
	exp, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("log-level") && exp.LogLevel != "" {
		if err := setupLogging(exp.LogLevel); err != nil {
			return err
		}
	}

	result, err := experiments.Run(cmd.Context(), exp)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), result.Summary())
	return experiments.Store(cmd.Context(), exp.Output, result)
}

func runBench(cmd *cobra.Command, args []string) error {
	exp, err := config.Load(configPath)
	if err != nil {
		return err
	}
	results, err := experiments.MeasureThroughput(cmd.Context(), exp, decisions)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), experiments.FormatThroughput(results))
	return nil
}
