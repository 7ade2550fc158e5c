/*
Gridmdp solves grid-world Markov decision problems by value iteration and prints
the resulting utility and policy grids. A problem is a rectangle of cells with a
living reward, absorbing goals, impassable cells and an optional water region
that pushes the agent in a fixed direction with some probability.

With -serve the solve is also streamed to a single page, which shows the
utilities and policy converging and plots the per-iteration residuals.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"gridmdp/console"
	"gridmdp/grid_world"
	"gridmdp/reinforcement"
	"gridmdp/server"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const defaultConfigPath = "./config.yaml"

type options struct {
	problemPath string
	configPath  string
	rewards     []*float64
	overrides   reinforcement.Overrides
	modes       []console.Mode
	colour      bool
	serve       bool
	addr        string
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("gridmdp", flag.ContinueOnError)
	problemPath := fs.String("problem", "examples/1.json", "path to the problem definition (json or yaml)")
	configPath := fs.String("config", defaultConfigPath, "path to the solver config")
	rewards := fs.String("reward", "", "comma separated living rewards; each overrides the problem's and is solved in turn")
	gamma := fs.Float64("gamma", 1, "discount factor, overrides the problem's")
	precision := fs.Float64("precision", 0.00001, "convergence threshold, overrides the problem's")
	modes := fs.String("mode", "utility,policy", "comma separated grids to print: utility, reward, policy")
	showRewards := fs.Bool("reward-grid", false, "also print the reward grid first")
	colour := fs.Bool("color", false, "colour final, water and empty cells")
	serve := fs.Bool("serve", false, "stream the solve to a browser and serve until interrupted")
	host := fs.String("host", "localhost", "The host ip")
	port := fs.String("port", "8080", "The host port")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := &options{
		problemPath: *problemPath,
		configPath:  *configPath,
		colour:      *colour,
		serve:       *serve,
		addr:        *host + ":" + *port,
	}

	// Only explicitly passed flags override the problem file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "gamma":
			opts.overrides.Gamma = gamma
		case "precision":
			opts.overrides.Precision = precision
		}
	})

	var err error
	if opts.rewards, err = parseRewards(*rewards); err != nil {
		return nil, err
	}
	if opts.modes, err = parseModes(*modes, *showRewards); err != nil {
		return nil, err
	}
	if opts.serve && len(opts.rewards) > 1 {
		return nil, errors.New("-serve accepts a single reward")
	}
	return opts, nil
}

// parseRewards returns one entry per solve; a nil entry keeps the problem's reward.
func parseRewards(list string) ([]*float64, error) {
	if strings.TrimSpace(list) == "" {
		return []*float64{nil}, nil
	}
	var rewards []*float64
	for _, field := range strings.Split(list, ",") {
		reward, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("-reward %q: %w", field, err)
		}
		rewards = append(rewards, &reward)
	}
	return rewards, nil
}

// parseModes returns the grids to print in order. The reward grid, when
// requested by flag and not already listed, is printed first.
func parseModes(list string, showRewards bool) ([]console.Mode, error) {
	var modes []console.Mode
	listed := map[console.Mode]bool{}
	for _, field := range strings.Split(list, ",") {
		if strings.TrimSpace(field) == "" {
			continue
		}
		mode, err := console.ParseMode(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("-mode: %w", err)
		}
		modes = append(modes, mode)
		listed[mode] = true
	}
	if showRewards && !listed[console.Reward] {
		modes = append([]console.Mode{console.Reward}, modes...)
	}
	if len(modes) == 0 {
		return nil, errors.New("-mode: no grids selected")
	}
	return modes, nil
}

// loadSolverConfig falls back to defaults plus environment overrides when the
// default config file is absent; an explicitly named file must exist.
func loadSolverConfig(path string) (*reinforcement.SolverConfig, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			log.Printf("[config] %s not found, using defaults", path)
			return reinforcement.FromEnv(), nil
		}
	}
	return reinforcement.FromYaml(path)
}

func runApp(ctx context.Context, opts *options) error {
	solverConfig, err := loadSolverConfig(opts.configPath)
	if err != nil {
		return err
	}

	for _, reward := range opts.rewards {
		overrides := opts.overrides
		overrides.Reward = reward
		if reward != nil {
			fmt.Println(strconv.FormatFloat(*reward, 'g', -1, 64))
		}

		problem, err := reinforcement.LoadProblem(opts.problemPath, overrides)
		if err != nil {
			return err
		}
		if err = solve(ctx, problem, solverConfig, opts); err != nil {
			return err
		}
	}
	return nil
}

func solve(
	ctx context.Context,
	problem *grid_world.Problem,
	solverConfig *reinforcement.SolverConfig,
	opts *options,
) error {
	grid, err := grid_world.Build(problem)
	if err != nil {
		return fmt.Errorf("build grid: %w", err)
	}
	vi, err := reinforcement.NewValueIteration(grid, solverConfig.Params(problem))
	if err != nil {
		return err
	}

	if opts.serve {
		return solveAndServe(ctx, vi, solverConfig, opts)
	}

	solveCtx, cancel, err := solverConfig.WithSolveDeadline(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	if err = vi.Run(solveCtx, nil); err != nil {
		return err
	}
	return printResults(vi, opts)
}

// solveAndServe runs the solver and the view server together. The server keeps
// serving the final state after convergence until ctx is cancelled.
func solveAndServe(
	ctx context.Context,
	vi *reinforcement.ValueIteration,
	solverConfig *reinforcement.SolverConfig,
	opts *options,
) error {
	group, groupCtx := errgroup.WithContext(ctx)
	progress := make(chan reinforcement.Progress)

	srv, err := server.NewServer(groupCtx, opts.addr, vi, progress)
	if err != nil {
		return err
	}

	group.Go(func() error {
		return srv.Serve(groupCtx)
	})
	group.Go(func() error {
		solveCtx, cancel, err := solverConfig.WithSolveDeadline(groupCtx)
		if err != nil {
			return err
		}
		defer cancel()
		if err = vi.Run(solveCtx, exportProgress(solverConfig.ExportEvery(), progress)); err != nil {
			return err
		}
		log.Printf("[solver] converged after %d iterations, serving until interrupted", vi.Iterations())
		return printResults(vi, opts)
	})

	return group.Wait()
}

// exportProgress sends the solver's progress to the views every n sweeps and
// upon convergence. When serving, this blocks until the views receive it.
func exportProgress(
	n int,
	progress chan<- reinforcement.Progress,
) reinforcement.ProgressFunc {
	return func(ctx context.Context, vi *reinforcement.ValueIteration) {
		report := vi.Progress()
		if report.Iteration%n != 0 && report.State != reinforcement.Converged {
			return
		}
		log.Printf("[solver] iteration %d residual %g", report.Iteration, report.Residual)
		select {
		case progress <- report:
		case <-ctx.Done():
		}
	}
}

func printResults(vi *reinforcement.ValueIteration, opts *options) error {
	for _, mode := range opts.modes {
		if err := console.Print(os.Stdout, vi.Grid(), mode, opts.colour); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] .env: %v", err)
	}

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := runApp(ctx, opts); err != nil {
		log.Fatal(err)
	}
}
