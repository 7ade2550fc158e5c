package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gridmdp/console"
	"gridmdp/grid_world"
	"gridmdp/reinforcement"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseFlags(t *testing.T) {
	Convey("When no overrides are passed", t, func() {
		opts, err := parseFlags(nil)
		So(err, ShouldBeNil)
		So(opts.overrides.Gamma, ShouldBeNil)
		So(opts.overrides.Precision, ShouldBeNil)
		So(opts.rewards, ShouldResemble, []*float64{nil})
		So(opts.addr, ShouldEqual, "localhost:8080")
		So(opts.modes, ShouldResemble, []console.Mode{console.Utility, console.Policy})
	})

	Convey("When grids are selected by mode", t, func() {
		opts, err := parseFlags([]string{"-mode", "policy, utility"})
		So(err, ShouldBeNil)
		So(opts.modes, ShouldResemble, []console.Mode{console.Policy, console.Utility})

		opts, err = parseFlags([]string{"-reward-grid"})
		So(err, ShouldBeNil)
		So(opts.modes, ShouldResemble, []console.Mode{console.Reward, console.Utility, console.Policy})

		opts, err = parseFlags([]string{"-reward-grid", "-mode", "utility,reward"})
		So(err, ShouldBeNil)
		So(opts.modes, ShouldResemble, []console.Mode{console.Utility, console.Reward})

		_, err = parseFlags([]string{"-mode", "values"})
		So(err, ShouldNotBeNil)
		_, err = parseFlags([]string{"-mode", ","})
		So(err, ShouldNotBeNil)
	})

	Convey("When gamma and precision are passed explicitly", t, func() {
		opts, err := parseFlags([]string{"-gamma", "0.9", "-precision", "0.01"})
		So(err, ShouldBeNil)
		So(*opts.overrides.Gamma, ShouldEqual, 0.9)
		So(*opts.overrides.Precision, ShouldEqual, 0.01)
	})

	Convey("When several rewards are passed", t, func() {
		opts, err := parseFlags([]string{"-reward", "-5, -60,-150"})
		So(err, ShouldBeNil)
		So(opts.rewards, ShouldHaveLength, 3)
		So(*opts.rewards[0], ShouldEqual, -5)
		So(*opts.rewards[1], ShouldEqual, -60)
		So(*opts.rewards[2], ShouldEqual, -150)
	})

	Convey("When a reward is malformed", t, func() {
		_, err := parseFlags([]string{"-reward", "-5,abc"})
		So(err, ShouldNotBeNil)
	})

	Convey("When serving several rewards", t, func() {
		_, err := parseFlags([]string{"-serve", "-reward", "-5,-60"})
		So(err, ShouldNotBeNil)
	})
}

func TestExportProgress(t *testing.T) {
	Convey("Given a solver exporting every other sweep", t, func() {
		opts, err := parseFlags([]string{"-reward", "-5"})
		So(err, ShouldBeNil)
		overrides := opts.overrides
		overrides.Reward = opts.rewards[0]
		problem, err := reinforcement.LoadProblem("examples/1.json", overrides)
		So(err, ShouldBeNil)

		solverConfig := reinforcement.DefaultSolverConfig()
		solverConfig.SetHyperParam(reinforcement.ExportEveryKey, 2)
		So(solve(context.Background(), problem, solverConfig, opts), ShouldBeNil)

		Convey("Reports are sent on multiples of n and upon convergence", func() {
			progress := make(chan reinforcement.Progress, 1024)
			vi, err := reinforcement.NewValueIteration(mustGrid(problem), solverConfig.Params(problem))
			So(err, ShouldBeNil)
			So(vi.Run(context.Background(), exportProgress(solverConfig.ExportEvery(), progress)), ShouldBeNil)
			close(progress)

			var reports []reinforcement.Progress
			for report := range progress {
				reports = append(reports, report)
			}
			So(len(reports), ShouldBeGreaterThan, 0)
			for _, report := range reports[:len(reports)-1] {
				So(report.Iteration%2, ShouldEqual, 0)
			}
			last := reports[len(reports)-1]
			So(last.State, ShouldEqual, reinforcement.Converged)
			So(last.Iteration, ShouldEqual, vi.Iterations())
		})
	})
}

func TestLoadSolverConfig(t *testing.T) {
	Convey("The bundled config is loaded", t, func() {
		cfg, err := loadSolverConfig(defaultConfigPath)
		So(err, ShouldBeNil)
		So(cfg.GetHyperParamOrDefault(reinforcement.MinIterationsKey, 0), ShouldEqual, 5)
	})

	Convey("An explicitly named config must exist", t, func() {
		_, err := loadSolverConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		So(err, ShouldNotBeNil)
	})

	Convey("Without the default config, defaults are used", t, func() {
		wd, err := os.Getwd()
		So(err, ShouldBeNil)
		So(os.Chdir(t.TempDir()), ShouldBeNil)
		defer func() { _ = os.Chdir(wd) }()

		cfg, err := loadSolverConfig(defaultConfigPath)
		So(err, ShouldBeNil)
		So(cfg.ExportEvery(), ShouldEqual, 1)
	})
}

func mustGrid(problem *grid_world.Problem) *grid_world.Grid {
	grid, err := grid_world.Build(problem)
	So(err, ShouldBeNil)
	return grid
}
