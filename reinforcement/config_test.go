package reinforcement

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "gridmdp/grid_world"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const problemJSON = `{
  "dimens": {"x": 4, "y": 3},
  "gamma": 1,
  "precision": 0.00001,
  "reward": -5,
  "goal": [{"x": 4, "y": 1, "score": 100}, {"x": 4, "y": 2, "score": -100}],
  "water": {"x1": 1, "y1": 3, "x2": 3, "y2": 3, "dir": "u", "chance": 0.2},
  "empty": [{"x": 2, "y": 2}]
}`

const solverYAML = `kind: valueIteration
def:
  hyperParams:
    - key: minIterations
      val: 3
    - key: maxIterations
      val: 1000
    - key: exportEvery
      val: 10
  solveDeadline:
    duration: 2s
`

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadProblem(t *testing.T) {
	path := writeFile(t, "problem.json", problemJSON)

	problem, err := LoadProblem(path, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, Dimens{X: 4, Y: 3}, problem.Dimens)
	assert.Equal(t, 1.0, problem.Gamma)
	assert.Equal(t, 0.00001, problem.Precision)
	assert.Equal(t, -5.0, problem.Reward)
	assert.Equal(t, []Goal{{X: 4, Y: 1, Score: 100}, {X: 4, Y: 2, Score: -100}}, problem.Goals)
	require.NotNil(t, problem.Water)
	assert.Equal(t, Water{X1: 1, Y1: 3, X2: 3, Y2: 3, Dir: "u", Chance: 0.2}, *problem.Water)
	assert.Equal(t, []Coord{{X: 2, Y: 2}}, problem.Empty)

	grid, err := Build(problem)
	require.NoError(t, err)
	assert.Equal(t, 12, grid.Len())
}

func TestLoadProblemOverrides(t *testing.T) {
	path := writeFile(t, "problem.json", problemJSON)
	reward, gamma, precision := -60.0, 0.9, 0.001

	problem, err := LoadProblem(path, Overrides{Reward: &reward, Gamma: &gamma, Precision: &precision})
	require.NoError(t, err)
	assert.Equal(t, reward, problem.Reward)
	assert.Equal(t, gamma, problem.Gamma)
	assert.Equal(t, precision, problem.Precision)
}

func TestLoadProblemMissingKeys(t *testing.T) {
	complete := `"dimens": {"x": 2, "y": 1}, "gamma": 1, "precision": 0.1,
  "goal": [{"x": 2, "y": 1, "score": 100}],
  "water": {"x1": 1, "y1": 1, "x2": 1, "y2": 1, "dir": "r", "chance": 0}`
	path := writeFile(t, "problem.json", `{`+complete+`, "empty": []}`)

	_, err := LoadProblem(path, Overrides{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidProblem))
	assert.Contains(t, err.Error(), `"reward"`)

	reward := -1.0
	problem, err := LoadProblem(path, Overrides{Reward: &reward})
	require.NoError(t, err)
	assert.Equal(t, reward, problem.Reward)
	assert.Empty(t, problem.Empty)

	for _, key := range []string{"goal", "water", "empty"} {
		t.Run(key, func(t *testing.T) {
			fields := map[string]string{
				"goal":  `"goal": [{"x": 2, "y": 1, "score": 100}]`,
				"water": `"water": {"x1": 1, "y1": 1, "x2": 1, "y2": 1, "dir": "r", "chance": 0}`,
				"empty": `"empty": []`,
			}
			delete(fields, key)
			contents := `{"dimens": {"x": 2, "y": 1}, "gamma": 1, "precision": 0.1, "reward": -1`
			for _, field := range fields {
				contents += ", " + field
			}
			_, err := LoadProblem(writeFile(t, "problem.json", contents+"}"), Overrides{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidProblem))
			assert.Contains(t, err.Error(), `"`+key+`"`)
		})
	}
}

func TestLoadProblemRejectsUnknownKeys(t *testing.T) {
	misspelled := `{"dimens": {"x": 2, "y": 1}, "gamma": 1, "precision": 0.1, "reward": -5,
  "goal": [], "goals": [{"x": 2, "y": 1, "score": 100}],
  "water": {"x1": 1, "y1": 1, "x2": 1, "y2": 1, "dir": "r", "chance": 0},
  "empty": []}`

	_, err := LoadProblem(writeFile(t, "problem.json", misspelled), Overrides{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidProblem))
	assert.Contains(t, err.Error(), "goals")
}

func TestLoadProblemRejectsInvalidDimensions(t *testing.T) {
	path := writeFile(t, "problem.json", `{"dimens": {"x": 0, "y": 1}, "gamma": 1, "precision": 0.1, "reward": -1,
  "goal": [], "water": {"x1": 1, "y1": 1, "x2": 1, "y2": 1, "dir": "l", "chance": 0}, "empty": []}`)

	_, err := LoadProblem(path, Overrides{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidProblem))
	assert.Contains(t, err.Error(), "dimens")

	_, err = LoadProblem(filepath.Join(t.TempDir(), "missing.json"), Overrides{})
	assert.Error(t, err)
}

func TestFromYaml(t *testing.T) {
	path := writeFile(t, "config.yaml", solverYAML)

	cfg, err := FromYaml(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, cfg.GetHyperParamOrDefault(MinIterationsKey, 0))
	assert.Equal(t, 7.0, cfg.GetHyperParamOrDefault("unknown", 7))
	assert.Equal(t, 10, cfg.ExportEvery())

	params := cfg.Params(&Problem{Gamma: 0.5, Precision: 0.01})
	assert.Equal(t, Params{Gamma: 0.5, Precision: 0.01, MinIterations: 3, MaxIterations: 1000}, params)

	ctx, cancel, err := cfg.WithSolveDeadline(context.Background())
	require.NoError(t, err)
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(2*time.Second), deadline, time.Second)
}

func TestFromYamlEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", solverYAML)
	t.Setenv("GRIDMDP_MINITERATIONS", "4")
	t.Setenv("GRIDMDP_EXPORTEVERY", "2")

	cfg, err := FromYaml(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Params(&Problem{}).MinIterations)
	assert.Equal(t, 2, cfg.ExportEvery())

	cfg = FromEnv()
	assert.Equal(t, 4, cfg.Params(&Problem{}).MinIterations)
	assert.Equal(t, 0, cfg.Params(&Problem{}).MaxIterations)
}

func TestFromYamlRejects(t *testing.T) {
	_, err := FromYaml(writeFile(t, "config.yaml", "kind: qLearning\ndef: {}\n"))
	assert.Error(t, err)

	cfg, err := FromYaml(writeFile(t, "config.yaml", "kind: valueIteration\ndef:\n  solveDeadline:\n    duration: soon\n"))
	require.NoError(t, err)
	_, _, err = cfg.WithSolveDeadline(context.Background())
	assert.Error(t, err)
}

func TestDefaultSolverConfig(t *testing.T) {
	cfg := DefaultSolverConfig()
	assert.Equal(t, 1, cfg.ExportEvery())
	assert.Equal(t, DefaultMinIterations, cfg.Params(&Problem{}).MinIterations)

	ctx, cancel, err := cfg.WithSolveDeadline(context.Background())
	require.NoError(t, err)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)
}
