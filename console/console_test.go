package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"gridmdp/grid_world"
	"gridmdp/reinforcement"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pad(fields ...string) string {
	var sb strings.Builder
	for _, f := range fields {
		sb.WriteString(strings.Repeat(" ", fieldWidth-len(f)) + f)
	}
	return sb.String() + "\n"
}

// solvedGrid is a 3x2 grid with a goal at (3,1), water at (1,2) flowing up and
// a wall at (2,2), solved with gamma=1.
func solvedGrid(t *testing.T) *grid_world.Grid {
	t.Helper()
	problem := &grid_world.Problem{
		Dimens:    grid_world.Dimens{X: 3, Y: 2},
		Gamma:     1,
		Precision: 0.00001,
		Reward:    -5,
		Goals:     []grid_world.Goal{{X: 3, Y: 1, Score: 100}},
		Water:     &grid_world.Water{X1: 1, Y1: 2, X2: 1, Y2: 2, Dir: "u", Chance: 0.5},
		Empty:     []grid_world.Coord{{X: 2, Y: 2}},
	}
	grid, err := grid_world.Build(problem)
	require.NoError(t, err)

	vi, err := reinforcement.NewValueIteration(grid, reinforcement.Params{Gamma: 1, Precision: 0.00001})
	require.NoError(t, err)
	require.NoError(t, vi.Run(context.Background(), nil))
	return grid
}

func TestFormatReward(t *testing.T) {
	grid := solvedGrid(t)
	want := pad(" -5.00 ", " -5.00 ", "|100.00|") +
		pad("~-5.00~", " x ", " -5.00 ")
	assert.Equal(t, want, Format(grid, Reward))
}

func TestFormatUtility(t *testing.T) {
	grid := solvedGrid(t)
	want := pad(" 90.00 ", " 95.00 ", "|100.00|") +
		pad("~85.00~", " x ", " 95.00 ")
	assert.Equal(t, want, Format(grid, Utility))
}

func TestFormatPolicy(t *testing.T) {
	grid := solvedGrid(t)
	want := pad(" > ", " > ", " F ") +
		pad(" ^ ", " x ", " ^ ")
	assert.Equal(t, want, Format(grid, Policy))
}

func TestFormatOneByOne(t *testing.T) {
	grid, err := grid_world.Build(&grid_world.Problem{
		Dimens: grid_world.Dimens{X: 1, Y: 1},
		Reward: -5,
		Goals:  []grid_world.Goal{{X: 1, Y: 1, Score: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, "   |10.00|\n", Format(grid, Utility))
	assert.Equal(t, pad(" F "), Format(grid, Policy))
}

func TestFormatGoalInWater(t *testing.T) {
	grid, err := grid_world.Build(&grid_world.Problem{
		Dimens: grid_world.Dimens{X: 2, Y: 1},
		Reward: -5,
		Goals:  []grid_world.Goal{{X: 2, Y: 1, Score: 100}},
		Water:  &grid_world.Water{X1: 1, Y1: 1, X2: 2, Y2: 1, Dir: "r", Chance: 0.5},
	})
	require.NoError(t, err)
	vi, err := reinforcement.NewValueIteration(grid, reinforcement.Params{Gamma: 1, Precision: 0.00001})
	require.NoError(t, err)
	require.NoError(t, vi.Run(context.Background(), nil))

	assert.Equal(t, pad("~95.00~", "~100.00~"), Format(grid, Utility))
	assert.Equal(t, pad(" > ", " F "), Format(grid, Policy))
}

func TestFormatWalledInGoals(t *testing.T) {
	grid, err := grid_world.Build(&grid_world.Problem{
		Dimens: grid_world.Dimens{X: 3, Y: 1},
		Reward: -5,
		Goals:  []grid_world.Goal{{X: 1, Y: 1, Score: 10}, {X: 3, Y: 1, Score: 20}},
		Empty:  []grid_world.Coord{{X: 2, Y: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, pad("|10.00|", " x ", "|20.00|"), Format(grid, Utility))
	assert.Equal(t, pad(" F ", " x ", " F "), Format(grid, Policy))
}

func TestPrint(t *testing.T) {
	grid := solvedGrid(t)

	var plain bytes.Buffer
	require.NoError(t, Print(&plain, grid, Utility, false))
	assert.Equal(t, Format(grid, Utility)+"\n", plain.String())

	var coloured bytes.Buffer
	require.NoError(t, Print(&coloured, grid, Utility, true))
	assert.Contains(t, coloured.String(), "\x1b[")
	assert.Contains(t, coloured.String(), "|100.00|")
	assert.Contains(t, coloured.String(), " 95.00 ")
	assert.Equal(t, 2, strings.Count(coloured.String(), "\n")-1)
}

func TestParseMode(t *testing.T) {
	for name, want := range map[string]Mode{"utility": Utility, "Reward": Reward, "POLICY": Policy} {
		mode, err := ParseMode(name)
		require.NoError(t, err)
		assert.Equal(t, want, mode)
		assert.Equal(t, strings.ToLower(name), mode.String())
	}
	_, err := ParseMode("values")
	assert.Error(t, err)
}
