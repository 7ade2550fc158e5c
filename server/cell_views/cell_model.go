// cell_views contains views derived from the Cell view-model.
package cell_views

import (
	"math"

	"gridmdp/grid_world"
	"gridmdp/reinforcement"
)

// Cell is a grid cell reduced to values immediately usable as view parameters.
// X and Y are 0-indexed svg coordinates such that [0][0] is the cell printed at
// the top left of the console, which is grid coordinate (1, 1).
type Cell struct {
	X, Y    int
	Utility float64
	Reward  float64
	Glyph   string
	Fill    string
	Empty   bool
}

// Board is the view-model of a solve at some iteration. Cells is indexed [x][y].
type Board struct {
	Iteration  int
	Residual   float64
	State      string
	MinUtility float64
	MaxUtility float64
	Cells      [][]Cell
}

// Convert transforms a solver progress report into a Board for consumption by views.
// Utilities are sampled atomically, so the solver may be mid-sweep.
func Convert(progress reinforcement.Progress) (board Board) {
	grid := progress.Grid
	board = Board{
		Iteration:  progress.Iteration,
		Residual:   progress.Residual,
		State:      progress.State.String(),
		MinUtility: math.Inf(1),
		MaxUtility: math.Inf(-1),
		Cells:      make([][]Cell, grid.Width()),
	}
	for x := range board.Cells {
		board.Cells[x] = make([]Cell, grid.Height())
	}

	grid.Visit(func(c *grid_world.Cell) {
		coord := c.Coord()
		utility := c.Utility()
		board.Cells[coord.X-1][coord.Y-1] = Cell{
			X:       coord.X - 1,
			Y:       coord.Y - 1,
			Utility: utility,
			Reward:  c.Reward(),
			Glyph:   string(c.Policy().Glyph()),
			Fill:    getFill(c),
			Empty:   c.IsEmpty(),
		}
		if !c.IsEmpty() {
			board.MinUtility = math.Min(board.MinUtility, utility)
			board.MaxUtility = math.Max(board.MaxUtility, utility)
		}
	})
	return
}

func getFill(c *grid_world.Cell) (fill string) {
	switch {
	case c.IsEmpty():
		fill = "dimgray"
	case c.IsHazard():
		fill = "lightblue"
	case c.IsFinal():
		fill = "lightgreen"
	default:
		fill = "white"
	}
	return
}
