package grid_world

import (
	"fmt"

	"gridmdp/atomic_float"
)

// Grid owns every Cell in a flat, column-major slice: the cell at (x, y) lives
// at index (x-1)*height + (y-1). Grids are never resized.
type Grid struct {
	width, height int
	cells         []Cell
}

// Build validates the problem and constructs its grid. Every cell starts with
// the default reward and zero utility; goals, then the water rectangle, then the
// empty cells are applied in that order. A goal inside the water keeps its hazard
// fields, which only affect rendering since final cells never evaluate them.
func Build(problem *Problem) (*Grid, error) {
	if problem == nil {
		return nil, fmt.Errorf("%w: nil problem", ErrInvalidProblem)
	}
	if err := problem.Validate(); err != nil {
		return nil, err
	}

	grid := &Grid{
		width:  problem.Dimens.X,
		height: problem.Dimens.Y,
		cells:  make([]Cell, problem.Dimens.X*problem.Dimens.Y),
	}

	initial := make([]float64, len(grid.cells))
	for x := 1; x <= grid.width; x++ {
		for y := 1; y <= grid.height; y++ {
			i := grid.index(x, y)
			grid.cells[i] = Cell{
				grid:      grid,
				index:     i,
				coord:     NewCoord(x, y),
				reward:    problem.Reward,
				hazardDir: Left,
			}
		}
	}

	for _, g := range problem.Goals {
		cell := grid.at(g.X, g.Y)
		cell.final = true
		cell.reward = g.Score
		initial[cell.index] = g.Score
	}

	if w := problem.Water; w != nil {
		dir, _ := ParseDirection(w.Dir)
		for i := range grid.cells {
			cell := &grid.cells[i]
			if w.Contains(cell.coord) {
				cell.hazardDir = dir
				cell.hazardProb = w.Chance
			}
		}
	}

	for _, e := range problem.Empty {
		grid.at(e.X, e.Y).empty = true
	}

	for i := range grid.cells {
		cell := &grid.cells[i]
		cell.utility = atomic_float.NewAtomicFloat64(initial[i])
		cell.previous = initial[i]
	}

	if err := grid.checkInvariants(); err != nil {
		return nil, err
	}
	return grid, nil
}

// checkInvariants rejects grids the solver could not evaluate: a live hazard
// pointing off-grid leaves probability mass undefined, and a non-final cell
// without neighbors has nothing to maximize over.
func (g *Grid) checkInvariants() error {
	for i := range g.cells {
		cell := &g.cells[i]
		if cell.empty || cell.final {
			continue
		}
		if cell.hazardProb != 0 {
			to := cell.coord.Step(cell.hazardDir)
			if !g.InBounds(to.X, to.Y) {
				return fmt.Errorf("%w: hazard at %v redirects %s off the grid with chance %v",
					ErrInvariantViolation, cell.coord, cell.hazardDir, cell.hazardProb)
			}
		}
		if len(cell.Adjacent()) == 0 {
			return fmt.Errorf("%w: cell %v has no reachable neighbor", ErrInvariantViolation, cell.coord)
		}
	}
	return nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }
func (g *Grid) Len() int    { return len(g.cells) }

// InBounds reports whether (x, y) lies on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 1 && x <= g.width && y >= 1 && y <= g.height
}

// Lookup returns the cell at (x, y), or an error wrapping ErrOutOfBounds.
func (g *Grid) Lookup(x, y int) (*Cell, error) {
	if !g.InBounds(x, y) {
		return nil, fmt.Errorf("%w: (%d, %d) on a %dx%d grid", ErrOutOfBounds, x, y, g.width, g.height)
	}
	return g.at(x, y), nil
}

// Cells returns every cell in column-major order: all y for x=1, then x=2, etc.
func (g *Grid) Cells() []*Cell {
	cells := make([]*Cell, len(g.cells))
	for i := range g.cells {
		cells[i] = &g.cells[i]
	}
	return cells
}

// Visit calls fn on every cell in column-major order.
func (g *Grid) Visit(fn func(c *Cell)) {
	for i := range g.cells {
		fn(&g.cells[i])
	}
}

// VisitRows calls fn on every cell row by row, y=1 first, which is the order
// in which grids are printed.
func (g *Grid) VisitRows(fn func(c *Cell)) {
	for y := 1; y <= g.height; y++ {
		for x := 1; x <= g.width; x++ {
			fn(g.at(x, y))
		}
	}
}

// Utilities returns the current utility field indexed [x-1][y-1].
func (g *Grid) Utilities() [][]float64 {
	field := make([][]float64, g.width)
	for x := range field {
		field[x] = make([]float64, g.height)
		for y := range field[x] {
			field[x][y] = g.at(x+1, y+1).Utility()
		}
	}
	return field
}

func (g *Grid) index(x, y int) int {
	return (x-1)*g.height + (y - 1)
}

func (g *Grid) at(x, y int) *Cell {
	return &g.cells[g.index(x, y)]
}
