package grid_world

import (
	"errors"
	"fmt"

	"gridmdp/atomic_float"
)

// Cell is a single grid location. Its classification (reward, final, empty,
// hazard) is fixed when the Grid is built; only the utilities change, and only
// the solver writes them.
type Cell struct {
	grid  *Grid // non-owning; used to resolve neighbors
	index int
	coord Coord

	reward     float64
	final      bool
	empty      bool
	hazardProb float64
	hazardDir  Direction

	utility  *atomic_float.AtomicFloat64
	previous float64
}

// Adjacent pairs a neighboring cell with the direction leading to it.
type Adjacent struct {
	Dir  Direction
	Cell *Cell
}

func (c *Cell) Coord() Coord               { return c.coord }
func (c *Cell) Reward() float64            { return c.reward }
func (c *Cell) IsFinal() bool              { return c.final }
func (c *Cell) IsEmpty() bool              { return c.empty }
func (c *Cell) IsHazard() bool             { return c.hazardProb != 0 }
func (c *Cell) HazardProbability() float64 { return c.hazardProb }
func (c *Cell) HazardDirection() Direction { return c.hazardDir }
func (c *Cell) PreviousUtility() float64   { return c.previous }
func (c *Cell) Utility() float64           { return c.utility.AtomicRead() }

// SetUtility stores u and returns the utility it replaced.
func (c *Cell) SetUtility(u float64) (old float64) {
	return c.utility.AtomicSwap(u)
}

func (c *Cell) String() string {
	return fmt.Sprintf("%v: R: %v, U: %v", c.coord, c.reward, c.Utility())
}

// Snapshot copies the current utility into the previous slot. The solver calls
// this on every cell before any cell is updated, which keeps a sweep synchronous.
func (c *Cell) Snapshot() {
	c.previous = c.Utility()
}

// Adjacent returns the in-bounds, non-empty neighbors in Left, Up, Down, Right order.
// Bounds are checked before lookup, so ErrOutOfBounds never surfaces here.
func (c *Cell) Adjacent() []Adjacent {
	adjacent := make([]Adjacent, 0, len(Directions))
	for _, dir := range Directions {
		to := c.coord.Step(dir)
		if !c.grid.InBounds(to.X, to.Y) {
			continue
		}
		n := c.grid.at(to.X, to.Y)
		if n.empty {
			continue
		}
		adjacent = append(adjacent, Adjacent{Dir: dir, Cell: n})
	}
	return adjacent
}

// Neighbors returns the cells of Adjacent without their directions.
func (c *Cell) Neighbors() []*Cell {
	adjacent := c.Adjacent()
	neighbors := make([]*Cell, len(adjacent))
	for i, adj := range adjacent {
		neighbors[i] = adj.Cell
	}
	return neighbors
}

// HazardTarget returns the cell receiving the redirected probability mass.
// An off-grid target resolves to the cell itself, which is only meaningful when
// the hazard probability is zero (Build rejects the other case). A blocked
// target bounces back to the cell itself.
func (c *Cell) HazardTarget() *Cell {
	to := c.coord.Step(c.hazardDir)
	target, err := c.grid.Lookup(to.X, to.Y)
	if errors.Is(err, ErrOutOfBounds) {
		return c
	}
	if target.empty {
		return c
	}
	return target
}

// Expected returns the one-step expected utility of moving toward n, using
// value to read utilities (previous or current).
func (c *Cell) Expected(n *Cell, value func(*Cell) float64) float64 {
	return value(n)*(1-c.hazardProb) + value(c.HazardTarget())*c.hazardProb
}

// Policy returns the greedy direction under the current utilities, the first
// maximum in adjacency order winning ties. Final and empty cells have none.
func (c *Cell) Policy() Direction {
	if c.final || c.empty {
		return NoDirection
	}

	best := NoDirection
	var bestVal float64
	for _, adj := range c.Adjacent() {
		val := c.Expected(adj.Cell, (*Cell).Utility)
		if best == NoDirection || val > bestVal {
			best, bestVal = adj.Dir, val
		}
	}
	return best
}
