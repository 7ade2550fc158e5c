package reinforcement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	. "gridmdp/grid_world"
)

// SolveState is the engine's position in its two-state lifecycle.
type SolveState int

const (
	Running SolveState = iota
	Converged
)

func (s SolveState) String() string {
	if s == Converged {
		return "converged"
	}
	return "running"
}

// DefaultMinIterations is the iteration floor below which convergence is never
// declared, even if every delta already lies within the precision.
const DefaultMinIterations = 5

// ErrNotConverged is returned by Run when MaxIterations elapse first.
var ErrNotConverged = errors.New("reinforcement: iteration cap reached before convergence")

// Params holds the solver parameters. Gamma and Precision come from the
// problem definition; the iteration bounds come from the solver config.
type Params struct {
	Gamma     float64
	Precision float64
	// MinIterations is the convergence floor; values below 1 select DefaultMinIterations.
	MinIterations int
	// MaxIterations caps Run. Zero leaves it unbounded, in which case a
	// non-contracting problem (gamma >= 1 with positive feedback) only stops
	// when the context is cancelled.
	MaxIterations int
}

// ValueIteration runs synchronous Bellman sweeps over a Grid until every
// non-empty cell's utility moves by no more than the precision.
type ValueIteration struct {
	grid   *Grid
	params Params
	live   []*Cell

	mu        sync.RWMutex
	iteration int
	state     SolveState
	residuals []float64
}

// ProgressFunc is called after every sweep with the completed iteration count.
// It runs on the solver goroutine, so it should return quickly.
type ProgressFunc func(ctx context.Context, vi *ValueIteration)

// NewValueIteration prepares a solver over grid. Cells start in the Running
// state holding their initial utilities.
func NewValueIteration(grid *Grid, params Params) (*ValueIteration, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrInvalidProblem)
	}
	if params.Precision < 0 {
		return nil, fmt.Errorf("%w: precision must be non-negative, got %v", ErrInvalidProblem, params.Precision)
	}
	if params.MinIterations < 1 {
		params.MinIterations = DefaultMinIterations
	}
	if params.MaxIterations < 0 {
		params.MaxIterations = 0
	}

	vi := &ValueIteration{
		grid:   grid,
		params: params,
		state:  Running,
	}
	grid.Visit(func(c *Cell) {
		if !c.IsEmpty() {
			vi.live = append(vi.live, c)
		}
	})
	return vi, nil
}

// Sweep performs one iteration and returns the largest absolute utility change.
// Every live cell first snapshots its utility, then every live cell is updated
// from the snapshots only, so visiting order within a sweep cannot matter.
func (vi *ValueIteration) Sweep() (maxDelta float64) {
	for _, c := range vi.live {
		c.Snapshot()
	}

	for _, c := range vi.live {
		next := vi.backup(c)
		old := c.SetUtility(next)
		maxDelta = math.Max(maxDelta, math.Abs(next-old))
	}

	vi.mu.Lock()
	defer vi.mu.Unlock()
	vi.iteration++
	vi.residuals = append(vi.residuals, maxDelta)
	if vi.iteration >= vi.params.MinIterations && maxDelta <= vi.params.Precision {
		vi.state = Converged
	}
	return
}

// backup computes the Bellman update of c from the previous iteration's utilities.
func (vi *ValueIteration) backup(c *Cell) float64 {
	if c.IsFinal() {
		return c.Reward()
	}

	best := math.Inf(-1)
	for _, n := range c.Neighbors() {
		best = math.Max(best, c.Expected(n, (*Cell).PreviousUtility))
	}
	return c.Reward() + vi.params.Gamma*best
}

// Run sweeps until convergence. It stops early with the context's error when
// ctx is done, or with ErrNotConverged once MaxIterations sweeps have run.
func (vi *ValueIteration) Run(ctx context.Context, progressFn ProgressFunc) error {
	for vi.State() == Running {
		select {
		case <-ctx.Done():
			return fmt.Errorf("value iteration stopped after %d iterations: %w", vi.Iterations(), ctx.Err())
		default:
		}

		if limit := vi.params.MaxIterations; limit > 0 && vi.Iterations() >= limit {
			return fmt.Errorf("%w: %d iterations, last residual %v", ErrNotConverged, limit, vi.lastResidual())
		}

		vi.Sweep()
		if progressFn != nil {
			progressFn(ctx, vi)
		}
	}
	return nil
}

func (vi *ValueIteration) Grid() *Grid { return vi.grid }

func (vi *ValueIteration) Params() Params { return vi.params }

// Iterations returns the number of completed sweeps.
func (vi *ValueIteration) Iterations() int {
	vi.mu.RLock()
	defer vi.mu.RUnlock()
	return vi.iteration
}

func (vi *ValueIteration) State() SolveState {
	vi.mu.RLock()
	defer vi.mu.RUnlock()
	return vi.state
}

// Residuals returns a copy of the per-iteration maximum deltas.
func (vi *ValueIteration) Residuals() []float64 {
	vi.mu.RLock()
	defer vi.mu.RUnlock()
	residuals := make([]float64, len(vi.residuals))
	copy(residuals, vi.residuals)
	return residuals
}

func (vi *ValueIteration) lastResidual() float64 {
	return vi.Progress().Residual
}

// Policy returns the greedy direction of every cell, indexed [x-1][y-1].
func (vi *ValueIteration) Policy() [][]Direction {
	grid := vi.grid
	policy := make([][]Direction, grid.Width())
	for x := range policy {
		policy[x] = make([]Direction, grid.Height())
	}
	grid.Visit(func(c *Cell) {
		policy[c.Coord().X-1][c.Coord().Y-1] = c.Policy()
	})
	return policy
}

// Progress is a summary of a solve at some iteration, exported to views.
// Grid is shared with the solver; its utilities are read atomically.
type Progress struct {
	Iteration int
	Residual  float64
	State     SolveState
	Grid      *Grid
}

// Progress returns the solver's current iteration, last residual and state.
func (vi *ValueIteration) Progress() Progress {
	vi.mu.RLock()
	defer vi.mu.RUnlock()
	residual := math.Inf(1)
	if n := len(vi.residuals); n > 0 {
		residual = vi.residuals[n-1]
	}
	return Progress{
		Iteration: vi.iteration,
		Residual:  residual,
		State:     vi.state,
		Grid:      vi.grid,
	}
}
