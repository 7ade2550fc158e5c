package grid_world

import "fmt"

// Problem is the parsed problem definition from which a Grid is built.
// Field tags follow the problem file format; coordinates are 1-indexed.
type Problem struct {
	Dimens    Dimens  `mapstructure:"dimens" json:"dimens" yaml:"dimens"`
	Gamma     float64 `mapstructure:"gamma" json:"gamma" yaml:"gamma"`
	Precision float64 `mapstructure:"precision" json:"precision" yaml:"precision"`
	Reward    float64 `mapstructure:"reward" json:"reward" yaml:"reward"`
	Goals     []Goal  `mapstructure:"goal" json:"goal" yaml:"goal"`
	Water     *Water  `mapstructure:"water" json:"water,omitempty" yaml:"water,omitempty"`
	Empty     []Coord `mapstructure:"empty" json:"empty" yaml:"empty"`
}

type Dimens struct {
	X int `mapstructure:"x" json:"x" yaml:"x"`
	Y int `mapstructure:"y" json:"y" yaml:"y"`
}

// Goal is an absorbing cell whose reward and utility are fixed to Score.
type Goal struct {
	X     int     `mapstructure:"x" json:"x" yaml:"x"`
	Y     int     `mapstructure:"y" json:"y" yaml:"y"`
	Score float64 `mapstructure:"score" json:"score" yaml:"score"`
}

// Water is the rectangular hazard region, inclusive on both corners.
// Dir is one of l, r, u, d and Chance is the redirected probability mass.
// A Problem built in code may leave Water nil for no hazard region; problem
// files must still carry the key.
type Water struct {
	X1     int     `mapstructure:"x1" json:"x1" yaml:"x1"`
	Y1     int     `mapstructure:"y1" json:"y1" yaml:"y1"`
	X2     int     `mapstructure:"x2" json:"x2" yaml:"x2"`
	Y2     int     `mapstructure:"y2" json:"y2" yaml:"y2"`
	Dir    string  `mapstructure:"dir" json:"dir" yaml:"dir"`
	Chance float64 `mapstructure:"chance" json:"chance" yaml:"chance"`
}

// Contains reports whether c lies inside the rectangle.
func (w *Water) Contains(c Coord) bool {
	return c.X >= w.X1 && c.X <= w.X2 && c.Y >= w.Y1 && c.Y <= w.Y2
}

// Validate checks the structural constraints that can be checked without
// building the grid.
func (p *Problem) Validate() error {
	if p.Dimens.X < 1 || p.Dimens.Y < 1 {
		return fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrInvalidProblem, p.Dimens.X, p.Dimens.Y)
	}
	if p.Precision < 0 {
		return fmt.Errorf("%w: precision must be non-negative, got %v", ErrInvalidProblem, p.Precision)
	}

	inBounds := func(x, y int) bool {
		return x >= 1 && x <= p.Dimens.X && y >= 1 && y <= p.Dimens.Y
	}
	for _, g := range p.Goals {
		if !inBounds(g.X, g.Y) {
			return fmt.Errorf("%w: goal %v: %w", ErrInvalidProblem, NewCoord(g.X, g.Y), ErrOutOfBounds)
		}
	}
	for _, e := range p.Empty {
		if !inBounds(e.X, e.Y) {
			return fmt.Errorf("%w: empty cell %v: %w", ErrInvalidProblem, e, ErrOutOfBounds)
		}
	}

	if w := p.Water; w != nil {
		if w.X1 > w.X2 || w.Y1 > w.Y2 {
			return fmt.Errorf("%w: water corners (%d,%d)-(%d,%d) are reversed", ErrInvalidProblem, w.X1, w.Y1, w.X2, w.Y2)
		}
		if !inBounds(w.X1, w.Y1) || !inBounds(w.X2, w.Y2) {
			return fmt.Errorf("%w: water region: %w", ErrInvalidProblem, ErrOutOfBounds)
		}
		if w.Chance < 0 || w.Chance > 1 {
			return fmt.Errorf("%w: water chance must lie in [0,1], got %v", ErrInvalidProblem, w.Chance)
		}
		if _, err := ParseDirection(w.Dir); err != nil {
			return err
		}
	}

	return nil
}
