// Package grid_world models the grid MDP: coordinates, directions, cells and
// the grid that owns them. Coordinates are 1-indexed, x grows to the right and
// y grows downward, which matches the console orientation (row y=1 prints first).
package grid_world

import "fmt"

// Coord is an immutable, 1-indexed grid position.
type Coord struct {
	X, Y int
}

func NewCoord(x, y int) Coord {
	return Coord{X: x, Y: y}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// Step returns the coordinate one cell away in direction dir.
func (c Coord) Step(dir Direction) Coord {
	dx, dy := dir.Offset()
	return Coord{X: c.X + dx, Y: c.Y + dy}
}

// Direction is one of the four moves, or NoDirection.
type Direction int

const (
	NoDirection Direction = iota
	Left
	Up
	Down
	Right
)

// Directions lists the moves in adjacency order. Policy ties resolve to the
// earliest entry.
var Directions = [...]Direction{Left, Up, Down, Right}

// ParseDirection maps the problem file's direction codes to a Direction.
func ParseDirection(code string) (Direction, error) {
	switch code {
	case "l":
		return Left, nil
	case "u":
		return Up, nil
	case "d":
		return Down, nil
	case "r":
		return Right, nil
	}
	return NoDirection, fmt.Errorf("%w: unknown direction %q", ErrInvalidProblem, code)
}

// Offset returns the (dx, dy) of a single step.
func (d Direction) Offset() (dx, dy int) {
	switch d {
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	}
	return 0, 0
}

// Glyph returns the console rune for the direction.
func (d Direction) Glyph() rune {
	switch d {
	case Left:
		return '<'
	case Up:
		return '^'
	case Down:
		return 'v'
	case Right:
		return '>'
	}
	return ' '
}

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Up:
		return "up"
	case Down:
		return "down"
	case Right:
		return "right"
	}
	return "none"
}
