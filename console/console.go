// Package console renders a grid's rewards, utilities or policy as an aligned
// text grid: one row per y, one ten-wide field per x.
package console

import (
	"fmt"
	"io"
	"strings"

	"gridmdp/grid_world"

	"github.com/logrusorgru/aurora"
)

// Mode selects which field of the grid is rendered.
type Mode int

const (
	Utility Mode = iota
	Reward
	Policy
)

const fieldWidth = 10

// ParseMode maps a mode name to a Mode.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(name) {
	case "utility":
		return Utility, nil
	case "reward":
		return Reward, nil
	case "policy":
		return Policy, nil
	}
	return Utility, fmt.Errorf("unknown mode %q: want utility, reward or policy", name)
}

func (m Mode) String() string {
	switch m {
	case Reward:
		return "reward"
	case Policy:
		return "policy"
	}
	return "utility"
}

// Field returns the bracketed, unpadded text of a single cell.
// Value modes bracket the number with ' ', '~' for water or '|' for goals,
// water taking precedence. Blocked cells render as x in every mode.
func Field(c *grid_world.Cell, mode Mode) string {
	if mode == Policy {
		val := string(c.Policy().Glyph())
		if c.IsEmpty() {
			val = "x"
		}
		if c.IsFinal() {
			val = "F"
		}
		return " " + val + " "
	}

	value := c.Utility()
	if mode == Reward {
		value = c.Reward()
	}
	val := fmt.Sprintf("%.2f", value)
	delim := " "
	switch {
	case c.IsEmpty():
		val = "x"
	case c.IsHazard():
		delim = "~"
	case c.IsFinal():
		delim = "|"
	}
	return delim + val + delim
}

// Format renders the grid in the given mode.
func Format(grid *grid_world.Grid, mode Mode) string {
	var sb strings.Builder
	grid.VisitRows(func(c *grid_world.Cell) {
		fmt.Fprintf(&sb, "%*s", fieldWidth, Field(c, mode))
		if c.Coord().X == grid.Width() {
			sb.WriteByte('\n')
		}
	})
	return sb.String()
}

// Print writes the formatted grid followed by a blank line. With colour set,
// goals print green, water cyan and blocked cells gray.
func Print(w io.Writer, grid *grid_world.Grid, mode Mode, colour bool) error {
	if !colour {
		_, err := fmt.Fprintln(w, Format(grid, mode))
		return err
	}

	au := aurora.NewAurora(true)
	var sb strings.Builder
	grid.VisitRows(func(c *grid_world.Cell) {
		field := fmt.Sprintf("%*s", fieldWidth, Field(c, mode))
		switch {
		case c.IsEmpty():
			sb.WriteString(au.Gray(12, field).String())
		case c.IsFinal():
			sb.WriteString(au.Green(field).String())
		case c.IsHazard():
			sb.WriteString(au.Cyan(field).String())
		default:
			sb.WriteString(field)
		}
		if c.Coord().X == grid.Width() {
			sb.WriteByte('\n')
		}
	})
	_, err := fmt.Fprintln(w, sb.String())
	return err
}
