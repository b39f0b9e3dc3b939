package wfc

import (
	"fmt"
	"strings"
)

// Direction represents a cardinal direction in the grid
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// String returns the string representation of a Direction
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Valid reports whether d is one of the four cardinal directions.
func (d Direction) Valid() bool {
	return d >= Up && d <= Right
}

// Opposite returns the opposite direction
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	default:
		return d
	}
}

// Offset returns the row and column delta of one step in direction d.
func (d Direction) Offset() (dRow, dCol int) {
	switch d {
	case Up:
		return -1, 0
	case Down:
		return 1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	}
	return 0, 0
}

// AllDirections returns all four cardinal directions
func AllDirections() []Direction {
	return []Direction{Up, Down, Left, Right}
}

// ParseDirection converts a name such as "up" or "LEFT" to a Direction.
func ParseDirection(name string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "up", "north":
		return Up, nil
	case "down", "south":
		return Down, nil
	case "left", "west":
		return Left, nil
	case "right", "east":
		return Right, nil
	}
	return 0, fmt.Errorf("%w: unknown direction %q", ErrInvalidRule, name)
}
