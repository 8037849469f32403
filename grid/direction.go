package grid

import "fmt"

// Direction is the direction pointer (DP). Values are ordered clockwise.
type Direction int

const (
	Right Direction = iota
	Down
	Left
	Up
)

// Clockwise returns d rotated clockwise n steps. Negative n rotates
// counter-clockwise.
func (d Direction) Clockwise(n int) Direction {
	return Direction(((int(d)+n)%4 + 4) % 4)
}

// Delta returns the row and column offsets of one step in direction d.
func (d Direction) Delta() (dr, dc int) {
	switch d {
	case Right:
		return 0, 1
	case Down:
		return 1, 0
	case Left:
		return 0, -1
	case Up:
		return -1, 0
	}
	return 0, 0
}

func (d Direction) String() string {
	switch d {
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	case Up:
		return "up"
	}
	return "?"
}

// Chooser is the codel chooser (CC), relative to the direction pointer.
type Chooser int

const (
	ChooseLeft Chooser = iota
	ChooseRight
)

// Toggle returns c flipped |n| times.
func (c Chooser) Toggle(n int) Chooser {
	if n%2 == 0 {
		return c
	}
	return 1 - c
}

func (c Chooser) String() string {
	if c == ChooseRight {
		return "right"
	}
	return "left"
}

// ParseDirection parses "right", "down", "left" or "up".
func ParseDirection(s string) (Direction, error) {
	for d := Right; d <= Up; d++ {
		if d.String() == s {
			return d, nil
		}
	}
	return Right, fmt.Errorf("unknown direction %q", s)
}

// ParseChooser parses "left" or "right".
func ParseChooser(s string) (Chooser, error) {
	switch s {
	case "left":
		return ChooseLeft, nil
	case "right":
		return ChooseRight, nil
	}
	return ChooseLeft, fmt.Errorf("unknown codel chooser %q", s)
}
