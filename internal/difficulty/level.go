package difficulty

import (
	"fmt"
	"strings"
)

// Level is an ordered difficulty level. The zero value is not a valid level.
type Level int

const (
	Easy Level = iota + 1
	Medium
	Hard
)

// Levels lists every level in ascending order.
var Levels = []Level{Easy, Medium, Hard}

func (l Level) String() string {
	switch l {
	case Easy:
		return "Easy"
	case Medium:
		return "Medium"
	case Hard:
		return "Hard"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Valid reports whether l is one of Easy, Medium or Hard.
func (l Level) Valid() bool {
	return l >= Easy && l <= Hard
}

// ParseLevel parses a level name case-insensitively ("easy", "Medium", "HARD").
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return 0, fmt.Errorf("unknown difficulty level %q", s)
}

// MarshalText encodes the level by name so JSON logs read "Easy", "Medium", "Hard".
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid difficulty level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	parsed, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Apply returns the level reached by applying t to l, clamped to [Easy, Hard].
// Clamping belongs to whoever holds the current level, never to the decision
// that produced t.
func (l Level) Apply(t Transition) Level {
	switch t {
	case Increase:
		if l < Hard {
			return l + 1
		}
		return Hard
	case Decrease:
		if l > Easy {
			return l - 1
		}
		return Easy
	case Maintain:
		return l
	}
	panic(fmt.Sprintf("difficulty: unknown transition %q", string(t)))
}

// Compare returns the transition that moves from l to next. Multi-step jumps
// are reported by direction only.
func Compare(l, next Level) Transition {
	switch {
	case next > l:
		return Increase
	case next < l:
		return Decrease
	default:
		return Maintain
	}
}
