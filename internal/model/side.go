package model

import "fmt"

// Side names one leg of the portfolio.
// Keep these values stable; they are used as keys in persisted output.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Sign is +1 for long positions and -1 for short positions.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideLong, SideShort:
		return Side(s), nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}
