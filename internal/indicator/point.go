// Package indicator computes technical-indicator series over committed bar
// sequences. Every function is pure and replayable: recomputing over a longer
// history reproduces identical values at every shared timestamp.
package indicator

import (
	"time"
)

// Point is one indicator value anchored to the timestamp of the bar that
// produced it.
type Point struct {
	Time  time.Time
	Value float64
}
