package capture

import (
	"fmt"
)

type Outcome int

const (
	// OutcomeCaptured: at least one frame arrived and the user stopped the
	// capture normally.
	OutcomeCaptured = Outcome(iota)
	// OutcomeEmpty: the capture was stopped before any frame arrived.
	OutcomeEmpty
	// OutcomeCancelled: the user aborted the capture; any accumulated
	// frames are discarded.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCaptured:
		return "captured"
	case OutcomeEmpty:
		return "empty"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("<unexpected_value_%d>", int(o))
	}
}

// Result is the outcome of a voice capture. Samples is non-empty if and
// only if Outcome is OutcomeCaptured.
type Result struct {
	Outcome Outcome
	Samples []float64
}
