// Package trace records soft diagnostics (notices) raised by the envelope
// model, the ledger and the simulator.
// This package has no dependencies on sim/ or its other sub-packages; it stores pure data types.
package trace

import "fmt"

// Kind classifies a notice.
type Kind string

const (
	// KindExtrapolation marks a query coordinate outside the measured axis range.
	KindExtrapolation Kind = "extrapolation"
	// KindClamp marks a bandwidth capped at the physical single-mode ceiling.
	KindClamp Kind = "clamp"
	// KindNegativeFloor marks an extrapolated bandwidth below zero that was floored.
	KindNegativeFloor Kind = "negative-floor"
	// KindLedgerOpen marks a ledger whose WA estimates disagree beyond tolerance.
	KindLedgerOpen Kind = "ledger-open"
)

// Notice is a single non-fatal diagnostic.
type Notice struct {
	Source  string // "envelope", "ledger", "sim"
	Kind    Kind
	Step    int // simulator step that raised it; -1 outside a simulation
	Message string
}

// NewNotice builds a notice that is not tied to a simulation step.
func NewNotice(source string, kind Kind, format string, args ...any) Notice {
	return Notice{
		Source:  source,
		Kind:    kind,
		Step:    -1,
		Message: fmt.Sprintf(format, args...),
	}
}

func (n Notice) String() string {
	if n.Step >= 0 {
		return fmt.Sprintf("[%s/%s step %d] %s", n.Source, n.Kind, n.Step, n.Message)
	}
	return fmt.Sprintf("[%s/%s] %s", n.Source, n.Kind, n.Message)
}
