package ledger

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/putrate-sim/putrate-sim/sim/trace"
)

// DefaultTolerance is the relative WA disagreement accepted as closed.
const DefaultTolerance = 0.1

// Closure is the verdict of VerifyClosure.
type Closure struct {
	IsClosed           bool
	ClosureError       float64 // |WAStat - WADevice| / max(WAStat, WADevice)
	Difference         float64 // WAStat - WADevice
	RelativeDifference float64 // Difference / WADevice, 0 when WADevice is 0
	Tolerance          float64
	Notices            []trace.Notice
}

// VerifyClosure compares the bookkeeping and device estimates of write
// amplification. A non-closing ledger is reported through a notice and a
// warning; it is never an error. A negative tolerance selects DefaultTolerance.
func VerifyClosure(a Amplification, tolerance float64) Closure {
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}
	c := Closure{
		Difference: a.WAStat - a.WADevice,
		Tolerance:  tolerance,
	}
	if a.WADevice != 0 {
		c.RelativeDifference = c.Difference / a.WADevice
	}
	if denom := math.Max(a.WAStat, a.WADevice); denom > 0 {
		c.ClosureError = math.Abs(c.Difference) / denom
	}
	c.IsClosed = c.ClosureError <= tolerance
	if !c.IsClosed {
		n := trace.NewNotice("ledger", trace.KindLedgerOpen,
			"ledger does not close: WA_stat=%.3f WA_device=%.3f error=%.1f%% > %.1f%%",
			a.WAStat, a.WADevice, c.ClosureError*100, tolerance*100)
		logrus.Warn(n.Message)
		c.Notices = append(c.Notices, n)
	}
	return c
}
