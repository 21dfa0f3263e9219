package sim

import "math"

// Uncalibrated heuristics. Changing any constant here requires new
// calibration data.
const (
	// MaxStallProbability caps write throttling.
	MaxStallProbability = 0.9

	// Read-ratio proxy: logistic in L0 file count, capped.
	readRatioMidpoint = 10.0
	readRatioSlope    = 0.1
	MaxReadRatio      = 0.5

	// Compaction fan-out: demand per level as a multiple of S_put x compression ratio.
	flushFanOut  = 1.0
	l1FanOut     = 0.5
	deeperFanOut = 0.1

	mibPerGiB = 1024.0
)

func logistic(x, midpoint, steepness float64) float64 {
	return 1.0 / (1.0 + math.Exp(-steepness*(x-midpoint)))
}

// StallProbability is the chance a writer is throttled with l0Files files in L0.
func StallProbability(l0Files, threshold, steepness float64) float64 {
	return math.Min(logistic(l0Files, threshold, steepness), MaxStallProbability)
}

// ReadRatioEstimate approximates the fraction of device traffic that is
// compaction reads as the L0 backlog grows.
func ReadRatioEstimate(l0Files float64) float64 {
	return math.Min(logistic(l0Files, readRatioMidpoint, readRatioSlope), MaxReadRatio)
}

// LevelDemand is the write demand (MiB/s) placed on level by put rate sPut.
// Level 0 receives flushes; deeper levels receive compaction output.
func LevelDemand(level int, sPut, compressionRatio float64) float64 {
	base := sPut * compressionRatio
	switch {
	case level == 0:
		return base * flushFanOut
	case level == 1:
		return base * l1FanOut
	default:
		return base * deeperFanOut
	}
}
