package sim

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/putrate-sim/putrate-sim/sim/internal/testutil"
	"github.com/putrate-sim/putrate-sim/sim/trace"
)

// tenRowResults has S_put = 10i and a starved level 1.
func tenRowResults() *Results {
	r := &Results{Levels: []int{0, 1}, TargetPutRate: 100, WALFactor: 2}
	for i := 0; i < 10; i++ {
		r.Rows = append(r.Rows, Row{
			Step:     i,
			Time:     float64(i),
			SPut:     float64(i * 10),
			PStall:   0.1,
			RhoR:     0.2,
			L0Files:  float64(i),
			Backlog:  []float64{0, float64(i)},
			Capacity: []float64{100, 0},
			Demand:   []float64{50, 5},
		})
	}
	return r
}

func TestAnalyze_SteadyWindow(t *testing.T) {
	// GIVEN ten rows
	r := tenRowResults()
	r.Notices = []trace.Notice{
		{Source: "envelope", Kind: trace.KindClamp, Step: 3},
		{Source: "envelope", Kind: trace.KindClamp, Step: 4},
	}

	// WHEN analysed
	a := Analyze(r)

	// THEN only the last two rows count
	assert.Equal(t, 8, a.SteadyStart)
	assert.Equal(t, 2, a.SteadyRows)
	assert.InDelta(t, 85.0, a.AvgPutRate, 1e-12)
	assert.InDelta(t, 0.85, a.ThroughputEfficiency, 1e-12)
	assert.InDelta(t, 10.0, a.StallPercentage, 1e-12)
	assert.InDelta(t, 0.2, a.AvgReadRatio, 1e-12)
	assert.InDelta(t, 170.0, a.WALWriteRate, 1e-12)
	assert.InDelta(t, 8.5, a.AvgBacklog[1], 1e-12)
	assert.Equal(t, 0.0, a.AvgBacklog[0])

	// N_L0 over the window is {8, 9}: sample std 1/sqrt(2), mean 8.5
	testutil.AssertFloat64Equal(t, "L0 CV", (1/math.Sqrt2)/8.5, a.L0Stability, 1e-9)

	assert.Equal(t, 2, a.Notices.ByKind[trace.KindClamp])
}

func TestAnalyze_BottleneckOrdering(t *testing.T) {
	a := Analyze(tenRowResults())

	require.Len(t, a.Utilization, 2)
	assert.Equal(t, 1, a.Bottleneck)
	assert.Equal(t, 1, a.Utilization[0].Level)
	assert.True(t, math.IsInf(a.Utilization[0].Utilization, 1))
	assert.Equal(t, 0, a.Utilization[1].Level)
	assert.InDelta(t, 0.5, a.Utilization[1].Utilization, 1e-12)
}

func TestAnalyze_TiesKeepLevelOrder(t *testing.T) {
	r := tenRowResults()
	for i := range r.Rows {
		r.Rows[i].Capacity = []float64{100, 100}
		r.Rows[i].Demand = []float64{50, 50}
	}

	a := Analyze(r)

	assert.Equal(t, 0, a.Bottleneck)
	assert.Equal(t, 0, a.Utilization[0].Level)
}

func TestAnalyze_IdleLevelHasZeroUtilization(t *testing.T) {
	r := tenRowResults()
	for i := range r.Rows {
		r.Rows[i].Demand = []float64{50, 0}
	}

	a := Analyze(r)

	assert.Equal(t, 0, a.Bottleneck)
	assert.Equal(t, 0.0, a.Utilization[1].Utilization)
}

func TestAnalyze_ShortRunUsesOneRow(t *testing.T) {
	r := tenRowResults()
	r.Rows = r.Rows[:3]

	a := Analyze(r)

	assert.Equal(t, 1, a.SteadyRows)
	assert.InDelta(t, 20.0, a.AvgPutRate, 1e-12)
	assert.Equal(t, 0.0, a.L0Stability)
}

func TestAnalyze_Empty(t *testing.T) {
	a := Analyze(&Results{Levels: []int{0}})

	assert.Equal(t, -1, a.Bottleneck)
	assert.Equal(t, 0, a.SteadyRows)
	assert.Empty(t, a.Utilization)

	var buf bytes.Buffer
	a.Print(&buf)
	assert.Contains(t, buf.String(), "=== Steady-State Analysis ===")
	assert.NotContains(t, buf.String(), "Bottleneck")
}

func TestAnalysis_Print(t *testing.T) {
	var buf bytes.Buffer
	Analyze(tenRowResults()).Print(&buf)

	out := buf.String()
	assert.Contains(t, out, "Average put rate      : 85.00 MiB/s")
	assert.Contains(t, out, "Bottleneck            : L1")
	assert.Contains(t, out, "utilization +Inf")
}
