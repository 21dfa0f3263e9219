package sim

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/putrate-sim/putrate-sim/sim/trace"
)

// SteadyStateFraction is the trailing share of rows summarised as steady state.
const SteadyStateFraction = 0.2

// LevelUtilization is demand over capacity averaged across the steady window.
type LevelUtilization struct {
	Level       int
	Demand      float64 // mean D, MiB/s
	Capacity    float64 // mean C, MiB/s
	Utilization float64 // +Inf when capacity is zero and demand positive
}

// Analysis summarises the steady-state window of a run.
type Analysis struct {
	SteadyStart int // first row index of the window
	SteadyRows  int

	AvgPutRate          float64
	AvgStallProbability float64
	AvgReadRatio        float64
	AvgBacklog          map[int]float64 // level -> GiB

	ThroughputEfficiency float64 // AvgPutRate / target
	StallPercentage      float64
	L0Stability          float64 // coefficient of variation of N_L0
	WALWriteRate         float64 // AvgPutRate x wal_factor, MiB/s

	// Utilization is sorted by descending utilization; ties keep level order.
	Utilization []LevelUtilization
	Bottleneck  int // level with the highest utilization, -1 without rows

	Notices *trace.Summary
}

// Analyze post-processes a time series. Safe for empty results.
func Analyze(r *Results) *Analysis {
	a := &Analysis{
		AvgBacklog: make(map[int]float64),
		Bottleneck: -1,
		Notices:    trace.Summarize(r.Notices),
	}
	n := len(r.Rows)
	if n == 0 {
		return a
	}
	window := max(int(float64(n)*SteadyStateFraction), 1)
	rows := r.Rows[n-window:]
	a.SteadyStart = n - window
	a.SteadyRows = window

	column := func(get func(Row) float64) []float64 {
		out := make([]float64, len(rows))
		for i, row := range rows {
			out[i] = get(row)
		}
		return out
	}

	a.AvgPutRate = stat.Mean(column(func(row Row) float64 { return row.SPut }), nil)
	a.AvgStallProbability = stat.Mean(column(func(row Row) float64 { return row.PStall }), nil)
	a.AvgReadRatio = stat.Mean(column(func(row Row) float64 { return row.RhoR }), nil)

	if r.TargetPutRate > 0 {
		a.ThroughputEfficiency = a.AvgPutRate / r.TargetPutRate
	}
	a.StallPercentage = a.AvgStallProbability * 100
	a.WALWriteRate = a.AvgPutRate * r.WALFactor

	l0 := column(func(row Row) float64 { return row.L0Files })
	if len(l0) > 1 {
		mean, std := stat.MeanStdDev(l0, nil)
		if mean > 0 {
			a.L0Stability = std / mean
		}
	}

	for i, level := range r.Levels {
		a.AvgBacklog[level] = stat.Mean(column(func(row Row) float64 { return row.Backlog[i] }), nil)
		u := LevelUtilization{
			Level:    level,
			Demand:   stat.Mean(column(func(row Row) float64 { return row.Demand[i] }), nil),
			Capacity: stat.Mean(column(func(row Row) float64 { return row.Capacity[i] }), nil),
		}
		switch {
		case u.Capacity > 0:
			u.Utilization = u.Demand / u.Capacity
		case u.Demand > 0:
			u.Utilization = math.Inf(1)
		}
		a.Utilization = append(a.Utilization, u)
	}
	sort.SliceStable(a.Utilization, func(i, j int) bool {
		return a.Utilization[i].Utilization > a.Utilization[j].Utilization
	})
	a.Bottleneck = a.Utilization[0].Level
	return a
}

// Print displays the steady-state summary.
func (a *Analysis) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Steady-State Analysis ===")
	fmt.Fprintf(w, "Window                : rows %d.. (%d rows)\n", a.SteadyStart, a.SteadyRows)
	fmt.Fprintf(w, "Average put rate      : %.2f MiB/s\n", a.AvgPutRate)
	fmt.Fprintf(w, "Throughput efficiency : %.1f%%\n", a.ThroughputEfficiency*100)
	fmt.Fprintf(w, "Stall percentage      : %.2f%%\n", a.StallPercentage)
	fmt.Fprintf(w, "Average read ratio    : %.3f\n", a.AvgReadRatio)
	fmt.Fprintf(w, "L0 stability (CV)     : %.4f\n", a.L0Stability)
	fmt.Fprintf(w, "WAL write rate        : %.2f MiB/s\n", a.WALWriteRate)
	for _, u := range a.Utilization {
		fmt.Fprintf(w, "L%-2d backlog %10.3f GiB  demand %9.2f  capacity %9.2f  utilization %.3f\n",
			u.Level, a.AvgBacklog[u.Level], u.Demand, u.Capacity, u.Utilization)
	}
	if a.Bottleneck >= 0 {
		fmt.Fprintf(w, "Bottleneck            : L%d\n", a.Bottleneck)
	}
	if a.Notices != nil && a.Notices.Total > 0 {
		for _, k := range a.Notices.Kinds() {
			fmt.Fprintf(w, "Notices %-14s: %d\n", "("+string(k)+")", a.Notices.ByKind[k])
		}
	}
}
