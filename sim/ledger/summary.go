package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// SummaryRow is one reported metric.
type SummaryRow struct {
	Category string // "raw", "derived", "verification"
	Metric   string
	Value    float64
	Unit     string
}

// Summary is the tabular report of one ledger analysis.
type Summary struct {
	Rows     []SummaryRow
	Closure  Closure
	Counters Counters
}

// CreateSummary assembles raw counters, derived ratios and the closure
// verdict into one ordered table.
func CreateSummary(c Counters, a Amplification, cl Closure) *Summary {
	raw := func(metric string, v uint64) SummaryRow {
		return SummaryRow{Category: "raw", Metric: metric, Value: float64(v), Unit: "bytes"}
	}
	derived := func(metric string, v float64) SummaryRow {
		return SummaryRow{Category: "derived", Metric: metric, Value: v, Unit: "ratio"}
	}
	closed := 0.0
	if cl.IsClosed {
		closed = 1
	}
	return &Summary{
		Counters: c,
		Closure:  cl,
		Rows: []SummaryRow{
			raw("wal_bytes", c.WALBytes),
			raw("flush_bytes", c.FlushBytes),
			raw("compaction_read_bytes", c.CompactionReadBytes),
			raw("compaction_write_bytes", c.CompactionWriteBytes),
			raw("user_write_bytes", c.UserWriteBytes),
			raw("device_read_bytes", c.DeviceReadBytes),
			raw("device_write_bytes", c.DeviceWriteBytes),
			derived("wa_stat", a.WAStat),
			derived("wa_device", a.WADevice),
			derived("ra_comp", a.RAComp),
			derived("ra_runtime", a.RARuntime),
			derived("wal_factor", a.WALFactor),
			derived("flush_factor", a.FlushFactor),
			derived("compaction_factor", a.CompactionFactor),
			{Category: "verification", Metric: "difference", Value: cl.Difference, Unit: "ratio"},
			{Category: "verification", Metric: "relative_difference", Value: cl.RelativeDifference, Unit: "ratio"},
			{Category: "verification", Metric: "closure_error", Value: cl.ClosureError, Unit: "ratio"},
			{Category: "verification", Metric: "tolerance", Value: cl.Tolerance, Unit: "ratio"},
			{Category: "verification", Metric: "is_closed", Value: closed, Unit: "bool"},
		},
	}
}

// Lookup returns the value of a metric row.
func (s *Summary) Lookup(metric string) (float64, bool) {
	for _, r := range s.Rows {
		if r.Metric == metric {
			return r.Value, true
		}
	}
	return 0, false
}

// WriteCSV writes the table with a category,metric,value,unit header.
func (s *Summary) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"category", "metric", "value", "unit"}); err != nil {
		return err
	}
	for _, r := range s.Rows {
		rec := []string{r.Category, r.Metric, strconv.FormatFloat(r.Value, 'g', -1, 64), r.Unit}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Print displays the summary and verdict.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Ledger Summary ===")
	for _, r := range s.Rows {
		switch r.Unit {
		case "bytes":
			fmt.Fprintf(w, "%-24s: %.0f bytes (%.2f GiB)\n", r.Metric, r.Value, r.Value/(1<<30))
		case "bool":
			// verdict printed below
		default:
			fmt.Fprintf(w, "%-24s: %.4f\n", r.Metric, r.Value)
		}
	}
	verdict := "CLOSED"
	if !s.Closure.IsClosed {
		verdict = "OPEN"
	}
	fmt.Fprintf(w, "Ledger verdict          : %s (error %.2f%%, tolerance %.2f%%)\n",
		verdict, s.Closure.ClosureError*100, s.Closure.Tolerance*100)
}
