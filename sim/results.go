package sim

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/golang/snappy"
	"github.com/sirupsen/logrus"
	"github.com/spaolacci/murmur3"

	"github.com/putrate-sim/putrate-sim/sim/trace"
)

// Row is one recorded step. Per-level slices are aligned with Results.Levels.
type Row struct {
	Step     int
	Time     float64 // clock at the start of the step, seconds
	SPut     float64 // achieved put rate, MiB/s
	PStall   float64
	RhoR     float64   // estimated read fraction, 0..0.5
	L0Files  float64   // after the step
	Backlog  []float64 // Q, GiB, after the step
	Capacity []float64 // C, MiB/s
	Demand   []float64 // D, MiB/s
}

// Results is the output of one simulation run.
type Results struct {
	RunID               string // unique per run; not part of the table
	Levels              []int
	TargetPutRate       float64
	WALFactor           float64
	EnvelopeFingerprint uint64
	Rows                []Row
	Notices             []trace.Notice
}

// Columns returns the table header.
func (r *Results) Columns() []string {
	cols := []string{"step", "time", "S_put", "p_stall", "rho_r", "N_L0"}
	for _, l := range r.Levels {
		cols = append(cols, fmt.Sprintf("Q_L%d", l), fmt.Sprintf("C_L%d", l), fmt.Sprintf("D_L%d", l))
	}
	return cols
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes one header line and one line per step. Output is a pure
// function of the rows.
func (r *Results) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Columns()); err != nil {
		return err
	}
	rec := make([]string, 0, 6+3*len(r.Levels))
	for _, row := range r.Rows {
		rec = rec[:0]
		rec = append(rec,
			strconv.Itoa(row.Step),
			formatFloat(row.Time),
			formatFloat(row.SPut),
			formatFloat(row.PStall),
			formatFloat(row.RhoR),
			formatFloat(row.L0Files),
		)
		for i := range r.Levels {
			rec = append(rec, formatFloat(row.Backlog[i]), formatFloat(row.Capacity[i]), formatFloat(row.Demand[i]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Fingerprint hashes the CSV table; equal fingerprints mean equal tables.
func (r *Results) Fingerprint() (uint64, error) {
	var buf bytes.Buffer
	if err := r.WriteCSV(&buf); err != nil {
		return 0, err
	}
	return murmur3.Sum64(buf.Bytes()), nil
}

// Save writes the table to path. A .sz suffix selects snappy framing.
func (r *Results) Save(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output %q: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output %q: %w", path, closeErr)
		}
	}()

	var w io.Writer
	var flush func() error
	if strings.HasSuffix(path, ".sz") {
		sw := snappy.NewBufferedWriter(f)
		w, flush = sw, sw.Close
	} else {
		bw := bufio.NewWriter(f)
		w, flush = bw, bw.Flush
	}
	if err := r.WriteCSV(w); err != nil {
		return fmt.Errorf("write output %q: %w", path, err)
	}
	if err := flush(); err != nil {
		return fmt.Errorf("flush output %q: %w", path, err)
	}
	logrus.Debugf("Wrote %d rows to %s", len(r.Rows), path)
	return nil
}
