package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/putrate-sim/putrate-sim/sim/envelope"
)

type envelopeOptions struct {
	path         string
	query        string // "rho,qd,numjobs,bs"
	br, bw       float64
	brSet, bwSet bool // ceilings apply only when given (cmd.Flags().Changed)
	clamp        bool
	validatePath string // held-out measurements CSV
}

var envOpts envelopeOptions

var envelopeCmd = &cobra.Command{
	Use:   "envelope",
	Short: "Inspect, query and validate a device bandwidth envelope",
	Run: func(cmd *cobra.Command, args []string) {
		envOpts.brSet = cmd.Flags().Changed("br")
		envOpts.bwSet = cmd.Flags().Changed("bw")
		if err := runEnvelope(envOpts, os.Stdout); err != nil {
			logrus.Fatalf("Envelope failed: %v", err)
		}
	},
}

// parsePoint reads "rho,qd,numjobs,bs".
func parsePoint(s string) (envelope.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return envelope.Point{}, fmt.Errorf("query %q: want rho,qd,numjobs,bs", s)
	}
	rho, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return envelope.Point{}, fmt.Errorf("query %q: rho: %w", s, err)
	}
	var ints [3]int
	for i, name := range []string{"qd", "numjobs", "bs"} {
		if ints[i], err = strconv.Atoi(strings.TrimSpace(parts[i+1])); err != nil {
			return envelope.Point{}, fmt.Errorf("query %q: %s: %w", s, name, err)
		}
	}
	return envelope.Point{ReadRatio: rho, QueueDepth: ints[0], NumJobs: ints[1], BlockSizeKiB: ints[2]}, nil
}

// readHoldout loads measurements with header rho_r,iodepth,numjobs,bs_k,bandwidth
// (any column order).
func readHoldout(path string) ([]envelope.Point, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open holdout %q: %w", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse holdout %q: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("holdout %q is empty", path)
	}
	var idx [5]int
	for i, name := range []string{"rho_r", "iodepth", "numjobs", "bs_k", "bandwidth"} {
		if idx[i] = slices.Index(records[0], name); idx[i] < 0 {
			return nil, nil, fmt.Errorf("holdout %q: missing column %q", path, name)
		}
	}

	points := make([]envelope.Point, 0, len(records)-1)
	actual := make([]float64, 0, len(records)-1)
	for line, rec := range records[1:] {
		var vals [5]float64
		for i, col := range idx {
			if vals[i], err = strconv.ParseFloat(strings.TrimSpace(rec[col]), 64); err != nil {
				return nil, nil, fmt.Errorf("holdout %q line %d: %w", path, line+2, err)
			}
		}
		var ints [3]int
		for i, name := range []string{"iodepth", "numjobs", "bs_k"} {
			v := vals[i+1]
			if v != math.Trunc(v) || math.IsInf(v, 0) {
				return nil, nil, fmt.Errorf("holdout %q line %d: %s=%v must be an integer", path, line+2, name, v)
			}
			ints[i] = int(v)
		}
		points = append(points, envelope.Point{
			ReadRatio:    vals[0],
			QueueDepth:   ints[0],
			NumJobs:      ints[1],
			BlockSizeKiB: ints[2],
		})
		actual = append(actual, vals[4])
	}
	return points, actual, nil
}

func runEnvelope(opts envelopeOptions, w io.Writer) error {
	m, err := envelope.LoadModel(opts.path)
	if err != nil {
		return err
	}
	shape := m.Grid().Shape()
	st := m.GridStatistics()
	fmt.Fprintf(w, "Grid %dx%dx%dx%d (rho_r x iodepth x numjobs x bs_k), fingerprint %016x\n",
		shape[0], shape[1], shape[2], shape[3], m.Grid().Fingerprint())
	fmt.Fprintf(w, "Samples: %d (%d non-zero), min %.2f, max %.2f, mean %.2f, std %.2f MiB/s\n",
		st.Count, st.ValidCount, st.Min, st.Max, st.Mean, st.Std)

	if opts.query != "" {
		p, err := parsePoint(opts.query)
		if err != nil {
			return err
		}
		qo := envelope.QueryOptions{Clamp: opts.clamp}
		if opts.clamp {
			if !opts.brSet || !opts.bwSet {
				return fmt.Errorf("--clamp needs both --br and --bw")
			}
			qo.Limits = &envelope.Limits{Br: opts.br, Bw: opts.bw}
		}
		res, err := m.Query(p, qo)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Bandwidth at %s: %.2f MiB/s\n", opts.query, res.Bandwidth)
		for _, n := range res.Notices {
			fmt.Fprintf(w, "  notice: %s\n", n)
		}
	}

	if opts.validatePath != "" {
		points, actual, err := readHoldout(opts.validatePath)
		if err != nil {
			return err
		}
		mape, err := m.InterpolationError(points, actual)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Interpolation error over %d holdout points: %.2f%% MAPE\n", len(points), mape)
	}
	return nil
}

func init() {
	envelopeCmd.Flags().StringVar(&envOpts.path, "envelope", "", "Envelope grid file (.json, .yaml, optionally .sz compressed)")
	envelopeCmd.Flags().StringVar(&envOpts.query, "query", "", "Query point as rho,qd,numjobs,bs (rho in percent)")
	envelopeCmd.Flags().Float64Var(&envOpts.br, "br", 0, "Pure-read ceiling Br (MiB/s), used with --clamp")
	envelopeCmd.Flags().Float64Var(&envOpts.bw, "bw", 0, "Pure-write ceiling Bw (MiB/s), used with --clamp")
	envelopeCmd.Flags().BoolVar(&envOpts.clamp, "clamp", false, "Clamp the answer to min(Br, Bw)")
	envelopeCmd.Flags().StringVar(&envOpts.validatePath, "validate", "", "Held-out measurements CSV for interpolation error")
	_ = envelopeCmd.MarkFlagRequired("envelope")
}
