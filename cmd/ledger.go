package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/putrate-sim/putrate-sim/sim/ledger"
)

type ledgerOptions struct {
	logPath     string   // RocksDB LOG with a stats dump
	statsPath   string   // statistics ticker JSON
	iostatPaths []string // captures of consecutive windows, summed
	device      string   // empty sums every device in the capture
	outputPath  string   // summary CSV
	tolerance   float64
}

var ledgerOpts ledgerOptions

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Compute WA/RA from RocksDB and device counters and check that the ledger closes",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runLedger(ledgerOpts, os.Stdout); err != nil {
			logrus.Fatalf("Ledger failed: %v", err)
		}
	},
}

// collectCounters merges the sources in order LOG, statistics, iostat. Later
// sources overwrite the counters they report. Several iostat captures are
// summed into one window.
func collectCounters(opts ledgerOptions) (ledger.Counters, error) {
	var c ledger.Counters
	if opts.logPath == "" && opts.statsPath == "" {
		return c, fmt.Errorf("at least one of --rocksdb-log or --stats is required")
	}
	if opts.logPath != "" {
		fromLog, err := ledger.ParseRocksDBLog(opts.logPath)
		if err != nil {
			return c, err
		}
		c.Merge(fromLog)
	}
	if opts.statsPath != "" {
		fromStats, err := ledger.ParseStatisticsJSON(opts.statsPath)
		if err != nil {
			return c, err
		}
		c.Merge(fromStats)
	}
	if len(opts.iostatPaths) > 0 {
		var device ledger.Counters
		for _, path := range opts.iostatPaths {
			capture, err := ledger.ParseIostat(path, opts.device)
			if err != nil {
				return c, err
			}
			device.Add(capture)
		}
		c.Merge(device)
	}
	logrus.Debugf("Ledger counters: %s", c)
	return c, nil
}

func runLedger(opts ledgerOptions, w io.Writer) error {
	c, err := collectCounters(opts)
	if err != nil {
		return err
	}
	amp := ledger.CalculateWARA(c)
	closure := ledger.VerifyClosure(amp, opts.tolerance)
	summary := ledger.CreateSummary(c, amp, closure)
	summary.Print(w)

	if opts.outputPath == "" {
		return nil
	}
	f, err := os.Create(opts.outputPath)
	if err != nil {
		return fmt.Errorf("create summary %q: %w", opts.outputPath, err)
	}
	if err := summary.WriteCSV(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write summary %q: %w", opts.outputPath, err)
	}
	return f.Close()
}

func init() {
	ledgerCmd.Flags().StringVar(&ledgerOpts.logPath, "rocksdb-log", "", "RocksDB LOG file containing a stats dump")
	ledgerCmd.Flags().StringVar(&ledgerOpts.statsPath, "stats", "", "RocksDB statistics JSON (ticker name -> value)")
	ledgerCmd.Flags().StringArrayVar(&ledgerOpts.iostatPaths, "iostat", nil, "iostat -d capture for device-level counters (repeat to sum consecutive captures)")
	ledgerCmd.Flags().StringVar(&ledgerOpts.device, "device", "", "Device to read from the iostat capture (default: all)")
	ledgerCmd.Flags().StringVar(&ledgerOpts.outputPath, "output", "", "Write the summary as CSV")
	ledgerCmd.Flags().Float64Var(&ledgerOpts.tolerance, "tolerance", ledger.DefaultTolerance, "Closure tolerance: max |WA_stat - WA_device| as a fraction of the larger of the two")
}
