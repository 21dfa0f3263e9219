package ledger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoCounters is returned when an input holds none of the expected counters.
var ErrNoCounters = errors.New("ledger: no counters found")

var sizeUnits = map[string]float64{
	"B":  1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
	"TB": 1 << 40,
}

// toBytes converts a RocksDB-style size (binary units) to bytes.
func toBytes(value, unit string) (uint64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", value, err)
	}
	mult, ok := sizeUnits[strings.ToUpper(unit)]
	if !ok {
		return 0, fmt.Errorf("unknown size unit %q", unit)
	}
	return uint64(v * mult), nil
}

var (
	reCumulativeWrites = regexp.MustCompile(`Cumulative writes: .*ingest: ([0-9.]+) ([KMGT]?B)`)
	reCumulativeWAL    = regexp.MustCompile(`Cumulative WAL: .*written: ([0-9.]+) ([KMGT]?B)`)
	reFlush            = regexp.MustCompile(`Flush\(GB\): cumulative ([0-9.]+)`)
	reCompaction       = regexp.MustCompile(`Cumulative compaction: ([0-9.]+) GB write, [0-9.]+ MB/s write, ([0-9.]+) GB read`)
)

// ParseRocksDBLog scrapes the periodic "DB Stats" dumps of a RocksDB LOG
// file. The last dump in the file wins since the figures are cumulative.
// Device counters are left zero; see ParseIostat.
func ParseRocksDBLog(path string) (Counters, error) {
	f, err := os.Open(path)
	if err != nil {
		return Counters{}, fmt.Errorf("open RocksDB log %q: %w", path, err)
	}
	defer f.Close()
	c, err := parseRocksDBLog(f)
	if err != nil {
		return Counters{}, fmt.Errorf("parse RocksDB log %q: %w", path, err)
	}
	return c, nil
}

func parseRocksDBLog(r io.Reader) (Counters, error) {
	var c Counters
	found := false
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		var err error
		if m := reCumulativeWrites.FindStringSubmatch(text); m != nil {
			c.UserWriteBytes, err = toBytes(m[1], m[2])
			found = true
		} else if m := reCumulativeWAL.FindStringSubmatch(text); m != nil {
			c.WALBytes, err = toBytes(m[1], m[2])
		} else if m := reFlush.FindStringSubmatch(text); m != nil {
			c.FlushBytes, err = toBytes(m[1], "GB")
		} else if m := reCompaction.FindStringSubmatch(text); m != nil {
			c.CompactionWriteBytes, err = toBytes(m[1], "GB")
			if err == nil {
				c.CompactionReadBytes, err = toBytes(m[2], "GB")
			}
		}
		if err != nil {
			return Counters{}, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return Counters{}, err
	}
	if !found {
		return Counters{}, fmt.Errorf("%w: no \"Cumulative writes\" line", ErrNoCounters)
	}
	return c, nil
}

// statisticsTickers maps RocksDB ticker names to counters, in lookup order.
// Counters renamed across RocksDB releases list the current name first; once
// a counter is filled its later aliases are skipped.
var statisticsTickers = []struct {
	name  string
	field func(*Counters) *uint64
}{
	{"rocksdb.wal.bytes", func(c *Counters) *uint64 { return &c.WALBytes }},
	{"rocksdb.flush.write.bytes", func(c *Counters) *uint64 { return &c.FlushBytes }},
	{"rocksdb.compact.read.bytes", func(c *Counters) *uint64 { return &c.CompactionReadBytes }},
	{"rocksdb.compaction.read.bytes", func(c *Counters) *uint64 { return &c.CompactionReadBytes }},
	{"rocksdb.compact.write.bytes", func(c *Counters) *uint64 { return &c.CompactionWriteBytes }},
	{"rocksdb.compaction.write.bytes", func(c *Counters) *uint64 { return &c.CompactionWriteBytes }},
	{"rocksdb.bytes.written", func(c *Counters) *uint64 { return &c.UserWriteBytes }},
}

// ParseStatisticsJSON reads a flat JSON object of RocksDB ticker values, as
// dumped by a statistics exporter. Unknown tickers are ignored.
func ParseStatisticsJSON(path string) (Counters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Counters{}, fmt.Errorf("read statistics %q: %w", path, err)
	}
	var tickers map[string]json.Number
	if err := json.Unmarshal(data, &tickers); err != nil {
		return Counters{}, fmt.Errorf("parse statistics JSON %q: %w", path, err)
	}
	var c Counters
	found := false
	filled := make(map[*uint64]bool)
	for _, tk := range statisticsTickers {
		v, ok := tickers[tk.name]
		dst := tk.field(&c)
		if !ok || filled[dst] {
			continue
		}
		f, err := v.Float64()
		if err != nil || f < 0 {
			return Counters{}, fmt.Errorf("statistics %q: ticker %s has invalid value %q", path, tk.name, v)
		}
		*dst = uint64(f)
		filled[dst] = true
		found = true
	}
	if !found {
		return Counters{}, fmt.Errorf("statistics %q: %w", path, ErrNoCounters)
	}
	return c, nil
}

// iostatUnits maps cumulative iostat columns to their byte multiplier.
var iostatUnits = map[string]float64{"kB": 1 << 10, "MB": 1 << 20}

// ParseIostat reads `iostat -d -k|-m [interval count]` output and returns the
// device read/write bytes of the measurement window. The first report covers
// the time since boot, so with several reports it is discarded and the rest
// are summed; a single report is used as is. An empty device sums all devices.
func ParseIostat(path, device string) (Counters, error) {
	f, err := os.Open(path)
	if err != nil {
		return Counters{}, fmt.Errorf("open iostat %q: %w", path, err)
	}
	defer f.Close()
	c, err := parseIostat(f, device)
	if err != nil {
		return Counters{}, fmt.Errorf("parse iostat %q: %w", path, err)
	}
	return c, nil
}

type iostatReport struct {
	read, written float64
	matched       bool
}

func parseIostat(r io.Reader, device string) (Counters, error) {
	var reports []iostatReport
	readCol, writeCol := -1, -1
	var readMult, writeMult float64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if strings.TrimSuffix(fields[0], ":") == "Device" {
			readCol, writeCol = -1, -1
			for i, name := range fields {
				for unit, mult := range iostatUnits {
					switch name {
					case unit + "_read":
						readCol, readMult = i, mult
					case unit + "_wrtn":
						writeCol, writeMult = i, mult
					}
				}
			}
			if readCol < 0 || writeCol < 0 {
				return Counters{}, fmt.Errorf("line %d: header lacks cumulative kB/MB read and written columns", line)
			}
			reports = append(reports, iostatReport{})
			continue
		}
		if len(reports) == 0 || len(fields) <= max(readCol, writeCol) {
			continue // preamble or a non-device line
		}
		if device != "" && fields[0] != device {
			continue
		}
		rd, err := strconv.ParseFloat(fields[readCol], 64)
		if err != nil {
			return Counters{}, fmt.Errorf("line %d: invalid read column %q: %w", line, fields[readCol], err)
		}
		wr, err := strconv.ParseFloat(fields[writeCol], 64)
		if err != nil {
			return Counters{}, fmt.Errorf("line %d: invalid written column %q: %w", line, fields[writeCol], err)
		}
		cur := &reports[len(reports)-1]
		cur.read += rd * readMult
		cur.written += wr * writeMult
		cur.matched = true
	}
	if err := sc.Err(); err != nil {
		return Counters{}, err
	}

	window := reports
	if len(reports) > 1 {
		window = reports[1:]
	}
	var c Counters
	matched := false
	for _, rep := range window {
		c.DeviceReadBytes += uint64(rep.read)
		c.DeviceWriteBytes += uint64(rep.written)
		matched = matched || rep.matched
	}
	if !matched {
		if device != "" {
			return Counters{}, fmt.Errorf("%w: device %q not present", ErrNoCounters, device)
		}
		return Counters{}, fmt.Errorf("%w: no device reports", ErrNoCounters)
	}
	return c, nil
}
