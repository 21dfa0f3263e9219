// Package envelope models the measured mixed-I/O bandwidth surface of a
// storage device and answers point queries over it.
//
// A Grid holds bandwidth samples (MiB/s) over four axes: read ratio (percent),
// queue depth, parallelism (numjobs) and block size (KiB). A Model wraps an
// immutable Grid and is safe for concurrent readers.
package envelope

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/spaolacci/murmur3"
	"gopkg.in/yaml.v3"
)

// Axis indices into Grid.Axes.
const (
	AxisReadRatio = iota
	AxisIODepth
	AxisNumJobs
	AxisBlockSize
	numAxes
)

var axisNames = [numAxes]string{"rho_r", "iodepth", "numjobs", "bs_k"}

// Grid is the measured bandwidth envelope. Construct with NewGrid or LoadGrid;
// do not mutate afterwards.
type Grid struct {
	Axes      [numAxes][]float64
	Bandwidth [][][][]float64 // [rho][qd][numjobs][bs], MiB/s
	Metadata  map[string]any
}

// gridFile is the on-disk record. JSON and YAML share field names.
type gridFile struct {
	ReadRatioAxis []float64       `json:"rho_r_axis" yaml:"rho_r_axis"`
	IODepthAxis   []float64       `json:"iodepth_axis" yaml:"iodepth_axis"`
	NumJobsAxis   []float64       `json:"numjobs_axis" yaml:"numjobs_axis"`
	BlockSizeAxis []float64       `json:"bs_axis" yaml:"bs_axis"`
	Bandwidth     [][][][]float64 `json:"bandwidth_grid" yaml:"bandwidth_grid"`
	Metadata      map[string]any  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewGrid validates axes and values and returns an immutable Grid.
// Axes must be non-empty and strictly increasing; the bandwidth array must
// match the axis lengths and hold finite non-negative values.
func NewGrid(rho, qd, numjobs, bs []float64, bandwidth [][][][]float64) (*Grid, error) {
	g := &Grid{
		Axes:      [numAxes][]float64{rho, qd, numjobs, bs},
		Bandwidth: bandwidth,
	}
	for d, axis := range g.Axes {
		if len(axis) == 0 {
			return nil, fmt.Errorf("axis %s is empty", axisNames[d])
		}
		for i, v := range axis {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("axis %s[%d] is not finite", axisNames[d], i)
			}
			if i > 0 && v <= axis[i-1] {
				return nil, fmt.Errorf("axis %s is not strictly increasing at index %d (%v <= %v)", axisNames[d], i, v, axis[i-1])
			}
		}
	}
	if err := g.checkShape(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Grid) checkShape() error {
	if len(g.Bandwidth) != len(g.Axes[AxisReadRatio]) {
		return fmt.Errorf("bandwidth_grid has %d rho_r entries, axis has %d", len(g.Bandwidth), len(g.Axes[AxisReadRatio]))
	}
	for i, byQD := range g.Bandwidth {
		if len(byQD) != len(g.Axes[AxisIODepth]) {
			return fmt.Errorf("bandwidth_grid[%d] has %d iodepth entries, axis has %d", i, len(byQD), len(g.Axes[AxisIODepth]))
		}
		for j, byJobs := range byQD {
			if len(byJobs) != len(g.Axes[AxisNumJobs]) {
				return fmt.Errorf("bandwidth_grid[%d][%d] has %d numjobs entries, axis has %d", i, j, len(byJobs), len(g.Axes[AxisNumJobs]))
			}
			for k, byBS := range byJobs {
				if len(byBS) != len(g.Axes[AxisBlockSize]) {
					return fmt.Errorf("bandwidth_grid[%d][%d][%d] has %d bs entries, axis has %d", i, j, k, len(byBS), len(g.Axes[AxisBlockSize]))
				}
				for l, v := range byBS {
					if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
						return fmt.Errorf("bandwidth_grid[%d][%d][%d][%d] = %v: values must be finite and >= 0", i, j, k, l, v)
					}
				}
			}
		}
	}
	return nil
}

// Shape returns the axis lengths.
func (g *Grid) Shape() [numAxes]int {
	var s [numAxes]int
	for d, axis := range g.Axes {
		s[d] = len(axis)
	}
	return s
}

// Values returns every bandwidth sample in row-major order.
func (g *Grid) Values() []float64 {
	s := g.Shape()
	out := make([]float64, 0, s[0]*s[1]*s[2]*s[3])
	for _, byQD := range g.Bandwidth {
		for _, byJobs := range byQD {
			for _, byBS := range byJobs {
				out = append(out, byBS...)
			}
		}
	}
	return out
}

// Fingerprint hashes axes and samples so reports can identify the envelope
// a prediction was made with.
func (g *Grid) Fingerprint() uint64 {
	h := murmur3.New64()
	var buf [8]byte
	put := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = h.Write(buf[:])
	}
	for _, axis := range g.Axes {
		put(float64(len(axis)))
		for _, v := range axis {
			put(v)
		}
	}
	for _, v := range g.Values() {
		put(v)
	}
	return h.Sum64()
}

// LoadGrid reads an envelope file. The format follows the extension:
// .json, .yaml/.yml; a trailing .sz means snappy-framed content
// (e.g. envelope.json.sz).
func LoadGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open envelope %q: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	name := path
	if strings.HasSuffix(name, ".sz") {
		r = snappy.NewReader(f)
		name = strings.TrimSuffix(name, ".sz")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read envelope %q: %w", path, err)
	}

	var gf gridFile
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&gf); err != nil {
			return nil, fmt.Errorf("parse envelope YAML %q: %w", path, err)
		}
	default:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&gf); err != nil {
			return nil, fmt.Errorf("parse envelope JSON %q: %w", path, err)
		}
	}

	g, err := NewGrid(gf.ReadRatioAxis, gf.IODepthAxis, gf.NumJobsAxis, gf.BlockSizeAxis, gf.Bandwidth)
	if err != nil {
		return nil, fmt.Errorf("envelope %q: %w", path, err)
	}
	g.Metadata = gf.Metadata
	return g, nil
}

// WriteJSON serialises the grid in the envelope file format.
func (g *Grid) WriteJSON(w io.Writer) error {
	gf := gridFile{
		ReadRatioAxis: g.Axes[AxisReadRatio],
		IODepthAxis:   g.Axes[AxisIODepth],
		NumJobsAxis:   g.Axes[AxisNumJobs],
		BlockSizeAxis: g.Axes[AxisBlockSize],
		Bandwidth:     g.Bandwidth,
		Metadata:      g.Metadata,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(gf)
}
