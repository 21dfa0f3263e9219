package envelope

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/putrate-sim/putrate-sim/sim/trace"
)

// ErrInvalidArgument is returned by Query for out-of-domain coordinates.
var ErrInvalidArgument = errors.New("envelope: invalid argument")

const noticeSource = "envelope"

// Point is a mixed-I/O shape.
type Point struct {
	ReadRatio    float64 // percent of reads, 0..100
	QueueDepth   int
	NumJobs      int
	BlockSizeKiB int
}

func (p Point) coords() [numAxes]float64 {
	return [numAxes]float64{p.ReadRatio, float64(p.QueueDepth), float64(p.NumJobs), float64(p.BlockSizeKiB)}
}

func (p Point) validate() error {
	if math.IsNaN(p.ReadRatio) || p.ReadRatio < 0 || p.ReadRatio > 100 {
		return fmt.Errorf("%w: rho_r=%v must be within [0, 100]", ErrInvalidArgument, p.ReadRatio)
	}
	if p.QueueDepth <= 0 {
		return fmt.Errorf("%w: iodepth=%d must be > 0", ErrInvalidArgument, p.QueueDepth)
	}
	if p.NumJobs <= 0 {
		return fmt.Errorf("%w: numjobs=%d must be > 0", ErrInvalidArgument, p.NumJobs)
	}
	if p.BlockSizeKiB <= 0 {
		return fmt.Errorf("%w: bs_k=%d must be > 0", ErrInvalidArgument, p.BlockSizeKiB)
	}
	return nil
}

// Limits are the single-mode physical ceilings of the device (MiB/s).
type Limits struct {
	Br float64 // pure-read bandwidth
	Bw float64 // pure-write bandwidth
}

// QueryOptions controls physical-limit clamping. Clamping applies only when
// Clamp is set and Limits is non-nil.
type QueryOptions struct {
	Limits *Limits
	Clamp  bool
}

// Result is a query answer with the notices raised while computing it.
type Result struct {
	Bandwidth    float64 // MiB/s
	Extrapolated bool
	Clamped      bool
	Notices      []trace.Notice
}

// Model answers bandwidth queries against a Grid.
type Model struct {
	grid *Grid
}

// NewModel wraps a validated grid.
func NewModel(g *Grid) *Model {
	return &Model{grid: g}
}

// LoadModel loads a grid file and wraps it.
func LoadModel(path string) (*Model, error) {
	g, err := LoadGrid(path)
	if err != nil {
		return nil, err
	}
	s := g.Shape()
	logrus.Infof("Loaded envelope %s: %dx%dx%dx%d grid", path, s[0], s[1], s[2], s[3])
	return NewModel(g), nil
}

// Grid returns the underlying grid. Callers must not mutate it.
func (m *Model) Grid() *Grid { return m.grid }

// bracket is the interpolation cell along one axis.
type bracket struct {
	lo, hi int
	t      float64 // weight of hi; outside [0,1] when extrapolating
}

// locate finds the cell containing x by binary search. Values past either end
// use the edge cell, which extrapolates linearly.
func locate(axis []float64, x float64) (bracket, bool) {
	n := len(axis)
	outside := x < axis[0] || x > axis[n-1]
	if n == 1 {
		return bracket{}, outside
	}
	i := sort.SearchFloat64s(axis, x)
	lo := i - 1
	switch {
	case i == 0:
		lo = 0
	case i >= n:
		lo = n - 2
	}
	hi := lo + 1
	return bracket{lo: lo, hi: hi, t: (x - axis[lo]) / (axis[hi] - axis[lo])}, outside
}

// Query predicts the bandwidth achievable at p by quadrilinear interpolation.
// Coordinates beyond the measured range extrapolate and raise a notice per
// axis. With clamping enabled the result never exceeds min(Br, Bw).
func (m *Model) Query(p Point, opts QueryOptions) (Result, error) {
	if err := p.validate(); err != nil {
		return Result{}, err
	}
	var res Result
	coords := p.coords()
	var cells [numAxes]bracket
	for d := 0; d < numAxes; d++ {
		axis := m.grid.Axes[d]
		b, outside := locate(axis, coords[d])
		cells[d] = b
		if outside {
			res.Extrapolated = true
			n := trace.NewNotice(noticeSource, trace.KindExtrapolation,
				"%s=%v outside measured range [%v, %v]", axisNames[d], coords[d], axis[0], axis[len(axis)-1])
			logrus.Debug(n.String())
			res.Notices = append(res.Notices, n)
		}
	}

	bw := m.blend(cells)

	if bw < 0 {
		n := trace.NewNotice(noticeSource, trace.KindNegativeFloor,
			"extrapolated bandwidth %.3f MiB/s floored at 0", bw)
		logrus.Debug(n.String())
		res.Notices = append(res.Notices, n)
		bw = 0
	}

	if opts.Clamp && opts.Limits != nil {
		// A mixed workload cannot beat the lesser single-mode ceiling.
		ceiling := math.Min(opts.Limits.Br, opts.Limits.Bw)
		if bw > ceiling {
			n := trace.NewNotice(noticeSource, trace.KindClamp,
				"bandwidth %.3f MiB/s clamped to min(Br=%v, Bw=%v)=%v", bw, opts.Limits.Br, opts.Limits.Bw, ceiling)
			logrus.Debug(n.String())
			res.Notices = append(res.Notices, n)
			res.Clamped = true
			bw = ceiling
		}
	}

	res.Bandwidth = bw
	return res, nil
}

// blend sums the 16 cell corners weighted by their distance products.
// Zero-weight corners are skipped so exact grid hits return the stored value.
func (m *Model) blend(cells [numAxes]bracket) float64 {
	var sum float64
	for mask := 0; mask < 1<<numAxes; mask++ {
		w := 1.0
		var idx [numAxes]int
		for d := 0; d < numAxes; d++ {
			if mask&(1<<d) != 0 {
				idx[d] = cells[d].hi
				w *= cells[d].t
			} else {
				idx[d] = cells[d].lo
				w *= 1 - cells[d].t
			}
		}
		if w == 0 {
			continue
		}
		sum += w * m.grid.Bandwidth[idx[0]][idx[1]][idx[2]][idx[3]]
	}
	return sum
}
