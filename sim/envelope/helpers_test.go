package envelope

import "testing"

var (
	testRho     = []float64{0, 25, 50, 75, 100}
	testQD      = []float64{1, 4, 16, 32, 64}
	testNumJobs = []float64{1, 2, 4}
	testBS      = []float64{4, 64, 128}
)

// fillGrid builds a 5x5x3x3 grid whose samples are f evaluated at the axis values.
func fillGrid(t *testing.T, f func(rho, qd, nj, bs float64) float64) *Grid {
	t.Helper()
	bw := make([][][][]float64, len(testRho))
	for i, r := range testRho {
		bw[i] = make([][][]float64, len(testQD))
		for j, q := range testQD {
			bw[i][j] = make([][]float64, len(testNumJobs))
			for k, n := range testNumJobs {
				bw[i][j][k] = make([]float64, len(testBS))
				for l, b := range testBS {
					bw[i][j][k][l] = f(r, q, n, b)
				}
			}
		}
	}
	g, err := NewGrid(testRho, testQD, testNumJobs, testBS, bw)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func uniformModel(t *testing.T, v float64) *Model {
	t.Helper()
	return NewModel(fillGrid(t, func(_, _, _, _ float64) float64 { return v }))
}

// linearBW is affine in every axis, so quadrilinear interpolation reproduces
// it inside the grid and linear extrapolation reproduces it outside.
func linearBW(rho, qd, nj, bs float64) float64 {
	return 1000 - 4*rho + 2*qd + 50*nj + 3*bs
}
