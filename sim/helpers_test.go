package sim

import (
	"testing"

	"github.com/putrate-sim/putrate-sim/sim/envelope"
)

// uniformEnvelope returns a 5x5x3x3 model with every sample equal to v.
func uniformEnvelope(t *testing.T, v float64) *envelope.Model {
	t.Helper()
	rho := []float64{0, 25, 50, 75, 100}
	qd := []float64{1, 4, 16, 32, 64}
	nj := []float64{1, 2, 4}
	bs := []float64{4, 64, 128}
	bw := make([][][][]float64, len(rho))
	for i := range rho {
		bw[i] = make([][][]float64, len(qd))
		for j := range qd {
			bw[i][j] = make([][]float64, len(nj))
			for k := range nj {
				bw[i][j][k] = make([]float64, len(bs))
				for l := range bs {
					bw[i][j][k][l] = v
				}
			}
		}
	}
	g, err := envelope.NewGrid(rho, qd, nj, bs, bw)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return envelope.NewModel(g)
}

func float64Ptr(v float64) *float64 { return &v }

// scenarioConfig is the reference configuration: 200 MiB/s offered, stall
// threshold 8, Br=1500, Bw=2000, 500 one-second steps.
func scenarioConfig() Config {
	cfg := DefaultConfig()
	cfg.TargetPutRate = 200
	cfg.StallThreshold = 8
	cfg.Device.Br = 1500
	cfg.Device.Bw = 2000
	cfg.MaxSteps = 500
	cfg.Dt = 1.0
	return cfg
}
