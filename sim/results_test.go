package sim

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoRowResults() *Results {
	return &Results{
		Levels:        []int{0, 2},
		TargetPutRate: 100,
		Rows: []Row{
			{Step: 0, Time: 0, SPut: 99.5, PStall: 0.005, RhoR: 0.25, L0Files: 1.5,
				Backlog: []float64{0, 0.25}, Capacity: []float64{40, 30}, Demand: []float64{99.5, 9.95}},
			{Step: 1, Time: 0.5, SPut: 98, PStall: 0.02, RhoR: 0.3, L0Files: 2,
				Backlog: []float64{0.1, 0.5}, Capacity: []float64{40, 30}, Demand: []float64{98, 9.8}},
		},
	}
}

func TestResults_Columns(t *testing.T) {
	r := twoRowResults()
	assert.Equal(t, []string{
		"step", "time", "S_put", "p_stall", "rho_r", "N_L0",
		"Q_L0", "C_L0", "D_L0", "Q_L2", "C_L2", "D_L2",
	}, r.Columns())
}

func TestResults_WriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, twoRowResults().WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"0", "0", "99.5", "0.005", "0.25", "1.5", "0", "40", "99.5", "0.25", "30", "9.95"}, records[1])
	assert.Equal(t, "0.5", records[2][1])
}

func TestResults_Fingerprint_TracksTable(t *testing.T) {
	a, b := twoRowResults(), twoRowResults()
	b.RunID = "different"

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fa, fb, "run ID is not part of the table")

	b.Rows[1].SPut = 97
	fb, err = b.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fa, fb)
}

func TestResults_Save(t *testing.T) {
	r := twoRowResults()
	var want bytes.Buffer
	require.NoError(t, r.WriteCSV(&want))
	dir := t.TempDir()

	t.Run("plain", func(t *testing.T) {
		path := filepath.Join(dir, "out.csv")
		require.NoError(t, r.Save(path))
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, want.Bytes(), got)
	})

	t.Run("snappy", func(t *testing.T) {
		path := filepath.Join(dir, "out.csv.sz")
		require.NoError(t, r.Save(path))
		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		got, err := io.ReadAll(snappy.NewReader(f))
		require.NoError(t, err)
		assert.Equal(t, want.Bytes(), got)
	})

	t.Run("missing directory", func(t *testing.T) {
		err := r.Save(filepath.Join(dir, "nope", "out.csv"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
