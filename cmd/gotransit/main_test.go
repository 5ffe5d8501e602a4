package main

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObservations(t *testing.T) {
	in := `# time flux sigma
-0.05 0.995 0.001

0.00  0.988 0.001
0.05  0.995 0.001
`
	obs, err := parseObservations(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []float64{-0.05, 0, 0.05}, obs.Time)
	assert.Equal(t, []float64{0.995, 0.988, 0.995}, obs.Flux)
	assert.Equal(t, []float64{0.001, 0.001, 0.001}, obs.Sigma)

	obs, err = parseObservations(strings.NewReader("1\n2\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, obs.Time)
	assert.Empty(t, obs.Flux)
}

func TestParseObservationsErrors(t *testing.T) {
	for name, in := range map[string]string{
		"empty":        "# nothing\n",
		"ragged":       "1 2\n3\n",
		"not a number": "1 x\n",
		"too wide":     "1 2 3 4\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseObservations(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}

func TestTimeGrid(t *testing.T) {
	g, err := timeGrid(-1, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{-1, -0.5, 0, 0.5, 1}, g)

	g, err = timeGrid(0.3, 0.9, 7)
	require.NoError(t, err)
	assert.Len(t, g, 7)
	assert.Equal(t, 0.9, g[6])
	assert.InDelta(t, 0.4, g[1], 1e-15)

	g, err = timeGrid(3, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, g)

	_, err = timeGrid(0, 1, 0)
	assert.Error(t, err)
	_, err = timeGrid(1, 0, 3)
	assert.Error(t, err)
}

func TestEvalCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"eval", "-q", "--log-level", "error",
		"--k", "0.1", "--period", "3", "--a", "7", "--ldc", "0.3,0.2",
		"--start", "-0.05", "--end", "0.05", "--n", "3",
		"--table-db", filepath.Join(t.TempDir(), "tables.db"),
	})
	require.NoError(t, rootCmd.Execute())

	rows, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"time", "flux"}, rows[0])
	assert.Equal(t, "0", rows[2][0])

	mid, err := strconv.ParseFloat(rows[2][1], 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.98847, mid, 1e-5)
}
