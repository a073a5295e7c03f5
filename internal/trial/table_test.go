package trial

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTSV(t *testing.T) {
	input := "setup_ms\ttime_ms\tn_files\tn_parallel\n" +
		"1.5\t20.25\t100\t4\n" +
		"\n" +
		"2\tnan\t100\t4\r\n"

	tbl, err := ParseTSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"setup_ms", "time_ms", "n_files", "n_parallel"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []float64{1.5, 20.25, 100, 4}, tbl.Rows[0])
	assert.Equal(t, 2.0, tbl.Rows[1][0])
	assert.True(t, math.IsNaN(tbl.Rows[1][1]))
}

func TestParseTSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty input", ""},
		{"only blank lines", "\n\n"},
		{"ragged row", "a\tb\n1\n"},
		{"wide row", "a\tb\n1\t2\t3\n"},
		{"non numeric", "a\tb\n1\tfast\n"},
		{"empty header cell", "a\t\tb\n1\t2\t3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParseTSV_LongLine(t *testing.T) {
	const n = 200000
	header := make([]string, n)
	cells := make([]string, n)
	for i := range header {
		header[i] = "c" + strconv.Itoa(i)
		cells[i] = "1.25"
	}
	input := strings.Join(header, "\t") + "\n" + strings.Join(cells, "\t") + "\n"
	require.Greater(t, len(input), 1<<20)

	tbl, err := ParseTSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Len(t, tbl.Rows[0], n)
	assert.Equal(t, 1.25, tbl.Rows[0][n-1])
}

func TestParseTSV_ErrorNamesLine(t *testing.T) {
	_, err := ParseTSV(strings.NewReader("a\tb\n1\t2\n\n3\tslow\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")
	assert.Contains(t, err.Error(), `column "b"`)
}

func TestParseTSV_HeaderOnly(t *testing.T) {
	tbl, err := ParseTSV(strings.NewReader("setup_ms\ttime_ms\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, []string{"setup_ms", "time_ms"}, tbl.Columns)
}

func TestParseTSV_MissingTokens(t *testing.T) {
	tbl, err := ParseTSV(strings.NewReader("a\tb\tc\td\n\tNaN\tNA\t 3 \n"))
	require.NoError(t, err)
	row := tbl.Rows[0]
	for i := 0; i < 3; i++ {
		assert.True(t, math.IsNaN(row[i]), "cell %d should be missing", i)
	}
	assert.Equal(t, 3.0, row[3])
}

func TestColumnAndDrop(t *testing.T) {
	tbl := &Table{
		Columns: []string{"setup_ms", "time_ms", "n_files"},
		Rows:    [][]float64{{1, 2, 10}, {3, 4, 10}},
	}

	col, ok := tbl.Column("time_ms")
	require.True(t, ok)
	assert.Equal(t, []float64{2, 4}, col)

	_, ok = tbl.Column("missing")
	assert.False(t, ok)

	dropped := tbl.Drop("n_files", "unknown")
	assert.Equal(t, []string{"setup_ms", "time_ms"}, dropped.Columns)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, dropped.Rows)

	// the original is untouched
	assert.Len(t, tbl.Columns, 3)
	assert.Len(t, tbl.Rows[0], 3)
}

func TestMissing(t *testing.T) {
	tbl := Missing([]string{"setup_ms", "time_ms"}, SyntheticRows)
	assert.Equal(t, []string{"setup_ms", "time_ms"}, tbl.Columns)
	require.Equal(t, SyntheticRows, tbl.Len())
	for _, row := range tbl.Rows {
		require.Len(t, row, 2)
		for _, v := range row {
			assert.True(t, math.IsNaN(v))
		}
	}
}
