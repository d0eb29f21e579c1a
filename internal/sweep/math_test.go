package sweep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVFloat64s(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  []float64
		expectErr bool
	}{
		{"empty", "", nil, false},
		{"single", "0.5", []float64{0.5}, false},
		{"multiple", "0.5,1,1.5", []float64{0.5, 1, 1.5}, false},
		{"spaces", " 0.5 , 1.0 ", []float64{0.5, 1.0}, false},
		{"trailing_comma", "0.5,", []float64{0.5}, false},
		{"invalid", "0.5,abc", nil, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCSVFloat64s(tc.input)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestParseCSVInts(t *testing.T) {
	got, err := ParseCSVInts("1, 3,5")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, got)

	got, err = ParseCSVInts("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseCSVInts("1,2.5")
	assert.Error(t, err)
}

func TestMeanStddev(t *testing.T) {
	m, s := MeanStddev(nil)
	assert.Equal(t, 0.0, m)
	assert.Equal(t, 0.0, s)

	m, s = MeanStddev([]float64{7})
	assert.Equal(t, 7.0, m)
	assert.Equal(t, 0.0, s)

	m, s = MeanStddev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, m, 1e-12)
	// Sample standard deviation: sqrt(32/7).
	assert.InDelta(t, math.Sqrt(32.0/7.0), s, 1e-12)
}
