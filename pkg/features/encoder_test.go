package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylens/aqcast/pkg/types"
)

// identityScaler passes the matrix through and records what it saw.
type identityScaler struct {
	seen [][]float64
}

func (s *identityScaler) Transform(matrix [][]float64) ([][]float64, error) {
	s.seen = matrix
	return matrix, nil
}

func windowRows(n int) []types.FeatureRow {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := make([]types.FeatureRow, n)
	for i := range rows {
		rows[i] = types.FeatureRow{
			Time: start.Add(time.Duration(i) * time.Hour),
			PM25: float64(i),
			AQI:  float64(100 + i),
		}
	}
	return rows
}

func TestEncodeRejectsShortWindow(t *testing.T) {
	for _, n := range []int{0, 1, types.WindowLength - 1} {
		_, err := Encode(windowRows(n), &identityScaler{})
		var short *InsufficientWindowError
		require.ErrorAs(t, err, &short, "rows %d", n)
		assert.Equal(t, n, short.Rows)
	}
}

func TestEncodeShapeAndColumnOrder(t *testing.T) {
	scaler := &identityScaler{}
	tensor, err := Encode(windowRows(types.WindowLength), scaler)
	require.NoError(t, err)

	require.Len(t, tensor, 1)
	require.Len(t, tensor[0], types.WindowLength)
	for _, row := range tensor[0] {
		require.Len(t, row, types.NumFeatures)
	}

	// PM2.5 is column 0 in the fitted order.
	assert.Equal(t, "pm2_5", types.FeatureColumns[0])
	assert.Equal(t, 0.0, tensor[0][0][0])
	assert.Equal(t, float64(types.WindowLength-1), tensor[0][types.WindowLength-1][0])
	assert.Len(t, scaler.seen, types.WindowLength)
}

func TestEncodeKeepsMostRecentRows(t *testing.T) {
	rows := windowRows(types.WindowLength + 10)
	tensor, err := Encode(rows, &identityScaler{})
	require.NoError(t, err)

	// The oldest 10 rows are dropped; the window starts at PM25=10.
	assert.Equal(t, 10.0, tensor[0][0][0])
}

func TestEncodeExactWindowSucceeds(t *testing.T) {
	_, err := Encode(windowRows(types.WindowLength), &identityScaler{})
	assert.NoError(t, err)
}
