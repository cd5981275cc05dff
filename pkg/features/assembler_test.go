package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylens/aqcast/pkg/types"
)

func fptr(v float64) *float64 { return &v }

func validSample(ts time.Time, aqi float64) types.RawSample {
	return types.RawSample{
		Timestamp: ts.Format(types.TimeLayout),
		Components: types.Components{
			PM25: fptr(10), PM10: fptr(18), CO: fptr(300), NH3: fptr(2), O3: fptr(40), NO2: fptr(15),
		},
		Meteo: types.Meteo{
			Temp: fptr(25), RHum: fptr(65), LogPrcp: fptr(0), WdirSin: fptr(0), WdirCos: fptr(1), Wspd: fptr(2),
		},
		AQI:      fptr(aqi),
		Location: types.Location{Lat: -6.2, Lon: 106.8, Name: "s1"},
	}
}

func hourlySeries(start time.Time, n int) []types.RawSample {
	series := make([]types.RawSample, 0, n)
	for i := 0; i < n; i++ {
		series = append(series, validSample(start.Add(time.Duration(i)*time.Hour), float64(50+i)))
	}
	return series
}

func TestAssembleDropsLagWarmupRows(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	for _, n := range []int{0, 3, 5, 6, 20, 77} {
		rows := Assemble(hourlySeries(start, n))
		want := n - types.LagDepth
		if want < 0 {
			want = 0
		}
		assert.Len(t, rows, want, "series length %d", n)
	}
}

func TestAssembleCyclicalEncodings(t *testing.T) {
	// Monday 2025-03-10, 18:00. Day-of-week counts from Monday=0.
	ts := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	series := hourlySeries(ts.Add(-5*time.Hour), 6)

	rows := Assemble(series)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.InDelta(t, math.Sin(2*math.Pi*18/24), row.HourSin, 1e-12)
	assert.InDelta(t, math.Cos(2*math.Pi*18/24), row.HourCos, 1e-12)
	assert.InDelta(t, 0, row.DowSin, 1e-12)
	assert.InDelta(t, 1, row.DowCos, 1e-12)
}

func TestAssembleDayOfWeekCountsFromMonday(t *testing.T) {
	// One emitted row per weekday, Monday 2025-03-10 through Sunday.
	for day := 0; day < 7; day++ {
		ts := time.Date(2025, 3, 10+day, 12, 0, 0, 0, time.UTC)
		rows := Assemble(hourlySeries(ts.Add(-5*time.Hour), 6))
		require.Len(t, rows, 1)

		want := float64(day)
		assert.InDelta(t, math.Sin(2*math.Pi*want/7), rows[0].DowSin, 1e-12, "day %d", day)
		assert.InDelta(t, math.Cos(2*math.Pi*want/7), rows[0].DowCos, 1e-12, "day %d", day)
	}
}

func TestAssembleLagsArePositional(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	series := hourlySeries(start, 8) // AQI 50..57

	rows := Assemble(series)
	require.Len(t, rows, 3)

	// First emitted row is the sixth sample (AQI 55); its lags walk back
	// through positions, newest predecessor first.
	assert.Equal(t, 55.0, rows[0].AQI)
	assert.Equal(t, 54.0, rows[0].AQILag1)
	assert.Equal(t, 53.0, rows[0].AQILag2)
	assert.Equal(t, 52.0, rows[0].AQILag3)
	assert.Equal(t, 51.0, rows[0].AQILag4)
	assert.Equal(t, 50.0, rows[0].AQILag5)
}

func TestAssembleLagsShiftAcrossGaps(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	series := hourlySeries(start, 4) // AQI 50..53

	// A gap of several hours; lags still come from positions, not wall
	// clock.
	series = append(series, validSample(start.Add(10*time.Hour), 60))
	series = append(series, validSample(start.Add(11*time.Hour), 61))

	rows := Assemble(series)
	require.Len(t, rows, 1)
	assert.Equal(t, 61.0, rows[0].AQI)
	assert.Equal(t, 60.0, rows[0].AQILag1)
	assert.Equal(t, 53.0, rows[0].AQILag2)
	assert.Equal(t, 50.0, rows[0].AQILag5)
}

func TestAssembleDropsSamplesWithMissingFields(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	series := hourlySeries(start, 7)

	// Break one mid-series sample; it must be excluded before lag
	// computation, leaving 6 valid rows and one output row.
	series[3].Meteo.Temp = nil

	rows := Assemble(series)
	require.Len(t, rows, 1)
	assert.Equal(t, 56.0, rows[0].AQI)
	// The broken sample (AQI 53) is absent from the lag chain.
	assert.Equal(t, 55.0, rows[0].AQILag1)
	assert.Equal(t, 54.0, rows[0].AQILag2)
	assert.Equal(t, 52.0, rows[0].AQILag3)
}

func TestAssembleDropsUnparseableTimestamps(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	series := hourlySeries(start, 6)
	series[0].Timestamp = "not-a-timestamp"

	rows := Assemble(series)
	assert.Empty(t, rows)
}

func TestAssemblePreservesOrder(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := Assemble(hourlySeries(start, 12))

	require.Len(t, rows, 7)
	for i := 1; i < len(rows); i++ {
		assert.True(t, rows[i-1].Time.Before(rows[i].Time))
	}
}
