// Package features turns raw hourly series into the fixed-shape numeric
// window the forecast model consumes.
package features

import (
	"log"
	"math"

	"github.com/skylens/aqcast/pkg/types"
)

// Assemble converts an ordered hourly series into feature rows: cyclical
// time encodings derived from each sample's own timestamp, plus positional
// AQI lags 1..5. Samples with missing required fields or unparseable
// timestamps are logged and dropped before lag computation. Rows without all
// five lag predecessors are dropped, so for L valid samples the output
// length is max(0, L-LagDepth). Input order (oldest first) is preserved.
func Assemble(series []types.RawSample) []types.FeatureRow {
	rows := make([]types.FeatureRow, 0, len(series))

	for _, sample := range series {
		if field := sample.MissingField(); field != "" {
			log.Printf("Skipping row due to missing key: %s", field)
			continue
		}

		t, err := sample.Time()
		if err != nil {
			log.Printf("Skipping row: %v", err)
			continue
		}

		hour := float64(t.Hour())
		// Monday=0, matching the convention the scalers were fitted with.
		dow := float64((int(t.Weekday()) + 6) % 7)

		rows = append(rows, types.FeatureRow{
			Time:     t,
			PM25:     *sample.Components.PM25,
			PM10:     *sample.Components.PM10,
			CO:       *sample.Components.CO,
			NH3:      *sample.Components.NH3,
			O3:       *sample.Components.O3,
			NO2:      *sample.Components.NO2,
			Temp:     *sample.Meteo.Temp,
			RHum:     *sample.Meteo.RHum,
			LogPrcp:  *sample.Meteo.LogPrcp,
			WdirSin:  *sample.Meteo.WdirSin,
			WdirCos:  *sample.Meteo.WdirCos,
			Wspd:     *sample.Meteo.Wspd,
			HourSin:  math.Sin(2 * math.Pi * hour / 24),
			HourCos:  math.Cos(2 * math.Pi * hour / 24),
			DowSin:   math.Sin(2 * math.Pi * dow / 7),
			DowCos:   math.Cos(2 * math.Pi * dow / 7),
			AQI:      *sample.AQI,
			Location: sample.Location,
		})
	}

	if len(rows) <= types.LagDepth {
		return nil
	}

	// Lags are positional within the series, not wall-clock: a gap shifts
	// the lag source to the nearest preceding resolved sample.
	out := make([]types.FeatureRow, 0, len(rows)-types.LagDepth)
	for i := types.LagDepth; i < len(rows); i++ {
		row := rows[i]
		row.AQILag1 = rows[i-1].AQI
		row.AQILag2 = rows[i-2].AQI
		row.AQILag3 = rows[i-3].AQI
		row.AQILag4 = rows[i-4].AQI
		row.AQILag5 = rows[i-5].AQI
		out = append(out, row)
	}

	return out
}
