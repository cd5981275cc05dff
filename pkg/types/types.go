package types

import (
	"fmt"
	"time"
)

// TimeLayout is the timestamp format used for document keys and request
// timestamps, e.g. "20250828T1400".
const TimeLayout = "20060102T1504"

const (
	// WindowLength is the number of feature rows the model consumes.
	WindowLength = 72
	// LagDepth is the number of autoregressive AQI lag features.
	LagDepth = 5
	// NumFeatures is the width of one feature row.
	NumFeatures = 21
)

// Location identifies where a sensor is installed.
type Location struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name"`
}

// Components holds the pollutant concentrations of one stored sample.
// Fields are pointers so that documents with missing keys can be detected
// and dropped instead of silently reading as zero.
type Components struct {
	PM25 *float64 `json:"pm2_5"`
	PM10 *float64 `json:"pm10"`
	CO   *float64 `json:"co"`
	NH3  *float64 `json:"nh3"`
	O3   *float64 `json:"o3"`
	NO2  *float64 `json:"no2"`
}

// Meteo holds the meteorological readings of one stored sample.
type Meteo struct {
	Temp    *float64 `json:"temp"`
	RHum    *float64 `json:"rhum"`
	LogPrcp *float64 `json:"log_prcp"`
	WdirSin *float64 `json:"wdir_sin"`
	WdirCos *float64 `json:"wdir_cos"`
	Wspd    *float64 `json:"wspd"`
}

// RawSample is one sensor document as stored, keyed by its timestamp string.
type RawSample struct {
	Timestamp  string     `json:"timestamp"`
	Components Components `json:"components"`
	Meteo      Meteo      `json:"meteo"`
	AQI        *float64   `json:"aqi"`
	Location   Location   `json:"location"`
}

// Time parses the sample's timestamp key.
func (s *RawSample) Time() (time.Time, error) {
	t, err := time.Parse(TimeLayout, s.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid sample timestamp %q: %w", s.Timestamp, err)
	}
	return t, nil
}

// MissingField returns the name of the first absent required field, or ""
// if the sample is complete.
func (s *RawSample) MissingField() string {
	checks := []struct {
		name string
		val  *float64
	}{
		{"pm2_5", s.Components.PM25},
		{"pm10", s.Components.PM10},
		{"co", s.Components.CO},
		{"nh3", s.Components.NH3},
		{"o3", s.Components.O3},
		{"no2", s.Components.NO2},
		{"temp", s.Meteo.Temp},
		{"rhum", s.Meteo.RHum},
		{"log_prcp", s.Meteo.LogPrcp},
		{"wdir_sin", s.Meteo.WdirSin},
		{"wdir_cos", s.Meteo.WdirCos},
		{"wspd", s.Meteo.Wspd},
		{"aqi", s.AQI},
	}
	for _, c := range checks {
		if c.val == nil {
			return c.name
		}
	}
	return ""
}

// FeatureRow is one engineered row: the sample's raw readings plus cyclical
// time encodings and positional AQI lags.
type FeatureRow struct {
	Time time.Time

	PM25, PM10, CO, NH3, O3, NO2                float64
	Temp, RHum, LogPrcp                         float64
	WdirSin, WdirCos, Wspd                      float64
	HourSin, HourCos, DowSin, DowCos            float64
	AQILag1, AQILag2, AQILag3, AQILag4, AQILag5 float64

	// AQI is the row's own reading, carried for lag computation.
	AQI      float64
	Location Location
}

// FeatureColumns is the fixed column order the scaler was fitted with.
var FeatureColumns = [NumFeatures]string{
	"pm2_5", "pm10", "co", "nh3", "o3", "no2",
	"temp", "rhum", "log_prcp", "wdir_sin", "wdir_cos", "wspd",
	"hour_sin", "hour_cos", "dow_sin", "dow_cos",
	"aqi_lag1", "aqi_lag2", "aqi_lag3", "aqi_lag4", "aqi_lag5",
}

// Values returns the row's numeric fields in FeatureColumns order.
func (r *FeatureRow) Values() [NumFeatures]float64 {
	return [NumFeatures]float64{
		r.PM25, r.PM10, r.CO, r.NH3, r.O3, r.NO2,
		r.Temp, r.RHum, r.LogPrcp, r.WdirSin, r.WdirCos, r.Wspd,
		r.HourSin, r.HourCos, r.DowSin, r.DowCos,
		r.AQILag1, r.AQILag2, r.AQILag3, r.AQILag4, r.AQILag5,
	}
}

// ForecastPoint is one persisted prediction for a future hour.
type ForecastPoint struct {
	Timestamp time.Time `json:"timestamp"`
	AQI       int       `json:"aqi"`
	Location  Location  `json:"location"`
	SensorID  string    `json:"id"`
}

// JobResult is the terminal outcome of one sensor's forecast job.
type JobResult struct {
	SensorID string
	Status   string
}

// Job status constructors. The strings are part of the API response surface.

func StatusSaved() string {
	return "Prediction saved"
}

func StatusSkipped(resolved int) string {
	return fmt.Sprintf("Skipped (only %d records)", resolved)
}

func StatusFailed(err error) string {
	return fmt.Sprintf("Failed: %v", err)
}
