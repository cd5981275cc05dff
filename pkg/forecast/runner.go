// Package forecast drives per-sensor forecast production: series assembly,
// encoding, inference and persistence, orchestrated across a sensor batch.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/skylens/aqcast/pkg/artifact"
	"github.com/skylens/aqcast/pkg/features"
	"github.com/skylens/aqcast/pkg/model"
	"github.com/skylens/aqcast/pkg/store"
	"github.com/skylens/aqcast/pkg/types"
)

// SeriesFetcher resolves the hourly series feeding one job.
type SeriesFetcher interface {
	Fetch(ctx context.Context, sensorID string, anchor time.Time, hoursNeeded int) ([]types.RawSample, error)
}

// Runner executes the full pipeline for one sensor. Every failure is
// converted to a terminal job status at this boundary; nothing propagates
// to sibling jobs.
type Runner struct {
	Fetcher   SeriesFetcher
	Store     store.DocumentStore
	Artifacts artifact.Repository

	// HoursNeeded is the number of raw hours requested from the fetcher.
	// Zero means WindowLength + LagDepth.
	HoursNeeded int

	// JobTimeout bounds one job end to end. Zero disables the timeout.
	JobTimeout time.Duration
}

// Run executes the pipeline for a sensor and returns its terminal result.
func (r *Runner) Run(ctx context.Context, sensorID string, anchor time.Time) types.JobResult {
	log.Printf("Processing %s for %s", sensorID, anchor.Format(types.TimeLayout))

	if r.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.JobTimeout)
		defer cancel()
	}

	status := r.runChecked(ctx, sensorID, anchor)
	return types.JobResult{SensorID: sensorID, Status: status}
}

// runChecked wraps the pipeline so that a panic in any collaborator still
// resolves to a Failed status.
func (r *Runner) runChecked(ctx context.Context, sensorID string, anchor time.Time) (status string) {
	defer func() {
		if p := recover(); p != nil {
			status = types.StatusFailed(fmt.Errorf("panic: %v", p))
		}
	}()

	return r.run(ctx, sensorID, anchor)
}

func (r *Runner) run(ctx context.Context, sensorID string, anchor time.Time) string {
	hoursNeeded := r.HoursNeeded
	if hoursNeeded <= 0 {
		hoursNeeded = types.WindowLength + types.LagDepth
	}

	series, err := r.Fetcher.Fetch(ctx, sensorID, anchor, hoursNeeded)
	if err != nil {
		return types.StatusFailed(fmt.Errorf("fetch series: %w", err))
	}

	rows := features.Assemble(series)
	if len(rows) < types.WindowLength {
		return types.StatusSkipped(len(series))
	}

	dir, cleanup, err := r.Artifacts.Fetch(ctx, sensorID)
	if err != nil {
		return types.StatusFailed(err)
	}
	defer cleanup()

	bundle, err := model.Load(dir)
	if err != nil {
		return types.StatusFailed(err)
	}

	tensor, err := features.Encode(rows, bundle.ScalerX)
	if err != nil {
		var short *features.InsufficientWindowError
		if errors.As(err, &short) {
			return types.StatusSkipped(len(series))
		}
		return types.StatusFailed(err)
	}

	scaled, err := bundle.Predictor.Predict(tensor)
	if err != nil {
		return types.StatusFailed(fmt.Errorf("inference: %w", err))
	}

	preds, err := bundle.ScalerY.InverseTransform(scaled)
	if err != nil {
		return types.StatusFailed(err)
	}

	// Location comes from the most recent sample that survived assembly;
	// the newest raw sample may have been dropped for a missing field.
	location := rows[len(rows)-1].Location

	if err := r.persist(ctx, sensorID, anchor, preds, location); err != nil {
		return types.StatusFailed(err)
	}

	return types.StatusSaved()
}

// persist writes one forecast point per predicted value, spaced one hour
// apart starting at anchor+1h.
func (r *Runner) persist(ctx context.Context, sensorID string, anchor time.Time, preds []float64, location types.Location) error {
	collection := store.ForecastCollection(sensorID)

	for i, v := range preds {
		ts := anchor.Add(time.Duration(i+1) * time.Hour)
		point := types.ForecastPoint{
			Timestamp: ts,
			AQI:       int(math.Round(v)),
			Location:  location,
			SensorID:  sensorID,
		}

		key := ts.Format(types.TimeLayout)
		if err := r.Store.Put(ctx, collection, key, point); err != nil {
			return fmt.Errorf("save forecast at %s: %w", key, err)
		}
		log.Printf("[%s] Forecast saved at %s", sensorID, key)
	}

	return nil
}
