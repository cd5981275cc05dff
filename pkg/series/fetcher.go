// Package series reconstructs best-effort regular hourly series from the
// irregularly-timestamped documents in the sensor store.
package series

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/skylens/aqcast/pkg/store"
	"github.com/skylens/aqcast/pkg/types"
)

// maxHoursChecked bounds the backward walk even when the store is empty.
const maxHoursChecked = 100

// ProbeWindow describes the symmetric search window probed around each
// target hour. Candidates are checked from -Span to +Span in Step
// increments; ties on distance go to the earlier offset.
type ProbeWindow struct {
	Span time.Duration
	Step time.Duration
}

// MinuteWindow probes ±30 minutes at minute granularity.
var MinuteWindow = ProbeWindow{Span: 30 * time.Minute, Step: time.Minute}

// HourWindow probes ±3 hours at hour granularity.
var HourWindow = ProbeWindow{Span: 3 * time.Hour, Step: time.Hour}

// Fetcher resolves hourly series for sensors against the document store.
type Fetcher struct {
	store  store.DocumentStore
	window ProbeWindow
}

// NewFetcher creates a fetcher using the given probe window.
func NewFetcher(s store.DocumentStore, window ProbeWindow) *Fetcher {
	if window.Step <= 0 {
		window = MinuteWindow
	}
	return &Fetcher{
		store:  s,
		window: window,
	}
}

// Fetch walks backward from the anchor one hour at a time and resolves the
// nearest stored sample for each target hour. Unresolved hours are skipped.
// The result holds at most hoursNeeded samples, oldest first; a short series
// is returned rather than an error when data is sparse.
func (f *Fetcher) Fetch(ctx context.Context, sensorID string, anchor time.Time, hoursNeeded int) ([]types.RawSample, error) {
	collection := store.CurrentCollection(sensorID)

	var samples []types.RawSample
	seen := make(map[string]bool)
	current := anchor
	hoursChecked := 0

	for len(samples) < hoursNeeded && hoursChecked < maxHoursChecked {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target := current.Truncate(time.Hour)
		sample, err := f.nearestDoc(ctx, collection, target, seen)
		if err != nil {
			return nil, err
		}

		if sample != nil {
			seen[sample.Timestamp] = true
			samples = append(samples, *sample)
		} else {
			log.Printf("[%s] No data found near %s. Searching further back.",
				sensorID, target.Format("2006-01-02 15:04"))
		}

		current = current.Add(-time.Hour)
		hoursChecked++
	}

	// Wide probe windows can resolve ahead of the walk direction, so order
	// by key. The timestamp layout sorts lexicographically.
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp < samples[j].Timestamp
	})

	if len(samples) > hoursNeeded {
		samples = samples[len(samples)-hoursNeeded:]
	}

	log.Printf("[%s] Retrieved %d records from store", sensorID, len(samples))
	return samples, nil
}

// nearestDoc probes the window around the target hour and returns the stored
// sample with minimum absolute distance, or nil when nothing resolves.
// Candidates already claimed by another target hour are skipped so no sample
// appears twice. The returned sample carries the timestamp key it was
// actually found under.
func (f *Fetcher) nearestDoc(ctx context.Context, collection string, target time.Time, seen map[string]bool) (*types.RawSample, error) {
	var (
		closest     *types.RawSample
		closestDiff time.Duration
	)

	for offset := -f.window.Span; offset <= f.window.Span; offset += f.window.Step {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		checkTime := target.Add(offset)
		key := checkTime.Format(types.TimeLayout)
		if seen[key] {
			continue
		}

		sample, err := f.store.Get(ctx, collection, key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		diff := offset
		if diff < 0 {
			diff = -diff
		}

		if closest == nil || diff < closestDiff {
			sample.Timestamp = key
			closest = sample
			closestDiff = diff
		}
	}

	return closest, nil
}
