package forecast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/skylens/aqcast/pkg/types"
)

// DefaultConcurrency caps the worker pool regardless of batch size.
const DefaultConcurrency = 4

// ErrNoSensors is the request-level error for an empty batch.
var ErrNoSensors = errors.New("forecast: at least one sensor id is required")

// JobRunner runs one sensor's pipeline to a terminal result.
type JobRunner interface {
	Run(ctx context.Context, sensorID string, anchor time.Time) types.JobResult
}

// Orchestrator fans a sensor batch out to a bounded worker pool. Jobs are
// independent; one sensor's failure never aborts the others.
type Orchestrator struct {
	Runner JobRunner

	// Concurrency is the pool cap. Zero or negative means
	// DefaultConcurrency.
	Concurrency int
}

// RunBatch runs every sensor job and collects one status per sensor id.
// It waits for all jobs before returning; the map always has exactly one
// entry per input id.
func (o *Orchestrator) RunBatch(ctx context.Context, sensorIDs []string, anchor time.Time) (map[string]string, error) {
	if len(sensorIDs) == 0 {
		return nil, ErrNoSensors
	}

	workers := o.Concurrency
	if workers <= 0 {
		workers = DefaultConcurrency
	}
	if workers > len(sensorIDs) {
		workers = len(sensorIDs)
	}

	jobs := make(chan string)
	results := make(map[string]string, len(sensorIDs))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sensorID := range jobs {
				res := o.Runner.Run(ctx, sensorID, anchor)
				mu.Lock()
				results[res.SensorID] = res.Status
				mu.Unlock()
			}
		}()
	}

	for _, id := range sensorIDs {
		jobs <- id
	}
	close(jobs)

	wg.Wait()
	return results, nil
}
