package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/skylens/aqcast/pkg/types"
)

// ErrNotFound is returned by Get when no document exists under the key.
var ErrNotFound = errors.New("store: document not found")

// DocumentStore is the contract for the keyed sensor document store.
// Collections are path-like namespaces; document keys are timestamp strings
// in types.TimeLayout.
type DocumentStore interface {
	// Get reads one sample document, or ErrNotFound.
	Get(ctx context.Context, collection, key string) (*types.RawSample, error)

	// Put writes a document under the key, overwriting any previous value.
	Put(ctx context.Context, collection, key string, doc interface{}) error

	// Close releases the underlying store resources.
	Close() error
}

// CurrentCollection returns the input collection path for a sensor.
func CurrentCollection(sensorID string) string {
	return fmt.Sprintf("current_data/%s/main", sensorID)
}

// ForecastCollection returns the output collection path for a sensor.
func ForecastCollection(sensorID string) string {
	return fmt.Sprintf("forecast_data/%s/main", sensorID)
}
