package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/skylens/aqcast/pkg/types"
)

// MemoryStore is an in-memory DocumentStore for tests and local runs.
// Safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string][]byte),
	}
}

// Get implements DocumentStore.Get.
func (m *MemoryStore) Get(ctx context.Context, collection, key string) (*types.RawSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	payload, ok := m.docs[collection+"/"+key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	var sample types.RawSample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}

	return &sample, nil
}

// Put implements DocumentStore.Put.
func (m *MemoryStore) Put(ctx context.Context, collection, key string, doc interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	m.mu.Lock()
	m.docs[collection+"/"+key] = payload
	m.mu.Unlock()

	return nil
}

// Close implements DocumentStore.Close.
func (m *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
