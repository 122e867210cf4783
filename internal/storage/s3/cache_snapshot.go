package s3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"mealmail/internal/domain"
	"mealmail/internal/port"
)

// snapshotStore keeps the whole nutrition cache as one JSON object in
// object storage. Every Put rewrites the snapshot.
type snapshotStore struct {
	blobs port.BlobStore
	key   string

	mu      sync.Mutex
	entries map[string]*domain.NutritionRecord
}

// NewCacheSnapshotStore creates a CacheStore backed by the single object at key.
func NewCacheSnapshotStore(blobs port.BlobStore, key string) port.CacheStore {
	return &snapshotStore{
		blobs:   blobs,
		key:     key,
		entries: make(map[string]*domain.NutritionRecord),
	}
}

func (s *snapshotStore) LoadAll(ctx context.Context) (map[string]*domain.NutritionRecord, error) {
	data, err := s.blobs.Get(ctx, s.key)
	if errors.Is(err, domain.ErrObjectNotFound) {
		return map[string]*domain.NutritionRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshotStore.LoadAll: %w", err)
	}

	entries := make(map[string]*domain.NutritionRecord)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("snapshotStore.LoadAll: decoding %s: %w", s.key, err)
	}

	s.mu.Lock()
	for k, v := range entries {
		s.entries[k] = v.Clone()
	}
	s.mu.Unlock()
	return entries, nil
}

func (s *snapshotStore) Put(ctx context.Context, key string, rec *domain.NutritionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = rec.Clone()
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("snapshotStore.Put: %w", err)
	}

	if err := s.blobs.Put(ctx, s.key, data, "application/json"); err != nil {
		return fmt.Errorf("snapshotStore.Put: %w", err)
	}
	return nil
}
