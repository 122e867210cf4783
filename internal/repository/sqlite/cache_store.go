package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"mealmail/internal/domain"
	"mealmail/internal/port"
)

type cacheStore struct {
	db *sqlx.DB
}

// NewCacheStore creates a SQLite-backed CacheStore.
func NewCacheStore(db *sqlx.DB) port.CacheStore {
	return &cacheStore{db: db}
}

type cacheRow struct {
	Key    string `db:"cache_key"`
	Record string `db:"record"`
}

func (s *cacheStore) LoadAll(ctx context.Context) (map[string]*domain.NutritionRecord, error) {
	var rows []cacheRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT cache_key, record FROM nutrition_cache"); err != nil {
		return nil, fmt.Errorf("cacheStore.LoadAll: %w", err)
	}

	out := make(map[string]*domain.NutritionRecord, len(rows))
	for _, row := range rows {
		var rec domain.NutritionRecord
		if err := json.Unmarshal([]byte(row.Record), &rec); err != nil {
			log.Printf("cacheStore.LoadAll: skipping corrupt entry %q: %v", row.Key, err)
			continue
		}
		out[row.Key] = &rec
	}
	return out, nil
}

func (s *cacheStore) Put(ctx context.Context, key string, rec *domain.NutritionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cacheStore.Put: %w", err)
	}
	query := `INSERT INTO nutrition_cache (cache_key, record, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, key, string(data), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("cacheStore.Put: %w", err)
	}
	return nil
}
