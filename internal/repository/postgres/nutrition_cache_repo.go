package postgres

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

type nutritionCacheRepo struct {
	db *sqlx.DB
}

// NewNutritionCacheRepo creates a PostgreSQL-backed CacheStore.
func NewNutritionCacheRepo(db *sqlx.DB) port.CacheStore {
	return &nutritionCacheRepo{db: db}
}

type cacheRow struct {
	Key    string `db:"cache_key"`
	Record []byte `db:"record"`
}

func (r *nutritionCacheRepo) LoadAll(ctx context.Context) (map[string]*domain.NutritionRecord, error) {
	var rows []cacheRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT cache_key, record FROM nutrition_cache"); err != nil {
		return nil, fmt.Errorf("nutritionCacheRepo.LoadAll: %w", err)
	}

	out := make(map[string]*domain.NutritionRecord, len(rows))
	for _, row := range rows {
		var rec domain.NutritionRecord
		if err := json.Unmarshal(row.Record, &rec); err != nil {
			log.Printf("nutritionCacheRepo.LoadAll: skipping corrupt entry %q: %v", row.Key, err)
			continue
		}
		out[row.Key] = &rec
	}
	return out, nil
}

func (r *nutritionCacheRepo) Put(ctx context.Context, key string, rec *domain.NutritionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("nutritionCacheRepo.Put: %w", err)
	}

	query := `INSERT INTO nutrition_cache (cache_key, record, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, key, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("nutritionCacheRepo.Put: %w", err)
	}
	return nil
}
