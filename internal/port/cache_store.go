package port

import (
	"context"

	"mealmail/internal/domain"
)

// CacheStore persists nutrition cache entries across process restarts.
type CacheStore interface {
	LoadAll(ctx context.Context) (map[string]*domain.NutritionRecord, error)
	Put(ctx context.Context, key string, rec *domain.NutritionRecord) error
}
