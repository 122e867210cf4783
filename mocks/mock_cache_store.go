package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mealmail/internal/domain"
)

// MockCacheStore is a mock implementation of port.CacheStore.
type MockCacheStore struct {
	mock.Mock
}

func (m *MockCacheStore) LoadAll(ctx context.Context) (map[string]*domain.NutritionRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*domain.NutritionRecord), args.Error(1)
}

func (m *MockCacheStore) Put(ctx context.Context, key string, rec *domain.NutritionRecord) error {
	args := m.Called(ctx, key, rec)
	return args.Error(0)
}
