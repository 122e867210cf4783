package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mealmail/internal/port"
)

// MockNutritionSource is a mock implementation of port.NutritionSource.
type MockNutritionSource struct {
	mock.Mock
	SourceName string
}

func (m *MockNutritionSource) Name() string {
	if m.SourceName == "" {
		return "mock"
	}
	return m.SourceName
}

func (m *MockNutritionSource) Search(ctx context.Context, query string) ([]port.FoodCandidate, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.FoodCandidate), args.Error(1)
}

// MockPortionSource is a MockNutritionSource that also implements port.PortionLookup.
type MockPortionSource struct {
	MockNutritionSource
}

func (m *MockPortionSource) Portions(ctx context.Context, id string) ([]port.Portion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]port.Portion), args.Error(1)
}
