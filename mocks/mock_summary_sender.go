package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mealmail/internal/domain"
)

// MockSummarySender is a mock implementation of port.SummarySender.
type MockSummarySender struct {
	mock.Mock
}

func (m *MockSummarySender) SendMealSummary(ctx context.Context, order *domain.EnhancedOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}
