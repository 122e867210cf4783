package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"mealmail/internal/domain"
)

// MockOrderPublisher is a mock implementation of port.OrderPublisher.
type MockOrderPublisher struct {
	mock.Mock
}

func (m *MockOrderPublisher) PublishOrder(ctx context.Context, order *domain.EnhancedOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
