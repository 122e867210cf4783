package port

import (
	"context"

	"mealmail/internal/domain"
)

// OrderPublisher emits an event for every processed order.
type OrderPublisher interface {
	PublishOrder(ctx context.Context, order *domain.EnhancedOrder) error
	Close() error
}
