package port

import (
	"context"

	"github.com/google/uuid"

	"mealmail/internal/domain"
)

// OrderRepository defines the contract for enhanced order persistence.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.EnhancedOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.EnhancedOrder, error)
	List(ctx context.Context, offset, limit int) ([]domain.EnhancedOrder, int, error)
}
