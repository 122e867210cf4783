package port

import (
	"context"

	"mealmail/internal/domain"
)

// SummarySender delivers a meal summary for a processed order.
type SummarySender interface {
	SendMealSummary(ctx context.Context, order *domain.EnhancedOrder) error
}
