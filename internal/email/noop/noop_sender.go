package noop

import (
	"context"
	"log"

	"mealmail/internal/domain"
	"mealmail/internal/email"
	"mealmail/internal/port"
)

type noopSender struct{}

// NewNoopSender creates a SummarySender that logs the summary subject instead of sending mail.
func NewNoopSender() port.SummarySender {
	return &noopSender{}
}

func (s *noopSender) SendMealSummary(_ context.Context, order *domain.EnhancedOrder) error {
	summary, err := email.RenderSummary(order)
	if err != nil {
		return err
	}
	log.Printf("[NOOP EMAIL] %s for order %s (%d items)", summary.Subject, order.ID, len(order.Items))
	return nil
}
