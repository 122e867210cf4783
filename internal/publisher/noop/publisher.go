// Package noop provides an OrderPublisher that drops every event.
package noop

import (
	"context"

	"mealmail/internal/domain"
	"mealmail/internal/port"
)

type publisher struct{}

// NewPublisher returns a publisher used when Kafka is disabled.
func NewPublisher() port.OrderPublisher {
	return publisher{}
}

func (publisher) PublishOrder(context.Context, *domain.EnhancedOrder) error { return nil }

func (publisher) Close() error { return nil }
