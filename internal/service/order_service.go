package service

import (
	"context"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"mealmail/internal/aggregator"
	"mealmail/internal/classifier"
	"mealmail/internal/domain"
	"mealmail/internal/extractor"
	"mealmail/internal/port"
)

// OrderService defines the email-to-enhanced-order pipeline contract.
type OrderService interface {
	ProcessEmail(ctx context.Context, email domain.RawEmail) (*domain.EnhancedOrder, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.EnhancedOrder, error)
	ListOrders(ctx context.Context, offset, limit int) ([]domain.EnhancedOrder, int, error)
}

// OrderServiceDeps bundles the collaborators of the order pipeline.
// Repo, Publisher and Notifier are optional; Resolve nil skips nutrition lookups.
type OrderServiceDeps struct {
	Classifier *classifier.Classifier
	Extractor  *extractor.Extractor
	Aggregator *aggregator.Aggregator
	Resolve    aggregator.ResolveFunc
	Repo       port.OrderRepository
	Publisher  port.OrderPublisher
	Notifier   port.SummarySender
}

type orderService struct {
	deps OrderServiceDeps
	now  func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(deps OrderServiceDeps) OrderService {
	if deps.Classifier == nil {
		deps.Classifier = classifier.New(classifier.DefaultRules(), nil)
	}
	if deps.Extractor == nil {
		deps.Extractor = extractor.New(extractor.DefaultOptions(), nil)
	}
	if deps.Aggregator == nil {
		deps.Aggregator = aggregator.New(1)
	}
	return &orderService{deps: deps, now: time.Now}
}

func (s *orderService) ProcessEmail(ctx context.Context, email domain.RawEmail) (*domain.EnhancedOrder, error) {
	if !utf8.ValidString(email.Subject) || !utf8.ValidString(email.Body) || !utf8.ValidString(email.Sender) {
		return nil, domain.ErrInvalidEmail
	}

	decision := s.deps.Classifier.Evaluate(email)
	if !decision.Accepted {
		log.Printf("orderService.ProcessEmail: rejected %q: %s", email.Subject, decision.Reason)
		return nil, fmt.Errorf("%w: %s", domain.ErrNotOrderConfirmation, decision.Reason)
	}

	parsed := s.deps.Extractor.Extract(email.Subject, email.Body)
	if parsed == nil {
		return nil, domain.ErrExtractionFailed
	}
	log.Printf("orderService.ProcessEmail: extracted %s order from %q with %d items",
		parsed.Service, parsed.Restaurant, len(parsed.Items))

	order := s.deps.Aggregator.Aggregate(ctx, parsed, s.deps.Resolve)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	order.ID = uuid.New()
	order.Sender = email.Sender
	order.Subject = email.Subject
	order.CreatedAt = s.now().UTC()

	s.deliver(ctx, order)
	return order, nil
}

// deliver persists, publishes and notifies. Each output is best-effort.
func (s *orderService) deliver(ctx context.Context, order *domain.EnhancedOrder) {
	if s.deps.Repo != nil {
		if err := s.deps.Repo.Create(ctx, order); err != nil {
			log.Printf("orderService.deliver: persisting order %s: %v", order.ID, err)
		}
	}
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishOrder(ctx, order); err != nil {
			log.Printf("orderService.deliver: publishing order %s: %v", order.ID, err)
		}
	}
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.SendMealSummary(ctx, order); err != nil {
			log.Printf("orderService.deliver: sending summary for order %s: %v", order.ID, err)
		}
	}
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.EnhancedOrder, error) {
	if s.deps.Repo == nil {
		return nil, domain.ErrOrderNotFound
	}
	return s.deps.Repo.GetByID(ctx, id)
}

func (s *orderService) ListOrders(ctx context.Context, offset, limit int) ([]domain.EnhancedOrder, int, error) {
	if s.deps.Repo == nil {
		return []domain.EnhancedOrder{}, 0, nil
	}
	return s.deps.Repo.List(ctx, offset, limit)
}
