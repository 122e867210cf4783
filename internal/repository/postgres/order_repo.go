package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"mealmail/internal/domain"
	"mealmail/internal/port"
)

// orderRow mirrors the orders table. Nested order data is stored as JSONB.
type orderRow struct {
	ID                 uuid.UUID `db:"id"`
	Service            string    `db:"service"`
	Restaurant         string    `db:"restaurant"`
	Total              *float64  `db:"total"`
	Sender             string    `db:"sender"`
	Subject            string    `db:"subject"`
	Items              []byte    `db:"items"`
	MealTotals         []byte    `db:"meal_totals"`
	SourceStatistics   []byte    `db:"source_statistics"`
	NutritionTimestamp time.Time `db:"nutrition_timestamp"`
	CreatedAt          time.Time `db:"created_at"`
}

func toOrderRow(o *domain.EnhancedOrder) (*orderRow, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("marshaling items: %w", err)
	}
	totals, err := json.Marshal(o.MealTotals)
	if err != nil {
		return nil, fmt.Errorf("marshaling meal totals: %w", err)
	}
	stats, err := json.Marshal(o.SourceStatistics)
	if err != nil {
		return nil, fmt.Errorf("marshaling source statistics: %w", err)
	}
	return &orderRow{
		ID:                 o.ID,
		Service:            string(o.Service),
		Restaurant:         o.Restaurant,
		Total:              o.Total,
		Sender:             o.Sender,
		Subject:            o.Subject,
		Items:              items,
		MealTotals:         totals,
		SourceStatistics:   stats,
		NutritionTimestamp: o.NutritionTimestamp,
		CreatedAt:          o.CreatedAt,
	}, nil
}

func (r *orderRow) toDomain() (*domain.EnhancedOrder, error) {
	o := &domain.EnhancedOrder{
		ID:                 r.ID,
		Service:            domain.Service(r.Service),
		Restaurant:         r.Restaurant,
		Total:              r.Total,
		Sender:             r.Sender,
		Subject:            r.Subject,
		NutritionTimestamp: r.NutritionTimestamp.UTC(),
		CreatedAt:          r.CreatedAt.UTC(),
	}
	if err := json.Unmarshal(r.Items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling items: %w", err)
	}
	if err := json.Unmarshal(r.MealTotals, &o.MealTotals); err != nil {
		return nil, fmt.Errorf("unmarshaling meal totals: %w", err)
	}
	if err := json.Unmarshal(r.SourceStatistics, &o.SourceStatistics); err != nil {
		return nil, fmt.Errorf("unmarshaling source statistics: %w", err)
	}
	return o, nil
}

type orderRepo struct {
	db *sqlx.DB
}

// NewOrderRepo creates a new PostgreSQL-backed OrderRepository.
func NewOrderRepo(db *sqlx.DB) port.OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, order *domain.EnhancedOrder) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	row, err := toOrderRow(order)
	if err != nil {
		return fmt.Errorf("orderRepo.Create: %w", err)
	}

	query := `INSERT INTO orders (id, service, restaurant, total, sender, subject,
		items, meal_totals, source_statistics, nutrition_timestamp, created_at)
		VALUES (:id, :service, :restaurant, :total, :sender, :subject,
		:items, :meal_totals, :source_statistics, :nutrition_timestamp, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("orderRepo.Create: %w", err)
	}
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.EnhancedOrder, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM orders WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("orderRepo.GetByID: %w", err)
	}
	order, err := row.toDomain()
	if err != nil {
		return nil, fmt.Errorf("orderRepo.GetByID: %w", err)
	}
	return order, nil
}

func (r *orderRepo) List(ctx context.Context, offset, limit int) ([]domain.EnhancedOrder, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders"); err != nil {
		return nil, 0, fmt.Errorf("orderRepo.List count: %w", err)
	}

	var rows []orderRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("orderRepo.List: %w", err)
	}

	orders := make([]domain.EnhancedOrder, 0, len(rows))
	for i := range rows {
		o, err := rows[i].toDomain()
		if err != nil {
			return nil, 0, fmt.Errorf("orderRepo.List: order %s: %w", rows[i].ID, err)
		}
		orders = append(orders, *o)
	}
	return orders, total, nil
}
