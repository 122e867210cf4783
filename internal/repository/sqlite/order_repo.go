package sqlite

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

// orderRow mirrors the orders table. Timestamps are RFC 3339 text.
type orderRow struct {
	ID                 string          `db:"id"`
	Service            string          `db:"service"`
	Restaurant         string          `db:"restaurant"`
	Total              sql.NullFloat64 `db:"total"`
	Sender             string          `db:"sender"`
	Subject            string          `db:"subject"`
	Items              string          `db:"items"`
	MealTotals         string          `db:"meal_totals"`
	SourceStatistics   string          `db:"source_statistics"`
	NutritionTimestamp string          `db:"nutrition_timestamp"`
	CreatedAt          string          `db:"created_at"`
}

func (r *orderRow) toDomain() (*domain.EnhancedOrder, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("parsing id: %w", err)
	}
	o := &domain.EnhancedOrder{
		ID:         id,
		Service:    domain.Service(r.Service),
		Restaurant: r.Restaurant,
		Sender:     r.Sender,
		Subject:    r.Subject,
	}
	if r.Total.Valid {
		total := r.Total.Float64
		o.Total = &total
	}
	if o.NutritionTimestamp, err = time.Parse(time.RFC3339Nano, r.NutritionTimestamp); err != nil {
		return nil, fmt.Errorf("parsing nutrition_timestamp: %w", err)
	}
	if o.CreatedAt, err = time.Parse(time.RFC3339Nano, r.CreatedAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(r.Items), &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling items: %w", err)
	}
	if err := json.Unmarshal([]byte(r.MealTotals), &o.MealTotals); err != nil {
		return nil, fmt.Errorf("unmarshaling meal totals: %w", err)
	}
	if err := json.Unmarshal([]byte(r.SourceStatistics), &o.SourceStatistics); err != nil {
		return nil, fmt.Errorf("unmarshaling source statistics: %w", err)
	}
	return o, nil
}

type orderRepo struct {
	db *sqlx.DB
}

// NewOrderRepo creates a SQLite-backed OrderRepository.
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

	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("orderRepo.Create: %w", err)
	}
	totals, err := json.Marshal(order.MealTotals)
	if err != nil {
		return fmt.Errorf("orderRepo.Create: %w", err)
	}
	stats, err := json.Marshal(order.SourceStatistics)
	if err != nil {
		return fmt.Errorf("orderRepo.Create: %w", err)
	}

	var total sql.NullFloat64
	if order.Total != nil {
		total = sql.NullFloat64{Float64: *order.Total, Valid: true}
	}

	query := `INSERT INTO orders (id, service, restaurant, total, sender, subject,
		items, meal_totals, source_statistics, nutrition_timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		order.ID.String(), string(order.Service), order.Restaurant, total, order.Sender, order.Subject,
		string(items), string(totals), string(stats),
		order.NutritionTimestamp.UTC().Format(time.RFC3339Nano),
		order.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("orderRepo.Create: %w", err)
	}
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.EnhancedOrder, error) {
	var row orderRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM orders WHERE id = ?", id.String())
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
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT ? OFFSET ?", limit, offset)
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
