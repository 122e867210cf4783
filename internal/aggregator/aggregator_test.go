package aggregator_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealmail/internal/aggregator"
	"mealmail/internal/domain"
)

func order(items ...domain.LineItem) *domain.ParsedOrder {
	total := 12.5
	return &domain.ParsedOrder{Service: domain.ServiceDoorDash, Restaurant: "Diner", Total: &total, Items: items}
}

func TestAggregate_ScalesAndSums(t *testing.T) {
	resolve := func(_ context.Context, restaurant, item string, qty int) (*domain.NutritionRecord, error) {
		assert.Equal(t, "Diner", restaurant)
		switch item {
		case "Burger":
			return &domain.NutritionRecord{Calories: 250 * float64(qty), Protein: 10 * float64(qty), Source: domain.SourcePrimary}, nil
		case "Shake":
			return &domain.NutritionRecord{Calories: 400, Fat: 20, Source: domain.SourceSecondary}, nil
		}
		return nil, domain.ErrNoMatch
	}

	got := aggregator.New(1).Aggregate(context.Background(), order(
		domain.LineItem{Quantity: 3, Name: "Burger", Price: 9},
		domain.LineItem{Quantity: 1, Name: "Shake", Price: 3.5},
		domain.LineItem{Quantity: 1, Name: "Napkins", Price: 0},
	), resolve)

	assert.Equal(t, 1150.0, got.MealTotals.TotalCalories)
	assert.Equal(t, 30.0, got.MealTotals.TotalProtein)
	assert.Equal(t, 20.0, got.MealTotals.TotalFat)
	assert.Equal(t, domain.SourceStatistics{Primary: 1, Secondary: 1, Failed: 1, TotalItems: 3, SuccessRate: 66.7}, got.SourceStatistics)
	require.Len(t, got.Items, 3)
	assert.Nil(t, got.Items[2].Nutrition)
	assert.Equal(t, "Napkins", got.Items[2].Name)
	assert.Equal(t, 12.5, *got.Total)
	assert.False(t, got.NutritionTimestamp.IsZero())
}

func TestMacroPercentages(t *testing.T) {
	got := aggregator.MacroPercentages(domain.MealTotals{TotalCalories: 500, TotalProtein: 20, TotalCarbs: 50, TotalFat: 10})
	assert.Equal(t, domain.MacroPercentages{Protein: 16.0, Carbs: 40.0, Fat: 18.0}, got)

	got = aggregator.MacroPercentages(domain.MealTotals{TotalCalories: 333, TotalProtein: 7})
	assert.Equal(t, 8.4, got.Protein)
}

func TestAggregate_AllItemsFailGivesZeroTotals(t *testing.T) {
	resolve := func(context.Context, string, string, int) (*domain.NutritionRecord, error) {
		return nil, errors.New("source down")
	}
	got := aggregator.New(1).Aggregate(context.Background(), order(
		domain.LineItem{Quantity: 1, Name: "A"},
		domain.LineItem{Quantity: 2, Name: "B"},
	), resolve)

	assert.Zero(t, got.MealTotals.TotalCalories)
	assert.Equal(t, domain.MacroPercentages{}, got.MealTotals.MacroPercentages)
	assert.Equal(t, 2, got.SourceStatistics.Failed)
	assert.Zero(t, got.SourceStatistics.SuccessRate)
}

func TestAggregate_NilResolveCountsSkipped(t *testing.T) {
	got := aggregator.New(2).Aggregate(context.Background(), order(
		domain.LineItem{Quantity: 1, Name: "A"},
		domain.LineItem{Quantity: 2, Name: "B"},
	), nil)

	require.Len(t, got.Items, 2)
	assert.Nil(t, got.Items[1].Nutrition)
	assert.Equal(t, "B", got.Items[1].Name)
	assert.Equal(t, domain.SourceStatistics{Skipped: 2, TotalItems: 2}, got.SourceStatistics)
	assert.Zero(t, got.MealTotals.TotalCalories)
	assert.True(t, got.NutritionTimestamp.IsZero())
}

func TestAggregate_EmptyOrder(t *testing.T) {
	got := aggregator.New(4).Aggregate(context.Background(), order(), func(context.Context, string, string, int) (*domain.NutritionRecord, error) {
		t.Fatal("resolve should not be called")
		return nil, nil
	})
	assert.Empty(t, got.Items)
	assert.Zero(t, got.SourceStatistics.TotalItems)
}

func TestAggregate_ConcurrentPreservesOrder(t *testing.T) {
	var inFlight, peak int32
	resolve := func(_ context.Context, _ string, item string, _ int) (*domain.NutritionRecord, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return &domain.NutritionRecord{MatchedDescription: item, Calories: 1, Source: domain.SourcePrimary}, nil
	}

	items := make([]domain.LineItem, 8)
	for i := range items {
		items[i] = domain.LineItem{Quantity: 1, Name: string(rune('a' + i))}
	}
	got := aggregator.New(3).Aggregate(context.Background(), order(items...), resolve)

	for i, it := range got.Items {
		require.NotNil(t, it.Nutrition)
		assert.Equal(t, items[i].Name, it.Nutrition.MatchedDescription)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, 8.0, got.MealTotals.TotalCalories)
}
