// Package aggregator combines per-item nutrition into order-level totals.
package aggregator

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"mealmail/internal/domain"
)

// Energy density in kcal per gram.
const (
	ProteinKcalPerGram = 4.0
	CarbsKcalPerGram   = 4.0
	FatKcalPerGram     = 9.0
)

// ResolveFunc looks up nutrition for quantity units of item. A nil record or a
// non-nil error counts as a failed lookup.
type ResolveFunc func(ctx context.Context, restaurant, item string, quantity int) (*domain.NutritionRecord, error)

// Aggregator enhances parsed orders with nutrition.
type Aggregator struct {
	concurrency int
	now         func() time.Time
}

// New creates an Aggregator. Concurrency above 1 resolves items in parallel;
// item order in the result is always preserved.
func New(concurrency int) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{concurrency: concurrency, now: time.Now}
}

// Aggregate resolves every item and sums the results. A failed item
// contributes zero and never stops the remaining items. A nil resolve skips
// lookups: every item is counted as skipped and the timestamp stays zero.
func (a *Aggregator) Aggregate(ctx context.Context, order *domain.ParsedOrder, resolve ResolveFunc) *domain.EnhancedOrder {
	out := &domain.EnhancedOrder{
		Service:    order.Service,
		Restaurant: order.Restaurant,
		Total:      order.Total,
		Items:      make([]domain.EnhancedItem, len(order.Items)),
	}

	if resolve == nil {
		for i, item := range order.Items {
			out.Items[i] = domain.EnhancedItem{LineItem: item}
		}
		out.MealTotals, out.SourceStatistics = Totals(out.Items)
		out.SourceStatistics.Failed = 0
		out.SourceStatistics.Skipped = len(order.Items)
		return out
	}

	records := a.resolveAll(ctx, order, resolve)
	for i, item := range order.Items {
		out.Items[i] = domain.EnhancedItem{LineItem: item, Nutrition: records[i]}
	}

	out.MealTotals, out.SourceStatistics = Totals(out.Items)
	out.NutritionTimestamp = a.now().UTC()
	return out
}

func (a *Aggregator) resolveAll(ctx context.Context, order *domain.ParsedOrder, resolve ResolveFunc) []*domain.NutritionRecord {
	records := make([]*domain.NutritionRecord, len(order.Items))
	lookup := func(i int) {
		item := order.Items[i]
		rec, err := resolve(ctx, order.Restaurant, item.Name, item.Quantity)
		if err != nil {
			log.Printf("aggregator.Aggregate: %dx %q: %v", item.Quantity, item.Name, err)
			return
		}
		records[i] = rec
	}

	if a.concurrency == 1 || len(order.Items) < 2 {
		for i := range order.Items {
			lookup(i)
		}
		return records
	}

	sem := make(chan struct{}, a.concurrency)
	var wg sync.WaitGroup
	for i := range order.Items {
		sem <- struct{}{} // acquire
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }() // release
			lookup(i)
		}(i)
	}
	wg.Wait()
	return records
}

// Totals sums nutrients across items and counts lookup outcomes per source.
func Totals(items []domain.EnhancedItem) (domain.MealTotals, domain.SourceStatistics) {
	var t domain.MealTotals
	stats := domain.SourceStatistics{TotalItems: len(items)}

	for _, it := range items {
		n := it.Nutrition
		if n == nil {
			stats.Failed++
			continue
		}
		t.TotalCalories += n.Calories
		t.TotalProtein += n.Protein
		t.TotalCarbs += n.Carbs
		t.TotalFat += n.Fat
		t.TotalFiber += n.Fiber
		t.TotalSugar += n.Sugar
		t.TotalSodium += n.Sodium

		switch n.Source {
		case domain.SourcePrimary:
			stats.Primary++
		case domain.SourceSecondary:
			stats.Secondary++
		default:
			stats.Unknown++
		}
	}

	t.MacroPercentages = MacroPercentages(t)
	if stats.TotalItems > 0 {
		stats.SuccessRate = round1(float64(stats.TotalItems-stats.Failed) / float64(stats.TotalItems) * 100)
	}
	return t, stats
}

// MacroPercentages returns each macronutrient's share of total calories,
// rounded to one decimal. All shares are zero when there are no calories.
func MacroPercentages(t domain.MealTotals) domain.MacroPercentages {
	if t.TotalCalories == 0 {
		return domain.MacroPercentages{}
	}
	pct := func(grams, density float64) float64 {
		return round1(grams * density / t.TotalCalories * 100)
	}
	return domain.MacroPercentages{
		Protein: pct(t.TotalProtein, ProteinKcalPerGram),
		Carbs:   pct(t.TotalCarbs, CarbsKcalPerGram),
		Fat:     pct(t.TotalFat, FatKcalPerGram),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
