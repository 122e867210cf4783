package domain

import (
	"time"

	"github.com/google/uuid"
)

// RawEmail is an inbound email as delivered by the webhook transport.
type RawEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Sender  string `json:"sender"`
}

// LineItem is a single ordered item extracted from a confirmation email.
type LineItem struct {
	Quantity int     `json:"quantity"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
}

// ParsedOrder is the structured result of extracting an order confirmation.
type ParsedOrder struct {
	Service    Service    `json:"service"`
	Restaurant string     `json:"restaurant"`
	Total      *float64   `json:"total"`
	Items      []LineItem `json:"items"`
}

// NutritionRecord holds nutrient totals for one line item, already scaled to
// serving size and quantity.
type NutritionRecord struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	Sugar    float64 `json:"sugar"`
	Sodium   float64 `json:"sodium"`

	Confidence         float64           `json:"confidence"`
	Source             NutritionSource   `json:"source"`
	Provider           string            `json:"provider,omitempty"`
	MatchedDescription string            `json:"matched_description"`
	Brand              string            `json:"brand"`
	DataType           string            `json:"data_type,omitempty"`
	NutritionGrade     string            `json:"nutrition_grade,omitempty"`
	ServingGrams       float64           `json:"serving_grams,omitempty"`
	Units              map[string]string `json:"units"`
	Warnings           []string          `json:"warnings,omitempty"`
}

// Clone returns a deep copy so cached snapshots are never shared mutably.
func (r *NutritionRecord) Clone() *NutritionRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.Units != nil {
		out.Units = make(map[string]string, len(r.Units))
		for k, v := range r.Units {
			out.Units[k] = v
		}
	}
	if r.Warnings != nil {
		out.Warnings = append([]string(nil), r.Warnings...)
	}
	return &out
}

// EnhancedItem pairs a line item with its nutrition lookup result.
type EnhancedItem struct {
	LineItem
	Nutrition *NutritionRecord `json:"nutrition"`
}

// MacroPercentages is the share of calories contributed by each macronutrient.
type MacroPercentages struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

// MealTotals aggregates nutrients across all items of an order.
type MealTotals struct {
	TotalCalories    float64          `json:"total_calories"`
	TotalProtein     float64          `json:"total_protein"`
	TotalCarbs       float64          `json:"total_carbs"`
	TotalFat         float64          `json:"total_fat"`
	TotalFiber       float64          `json:"total_fiber"`
	TotalSugar       float64          `json:"total_sugar"`
	TotalSodium      float64          `json:"total_sodium"`
	MacroPercentages MacroPercentages `json:"macro_percentages"`
}

// SourceStatistics counts lookup outcomes per nutrition source. Skipped
// counts items whose lookup was never attempted.
type SourceStatistics struct {
	Primary     int     `json:"primary_db"`
	Secondary   int     `json:"secondary_db"`
	Unknown     int     `json:"unknown"`
	Failed      int     `json:"failed"`
	Skipped     int     `json:"skipped,omitempty"`
	TotalItems  int     `json:"total_items"`
	SuccessRate float64 `json:"success_rate"`
}

// EnhancedOrder is a parsed order enriched with per-item nutrition.
type EnhancedOrder struct {
	ID                 uuid.UUID        `json:"id"`
	Service            Service          `json:"service"`
	Restaurant         string           `json:"restaurant"`
	Total              *float64         `json:"total"`
	Sender             string           `json:"sender,omitempty"`
	Subject            string           `json:"subject,omitempty"`
	Items              []EnhancedItem   `json:"items"`
	MealTotals         MealTotals       `json:"meal_totals"`
	SourceStatistics   SourceStatistics `json:"source_statistics"`
	NutritionTimestamp time.Time        `json:"nutrition_timestamp"`
	CreatedAt          time.Time        `json:"created_at"`
}
