package nutrition

import (
	"fmt"
	"strings"

	"mealmail/internal/domain"
	"mealmail/internal/textnorm"
)

// Per-serving plausibility limits; each is multiplied by quantity.
const (
	MaxCaloriesPerServing     = 2000.0
	MaxProteinPerServing      = 100.0
	MaxSodiumPerServing       = 5000.0
	MaxDietCaloriesPerServing = 10.0
)

// Validate flags implausible values on a final, quantity-scaled record. It
// never rejects the record.
func Validate(rec *domain.NutritionRecord, itemName string, quantity int) []string {
	if rec == nil {
		return nil
	}
	if quantity < 1 {
		quantity = 1
	}
	q := float64(quantity)
	var warnings []string

	switch {
	case rec.Calories > MaxCaloriesPerServing*q:
		warnings = append(warnings, fmt.Sprintf("very high calories: %.0f (> %.0f expected)", rec.Calories, MaxCaloriesPerServing*q))
	case rec.Calories < 0:
		warnings = append(warnings, fmt.Sprintf("negative calories: %.0f", rec.Calories))
	}
	if rec.Protein > MaxProteinPerServing*q {
		warnings = append(warnings, fmt.Sprintf("very high protein: %.1fg", rec.Protein))
	}
	switch {
	case rec.Sodium > MaxSodiumPerServing*q:
		warnings = append(warnings, fmt.Sprintf("very high sodium: %.0fmg", rec.Sodium))
	case rec.Sodium < 0:
		warnings = append(warnings, fmt.Sprintf("negative sodium: %.0fmg", rec.Sodium))
	}

	name := textnorm.NormalizeFoodName(itemName)
	if (strings.Contains(name, "diet") || strings.Contains(name, "zero")) && rec.Calories > MaxDietCaloriesPerServing*q {
		warnings = append(warnings, fmt.Sprintf("diet item with high calories: %.0f (should be < %.0f)", rec.Calories, MaxDietCaloriesPerServing*q))
	}
	return warnings
}
