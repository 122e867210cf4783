package nutrition

import (
	"fmt"
	"strings"

	"mealmail/internal/domain"
	"mealmail/internal/port"
)

const kjPerKcal = 4.184

func unitLabel(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

func toKcal(v float64, unit string) (float64, bool) {
	switch unitLabel(unit) {
	case "kcal", "calories", "cal", "kilocalories":
		return v, true
	case "kj", "kilojoules":
		return v / kjPerKcal, true
	}
	return 0, false
}

func toGrams(v float64, unit string) (float64, bool) {
	switch unitLabel(unit) {
	case "g", "grams", "gram", "grm":
		return v, true
	case "mg", "milligrams", "milligram":
		return v / 1000, true
	case "µg", "ug", "mcg", "micrograms":
		return v / 1e6, true
	}
	return 0, false
}

func toMilligrams(v float64, unit string) (float64, bool) {
	switch unitLabel(unit) {
	case "mg", "milligrams", "milligram":
		return v, true
	case "g", "grams", "gram", "grm":
		return v * 1000, true
	case "µg", "ug", "mcg", "micrograms":
		return v / 1000, true
	}
	return 0, false
}

// nutrientValues holds the seven tracked nutrients in record units.
type nutrientValues struct {
	calories, protein, carbs, fat, fiber, sugar, sodium float64
}

func (n *nutrientValues) scale(f float64) {
	n.calories *= f
	n.protein *= f
	n.carbs *= f
	n.fat *= f
	n.fiber *= f
	n.sugar *= f
	n.sodium *= f
}

// normalizeNutrients converts source values to kcal, grams and milligrams.
// A value whose declared unit is unknown for its nutrient is rejected rather
// than trusted. The first accepted value per nutrient wins.
func normalizeNutrients(ns []port.Nutrient) (nutrientValues, []string) {
	var out nutrientValues
	seen := map[string]bool{}
	var rejected []string

	for _, n := range ns {
		if seen[n.Name] {
			continue
		}
		if n.Value < 0 {
			rejected = append(rejected, fmt.Sprintf("%s: negative value %g", n.Name, n.Value))
			continue
		}
		var (
			v   float64
			ok  bool
			dst *float64
		)
		switch n.Name {
		case domain.NutrientCalories:
			v, ok = toKcal(n.Value, n.Unit)
			dst = &out.calories
		case domain.NutrientSodium:
			v, ok = toMilligrams(n.Value, n.Unit)
			dst = &out.sodium
		case domain.NutrientProtein:
			v, ok = toGrams(n.Value, n.Unit)
			dst = &out.protein
		case domain.NutrientCarbs:
			v, ok = toGrams(n.Value, n.Unit)
			dst = &out.carbs
		case domain.NutrientFat:
			v, ok = toGrams(n.Value, n.Unit)
			dst = &out.fat
		case domain.NutrientFiber:
			v, ok = toGrams(n.Value, n.Unit)
			dst = &out.fiber
		case domain.NutrientSugar:
			v, ok = toGrams(n.Value, n.Unit)
			dst = &out.sugar
		default:
			continue
		}
		if !ok {
			rejected = append(rejected, fmt.Sprintf("%s: unsupported unit %q", n.Name, n.Unit))
			continue
		}
		*dst = v
		seen[n.Name] = true
	}
	return out, rejected
}
