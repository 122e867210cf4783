package domain

// Service identifies the food-delivery platform that sent an order email.
type Service string

const (
	ServiceDoorDash Service = "doordash"
	ServiceUberEats Service = "ubereats"
	ServiceGrubhub  Service = "grubhub"
	ServiceUnknown  Service = "unknown"
)

// NutritionSource identifies which tier of nutrition data produced a record.
type NutritionSource string

const (
	SourcePrimary   NutritionSource = "primary-db"
	SourceSecondary NutritionSource = "secondary-db"
	SourceUnknown   NutritionSource = "unknown"
)

// Nutrient field names used in unit maps and source payloads.
const (
	NutrientCalories = "calories"
	NutrientProtein  = "protein"
	NutrientCarbs    = "carbs"
	NutrientFat      = "fat"
	NutrientFiber    = "fiber"
	NutrientSugar    = "sugar"
	NutrientSodium   = "sodium"
)

// Nutrient unit labels reported on every record.
const (
	UnitKcal       = "kcal"
	UnitGrams      = "grams"
	UnitMilligrams = "milligrams"
)

// DefaultUnits returns the unit label for each nutrient field of a NutritionRecord.
func DefaultUnits() map[string]string {
	return map[string]string{
		NutrientCalories: UnitKcal,
		NutrientProtein:  UnitGrams,
		NutrientCarbs:    UnitGrams,
		NutrientFat:      UnitGrams,
		NutrientFiber:    UnitGrams,
		NutrientSugar:    UnitGrams,
		NutrientSodium:   UnitMilligrams,
	}
}
