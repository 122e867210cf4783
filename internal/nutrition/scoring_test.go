package nutrition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mealmail/internal/nutrition"
	"mealmail/internal/port"
)

func TestScore_PrimaryBrandExactAndWords(t *testing.T) {
	c := port.FoodCandidate{Description: "McDONALD'S, Big Mac", Brand: ""}
	score, reasons := nutrition.PrimaryWeights().Score(c, "McDonald's", "big mac")
	// brand 10 + exact 8 + 2 words * 2
	assert.Equal(t, 22.0, score)
	assert.Len(t, reasons, 4)
}

func TestScore_BrandMatchIgnoresPossessive(t *testing.T) {
	c := port.FoodCandidate{Description: "Mcdonalds McChicken", Brand: "Mcdonalds"}
	score, _ := nutrition.PrimaryWeights().Score(c, "McDonald's", "mcchicken")
	assert.Equal(t, 20.0, score)
}

func TestScore_PlaceholderRestaurantNeverMatchesBrand(t *testing.T) {
	c := port.FoodCandidate{Description: "unknown restaurant special"}
	score, _ := nutrition.PrimaryWeights().Score(c, "Unknown Restaurant", "burrito")
	assert.Zero(t, score)
}

func TestScore_SecondaryDietLowCalorieBonus(t *testing.T) {
	c := port.FoodCandidate{
		Description: "Coca-Cola Light",
		Nutrients:   []port.Nutrient{{Name: "calories", Value: 0.4, Unit: "kcal"}},
	}
	score, _ := nutrition.SecondaryWeights().Score(c, "", "diet coke")
	// diet/light 12 + low calorie 5; "coke" is not in "coca-cola light"
	assert.Equal(t, 17.0, score)
}

func TestScore_PrimaryDietHighCaloriePenalty(t *testing.T) {
	c := port.FoodCandidate{
		Description: "Cola, regular",
		Nutrients:   []port.Nutrient{{Name: "calories", Value: 42, Unit: "kcal"}, {Name: "calories", Value: 900, Unit: "kJ"}},
	}
	score, _ := nutrition.PrimaryWeights().Score(c, "", "diet cola")
	// first calories entry (42 kcal) is under the 50 kcal ceiling; word "cola" +2
	assert.Equal(t, 2.0, score)

	c.Nutrients = []port.Nutrient{{Name: "calories", Value: 600, Unit: "kJ"}}
	score, _ = nutrition.PrimaryWeights().Score(c, "", "diet cola")
	// 600 kJ = 143 kcal -> -10 penalty
	assert.Equal(t, -8.0, score)
}

func TestConfidence_Formula(t *testing.T) {
	assert.InDelta(t, 0.78, nutrition.SecondaryWeights().Confidence(7), 1e-9)
	assert.InDelta(t, 0.85, nutrition.SecondaryWeights().Confidence(50), 1e-9)
	assert.InDelta(t, 0.82, nutrition.PrimaryWeights().Confidence(4), 1e-9)
}

func TestQueryVariants(t *testing.T) {
	assert.Equal(t, []string{
		"mcdonalds mcdouble",
		"mcdonald mcdouble",
		"mcdouble",
		"mcdouble mcdonald",
	}, nutrition.QueryVariants("McDonald's", "mcdouble"))

	assert.Equal(t, []string{
		"five guys burger",
		"burger",
		"burger five guys",
	}, nutrition.QueryVariants("Five Guys", "burger"))

	assert.Equal(t, []string{"fries"}, nutrition.QueryVariants("Unknown Restaurant", "fries"))
	assert.Nil(t, nutrition.QueryVariants("Chipotle", "  "))
}

func TestCacheKey_Normalized(t *testing.T) {
	assert.Equal(t,
		nutrition.CacheKey("McDonald's", "McDouble®", 2),
		nutrition.CacheKey("  mcdonald's ", "mcdouble (sandwich)", 2))
	assert.NotEqual(t, nutrition.CacheKey("A&W", "root beer", 1), nutrition.CacheKey("A&W", "root beer", 2))
}

func TestEstimateServingGrams(t *testing.T) {
	cases := map[string]float64{
		"diet coke":               355,
		"large sprite":            355,
		"medium french fries":     115,
		"big mac":                 230,
		"mcdouble":                165,
		"spicy chicken sandwich":  200,
		"10 pc chicken mcnuggets": 16,
		"baked apple pie":         77,
		"bacon burger":            150,
		"caesar salad":            nutrition.DefaultServingGrams,
	}
	for name, want := range cases {
		assert.Equal(t, want, nutrition.EstimateServingGrams(name), name)
	}
}
