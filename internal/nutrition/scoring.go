package nutrition

import (
	"fmt"
	"math"
	"strings"

	"mealmail/internal/domain"
	"mealmail/internal/port"
	"mealmail/internal/textnorm"
)

// ScoringWeights is the tunable heuristic table used to rank candidates from
// one source tier.
type ScoringWeights struct {
	// Brand is added when the restaurant appears in the description or brand.
	Brand float64
	// DietMatch is added when a diet query hits a candidate carrying a DietCandidateTerms word.
	DietMatch float64
	// HighCaloriePenalty is subtracted when a diet query hits a candidate above DietCalorieCeiling kcal.
	HighCaloriePenalty float64
	DietCalorieCeiling float64
	// LowCalorieBonus is added when a diet query hits a candidate below LowCalorieThreshold kcal.
	LowCalorieBonus     float64
	LowCalorieThreshold float64
	// ExactName is added when the whole normalized item name occurs in the description.
	ExactName float64
	// Word is added per item-name word found in the description.
	Word float64

	DietQueryTerms     []string
	DietCandidateTerms []string

	// Confidence is min(ConfidenceCap, ConfidenceBase + score*ConfidencePerPoint).
	ConfidenceBase     float64
	ConfidencePerPoint float64
	ConfidenceCap      float64

	// MaxCandidates limits how many search hits are scored.
	MaxCandidates int
}

// PrimaryWeights returns the weights tuned for the primary (government) database.
func PrimaryWeights() ScoringWeights {
	return ScoringWeights{
		Brand:              10,
		DietMatch:          15,
		HighCaloriePenalty: 10,
		DietCalorieCeiling: 50,
		ExactName:          8,
		Word:               2,
		DietQueryTerms:     []string{"diet", "zero"},
		DietCandidateTerms: []string{"diet", "zero"},
		ConfidenceBase:     0.7,
		ConfidencePerPoint: 0.03,
		ConfidenceCap:      0.95,
		MaxCandidates:      10,
	}
}

// SecondaryWeights returns the weights tuned for the secondary (crowdsourced) database.
func SecondaryWeights() ScoringWeights {
	return ScoringWeights{
		Brand:               8,
		DietMatch:           12,
		LowCalorieBonus:     5,
		LowCalorieThreshold: 5,
		ExactName:           6,
		Word:                1,
		DietQueryTerms:      []string{"diet", "zero"},
		DietCandidateTerms:  []string{"diet", "zero", "light"},
		ConfidenceBase:      0.5,
		ConfidencePerPoint:  0.04,
		ConfidenceCap:       0.85,
		MaxCandidates:       10,
	}
}

// Confidence maps a positive score to [0, ConfidenceCap].
func (w ScoringWeights) Confidence(score float64) float64 {
	c := math.Min(w.ConfidenceCap, w.ConfidenceBase+score*w.ConfidencePerPoint)
	return math.Max(0, math.Min(1, c))
}

// Score rates a candidate against the normalized item name. The reasons list
// names every rule that contributed.
func (w ScoringWeights) Score(c port.FoodCandidate, restaurant, name string) (float64, []string) {
	desc := textnorm.NormalizeFoodName(c.Description)
	brand := textnorm.NormalizeRestaurant(c.Brand)

	var score float64
	var reasons []string
	add := func(delta float64, reason string) {
		score += delta
		reasons = append(reasons, fmt.Sprintf("%+g %s", delta, reason))
	}

	if brandMatches(restaurant, desc, brand) {
		add(w.Brand, "brand")
	}

	if containsAny(name, w.DietQueryTerms) {
		if containsAny(desc, w.DietCandidateTerms) {
			add(w.DietMatch, "diet")
		}
		kcal := candidateCalories(c)
		if w.HighCaloriePenalty != 0 && kcal > w.DietCalorieCeiling {
			add(-w.HighCaloriePenalty, "diet high-calorie")
		}
		if w.LowCalorieBonus != 0 && kcal < w.LowCalorieThreshold {
			add(w.LowCalorieBonus, "diet low-calorie")
		}
	}

	if name != "" && strings.Contains(desc, name) {
		add(w.ExactName, "exact name")
	}
	for _, word := range strings.Fields(name) {
		if strings.Contains(desc, word) {
			add(w.Word, "word "+word)
		}
	}
	return score, reasons
}

func brandMatches(restaurant, desc, brand string) bool {
	key := restaurantKey(restaurant)
	if key == "" {
		return false
	}
	if strings.Contains(desc, key) || strings.Contains(brand, key) {
		return true
	}
	bare := textnorm.StripPossessive(restaurant)
	if len(bare) < 3 {
		return false
	}
	squash := func(s string) string { return strings.ReplaceAll(s, "'", "") }
	return strings.Contains(squash(desc), bare) || strings.Contains(squash(brand), bare)
}

// candidateCalories returns the candidate's reported energy in kcal, or 0.
func candidateCalories(c port.FoodCandidate) float64 {
	for _, n := range c.Nutrients {
		if n.Name != domain.NutrientCalories {
			continue
		}
		if v, ok := toKcal(n.Value, n.Unit); ok {
			return v
		}
	}
	return 0
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}
