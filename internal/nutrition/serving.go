package nutrition

import (
	"strings"

	"mealmail/internal/port"
)

// DefaultServingGrams is used when no serving keyword matches.
const DefaultServingGrams = 100.0

// servingEstimates is checked in order; the first keyword contained in the
// normalized item name wins.
var servingEstimates = []struct {
	keyword string
	grams   float64
}{
	{"diet coke", 355}, {"coke", 355}, {"coca cola", 355},
	{"pepsi", 355}, {"sprite", 355}, {"dr pepper", 355},
	{"drink", 355}, {"beverage", 355}, {"soda", 355},
	{"french fries", 115},
	{"big mac", 230}, {"quarter pounder", 200}, {"mcdouble", 165},
	{"chicken sandwich", 200}, {"spicy crispy chicken sandwich", 200},
	{"mcchicken", 143}, {"chicken mcnuggets", 16},
	{"apple pie", 77}, {"hash brown", 56},
	{"burger", 150}, {"sandwich", 150}, {"fries", 115},
	{"nuggets", 16}, {"pie", 77},
}

// portionKeywords identify a source portion that describes one item as sold.
var portionKeywords = []string{"cheeseburger", "sandwich", "piece", "double"}

// EstimateServingGrams guesses the serving weight of a normalized item name.
func EstimateServingGrams(name string) float64 {
	for _, e := range servingEstimates {
		if strings.Contains(name, e.keyword) {
			return e.grams
		}
	}
	return DefaultServingGrams
}

// portionServing picks the first portion whose description names a single
// serving and whose weight differs from the reference weight.
func portionServing(portions []port.Portion, reference float64) (port.Portion, bool) {
	for _, p := range portions {
		if p.GramWeight <= 0 || p.GramWeight == reference {
			continue
		}
		desc := strings.ToLower(p.Description)
		if containsAny(desc, portionKeywords) {
			return p, true
		}
	}
	return port.Portion{}, false
}
