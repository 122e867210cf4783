package port

import "context"

// NutrientBasis states what quantity a candidate's nutrient values refer to.
type NutrientBasis string

const (
	// BasisServing values describe one serving as sold.
	BasisServing NutrientBasis = "serving"
	// BasisReference values describe ReferenceGrams of the food (usually 100 g).
	BasisReference NutrientBasis = "reference"
)

// Nutrient is one reported value with the unit label the source declared.
type Nutrient struct {
	Name  string
	Value float64
	Unit  string
}

// Portion is a named serving weight reported by a source.
type Portion struct {
	Description string
	GramWeight  float64
}

// FoodCandidate is one search hit from a nutrition source.
type FoodCandidate struct {
	ID          string
	Description string
	Brand       string
	DataType    string
	Grade       string
	Nutrients   []Nutrient

	Basis          NutrientBasis
	ReferenceGrams float64
	// ServingGrams is the serving weight from the entry's metadata, 0 when unknown.
	ServingGrams float64
	Portions     []Portion
	// NeedsPortionLookup asks the resolver to fetch portions by ID when none of
	// the search-result portions identify a serving.
	NeedsPortionLookup bool
}

// NutritionSource searches an external food database by free text.
type NutritionSource interface {
	Name() string
	Search(ctx context.Context, query string) ([]FoodCandidate, error)
}

// PortionLookup is implemented by sources that can fetch serving portions for
// a single entry by ID.
type PortionLookup interface {
	Portions(ctx context.Context, id string) ([]Portion, error)
}
