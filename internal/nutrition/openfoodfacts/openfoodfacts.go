// Package openfoodfacts implements a nutrition source backed by the Open Food
// Facts product database. Values are reported per 100 g.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mealmail/internal/config"
	"mealmail/internal/domain"
	"mealmail/internal/nutrition"
	"mealmail/internal/port"
)

const (
	apiBaseURL      = "https://world.openfoodfacts.net/api/v2"
	defaultPageSize = 20
	userAgent       = "mealmail/1.0 (nutrition lookup)"
	referenceGrams  = 100.0

	// saltToSodium is the mass ratio of sodium chloride to sodium.
	saltToSodium = 2.54
)

var searchFields = strings.Join([]string{
	"code", "product_name", "generic_name", "brands", "nutriments",
	"nutrition_grades", "serving_quantity", "serving_quantity_unit",
}, ",")

func init() {
	nutrition.RegisterSource("openfoodfacts", func(cfg *config.SourceConfig) (port.NutritionSource, error) {
		return NewSource(cfg), nil
	})
}

// Source implements port.NutritionSource.
type Source struct {
	baseURL  string
	pageSize int
	client   *http.Client
}

// NewSource creates an Open Food Facts source.
func NewSource(cfg *config.SourceConfig) *Source {
	return newSource(cfg, "")
}

// NewSourceWithEndpoint creates a source pointing at a custom API base URL (for testing).
func NewSourceWithEndpoint(cfg *config.SourceConfig, baseURL string) *Source {
	return newSource(cfg, baseURL)
}

func newSource(cfg *config.SourceConfig, baseURL string) *Source {
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	if baseURL == "" {
		baseURL = apiBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Source{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *Source) Name() string { return "openfoodfacts" }

func (s *Source) Search(ctx context.Context, query string) ([]port.FoodCandidate, error) {
	params := url.Values{}
	params.Set("search_terms", query)
	params.Set("search_simple", "1")
	params.Set("action", "process")
	params.Set("page_size", strconv.Itoa(s.pageSize))
	params.Set("fields", searchFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/search?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling openfoodfacts API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := nutrition.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return nil, nutrition.NewRateLimitError("openfoodfacts", errors.New(string(body)), retryAfter)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openfoodfacts API error (status %d)", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decoding openfoodfacts response: %w", err)
	}

	out := make([]port.FoodCandidate, 0, len(sr.Products))
	for _, p := range sr.Products {
		out = append(out, p.toCandidate())
	}
	return out, nil
}

type searchResponse struct {
	Count    int       `json:"count"`
	Products []product `json:"products"`
}

type product struct {
	Code                string                 `json:"code"`
	ProductName         string                 `json:"product_name"`
	GenericName         string                 `json:"generic_name"`
	Brands              string                 `json:"brands"`
	NutritionGrades     string                 `json:"nutrition_grades"`
	ServingQuantity     interface{}            `json:"serving_quantity"`
	ServingQuantityUnit string                 `json:"serving_quantity_unit"`
	Nutriments          map[string]interface{} `json:"nutriments"`
}

// number reads a nutriment that may be encoded as a JSON number or string.
func number(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func (p product) nutriment(key string) (float64, bool) {
	v, ok := p.Nutriments[key]
	if !ok {
		return 0, false
	}
	return number(v)
}

func (p product) toCandidate() port.FoodCandidate {
	name := p.ProductName
	if name == "" {
		name = p.GenericName
	}
	c := port.FoodCandidate{
		ID:             p.Code,
		Description:    name,
		Brand:          p.Brands,
		Grade:          p.NutritionGrades,
		Basis:          port.BasisReference,
		ReferenceGrams: referenceGrams,
	}

	if q, ok := number(p.ServingQuantity); ok && q > 0 {
		switch strings.ToLower(p.ServingQuantityUnit) {
		case "", "g", "ml":
			c.ServingGrams = q
		}
	}

	add := func(name string, value float64, unit string) {
		c.Nutrients = append(c.Nutrients, port.Nutrient{Name: name, Value: value, Unit: unit})
	}

	if v, ok := p.nutriment("energy-kcal_100g"); ok && v > 0 {
		add(domain.NutrientCalories, v, "kcal")
	} else if v, ok := p.nutriment("energy-kj_100g"); ok && v > 0 {
		add(domain.NutrientCalories, v, "kJ")
	} else if v, ok := p.nutriment("energy_100g"); ok && v > 0 {
		unit, _ := p.Nutriments["energy_unit"].(string)
		if unit == "" {
			unit = "kJ"
		}
		add(domain.NutrientCalories, v, unit)
	}

	grams := []struct{ key, name string }{
		{"proteins_100g", domain.NutrientProtein},
		{"carbohydrates_100g", domain.NutrientCarbs},
		{"fat_100g", domain.NutrientFat},
		{"fiber_100g", domain.NutrientFiber},
		{"sugars_100g", domain.NutrientSugar},
	}
	for _, g := range grams {
		if v, ok := p.nutriment(g.key); ok {
			add(g.name, v, "g")
		}
	}

	if v, ok := p.nutriment("sodium_100g"); ok && v > 0 {
		add(domain.NutrientSodium, v, "g")
	} else if v, ok := p.nutriment("salt_100g"); ok && v > 0 {
		add(domain.NutrientSodium, v/saltToSodium, "g")
	}
	return c
}
