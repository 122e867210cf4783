// Package nutritionix implements a nutrition source backed by the Nutritionix
// natural-language nutrients endpoint. Values are reported per serving.
package nutritionix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mealmail/internal/config"
	"mealmail/internal/domain"
	"mealmail/internal/nutrition"
	"mealmail/internal/port"
)

const apiBaseURL = "https://trackapi.nutritionix.com"

func init() {
	nutrition.RegisterSource("nutritionix", func(cfg *config.SourceConfig) (port.NutritionSource, error) {
		if cfg.AppID == "" || cfg.APIKey == "" {
			return nil, fmt.Errorf("nutritionix requires app_id and api_key")
		}
		return NewSource(cfg), nil
	})
}

// Source implements port.NutritionSource.
type Source struct {
	appID    string
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewSource creates a Nutritionix source.
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
	return &Source{
		appID:    cfg.AppID,
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimRight(baseURL, "/") + "/v2/natural/nutrients",
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *Source) Name() string { return "nutritionix" }

func (s *Source) Search(ctx context.Context, query string) ([]port.FoodCandidate, error) {
	bodyBytes, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-app-id", s.appID)
	req.Header.Set("x-app-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling nutritionix API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// "We couldn't match any of your foods"
		return []port.FoodCandidate{}, nil
	case http.StatusTooManyRequests:
		retryAfter := nutrition.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return nil, nutrition.NewRateLimitError("nutritionix", errors.New(string(respBody)), retryAfter)
	default:
		return nil, fmt.Errorf("nutritionix API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var nr naturalResponse
	if err := json.Unmarshal(respBody, &nr); err != nil {
		return nil, fmt.Errorf("decoding nutritionix response: %w", err)
	}

	out := make([]port.FoodCandidate, 0, len(nr.Foods))
	for _, f := range nr.Foods {
		out = append(out, f.toCandidate())
	}
	return out, nil
}

type naturalResponse struct {
	Foods []naturalFood `json:"foods"`
}

type naturalFood struct {
	FoodName           string   `json:"food_name"`
	BrandName          string   `json:"brand_name"`
	NixItemID          string   `json:"nix_item_id"`
	ServingQty         float64  `json:"serving_qty"`
	ServingUnit        string   `json:"serving_unit"`
	ServingWeightGrams float64  `json:"serving_weight_grams"`
	Calories           *float64 `json:"nf_calories"`
	TotalFat           *float64 `json:"nf_total_fat"`
	TotalCarbohydrate  *float64 `json:"nf_total_carbohydrate"`
	DietaryFiber       *float64 `json:"nf_dietary_fiber"`
	Sugars             *float64 `json:"nf_sugars"`
	Protein            *float64 `json:"nf_protein"`
	Sodium             *float64 `json:"nf_sodium"`
}

func (f naturalFood) toCandidate() port.FoodCandidate {
	c := port.FoodCandidate{
		ID:           f.NixItemID,
		Description:  f.FoodName,
		Brand:        f.BrandName,
		DataType:     "natural",
		Basis:        port.BasisServing,
		ServingGrams: f.ServingWeightGrams,
	}
	fields := []struct {
		v    *float64
		name string
		unit string
	}{
		{f.Calories, domain.NutrientCalories, "kcal"},
		{f.Protein, domain.NutrientProtein, "g"},
		{f.TotalCarbohydrate, domain.NutrientCarbs, "g"},
		{f.TotalFat, domain.NutrientFat, "g"},
		{f.DietaryFiber, domain.NutrientFiber, "g"},
		{f.Sugars, domain.NutrientSugar, "g"},
		{f.Sodium, domain.NutrientSodium, "mg"},
	}
	for _, fl := range fields {
		if fl.v != nil {
			c.Nutrients = append(c.Nutrients, port.Nutrient{Name: fl.name, Value: *fl.v, Unit: fl.unit})
		}
	}
	return c
}
