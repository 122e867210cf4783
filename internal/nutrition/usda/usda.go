// Package usda implements a nutrition source backed by USDA FoodData Central.
package usda

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
	apiBaseURL      = "https://api.nal.usda.gov/fdc/v1"
	defaultPageSize = 25
	surveyDataType  = "Survey (FNDDS)"
	referenceGrams  = 100.0
)

var dataTypes = []string{surveyDataType, "Branded", "SR Legacy", "Foundation"}

// nutrientIDs maps FoodData Central nutrient numbers to record fields.
var nutrientIDs = map[int]string{
	1008: domain.NutrientCalories,
	2047: domain.NutrientCalories,
	2048: domain.NutrientCalories,
	1003: domain.NutrientProtein,
	1005: domain.NutrientCarbs,
	1004: domain.NutrientFat,
	1079: domain.NutrientFiber,
	2000: domain.NutrientSugar,
	1093: domain.NutrientSodium,
}

func init() {
	nutrition.RegisterSource("usda", func(cfg *config.SourceConfig) (port.NutritionSource, error) {
		return NewSource(cfg), nil
	})
}

// Source implements port.NutritionSource and port.PortionLookup.
type Source struct {
	apiKey   string
	baseURL  string
	pageSize int
	client   *http.Client
}

// NewSource creates a FoodData Central source.
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
		apiKey:   cfg.APIKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *Source) Name() string { return "usda" }

// Search queries /foods/search. All values are reported per 100 g.
func (s *Source) Search(ctx context.Context, query string) ([]port.FoodCandidate, error) {
	params := url.Values{}
	params.Set("api_key", s.apiKey)
	params.Set("query", query)
	params.Set("pageSize", strconv.Itoa(s.pageSize))
	for _, dt := range dataTypes {
		params.Add("dataType", dt)
	}

	var resp searchResponse
	if err := s.get(ctx, s.baseURL+"/foods/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	out := make([]port.FoodCandidate, 0, len(resp.Foods))
	for _, f := range resp.Foods {
		out = append(out, f.toCandidate())
	}
	return out, nil
}

// Portions fetches the serving portions of a single food by FDC ID.
func (s *Source) Portions(ctx context.Context, id string) ([]port.Portion, error) {
	params := url.Values{}
	params.Set("api_key", s.apiKey)

	var resp foodDetail
	if err := s.get(ctx, s.baseURL+"/food/"+url.PathEscape(id)+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	out := make([]port.Portion, 0, len(resp.FoodPortions))
	for _, p := range resp.FoodPortions {
		out = append(out, p.toPortion())
	}
	return out, nil
}

func (s *Source) get(ctx context.Context, endpoint string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling usda API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := nutrition.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return nutrition.NewRateLimitError("usda", errors.New(string(body)), retryAfter)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("usda API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decoding usda response: %w", err)
	}
	return nil
}

type searchResponse struct {
	TotalHits int    `json:"totalHits"`
	Foods     []food `json:"foods"`
}

type food struct {
	FdcID           int            `json:"fdcId"`
	Description     string         `json:"description"`
	DataType        string         `json:"dataType"`
	BrandName       string         `json:"brandName"`
	BrandOwner      string         `json:"brandOwner"`
	ServingSize     float64        `json:"servingSize"`
	ServingSizeUnit string         `json:"servingSizeUnit"`
	FoodNutrients   []foodNutrient `json:"foodNutrients"`
	FoodPortions    []foodPortion  `json:"foodPortions"`
	FoodMeasures    []foodMeasure  `json:"foodMeasures"`
}

type foodNutrient struct {
	NutrientID   int     `json:"nutrientId"`
	NutrientName string  `json:"nutrientName"`
	UnitName     string  `json:"unitName"`
	Value        float64 `json:"value"`
}

type foodPortion struct {
	PortionDescription string  `json:"portionDescription"`
	Modifier           string  `json:"modifier"`
	GramWeight         float64 `json:"gramWeight"`
}

func (p foodPortion) toPortion() port.Portion {
	desc := p.PortionDescription
	if desc == "" {
		desc = p.Modifier
	}
	return port.Portion{Description: desc, GramWeight: p.GramWeight}
}

type foodMeasure struct {
	DisseminationText string  `json:"disseminationText"`
	GramWeight        float64 `json:"gramWeight"`
}

type foodDetail struct {
	FdcID        int           `json:"fdcId"`
	Description  string        `json:"description"`
	FoodPortions []foodPortion `json:"foodPortions"`
}

func (f food) toCandidate() port.FoodCandidate {
	c := port.FoodCandidate{
		ID:                 strconv.Itoa(f.FdcID),
		Description:        f.Description,
		Brand:              f.BrandName,
		DataType:           f.DataType,
		Basis:              port.BasisReference,
		ReferenceGrams:     referenceGrams,
		NeedsPortionLookup: f.DataType == surveyDataType,
	}
	if c.Brand == "" {
		c.Brand = f.BrandOwner
	}
	if f.FdcID == 0 {
		c.ID = ""
	}

	switch strings.ToLower(f.ServingSizeUnit) {
	case "g", "grm", "ml", "mlt":
		c.ServingGrams = f.ServingSize
	}

	for _, n := range f.FoodNutrients {
		name, ok := nutrientIDs[n.NutrientID]
		if !ok {
			continue
		}
		c.Nutrients = append(c.Nutrients, port.Nutrient{Name: name, Value: n.Value, Unit: n.UnitName})
	}
	for _, p := range f.FoodPortions {
		c.Portions = append(c.Portions, p.toPortion())
	}
	for _, m := range f.FoodMeasures {
		c.Portions = append(c.Portions, port.Portion{Description: m.DisseminationText, GramWeight: m.GramWeight})
	}
	return c
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
