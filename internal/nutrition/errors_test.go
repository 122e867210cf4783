package nutrition_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealmail/internal/config"
	"mealmail/internal/nutrition"
	"mealmail/internal/port"
	"mealmail/mocks"
)

func TestNewRateLimitError_DefaultsToSixtySeconds(t *testing.T) {
	err := nutrition.NewRateLimitError("usda", errors.New("429"), 0)
	assert.Equal(t, 60*time.Second, err.RetryAfter)
	assert.Contains(t, err.Error(), "usda rate limited")
	assert.EqualError(t, errors.Unwrap(err), "429")
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, nutrition.ParseRetryAfterHeader(""))
	assert.Equal(t, 30, nutrition.ParseRetryAfterHeader(" 30 "))
	assert.Equal(t, 0, nutrition.ParseRetryAfterHeader("soon"))
	assert.Equal(t, 0, nutrition.ParseRetryAfterHeader(time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)))

	future := nutrition.ParseRetryAfterHeader(time.Now().Add(2 * time.Minute).UTC().Format(http.TimeFormat))
	assert.InDelta(t, 120, future, 2)
}

func TestNewSource_UnknownProvider(t *testing.T) {
	_, err := nutrition.NewSource(&config.SourceConfig{Provider: "nope"})
	assert.EqualError(t, err, "unknown nutrition source: nope")
}

func TestRegisterSource(t *testing.T) {
	nutrition.RegisterSource("test-source", func(cfg *config.SourceConfig) (port.NutritionSource, error) {
		return &mocks.MockNutritionSource{SourceName: cfg.Provider}, nil
	})

	src, err := nutrition.NewSource(&config.SourceConfig{Provider: "test-source"})
	require.NoError(t, err)
	assert.Equal(t, "test-source", src.Name())
	assert.Contains(t, nutrition.RegisteredSources(), "test-source")
}

func TestTiersFromConfig(t *testing.T) {
	nutrition.RegisterSource("tier-a", func(cfg *config.SourceConfig) (port.NutritionSource, error) {
		return &mocks.MockNutritionSource{SourceName: cfg.Provider}, nil
	})
	nutrition.RegisterSource("tier-b", func(cfg *config.SourceConfig) (port.NutritionSource, error) {
		return &mocks.MockNutritionSource{SourceName: cfg.Provider}, nil
	})

	tiers, err := nutrition.TiersFromConfig(&config.NutritionConfig{
		Primary:   config.SourceConfig{Provider: "tier-a", BackoffMillis: 100},
		Secondary: config.SourceConfig{Provider: "tier-b", BackoffMillis: 200},
	})
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, "tier-a", tiers[0].Source.Name())
	assert.Equal(t, 100*time.Millisecond, tiers[0].Backoff)
	assert.Equal(t, nutrition.PrimaryWeights(), tiers[0].Weights)
	assert.Equal(t, "tier-b", tiers[1].Source.Name())
	assert.Equal(t, 200*time.Millisecond, tiers[1].Backoff)

	tiers, err = nutrition.TiersFromConfig(&config.NutritionConfig{Primary: config.SourceConfig{Provider: "tier-a"}})
	require.NoError(t, err)
	assert.Len(t, tiers, 1)

	_, err = nutrition.TiersFromConfig(&config.NutritionConfig{
		Primary:   config.SourceConfig{Provider: "tier-a"},
		Secondary: config.SourceConfig{Provider: "missing"},
	})
	assert.ErrorContains(t, err, "secondary source")
}
