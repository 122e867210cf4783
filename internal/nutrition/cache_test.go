package nutrition_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mealmail/internal/domain"
	"mealmail/internal/nutrition"
	"mealmail/mocks"
)

func TestCache_LoadAndWriteThrough(t *testing.T) {
	store := new(mocks.MockCacheStore)
	store.On("LoadAll", mock.Anything).Return(map[string]*domain.NutritionRecord{
		"k1": {Calories: 100, Units: domain.DefaultUnits()},
	}, nil)
	store.On("Put", mock.Anything, "k2", mock.Anything).Return(nil)

	c := nutrition.NewCache(store)
	require.NoError(t, c.Load(context.Background()))

	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, 100.0, got.Calories)

	c.Put(context.Background(), "k2", &domain.NutritionRecord{Calories: 5})
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Persistent())
	store.AssertExpectations(t)
}

func TestCache_WriteFailureDisablesPersistence(t *testing.T) {
	store := new(mocks.MockCacheStore)
	store.On("Put", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()

	c := nutrition.NewCache(store)
	c.Put(context.Background(), "a", &domain.NutritionRecord{Calories: 1})
	c.Put(context.Background(), "b", &domain.NutritionRecord{Calories: 2})

	assert.False(t, c.Persistent())
	assert.Equal(t, 2, c.Len())
	store.AssertNumberOfCalls(t, "Put", 1)
}

func TestCache_LoadFailureFallsBackToMemory(t *testing.T) {
	store := new(mocks.MockCacheStore)
	store.On("LoadAll", mock.Anything).Return(nil, errors.New("no such table"))

	c := nutrition.NewCache(store)
	assert.Error(t, c.Load(context.Background()))
	assert.False(t, c.Persistent())

	c.Put(context.Background(), "a", &domain.NutritionRecord{})
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := nutrition.NewCache(nil)
	rec := &domain.NutritionRecord{Calories: 10, Units: domain.DefaultUnits()}
	c.Put(context.Background(), "k", rec)

	rec.Calories = 99
	rec.Units[domain.NutrientSodium] = "grams"

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 10.0, got.Calories)
	assert.Equal(t, domain.UnitMilligrams, got.Units[domain.NutrientSodium])
}

func TestValidate(t *testing.T) {
	rec := &domain.NutritionRecord{Calories: 4500, Protein: 250, Sodium: 11000}
	warnings := nutrition.Validate(rec, "Family Feast", 2)
	assert.Len(t, warnings, 3)

	assert.Empty(t, nutrition.Validate(&domain.NutritionRecord{Calories: 8}, "Coke Zero", 1))
	assert.Len(t, nutrition.Validate(&domain.NutritionRecord{Calories: 25}, "Coke Zero", 2), 1)
	assert.Nil(t, nutrition.Validate(nil, "x", 1))
}
