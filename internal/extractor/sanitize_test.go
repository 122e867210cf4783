package extractor_test

import (
	"strings"
	"testing"

	"github.com/jaswdr/faker"
	"github.com/stretchr/testify/assert"

	"mealmail/internal/extractor"
)

func TestSanitizeRestaurant_CleanNameIsIdempotent(t *testing.T) {
	once, ok := extractor.SanitizeRestaurant("McDonald's")
	assert.True(t, ok)
	assert.Equal(t, "McDonald's", once)

	twice, ok := extractor.SanitizeRestaurant(once)
	assert.True(t, ok)
	assert.Equal(t, once, twice)
}

func TestSanitizeRestaurant_IdempotentOnGeneratedNames(t *testing.T) {
	fake := faker.New()
	for i := 0; i < 200; i++ {
		raw := fake.Company().Name()
		switch i % 3 {
		case 1:
			raw = "Paid with Apple Pay " + raw
		case 2:
			raw = " - " + raw + " with Google Pay -"
		}
		once, _ := extractor.SanitizeRestaurant(raw)
		twice, _ := extractor.SanitizeRestaurant(once)
		assert.Equal(t, once, twice, "input %q", raw)
	}
}

func TestSanitizeRestaurant_StripsPaymentTokens(t *testing.T) {
	got, ok := extractor.SanitizeRestaurant("with Apple Pay with Chipotle")
	assert.True(t, ok)
	assert.Equal(t, "Chipotle", got)
}

func TestSanitizeRestaurant_KeepsWordsContainingTokens(t *testing.T) {
	got, ok := extractor.SanitizeRestaurant("Withers Diner")
	assert.True(t, ok)
	assert.Equal(t, "Withers Diner", got)
}

func TestSanitizeRestaurant_RejectsTotalPrefix(t *testing.T) {
	_, ok := extractor.SanitizeRestaurant("Total: $12.00")
	assert.False(t, ok)
}

func TestSanitizeRestaurant_LengthWindow(t *testing.T) {
	_, ok := extractor.SanitizeRestaurant("KF")
	assert.False(t, ok)

	_, ok = extractor.SanitizeRestaurant(strings.Repeat("a", 50))
	assert.False(t, ok)

	_, ok = extractor.SanitizeRestaurant(strings.Repeat("a", 49))
	assert.True(t, ok)
}
