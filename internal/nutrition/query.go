package nutrition

import (
	"fmt"
	"strings"

	"mealmail/internal/textnorm"
)

// placeholderRestaurants carry no brand information.
var placeholderRestaurants = map[string]bool{
	"":                   true,
	"unknown":            true,
	"unknown restaurant": true,
}

func restaurantKey(restaurant string) string {
	key := textnorm.NormalizeRestaurant(restaurant)
	if placeholderRestaurants[key] {
		return ""
	}
	return key
}

// QueryVariants builds the ordered search phrasings for one item. Word order
// and possessive form change recall on free-text search APIs, so several are
// tried: "<restaurant>s <item>", "<restaurant> <item>", "<item>", "<item> <restaurant>".
func QueryVariants(restaurant, name string) []string {
	name = textnorm.CollapseSpaces(name)
	if name == "" {
		return nil
	}
	var r string
	if restaurantKey(restaurant) != "" {
		r = textnorm.StripPossessive(restaurant)
	}
	if r == "" {
		return []string{name}
	}

	candidates := []string{
		r + " " + name,
		name,
		name + " " + r,
	}
	if !strings.HasSuffix(r, "s") {
		candidates = append([]string{r + "s " + name}, candidates...)
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, q := range candidates {
		if !seen[q] {
			seen[q] = true
			out = append(out, q)
		}
	}
	return out
}

// CacheKey identifies a resolution by normalized restaurant, normalized item and quantity.
func CacheKey(restaurant, item string, quantity int) string {
	return fmt.Sprintf("%s|%s|%d",
		textnorm.NormalizeRestaurant(restaurant), textnorm.NormalizeFoodName(item), quantity)
}
