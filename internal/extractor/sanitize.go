package extractor

import (
	"regexp"
	"strings"

	"mealmail/internal/textnorm"
)

// Options holds the empirically tuned knobs of restaurant-name cleanup.
type Options struct {
	// RestaurantMinLen and RestaurantMaxLen bound an accepted candidate (inclusive).
	RestaurantMinLen int
	RestaurantMaxLen int
	// PaymentTokens are stripped from candidates as whole words.
	PaymentTokens []string
	// RejectPrefixes discard a candidate that starts with any of them.
	RejectPrefixes []string
	// DefaultRestaurant is used when no candidate survives validation.
	DefaultRestaurant string
}

// DefaultOptions returns the tuning that fits the observed DoorDash samples.
func DefaultOptions() Options {
	return Options{
		RestaurantMinLen:  3,
		RestaurantMaxLen:  49,
		PaymentTokens:     []string{"Apple Pay", "Google Pay", "with"},
		RejectPrefixes:    []string{"total"},
		DefaultRestaurant: "Unknown Restaurant",
	}
}

type sanitizer struct {
	opts   Options
	tokens []*regexp.Regexp
}

var edgePunctRe = regexp.MustCompile(`^[\s\-–—:,.|•·]+|[\s\-–—:,.|•·]+$`)

func newSanitizer(opts Options) *sanitizer {
	s := &sanitizer{opts: opts}
	for _, tok := range opts.PaymentTokens {
		if tok == "" {
			continue
		}
		s.tokens = append(s.tokens, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(tok)+`\b`))
	}
	return s
}

// Clean strips payment-method tokens and boilerplate punctuation until the
// value stops changing, so Clean(Clean(x)) == Clean(x).
func (s *sanitizer) Clean(candidate string) string {
	cur := textnorm.CollapseSpaces(candidate)
	for {
		next := cur
		for _, re := range s.tokens {
			next = re.ReplaceAllString(next, " ")
		}
		next = textnorm.CollapseSpaces(next)
		next = edgePunctRe.ReplaceAllString(next, "")
		if next == cur {
			return next
		}
		cur = next
	}
}

// Valid applies the reject rules to an already cleaned candidate.
func (s *sanitizer) Valid(name string) bool {
	n := len([]rune(name))
	if n < s.opts.RestaurantMinLen || n > s.opts.RestaurantMaxLen {
		return false
	}
	lower := strings.ToLower(name)
	for _, p := range s.opts.RejectPrefixes {
		if p != "" && strings.HasPrefix(lower, strings.ToLower(p)) {
			return false
		}
	}
	return true
}

// SanitizeRestaurant cleans a restaurant candidate with the default options.
// The second result reports whether the cleaned value passes validation.
func SanitizeRestaurant(candidate string) (string, bool) {
	s := newSanitizer(DefaultOptions())
	clean := s.Clean(candidate)
	return clean, s.Valid(clean)
}
