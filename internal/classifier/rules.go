package classifier

import "regexp"

// Rules is the tunable phrase table behind the classification policy. Every
// phrase is matched case-insensitively as a substring.
type Rules struct {
	// DomainMarkers prove the email came from (or was forwarded from) a delivery service.
	DomainMarkers []string
	// ServiceNames combined with a ForwardMarker admit manually forwarded emails.
	ServiceNames   []string
	ForwardMarkers []string

	ConfirmationPhrases []string
	FinancialMarkers    []string
	ExclusionTerms      []string

	// Strong indicator checklist.
	OrderConfirmationPhrases []string
	TotalChargedPhrase       string
	ReceiptPhrase            string
	TrackOrderPhrase         string
	FeePhrases               []string
	RestaurantPatterns       []*regexp.Regexp

	MinStrongIndicators int
}

// StrongIndicatorCount is the size of the strong-indicator checklist.
const StrongIndicatorCount = 6

// DefaultRules returns the phrase table tuned against DoorDash-style receipts.
func DefaultRules() Rules {
	return Rules{
		DomainMarkers: []string{
			"doordash.com",
			"ubereats.com",
			"uber.com",
			"grubhub.com",
		},
		ServiceNames: []string{
			"doordash",
			"door dash",
			"uber eats",
			"ubereats",
			"grubhub",
		},
		ForwardMarkers: []string{
			"forwarded message",
			"begin forwarded message",
			"original message",
		},
		ConfirmationPhrases: []string{
			"order confirmation for",
			"thanks for your order",
			"total charged",
			"your receipt",
			"track your order",
		},
		FinancialMarkers: []string{
			"subtotal",
			"delivery fee",
			"service fee",
			"$",
		},
		ExclusionTerms: []string{
			"login",
			"password",
			"reset",
			"verification",
			"promotional",
			"marketing",
			"survey",
			"rate your",
			"special offer",
			"account",
			"security",
		},
		OrderConfirmationPhrases: []string{
			"order confirmation",
			"thanks for your order",
		},
		TotalChargedPhrase: "total charged",
		ReceiptPhrase:      "your receipt",
		TrackOrderPhrase:   "track your order",
		FeePhrases: []string{
			"delivery fee",
			"service fee",
		},
		RestaurantPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)order confirmation for .+? from \S`),
			regexp.MustCompile(`(?is)paid with.*?\n[a-z\s&']+\n\s*total:`),
			regexp.MustCompile(`(?i)order from [a-z]`),
		},
		MinStrongIndicators: 3,
	}
}
