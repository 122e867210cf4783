package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"mealmail/internal/domain"
)

// fieldStrategy proposes a raw value for one field. Strategies are evaluated
// in priority order and the first accepted candidate wins.
type fieldStrategy struct {
	name string
	find func(subject, text string) (string, bool)
}

func subjectPattern(name string, re *regexp.Regexp) fieldStrategy {
	return fieldStrategy{name: name, find: func(subject, _ string) (string, bool) {
		return firstGroup(re, subject)
	}}
}

func bodyPattern(name string, re *regexp.Regexp) fieldStrategy {
	return fieldStrategy{name: name, find: func(_, text string) (string, bool) {
		return firstGroup(re, text)
	}}
}

func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// itemPattern captures quantity, name and price in groups 1-3.
type itemPattern struct {
	name string
	re   *regexp.Regexp
}

// serviceProfile describes how to pull an order out of one service's emails.
type serviceProfile struct {
	service    domain.Service
	markers    []string
	restaurant []fieldStrategy
	totals     []fieldStrategy
	items      []itemPattern
	stub       bool
}

const pricePattern = `\$\s*([0-9][0-9,]*\.[0-9]{2})`

var (
	trailingDecorationRe = regexp.MustCompile(`\s*[\(\[][^\)\]]*[\)\]]\s*$`)

	doordashProfile = serviceProfile{
		service: domain.ServiceDoorDash,
		markers: []string{"doordash", "door dash"},
		restaurant: []fieldStrategy{
			subjectPattern("subject_order_confirmation",
				regexp.MustCompile(`(?i)order confirmation for\s+.+?\s+from\s+(.+?)\s*$`)),
			bodyPattern("body_paid_with_total",
				regexp.MustCompile(`(?is)paid with.*?\n([A-Za-z\s&'’]+)\n\s*total:`)),
			bodyPattern("body_order_from",
				regexp.MustCompile(`(?i)order from ([^,\n]+)`)),
			bodyPattern("body_receipt_for",
				regexp.MustCompile(`(?is)your receipt\n.*?\n.*?- for (.+?) -`)),
			bodyPattern("body_thanks_for_order",
				regexp.MustCompile(`(?i)thanks for your order[^A-Za-z\n]*\n([A-Za-z][A-Za-z &'’]+)\n`)),
		},
		totals: []fieldStrategy{
			bodyPattern("total_charged", regexp.MustCompile(`(?i)total charged\s*:?\s*`+pricePattern)),
			bodyPattern("total_colon", regexp.MustCompile(`(?i)\btotal:\s*`+pricePattern)),
		},
		items: []itemPattern{
			{
				name: "qty_x_name_bullets_price",
				re: regexp.MustCompile(`(?m)^[ \t]*(\d+)[ \t]*[xX×][ \t]+([^$\n•·]+?)[ \t]*(?:[•·][^$\n]*?)?[ \t]+` +
					pricePattern + `[ \t]*$`),
			},
			{
				name: "qty_x_name_price",
				re:   regexp.MustCompile(`(\d+)\s*[xX×]\s+([^$\n]+?)\s+` + pricePattern),
			},
		},
	}

	uberEatsProfile = serviceProfile{
		service: domain.ServiceUberEats,
		markers: []string{"uber eats", "ubereats"},
		restaurant: []fieldStrategy{
			subjectPattern("subject_uber_order_from",
				regexp.MustCompile(`(?i)uber eats order (?:with|from)\s+(.+?)\s*$`)),
			bodyPattern("body_receipt_for",
				regexp.MustCompile(`(?i)here'?s your receipt for ([^\n.]+)`)),
			bodyPattern("body_you_ordered_from",
				regexp.MustCompile(`(?i)you ordered from ([^\n]+)`)),
			bodyPattern("body_order_from",
				regexp.MustCompile(`(?i)order from ([^,\n]+)`)),
		},
		totals: []fieldStrategy{
			bodyPattern("total_line", regexp.MustCompile(`(?im)^total[ \t:]*`+pricePattern)),
			bodyPattern("total_charged", regexp.MustCompile(`(?i)total charged\s*:?\s*`+pricePattern)),
		},
		items: []itemPattern{
			{
				name: "qty_name_price",
				re: regexp.MustCompile(`(?m)^[ \t]*(\d+)[ \t]*[xX×]?[ \t]+([^$\n]+?)[ \t]+` +
					pricePattern + `[ \t]*$`),
			},
		},
	}

	grubhubProfile = serviceProfile{
		service: domain.ServiceGrubhub,
		markers: []string{"grubhub"},
		stub:    true,
	}

	defaultProfiles = []serviceProfile{doordashProfile, uberEatsProfile, grubhubProfile}
)

func parsePrice(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func cleanItemName(name string) string {
	name = strings.TrimSpace(name)
	for {
		next := strings.TrimSpace(trailingDecorationRe.ReplaceAllString(name, ""))
		if next == name || next == "" {
			return name
		}
		name = next
	}
}
