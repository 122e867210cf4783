// Package classifier decides whether an inbound email is a genuine
// food-delivery order confirmation.
package classifier

import (
	"fmt"
	"strings"

	"mealmail/internal/domain"
	"mealmail/internal/textnorm"
	"mealmail/internal/trace"
)

// Decision explains a classification outcome.
type Decision struct {
	Accepted         bool     `json:"accepted"`
	Reason           string   `json:"reason"`
	StrongIndicators int      `json:"strong_indicators"`
	Indicators       []string `json:"indicators,omitempty"`
}

// Classifier applies Rules to emails.
type Classifier struct {
	rules Rules
	rec   trace.Recorder
}

// New creates a Classifier. A nil recorder disables tracing.
func New(rules Rules, rec trace.Recorder) *Classifier {
	if rules.MinStrongIndicators <= 0 {
		rules.MinStrongIndicators = DefaultRules().MinStrongIndicators
	}
	return &Classifier{rules: rules, rec: trace.OrNop(rec)}
}

// Classify reports whether the email is an order confirmation.
func (c *Classifier) Classify(subject, body, sender string) bool {
	return c.Evaluate(domain.RawEmail{Subject: subject, Body: body, Sender: sender}).Accepted
}

// Evaluate runs the full policy: exclusion list, provenance, positive and
// financial evidence, then the strong-indicator threshold.
func (c *Classifier) Evaluate(email domain.RawEmail) Decision {
	text := textnorm.HTMLToText(email.Body)
	body := strings.ToLower(text)
	rawBody := strings.ToLower(email.Body)
	subject := strings.ToLower(email.Subject)
	sender := strings.ToLower(email.Sender)

	// rawBody covers <head> and <title> text that HTMLToText drops.
	if term, ok := firstContained(body+"\n"+rawBody+"\n"+subject, c.rules.ExclusionTerms); ok {
		return c.reject(fmt.Sprintf("exclusion term %q", term), 0, nil)
	}

	if !c.hasProvenance(sender, body, rawBody) {
		return c.reject("no delivery-service provenance", 0, nil)
	}

	if _, ok := firstContained(body, c.rules.ConfirmationPhrases); !ok {
		return c.reject("no order confirmation phrase", 0, nil)
	}

	if _, ok := firstContained(body, c.rules.FinancialMarkers); !ok {
		return c.reject("no financial indicator", 0, nil)
	}

	indicators := c.strongIndicators(text, body)
	if len(indicators) < c.rules.MinStrongIndicators {
		return c.reject(fmt.Sprintf("strong indicators %d/%d below minimum %d",
			len(indicators), StrongIndicatorCount, c.rules.MinStrongIndicators), len(indicators), indicators)
	}

	d := Decision{
		Accepted:         true,
		Reason:           "order confirmation",
		StrongIndicators: len(indicators),
		Indicators:       indicators,
	}
	c.rec.Record(trace.Event{
		Stage:   trace.StageClassify,
		Name:    "decision",
		Detail:  d.Reason,
		Score:   float64(d.StrongIndicators),
		Matched: true,
	})
	return d
}

func (c *Classifier) hasProvenance(sender, body, rawBody string) bool {
	for _, m := range c.rules.DomainMarkers {
		if strings.Contains(sender, m) || strings.Contains(body, m) || strings.Contains(rawBody, m) {
			c.rec.Record(trace.Event{Stage: trace.StageClassify, Name: "provenance/domain", Detail: m, Matched: true})
			return true
		}
	}
	svc, hasService := firstContained(body, c.rules.ServiceNames)
	fwd, hasForward := firstContained(body, c.rules.ForwardMarkers)
	if hasService && hasForward {
		c.rec.Record(trace.Event{Stage: trace.StageClassify, Name: "provenance/forwarded", Detail: svc + " + " + fwd, Matched: true})
		return true
	}
	return false
}

func (c *Classifier) strongIndicators(text, body string) []string {
	var found []string
	if _, ok := firstContained(body, c.rules.OrderConfirmationPhrases); ok {
		found = append(found, "order_confirmation")
	}
	if c.rules.TotalChargedPhrase != "" && strings.Contains(body, c.rules.TotalChargedPhrase) {
		found = append(found, "total_charged")
	}
	if c.rules.ReceiptPhrase != "" && strings.Contains(body, c.rules.ReceiptPhrase) {
		found = append(found, "your_receipt")
	}
	if c.rules.TrackOrderPhrase != "" && strings.Contains(body, c.rules.TrackOrderPhrase) {
		found = append(found, "track_your_order")
	}
	if _, ok := firstContained(body, c.rules.FeePhrases); ok {
		found = append(found, "fee")
	}
	for _, re := range c.rules.RestaurantPatterns {
		if re.MatchString(text) {
			found = append(found, "restaurant_name")
			break
		}
	}
	for _, name := range found {
		c.rec.Record(trace.Event{Stage: trace.StageClassify, Name: "indicator/" + name, Matched: true})
	}
	return found
}

func (c *Classifier) reject(reason string, strong int, indicators []string) Decision {
	c.rec.Record(trace.Event{
		Stage:  trace.StageClassify,
		Name:   "decision",
		Detail: reason,
		Score:  float64(strong),
	})
	return Decision{Reason: reason, StrongIndicators: strong, Indicators: indicators}
}

func firstContained(haystack string, needles []string) (string, bool) {
	for _, n := range needles {
		if n != "" && strings.Contains(haystack, strings.ToLower(n)) {
			return n, true
		}
	}
	return "", false
}
