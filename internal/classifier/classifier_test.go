package classifier_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealmail/internal/classifier"
	"mealmail/internal/trace"
)

const doordashBody = `---------- Forwarded message ---------
From: DoorDash <no-reply@doordash.com>
Subject: Order Confirmation for Kevin from McDonald's

Thanks for your order, Kevin
Your receipt
Paid with Apple Pay
McDonald's
Total: $14.26
1x Diet Coke® (Beverages) $1.19
2x McDouble® $5.98
Subtotal $7.17
Delivery Fee $0.00
Service Fee $2.15
Total Charged $14.26
Track Your Order`

func newClassifier() *classifier.Classifier {
	return classifier.New(classifier.DefaultRules(), nil)
}

func TestClassify_GenuineDoorDashOrder(t *testing.T) {
	c := newClassifier()
	ok := c.Classify("Fwd: Order Confirmation for Kevin from McDonald's", doordashBody, "kevin@example.com")
	assert.True(t, ok)
}

func TestEvaluate_CountsAllStrongIndicators(t *testing.T) {
	c := newClassifier()
	d := c.Evaluate(emailOf("Order Confirmation for Kevin from McDonald's", doordashBody, "no-reply@doordash.com"))
	require.True(t, d.Accepted)
	assert.Equal(t, 6, d.StrongIndicators)
	assert.ElementsMatch(t, []string{
		"order_confirmation", "total_charged", "your_receipt", "track_your_order", "fee", "restaurant_name",
	}, d.Indicators)
}

func TestClassify_HTMLBodyDirectFromService(t *testing.T) {
	body := `<html><body>
<h1>Order Confirmation for Kevin from Chipotle</h1>
<p>Your receipt</p>
<table><tr><td>1x</td><td>Burrito Bowl</td><td>$10.25</td></tr></table>
<p>Service Fee $1.50</p>
<p>Total Charged $11.75</p>
</body></html>`
	c := newClassifier()
	assert.True(t, c.Classify("Order Confirmation for Kevin from Chipotle", body, "DoorDash <no-reply@doordash.com>"))
}

func TestClassify_ExclusionTermsAlwaysReject(t *testing.T) {
	terms := []string{"password reset", "verification code", "Rate your Dasher", "special offer inside", "survey", "security alert", "login"}
	c := newClassifier()
	for _, term := range terms {
		t.Run(term, func(t *testing.T) {
			body := doordashBody + "\n" + term
			assert.False(t, c.Classify("Order Confirmation for Kevin from McDonald's", body, "no-reply@doordash.com"))
		})
	}
}

func TestClassify_ExclusionInHTMLHeadRejects(t *testing.T) {
	body := `<html><head><title>Reset your DoorDash password</title></head><body>
<h1>Order Confirmation for Kevin from Chipotle</h1>
<p>Thanks for your order</p>
<p>Your receipt</p>
<table><tr><td>1x</td><td>Burrito Bowl</td><td>$10.25</td></tr></table>
<p>Subtotal $10.25</p>
<p>Service Fee $1.50</p>
<p>Total Charged $11.75</p>
<p>Track Your Order</p>
</body></html>`
	c := newClassifier()
	d := c.Evaluate(emailOf("Order Confirmation for Kevin from Chipotle", body, "no-reply@doordash.com"))
	assert.False(t, d.Accepted)
	assert.Contains(t, d.Reason, "exclusion term")

	clean := strings.Replace(body, "Reset your DoorDash password", "Your DoorDash order", 1)
	assert.True(t, c.Classify("Order Confirmation for Kevin from Chipotle", clean, "no-reply@doordash.com"))
}

func TestClassify_AppLoginPromptIsNotExcluded(t *testing.T) {
	body := doordashBody + "\nLog in to the DoorDash app to see your order status"
	c := newClassifier()
	d := c.Evaluate(emailOf("Fwd: Order Confirmation for Kevin from McDonald's", body, "kevin@example.com"))
	assert.True(t, d.Accepted, d.Reason)
}

func TestClassify_ExclusionInSubjectRejects(t *testing.T) {
	c := newClassifier()
	d := c.Evaluate(emailOf("Reset your password", doordashBody, "no-reply@doordash.com"))
	assert.False(t, d.Accepted)
	assert.Contains(t, d.Reason, "exclusion term")
}

func TestClassify_ForwardedWithoutDomainMarker(t *testing.T) {
	body := strings.Replace(doordashBody, "From: DoorDash <no-reply@doordash.com>", "From: DoorDash", 1)
	c := newClassifier()
	assert.True(t, c.Classify("Fwd: your order", body, "kevin@example.com"))
}

func TestClassify_NoProvenance(t *testing.T) {
	body := "Thanks for your order\nYour receipt\nSubtotal $5.00\nService Fee $1.00\nTotal Charged $6.00\nTrack Your Order"
	c := newClassifier()
	d := c.Evaluate(emailOf("Receipt", body, "shop@example.com"))
	assert.False(t, d.Accepted)
	assert.Equal(t, "no delivery-service provenance", d.Reason)
}

func TestClassify_NoConfirmationPhrase(t *testing.T) {
	body := "DoorDash <no-reply@doordash.com>\nSubtotal $5.00\nDelivery Fee $1.00"
	c := newClassifier()
	d := c.Evaluate(emailOf("Hello", body, "no-reply@doordash.com"))
	assert.False(t, d.Accepted)
	assert.Equal(t, "no order confirmation phrase", d.Reason)
}

func TestClassify_NoFinancialIndicator(t *testing.T) {
	body := "DoorDash\nThanks for your order\nYour receipt will follow"
	c := newClassifier()
	d := c.Evaluate(emailOf("Hello", body, "no-reply@doordash.com"))
	assert.False(t, d.Accepted)
	assert.Equal(t, "no financial indicator", d.Reason)
}

func TestClassify_TooFewStrongIndicators(t *testing.T) {
	body := "DoorDash\nThanks for your order\nYour items will arrive soon. Subtotal $12.00"
	c := newClassifier()
	d := c.Evaluate(emailOf("Hello", body, "no-reply@doordash.com"))
	assert.False(t, d.Accepted)
	assert.Equal(t, 1, d.StrongIndicators)
	assert.Contains(t, d.Reason, "below minimum 3")
}

func TestClassify_MinStrongIndicatorsIsTunable(t *testing.T) {
	body := "DoorDash\nThanks for your order\nYour items will arrive soon. Subtotal $12.00"
	rules := classifier.DefaultRules()
	rules.MinStrongIndicators = 1
	c := classifier.New(rules, nil)
	assert.True(t, c.Classify("Hello", body, "no-reply@doordash.com"))
}

func TestClassify_RecordsTraceEvents(t *testing.T) {
	log := trace.NewLog(64)
	c := classifier.New(classifier.DefaultRules(), log)
	c.Classify("Order Confirmation for Kevin from McDonald's", doordashBody, "no-reply@doordash.com")

	events := log.Filter(trace.StageClassify)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "decision", last.Name)
	assert.True(t, last.Matched)
	assert.Equal(t, float64(6), last.Score)
}
