package textnorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mealmail/internal/textnorm"
)

func TestHTMLToText_TableRowsAndBlocks(t *testing.T) {
	body := `<html><head><style>td { color: red; }</style></head><body>
<div>Paid with
   Apple Pay</div>
<p>McDonald&#39;s</p>
<table><tr><td>1x</td><td>Diet Coke&reg; (Beverages)</td><td>$1.19</td></tr></table>
<script>var x = "1x Hidden $9.99";</script>
<p>Total:&nbsp;$12.34</p>
</body></html>`

	got := textnorm.HTMLToText(body)

	assert.Equal(t, "Paid with Apple Pay\nMcDonald's\n1x\tDiet Coke® (Beverages)\t$1.19\nTotal: $12.34", got)
}

func TestHTMLToText_BreakTags(t *testing.T) {
	got := textnorm.HTMLToText(`<span>Line one<br>Line two<br/>Line three</span>`)
	assert.Equal(t, "Line one\nLine two\nLine three", got)
}

func TestHTMLToText_PlainTextPassthrough(t *testing.T) {
	body := "> ---------- Forwarded message ---------\r\n>  2x   Burger $5.99\r\n\r\n\r\n> 1x Fries $2.50\r\n"
	got := textnorm.HTMLToText(body)
	assert.Equal(t, "---------- Forwarded message ---------\n2x Burger $5.99\n1x Fries $2.50", got)
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, textnorm.LooksLikeHTML("<div>hi</div>"))
	assert.True(t, textnorm.LooksLikeHTML("<!DOCTYPE html>"))
	assert.False(t, textnorm.LooksLikeHTML("Total < 5 and > 3"))
	assert.False(t, textnorm.LooksLikeHTML("From: DoorDash <no-reply@doordash.com>"))
}

func TestNormalizeFoodName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Diet Coke® (Beverages)", "diet coke"},
		{"McDouble™ [Combo]", "mcdouble"},
		{"  Crème   Brûlée  ", "creme brulee"},
		{"Spicy Crispy Chicken Sandwich (Large) extra", "spicy crispy chicken sandwich extra"},
		{"10 pc. Chicken McNuggets®", "10 pc chicken mcnuggets"},
		{"Coca-Cola", "coca-cola"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, textnorm.NormalizeFoodName(tt.in))
		})
	}
}

func TestNormalizeFoodName_Idempotent(t *testing.T) {
	once := textnorm.NormalizeFoodName("Big Mac® (Sandwiches) [Meal]")
	assert.Equal(t, once, textnorm.NormalizeFoodName(once))
}

func TestStripPossessive(t *testing.T) {
	assert.Equal(t, "mcdonald", textnorm.StripPossessive("McDonald's"))
	assert.Equal(t, "wendy", textnorm.StripPossessive("Wendy’s"))
	assert.Equal(t, "chipotle", textnorm.StripPossessive("Chipotle"))
}

func TestStripDiacritics(t *testing.T) {
	assert.Equal(t, "Jalapeno Poppers", textnorm.StripDiacritics("Jalapeño Poppers"))
}
