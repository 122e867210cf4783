// Package email renders meal summaries for processed orders. Delivery lives in
// the ses and noop subpackages.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/mail"
	"strings"

	"mealmail/internal/domain"
)

// Summary is a rendered meal summary message.
type Summary struct {
	Subject string
	Text    string
	HTML    string
}

var summaryHTML = template.Must(template.New("summary").Funcs(template.FuncMap{
	"num": func(v float64) string { return fmt.Sprintf("%.1f", v) },
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">{{.Restaurant}}</h2>
  <p>{{num .MealTotals.TotalCalories}} kcal &middot; protein {{num .MealTotals.TotalProtein}} g &middot; carbs {{num .MealTotals.TotalCarbs}} g &middot; fat {{num .MealTotals.TotalFat}} g</p>
  <table style="width: 100%; border-collapse: collapse;">
    <tr><th align="left">Item</th><th align="right">Qty</th><th align="right">kcal</th><th align="left">Source</th></tr>
    {{range .Items}}<tr>
      <td>{{.Name}}</td><td align="right">{{.Quantity}}</td>
      {{if .Nutrition}}<td align="right">{{num .Nutrition.Calories}}</td><td>{{.Nutrition.Source}}</td>{{else}}<td align="right">-</td><td>not found</td>{{end}}
    </tr>
    {{end}}
  </table>
  <p style="color: #999; font-size: 12px;">Macros: protein {{num .MealTotals.MacroPercentages.Protein}}%, carbs {{num .MealTotals.MacroPercentages.Carbs}}%, fat {{num .MealTotals.MacroPercentages.Fat}}%. {{if .SourceStatistics.Skipped}}Nutrition lookup skipped.{{else}}Lookup success {{num .SourceStatistics.SuccessRate}}%.{{end}}</p>
</body>
</html>`))

// RenderSummary builds the subject, plain-text and HTML bodies for an order.
func RenderSummary(order *domain.EnhancedOrder) (*Summary, error) {
	t := order.MealTotals
	subject := fmt.Sprintf("Meal summary: %s (%.0f kcal)", order.Restaurant, t.TotalCalories)

	var text strings.Builder
	fmt.Fprintf(&text, "%s\n\n", order.Restaurant)
	for _, it := range order.Items {
		if it.Nutrition != nil {
			fmt.Fprintf(&text, "%dx %s: %.1f kcal (%s)\n", it.Quantity, it.Name, it.Nutrition.Calories, it.Nutrition.Source)
		} else {
			fmt.Fprintf(&text, "%dx %s: not found\n", it.Quantity, it.Name)
		}
	}
	fmt.Fprintf(&text, "\nTotal: %.1f kcal, protein %.1f g, carbs %.1f g, fat %.1f g, fiber %.1f g, sugar %.1f g, sodium %.1f mg\n",
		t.TotalCalories, t.TotalProtein, t.TotalCarbs, t.TotalFat, t.TotalFiber, t.TotalSugar, t.TotalSodium)
	fmt.Fprintf(&text, "Macros: protein %.1f%%, carbs %.1f%%, fat %.1f%%\n",
		t.MacroPercentages.Protein, t.MacroPercentages.Carbs, t.MacroPercentages.Fat)
	if order.SourceStatistics.Skipped > 0 {
		fmt.Fprintf(&text, "Nutrition lookup skipped for %d items\n", order.SourceStatistics.Skipped)
	}

	var html bytes.Buffer
	if err := summaryHTML.Execute(&html, order); err != nil {
		return nil, fmt.Errorf("rendering summary: %w", err)
	}
	return &Summary{Subject: subject, Text: text.String(), HTML: html.String()}, nil
}

// Recipient returns the configured recipient, or the bare address of the
// order's sender when none is configured.
func Recipient(configured string, order *domain.EnhancedOrder) string {
	if configured != "" {
		return configured
	}
	if order.Sender == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(order.Sender); err == nil {
		return addr.Address
	}
	return strings.TrimSpace(order.Sender)
}
