// Package extractor pulls restaurant, total and line items out of classified
// order-confirmation emails using per-service strategy lists.
package extractor

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"mealmail/internal/domain"
	"mealmail/internal/textnorm"
	"mealmail/internal/trace"
)

// Extractor turns email text into a ParsedOrder.
type Extractor struct {
	opts     Options
	sanitize *sanitizer
	profiles []serviceProfile
	rec      trace.Recorder
}

// New creates an Extractor. Zero-valued option fields fall back to DefaultOptions.
func New(opts Options, rec trace.Recorder) *Extractor {
	def := DefaultOptions()
	if opts.RestaurantMinLen <= 0 {
		opts.RestaurantMinLen = def.RestaurantMinLen
	}
	if opts.RestaurantMaxLen <= 0 {
		opts.RestaurantMaxLen = def.RestaurantMaxLen
	}
	if opts.PaymentTokens == nil {
		opts.PaymentTokens = def.PaymentTokens
	}
	if opts.RejectPrefixes == nil {
		opts.RejectPrefixes = def.RejectPrefixes
	}
	if opts.DefaultRestaurant == "" {
		opts.DefaultRestaurant = def.DefaultRestaurant
	}
	return &Extractor{
		opts:     opts,
		sanitize: newSanitizer(opts),
		profiles: defaultProfiles,
		rec:      trace.OrNop(rec),
	}
}

// DetectService matches service markers against the lower-cased subject and
// body. The first profile with a marker present wins.
func (e *Extractor) DetectService(subject, body string) (domain.Service, bool) {
	p, ok := e.detect(subject, body)
	if !ok {
		return domain.ServiceUnknown, false
	}
	return p.service, true
}

func (e *Extractor) detect(subject, body string) (serviceProfile, bool) {
	text := strings.ToLower(subject + " " + body)
	for _, p := range e.profiles {
		for _, m := range p.markers {
			if strings.Contains(text, m) {
				e.rec.Record(trace.Event{Stage: trace.StageExtract, Name: "service/" + string(p.service), Detail: m, Matched: true})
				return p, true
			}
		}
	}
	e.rec.Record(trace.Event{Stage: trace.StageExtract, Name: "service", Detail: "no service marker"})
	return serviceProfile{}, false
}

// Extract returns nil when no service is recognized or extraction panics.
func (e *Extractor) Extract(subject, body string) (order *domain.ParsedOrder) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("extractor.Extract: recovered from panic: %v", r)
			e.rec.Record(trace.Event{Stage: trace.StageExtract, Name: "panic", Detail: fmt.Sprint(r)})
			order = nil
		}
	}()

	profile, ok := e.detect(subject, body)
	if !ok {
		return nil
	}
	if profile.stub {
		zero := 0.0
		return &domain.ParsedOrder{
			Service:    profile.service,
			Restaurant: e.opts.DefaultRestaurant,
			Total:      &zero,
			Items:      []domain.LineItem{},
		}
	}

	text := textnorm.HTMLToText(body)
	subject = strings.TrimSpace(subject)

	return &domain.ParsedOrder{
		Service:    profile.service,
		Restaurant: e.restaurant(profile, subject, text),
		Total:      e.total(profile, subject, text),
		Items:      e.items(profile, text),
	}
}

func (e *Extractor) restaurant(p serviceProfile, subject, text string) string {
	for _, s := range p.restaurant {
		raw, ok := s.find(subject, text)
		if !ok {
			e.rec.Record(trace.Event{Stage: trace.StageExtract, Name: "restaurant/" + s.name})
			continue
		}
		clean := e.sanitize.Clean(raw)
		if !e.sanitize.Valid(clean) {
			e.rec.Record(trace.Event{Stage: trace.StageExtract, Name: "restaurant/" + s.name,
				Detail: fmt.Sprintf("rejected %q", clean)})
			continue
		}
		e.rec.Record(trace.Event{Stage: trace.StageExtract, Name: "restaurant/" + s.name, Detail: clean, Matched: true})
		return clean
	}
	return e.opts.DefaultRestaurant
}

func (e *Extractor) total(p serviceProfile, subject, text string) *float64 {
	for _, s := range p.totals {
		raw, ok := s.find(subject, text)
		if !ok {
			e.rec.Record(trace.Event{Stage: trace.StageExtract, Name: "total/" + s.name})
			continue
		}
		v, ok := parsePrice(raw)
		if !ok {
			e.rec.Record(trace.Event{Stage: trace.StageExtract, Name: "total/" + s.name, Detail: fmt.Sprintf("bad amount %q", raw)})
			continue
		}
		e.rec.Record(trace.Event{Stage: trace.StageExtract, Name: "total/" + s.name, Detail: raw, Matched: true})
		return &v
	}
	return nil
}

// items uses the first pattern that yields any usable line; matches from
// different patterns are never merged.
func (e *Extractor) items(p serviceProfile, text string) []domain.LineItem {
	for _, ip := range p.items {
		var out []domain.LineItem
		for _, m := range ip.re.FindAllStringSubmatch(text, -1) {
			qty, err := strconv.Atoi(m[1])
			if err != nil || qty < 1 {
				continue
			}
			price, ok := parsePrice(m[3])
			if !ok {
				continue
			}
			name := cleanItemName(m[2])
			if name == "" {
				continue
			}
			out = append(out, domain.LineItem{Quantity: qty, Name: name, Price: price})
		}
		e.rec.Record(trace.Event{Stage: trace.StageExtract, Name: "items/" + ip.name,
			Detail: fmt.Sprintf("%d items", len(out)), Score: float64(len(out)), Matched: len(out) > 0})
		if len(out) > 0 {
			return out
		}
	}
	return []domain.LineItem{}
}
