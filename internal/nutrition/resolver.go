// Package nutrition resolves line items to nutrition records by querying
// external food databases in priority order, scoring candidates, normalizing
// units and scaling to serving size and quantity.
package nutrition

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"mealmail/internal/domain"
	"mealmail/internal/port"
	"mealmail/internal/textnorm"
	"mealmail/internal/trace"
)

// Tier is one source in the resolution order.
type Tier struct {
	Source  port.NutritionSource
	Label   domain.NutritionSource
	Weights ScoringWeights
	// Backoff is the pause between successive calls to Source within one resolution.
	Backoff time.Duration
}

// Resolver looks up nutrition for line items. It is safe for concurrent use.
type Resolver struct {
	tiers    []Tier
	circuits []*circuitState
	cache    *Cache
	rec      trace.Recorder
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
}

// NewResolver creates a Resolver over tiers in priority order. A nil cache
// gets a fresh in-memory one.
func NewResolver(tiers []Tier, cache *Cache, rec trace.Recorder) *Resolver {
	if cache == nil {
		cache = NewCache(nil)
	}
	circuits := make([]*circuitState, len(tiers))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &Resolver{
		tiers:    tiers,
		circuits: circuits,
		cache:    cache,
		rec:      trace.OrNop(rec),
		sleep:    sleepContext,
		now:      time.Now,
	}
}

// SetSleeper replaces the backoff sleep, mainly for tests.
func (r *Resolver) SetSleeper(fn func(ctx context.Context, d time.Duration) error) {
	r.sleep = fn
}

// Cache returns the resolver's cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// ResetCircuits closes every open rate-limit circuit.
func (r *Resolver) ResetCircuits() {
	for _, c := range r.circuits {
		c.reset()
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Resolve returns the nutrition for quantity units of item at restaurant.
// It returns domain.ErrNoMatch when every tier fails; only context errors are
// otherwise surfaced.
func (r *Resolver) Resolve(ctx context.Context, restaurant, item string, quantity int) (*domain.NutritionRecord, error) {
	if quantity < 1 {
		quantity = 1
	}
	name := textnorm.NormalizeFoodName(item)
	if name == "" {
		return nil, fmt.Errorf("%w: empty item name", domain.ErrNoMatch)
	}

	key := CacheKey(restaurant, item, quantity)
	if cached, ok := r.cache.Get(key); ok {
		r.rec.Record(trace.Event{Stage: trace.StageCache, Name: "hit", Detail: key, Matched: true})
		return cached, nil
	}
	r.rec.Record(trace.Event{Stage: trace.StageCache, Name: "miss", Detail: key})

	for i, tier := range r.tiers {
		if resetAt, open := r.circuits[i].isOpenWithReset(r.now()); open {
			log.Printf("nutrition.Resolver: skipping %s (circuit open until %s)", tier.Source.Name(), resetAt.Format(time.RFC3339))
			r.rec.Record(trace.Event{Stage: trace.StageResolve, Name: tier.Source.Name(), Detail: "circuit open"})
			continue
		}

		rec, err := r.resolveTier(ctx, i, tier, restaurant, name)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}

		rec.scale(float64(quantity))
		out := rec.record
		out.Warnings = Validate(out, item, quantity)
		for _, w := range out.Warnings {
			log.Printf("nutrition.Resolver: %dx %q: %s", quantity, item, w)
		}
		r.cache.Put(ctx, key, out)
		return out.Clone(), nil
	}

	r.rec.Record(trace.Event{Stage: trace.StageResolve, Name: "exhausted", Detail: item})
	return nil, fmt.Errorf("%w: %s", domain.ErrNoMatch, item)
}

// resolveTier walks the query variants against one source. A nil record with
// a nil error means the tier produced no positive-score match.
func (r *Resolver) resolveTier(ctx context.Context, idx int, tier Tier, restaurant, name string) (*scaledRecord, error) {
	src := tier.Source
	for n, query := range QueryVariants(restaurant, name) {
		if n > 0 && tier.Backoff > 0 {
			if err := r.sleep(ctx, tier.Backoff); err != nil {
				return nil, err
			}
		}

		candidates, err := src.Search(ctx, query)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			var rlErr *RateLimitError
			if errors.As(err, &rlErr) {
				r.circuits[idx].open(r.now().Add(rlErr.RetryAfter))
				log.Printf("nutrition.Resolver: %s rate limited, circuit open for %s", src.Name(), rlErr.RetryAfter)
				r.rec.Record(trace.Event{Stage: trace.StageResolve, Name: src.Name(), Detail: "rate limited"})
				return nil, nil
			}
			log.Printf("nutrition.Resolver: %s search %q failed: %v", src.Name(), query, err)
			r.rec.Record(trace.Event{Stage: trace.StageResolve, Name: src.Name(),
				Detail: fmt.Sprintf("%q: %v", query, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err))})
			continue
		}

		best, score := r.pick(tier, candidates, restaurant, name, query)
		r.rec.Record(trace.Event{Stage: trace.StageResolve, Name: src.Name(),
			Detail: fmt.Sprintf("%q: %d candidates", query, len(candidates)), Score: score, Matched: best != nil})
		if best == nil {
			continue
		}
		return r.buildRecord(ctx, tier, best, score, name), nil
	}
	return nil, nil
}

// pick returns the highest-scoring candidate among the first MaxCandidates.
// Ties keep the earlier candidate; a non-positive best score is no match.
func (r *Resolver) pick(tier Tier, candidates []port.FoodCandidate, restaurant, name, query string) (*port.FoodCandidate, float64) {
	limit := tier.Weights.MaxCandidates
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	var best *port.FoodCandidate
	var bestScore float64
	for i := 0; i < limit; i++ {
		c := &candidates[i]
		score, reasons := tier.Weights.Score(*c, restaurant, name)
		r.rec.Record(trace.Event{
			Stage:  trace.StageScore,
			Name:   tier.Source.Name(),
			Detail: fmt.Sprintf("%q -> %q [%s]", query, c.Description, strings.Join(reasons, ", ")),
			Score:  score,
		})
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestScore
}

type scaledRecord struct {
	record *domain.NutritionRecord
	values nutrientValues
}

func (s *scaledRecord) scale(f float64) {
	s.values.scale(f)
	s.record.Calories = s.values.calories
	s.record.Protein = s.values.protein
	s.record.Carbs = s.values.carbs
	s.record.Fat = s.values.fat
	s.record.Fiber = s.values.fiber
	s.record.Sugar = s.values.sugar
	s.record.Sodium = s.values.sodium
}

func (r *Resolver) buildRecord(ctx context.Context, tier Tier, c *port.FoodCandidate, score float64, name string) *scaledRecord {
	values, rejected := normalizeNutrients(c.Nutrients)
	for _, msg := range rejected {
		r.rec.Record(trace.Event{Stage: trace.StageResolve, Name: tier.Source.Name() + "/unit", Detail: msg})
	}

	factor, grams := r.servingFactor(ctx, tier, c, name)
	out := &scaledRecord{
		values: values,
		record: &domain.NutritionRecord{
			Confidence:         tier.Weights.Confidence(score),
			Source:             tier.Label,
			Provider:           tier.Source.Name(),
			MatchedDescription: c.Description,
			Brand:              c.Brand,
			DataType:           c.DataType,
			NutritionGrade:     c.Grade,
			ServingGrams:       grams,
			Units:              domain.DefaultUnits(),
		},
	}
	out.scale(factor)
	return out
}

// servingFactor converts reference-weight values to one serving. It prefers
// the entry's own serving weight, then a matching portion (fetched by ID when
// the source supports it), then the keyword estimate table.
func (r *Resolver) servingFactor(ctx context.Context, tier Tier, c *port.FoodCandidate, name string) (float64, float64) {
	if c.Basis != port.BasisReference {
		return 1, c.ServingGrams
	}
	ref := c.ReferenceGrams
	if ref <= 0 {
		ref = DefaultServingGrams
	}
	record := func(how string, grams float64) (float64, float64) {
		r.rec.Record(trace.Event{Stage: trace.StageResolve, Name: tier.Source.Name() + "/serving",
			Detail: fmt.Sprintf("%s: %.0fg per %.0fg reference", how, grams, ref), Score: grams / ref, Matched: true})
		return grams / ref, grams
	}

	if c.ServingGrams > 0 {
		return record("metadata", c.ServingGrams)
	}
	if p, ok := portionServing(c.Portions, ref); ok {
		return record("portion "+p.Description, p.GramWeight)
	}
	if lookup, ok := tier.Source.(port.PortionLookup); ok && c.NeedsPortionLookup && c.ID != "" {
		var portions []port.Portion
		var err error
		if tier.Backoff > 0 {
			err = r.sleep(ctx, tier.Backoff)
		}
		if err == nil {
			portions, err = lookup.Portions(ctx, c.ID)
		}
		if err != nil {
			log.Printf("nutrition.Resolver: %s portion lookup for %s failed: %v", tier.Source.Name(), c.ID, err)
		} else if p, ok := portionServing(portions, ref); ok {
			return record("looked-up portion "+p.Description, p.GramWeight)
		}
	}
	return record("estimate", EstimateServingGrams(name))
}
