package nutrition

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"mealmail/internal/config"
	"mealmail/internal/domain"
	"mealmail/internal/port"
)

// SourceFactory is a function that creates a NutritionSource from a source config.
type SourceFactory func(cfg *config.SourceConfig) (port.NutritionSource, error)

// registry of source factories, populated by init() in each source package
// or explicitly via RegisterSource.
var (
	sourcesMu sync.RWMutex
	sources   = map[string]SourceFactory{}
)

// RegisterSource registers a nutrition source factory by name.
func RegisterSource(name string, factory SourceFactory) {
	sourcesMu.Lock()
	defer sourcesMu.Unlock()
	sources[name] = factory
}

// NewSource creates a NutritionSource from a source config using the registered factory.
func NewSource(cfg *config.SourceConfig) (port.NutritionSource, error) {
	sourcesMu.RLock()
	factory, ok := sources[cfg.Provider]
	sourcesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown nutrition source: %s", cfg.Provider)
	}
	return factory(cfg)
}

// RegisteredSources lists the registered source names in sorted order.
func RegisteredSources() []string {
	sourcesMu.RLock()
	defer sourcesMu.RUnlock()
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TiersFromConfig builds the primary tier and, when configured, the secondary
// tier with their scoring weights and backoff.
func TiersFromConfig(cfg *config.NutritionConfig) ([]Tier, error) {
	primary, err := NewSource(&cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("primary source: %w", err)
	}
	tiers := []Tier{{
		Source:  primary,
		Label:   domain.SourcePrimary,
		Weights: PrimaryWeights(),
		Backoff: time.Duration(cfg.Primary.BackoffMillis) * time.Millisecond,
	}}

	if sc := cfg.SecondaryConfig(); sc != nil {
		secondary, err := NewSource(sc)
		if err != nil {
			return nil, fmt.Errorf("secondary source: %w", err)
		}
		tiers = append(tiers, Tier{
			Source:  secondary,
			Label:   domain.SourceSecondary,
			Weights: SecondaryWeights(),
			Backoff: time.Duration(sc.BackoffMillis) * time.Millisecond,
		})
	}
	return tiers, nil
}
