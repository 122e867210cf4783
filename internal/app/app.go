// Package app assembles the order pipeline and its storage, publishing and
// notification backends from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"mealmail/internal/aggregator"
	"mealmail/internal/classifier"
	"mealmail/internal/config"
	"mealmail/internal/domain"
	noopemail "mealmail/internal/email/noop"
	"mealmail/internal/email/ses"
	"mealmail/internal/extractor"
	"mealmail/internal/nutrition"
	"mealmail/internal/port"
	"mealmail/internal/publisher/kafka"
	nooppub "mealmail/internal/publisher/noop"
	"mealmail/internal/repository/postgres"
	"mealmail/internal/repository/sqlite"
	"mealmail/internal/service"
	s3storage "mealmail/internal/storage/s3"
	"mealmail/internal/trace"

	// Nutrition sources register themselves with the nutrition factory.
	_ "mealmail/internal/nutrition/nutritionix"
	_ "mealmail/internal/nutrition/openfoodfacts"
	_ "mealmail/internal/nutrition/usda"
)

// Options switch off parts of the pipeline for one-shot CLI runs.
type Options struct {
	DisableNutrition   bool
	DisablePersistence bool
	DisableOutputs     bool
}

// App is a fully wired order pipeline.
type App struct {
	Config     *config.Config
	Trace      *trace.Log
	Classifier *classifier.Classifier
	Extractor  *extractor.Extractor
	Resolver   *nutrition.Resolver
	Orders     service.OrderService

	// DB is the SQL handle behind the order repository, nil without persistence.
	DB *sqlx.DB

	closers []func() error
}

// New wires every component. Callers must Close the returned App.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, Trace: trace.NewLog(cfg.Log.TraceCapacity)}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	rules := classifier.DefaultRules()
	if cfg.Classifier.MinStrongIndicators > 0 {
		rules.MinStrongIndicators = cfg.Classifier.MinStrongIndicators
	}
	if len(cfg.Classifier.ExclusionTerms) > 0 {
		rules.ExclusionTerms = cfg.Classifier.ExclusionTerms
	}
	a.Classifier = classifier.New(rules, a.Trace)

	exOpts := extractor.DefaultOptions()
	if cfg.Classifier.RestaurantMinLen > 0 {
		exOpts.RestaurantMinLen = cfg.Classifier.RestaurantMinLen
	}
	if cfg.Classifier.RestaurantMaxLen > 0 {
		exOpts.RestaurantMaxLen = cfg.Classifier.RestaurantMaxLen
	}
	if len(cfg.Classifier.PaymentTokens) > 0 {
		exOpts.PaymentTokens = cfg.Classifier.PaymentTokens
	}
	a.Extractor = extractor.New(exOpts, a.Trace)

	var repo port.OrderRepository
	if !opts.DisablePersistence {
		var err error
		if repo, err = a.openOrderRepo(ctx, cfg); err != nil {
			return nil, err
		}
	}

	deps := service.OrderServiceDeps{
		Classifier: a.Classifier,
		Extractor:  a.Extractor,
		Aggregator: aggregator.New(cfg.Nutrition.Concurrency),
		Repo:       repo,
	}

	if cfg.Nutrition.Enabled && !opts.DisableNutrition {
		resolver, err := a.buildResolver(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.Resolver = resolver
		deps.Resolve = resolver.Resolve
	}

	if !opts.DisableOutputs {
		pub, err := a.buildPublisher(cfg)
		if err != nil {
			return nil, err
		}
		deps.Publisher = pub

		notifier, err := buildNotifier(cfg)
		if err != nil {
			return nil, err
		}
		deps.Notifier = notifier
	}

	a.Orders = service.NewOrderService(deps)
	ok = true
	return a, nil
}

// Close releases database handles and producers in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openOrderRepo(ctx context.Context, cfg *config.Config) (port.OrderRepository, error) {
	switch {
	case cfg.DB.Enabled:
		db, err := postgres.NewDB(ctx, &cfg.DB)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)
		return postgres.NewOrderRepo(db), nil
	case cfg.DB.SQLitePath != "":
		db, err := sqlite.NewDB(cfg.DB.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.closers = append(a.closers, db.Close)
		return sqlite.NewOrderRepo(db), nil
	default:
		log.Printf("app.New: order persistence disabled")
		return nil, nil
	}
}

func (a *App) buildResolver(ctx context.Context, cfg *config.Config) (*nutrition.Resolver, error) {
	tiers, err := nutrition.TiersFromConfig(&cfg.Nutrition)
	if err != nil {
		return nil, err
	}

	store, err := a.cacheStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cache := nutrition.NewCache(store)

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := cache.Load(loadCtx); err != nil {
		log.Printf("app.New: nutrition cache load failed, continuing in memory: %v", err)
	}
	log.Printf("app.New: nutrition resolver with %d tier(s), cache backend %s, %d cached entries",
		len(tiers), cfg.Nutrition.CacheBackend, cache.Len())

	return nutrition.NewResolver(tiers, cache, a.Trace), nil
}

func (a *App) cacheStore(ctx context.Context, cfg *config.Config) (port.CacheStore, error) {
	switch cfg.Nutrition.CacheBackend {
	case "", "memory":
		return nil, nil
	case "sqlite":
		if a.DB != nil && !cfg.DB.Enabled && cfg.DB.SQLitePath == cfg.Nutrition.SQLitePath {
			return sqlite.NewCacheStore(a.DB), nil
		}
		db, err := sqlite.NewDB(cfg.Nutrition.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return sqlite.NewCacheStore(db), nil
	case "postgres":
		db := a.DB
		if !cfg.DB.Enabled || db == nil {
			pg, err := postgres.NewDB(ctx, &cfg.DB)
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, pg.Close)
			db = pg
		}
		return postgres.NewNutritionCacheRepo(db), nil
	case "s3":
		blobs, err := s3storage.NewBlobStore(ctx, &cfg.S3)
		if err != nil {
			return nil, err
		}
		return s3storage.NewCacheSnapshotStore(blobs, cfg.Nutrition.S3CacheKey), nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedCacheStore, cfg.Nutrition.CacheBackend)
	}
}

func (a *App) buildPublisher(cfg *config.Config) (port.OrderPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nooppub.NewPublisher(), nil
	}
	pub, err := kafka.NewPublisher(&cfg.Kafka)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pub.Close)
	return pub, nil
}

func buildNotifier(cfg *config.Config) (port.SummarySender, error) {
	switch cfg.Email.Provider {
	case "", "noop":
		return noopemail.NewNoopSender(), nil
	case "ses":
		return ses.NewSESSender(&cfg.Email)
	default:
		return nil, fmt.Errorf("unknown email provider: %s", cfg.Email.Provider)
	}
}
