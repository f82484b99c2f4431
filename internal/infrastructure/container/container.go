// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/suppertime/v1/internal/application/decision"
	"github.com/suppertime/v1/internal/application/household"
	"github.com/suppertime/v1/internal/application/receipt"
	"github.com/suppertime/v1/internal/infrastructure/config"
	"github.com/suppertime/v1/internal/infrastructure/http/handlers"
	"github.com/suppertime/v1/internal/infrastructure/http/middleware"
	"github.com/suppertime/v1/internal/infrastructure/http/server"
	"github.com/suppertime/v1/internal/infrastructure/monitoring"
	"github.com/suppertime/v1/internal/infrastructure/ocr"
	"github.com/suppertime/v1/internal/infrastructure/persistence/memory"
	"github.com/suppertime/v1/internal/infrastructure/persistence/migrations"
	"github.com/suppertime/v1/internal/infrastructure/persistence/postgres"
	redisadapter "github.com/suppertime/v1/internal/infrastructure/persistence/redis"
	"github.com/suppertime/v1/internal/infrastructure/persistence/seed"
	"github.com/suppertime/v1/internal/infrastructure/security"
	"github.com/suppertime/v1/internal/ports/inbound"
	"github.com/suppertime/v1/internal/ports/outbound"
	"github.com/suppertime/v1/pkg/logger"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Module provides all dependency injection modules
var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	CacheModule,
	OCRModule,
	ServiceModule,
	MonitoringModule,
	HTTPModule,
	LifecycleModule,
)

// DatabaseProbe reports whether the selected database driver can
// serve queries. The readiness endpoint runs it on every poll.
type DatabaseProbe func(ctx context.Context) error

// CacheProbe reports whether the cache layer is reachable.
type CacheProbe func(ctx context.Context) error

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load("")
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
)

// Persistence bundles the repository ports behind whichever database
// driver the config selects.
type Persistence struct {
	fx.Out

	Households outbound.HouseholdRepository
	Meals      outbound.MealRepository
	Inventory  outbound.InventoryRepository
	Events     outbound.DecisionEventRepository
	Taste      outbound.TasteRepository
	Receipts   outbound.ReceiptRepository
	Probe      DatabaseProbe
}

// DatabaseModule provides the repository ports. The memory driver
// seeds the starter catalog on boot so a fresh process can serve
// decisions immediately; the postgres driver migrates on boot and
// seeds only when the flag asks for it.
var DatabaseModule = fx.Provide(NewPersistence)

// NewPersistence selects and wires the database driver.
func NewPersistence(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (Persistence, error) {
	if cfg.Database.Driver == "memory" {
		store := memory.NewStore()
		p := Persistence{
			Households: memory.NewHouseholdRepository(store),
			Meals:      memory.NewMealRepository(store),
			Inventory:  memory.NewInventoryRepository(store),
			Events:     memory.NewEventRepository(store),
			Taste:      memory.NewTasteRepository(store),
			Receipts:   memory.NewReceiptRepository(store),
			Probe:      func(context.Context) error { return nil },
		}

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				log.Info("Using in-memory database")
				return seed.Apply(ctx, p.Households, p.Meals, p.Inventory, log)
			},
		})

		return p, nil
	}

	pool, err := postgres.Connect(context.Background(), cfg, log)
	if err != nil {
		return Persistence{}, err
	}

	p := Persistence{
		Households: postgres.NewHouseholdRepository(pool, log),
		Meals:      postgres.NewMealRepository(pool, log),
		Inventory:  postgres.NewInventoryRepository(pool, log),
		Events:     postgres.NewEventRepository(pool, log),
		Taste:      postgres.NewTasteRepository(pool, log),
		Receipts:   postgres.NewReceiptRepository(pool, log),
		Probe: func(ctx context.Context) error {
			return postgres.HealthCheck(ctx, pool)
		},
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := migrateUp(cfg, log); err != nil {
				return err
			}
			if cfg.Features.SeedOnBoot {
				return seed.Apply(ctx, p.Households, p.Meals, p.Inventory, log)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			pool.Close()
			return nil
		},
	})

	return p, nil
}

func migrateUp(cfg *config.Config, log *zap.Logger) error {
	db, err := postgres.OpenSQL(cfg)
	if err != nil {
		return err
	}

	migrator, err := migrations.New(db, log)
	if err != nil {
		db.Close()
		return err
	}
	defer migrator.Close()

	return migrator.Up()
}

// CacheModule provides caching. Redis when enabled, otherwise the
// in-process cache.
var CacheModule = fx.Provide(
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (outbound.CacheRepository, CacheProbe, error) {
		if !cfg.Redis.Enabled {
			log.Info("Using in-memory cache")
			return memory.NewCacheRepository(), func(context.Context) error { return nil }, nil
		}

		cache, err := redisadapter.NewCacheRepository(&cfg.Redis, log)
		if err != nil {
			return nil, nil, err
		}

		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return cache.Close()
			},
		})

		return cache, cache.HealthCheck, nil
	},
)

// OCRModule provides the receipt text extractor
var OCRModule = fx.Provide(
	ocr.NewExtractor,
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	// Household service: registration plus token issuance
	func(households outbound.HouseholdRepository, cfg *config.Config, log *zap.Logger) *household.Service {
		return household.NewService(households, cfg.Auth.JWTSecret, log)
	},
	func(svc *household.Service) inbound.AuthService {
		return svc
	},

	func(
		meals outbound.MealRepository,
		inventoryRepo outbound.InventoryRepository,
		events outbound.DecisionEventRepository,
		tasteRepo outbound.TasteRepository,
		cache outbound.CacheRepository,
		metrics outbound.BusinessMetrics,
		cfg *config.Config,
		log *zap.Logger,
	) inbound.DecisionService {
		return decision.NewService(meals, inventoryRepo, events, tasteRepo, cache, metrics, cfg.Decision.Deadline, log)
	},

	receipt.NewService,

	security.NewAuthService,
	security.NewValidationService,
)

// MonitoringModule provides metrics, tracing, and health checks
var MonitoringModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) *monitoring.Metrics {
		if !cfg.Monitoring.EnableMetrics {
			return nil
		}
		return monitoring.NewMetrics(log)
	},
	func(m *monitoring.Metrics) outbound.BusinessMetrics {
		if m == nil {
			return outbound.NopBusinessMetrics{}
		}
		return m
	},
	func(cfg *config.Config, log *zap.Logger, dbProbe DatabaseProbe, cacheProbe CacheProbe) *monitoring.HealthChecker {
		hc := monitoring.NewHealthChecker(cfg.App.Name, cfg.App.Version, log)
		hc.Register("database", monitoring.Probe(dbProbe))
		hc.Register("cache", monitoring.Probe(cacheProbe))
		return hc
	},
	func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*sdktrace.TracerProvider, error) {
		tp, err := monitoring.NewTracerProvider(context.Background(), cfg, log)
		if err != nil {
			return nil, err
		}
		if tp != nil {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return tp.Shutdown(ctx)
				},
			})
		}
		return tp, nil
	},
)

// HTTPModule provides the HTTP server, handlers, and rate limiter
var HTTPModule = fx.Provide(
	handlers.NewAPIHandlers,
	func(cfg *config.Config, log *zap.Logger) *middleware.RateLimiter {
		if !cfg.RateLimit.Enable {
			return nil
		}
		return middleware.NewRateLimiter(cfg.RateLimit, log)
	},
	server.NewServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks. The
// tracer provider parameter forces its construction; nothing else
// depends on it because spans go through the global otel provider.
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	srv *server.Server,
	tracer *sdktrace.TracerProvider,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting Suppertime",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.String("database_driver", cfg.Database.Driver),
			)

			// File edits toggle maintenance without a restart. Watch is
			// a no-op when no config file is in use.
			cfg.Watch(log, func(fresh *config.Config) {
				srv.SetMaintenanceMode(fresh.Features.MaintenanceMode)
			})

			go func() {
				if err := srv.Start(); err != nil && err != http.ErrServerClosed {
					log.Fatal("Failed to start HTTP server", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Suppertime")

			if err := srv.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			_ = log.Sync()

			return nil
		},
	})
}
