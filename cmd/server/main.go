package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/tirelane/tirelane/internal/api/cron"
	v1 "github.com/tirelane/tirelane/internal/api/v1"
	"github.com/tirelane/tirelane/internal/cache"
	"github.com/tirelane/tirelane/internal/config"
	"github.com/tirelane/tirelane/internal/domain/billingkey"
	"github.com/tirelane/tirelane/internal/domain/payment"
	"github.com/tirelane/tirelane/internal/domain/plan"
	"github.com/tirelane/tirelane/internal/domain/subscription"
	"github.com/tirelane/tirelane/internal/integration/tosspay"
	"github.com/tirelane/tirelane/internal/logger"
	"github.com/tirelane/tirelane/internal/postgres"
	gormrepo "github.com/tirelane/tirelane/internal/repository/gorm"
	"github.com/tirelane/tirelane/internal/rest"
	"github.com/tirelane/tirelane/internal/scheduler"
	"github.com/tirelane/tirelane/internal/sentry"
	"github.com/tirelane/tirelane/internal/service"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			newDBClient,
			newCache,
			newRepositories,
			plan.NewCatalog,
			tosspay.NewClient,
			newServiceParams,
			service.NewBillingService,
			service.NewSubscriptionService,
			v1.NewSubscriptionHandler,
			cron.NewBillingCronHandler,
			newRouter,
			scheduler.New,
		),
		fx.Invoke(initSentry),
		fx.Invoke(runMigrations),
		fx.Invoke(startServer),
		fx.Invoke(startScheduler),
	)

	app.Run()
}

type repositories struct {
	fx.Out

	SubRepo        subscription.Repository
	PaymentRepo    payment.Repository
	BillingKeyRepo billingkey.Repository
}

func newDBClient(cfg *config.Configuration, log *logger.Logger) (postgres.IClient, error) {
	return postgres.NewClient(cfg, log)
}

func newCache() cache.Cache {
	return cache.NewInMemoryCache()
}

func newRepositories(db postgres.IClient, c cache.Cache, log *logger.Logger) repositories {
	return repositories{
		SubRepo:     gormrepo.NewSubscriptionRepository(db, log),
		PaymentRepo: gormrepo.NewPaymentRepository(db, log),
		BillingKeyRepo: gormrepo.NewCachedBillingKeyRepository(
			gormrepo.NewBillingKeyRepository(db, log), c),
	}
}

func newServiceParams(
	cfg *config.Configuration,
	log *logger.Logger,
	db postgres.IClient,
	subRepo subscription.Repository,
	paymentRepo payment.Repository,
	billingKeyRepo billingkey.Repository,
	catalog *plan.Catalog,
	gateway tosspay.GatewayClient,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:         log,
		Config:         cfg,
		DB:             db,
		SubRepo:        subRepo,
		BillingKeyRepo: billingKeyRepo,
		PaymentRepo:    paymentRepo,
		PlanCatalog:    catalog,
		GatewayClient:  gateway,
	}
}

func newRouter(
	cfg *config.Configuration,
	log *logger.Logger,
	db postgres.IClient,
	subscriptionHandler *v1.SubscriptionHandler,
	billingCronHandler *cron.BillingCronHandler,
) *gin.Engine {
	return rest.NewRouter(cfg, log, db, rest.Handlers{
		Subscription: subscriptionHandler,
		BillingCron:  billingCronHandler,
	})
}

func runMigrations(db postgres.IClient, log *logger.Logger) error {
	if err := db.DB(context.Background()).AutoMigrate(
		&subscription.Subscription{},
		&billingkey.BillingKey{},
		&payment.Payment{},
	); err != nil {
		return err
	}
	log.Infow("database migrations applied")
	return nil
}

func initSentry(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger) error {
	flush, err := sentry.Initialize(cfg, log)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			flush()
			return nil
		},
	})
	return nil
}

func startServer(lc fx.Lifecycle, cfg *config.Configuration, log *logger.Logger, engine *gin.Engine) {
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow("starting http server", "address", cfg.Server.Address)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalw("http server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping http server")
			return server.Shutdown(ctx)
		},
	})
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping billing scheduler")
			s.Stop()
			return nil
		},
	})
}
