package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"storefront/pkg/common/domain"
	"storefront/pkg/config"
	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/infrastructure/amqp"
	"storefront/pkg/infrastructure/auth"
	"storefront/pkg/infrastructure/cooldown"
	"storefront/pkg/infrastructure/event"
	"storefront/pkg/infrastructure/gateway"
	"storefront/pkg/infrastructure/mail"
	"storefront/pkg/infrastructure/mysql"
	"storefront/pkg/infrastructure/password"
	"storefront/pkg/jobs"
	"storefront/pkg/transport"
	"storefront/pkg/transport/health"
)

const shutdownTimeout = 15 * time.Second

func serve(c *cli.Context) error {
	cfg, closeLog := loadConfig(c)
	defer closeLog()

	db, err := mysql.Open(databaseConfig(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := mysql.Migrate(db.DB, mysql.Up); err != nil {
			return err
		}
	}

	dispatcher, closeDispatcher, err := newDispatcher(cfg)
	if err != nil {
		return err
	}
	defer closeDispatcher()

	cooldownStore, closeCooldown := newCooldownStore(cfg)
	defer closeCooldown()

	services := buildServices(cfg, db, dispatcher, cooldownStore)
	ready := func(ctx context.Context) error { return db.PingContext(ctx) }

	scheduler := jobs.NewScheduler()
	if err := scheduler.Register("expire-custom-services", cfg.ExpireQuotesSchedule, services.Quotes.ExpireOverdue); err != nil {
		return err
	}
	if err := scheduler.Register("mark-overdue-invoices", cfg.OverdueInvoiceSchedule, services.Invoices.MarkOverdue); err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddress,
		Handler: transport.Router(services, transport.Options{
			Tokens:                 auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
			StripeWebhookSecret:    cfg.StripeWebhookSecret,
			StripeWebhookTolerance: cfg.StripeWebhookTolerance,
			CORSOrigins:            cfg.CORSOrigins,
			RateLimitRPS:           cfg.RateLimitRPS,
			RateLimitBurst:         cfg.RateLimitBurst,
			Ready:                  ready,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithFields(log.Fields{"url": cfg.HTTPAddress}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "serve http")
		}
		return nil
	})
	g.Go(func() error {
		return health.NewServer(ready).Serve(ctx, cfg.GRPCAddress, 15*time.Second)
	})
	g.Go(func() error {
		scheduler.Start()
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		scheduler.Stop(shutdownCtx)
		return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown http")
	})

	return g.Wait()
}

func databaseConfig(cfg *config.Config) mysql.Config {
	return mysql.Config{
		DSN:             cfg.DatabaseDSN,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
		ConnectTimeout:  cfg.ConnectTimeout,
	}
}

func newDispatcher(cfg *config.Config) (domain.EventDispatcher, func(), error) {
	if cfg.AMQPURL == "" {
		log.Info("no message broker configured, domain events go to the log")
		return event.NewLogDispatcher(), func() {}, nil
	}
	dispatcher, err := amqp.NewDispatcher(amqp.Config{
		URL:            cfg.AMQPURL,
		Exchange:       cfg.AMQPExchange,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return dispatcher, func() {
		if err := dispatcher.Close(); err != nil {
			log.WithError(err).Warn("failed to close message broker connection")
		}
	}, nil
}

func newCooldownStore(cfg *config.Config) (model.CooldownStore, func()) {
	if cfg.RedisAddress == "" {
		return cooldown.NewMemoryStore(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
	return cooldown.NewRedisStore(client), func() { client.Close() }
}

func buildServices(cfg *config.Config, db *sqlx.DB, dispatcher domain.EventDispatcher, cooldownStore model.CooldownStore) transport.Services {
	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)
	serviceRepo := mysql.NewServiceRepository(db)
	quoteRepo := mysql.NewCustomServiceRepository(db)
	orderRepo := mysql.NewOrderRepository(db)

	settings := service.NewSettingsService(mysql.NewSettingRepository(db))
	systemLogs := service.NewSystemLogService(mysql.NewSystemLogRepository(db))
	wallets := service.NewWalletService(mysql.NewWalletRepository(db), dispatcher, cfg.Currency)
	notifications := service.NewNotificationService(mysql.NewNotificationRepository(db), userRepo, dispatcher)
	invoices := service.NewInvoiceService(mysql.NewInvoiceRepository(db), settings, dispatcher)
	gateways := map[model.PaymentMethod]model.PaymentGateway{
		model.MethodStripe: gateway.NewStripeSandbox(),
		model.MethodPayPal: gateway.NewPayPalSandbox(cfg.PayPalCheckoutURL),
	}

	return transport.Services{
		Users: service.NewUserService(
			userRepo,
			password.NewBcryptManager(cfg.BcryptCost),
			wallets,
			mail.NewLogMailer(cfg.MailFrom),
			cooldownStore,
			dispatcher,
			service.UserOptions{
				VerificationTTL: cfg.VerificationTTL,
				ResendCooldown:  cfg.VerificationCooldown,
				VerifyURL:       cfg.PublicURL + "/api/auth/verify?token=",
			},
		),
		Catalog:       service.NewCatalogService(mysql.NewCategoryRepository(db), productRepo, serviceRepo, dispatcher),
		Quotes:        service.NewQuoteService(quoteRepo, userRepo, notifications, dispatcher, cfg.PublicURL+"/custom-services/"),
		Orders:        service.NewOrderService(orderRepo, productRepo, serviceRepo, quoteRepo, notifications, dispatcher, cfg.Currency),
		Payments:      service.NewPaymentService(mysql.NewPaymentRepository(db), orderRepo, quoteRepo, wallets, gateways, invoices, notifications, systemLogs, dispatcher),
		Invoices:      invoices,
		Reviews:       service.NewReviewService(mysql.NewReviewRepository(db), orderRepo, dispatcher),
		Notifications: notifications,
		Wallets:       wallets,
		Settings:      settings,
		SystemLogs:    systemLogs,
	}
}
