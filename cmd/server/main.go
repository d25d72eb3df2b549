// Command server runs the LeadHustle HTTP API: auth, billing and leads.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leadhustle/platform/internal/storage"
	"github.com/leadhustle/platform/pkg/billing"
	"github.com/leadhustle/platform/pkg/config"
	"github.com/leadhustle/platform/pkg/email"
	"github.com/leadhustle/platform/pkg/file"
	"github.com/leadhustle/platform/pkg/httpserver"
	"github.com/leadhustle/platform/pkg/identity"
	"github.com/leadhustle/platform/pkg/leads"
	"github.com/leadhustle/platform/pkg/logger"
	"github.com/leadhustle/platform/pkg/pg"
	redisconn "github.com/leadhustle/platform/pkg/redis"
	accountsvc "github.com/leadhustle/platform/svc/account"
	billingsvc "github.com/leadhustle/platform/svc/billing"
	leadssvc "github.com/leadhustle/platform/svc/leads"
)

type appConfig struct {
	Log      logger.Config
	HTTP     httpserver.Config
	PG       pg.Config
	Redis    redisconn.Config
	Email    email.Config
	Stripe   billing.StripeConfig
	Checkout billing.CheckoutConfig
	Token    identity.TokenConfig
	Account  accountsvc.Config
	S3       file.S3Config
	Local    file.LocalConfig

	PlansPath string `env:"PLANS_PATH" envDefault:"configs/plans.yaml"`
	PlanID    string `env:"PLAN_ID" envDefault:"pro_monthly"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.NewFromConfig(cfg.Log, logger.WithService("leadhustle-api"))
	slog.SetDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := redisconn.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	sender, err := email.NewFromConfig(cfg.Email)
	if err != nil {
		return fmt.Errorf("configure email sender: %w", err)
	}

	archive, err := newArchiveStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("configure file storage: %w", err)
	}

	provider, err := billing.NewStripeProvider(cfg.Stripe)
	if err != nil {
		return fmt.Errorf("configure stripe: %w", err)
	}

	catalog, err := billing.LoadCatalog(cfg.PlansPath)
	if err != nil {
		return fmt.Errorf("load plan catalog %s: %w", cfg.PlansPath, err)
	}
	plan, err := catalog.Plan(cfg.PlanID)
	if err != nil {
		return fmt.Errorf("select plan %q: %w", cfg.PlanID, err)
	}

	// Stores.
	billingStore := storage.NewBillingStore(pool)
	accountStore := storage.NewAccountStore(pool)
	leadStore := storage.NewLeadStore(pool)

	// Identity.
	tokens, err := identity.NewTokenService(cfg.Token)
	if err != nil {
		return fmt.Errorf("configure session tokens: %w", err)
	}
	accounts := identity.NewService(accountStore, log,
		identity.WithAfterRegister(welcomeHook(sender, cfg.Checkout.DefaultOrigin, log)))

	// Billing.
	resolver := billing.NewResolver(billingStore, provider, log)
	checkout := billing.NewCheckoutService(billingStore, provider, accounts, plan, cfg.Checkout, log)
	reconciler := billing.NewReconciler(billingStore, provider,
		billing.NewRedisDeduper(redisClient, 24*time.Hour), log)

	// Services.
	accountSvc := accountsvc.NewService(accounts, tokens, cfg.Account, log)
	billingSvc := billingsvc.NewService(resolver, checkout, reconciler, provider, log)
	leadsSvc := leadssvc.NewService(leads.NewImporter(leadStore), leadStore, archive, log)

	sessionAuth := identity.Middleware(tokens)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthHandler(log))
	r.Get("/readyz", httpserver.HealthHandler(log,
		pg.Healthcheck(pool),
		redisconn.Healthcheck(redisClient),
	))

	r.Mount("/account", accountSvc.Router())
	r.Mount("/billing", billingSvc.Router(sessionAuth))
	r.Route("/leads", func(r chi.Router) {
		r.Use(sessionAuth)
		r.Mount("/", leadsSvc.Router())
	})

	srv := httpserver.New(cfg.HTTP, log)
	if err := srv.Run(ctx, r); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newArchiveStorage prefers S3 when a bucket is configured and falls back to
// local disk, which suits development and single-node deployments.
func newArchiveStorage(ctx context.Context, cfg appConfig, log *slog.Logger) (file.Storage, error) {
	if cfg.S3.Bucket != "" {
		return file.NewS3Storage(ctx, cfg.S3)
	}
	log.Info("no S3 bucket configured, archiving uploads to local disk",
		slog.String("dir", cfg.Local.BaseDir))
	return file.NewLocalStorage(cfg.Local)
}

// welcomeHook sends the welcome email after registration. Failures are
// logged, never surfaced to the registering user.
func welcomeHook(sender email.Sender, origin string, log *slog.Logger) func(context.Context, *identity.Account) {
	return func(ctx context.Context, account *identity.Account) {
		msg, err := email.WelcomeMessage(account.Email, account.Name, origin+"/dashboard")
		if err != nil {
			log.ErrorContext(ctx, "failed to render welcome email",
				logger.AccountID(account.ID.String()), logger.Error(err))
			return
		}
		if err := sender.Send(ctx, msg); err != nil {
			log.ErrorContext(ctx, "failed to send welcome email",
				logger.AccountID(account.ID.String()), logger.Error(err))
		}
	}
}
