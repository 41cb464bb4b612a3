package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/market-pay/market_pay/internal/auth"
	"github.com/market-pay/market_pay/internal/config"
	"github.com/market-pay/market_pay/internal/identity"
	"github.com/market-pay/market_pay/internal/ledger"
	"github.com/market-pay/market_pay/internal/middleware"
	"github.com/market-pay/market_pay/internal/notification"
	"github.com/market-pay/market_pay/internal/payments"
	"github.com/market-pay/market_pay/internal/wallet"
	"github.com/market-pay/market_pay/internal/withdrawal"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. It returns the
// withdrawal reconciler so the caller can run it alongside the server.
func Setup(app *fiber.App, d Deps) (*withdrawal.Reconciler, error) {
	// Outside of dev the backing stores are mandatory; in dev the in-memory
	// backends make the service runnable with nothing installed.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var store ledger.Store
	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB, d.Cfg.DefaultCurrency)
	} else {
		store = ledger.NewMemory(d.Cfg.DefaultCurrency)
	}

	var users identity.Repository
	if d.DB != nil {
		users = identity.NewPostgresRepository(d.DB)
	} else {
		users = identity.NewMemoryRepository()
	}

	var withdrawals withdrawal.Repository
	if d.DB != nil {
		withdrawals = withdrawal.NewPostgresRepository(d.DB)
	} else {
		withdrawals = withdrawal.NewMemoryRepository()
	}

	var notifier notification.Notifier
	if d.Cache != nil {
		notifier = notification.NewRedisNotifier(d.Cache, "")
	} else {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}

	walletSvc := wallet.NewService(store)
	paymentSvc := payments.NewService(store, notifier, d.Logger)
	identitySvc := identity.NewService(users)
	authSvc := auth.NewService(d.Cfg, users)

	withdrawalSvc := withdrawal.NewService(withdrawals, paymentSvc, d.Cfg.WithdrawalFee, d.Logger)
	lifecycle := withdrawal.NewLifecycle(withdrawals, paymentSvc, notifier, d.Logger)
	reconciler := withdrawal.NewReconciler(withdrawals, lifecycle,
		d.Cfg.SweepInterval, d.Cfg.WithdrawalStaleAfter, d.Logger)

	authHandler := auth.NewHandler(identitySvc, authSvc, walletSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	paymentHandler := payments.NewHandler(paymentSvc, users)
	withdrawalHandler := withdrawal.NewHandler(withdrawalSvc, lifecycle, users, d.Cfg.ProviderSecret)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes.
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
	RegisterAuthRoutes(api, authHandler, rateLimiter)
	// Provider callbacks authenticate with a shared secret, not a user token.
	api.Post("/withdrawals/:id/provider", withdrawalHandler.ProviderCallback)

	// Protected routes. Idempotency runs after auth so keys are scoped to
	// the authenticated user.
	jwtmw := middleware.JWTAuth(d.Cfg, users)
	protected := api.Group("", jwtmw)
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		user, err := users.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":    user.ID,
			"email":      user.Email,
			"phone":      user.Phone,
			"created_at": user.CreatedAt,
			"last_login": user.LastLogin,
		})
	})
	RegisterWalletRoutes(protected, walletHandler)
	RegisterPaymentRoutes(protected, paymentHandler)
	RegisterWithdrawalRoutes(protected, withdrawalHandler)

	return reconciler, nil
}
