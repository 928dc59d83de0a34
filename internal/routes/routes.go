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

	"github.com/myriad-social/myriad_api/internal/auth"
	"github.com/myriad-social/myriad_api/internal/config"
	"github.com/myriad-social/myriad_api/internal/identity"
	"github.com/myriad-social/myriad_api/internal/kv"
	"github.com/myriad-social/myriad_api/internal/middleware"
	"github.com/myriad-social/myriad_api/internal/notification"
	"github.com/myriad-social/myriad_api/internal/otp"
	"github.com/myriad-social/myriad_api/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Store and Notifier override the backends derived from Cache and Cfg.
	Store    kv.Store
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil && d.Store == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	store := d.Store
	if store == nil {
		if d.Cache != nil {
			store = kv.NewRedisStore(d.Cache, "")
		} else {
			store = kv.NewMemoryStore(nil)
		}
	}
	notifier := d.Notifier
	if notifier == nil {
		var err error
		if notifier, err = newNotifier(d.Cfg, d.Logger); err != nil {
			return err
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d, store)

	var walletRepo wallet.Repository
	var identityRepo identity.Repository
	if d.DB != nil {
		walletRepo = wallet.NewPostgresRepository(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		walletRepo = wallet.NewMemoryRepository()
		identityRepo = identity.NewMemoryRepository()
	}
	walletSvc := wallet.NewService(walletRepo)
	identitySvc := identity.NewService(identityRepo, walletSvc)

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:    d.Cfg.TokenSecret,
		ExpiresIn: d.Cfg.AccessTokenTTL(),
		Issuer:    d.Cfg.TokenIssuer,
	})
	if err != nil {
		return err
	}
	refresh := auth.NewRefreshService(store, tokens, d.Cfg.RefreshTokenTTL)
	otpSvc := otp.NewService(store, notifier, d.Cfg.OTPTTL, d.Logger)
	pending := identity.NewPendingStore(store)

	guard := auth.NewGuard(identitySvc, walletSvc, otpSvc, pending, d.Logger)
	authSvc := auth.NewService(identitySvc, walletSvc, otpSvc, pending, tokens, refresh, d.Logger)

	app.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterIdentityRoutes(app, identity.NewHandler(identitySvc), middleware.JWTAuth(tokens))
	RegisterAuthRoutes(app, auth.NewHandler(authSvc), guard, AuthMiddlewares{
		Idempotency: middleware.Idempotency(store, d.Cfg.IdempotencyTTL, d.Logger),
		RateLimit:   middleware.LoginRateLimit(store, d.Cfg.LoginRateLimit, d.Logger),
	})

	return nil
}

// newNotifier picks SMTP delivery. Logging codes instead of mailing them is
// only acceptable in development.
func newNotifier(cfg config.Config, logger *slog.Logger) (notification.Notifier, error) {
	if cfg.SMTP.Host == "" {
		if !cfg.IsDev() {
			return nil, fmt.Errorf("smtp host is required when APP_ENV=%s", cfg.AppEnv)
		}
		return notification.NewLoggerNotifier(logger), nil
	}
	return notification.NewSMTPNotifier(notification.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.MailFrom,
	}), nil
}
