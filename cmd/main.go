package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/KaiavN/Transac/internal/config"
	"github.com/KaiavN/Transac/internal/db"
	"github.com/KaiavN/Transac/internal/db/migrate"
	"github.com/KaiavN/Transac/internal/handler"
	"github.com/KaiavN/Transac/internal/handler/middleware"
	"github.com/KaiavN/Transac/internal/logutil"
	"github.com/KaiavN/Transac/internal/ratelimit"
	"github.com/KaiavN/Transac/internal/repository/postgres"
	"github.com/KaiavN/Transac/internal/service"
	"github.com/KaiavN/Transac/internal/session"
	"github.com/KaiavN/Transac/internal/worker"
	"github.com/KaiavN/Transac/pkg/contractgen"
	"github.com/KaiavN/Transac/pkg/crypto"
	"github.com/KaiavN/Transac/pkg/email"
	"github.com/KaiavN/Transac/pkg/hash"
	"github.com/KaiavN/Transac/pkg/jwt"
	"github.com/KaiavN/Transac/pkg/oauth/google"
	"github.com/KaiavN/Transac/pkg/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logutil.New("development").Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	log := logutil.New(cfg.Server.Environment)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, db.DefaultOptions(cfg.Database.DSN()), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error("error closing database connection", "err", err)
		}
	}()
	log.Info("database connection established")

	if cfg.Database.MigrateOnStart {
		if err := migrate.Run(cfg.Database.URL(), migrate.DirectionUp); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		log.Info("migrations applied")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = initRedis(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("error closing redis connection", "err", err)
			}
		}()
		log.Info("redis connection established", "addr", cfg.Redis.Addr())
	}

	// Stores
	var sessionStore session.Store = session.NewMemoryStore()
	if cfg.Session.Backend == config.BackendRedis {
		sessionStore = session.NewRedisStore(redisClient, cfg.Session.InactivityTimeout)
	}
	sessions := session.NewManager(sessionStore, cfg.Session.Duration, cfg.Session.InactivityTimeout, log)

	policy := ratelimit.Policy{
		MaxRequests:   cfg.RateLimit.MaxRequests,
		Window:        cfg.RateLimit.Window,
		BlockDuration: cfg.RateLimit.BlockDuration,
	}
	var rateStore ratelimit.Store = ratelimit.NewMemoryStore()
	if cfg.RateLimit.Backend == config.BackendRedis {
		rateStore = ratelimit.NewRedisStore(redisClient, policy.Retention())
	}
	limiter := ratelimit.New(policy, rateStore, log)
	log.Info("session and rate limit stores ready", "session_backend", cfg.Session.Backend, "rate_limit_backend", cfg.RateLimit.Backend)

	// Primitives
	cipher, err := crypto.NewCipher(cfg.Crypto.EncryptionKey(), cfg.Crypto.LegacyFallback)
	if err != nil {
		return fmt.Errorf("failed to initialize cipher: %w", err)
	}
	hasher := hash.Default()
	validate := validator.NewValidator()

	tokenService, err := jwt.NewTokenService(cfg.Transaction.TokenSecret, cfg.Transaction.TokenTTL, cfg.Transaction.Issuer)
	if err != nil {
		return fmt.Errorf("failed to initialize transaction token service: %w", err)
	}

	notifier, err := initNotifier(cfg, log)
	if err != nil {
		return err
	}

	generator, err := contractgen.NewClient(contractgen.Config{
		BaseURL: cfg.ContractGen.BaseURL,
		APIKey:  cfg.ContractGen.APIKey,
		Model:   cfg.ContractGen.Model,
		Timeout: cfg.ContractGen.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize contract generator: %w", err)
	}

	// Repositories
	userRepo := postgres.NewUserRepository(database)
	orgRepo := postgres.NewOrganizationRepository(database)
	contractRepo := postgres.NewContractRepository(database)

	// Services
	authService := service.NewAuthService(userRepo, sessions, hasher, notifier, log)
	userService := service.NewUserService(userRepo, cipher, hasher, log)
	orgService := service.NewOrganizationService(orgRepo, userRepo, notifier, log)
	txService := service.NewTransactionService(orgRepo, service.Thresholds{
		Default:   cfg.Transaction.DefaultCeiling,
		Emergency: cfg.Transaction.EmergencyCeiling,
		Recurring: cfg.Transaction.RecurringCeiling,
	}, tokenService, log)
	contractService := service.NewContractService(contractRepo, userRepo, generator, log)

	// Handlers
	cookies := middleware.SessionCookieConfig{
		CookieName: cfg.Session.CookieName,
		HeaderName: cfg.Session.HeaderName,
		Secure:     cfg.Server.SecureCookies,
	}
	csrf := middleware.CSRFConfig{
		CookieName:  cfg.CSRF.CookieName,
		HeaderName:  cfg.CSRF.HeaderName,
		SafeMethods: cfg.CSRF.SafeMethods,
		Secure:      cfg.Server.SecureCookies,
	}

	handlers := handler.Handlers{
		Health:       handler.NewHealthHandler(readinessChecks(database, redisClient), log),
		Auth:         handler.NewAuthHandler(authService, validate, cookies, csrf, log),
		User:         handler.NewUserHandler(userService, validate, log),
		Organization: handler.NewOrganizationHandler(orgService, validate, log),
		Transaction:  handler.NewTransactionHandler(txService, validate, log),
		Contract:     handler.NewContractHandler(contractService, validate, log),
	}

	if cfg.Google.ClientID != "" {
		provider, err := google.New(ctx, google.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize google sign-in: %w", err)
		}
		handlers.OAuth = handler.NewOAuthHandler(provider, authService, cookies, cfg.Server.FrontendURL, log)
		log.Info("google sign-in enabled")
	} else {
		log.Info("google sign-in disabled (set GOOGLE_CLIENT_ID to enable)")
	}

	// Background sweeps
	sweepers := []*worker.Periodic{
		worker.NewPeriodic("session-sweep", cfg.Session.SweepInterval, sessions.SweepJob, log),
		worker.NewPeriodic("rate-limit-sweep", cfg.RateLimit.SweepInterval, limiter.SweepJob, log),
	}
	for _, w := range sweepers {
		w.Start(ctx)
	}
	defer func() {
		for _, w := range sweepers {
			w.Stop()
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      "Transac",
		ErrorHandler: errorHandler(log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Use(requestid.New())
	app.Use(middleware.RecoveryMiddleware(log))
	app.Use(middleware.LoggerMiddleware(log))
	app.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Session.HeaderName, cfg.CSRF.HeaderName))

	handler.SetupRoutes(app, handlers, handler.Middleware{
		RateLimit:     middleware.RateLimit(limiter, log),
		CSRF:          middleware.CSRF(csrf),
		Auth:          middleware.AuthMiddleware(sessions, cookies, log),
		RequireMember: middleware.RequireOrgMember(orgRepo, false, log),
		RequireAdmin:  middleware.RequireOrgMember(orgRepo, true, log),
	})

	listenErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Info("server starting", "addr", addr, "environment", cfg.Server.Environment)
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}
	log.Info("shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "err", err)
	}
	log.Info("server stopped")
	return nil
}

// initRedis initializes the Redis client and verifies the connection
func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func initNotifier(cfg *config.Config, log *slog.Logger) (email.Notifier, error) {
	if !cfg.Email.Enabled {
		log.Info("email disabled (set EMAIL_ENABLED=true to enable)")
		return email.NewNoopNotifier(log), nil
	}

	notifier, err := email.NewResendNotifier(email.Config{
		APIKey:    cfg.Email.APIKey,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
		AppURL:    cfg.Server.FrontendURL,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email: %w", err)
	}
	log.Info("email enabled", "provider", "resend", "from", cfg.Email.FromEmail)
	return notifier, nil
}

func readinessChecks(database *sqlx.DB, redisClient *redis.Client) map[string]handler.Check {
	checks := map[string]handler.Check{
		"database": database.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}

// errorHandler handles errors that escaped the handlers, mostly routing misses.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": message,
		})
	}
}
