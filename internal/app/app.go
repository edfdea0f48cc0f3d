package app

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"parkpay/internal/config"
	"parkpay/internal/db"
	"parkpay/internal/gateway"
	httpserver "parkpay/internal/http"
	"parkpay/internal/http/handlers"
	"parkpay/internal/password"
	redisstore "parkpay/internal/redis"
	"parkpay/internal/repository"
	"parkpay/internal/service"
	"parkpay/internal/ws"
)

// App wires the parkpay dependency graph.
type App struct {
	server *httpserver.Server
	db     *sql.DB
	logger *zap.Logger
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	// The active-session cache is optional; the service degrades to Postgres
	// lookups when redis is not configured.
	var activeStore *redisstore.Store
	if cfg.Redis.Addr != "" {
		redisClient, err := redisstore.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			logger.Warn("redis unavailable, active-session cache disabled", zap.Error(err))
		} else {
			activeStore = redisstore.NewStore(redisClient, cfg.ActiveSessionTTL())
		}
	}

	userRepo := repository.NewUserRepository(sqlDB)
	walletRepo := repository.NewWalletRepository(sqlDB)
	sessionRepo := repository.NewSessionRepository(sqlDB)
	pricingRepo := repository.NewPricingRuleRepository(sqlDB)
	directoryRepo := repository.NewDirectoryRepository(sqlDB)

	hub := ws.NewHub(logger)

	walletService := service.NewWalletService(walletRepo, cfg.Wallet.Currency, logger)
	sessionService := service.NewSessionService(
		sessionRepo, directoryRepo, pricingRepo, walletService, activeStore, hub, logger)

	signer := gateway.NewSigner(gateway.Config{
		PartnerCode: cfg.Gateway.PartnerCode,
		AccessKey:   cfg.Gateway.AccessKey,
		SecretKey:   cfg.Gateway.SecretKey,
		Endpoint:    cfg.Gateway.Endpoint,
		RedirectURL: cfg.Gateway.RedirectURL,
		IPNURL:      cfg.Gateway.IPNURL,
		RequestType: cfg.Gateway.RequestType,
		Lang:        cfg.Gateway.Lang,
	})
	gatewayClient := gateway.NewClient(cfg.Gateway.Endpoint, nil)
	paymentService := service.NewPaymentService(
		walletRepo, gatewayClient, signer, cfg.GatewayTimeout(), logger)

	tokenService := service.NewTokenService(cfg.Auth.JWTSecret, cfg.TokenTTL())
	authService := service.NewAuthService(
		userRepo, walletService, password.NewBcryptHasher(cfg.Auth.BcryptCost), tokenService, logger)

	routes := httpserver.Routes{
		Signup: handlers.NewSignupHandler(authService),
		Login:  handlers.NewLoginHandler(authService),
		Verify: handlers.NewVerifyHandler(authService),

		SessionEntry:   handlers.NewSessionEntryHandler(sessionService),
		SessionExit:    handlers.NewSessionExitHandler(sessionService),
		SessionCancel:  handlers.NewSessionCancelHandler(sessionService),
		SessionsMe:     handlers.NewSessionsMeHandler(sessionService),
		ActiveSessions: handlers.NewActiveSessionsHandler(sessionService),

		WalletCreate:       handlers.NewWalletCreateHandler(walletService),
		WalletMe:           handlers.NewWalletMeHandler(walletService),
		WalletTransactions: handlers.NewWalletTransactionsHandler(walletService),

		PaymentCreate:   handlers.NewPaymentCreateHandler(paymentService),
		PaymentCallback: handlers.NewPaymentCallbackHandler(paymentService),
		PaymentReturn:   handlers.NewPaymentReturnHandler(),

		Events: hub.Handle,
		Health: handlers.NewHealthHandler(),
	}

	router := httpserver.NewRouter(routes)
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server: server,
		db:     sqlDB,
		logger: logger,
	}, nil
}

// Run starts HTTP server.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
