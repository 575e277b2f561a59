package app

import (
	"context"
	"database/sql"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	libdb "voltswap/libs/db"
	libredis "voltswap/libs/redis"

	"voltswap/internal/auth"
	"voltswap/internal/cache"
	"voltswap/internal/config"
	"voltswap/internal/events"
	httpserver "voltswap/internal/http"
	"voltswap/internal/http/handlers"
	"voltswap/internal/payments"
	"voltswap/internal/repository"
	"voltswap/internal/session"
	"voltswap/internal/wizard"
	"voltswap/internal/ws"
)

// App wires all dependencies for the swap service.
type App struct {
	httpServer *httpserver.Server
	subscriber *events.Subscriber
	hub        *ws.Hub
	reconciler *payments.Reconciler
	db         *sql.DB
	redis      *goredis.Client
	logger     *zap.Logger
}

// New builds the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := libdb.NewPostgresDB(cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	userRepo := repository.NewUserRepository(sqlDB)
	vehicleRepo := repository.NewVehicleRepository(sqlDB)
	stationRepo := repository.NewStationRepository(sqlDB)
	batteryRepo := repository.NewBatteryRepository(sqlDB)
	invoiceRepo := repository.NewInvoiceRepository(sqlDB)
	txRepo := repository.NewTransactionRepository(sqlDB)

	sessionStore := session.NewStore()
	sessionCache := cache.NewSessionCache(redisClient, cfg.SessionCacheTTL())

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.TokenTTL())

	reconciler := payments.NewReconciler(sessionStore, txRepo, invoiceRepo, logger)

	hub := ws.NewHub(cfg.PingInterval(), logger)
	reconciler.Subscribe(hub.PaymentListener())

	wizardSvc := wizard.NewService(
		sessionStore,
		userRepo,
		vehicleRepo,
		stationRepo,
		batteryRepo,
		invoiceRepo,
		batteryRepo,
		reconciler,
		sessionCache,
		logger,
	)

	subscriber := events.NewSubscriber(
		redisClient,
		cfg.Payments.EventsChannel,
		reconciler,
		hub,
		cfg.Payments.ReconnectAttempts,
		cfg.ReconnectBackoff(),
		logger,
	)

	wsServer := ws.NewServer(hub, tokens, cfg.WriteTimeout(), logger)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Auth:      handlers.NewAuthHandlers(userRepo, tokens, logger),
		Walkin:    handlers.NewWalkinHandlers(wizardSvc, logger),
		Reference: handlers.NewReferenceHandlers(userRepo, stationRepo, batteryRepo, logger),
		Payments:  handlers.NewPaymentHandlers(reconciler, logger),
		Tokens:    tokens,
		WSHandler: wsServer.HandleWS,
	})

	return &App{
		httpServer: httpserver.NewServer(cfg.HTTPAddress(), router, logger),
		subscriber: subscriber,
		hub:        hub,
		reconciler: reconciler,
		db:         sqlDB,
		redis:      redisClient,
		logger:     logger,
	}, nil
}

// Run starts the hub ping loop, the payment event subscriber, and the HTTP
// server. Blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Start(ctx)
	go a.subscriber.Run(ctx)
	return a.httpServer.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	a.reconciler.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("failed to close redis", zap.Error(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close db", zap.Error(err))
	}
}
