package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tradeGate/config"
	"tradeGate/internal/adapters/binanceclient"
	"tradeGate/internal/adapters/exchangehttp"
	"tradeGate/internal/adapters/httpapi"
	"tradeGate/internal/adapters/logger"
	"tradeGate/internal/adapters/memory"
	"tradeGate/internal/adapters/metrics"
	"tradeGate/internal/adapters/sqlite"
	"tradeGate/internal/app"
	"tradeGate/internal/domain"
	"tradeGate/internal/execution"
	"tradeGate/internal/ports"
	"tradeGate/internal/rollover"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": string(cfg.LogFormat)})

	// 3. Initialize State Store (and attempt log when persistent)
	var states ports.TraderStateRepository
	var recorder ports.AttemptRecorder
	switch cfg.StateStore {
	case config.StoreMemory:
		states = memory.NewStateStore()
		appLogger.Warn(ctx, "Using in-memory state store; risk state is lost on restart")
	default:
		repo, err := sqlite.NewRepository(sqlite.Config{
			DBPath: cfg.DBPath,
			Logger: appLogger,
		})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
			log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
		}
		defer func() {
			if err := repo.Close(); err != nil {
				appLogger.Error(context.Background(), err, "Error closing database repository")
			}
		}()
		states, recorder = repo, repo
		appLogger.Info(ctx, "Database repository initialized")
	}

	// 4. Initialize Market Data (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
		SpecTTL:    cfg.AssetSpecTTL,
		MaxRetries: cfg.MetadataMaxRetries,
		QuoteAsset: cfg.QuoteAsset,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	if err := binanceClient.Ping(ctx); err != nil {
		// Not fatal: orders are refused with PRICE_UNAVAILABLE until the venue answers.
		appLogger.Warn(ctx, "Binance market data not reachable at startup", map[string]interface{}{"error": err.Error()})
	}
	appLogger.Info(ctx, "Binance client initialized", map[string]interface{}{"testnet": cfg.IsTestnet})

	// 5. Initialize Order Transport (live only)
	var transport ports.OrderTransport
	if cfg.AllowLiveTrading {
		headers := map[string]string{}
		if cfg.ExchangeAPIKey != "" {
			headers["X-Api-Key"] = cfg.ExchangeAPIKey
		}
		t, err := exchangehttp.New(exchangehttp.Config{
			OrderURL: cfg.ExchangeOrderURL,
			Logger:   appLogger,
			Timeout:  cfg.SubmitTimeout + 5*time.Second,
			Headers:  headers,
		})
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize exchange transport")
			log.Fatalf("FATAL: Failed to initialize exchange transport: %v", err)
		}
		transport = t
		appLogger.Warn(ctx, "LIVE trading is allowed; identities switched to LIVE will send real orders", map[string]interface{}{"url": cfg.ExchangeOrderURL})
	}

	dispatcher, err := execution.NewDispatcher(execution.Config{
		Transport:     transport,
		Logger:        appLogger,
		SubmitTimeout: cfg.SubmitTimeout,
		TimeInForce:   cfg.OrderTIF,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize order dispatcher")
		log.Fatalf("FATAL: Failed to initialize order dispatcher: %v", err)
	}

	// 6. Initialize Metrics
	metricsRecorder, err := metrics.NewRecorder(prometheus.NewRegistry())
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize metrics")
		log.Fatalf("FATAL: Failed to initialize metrics: %v", err)
	}

	// 7. Initialize Application Service
	executionService, err := app.NewExecutionService(app.Config{
		Logger:        appLogger,
		MarketData:    binanceClient,
		Dispatcher:    dispatcher,
		States:        states,
		Recorder:      recorder,
		Metrics:       metricsRecorder,
		DefaultParams: cfg.Risk,
		Builder: domain.BuilderInfo{
			Address:      cfg.BuilderAddress,
			FeeTenthsBps: cfg.BuilderFeeTenthsBps,
		},
		AllowLive: cfg.AllowLiveTrading,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize execution service")
		log.Fatalf("FATAL: Failed to initialize execution service: %v", err)
	}
	appLogger.Info(ctx, "Execution service initialized", map[string]interface{}{"defaultMode": string(cfg.Risk.Mode)})

	// 8. Initialize Daily Rollover
	dayManager, err := rollover.NewDayManager(rollover.Config{
		Location: cfg.RolloverLocation,
		Resetter: executionService,
		Logger:   appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize day manager")
		log.Fatalf("FATAL: Failed to initialize day manager: %v", err)
	}
	if _, err := dayManager.InitAtStartup(ctx); err != nil {
		appLogger.Error(ctx, err, "Startup rollover finished with errors")
	}
	go dayManager.Run(ctx)

	// 9. Start the HTTP API
	server, err := httpapi.NewServer(httpapi.Config{
		Addr:           cfg.HTTPAddr,
		Service:        executionService,
		Logger:         appLogger,
		MetricsHandler: metricsRecorder.Handler(),
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize HTTP API")
		log.Fatalf("FATAL: Failed to initialize HTTP API: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		appLogger.Info(context.Background(), "Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			appLogger.Error(context.Background(), err, "HTTP API exited with error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, err, "Error shutting down HTTP API")
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
