package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/papertrade-backend/internal/adapter/grpc"
	"github.com/simaogato/papertrade-backend/internal/adapter/httpapi"
	"github.com/simaogato/papertrade-backend/internal/adapter/provider"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/sqlstore"
	"github.com/simaogato/papertrade-backend/internal/config"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/logger"
	"github.com/simaogato/papertrade-backend/internal/usecase/account"
	"github.com/simaogato/papertrade-backend/internal/usecase/ledger"
	"github.com/simaogato/papertrade-backend/internal/usecase/marketdata"
	"github.com/simaogato/papertrade-backend/internal/usecase/pricefeed"
	"github.com/simaogato/papertrade-backend/internal/usecase/seeder"
	"github.com/simaogato/papertrade-backend/internal/usecase/trading"
	"github.com/simaogato/papertrade-backend/internal/usecase/valuation"
	"github.com/simaogato/papertrade-backend/internal/usecase/watchlist"
)

const (
	dbConnectAttempts = 5
	dbRetryDelay      = 2 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	app := &cli.App{
		Name:  "papertrade-server",
		Usage: "paper trading backend (gRPC + HTTP)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{config.EnvPrefix + "_CONFIG"},
			},
		},
		Action: func(c *cli.Context) error {
			return run(c.String("config"))
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 1. Setup Database
	db, err := connectDB(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	// 2. Initialize Repositories
	accountRepo := sqlstore.NewAccountRepository(db)
	portfolioRepo := sqlstore.NewPortfolioRepository(db)
	tradeRepo := sqlstore.NewTradeRepository(db)
	snapshotRepo := sqlstore.NewSnapshotRepository(db)
	watchlistRepo := sqlstore.NewWatchlistRepository(db)

	// 3. Market data
	chain, searchers, err := buildChain(cfg, log)
	if err != nil {
		return err
	}
	cache := marketdata.NewQuoteCache()
	quotes := marketdata.NewAggregator(cache, chain, cfg.Quotes.CacheTTL, log)
	catalog := marketdata.NewCatalog(chain, searchers, cfg.Location(), log)

	// 4. Initialize Services (Use Cases)
	tradeLedger := ledger.NewLedger(portfolioRepo, cfg.Trading.LockTimeout, log)
	tradingService := trading.NewTradingService(quotes, tradeLedger, tradeRepo, trading.FeePolicy{Percent: cfg.FeePercent()}, log)
	valuationService := valuation.NewValuationService(portfolioRepo, snapshotRepo, accountRepo, quotes, cfg.Location(), log)
	watchlistService := watchlist.NewWatchlistService(watchlistRepo, quotes)
	accountService := account.NewAccountService(accountRepo)
	hub := pricefeed.NewHub(quotes, cfg.PriceFeed.Interval, log)

	defaultAccountID, err := seedAccounts(ctx, cfg, accountRepo, watchlistRepo)
	if err != nil {
		return err
	}
	log.Info("accounts seeded", "default_account", defaultAccountID)

	// 5. Servers
	grpcServer := grpclib.NewServer(grpclib.ChainUnaryInterceptor(
		grpcadapter.LoggingInterceptor(log),
		grpcadapter.AuthInterceptor(cfg.GRPC.APIToken),
	))
	grpcadapter.RegisterPaperTradeServiceServer(grpcServer, grpcadapter.NewServer(
		quotes, catalog, tradingService, valuationService, watchlistService, accountService, defaultAccountID,
	))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPC.Addr, err)
	}

	var httpServer *http.Server
	if cfg.HTTP.Enabled {
		handler := &httpapi.Handler{
			Quotes:           quotes,
			Catalog:          catalog,
			TradingService:   tradingService,
			ValuationService: valuationService,
			WatchlistService: watchlistService,
			AccountService:   accountService,
			PriceFeed:        hub,
			APIToken:         cfg.GRPC.APIToken,
			DefaultAccountID: defaultAccountID,
			Logger:           log,
		}
		httpServer = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler.NewRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreCanceled(valuation.NewSnapshotJob(valuationService, cfg.Snapshot.Interval, cfg.Snapshot.RunOnStart, log).Run(gctx))
	})
	g.Go(func() error { return ignoreCanceled(hub.Run(gctx)) })
	g.Go(func() error { return ignoreCanceled(cache.RunJanitor(gctx, cfg.Quotes.CacheTTL)) })

	g.Go(func() error {
		log.Info("gRPC server listening", "addr", cfg.GRPC.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("failed to serve gRPC server: %w", err)
		}
		return nil
	})
	if httpServer != nil {
		g.Go(func() error {
			log.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to serve HTTP server: %w", err)
			}
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down gracefully")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if httpServer != nil {
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				log.Warn("HTTP shutdown", "error", err)
			}
		}
		grpcServer.GracefulStop()
		log.Info("servers stopped")
		return nil
	})

	return g.Wait()
}

// connectDB opens the database, retrying while it comes up (e.g. a Postgres
// container started alongside the server)
func connectDB(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (*sqlstore.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= dbConnectAttempts; attempt++ {
		db, err := sqlstore.NewDB(cfg.Driver, cfg.DSN)
		if err == nil {
			return db, nil
		}
		lastErr = err
		log.Warn("database not ready", "driver", cfg.Driver, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dbRetryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to database: %w", lastErr)
}

// buildChain creates each enabled provider once and registers it for every
// asset class whose chain names it, in configured order. Built providers that
// search symbols are returned in provider.Names order.
func buildChain(cfg *config.Config, log *slog.Logger) (*marketdata.ProviderChain, []domain.SymbolSearcher, error) {
	chain := marketdata.NewProviderChain()
	built := make(map[string]domain.QuoteProvider)

	for _, class := range []domain.AssetClass{domain.AssetClassStock, domain.AssetClassETF, domain.AssetClassCrypto} {
		for _, name := range cfg.Chain(class) {
			settings := cfg.ProviderSettings(name)
			p, ok := built[name]
			if !ok {
				var err error
				p, err = provider.New(name, settings, provider.NewHTTPClient(settings.Timeout))
				if err != nil {
					return nil, nil, fmt.Errorf("provider %s: %w", name, err)
				}
				built[name] = p
			}
			chain.Add(p, settings.Timeout, class)
		}
		log.Info("quote chain", "asset_class", class, "providers", cfg.Chain(class))
	}

	var searchers []domain.SymbolSearcher
	for _, name := range provider.Names {
		if s, ok := built[name].(domain.SymbolSearcher); ok {
			searchers = append(searchers, s)
		}
	}
	return chain, searchers, nil
}

// seedAccounts ensures the configured accounts exist and returns the ID of
// the default one
func seedAccounts(ctx context.Context, cfg *config.Config, accounts domain.AccountRepository, watchlists domain.WatchlistRepository) (uuid.UUID, error) {
	file := seeder.DefaultFile(cfg.Seed.AccountName, cfg.InitialBalance())
	if cfg.Seed.File != "" {
		f, err := seeder.LoadFile(cfg.Seed.File)
		if err != nil {
			return uuid.Nil, err
		}
		file = f
	}
	if err := seeder.NewAccountSeeder(accounts, watchlists, file).Seed(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to seed accounts: %w", err)
	}

	if len(file.Accounts) == 0 {
		return uuid.Nil, nil
	}
	acc, err := accounts.GetByName(ctx, file.Accounts[0].Name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to load default account: %w", err)
	}
	return acc.ID, nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
