// File: app/app.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-ledger-api/config"
	"go-ledger-api/db"
	"go-ledger-api/handler"
	"go-ledger-api/logger"
	"go-ledger-api/repository"
	"go-ledger-api/repository/memory"
	"go-ledger-api/router"
	"go-ledger-api/service"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Stores bundles the storage implementations the services depend on.
type Stores struct {
	Accounts     repository.IAccountRepository
	Transactions repository.ITransactionRepository
	Clients      repository.IClientRepository
	Ledger       repository.ILedgerStore
	History      repository.IAccountHistoryReader
	Ping         func(ctx context.Context) error
}

// PostgresStores wires the PostgreSQL repositories over database.
func PostgresStores(database *sql.DB) Stores {
	ledger := repository.NewLedgerStore(database)
	return Stores{
		Accounts:     repository.NewAccountRepository(database),
		Transactions: repository.NewTransactionRepository(database),
		Clients:      repository.NewClientRepository(database),
		Ledger:       ledger,
		History:      ledger,
		Ping:         database.PingContext,
	}
}

// MemoryStores wires every repository to the same in-memory store.
func MemoryStores(store *memory.Store) Stores {
	return Stores{
		Accounts:     store,
		Transactions: store,
		Clients:      store,
		Ledger:       store,
		History:      store,
	}
}

// Services holds the wired service layer.
type Services struct {
	Clients    *service.ClientDirectory
	Ledger     *service.LedgerService
	Queries    *service.QueryService
	Statements *service.StatementService
	Accounts   *service.AccountService
}

// NewServices builds the service layer from the loaded configuration. cache
// may be nil to disable client caching.
func NewServices(stores Stores, cache service.ICacheClient) (*Services, error) {
	cfg := config.AppConfig

	numbers, err := service.NewIBANGenerator(cfg.Accounts.BankCode, cfg.Accounts.BranchCode)
	if err != nil {
		return nil, err
	}

	clients := service.NewClientDirectory(stores.Clients, cache, cfg.Redis.ClientTTL)
	return &Services{
		Clients: clients,
		Ledger: service.NewLedgerService(stores.Ledger, stores.Accounts, clients, service.LedgerOptions{
			MaxRetries:           cfg.Ledger.MaxRetries,
			RetryInitialInterval: cfg.Ledger.RetryInitialInterval,
		}),
		Queries:    service.NewQueryService(stores.Accounts, stores.Transactions, clients),
		Statements: service.NewStatementService(stores.Accounts, stores.History, clients),
		Accounts:   service.NewAccountService(stores.Accounts, clients, numbers, cfg.Accounts.NumberMaxAttempts),
	}, nil
}

// NewRouter wires handlers over services.
func NewRouter(stores Stores, services *Services) http.Handler {
	return router.NewRouter(
		handler.NewHealthHandler(stores.Ping),
		handler.NewTransactionHandler(services.Ledger, services.Queries),
		handler.NewAccountHandler(services.Accounts, services.Statements),
	)
}

func Run() {
	logger.Init()
	if err := config.LoadConfig("."); err != nil {
		logger.Log.Fatalf("Error loading configuration: %v", err)
	}
	logger.Log.Info("Configuration loaded successfully")

	stores, cleanup, err := openStores()
	if err != nil {
		logger.Log.Fatalf("Error opening storage: %v", err)
	}
	defer cleanup()

	var cache service.ICacheClient
	if config.AppConfig.Redis.Enabled {
		rdb, err := db.ConnectRedis(context.Background())
		if err != nil {
			logger.Log.Fatalf("Error connecting to Redis: %v", err)
		}
		defer rdb.Close()
		cache = rdb
	}

	services, err := NewServices(stores, cache)
	if err != nil {
		logger.Log.Fatalf("Error wiring services: %v", err)
	}

	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           NewRouter(stores, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Server forced to shutdown: %v", err)
		return
	}

	logger.Log.Info("Server exited properly")
}

func openStores() (Stores, func(), error) {
	switch driver := config.AppConfig.Database.Driver; driver {
	case DriverMemory:
		logger.Log.Warn("Using in-memory storage; data is lost on shutdown")
		return MemoryStores(memory.NewStore()), func() {}, nil
	case DriverPostgres, "":
		database, err := db.Connect()
		if err != nil {
			return Stores{}, nil, err
		}
		if config.AppConfig.Database.AutoMigrate {
			if err := db.RunMigrations(database, config.AppConfig.Database.MigrationsPath); err != nil {
				database.Close()
				return Stores{}, nil, err
			}
		}
		return PostgresStores(database), func() { database.Close() }, nil
	default:
		return Stores{}, nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
