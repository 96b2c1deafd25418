// Package app assembles the services of one process from configuration.
package app

import (
	"context"
	"fmt"

	"cashpoint/internal/config"
	"cashpoint/internal/core/events"
	corenumerator "cashpoint/internal/core/numerator"
	"cashpoint/internal/core/tx"
	"cashpoint/internal/domain/audit"
	"cashpoint/internal/domain/catalogs/product"
	"cashpoint/internal/domain/documents/cash_session"
	"cashpoint/internal/domain/documents/sale"
	"cashpoint/internal/domain/registers/stock"
	"cashpoint/internal/infrastructure/http/v1/handlers"
	"cashpoint/internal/infrastructure/http/v1/middleware"
	"cashpoint/internal/infrastructure/numerator"
	"cashpoint/internal/infrastructure/storage/memory"
	"cashpoint/internal/infrastructure/storage/postgres"
	"cashpoint/internal/infrastructure/storage/postgres/catalog_repo"
	"cashpoint/internal/infrastructure/storage/postgres/document_repo"
	"cashpoint/internal/infrastructure/storage/postgres/register_repo"
)

// App holds the wired domain services.
type App struct {
	Products     *product.Service
	Stock        *stock.Service
	Sales        *sale.Service
	CashSessions *cash_session.Service

	AuditHistory audit.History
	Idempotency  middleware.IdempotencyStore // nil for the memory driver
	HealthChecks map[string]handlers.Check
	Stats        func() any

	// Postgres is set for the postgres driver only.
	Postgres *Postgres

	closers []func()
}

// Postgres exposes the storage pieces the worker and CLI need.
type Postgres struct {
	Pool        *postgres.Pool
	TxManager   *postgres.TxManager
	Sequencer   *numerator.Service
	Idempotency *postgres.IdempotencyStore
}

// Close releases storage resources.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type storage struct {
	txm       tx.Manager
	products  product.Repository
	stock     stock.Repository
	sales     sale.Repository
	sessions  cash_session.Repository
	sequencer corenumerator.Generator
	events    events.Publisher
	audit     audit.Recorder
	history   audit.History
}

// New builds the services on the configured storage driver.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	taxRate, err := cfg.TaxRate()
	if err != nil {
		return nil, err
	}

	a := &App{}
	var st storage
	switch cfg.StorageDriver {
	case config.DriverMemory:
		st = a.memoryStorage(cfg)
	case config.DriverPostgres:
		st, err = a.postgresStorage(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	a.Products = product.NewService(st.products)
	a.Stock = stock.NewService(st.stock, st.products, st.txm, st.audit)
	a.CashSessions = cash_session.NewService(st.sessions, st.txm, st.events, st.audit)
	a.Sales = sale.NewService(sale.ServiceConfig{
		Repo:      st.sales,
		Ledger:    a.Stock,
		Numerator: st.sequencer,
		Sessions:  a.CashSessions,
		TxManager: st.txm,
		Events:    st.events,
		Audit:     st.audit,
		Pricing:   sale.Config{TaxRate: taxRate, CreditDays: cfg.CreditDaysDefault},
	})
	a.AuditHistory = st.history
	return a, nil
}

func (a *App) memoryStorage(cfg *config.Config) storage {
	store := memory.New()
	a.HealthChecks = map[string]handlers.Check{}
	return storage{
		txm:       store,
		products:  store.Products(),
		stock:     store.Stock(),
		sales:     store.Sales(),
		sessions:  store.CashSessions(),
		sequencer: store.Sequencer(cfg.InvoicePrefix),
		events:    store.Outbox(),
		audit:     store.Audit(),
		history:   store.Audit(),
	}
}

func (a *App) postgresStorage(ctx context.Context, cfg *config.Config) (storage, error) {
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL).WithConns(cfg.DBMaxConns, cfg.DBMinConns)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return storage{}, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	txm := postgres.NewTxManager(pool)
	auditService, err := postgres.NewAuditService(txm)
	if err != nil {
		return storage{}, fmt.Errorf("audit service: %w", err)
	}
	products := catalog_repo.NewProductRepo(txm)
	sequencer := numerator.New(txm, cfg.InvoicePrefix)

	a.Postgres = &Postgres{
		Pool:        pool,
		TxManager:   txm,
		Sequencer:   sequencer,
		Idempotency: postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL),
	}
	if cfg.IdempotencyEnabled {
		a.Idempotency = a.Postgres.Idempotency
	}
	a.HealthChecks = map[string]handlers.Check{"database": pool.Ping}
	a.Stats = func() any { return pool.Stats() }

	return storage{
		txm:       txm,
		products:  products,
		stock:     register_repo.NewStockRepo(txm, products),
		sales:     document_repo.NewSaleRepo(txm),
		sessions:  document_repo.NewCashSessionRepo(txm),
		sequencer: sequencer,
		events:    postgres.NewOutboxPublisher(txm),
		audit:     auditService,
		history:   auditService,
	}, nil
}
