// Package memory provides an in-process implementation of every repository,
// the transaction manager, the invoice sequencer and the outbox.
//
// Transactions follow the same locking model as the Postgres store: row locks
// are exclusive, re-entrant within a transaction and held until it ends.
// Writes are applied immediately and undone on rollback, so a read that does
// not lock may observe another transaction's uncommitted writes.
package memory

import (
	"context"
	"sync"

	"cashpoint/internal/core/events"
	"cashpoint/internal/core/id"
	"cashpoint/internal/core/tx"
	"cashpoint/internal/domain/catalogs/product"
	"cashpoint/internal/domain/documents/cash_session"
	"cashpoint/internal/domain/documents/sale"
	"cashpoint/internal/domain/registers/stock"
)

var _ tx.Manager = (*Store)(nil)

// Store holds all tenants' data.
type Store struct {
	mu    sync.RWMutex
	locks *lockTable

	products      map[id.ID]product.Product
	movements     []stock.Movement
	sales         map[id.ID]sale.Sale
	saleItems     map[id.ID][]sale.Item
	sequences     map[id.ID]sequence
	sessions      map[id.ID]cash_session.Session
	cashMovements []cash_session.Movement
	outbox        []events.Event
	auditLog      []*auditRow
}

// New creates an empty store.
func New() *Store {
	return &Store{
		locks:     newLockTable(),
		products:  make(map[id.ID]product.Product),
		sales:     make(map[id.ID]sale.Sale),
		saleItems: make(map[id.ID][]sale.Item),
		sequences: make(map[id.ID]sequence),
		sessions:  make(map[id.ID]cash_session.Session),
	}
}

type txKey struct{}

type memTx struct {
	undo []func()
	held []string
}

func getTx(ctx context.Context) *memTx {
	t, _ := ctx.Value(txKey{}).(*memTx)
	return t
}

// RunInTransaction executes fn in a transaction. Nested calls reuse it.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if getTx(ctx) != nil {
		return fn(ctx)
	}

	t := &memTx{}
	txCtx := context.WithValue(ctx, txKey{}, t)

	defer s.locks.releaseAll(t)
	defer func() {
		if p := recover(); p != nil {
			s.rollback(t)
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		s.rollback(t)
		return err
	}
	return nil
}

// Snapshot runs fn in a transaction. The memory store does not enforce read-only access.
func (s *Store) Snapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

// InTransaction reports whether ctx carries a transaction of this store.
func (s *Store) InTransaction(ctx context.Context) bool {
	return getTx(ctx) != nil
}

func (s *Store) rollback(t *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// write applies a mutation and registers its inverse on the current
// transaction. Both run under the store mutex. Outside a transaction the
// write is final.
func (s *Store) write(ctx context.Context, apply func(), undo func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	apply()
	if t := getTx(ctx); t != nil {
		t.undo = append(t.undo, undo)
	}
}

// lock takes an exclusive row lock held until the transaction ends.
func (s *Store) lock(ctx context.Context, key string) error {
	t := getTx(ctx)
	if t == nil {
		return tx.ErrNoTransaction
	}
	return s.locks.acquire(ctx, t, key)
}

func productKey(productID id.ID) string { return "product:" + productID.String() }
func saleKey(saleID id.ID) string       { return "sale:" + saleID.String() }
func sessionKey(sessionID id.ID) string { return "session:" + sessionID.String() }
func sequenceKey(tenantID id.ID) string { return "sequence:" + tenantID.String() }
func openSlotKey(tenantID id.ID) string { return "open-session:" + tenantID.String() }

// lockTable is a set of named exclusive locks owned by transactions.
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	owner *memTx
	done  chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

func (lt *lockTable) acquire(ctx context.Context, t *memTx, key string) error {
	for {
		lt.mu.Lock()
		e, ok := lt.entries[key]
		if !ok {
			lt.entries[key] = &lockEntry{owner: t, done: make(chan struct{})}
			t.held = append(t.held, key)
			lt.mu.Unlock()
			return nil
		}
		if e.owner == t {
			lt.mu.Unlock()
			return nil
		}
		done := e.done
		lt.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (lt *lockTable) releaseAll(t *memTx) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	for _, key := range t.held {
		if e, ok := lt.entries[key]; ok && e.owner == t {
			delete(lt.entries, key)
			close(e.done)
		}
	}
	t.held = nil
}
