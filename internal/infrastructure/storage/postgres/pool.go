// Package postgres provides PostgreSQL infrastructure components.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cashpoint/pkg/logger"
)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	DSN               string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	// StatementTimeout bounds every statement of a session; zero disables it.
	// Sale transactions hold sequence and stock row locks, so a stuck query
	// must not block the till indefinitely.
	StatementTimeout time.Duration
}

// DefaultPoolConfig returns defaults for one API instance.
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		DSN:               dsn,
		MaxConns:          25,
		MinConns:          5,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
		StatementTimeout:  30 * time.Second,
	}
}

// WithConns overrides pool bounds; non-positive values keep the current ones
// except min, which may be zero for short-lived CLI pools.
func (c PoolConfig) WithConns(maxConns, minConns int32) PoolConfig {
	if maxConns > 0 {
		c.MaxConns = maxConns
	}
	if minConns >= 0 && minConns <= c.MaxConns {
		c.MinConns = minConns
	}
	return c
}

// Pool wraps pgxpool.Pool.
type Pool struct {
	*pgxpool.Pool
}

var errPoolClosed = errors.New("database pool is closed")

// NewPool connects and pings before returning.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.HealthCheckPeriod = cfg.HealthCheckPeriod
	pc.AfterConnect = sessionSetup(cfg.StatementTimeout)

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// sessionSetup pins every connection to UTC so sale and session timestamps
// compare the same regardless of server locale.
func sessionSetup(timeout time.Duration) func(context.Context, *pgx.Conn) error {
	return func(ctx context.Context, conn *pgx.Conn) error {
		stmts := []string{
			"SET application_name = 'cashpoint'",
			"SET TIME ZONE 'UTC'",
		}
		if timeout > 0 {
			stmts = append(stmts, fmt.Sprintf("SET statement_timeout = %d", timeout.Milliseconds()))
		}
		for _, s := range stmts {
			if _, err := conn.Exec(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}
}

// Close is safe on a zero Pool.
func (p *Pool) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

// Ping checks database reachability; used by the readiness probe.
func (p *Pool) Ping(ctx context.Context) error {
	if p.Pool == nil {
		return errPoolClosed
	}
	return p.Pool.Ping(ctx)
}

// PoolStats is the pool snapshot reported by /health/info.
type PoolStats struct {
	TotalConns      int32         `json:"total_conns"`
	AcquiredConns   int32         `json:"acquired_conns"`
	IdleConns       int32         `json:"idle_conns"`
	MaxConns        int32         `json:"max_conns"`
	AcquireCount    int64         `json:"acquire_count"`
	EmptyAcquires   int64         `json:"empty_acquire_count"`
	AcquireDuration time.Duration `json:"acquire_duration_ns"`
}

// Stats snapshots the pool counters.
func (p *Pool) Stats() PoolStats {
	if p.Pool == nil {
		return PoolStats{}
	}
	s := p.Pool.Stat()
	return PoolStats{
		TotalConns:      s.TotalConns(),
		AcquiredConns:   s.AcquiredConns(),
		IdleConns:       s.IdleConns(),
		MaxConns:        s.MaxConns(),
		AcquireCount:    s.AcquireCount(),
		EmptyAcquires:   s.EmptyAcquireCount(),
		AcquireDuration: s.AcquireDuration(),
	}
}

// LogStats writes the snapshot at info level, or warn when every
// connection is checked out.
func (p *Pool) LogStats(ctx context.Context) {
	s := p.Stats()
	kv := []any{"total", s.TotalConns, "acquired", s.AcquiredConns, "idle", s.IdleConns, "max", s.MaxConns}
	if s.MaxConns > 0 && s.AcquiredConns >= s.MaxConns {
		logger.Warn(ctx, "database pool saturated", kv...)
		return
	}
	logger.Info(ctx, "database pool stats", kv...)
}
