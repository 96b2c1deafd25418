package memory

import (
	"context"

	"cashpoint/internal/core/id"
	"cashpoint/internal/core/numerator"
	"cashpoint/internal/core/tx"
)

var _ numerator.Generator = (*Sequencer)(nil)

type sequence struct {
	prefix  string
	current int64
}

// Sequencer implements numerator.Generator on the store.
type Sequencer struct {
	s             *Store
	defaultPrefix string
}

// Sequencer returns the invoice sequencer. Tenants without a configured
// counter are provisioned with defaultPrefix on first use.
func (s *Store) Sequencer(defaultPrefix string) *Sequencer {
	if defaultPrefix == "" {
		defaultPrefix = numerator.DefaultPrefix
	}
	return &Sequencer{s: s, defaultPrefix: defaultPrefix}
}

func (g *Sequencer) Next(ctx context.Context, tenantID id.ID) (string, error) {
	if !g.s.InTransaction(ctx) {
		return "", tx.ErrNoTransaction
	}
	if err := g.s.lock(ctx, sequenceKey(tenantID)); err != nil {
		return "", err
	}

	g.s.mu.RLock()
	prev, had := g.s.sequences[tenantID]
	g.s.mu.RUnlock()

	issued := prev
	if !had {
		issued = sequence{prefix: g.defaultPrefix}
	}
	issued.current++

	g.s.write(ctx,
		func() { g.s.sequences[tenantID] = issued },
		func() { g.restore(tenantID, prev, had) },
	)
	return numerator.DefaultConfig(issued.prefix).Format(issued.current), nil
}

func (g *Sequencer) SetNext(ctx context.Context, tenantID id.ID, prefix string, lastIssued int64) error {
	return g.s.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := g.s.lock(ctx, sequenceKey(tenantID)); err != nil {
			return err
		}
		g.s.mu.RLock()
		prev, had := g.s.sequences[tenantID]
		g.s.mu.RUnlock()

		if prefix == "" {
			prefix = prev.prefix
		}
		if prefix == "" {
			prefix = g.defaultPrefix
		}
		next := sequence{prefix: prefix, current: lastIssued}
		g.s.write(ctx,
			func() { g.s.sequences[tenantID] = next },
			func() { g.restore(tenantID, prev, had) },
		)
		return nil
	})
}

// restore runs under the store mutex.
func (g *Sequencer) restore(tenantID id.ID, prev sequence, had bool) {
	if had {
		g.s.sequences[tenantID] = prev
	} else {
		delete(g.s.sequences, tenantID)
	}
}
