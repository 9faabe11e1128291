package storage

import (
	"context"
	"database/sql"

	bunrepo "github.com/goliatone/go-blocks/internal/storage/bun"
	"github.com/goliatone/go-blocks/internal/storage/memory"
	"github.com/goliatone/go-blocks/pkg/domain"
	"github.com/goliatone/go-blocks/pkg/interfaces/store"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

// Providers exposes the repositories block services depend on.
type Providers struct {
	Instances   store.BlockInstanceRepository
	Transaction store.TransactionManager
}

// NewMemoryProviders returns repositories backed by in-memory maps.
func NewMemoryProviders() Providers {
	return Providers{
		Instances:   memory.NewBlockInstanceRepository(),
		Transaction: &store.NopTransactionManager{},
	}
}

// NewBunProviders wires Bun-backed repositories using go-repository-bun.
// The caller owns the *bun.DB lifecycle.
func NewBunProviders(db *bun.DB) Providers {
	if db == nil {
		panic("storage: bun DB is required")
	}

	// go-persistence-bun migrations pick registered models up.
	persistence.RegisterModel((*domain.BlockInstance)(nil))

	return Providers{
		Instances:   bunrepo.NewBlockInstanceRepository(db),
		Transaction: &bunTxManager{db: db},
	}
}

type bunTxManager struct {
	db *bun.DB
}

// WithinTransaction runs fn on a bun transaction that the repositories pick
// up from the context. Nested calls join the outer transaction.
func (m *bunTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := bunrepo.TxFromContext(ctx); ok {
		return fn(ctx)
	}
	return m.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(bunrepo.ContextWithTx(ctx, tx))
	})
}
