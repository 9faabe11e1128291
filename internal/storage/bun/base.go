package bunrepo

import (
	"context"
	"time"

	"github.com/goliatone/go-blocks/pkg/domain"
	"github.com/goliatone/go-blocks/pkg/interfaces/store"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type baseRepository[T any] struct {
	repo    repository.Repository[*T]
	db      *bun.DB
	extract func(*T) *domain.RecordMeta
}

func newBaseRepository[T any](db *bun.DB, handlers repository.ModelHandlers[*T], extract func(*T) *domain.RecordMeta) baseRepository[T] {
	return baseRepository[T]{
		repo:    repository.MustNewRepository[*T](db, handlers),
		db:      db,
		extract: extract,
	}
}

// idb returns the transaction carried by ctx or the shared DB.
func (r baseRepository[T]) idb(ctx context.Context) bun.IDB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

func (r baseRepository[T]) create(ctx context.Context, record *T) error {
	base := r.extract(record)
	base.EnsureID()
	now := time.Now().UTC()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
	_, err := r.repo.CreateTx(ctx, r.idb(ctx), record)
	return mapError(err)
}

func (r baseRepository[T]) update(ctx context.Context, record *T) error {
	base := r.extract(record)
	if base.ID == uuid.Nil {
		return store.ErrNotFound
	}
	base.UpdatedAt = time.Now().UTC()
	// full-row update so zero values such as enabled=false are written
	res, err := r.idb(ctx).NewUpdate().Model(record).WherePK().Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r baseRepository[T]) getByID(ctx context.Context, id uuid.UUID) (*T, error) {
	record, err := r.repo.GetTx(ctx, r.idb(ctx), withID(id), withoutDeleted())
	if err != nil {
		return nil, mapError(err)
	}
	return record, nil
}

func (r baseRepository[T]) list(ctx context.Context, opts store.ListOptions, extra ...repository.SelectCriteria) (store.ListResult[T], error) {
	criteria := append(extra, withListOptions(opts))
	records, total, err := r.repo.ListTx(ctx, r.idb(ctx), criteria...)
	if err != nil {
		return store.ListResult[T]{}, mapError(err)
	}
	items := make([]T, len(records))
	for i, rec := range records {
		items[i] = *rec
	}
	return store.ListResult[T]{Items: items, Total: total}, nil
}

// softDelete relies on bun's soft_delete column: a delete query on such a
// model stamps deleted_at instead of removing the row.
func (r baseRepository[T]) softDelete(ctx context.Context, id uuid.UUID) error {
	res, err := r.idb(ctx).NewDelete().Model((*T)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return mapError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if repository.IsRecordNotFound(err) {
		return store.ErrNotFound
	}
	return err
}
