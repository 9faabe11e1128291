package bunrepo

import (
	"context"
	"fmt"

	"github.com/goliatone/go-blocks/pkg/domain"
	"github.com/goliatone/go-blocks/pkg/interfaces/store"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BlockInstanceRepository persists block instances through go-repository-bun.
type BlockInstanceRepository struct {
	base baseRepository[domain.BlockInstance]
}

var _ store.BlockInstanceRepository = (*BlockInstanceRepository)(nil)

func NewBlockInstanceRepository(db *bun.DB) *BlockInstanceRepository {
	handlers := repository.ModelHandlers[*domain.BlockInstance]{
		NewRecord:          func() *domain.BlockInstance { return &domain.BlockInstance{} },
		GetID:              func(b *domain.BlockInstance) uuid.UUID { return b.ID },
		SetID:              func(b *domain.BlockInstance, id uuid.UUID) { b.ID = id },
		GetIdentifier:      func() string { return "name" },
		GetIdentifierValue: func(b *domain.BlockInstance) string { return b.Name },
	}
	return &BlockInstanceRepository{
		base: newBaseRepository[domain.BlockInstance](db, handlers, func(b *domain.BlockInstance) *domain.RecordMeta { return &b.RecordMeta }),
	}
}

func (r *BlockInstanceRepository) Create(ctx context.Context, instance *domain.BlockInstance) error {
	if instance == nil {
		return fmt.Errorf("bunrepo: block instance is nil")
	}
	if _, err := r.GetByName(ctx, instance.Name); err == nil {
		return fmt.Errorf("%w: block %q already exists", store.ErrConflict, instance.Name)
	}
	return r.base.create(ctx, instance)
}

func (r *BlockInstanceRepository) Update(ctx context.Context, instance *domain.BlockInstance) error {
	if instance == nil {
		return store.ErrNotFound
	}
	if existing, err := r.GetByName(ctx, instance.Name); err == nil && existing.ID != instance.ID {
		return fmt.Errorf("%w: block %q already exists", store.ErrConflict, instance.Name)
	}
	return r.base.update(ctx, instance)
}

func (r *BlockInstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BlockInstance, error) {
	return r.base.getByID(ctx, id)
}

func (r *BlockInstanceRepository) GetByName(ctx context.Context, name string) (*domain.BlockInstance, error) {
	record, err := r.base.repo.GetTx(ctx, r.base.idb(ctx), withName(name), withoutDeleted())
	if err != nil {
		return nil, mapError(err)
	}
	return record, nil
}

func (r *BlockInstanceRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.BlockInstance], error) {
	return r.base.list(ctx, opts)
}

func (r *BlockInstanceRepository) ListByType(ctx context.Context, typ string, opts store.ListOptions) (store.ListResult[domain.BlockInstance], error) {
	return r.base.list(ctx, opts, withType(typ))
}

func (r *BlockInstanceRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.base.softDelete(ctx, id)
}
