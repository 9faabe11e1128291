package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-blocks/pkg/domain"
	"github.com/goliatone/go-blocks/pkg/interfaces/store"
	"github.com/google/uuid"
)

// BlockInstanceRepository keeps block instances in process memory.
type BlockInstanceRepository struct {
	base *baseMemoryRepo[domain.BlockInstance]
}

var _ store.BlockInstanceRepository = (*BlockInstanceRepository)(nil)

func NewBlockInstanceRepository() *BlockInstanceRepository {
	return &BlockInstanceRepository{
		base: newBaseMemoryRepo(
			func(b *domain.BlockInstance) *domain.RecordMeta { return &b.RecordMeta },
			pageOrder,
		),
	}
}

// pageOrder sorts by position, then creation time, then name.
func pageOrder(a, b *domain.BlockInstance) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Name < b.Name
}

func (r *BlockInstanceRepository) Create(ctx context.Context, instance *domain.BlockInstance) error {
	if instance == nil {
		return fmt.Errorf("memory: block instance is nil")
	}
	if err := r.base.create(ctx, instance, sameName(instance.Name)); err != nil {
		return fmt.Errorf("%w: block %q already exists", err, instance.Name)
	}
	return nil
}

func (r *BlockInstanceRepository) Update(ctx context.Context, instance *domain.BlockInstance) error {
	if instance == nil {
		return store.ErrNotFound
	}
	err := r.base.update(ctx, instance, sameName(instance.Name))
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%w: block %q already exists", err, instance.Name)
	}
	return err
}

func sameName(name string) func(*domain.BlockInstance) bool {
	name = strings.TrimSpace(name)
	return func(b *domain.BlockInstance) bool {
		return name != "" && strings.EqualFold(b.Name, name)
	}
}

func (r *BlockInstanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BlockInstance, error) {
	return r.base.getByID(ctx, id, false)
}

func (r *BlockInstanceRepository) GetByName(_ context.Context, name string) (*domain.BlockInstance, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, store.ErrNotFound
	}
	return r.base.find(func(b *domain.BlockInstance) bool {
		return strings.EqualFold(b.Name, name)
	})
}

func (r *BlockInstanceRepository) List(ctx context.Context, opts store.ListOptions) (store.ListResult[domain.BlockInstance], error) {
	return r.base.list(ctx, opts, nil)
}

func (r *BlockInstanceRepository) ListByType(ctx context.Context, typ string, opts store.ListOptions) (store.ListResult[domain.BlockInstance], error) {
	typ = strings.TrimSpace(typ)
	return r.base.list(ctx, opts, func(b *domain.BlockInstance) bool {
		return b.Type == typ
	})
}

func (r *BlockInstanceRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.base.softDelete(ctx, id)
}
