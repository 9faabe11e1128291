package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-blocks/pkg/domain"
	"github.com/goliatone/go-blocks/pkg/interfaces/store"
	"github.com/google/uuid"
)

type baseMemoryRepo[T any] struct {
	mu      sync.RWMutex
	records map[uuid.UUID]T
	extract func(*T) *domain.RecordMeta
	less    func(a, b *T) bool
}

func newBaseMemoryRepo[T any](extract func(*T) *domain.RecordMeta, less func(a, b *T) bool) *baseMemoryRepo[T] {
	if less == nil {
		less = func(a, b *T) bool {
			return extract(a).CreatedAt.Before(extract(b).CreatedAt)
		}
	}
	return &baseMemoryRepo[T]{
		records: make(map[uuid.UUID]T),
		extract: extract,
		less:    less,
	}
}

// create stores record unless a live record accepted by conflict exists.
// The check and the write share one lock.
func (r *baseMemoryRepo[T]) create(_ context.Context, record *T, conflict func(*T) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts(uuid.Nil, conflict) {
		return store.ErrConflict
	}
	base := r.extract(record)
	base.EnsureID()
	now := time.Now().UTC()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
	r.records[base.ID] = *record
	return nil
}

func (r *baseMemoryRepo[T]) update(_ context.Context, record *T, conflict func(*T) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := r.extract(record)
	if base.ID == uuid.Nil {
		return store.ErrNotFound
	}
	current, ok := r.records[base.ID]
	if !ok || !r.extract(&current).DeletedAt.IsZero() {
		return store.ErrNotFound
	}
	if r.conflicts(base.ID, conflict) {
		return store.ErrConflict
	}
	base.UpdatedAt = time.Now().UTC()
	r.records[base.ID] = *record
	return nil
}

func (r *baseMemoryRepo[T]) getByID(_ context.Context, id uuid.UUID, includeDeleted bool) (*T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !includeDeleted && !r.extract(&record).DeletedAt.IsZero() {
		return nil, store.ErrNotFound
	}
	out := record
	return &out, nil
}

// conflicts reports whether a live record other than self satisfies match.
// Callers must hold the lock.
func (r *baseMemoryRepo[T]) conflicts(self uuid.UUID, match func(*T) bool) bool {
	if match == nil {
		return false
	}
	for id, record := range r.records {
		if id == self || !r.extract(&record).DeletedAt.IsZero() {
			continue
		}
		if match(&record) {
			return true
		}
	}
	return false
}

// find returns the first live record accepted by match.
func (r *baseMemoryRepo[T]) find(match func(*T) bool) (*T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, record := range r.records {
		if !r.extract(&record).DeletedAt.IsZero() {
			continue
		}
		if match(&record) {
			out := record
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *baseMemoryRepo[T]) list(_ context.Context, opts store.ListOptions, match func(*T) bool) (store.ListResult[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var filtered []T
	for _, record := range r.records {
		base := r.extract(&record)
		if !opts.IncludeSoftDeleted && !base.DeletedAt.IsZero() {
			continue
		}
		if !opts.Since.IsZero() && base.CreatedAt.Before(opts.Since) {
			continue
		}
		if !opts.Until.IsZero() && base.CreatedAt.After(opts.Until) {
			continue
		}
		if match != nil && !match(&record) {
			continue
		}
		filtered = append(filtered, record)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return r.less(&filtered[i], &filtered[j])
	})

	total := len(filtered)
	start := min(opts.Offset, total)
	end := total
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	return store.ListResult[T]{
		Items: filtered[start:end],
		Total: total,
	}, nil
}

func (r *baseMemoryRepo[T]) softDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return store.ErrNotFound
	}
	base := r.extract(&record)
	if !base.DeletedAt.IsZero() {
		return store.ErrNotFound
	}
	base.DeletedAt = time.Now().UTC()
	r.records[id] = record
	return nil
}
