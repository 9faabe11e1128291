package commands

import (
	"context"
	"errors"
	"strings"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-blocks/internal/dispatcher"
	"github.com/goliatone/go-blocks/pkg/block"
	"github.com/goliatone/go-blocks/pkg/domain"
	"github.com/goliatone/go-blocks/pkg/interfaces/cache"
	"github.com/goliatone/go-blocks/pkg/interfaces/logger"
	"github.com/goliatone/go-blocks/pkg/interfaces/store"
	"github.com/google/uuid"
)

var (
	ErrInstanceExists   = errors.New("commands: block instance already exists")
	ErrInstanceRequired = errors.New("commands: instance id or name is required")
)

// Catalog exposes go-command compatible handlers for host transports.
type Catalog struct {
	SaveInstance       command.Commander[InstanceUpsert]
	SetEnabled         command.Commander[InstanceToggle]
	DeleteInstance     command.Commander[InstanceDelete]
	InvalidateInstance command.Commander[InstanceInvalidate]
}

type typeChecker interface {
	Has(typ block.Type) bool
}

// Dependencies wires repositories and services into the command catalog.
type Dependencies struct {
	Instances   store.BlockInstanceRepository
	Transaction store.TransactionManager
	Types       typeChecker
	Cache       cache.Cache
	Logger      logger.Logger
}

// NewCatalog builds the command catalog using the supplied dependencies.
func NewCatalog(deps Dependencies) (*Catalog, error) {
	if deps.Instances == nil {
		return nil, errors.New("commands: instance repository is required")
	}
	if deps.Transaction == nil {
		deps.Transaction = &store.NopTransactionManager{}
	}
	if deps.Cache == nil {
		deps.Cache = &cache.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	base := instanceCommand{
		repo:   deps.Instances,
		tx:     deps.Transaction,
		cache:  deps.Cache,
		logger: deps.Logger.With(logger.F("component", "commands")),
	}
	return &Catalog{
		SaveInstance:       instanceUpsertCommand{instanceCommand: base, types: deps.Types},
		SetEnabled:         instanceToggleCommand{instanceCommand: base},
		DeleteInstance:     instanceDeleteCommand{instanceCommand: base},
		InvalidateInstance: instanceInvalidateCommand{instanceCommand: base},
	}, nil
}

// InstanceRef addresses a stored instance by id or, failing that, by name.
type InstanceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// InstanceUpsert represents the payload for creating or updating instances.
type InstanceUpsert struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Enabled     bool           `json:"enabled"`
	Locale      string         `json:"locale"`
	Position    int            `json:"position"`
	Description string         `json:"description"`
	Options     map[string]any `json:"options"`
	Metadata    map[string]any `json:"metadata"`
	AllowUpdate bool           `json:"allow_update"`
}

// InstanceToggle enables or disables an instance.
type InstanceToggle struct {
	InstanceRef
	Enabled bool `json:"enabled"`
}

// InstanceDelete soft deletes an instance.
type InstanceDelete struct {
	InstanceRef
}

// InstanceInvalidate drops cached renders of an instance.
type InstanceInvalidate struct {
	InstanceRef
}

type instanceCommand struct {
	repo   store.BlockInstanceRepository
	tx     store.TransactionManager
	cache  cache.Cache
	logger logger.Logger
}

func (c instanceCommand) find(ctx context.Context, ref InstanceRef) (*domain.BlockInstance, error) {
	if id := strings.TrimSpace(ref.ID); id != "" {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		return c.repo.GetByID(ctx, parsed)
	}
	if name := strings.TrimSpace(ref.Name); name != "" {
		return c.repo.GetByName(ctx, name)
	}
	return nil, ErrInstanceRequired
}

func (c instanceCommand) invalidate(ctx context.Context, records ...*domain.BlockInstance) error {
	for _, record := range records {
		if record == nil {
			continue
		}
		prefix := dispatcher.InvalidationPrefix(record.BlockType(), record.BlockID())
		if err := cache.Invalidate(ctx, c.cache, prefix); err != nil {
			c.logger.Warn("block cache invalidation failed", logger.F("prefix", prefix), logger.F("error", err))
			return err
		}
	}
	return nil
}

type instanceUpsertCommand struct {
	instanceCommand
	types typeChecker
}

func (c instanceUpsertCommand) Execute(ctx context.Context, msg InstanceUpsert) error {
	msg.Name = strings.TrimSpace(msg.Name)
	if msg.Name == "" {
		return errors.New("commands: instance name is required")
	}
	typ := block.Type(msg.Type).Normalize()
	if typ == "" {
		return block.ErrTypeRequired
	}
	if c.types != nil && !c.types.Has(typ) {
		return &block.UnknownTypeError{Type: typ}
	}

	// cache entries are dropped only once the write has committed
	var stale []*domain.BlockInstance
	err := c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := c.repo.GetByName(ctx, msg.Name)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if existing == nil {
			return c.repo.Create(ctx, &domain.BlockInstance{
				Name:        msg.Name,
				Type:        typ.String(),
				Enabled:     msg.Enabled,
				Locale:      msg.Locale,
				Position:    msg.Position,
				Description: msg.Description,
				Options:     domain.JSONMap(msg.Options),
				Metadata:    domain.JSONMap(msg.Metadata),
			})
		}
		if !msg.AllowUpdate {
			return ErrInstanceExists
		}

		previous := *existing
		existing.Type = typ.String()
		existing.Enabled = msg.Enabled
		existing.Locale = msg.Locale
		existing.Position = msg.Position
		existing.Description = msg.Description
		existing.Options = domain.JSONMap(msg.Options)
		existing.Metadata = domain.JSONMap(msg.Metadata)
		if err := c.repo.Update(ctx, existing); err != nil {
			return err
		}
		stale = append(stale, existing)
		if previous.Type != existing.Type {
			stale = append(stale, &previous)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.invalidate(ctx, stale...)
}

type instanceToggleCommand struct {
	instanceCommand
}

func (c instanceToggleCommand) Execute(ctx context.Context, msg InstanceToggle) error {
	var changed *domain.BlockInstance
	err := c.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		record, err := c.find(ctx, msg.InstanceRef)
		if err != nil {
			return err
		}
		if record.Enabled == msg.Enabled {
			return nil
		}
		record.Enabled = msg.Enabled
		if err := c.repo.Update(ctx, record); err != nil {
			return err
		}
		changed = record
		return nil
	})
	if err != nil {
		return err
	}
	return c.invalidate(ctx, changed)
}

type instanceDeleteCommand struct {
	instanceCommand
}

func (c instanceDeleteCommand) Execute(ctx context.Context, msg InstanceDelete) error {
	record, err := c.find(ctx, msg.InstanceRef)
	if err != nil {
		return err
	}
	if err := c.repo.SoftDelete(ctx, record.ID); err != nil {
		return err
	}
	return c.invalidate(ctx, record)
}

type instanceInvalidateCommand struct {
	instanceCommand
}

func (c instanceInvalidateCommand) Execute(ctx context.Context, msg InstanceInvalidate) error {
	record, err := c.find(ctx, msg.InstanceRef)
	if err != nil {
		return err
	}
	return c.invalidate(ctx, record)
}
