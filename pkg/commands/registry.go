package commands

import (
	command "github.com/goliatone/go-command"
	internalcommands "github.com/goliatone/go-blocks/internal/commands"
	"github.com/goliatone/go-blocks/pkg/interfaces/cache"
	"github.com/goliatone/go-blocks/pkg/interfaces/logger"
	"github.com/goliatone/go-blocks/pkg/interfaces/store"
	"github.com/goliatone/go-blocks/pkg/registry"
)

// Re-export request types so consumers need not import internal packages.
type (
	InstanceRef        = internalcommands.InstanceRef
	InstanceUpsert     = internalcommands.InstanceUpsert
	InstanceToggle     = internalcommands.InstanceToggle
	InstanceDelete     = internalcommands.InstanceDelete
	InstanceInvalidate = internalcommands.InstanceInvalidate
)

var (
	ErrInstanceExists   = internalcommands.ErrInstanceExists
	ErrInstanceRequired = internalcommands.ErrInstanceRequired
)

// Registry exposes go-command compatible handlers backed by the module services.
type Registry struct {
	Catalog            *internalcommands.Catalog
	SaveInstance       command.Commander[InstanceUpsert]
	SetEnabled         command.Commander[InstanceToggle]
	DeleteInstance     command.Commander[InstanceDelete]
	InvalidateInstance command.Commander[InstanceInvalidate]
}

// Dependencies mirror the internal command dependencies but keep them public.
type Dependencies struct {
	Instances   store.BlockInstanceRepository
	Transaction store.TransactionManager
	Types       *registry.Registry
	Cache       cache.Cache
	Logger      logger.Logger
}

// New builds the registry using the provided dependencies.
func New(deps Dependencies) (*Registry, error) {
	internalDeps := internalcommands.Dependencies{
		Instances:   deps.Instances,
		Transaction: deps.Transaction,
		Cache:       deps.Cache,
		Logger:      deps.Logger,
	}
	if deps.Types != nil {
		internalDeps.Types = deps.Types
	}
	catalog, err := internalcommands.NewCatalog(internalDeps)
	if err != nil {
		return nil, err
	}
	return &Registry{
		Catalog:            catalog,
		SaveInstance:       catalog.SaveInstance,
		SetEnabled:         catalog.SetEnabled,
		DeleteInstance:     catalog.DeleteInstance,
		InvalidateInstance: catalog.InvalidateInstance,
	}, nil
}

// Commanders returns every handler so callers can register them with go-command registries.
func (r *Registry) Commanders() []any {
	if r == nil {
		return nil
	}
	return []any{
		r.SaveInstance,
		r.SetEnabled,
		r.DeleteInstance,
		r.InvalidateInstance,
	}
}
