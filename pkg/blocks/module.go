// Package blocks is the public facade: it wires the registry, settings
// cascade, templates and dispatcher and renders block instances for hosts.
package blocks

import (
	"context"
	"errors"
	"sync"

	i18n "github.com/goliatone/go-i18n"
	"github.com/goliatone/go-blocks/internal/di"
	"github.com/goliatone/go-blocks/internal/dispatcher"
	"github.com/goliatone/go-blocks/pkg/activity"
	"github.com/goliatone/go-blocks/pkg/block"
	"github.com/goliatone/go-blocks/pkg/commands"
	"github.com/goliatone/go-blocks/pkg/config"
	"github.com/goliatone/go-blocks/pkg/interfaces/cache"
	"github.com/goliatone/go-blocks/pkg/interfaces/logger"
	"github.com/goliatone/go-blocks/pkg/registry"
	"github.com/goliatone/go-blocks/pkg/renderers/rss"
	"github.com/goliatone/go-blocks/pkg/settings"
	"github.com/goliatone/go-blocks/pkg/storage"
	"github.com/goliatone/go-blocks/pkg/templates"
)

type (
	// Request is one block of a page render.
	Request = dispatcher.Request
	// Outcome pairs a page request with its result.
	Outcome = dispatcher.Outcome
)

var ErrModuleRequired = errors.New("blocks: module is not initialised")

// ModuleOptions configure the blocks module facade.
type ModuleOptions struct {
	Config     config.Config
	Storage    storage.Providers
	Logger     logger.Logger
	Cache      cache.Cache
	Translator i18n.Translator
	Fallbacks  i18n.FallbackResolver
	Hooks      activity.Hooks
	Fetcher    rss.Fetcher
	// Blocks are registered after the builtin types. A duplicate type fails
	// construction.
	Blocks       map[block.Type]block.Descriptor
	SkipBuiltins bool
}

// Module bundles the container and exposes high-level render operations.
// The first render freezes the registry.
type Module struct {
	container *di.Container
	logger    logger.Logger
	freeze    sync.Once
}

// NewModule assembles storage, templates, registry, dispatcher and commands.
func NewModule(opts ModuleOptions) (*Module, error) {
	container, err := di.New(di.Options{
		Config:       opts.Config,
		Storage:      opts.Storage,
		Logger:       opts.Logger,
		Cache:        opts.Cache,
		Translator:   opts.Translator,
		Fallbacks:    opts.Fallbacks,
		Hooks:        opts.Hooks,
		Fetcher:      opts.Fetcher,
		SkipBuiltins: opts.SkipBuiltins,
	})
	if err != nil {
		return nil, err
	}
	for typ, descriptor := range opts.Blocks {
		if err := container.Registry.Register(typ, descriptor); err != nil {
			return nil, err
		}
	}
	return &Module{
		container: container,
		logger:    container.Logger.With(logger.F("component", "blocks")),
	}, nil
}

// Register binds a renderer descriptor to typ. It fails once the registry is
// frozen.
func (m *Module) Register(typ block.Type, descriptor block.Descriptor) error {
	if m == nil || m.container == nil {
		return ErrModuleRequired
	}
	return m.container.Registry.Register(typ, descriptor)
}

// Freeze closes the registry to further registrations.
func (m *Module) Freeze() {
	if m == nil || m.container == nil {
		return
	}
	m.freeze.Do(m.container.Registry.Freeze)
}

// Render resolves settings for instance and runs its renderer.
func (m *Module) Render(ctx context.Context, instance block.Instance, overrides block.Settings) (block.Result, error) {
	if m == nil || m.container == nil {
		return block.Result{}, ErrModuleRequired
	}
	m.Freeze()
	return m.container.Dispatcher.Render(ctx, instance, overrides)
}

// RenderByName loads a stored instance by name and renders it.
func (m *Module) RenderByName(ctx context.Context, name string, overrides block.Settings) (block.Result, error) {
	if m == nil || m.container == nil {
		return block.Result{}, ErrModuleRequired
	}
	record, err := m.container.Storage.Instances.GetByName(ctx, name)
	if err != nil {
		return block.Result{}, err
	}
	return m.Render(ctx, record, overrides)
}

// RenderPage renders independent blocks concurrently. Outcomes keep the
// order of reqs.
func (m *Module) RenderPage(ctx context.Context, reqs []Request) []Outcome {
	if m == nil || m.container == nil {
		return nil
	}
	m.Freeze()
	return m.container.Dispatcher.RenderPage(ctx, reqs)
}

// Explain reports which cascade layer set each resolved setting.
func (m *Module) Explain(instance block.Instance, overrides block.Settings) (settings.Explanation, error) {
	if m == nil || m.container == nil {
		return settings.Explanation{}, ErrModuleRequired
	}
	return m.container.Dispatcher.Explain(instance, overrides)
}

// Registry returns the block type registry.
func (m *Module) Registry() *registry.Registry {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Registry
}

// Templates returns the template service.
func (m *Module) Templates() *templates.Service {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Templates
}

// Commands returns the go-command registry.
func (m *Module) Commands() *commands.Registry {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Commands
}

// Config returns the effective module configuration.
func (m *Module) Config() config.Config {
	if m == nil || m.container == nil {
		return config.Config{}
	}
	return m.container.Config
}

// Container returns the internal DI container.
// This is exposed for advanced use cases like direct storage access.
func (m *Module) Container() *di.Container {
	if m == nil {
		return nil
	}
	return m.container
}
