package di

import (
	"context"
	"errors"
	"reflect"

	i18n "github.com/goliatone/go-i18n"
	"github.com/goliatone/go-blocks/internal/dispatcher"
	"github.com/goliatone/go-blocks/pkg/activity"
	"github.com/goliatone/go-blocks/pkg/commands"
	"github.com/goliatone/go-blocks/pkg/config"
	"github.com/goliatone/go-blocks/pkg/interfaces/cache"
	"github.com/goliatone/go-blocks/pkg/interfaces/logger"
	"github.com/goliatone/go-blocks/pkg/registry"
	"github.com/goliatone/go-blocks/pkg/renderers/rss"
	"github.com/goliatone/go-blocks/pkg/renderers/text"
	"github.com/goliatone/go-blocks/pkg/settings"
	"github.com/goliatone/go-blocks/pkg/storage"
	"github.com/goliatone/go-blocks/pkg/templates"
)

// Options configure the DI container.
type Options struct {
	Config     config.Config
	Storage    storage.Providers
	Logger     logger.Logger
	Cache      cache.Cache
	Translator i18n.Translator
	Fallbacks  i18n.FallbackResolver
	Hooks      activity.Hooks
	// Fetcher replaces the HTTP client used by the rss block.
	Fetcher rss.Fetcher
	// SkipBuiltins leaves the registry empty of the rss and text blocks.
	SkipBuiltins bool
}

// Container wires registry, resolver, templates, dispatcher and commands.
type Container struct {
	Config     config.Config
	Storage    storage.Providers
	Registry   *registry.Registry
	Resolver   *settings.Resolver
	Templates  *templates.Service
	Dispatcher *dispatcher.Service
	Commands   *commands.Registry
	Cache      cache.Cache
	Hooks      activity.Hooks
	Logger     logger.Logger
}

func isZeroConfig(cfg config.Config) bool {
	return reflect.ValueOf(cfg).IsZero()
}

// New constructs the container using the supplied options.
func New(opts Options) (*Container, error) {
	cfg := opts.Config
	if isZeroConfig(cfg) {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	providers := opts.Storage
	if providers.Instances == nil {
		providers = storage.NewMemoryProviders()
	}

	lgr := opts.Logger
	if lgr == nil {
		lgr = &logger.Nop{}
	}

	c := opts.Cache
	if c == nil {
		c = &cache.Nop{}
	}

	translator := opts.Translator
	if translator == nil {
		var err error
		translator, err = defaultTranslator(cfg.Localization.DefaultLocale)
		if err != nil {
			return nil, err
		}
	}

	fallbacks := opts.Fallbacks
	if fallbacks == nil && len(cfg.Localization.Fallbacks) > 0 {
		resolver := i18n.NewStaticFallbackResolver()
		for locale, chain := range cfg.Localization.Fallbacks {
			resolver.Set(locale, chain...)
		}
		fallbacks = resolver
	}

	tplSvc, err := templates.New(templates.Dependencies{
		Logger:        lgr,
		Translator:    translator,
		Fallbacks:     fallbacks,
		DefaultLocale: cfg.Localization.DefaultLocale,
	})
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	if !opts.SkipBuiltins {
		if err := registerBuiltins(reg, tplSvc, opts.Fetcher, lgr); err != nil {
			return nil, err
		}
	}

	resolver := settings.NewResolver(settings.WithMergeMode(settings.ParseMergeMode(cfg.Settings.MergeMode)))

	hooks := opts.Hooks
	if len(hooks) == 0 {
		hooks = activity.Hooks{activity.LogHook{Logger: lgr}}
	}

	dispatcherSvc, err := dispatcher.New(dispatcher.Dependencies{
		Registry:   reg,
		Resolver:   resolver,
		Deployment: cfg,
		Cache:      c,
		Hooks:      hooks,
		Logger:     lgr,
		Config:     cfg.Dispatcher,
	})
	if err != nil {
		return nil, err
	}

	cmdRegistry, err := commands.New(commands.Dependencies{
		Instances:   providers.Instances,
		Transaction: providers.Transaction,
		Types:       reg,
		Cache:       c,
		Logger:      lgr,
	})
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:     cfg,
		Storage:    providers,
		Registry:   reg,
		Resolver:   resolver,
		Templates:  tplSvc,
		Dispatcher: dispatcherSvc,
		Commands:   cmdRegistry,
		Cache:      c,
		Hooks:      hooks,
		Logger:     lgr,
	}, nil
}

func registerBuiltins(reg *registry.Registry, tpl *templates.Service, fetcher rss.Fetcher, lgr logger.Logger) error {
	inputs := append(rss.Templates(), text.Templates()...)
	for _, input := range inputs {
		if _, err := tpl.Register(context.Background(), input); err != nil {
			return err
		}
	}

	feed, err := rss.New(rss.Dependencies{Templates: tpl, Fetcher: fetcher, Logger: lgr})
	if err != nil {
		return err
	}
	static, err := text.New(tpl)
	if err != nil {
		return err
	}
	return errors.Join(
		reg.Register(rss.Type, rss.Descriptor(feed)),
		reg.Register(text.Type, text.Descriptor(static)),
	)
}

func defaultTranslator(locale string) (i18n.Translator, error) {
	store := i18n.NewStaticStore(i18n.Translations{
		locale: &i18n.TranslationCatalog{
			Locale:   i18n.Locale{Code: locale},
			Messages: map[string]i18n.Message{},
		},
	})
	return i18n.NewSimpleTranslator(store, i18n.WithTranslatorDefaultLocale(locale))
}

var _ dispatcher.DeploymentSettings = config.Config{}
