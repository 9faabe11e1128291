package dispatcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-blocks/pkg/activity"
	"github.com/goliatone/go-blocks/pkg/block"
	"github.com/goliatone/go-blocks/pkg/config"
	"github.com/goliatone/go-blocks/pkg/interfaces/cache"
	"github.com/goliatone/go-blocks/pkg/interfaces/logger"
	"github.com/goliatone/go-blocks/pkg/registry"
	"github.com/goliatone/go-blocks/pkg/settings"
)

// TTLKey is the resolved setting that enables result caching for a block.
const TTLKey = "ttl"

// DeploymentSettings supplies per-type configuration from the deployment.
type DeploymentSettings interface {
	SettingsFor(typ block.Type) block.Settings
}

// cacheTTLProvider is an optional DeploymentSettings capability used when the
// resolved settings carry no ttl of their own.
type cacheTTLProvider interface {
	CacheTTLFor(typ block.Type) time.Duration
}

// Dependencies groups the collaborators required by the dispatcher.
type Dependencies struct {
	Registry   *registry.Registry
	Resolver   *settings.Resolver
	Deployment DeploymentSettings
	Cache      cache.Cache
	Hooks      activity.Hooks
	Logger     logger.Logger
	Config     config.DispatcherConfig
}

// Service resolves settings for block instances and invokes their renderers.
type Service struct {
	registry   *registry.Registry
	resolver   *settings.Resolver
	deployment DeploymentSettings
	cache      cache.Cache
	caching    bool
	hooks      activity.Hooks
	logger     logger.Logger
	cfg        config.DispatcherConfig
}

// Request is one block of a page render.
type Request struct {
	Instance  block.Instance
	Overrides block.Settings
}

// Outcome pairs a page request with its result. Err is nil for rendered and
// skipped blocks.
type Outcome struct {
	Index  int
	Result block.Result
	Err    error
}

var (
	ErrMissingRegistry = errors.New("dispatcher: registry is required")
	ErrNilInstance     = errors.New("dispatcher: instance is required")
)

// New builds the dispatcher service.
func New(deps Dependencies) (*Service, error) {
	if deps.Registry == nil {
		return nil, ErrMissingRegistry
	}
	if deps.Resolver == nil {
		deps.Resolver = settings.NewResolver()
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	_, nopCache := deps.Cache.(*cache.Nop)
	if deps.Cache == nil {
		deps.Cache = &cache.Nop{}
		nopCache = true
	}
	if deps.Config.MaxWorkers <= 0 {
		deps.Config.MaxWorkers = config.Defaults().Dispatcher.MaxWorkers
	}
	deps.Config.MaxWorkers = max(deps.Config.MaxWorkers, config.MinWorkers)

	return &Service{
		registry:   deps.Registry,
		resolver:   deps.Resolver,
		deployment: deps.Deployment,
		cache:      deps.Cache,
		caching:    !nopCache,
		hooks:      deps.Hooks,
		logger:     deps.Logger.With(logger.F("component", "dispatcher")),
		cfg:        deps.Config,
	}, nil
}

// Render runs a single block through Idle -> Loaded -> Executed -> Done.
// Disabled instances short-circuit to Skipped without touching the registry.
// The returned Result reflects the last state reached, also on error.
func (s *Service) Render(ctx context.Context, instance block.Instance, overrides block.Settings) (block.Result, error) {
	if instance == nil {
		return block.Result{}, ErrNilInstance
	}
	start := time.Now()
	typ := instance.BlockType().Normalize()
	result := block.Result{
		Type:       typ,
		InstanceID: instance.BlockID(),
		State:      block.StateIdle,
	}

	if !instance.IsEnabled() {
		result.State = block.StateSkipped
		s.notify(ctx, activity.VerbSkipped, result, start, nil)
		return result, nil
	}

	descriptor, err := s.registry.Lookup(typ)
	if err != nil {
		s.notify(ctx, activity.VerbFailed, result, start, err)
		return result, err
	}

	if loader, ok := descriptor.Renderer.(block.Loader); ok {
		if err := s.load(ctx, loader, instance, result); err != nil {
			s.notify(ctx, activity.VerbFailed, result, start, err)
			return result, err
		}
	}
	result.State = block.StateLoaded

	result.Settings = s.resolver.Resolve(s.sources(typ, descriptor, instance, overrides))

	key, ttl := s.cacheEntry(typ, descriptor.Renderer, instance, result.Settings)
	if key != "" {
		if content, ok := s.cached(ctx, key); ok {
			result.Content = content
			result.Cached = true
			result.State = block.StateDone
			s.notify(ctx, activity.VerbRendered, result, start, nil)
			return result, nil
		}
	}

	content, err := s.execute(ctx, descriptor.Renderer, instance, result)
	result.State = block.StateExecuted
	if err != nil {
		s.notify(ctx, activity.VerbFailed, result, start, err)
		return result, err
	}
	result.Content = content

	if key != "" {
		if err := s.cache.Set(ctx, key, content, ttl); err != nil {
			s.logger.Warn("block cache set failed", logger.F("type", typ), logger.F("error", err))
		}
	}

	result.State = block.StateDone
	s.logger.Debug("block rendered",
		logger.F("type", typ),
		logger.F("instance", result.InstanceID),
		logger.F("settings", settings.Mask(result.Settings)),
	)
	s.notify(ctx, activity.VerbRendered, result, start, nil)
	return result, nil
}

// Resolve returns the settings a render of instance would use, without
// invoking the renderer.
func (s *Service) Resolve(instance block.Instance, overrides block.Settings) (block.Settings, error) {
	src, err := s.lookupSources(instance, overrides)
	if err != nil {
		return nil, err
	}
	return s.resolver.Resolve(src), nil
}

// Explain reports which cascade layer supplied every resolved key.
func (s *Service) Explain(instance block.Instance, overrides block.Settings) (settings.Explanation, error) {
	src, err := s.lookupSources(instance, overrides)
	if err != nil {
		return settings.Explanation{}, err
	}
	return s.resolver.Explain(src)
}

// InvalidationPrefix is the cache prefix covering every cached render of the
// given instance.
func InvalidationPrefix(typ block.Type, instanceID string) string {
	return cache.Key(typ.Normalize().String(), instanceID) + ":"
}

func (s *Service) lookupSources(instance block.Instance, overrides block.Settings) (settings.Sources, error) {
	if instance == nil {
		return settings.Sources{}, ErrNilInstance
	}
	typ := instance.BlockType().Normalize()
	descriptor, err := s.registry.Lookup(typ)
	if err != nil {
		return settings.Sources{}, err
	}
	return s.sources(typ, descriptor, instance, overrides), nil
}

func (s *Service) sources(typ block.Type, descriptor block.Descriptor, instance block.Instance, overrides block.Settings) settings.Sources {
	src := settings.Sources{
		Defaults:  descriptor.Defaults,
		Overrides: overrides,
		Instance:  instance.BlockOptions(),
	}
	if s.deployment != nil {
		src.Deployment = s.deployment.SettingsFor(typ)
	}
	return src
}

func (s *Service) load(ctx context.Context, loader block.Loader, instance block.Instance, result block.Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &block.LoadError{Type: result.Type, InstanceID: result.InstanceID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if loadErr := loader.Load(ctx, instance); loadErr != nil {
		return &block.LoadError{Type: result.Type, InstanceID: result.InstanceID, Err: loadErr}
	}
	return nil
}

func (s *Service) execute(ctx context.Context, renderer block.Renderer, instance block.Instance, result block.Result) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = ""
			err = &block.RenderError{Type: result.Type, InstanceID: result.InstanceID, Err: fmt.Errorf("%v", r), Panicked: true}
		}
	}()
	// the renderer gets its own copy so it cannot mutate the returned result
	content, err = renderer.Execute(ctx, instance, result.Settings.Clone())
	if err != nil {
		return "", &block.RenderError{Type: result.Type, InstanceID: result.InstanceID, Err: err}
	}
	return content, nil
}

func (s *Service) cacheEntry(typ block.Type, renderer block.Renderer, instance block.Instance, resolved block.Settings) (string, time.Duration) {
	if !s.caching {
		return "", 0
	}
	ttl := resolved.Duration(TTLKey, 0)
	if ttl <= 0 {
		if provider, ok := s.deployment.(cacheTTLProvider); ok {
			ttl = provider.CacheTTLFor(typ)
		}
	}
	if ttl <= 0 {
		return "", 0
	}

	var keys any = map[string]any(resolved)
	if keyer, ok := renderer.(block.CacheKeyer); ok {
		keys = keyer.CacheKeys(instance, resolved.Clone())
	}
	payload, err := json.Marshal(keys)
	if err != nil {
		s.logger.Warn("block cache key failed", logger.F("type", typ), logger.F("error", err))
		return "", 0
	}
	sum := sha256.Sum256(payload)
	return cache.Key(typ.String(), instance.BlockID(), hex.EncodeToString(sum[:8])), ttl
}

func (s *Service) cached(ctx context.Context, key string) (string, bool) {
	value, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("block cache get failed", logger.F("key", key), logger.F("error", err))
		return "", false
	}
	if !ok {
		return "", false
	}
	content, ok := value.(string)
	return content, ok
}

func (s *Service) notify(ctx context.Context, verb string, result block.Result, start time.Time, err error) {
	if len(s.hooks) == 0 {
		return
	}
	s.hooks.Notify(ctx, activity.Event{
		Verb:       verb,
		ObjectType: activity.ObjectTypeBlock,
		ObjectID:   result.InstanceID,
		BlockType:  result.Type.String(),
		State:      result.State.String(),
		Cached:     result.Cached,
		Duration:   time.Since(start),
		Err:        err,
	})
}
