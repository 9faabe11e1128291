package settings

import (
	"sort"
	"strings"

	"github.com/goliatone/go-blocks/pkg/block"
	opts "github.com/goliatone/go-options"
	layering "github.com/goliatone/go-options/layering"
)

// MergeMode selects how a stronger layer overwrites a weaker one.
type MergeMode string

const (
	// MergeShallow overwrites top-level keys; nested values are replaced whole.
	MergeShallow MergeMode = "shallow"
	// MergeDeep merges nested maps key by key using go-options layering.
	MergeDeep MergeMode = "deep"
)

// ParseMergeMode converts a config value into a MergeMode. Unknown values
// resolve to MergeShallow.
func ParseMergeMode(value string) MergeMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(MergeDeep):
		return MergeDeep
	default:
		return MergeShallow
	}
}

// Scope names and priorities for the four cascade layers. Higher priority wins.
const (
	ScopeDefaults   = "defaults"
	ScopeDeployment = "deployment"
	ScopeOverrides  = "overrides"
	ScopeInstance   = "instance"

	PriorityDefaults   = opts.ScopePrioritySystem
	PriorityDeployment = opts.ScopePriorityTenant
	PriorityOverrides  = opts.ScopePriorityOrg
	PriorityInstance   = opts.ScopePriorityUser
)

// Sources are the cascade inputs, listed weakest first. Nil sources are skipped.
type Sources struct {
	Defaults   block.Settings
	Deployment block.Settings
	Overrides  block.Settings
	Instance   block.Settings
}

// ordered returns the sources weakest to strongest.
func (s Sources) ordered() []block.Settings {
	return []block.Settings{s.Defaults, s.Deployment, s.Overrides, s.Instance}
}

// Resolver merges cascade sources into resolved settings.
type Resolver struct {
	mode MergeMode
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMergeMode selects the merge strategy.
func WithMergeMode(mode MergeMode) Option {
	return func(r *Resolver) {
		if mode != "" {
			r.mode = mode
		}
	}
}

// NewResolver builds a resolver; the default mode is MergeShallow.
func NewResolver(options ...Option) *Resolver {
	r := &Resolver{mode: MergeShallow}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Mode returns the configured merge strategy.
func (r *Resolver) Mode() MergeMode {
	if r == nil {
		return MergeShallow
	}
	return r.mode
}

// Resolve applies defaults, deployment, overrides and instance options in that
// order. A key present in a later source replaces the earlier value; keys a
// source does not mention are left untouched. The result never aliases a source.
func (r *Resolver) Resolve(src Sources) block.Settings {
	if r.Mode() == MergeDeep {
		return resolveDeep(src)
	}
	resolved := make(block.Settings)
	for _, layer := range src.ordered() {
		for key, value := range layer {
			resolved[key] = block.CloneValue(value)
		}
	}
	return resolved
}

func resolveDeep(src Sources) block.Settings {
	ordered := src.ordered()
	// MergeLayers expects strongest first.
	layers := make([]map[string]any, 0, len(ordered))
	for i := len(ordered) - 1; i >= 0; i-- {
		if ordered[i] == nil {
			continue
		}
		layers = append(layers, map[string]any(ordered[i]))
	}
	if len(layers) == 0 {
		return make(block.Settings)
	}
	merged := layering.MergeLayers(layers...)
	if merged == nil {
		return make(block.Settings)
	}
	return block.Settings(merged).Clone()
}

// Explanation reports which cascade layer produced each resolved key.
type Explanation struct {
	Settings block.Settings
	Traces   map[string]opts.Trace
}

// Source returns the scope name of the strongest layer that set key.
func (e Explanation) Source(key string) string {
	trace, ok := e.Traces[key]
	if !ok {
		return ""
	}
	best := ""
	bestPriority := 0
	for _, layer := range trace.Layers {
		if !layer.Found {
			continue
		}
		if best == "" || layer.Scope.Priority > bestPriority {
			best = layer.Scope.Name
			bestPriority = layer.Scope.Priority
		}
	}
	return best
}

// Keys returns the explained keys sorted.
func (e Explanation) Keys() []string {
	keys := make([]string, 0, len(e.Traces))
	for key := range e.Traces {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Explain resolves src and records per-key provenance for every resolved
// key, strongest scope first. Keys are flat: "og.title" is one key, never a
// nested path.
func (r *Resolver) Explain(src Sources) (Explanation, error) {
	resolved := r.Resolve(src)
	explanation := Explanation{
		Settings: resolved,
		Traces:   make(map[string]opts.Trace, len(resolved)),
	}

	type scoped struct {
		scope opts.Scope
		data  block.Settings
	}
	// strongest first, matching go-options traces
	candidates := []scoped{
		{opts.NewScope(ScopeInstance, PriorityInstance, opts.WithScopeLabel("Instance options")), src.Instance},
		{opts.NewScope(ScopeOverrides, PriorityOverrides, opts.WithScopeLabel("Caller overrides")), src.Overrides},
		{opts.NewScope(ScopeDeployment, PriorityDeployment, opts.WithScopeLabel("Deployment config")), src.Deployment},
		{opts.NewScope(ScopeDefaults, PriorityDefaults, opts.WithScopeLabel("Renderer defaults")), src.Defaults},
	}

	for key := range resolved {
		trace := opts.Trace{Path: key}
		for _, candidate := range candidates {
			if candidate.data == nil {
				continue
			}
			value, found := candidate.data[key]
			trace.Layers = append(trace.Layers, opts.Provenance{
				Scope: candidate.scope,
				Path:  key,
				Value: block.CloneValue(value),
				Found: found,
			})
		}
		explanation.Traces[key] = trace
	}
	return explanation, nil
}
