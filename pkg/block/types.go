package block

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Type identifies which renderer handles a block instance (e.g. "acme_main.block.rss").
type Type string

// Normalize trims surrounding whitespace. Type identifiers are case sensitive.
func (t Type) Normalize() Type {
	return Type(strings.TrimSpace(string(t)))
}

func (t Type) String() string {
	return string(t)
}

// Settings is a flat key/value mapping used for defaults, overrides and the
// resolved render configuration.
type Settings map[string]any

// Clone returns a deep copy of s. Nested maps and slices are copied so the
// result never aliases the receiver.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for key, value := range s {
		out[key] = CloneValue(value)
	}
	return out
}

// String returns the string stored at key, or fallback when missing or not a string.
func (s Settings) String(key, fallback string) string {
	if value, ok := s[key].(string); ok {
		return value
	}
	return fallback
}

// Bool returns the bool stored at key, or fallback.
func (s Settings) Bool(key string, fallback bool) bool {
	if value, ok := s[key].(bool); ok {
		return value
	}
	return fallback
}

// Int returns the integer stored at key, accepting the numeric shapes produced by
// JSON/YAML decoders.
func (s Settings) Int(key string, fallback int) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// Duration returns the duration stored at key (see ParseDuration), or
// fallback when the value is missing or not positive.
func (s Settings) Duration(key string, fallback time.Duration) time.Duration {
	if d := ParseDuration(s[key]); d > 0 {
		return d
	}
	return fallback
}

// ParseDuration reads a duration setting. time.Duration values are taken as
// is. Plain numbers (int, int64, float64, json.Number) are seconds, not
// nanoseconds, so a nanosecond count must be passed as time.Duration. Strings
// may be Go durations ("90s") or plain seconds. Anything else yields zero.
func ParseDuration(value any) time.Duration {
	switch v := value.(type) {
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return time.Duration(f * float64(time.Second))
		}
	case string:
		raw := strings.TrimSpace(v)
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
		if n, err := strconv.Atoi(raw); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return 0
}

// Instance is the capability set the core reads from a persisted block record.
// Any record shape can satisfy it; the core never writes back.
type Instance interface {
	BlockID() string
	BlockType() Type
	IsEnabled() bool
	BlockOptions() Settings
}

// Static is an in-memory Instance, handy for ad-hoc blocks placed by templates
// and for tests.
type Static struct {
	ID      string
	Type    Type
	Enabled bool
	Options Settings
}

var _ Instance = Static{}

func (s Static) BlockID() string        { return s.ID }
func (s Static) BlockType() Type        { return s.Type }
func (s Static) IsEnabled() bool        { return s.Enabled }
func (s Static) BlockOptions() Settings { return s.Options }

// Renderer turns an instance and its resolved settings into a content payload.
// The payload is opaque to the dispatcher.
type Renderer interface {
	Execute(ctx context.Context, instance Instance, settings Settings) (string, error)
}

// Loader is an optional Renderer capability invoked before settings are
// resolved, e.g. to fetch or prepare auxiliary state.
type Loader interface {
	Load(ctx context.Context, instance Instance) error
}

// CacheKeyer is an optional Renderer capability describing which values make
// two renders of the same block interchangeable.
type CacheKeyer interface {
	CacheKeys(instance Instance, settings Settings) map[string]any
}

// RendererFunc adapts a plain function into a Renderer.
type RendererFunc func(ctx context.Context, instance Instance, settings Settings) (string, error)

// Execute calls f.
func (f RendererFunc) Execute(ctx context.Context, instance Instance, settings Settings) (string, error) {
	return f(ctx, instance, settings)
}

// Descriptor is the registered metadata bound to a block type.
type Descriptor struct {
	Name        string
	Description string
	Defaults    Settings
	Renderer    Renderer
}

// Clone copies the descriptor, detaching the defaults map.
func (d Descriptor) Clone() Descriptor {
	d.Defaults = d.Defaults.Clone()
	return d
}

// State tracks a single render through the dispatcher.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StateExecuted
	StateDone
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoaded:
		return "loaded"
	case StateExecuted:
		return "executed"
	case StateDone:
		return "done"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a render.
func (s State) Terminal() bool {
	return s == StateDone || s == StateSkipped
}

// Result is the outcome of a successful (or skipped) render.
type Result struct {
	Type       Type
	InstanceID string
	State      State
	Settings   Settings
	Content    string
	Cached     bool
}

// Skipped reports whether the block was disabled and never rendered.
func (r Result) Skipped() bool {
	return r.State == StateSkipped
}

// CloneValue deep copies maps and slices commonly found in settings payloads.
func CloneValue(value any) any {
	switch v := value.(type) {
	case Settings:
		return v.Clone()
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = CloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = CloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, item := range v {
			out[i], _ = CloneValue(item).(map[string]any)
		}
		return out
	default:
		return v
	}
}
