package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/goliatone/go-blocks/pkg/block"
	"github.com/goliatone/go-config/cfgx"
	"gopkg.in/yaml.v3"
)

// Error strategies applied when a page renders a failing block.
const (
	ErrorStrategyIgnore = "ignore"
	ErrorStrategyInline = "inline"
)

// Merge modes accepted by settings.merge_mode.
const (
	MergeModeShallow = "shallow"
	MergeModeDeep    = "deep"
)

// Config captures module-level configuration knobs. Feature packages
// (dispatcher, templates, settings resolver) pull from these nested structs.
type Config struct {
	Localization LocalizationConfig     `mapstructure:"localization" json:"localization" yaml:"localization"`
	Dispatcher   DispatcherConfig       `mapstructure:"dispatcher" json:"dispatcher" yaml:"dispatcher"`
	Settings     SettingsConfig         `mapstructure:"settings" json:"settings" yaml:"settings"`
	Errors       ErrorsConfig           `mapstructure:"errors" json:"errors" yaml:"errors"`
	Blocks       map[string]BlockConfig `mapstructure:"blocks" json:"blocks" yaml:"blocks"`
}

// LocalizationConfig controls default locale + fallback chains.
type LocalizationConfig struct {
	DefaultLocale string              `mapstructure:"default_locale" json:"default_locale" yaml:"default_locale"`
	Fallbacks     map[string][]string `mapstructure:"fallbacks" json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
}

// MinWorkers is the smallest page worker pool. A single worker would let one
// hung renderer stall every block queued behind it.
const MinWorkers = 2

// DispatcherConfig sizes the worker pool used for page renders. MaxWorkers
// must be at least MinWorkers.
type DispatcherConfig struct {
	MaxWorkers int `mapstructure:"max_workers" json:"max_workers" yaml:"max_workers"`
}

// SettingsConfig governs how the settings cascade merges layers.
type SettingsConfig struct {
	MergeMode string `mapstructure:"merge_mode" json:"merge_mode" yaml:"merge_mode"`
}

// ErrorsConfig decides what a page shows in place of a failing block.
type ErrorsConfig struct {
	Strategy string `mapstructure:"strategy" json:"strategy" yaml:"strategy"`
}

// BlockConfig is the deployment configuration for a single block type.
type BlockConfig struct {
	Settings map[string]any `mapstructure:"settings" json:"settings" yaml:"settings"`
	CacheTTL time.Duration  `mapstructure:"cache_ttl" json:"cache_ttl" yaml:"cache_ttl"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Localization: LocalizationConfig{DefaultLocale: "en"},
		Dispatcher:   DispatcherConfig{MaxWorkers: 4},
		Settings:     SettingsConfig{MergeMode: MergeModeShallow},
		Errors:       ErrorsConfig{Strategy: ErrorStrategyIgnore},
	}
}

// Validate ensures required fields are present and sane.
func (c *Config) Validate() error {
	if c.Localization.DefaultLocale == "" {
		return errors.New("localization.default_locale is required")
	}
	if c.Dispatcher.MaxWorkers < MinWorkers {
		return fmt.Errorf("dispatcher.max_workers must be >= %d", MinWorkers)
	}
	switch c.Settings.MergeMode {
	case MergeModeShallow, MergeModeDeep:
	default:
		return fmt.Errorf("settings.merge_mode %q is not supported", c.Settings.MergeMode)
	}
	switch c.Errors.Strategy {
	case ErrorStrategyIgnore, ErrorStrategyInline:
	default:
		return fmt.Errorf("errors.strategy %q is not supported", c.Errors.Strategy)
	}
	for name, blk := range c.Blocks {
		if strings.TrimSpace(name) == "" {
			return errors.New("blocks: type name is required")
		}
		if blk.CacheTTL < 0 {
			return fmt.Errorf("blocks.%s.cache_ttl must be >= 0", name)
		}
	}
	return nil
}

// SettingsFor returns a copy of the deployment settings configured for typ,
// or nil when the type has no entry. Type names match exactly after trimming,
// the same rule the registry applies.
func (c Config) SettingsFor(typ block.Type) block.Settings {
	blk, ok := c.block(typ)
	if !ok || len(blk.Settings) == 0 {
		return nil
	}
	return block.Settings(blk.Settings).Clone()
}

// CacheTTLFor returns the cache lifetime configured for typ.
func (c Config) CacheTTLFor(typ block.Type) time.Duration {
	blk, _ := c.block(typ)
	return blk.CacheTTL
}

func (c Config) block(typ block.Type) (BlockConfig, bool) {
	key := typ.Normalize()
	if blk, ok := c.Blocks[key.String()]; ok {
		return blk, true
	}
	for name, blk := range c.Blocks {
		if block.Type(name).Normalize() == key {
			return blk, true
		}
	}
	return BlockConfig{}, false
}

// Load decodes arbitrary input (struct, map, cfg struct) using cfgx helpers.
// When cfgx.Build returns a zero value we fall back to a JSON round trip.
func Load(input any, opts ...LoadOption) (Config, error) {
	settings := loadOptions{}
	for _, opt := range opts {
		opt(&settings)
	}

	if raw, ok := input.(map[string]any); ok {
		normalized, err := normalizeDurations(raw)
		if err != nil {
			return Config{}, err
		}
		input = normalized
	}

	cfg, err := cfgx.Build(input, settings.buildOpts...)
	if err != nil {
		return Config{}, err
	}

	if isZero(cfg) {
		if err := decodeFallback(input, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFile reads a YAML (or JSON) document from path and loads it.
func LoadFile(path string, opts ...LoadOption) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return Load(doc, opts...)
}

// LoadOption lets callers amend cfgx build options.
type LoadOption func(*loadOptions)

type loadOptions struct {
	buildOpts []cfgx.Option[Config]
}

// WithBuildOptions forwards cfgx options (duration hooks, preprocessors, etc.).
func WithBuildOptions(opts ...cfgx.Option[Config]) LoadOption {
	return func(lo *loadOptions) {
		lo.buildOpts = append(lo.buildOpts, opts...)
	}
}

func (c Config) withDefaults() Config {
	defaults := Defaults()

	if c.Localization.DefaultLocale == "" {
		c.Localization.DefaultLocale = defaults.Localization.DefaultLocale
	}
	if c.Dispatcher.MaxWorkers == 0 {
		c.Dispatcher.MaxWorkers = defaults.Dispatcher.MaxWorkers
	}
	c.Settings.MergeMode = strings.ToLower(strings.TrimSpace(c.Settings.MergeMode))
	if c.Settings.MergeMode == "" {
		c.Settings.MergeMode = defaults.Settings.MergeMode
	}
	c.Errors.Strategy = strings.ToLower(strings.TrimSpace(c.Errors.Strategy))
	if c.Errors.Strategy == "" {
		c.Errors.Strategy = defaults.Errors.Strategy
	}
	return c
}

func isZero(cfg Config) bool {
	return reflect.DeepEqual(cfg, Config{})
}

func decodeFallback(input any, cfg *Config) error {
	switch v := input.(type) {
	case nil:
		return nil
	case Config:
		*cfg = v
		return nil
	case *Config:
		if v != nil {
			*cfg = *v
		}
		return nil
	case map[string]any:
		return decodeMap(v, cfg)
	default:
		return fmt.Errorf("unsupported config input type: %T", input)
	}
}

func decodeMap(input map[string]any, cfg *Config) error {
	if input == nil {
		return nil
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, cfg)
}

// normalizeDurations rewrites "30s" style blocks.<type>.cache_ttl values into
// nanoseconds so encoding/json can decode them into time.Duration. The
// per-type settings maps are deployment data and pass through untouched.
func normalizeDurations(input map[string]any) (map[string]any, error) {
	blocks, ok := input["blocks"].(map[string]any)
	if !ok {
		return input, nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	normalized := make(map[string]any, len(blocks))
	for name, value := range blocks {
		entry, ok := value.(map[string]any)
		if !ok {
			normalized[name] = value
			continue
		}
		copied := make(map[string]any, len(entry))
		for key, field := range entry {
			copied[key] = field
		}
		if raw, ok := entry["cache_ttl"].(string); ok {
			d, err := time.ParseDuration(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("blocks.%s.cache_ttl: %w", name, err)
			}
			copied["cache_ttl"] = int64(d)
		}
		normalized[name] = copied
	}
	out["blocks"] = normalized
	return out, nil
}
