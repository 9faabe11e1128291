package templates

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-blocks/pkg/domain"
)

// Definition is one localized variant of a block template.
type Definition struct {
	Ref      string
	Locale   string
	Body     string
	Schema   domain.TemplateSchema
	Revision int
}

type templateEntry struct {
	ref      string
	schema   domain.TemplateSchema
	variants map[string]Definition // locale -> variant
}

type registry struct {
	mu      sync.RWMutex
	entries map[string]*templateEntry
}

func newRegistry() *registry {
	return &registry{
		entries: make(map[string]*templateEntry),
	}
}

// Upsert stores def unless a newer revision is already registered. A variant
// without a schema inherits the schema of its siblings.
func (r *registry) Upsert(def Definition) bool {
	if def.Ref == "" || def.Locale == "" || def.Body == "" {
		return false
	}

	refKey := normalizeKey(def.Ref)
	localeKey := normalizeKey(def.Locale)

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[refKey]
	if !ok {
		entry = &templateEntry{
			ref:      def.Ref,
			variants: make(map[string]Definition),
		}
		r.entries[refKey] = entry
	}

	schema := sanitizeSchema(def.Schema)
	if schema.IsZero() {
		schema = entry.schema
	} else {
		entry.schema = schema
	}

	if current, ok := entry.variants[localeKey]; ok && current.Revision > def.Revision {
		return false
	}
	def.Schema = schema
	entry.variants[localeKey] = def
	return true
}

// Get returns the exact variant for ref/locale.
func (r *registry) Get(ref, locale string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry := r.entries[normalizeKey(ref)]
	if entry == nil {
		return Definition{}, false
	}
	def, ok := entry.variants[normalizeKey(locale)]
	return def, ok
}

// Resolve walks locales in order and returns the first registered variant.
func (r *registry) Resolve(ref string, locales []string) (Definition, string, error) {
	if strings.TrimSpace(ref) == "" {
		return Definition{}, "", ErrTemplateNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry := r.entries[normalizeKey(ref)]
	if entry == nil {
		return Definition{}, "", ErrTemplateNotFound
	}

	seen := make(map[string]struct{}, len(locales))
	for _, candidate := range locales {
		locKey := normalizeKey(candidate)
		if locKey == "" {
			continue
		}
		if _, ok := seen[locKey]; ok {
			continue
		}
		seen[locKey] = struct{}{}
		if def, ok := entry.variants[locKey]; ok {
			return def, candidate, nil
		}
	}
	return Definition{}, "", ErrTemplateNotFound
}

// Refs lists registered template references in sorted order.
func (r *registry) Refs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.ref)
	}
	sort.Strings(out)
	return out
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
