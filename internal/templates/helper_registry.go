package templates

import (
	"sort"
	"sync"

	gotemplate "github.com/goliatone/go-template"
)

// helperRegistry mirrors the helper functions pushed into the go-template
// engine so callers can list them.
type helperRegistry struct {
	mu       sync.RWMutex
	funcs    map[string]any
	renderer *gotemplate.Engine
}

func newHelperRegistry(renderer *gotemplate.Engine) *helperRegistry {
	return &helperRegistry{
		funcs:    make(map[string]any),
		renderer: renderer,
	}
}

func (r *helperRegistry) Register(funcs map[string]any) {
	if r == nil || len(funcs) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, fn := range funcs {
		if fn == nil {
			delete(r.funcs, key)
			continue
		}
		r.funcs[key] = fn
	}
	gotemplate.WithTemplateFunc(funcs)(r.renderer)
}

// Names lists registered helper names in sorted order.
func (r *helperRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
