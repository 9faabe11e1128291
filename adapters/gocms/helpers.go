package gocms

import (
	"errors"
	"strings"

	"github.com/goliatone/go-blocks/pkg/block"
	"github.com/goliatone/go-blocks/pkg/domain"
)

// SourceName is recorded under metadata "source" on every converted instance.
const SourceName = "go-cms"

var (
	ErrNameRequired            = errors.New("gocms: instance name is required")
	ErrNoTranslations          = errors.New("gocms: snapshot has no translations")
	ErrLocaleIdentifierMissing = errors.New("gocms: translation locale is missing")
	ErrDuplicateLocale         = errors.New("gocms: duplicate translation locale")
)

// InstanceSpec describes how converted instances are named and typed.
type InstanceSpec struct {
	Name        string
	Type        block.Type
	Enabled     bool
	Position    int
	Description string
	// DefaultLocale keeps Name unchanged for its translation; other locales
	// are stored as "<name>.<locale>". Empty means the first translation.
	DefaultLocale string
	Metadata      domain.JSONMap
	// ResolveLocale maps go-cms locale identifiers to locale codes.
	ResolveLocale func(raw string) (string, error)
}

func (s InstanceSpec) normalized() (InstanceSpec, error) {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return s, ErrNameRequired
	}
	s.Type = s.Type.Normalize()
	if s.Type == "" {
		return s, block.ErrTypeRequired
	}
	s.DefaultLocale = strings.ToLower(strings.TrimSpace(s.DefaultLocale))
	return s, nil
}

func (s InstanceSpec) locale(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrLocaleIdentifierMissing
	}
	if s.ResolveLocale == nil {
		return strings.ToLower(raw), nil
	}
	resolved, err := s.ResolveLocale(raw)
	if err != nil {
		return "", err
	}
	resolved = strings.ToLower(strings.TrimSpace(resolved))
	if resolved == "" {
		return "", ErrLocaleIdentifierMissing
	}
	return resolved, nil
}

// NameFor returns the instance name stored for locale.
func NameFor(name, locale, defaultLocale string) string {
	if locale == "" || strings.EqualFold(locale, defaultLocale) {
		return name
	}
	return name + "." + locale
}

type translationPayload struct {
	locale        string
	content       map[string]any
	overrides     map[string]any
	configuration map[string]any
	metadata      map[string]any
}

func buildInstances(spec InstanceSpec, payloads []translationPayload) ([]*domain.BlockInstance, error) {
	spec, err := spec.normalized()
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, ErrNoTranslations
	}

	seen := make(map[string]struct{}, len(payloads))
	out := make([]*domain.BlockInstance, 0, len(payloads))
	for _, payload := range payloads {
		locale, err := spec.locale(payload.locale)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[locale]; ok {
			return nil, ErrDuplicateLocale
		}
		seen[locale] = struct{}{}
		if spec.DefaultLocale == "" {
			spec.DefaultLocale = locale
		}
		out = append(out, &domain.BlockInstance{
			Name:        NameFor(spec.Name, locale, spec.DefaultLocale),
			Type:        spec.Type.String(),
			Enabled:     spec.Enabled,
			Locale:      locale,
			Position:    spec.Position,
			Description: spec.Description,
			Options:     layer(payload.configuration, payload.content, payload.overrides),
			Metadata:    metadataFor(spec.Metadata, payload.metadata),
		})
	}
	return out, nil
}

// layer copies maps in order; later maps win on shared keys.
func layer(maps ...map[string]any) domain.JSONMap {
	out := make(domain.JSONMap)
	for _, m := range maps {
		for key, value := range m {
			out[key] = block.CloneValue(value)
		}
	}
	return out
}

func metadataFor(spec domain.JSONMap, snapshot map[string]any) domain.JSONMap {
	out := layer(spec)
	if len(snapshot) > 0 {
		out["cms"] = map[string]any(layer(snapshot))
	}
	out["source"] = SourceName
	return out
}
