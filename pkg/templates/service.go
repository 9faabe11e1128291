package templates

import (
	"context"
	"errors"
	"strings"
	"sync"

	i18n "github.com/goliatone/go-i18n"
	internaltemplates "github.com/goliatone/go-blocks/internal/templates"
	"github.com/goliatone/go-blocks/pkg/domain"
	"github.com/goliatone/go-blocks/pkg/interfaces/logger"
)

// RenderRequest maps to the internal templates service request payload.
type RenderRequest = internaltemplates.RenderRequest

// RenderResult wraps the rendered content returned by the internal service.
type RenderResult = internaltemplates.RenderResult

// Definition is a registered template variant.
type Definition = internaltemplates.Definition

// SchemaError is returned when render data misses required placeholders.
type SchemaError = internaltemplates.SchemaError

// ErrTemplateNotFound is returned when no variant matches the locale chain.
var ErrTemplateNotFound = internaltemplates.ErrTemplateNotFound

// Renderer is the narrow view block renderers depend on.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (RenderResult, error)
}

// Service registers block templates by reference and renders them.
type Service struct {
	mu            sync.Mutex
	logger        logger.Logger
	engine        *internaltemplates.Service
	defaultLocale string
}

var _ Renderer = (*Service)(nil)

// Dependencies wires translator + locale dependencies.
type Dependencies struct {
	Logger        logger.Logger
	Translator    i18n.Translator
	Fallbacks     i18n.FallbackResolver
	DefaultLocale string
	Helpers       map[string]any
}

// TemplateInput captures the editable fields of a template variant.
type TemplateInput struct {
	Ref    string
	Locale string
	Body   string
	Schema domain.TemplateSchema
}

var (
	errTranslatorRequired = errors.New("templates: translator is required")
	errRefRequired        = errors.New("templates: ref is required")
	errBodyRequired       = errors.New("templates: body is required")
)

// New instantiates the templates facade using the provided dependencies.
func New(deps Dependencies) (*Service, error) {
	if deps.Translator == nil {
		return nil, errTranslatorRequired
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}

	defaultLocale := strings.TrimSpace(deps.DefaultLocale)
	if defaultLocale == "" {
		if provider, ok := deps.Translator.(interface{ DefaultLocale() string }); ok {
			defaultLocale = provider.DefaultLocale()
		}
	}
	if defaultLocale == "" {
		defaultLocale = "en"
	}

	engine, err := internaltemplates.NewService(
		deps.Translator,
		internaltemplates.WithDefaultLocale(defaultLocale),
		internaltemplates.WithFallbackResolver(deps.Fallbacks),
		internaltemplates.WithHelperFuncs(deps.Helpers),
	)
	if err != nil {
		return nil, err
	}

	return &Service{
		logger:        deps.Logger,
		engine:        engine,
		defaultLocale: defaultLocale,
	}, nil
}

// RegisterHelpers exposes helper registration to callers.
func (s *Service) RegisterHelpers(funcs map[string]any) {
	if s == nil {
		return
	}
	s.engine.RegisterHelpers(funcs)
}

// Register stores a template variant. Registering an existing ref/locale pair
// replaces it and bumps the revision.
func (s *Service) Register(ctx context.Context, input TemplateInput) (Definition, error) {
	input = normalizeInput(input, s.defaultLocale)
	if err := validateInput(input); err != nil {
		return Definition{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	def := Definition{
		Ref:      input.Ref,
		Locale:   input.Locale,
		Body:     input.Body,
		Schema:   input.Schema,
		Revision: 1,
	}
	if current, ok := s.engine.Lookup(input.Ref, input.Locale); ok {
		def.Revision = current.Revision + 1
		if def.Schema.IsZero() {
			def.Schema = current.Schema
		}
	}
	s.engine.RegisterTemplates(ctx, def)
	s.logger.Debug("template registered",
		logger.F("template", def.Ref),
		logger.F("locale", def.Locale),
		logger.F("revision", def.Revision),
	)
	stored, _ := s.engine.Lookup(def.Ref, def.Locale)
	return stored, nil
}

// Get returns the variant registered for ref/locale.
func (s *Service) Get(ref, locale string) (Definition, bool) {
	if s == nil {
		return Definition{}, false
	}
	return s.engine.Lookup(strings.TrimSpace(ref), strings.TrimSpace(locale))
}

// Templates lists registered references.
func (s *Service) Templates() []string {
	if s == nil {
		return nil
	}
	return s.engine.Templates()
}

// Helpers lists helper functions available to templates.
func (s *Service) Helpers() []string {
	if s == nil {
		return nil
	}
	return s.engine.Helpers()
}

// Render executes the template pipeline for req.
func (s *Service) Render(ctx context.Context, req RenderRequest) (RenderResult, error) {
	result, err := s.engine.Render(ctx, req)
	if err != nil {
		return RenderResult{}, err
	}
	if result.UsedFallback {
		s.logger.Debug("template locale fallback",
			logger.F("template", req.Template),
			logger.F("requested", req.Locale),
			logger.F("resolved", result.Locale),
		)
	}
	return result, nil
}

func normalizeInput(input TemplateInput, defaultLocale string) TemplateInput {
	input.Ref = strings.TrimSpace(input.Ref)
	input.Locale = strings.TrimSpace(input.Locale)
	input.Body = strings.TrimSpace(input.Body)
	if input.Locale == "" {
		input.Locale = defaultLocale
	}
	return input
}

func validateInput(input TemplateInput) error {
	if input.Ref == "" {
		return errRefRequired
	}
	if input.Body == "" {
		return errBodyRequired
	}
	return nil
}
