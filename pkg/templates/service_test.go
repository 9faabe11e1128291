package templates

import (
	"context"
	"errors"
	"strings"
	"testing"

	i18n "github.com/goliatone/go-i18n"
	"github.com/goliatone/go-blocks/pkg/domain"
	"github.com/goliatone/go-blocks/pkg/interfaces/logger"
)

func TestServiceRenderUsesFallbackChain(t *testing.T) {
	ctx := context.Background()
	resolver := i18n.NewStaticFallbackResolver()
	resolver.Set("es-mx", "es", "en")
	svc := newTestService(t, resolver)

	mustRegister(t, svc, TemplateInput{
		Ref:    "greeting",
		Locale: "en",
		Body:   `{{ t(locale, "welcome.body", Name) }}`,
		Schema: domain.TemplateSchema{Required: []string{"Name"}},
	})
	mustRegister(t, svc, TemplateInput{
		Ref:    "greeting",
		Locale: "es",
		Body:   `{{ t(locale, "welcome.body", Name) }}`,
	})

	result, err := svc.Render(ctx, RenderRequest{
		Template: "greeting",
		Locale:   "es-mx",
		Data:     map[string]any{"Name": "Rosa"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.Locale != "es" {
		t.Fatalf("expected locale es, got %s", result.Locale)
	}
	if !result.UsedFallback {
		t.Fatalf("expected fallback to be used")
	}
	if !strings.Contains(result.Content, "Hola Rosa") {
		t.Fatalf("expected spanish content, got %q", result.Content)
	}
}

func TestServiceSchemaValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, i18n.NewStaticFallbackResolver())

	mustRegister(t, svc, TemplateInput{
		Ref:    "account.alert",
		Locale: "en",
		Body:   "Hello {{ user.name }}",
		Schema: domain.TemplateSchema{Required: []string{"user.name"}},
	})

	_, err := svc.Render(ctx, RenderRequest{
		Template: "account.alert",
		Locale:   "en",
		Data:     map[string]any{},
	})
	var schemaErr SchemaError
	if err == nil || !errors.As(err, &schemaErr) {
		t.Fatalf("expected schema error, got %v", err)
	}

	result, err := svc.Render(ctx, RenderRequest{
		Template: "account.alert",
		Locale:   "en",
		Data:     map[string]any{"user": map[string]any{"name": "Pat"}},
	})
	if err != nil {
		t.Fatalf("unexpected render error: %v", err)
	}
	if result.Content != "Hello Pat" {
		t.Fatalf("unexpected content %q", result.Content)
	}
}

func TestServiceSettingHelper(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, i18n.NewStaticFallbackResolver())

	mustRegister(t, svc, TemplateInput{
		Ref:  "heading",
		Body: `{{ setting(settings, "title", "Untitled") }}`,
	})

	result, err := svc.Render(ctx, RenderRequest{
		Template: "heading",
		Data:     map[string]any{"settings": map[string]any{"title": "My News"}},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.Content != "My News" {
		t.Fatalf("expected title, got %q", result.Content)
	}

	result, err = svc.Render(ctx, RenderRequest{
		Template: "heading",
		Data:     map[string]any{"settings": map[string]any{"title": false}},
	})
	if err != nil {
		t.Fatalf("render fallback: %v", err)
	}
	if result.Content != "Untitled" {
		t.Fatalf("expected fallback title, got %q", result.Content)
	}
}

func TestServiceRegisterBumpsRevision(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, i18n.NewStaticFallbackResolver())

	first := mustRegister(t, svc, TemplateInput{
		Ref:    "banner",
		Locale: "en",
		Body:   "Initial {{ Message }}",
		Schema: domain.TemplateSchema{Required: []string{"Message"}},
	})
	if first.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", first.Revision)
	}

	second := mustRegister(t, svc, TemplateInput{
		Ref:    "banner",
		Locale: "en",
		Body:   "Updated {{ Message }}",
	})
	if second.Revision != 2 {
		t.Fatalf("expected revision 2, got %d", second.Revision)
	}
	if len(second.Schema.Required) != 1 {
		t.Fatalf("expected schema carried over, got %+v", second.Schema)
	}

	result, err := svc.Render(ctx, RenderRequest{Template: "banner", Locale: "en", Data: map[string]any{"Message": "hi"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if result.Content != "Updated hi" || result.Revision != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestServiceRegisterValidation(t *testing.T) {
	svc := newTestService(t, nil)
	if _, err := svc.Register(context.Background(), TemplateInput{Body: "x"}); err == nil {
		t.Fatalf("expected ref validation error")
	}
	if _, err := svc.Register(context.Background(), TemplateInput{Ref: "x"}); err == nil {
		t.Fatalf("expected body validation error")
	}
}

func TestServiceRenderUnknownTemplate(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.Render(context.Background(), RenderRequest{Template: "missing", Locale: "en"})
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// Helpers

func newTestService(t *testing.T, resolver i18n.FallbackResolver) *Service {
	t.Helper()
	svc, err := New(Dependencies{
		Logger:        &logger.Nop{},
		Translator:    newTestTranslator(t),
		Fallbacks:     resolver,
		DefaultLocale: "en",
	})
	if err != nil {
		t.Fatalf("New service: %v", err)
	}
	return svc
}

func mustRegister(t *testing.T, svc *Service, input TemplateInput) Definition {
	t.Helper()
	def, err := svc.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("register %s: %v", input.Ref, err)
	}
	return def
}

func newTestTranslator(t *testing.T) i18n.Translator {
	t.Helper()
	translations := i18n.Translations{
		"en": newCatalog("en", map[string]string{
			"welcome.body": "Hello %s",
		}),
		"es": newCatalog("es", map[string]string{
			"welcome.body": "Hola %s",
		}),
	}
	store := i18n.NewStaticStore(translations)
	translator, err := i18n.NewSimpleTranslator(store, i18n.WithTranslatorDefaultLocale("en"))
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	return translator
}

func newCatalog(locale string, entries map[string]string) *i18n.TranslationCatalog {
	catalog := &i18n.TranslationCatalog{
		Locale:   i18n.Locale{Code: locale},
		Messages: make(map[string]i18n.Message),
	}
	for key, template := range entries {
		msg := i18n.Message{}
		msg.SetContent(template)
		catalog.Messages[key] = msg
	}
	return catalog
}
