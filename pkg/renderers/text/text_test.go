package text

import (
	"context"
	"strings"
	"testing"

	i18n "github.com/goliatone/go-i18n"
	"github.com/goliatone/go-blocks/pkg/block"
	"github.com/goliatone/go-blocks/pkg/templates"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	store := i18n.NewStaticStore(i18n.Translations{
		"en": &i18n.TranslationCatalog{
			Locale:   i18n.Locale{Code: "en"},
			Messages: map[string]i18n.Message{},
		},
	})
	translator, err := i18n.NewSimpleTranslator(store, i18n.WithTranslatorDefaultLocale("en"))
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	svc, err := templates.New(templates.Dependencies{Translator: translator, DefaultLocale: "en"})
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	for _, input := range Templates() {
		if _, err := svc.Register(context.Background(), input); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	r, err := New(svc)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return r
}

func TestExecuteSanitizesHTML(t *testing.T) {
	r := newRenderer(t)
	values := Defaults()
	values["title"] = "About"
	values["body"] = `<p>Welcome <a href="https://example.com">home</a></p><script>alert(1)</script>`

	out, err := r.Execute(context.Background(), block.Static{Type: Type, Enabled: true}, values)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out, "<h2>About</h2>") || !strings.Contains(out, "<p>Welcome") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Contains(out, "<script>") || strings.Contains(out, "alert(1)") {
		t.Fatalf("script not stripped: %q", out)
	}
}

func TestExecuteEscapesPlainText(t *testing.T) {
	r := newRenderer(t)
	values := Defaults()
	values["format"] = FormatPlain
	values["body"] = "<b>bold</b>"

	out, err := r.Execute(context.Background(), block.Static{Type: Type, Enabled: true}, values)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.Contains(out, "<b>") || !strings.Contains(out, "&lt;b&gt;bold") {
		t.Fatalf("expected escaped body, got %q", out)
	}
	if strings.Contains(out, "<h2>") {
		t.Fatalf("empty title should not render a heading: %q", out)
	}
}

func TestNewRequiresTemplates(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error")
	}
}
