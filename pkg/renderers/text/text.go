// Package text renders static rich text or plain text blocks.
package text

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/goliatone/go-blocks/pkg/block"
	"github.com/goliatone/go-blocks/pkg/templates"
	"github.com/microcosm-cc/bluemonday"
)

// Type is the registry identifier of the text block.
const Type block.Type = "text"

// TemplateRef is the default template used to render text blocks.
const TemplateRef = "blocks/text"

const (
	FormatHTML  = "html"
	FormatPlain = "plain"
)

const defaultTemplate = `{% if title %}<h2>{{ title }}</h2>{% endif %}<div class="block block-text">{% if markup %}{{ body|safe }}{% else %}{{ body }}{% endif %}</div>`

var errTemplatesRequired = errors.New("text: templates renderer is required")

func Defaults() block.Settings {
	return block.Settings{
		"title":    "",
		"body":     "",
		"format":   FormatHTML,
		"template": TemplateRef,
	}
}

// Templates returns the template variants the renderer needs registered.
func Templates() []templates.TemplateInput {
	return []templates.TemplateInput{
		{Ref: TemplateRef, Locale: "en", Body: defaultTemplate},
	}
}

// Renderer outputs the body setting. HTML bodies are sanitized, anything
// else is escaped by the template.
type Renderer struct {
	templates templates.Renderer
}

var _ block.Renderer = (*Renderer)(nil)

func New(tpl templates.Renderer) (*Renderer, error) {
	if tpl == nil {
		return nil, errTemplatesRequired
	}
	return &Renderer{templates: tpl}, nil
}

// Descriptor binds the renderer to its defaults.
func Descriptor(r *Renderer) block.Descriptor {
	return block.Descriptor{
		Name:        "Text",
		Description: "Static rich text.",
		Defaults:    Defaults(),
		Renderer:    r,
	}
}

func (r *Renderer) Execute(ctx context.Context, _ block.Instance, values block.Settings) (string, error) {
	body := values.String("body", "")
	markup := strings.EqualFold(values.String("format", FormatHTML), FormatHTML)
	if markup {
		body = sanitizer().Sanitize(body)
	}
	result, err := r.templates.Render(ctx, templates.RenderRequest{
		Template: values.String("template", TemplateRef),
		Locale:   values.String("locale", ""),
		Data: map[string]any{
			"settings": map[string]any(values),
			"title":    values.String("title", ""),
			"body":     body,
			"markup":   markup,
		},
	})
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
	})
	return policy
}
