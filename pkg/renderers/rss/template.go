package rss

import "github.com/goliatone/go-blocks/pkg/templates"

// TemplateRef is the default template used to render feeds.
const TemplateRef = "blocks/rss"

const defaultTemplate = `<section class="block block-rss">
{% if title %}<h2>{{ title }}</h2>{% endif %}
{% if items %}<ul>
{% for item in items %}<li>{% if item.link %}<a href="{{ item.link }}">{{ item.title }}</a>{% else %}{{ item.title }}{% endif %}{% if item.published %} <time>{{ item.published }}</time>{% endif %}{% if item.summary %}<p>{{ item.summary }}</p>{% endif %}</li>
{% endfor %}</ul>{% else %}<p class="empty">{{ empty_text }}</p>{% endif %}
</section>`

// Templates returns the template variants the renderer needs registered.
func Templates() []templates.TemplateInput {
	return []templates.TemplateInput{
		{
			Ref:    TemplateRef,
			Locale: "en",
			Body:   defaultTemplate,
		},
	}
}
