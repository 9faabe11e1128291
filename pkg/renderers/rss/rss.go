// Package rss renders a remote RSS/Atom feed as a block.
package rss

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-blocks/pkg/block"
	"github.com/goliatone/go-blocks/pkg/interfaces/logger"
	"github.com/goliatone/go-blocks/pkg/templates"
	"github.com/jaytaylor/html2text"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// Type is the registry identifier of the feed block.
const Type block.Type = "rss"

const defaultTimeout = 10 * time.Second

var errTemplatesRequired = errors.New("rss: templates renderer is required")

// Defaults are the descriptor defaults. A url of false means "not configured".
func Defaults() block.Settings {
	return block.Settings{
		"url":            false,
		"title":          "Feed items",
		"limit":          5,
		"summary_length": 200,
		"timeout":        "10s",
		"template":       TemplateRef,
		"empty_text":     "No items available.",
	}
}

// Dependencies wires the renderer collaborators.
type Dependencies struct {
	Templates templates.Renderer
	Fetcher   Fetcher
	Logger    logger.Logger
}

// Renderer fetches a feed and renders its newest items.
type Renderer struct {
	templates templates.Renderer
	fetcher   Fetcher
	logger    logger.Logger
}

var (
	_ block.Renderer   = (*Renderer)(nil)
	_ block.CacheKeyer = (*Renderer)(nil)
)

func New(deps Dependencies) (*Renderer, error) {
	if deps.Templates == nil {
		return nil, errTemplatesRequired
	}
	if deps.Fetcher == nil {
		deps.Fetcher = NewHTTPFetcher(0)
	}
	if deps.Logger == nil {
		deps.Logger = &logger.Nop{}
	}
	return &Renderer{
		templates: deps.Templates,
		fetcher:   deps.Fetcher,
		logger:    deps.Logger,
	}, nil
}

// Descriptor binds the renderer to its defaults.
func Descriptor(r *Renderer) block.Descriptor {
	return block.Descriptor{
		Name:        "RSS feed",
		Description: "Lists the newest items of an RSS or Atom feed.",
		Defaults:    Defaults(),
		Renderer:    r,
	}
}

// Execute fetches the configured feed. An unconfigured url renders nothing.
func (r *Renderer) Execute(ctx context.Context, instance block.Instance, values block.Settings) (string, error) {
	feedURL := values.String("url", "")
	if strings.TrimSpace(feedURL) == "" {
		r.logger.Debug("rss block without url", logger.F("instance", instance.BlockID()))
		return "", nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, values.Duration("timeout", defaultTimeout))
	defer cancel()

	feed, err := r.fetcher.Fetch(fetchCtx, feedURL)
	if err != nil {
		return "", fmt.Errorf("rss: fetch %s: %w", feedURL, err)
	}

	data := map[string]any{
		"settings":   map[string]any(values),
		"title":      values.String("title", feed.Title),
		"empty_text": values.String("empty_text", ""),
		"feed": map[string]any{
			"title": feed.Title,
			"link":  safeLink(feed.Link),
		},
		"items": items(feed, values.Int("limit", 5), values.Int("summary_length", 200)),
	}

	result, err := r.templates.Render(ctx, templates.RenderRequest{
		Template: values.String("template", TemplateRef),
		Locale:   values.String("locale", ""),
		Data:     data,
	})
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// CacheKeys limits cache identity to the values that change the output.
func (r *Renderer) CacheKeys(_ block.Instance, values block.Settings) map[string]any {
	keys := make(map[string]any, 7)
	for _, key := range []string{"url", "title", "limit", "summary_length", "template", "locale", "empty_text"} {
		keys[key] = values[key]
	}
	return keys
}

func items(feed *gofeed.Feed, limit, summaryLength int) []map[string]any {
	if feed == nil || len(feed.Items) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(feed.Items) {
		limit = len(feed.Items)
	}
	out := make([]map[string]any, 0, limit)
	for _, item := range feed.Items[:limit] {
		if item == nil {
			continue
		}
		entry := map[string]any{
			"title":   strings.TrimSpace(item.Title),
			"link":    safeLink(item.Link),
			"summary": summarize(firstNonEmpty(item.Description, item.Content), summaryLength),
		}
		if item.PublishedParsed != nil {
			entry["published"] = item.PublishedParsed.UTC().Format("2006-01-02")
		}
		out = append(out, entry)
	}
	return out
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

// summarize strips feed markup down to plain text and truncates it on a rune
// boundary.
func summarize(raw string, max int) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	cleaned := sanitizer().Sanitize(raw)
	text, err := html2text.FromString(cleaned, html2text.Options{OmitLinks: true})
	if err != nil {
		text = cleaned
	}
	text = strings.Join(strings.Fields(text), " ")
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:max])) + "…"
}

// safeLink keeps absolute http(s) links only.
func safeLink(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
