package blocks

import (
	"context"
	"fmt"
	"html"

	"github.com/goliatone/go-blocks/pkg/block"
	"github.com/goliatone/go-blocks/pkg/config"
	"github.com/goliatone/go-blocks/pkg/interfaces/logger"
)

// Payload renders instance and returns the content to embed in a page.
// Failures are logged and replaced according to errors.strategy.
func (m *Module) Payload(ctx context.Context, instance block.Instance, overrides block.Settings) string {
	result, err := m.Render(ctx, instance, overrides)
	if err != nil {
		return m.failurePayload(result, err)
	}
	return result.Content
}

// PagePayloads renders reqs and returns one payload per request, in order.
func (m *Module) PagePayloads(ctx context.Context, reqs []Request) []string {
	outcomes := m.RenderPage(ctx, reqs)
	out := make([]string, len(outcomes))
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			out[i] = m.failurePayload(outcome.Result, outcome.Err)
			continue
		}
		out[i] = outcome.Result.Content
	}
	return out
}

func (m *Module) failurePayload(result block.Result, err error) string {
	if m == nil || m.container == nil {
		return ""
	}
	m.logger.Error("block payload failed",
		logger.F("type", result.Type),
		logger.F("instance", result.InstanceID),
		logger.F("state", result.State),
		logger.F("error", err),
	)
	if m.container.Config.Errors.Strategy != config.ErrorStrategyInline {
		return ""
	}
	return inlineNotice(result, err)
}

func inlineNotice(result block.Result, err error) string {
	return fmt.Sprintf(`<div class="block-error" data-block-type="%s">%s</div>`,
		html.EscapeString(result.Type.String()),
		html.EscapeString(err.Error()),
	)
}
