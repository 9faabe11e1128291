package gocms

import (
	"fmt"

	"github.com/goliatone/go-blocks/pkg/domain"
)

// WidgetDocument captures the structure go-cms emits when exporting widget instances.
type WidgetDocument struct {
	Configuration map[string]any      `json:"configuration"`
	Translations  []WidgetTranslation `json:"translations"`
	Metadata      map[string]any      `json:"metadata"`
}

// WidgetTranslation stores the locale + payload data for a widget.
type WidgetTranslation struct {
	Locale  string         `json:"locale"`
	Content map[string]any `json:"content"`
}

// InstancesFromWidgetDocument converts widget translations into instances.
func InstancesFromWidgetDocument(spec InstanceSpec, document WidgetDocument) ([]*domain.BlockInstance, error) {
	payloads := make([]translationPayload, 0, len(document.Translations))
	for _, translation := range document.Translations {
		payloads = append(payloads, translationPayload{
			locale:        translation.Locale,
			content:       translation.Content,
			configuration: document.Configuration,
			metadata:      document.Metadata,
		})
	}
	instances, err := buildInstances(spec, payloads)
	if err != nil {
		return nil, fmt.Errorf("gocms: widget document: %w", err)
	}
	return instances, nil
}
