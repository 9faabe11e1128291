package gocms

import (
	"fmt"

	"github.com/goliatone/go-blocks/pkg/domain"
)

// BlockVersionSnapshot mirrors the JSON snapshot emitted by go-cms block versions.
type BlockVersionSnapshot struct {
	Configuration map[string]any             `json:"configuration"`
	Translations  []BlockTranslationSnapshot `json:"translations"`
	Metadata      map[string]any             `json:"metadata"`
}

// BlockTranslationSnapshot mirrors the translation payload captured inside a block snapshot.
type BlockTranslationSnapshot struct {
	Locale             string         `json:"locale"`
	Content            map[string]any `json:"content"`
	AttributeOverrides map[string]any `json:"attribute_overrides"`
}

// InstancesFromBlockSnapshot converts the provided go-cms block snapshot into
// one instance per translation.
func InstancesFromBlockSnapshot(spec InstanceSpec, snapshot BlockVersionSnapshot) ([]*domain.BlockInstance, error) {
	payloads := make([]translationPayload, 0, len(snapshot.Translations))
	for _, tr := range snapshot.Translations {
		payloads = append(payloads, translationPayload{
			locale:        tr.Locale,
			content:       tr.Content,
			overrides:     tr.AttributeOverrides,
			configuration: snapshot.Configuration,
			metadata:      snapshot.Metadata,
		})
	}
	instances, err := buildInstances(spec, payloads)
	if err != nil {
		return nil, fmt.Errorf("gocms: block snapshot: %w", err)
	}
	return instances, nil
}
