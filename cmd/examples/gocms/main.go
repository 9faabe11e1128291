package main

import (
	"context"
	"fmt"
	"log"

	"github.com/goliatone/go-blocks/adapters/gocms"
	"github.com/goliatone/go-blocks/pkg/blocks"
	"github.com/goliatone/go-blocks/pkg/interfaces/logger"
)

func main() {
	ctx := context.Background()

	snapshot := gocms.BlockVersionSnapshot{
		Configuration: map[string]any{"format": "html"},
		Metadata:      map[string]any{"definition": "demo.about"},
		Translations: []gocms.BlockTranslationSnapshot{
			{
				Locale: "locale-en",
				Content: map[string]any{
					"title": "About us",
					"body":  "<p>We build <strong>blocks</strong>.</p>",
				},
			},
			{
				Locale:  "es",
				Content: map[string]any{"title": "Sobre nosotros"},
				AttributeOverrides: map[string]any{
					"body": "<p>Construimos bloques.</p><script>alert(1)</script>",
				},
			},
		},
	}

	spec := gocms.InstanceSpec{
		Name:        "about",
		Type:        "text",
		Enabled:     true,
		Description: "Sample import via go-cms snapshot",
		ResolveLocale: func(raw string) (string, error) {
			if raw == "locale-en" {
				return "en", nil
			}
			return raw, nil
		},
	}

	instances, err := gocms.InstancesFromBlockSnapshot(spec, snapshot)
	if err != nil {
		log.Fatalf("translate snapshot: %v", err)
	}

	module, err := blocks.NewModule(blocks.ModuleOptions{Logger: logger.Default()})
	if err != nil {
		log.Fatalf("module: %v", err)
	}
	repo := module.Container().Storage.Instances
	for _, instance := range instances {
		if err := repo.Create(ctx, instance); err != nil {
			log.Fatalf("store %s: %v", instance.Name, err)
		}
	}

	for _, instance := range instances {
		result, err := module.RenderByName(ctx, instance.Name, nil)
		if err != nil {
			log.Fatalf("render %s: %v", instance.Name, err)
		}
		fmt.Printf("%s [%s]\n%s\n\n", instance.Name, instance.Locale, result.Content)
	}
}
