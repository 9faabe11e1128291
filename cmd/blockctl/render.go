package main

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-blocks/pkg/block"
	"github.com/goliatone/go-blocks/pkg/settings"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type renderOptions struct {
	id        string
	options   []string
	overrides []string
	explain   bool
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:     "render TYPE",
		Aliases: []string{"r"},
		Short:   "Render a single block of the given type",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			module, err := root.module(cmd)
			if err != nil {
				return err
			}
			options, err := parseAssignments(opts.options)
			if err != nil {
				return err
			}
			overrides, err := parseAssignments(opts.overrides)
			if err != nil {
				return err
			}
			instance := block.Static{
				ID:      opts.id,
				Type:    block.Type(args[0]),
				Enabled: true,
				Options: options,
			}

			if opts.explain {
				explanation, err := module.Explain(instance, overrides)
				if err != nil {
					return err
				}
				masked := settings.Mask(explanation.Settings)
				for _, key := range explanation.Keys() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%v (%s)\n", key, masked[key], explanation.Source(key))
				}
				return nil
			}

			result, err := module.Render(cmd.Context(), instance, overrides)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Content)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.id, "id", "cli", "instance identifier")
	cmd.Flags().StringArrayVarP(&opts.options, "set", "s", nil, "instance option as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.overrides, "override", "o", nil, "caller override as key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "print resolved settings and the layer that set each one")
	return cmd
}

// parseAssignments decodes key=value pairs. Values are read as YAML scalars
// so numbers and booleans keep their type.
func parseAssignments(pairs []string) (block.Settings, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(block.Settings, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected key=value", pair)
		}
		out[key] = scalar(raw)
	}
	return out, nil
}

func scalar(raw string) any {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &node); err != nil || len(node.Content) == 0 {
		return raw
	}
	value := node.Content[0]
	if value.Kind != yaml.ScalarNode {
		return raw
	}
	var decoded any
	if err := value.Decode(&decoded); err != nil || decoded == nil {
		return raw
	}
	return decoded
}
