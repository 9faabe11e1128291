package main

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-blocks/pkg/blocks"
	"github.com/goliatone/go-blocks/pkg/config"
	"github.com/goliatone/go-blocks/pkg/interfaces/logger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "blockctl",
		Short: "Inspect and render content blocks",
		Long: `blockctl lists the registered block types and renders single blocks
through the settings cascade (defaults, deployment config, overrides, options).

Examples:
  blockctl types
  blockctl render rss --set url=https://go.dev/blog/feed.atom --override title="Go Blog"
  blockctl render text --config blocks.yaml --set body="<p>Hello</p>"`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringVarP(&opts.logLevel, "log-level", "l", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(newTypesCmd(opts), newRenderCmd(opts))
	return cmd
}

func (o *rootOptions) module(cmd *cobra.Command) (*blocks.Module, error) {
	cfg := config.Defaults()
	if o.configFile != "" {
		loaded, err := config.LoadFile(o.configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	level, err := parseLevel(o.logLevel)
	if err != nil {
		return nil, err
	}
	return blocks.NewModule(blocks.ModuleOptions{
		Config: cfg,
		Logger: logger.New(logger.WithWriter(cmd.ErrOrStderr()), logger.WithLevel(level)),
	})
}

func parseLevel(raw string) (logger.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return logger.LevelDebug, nil
	case "info":
		return logger.LevelInfo, nil
	case "warn", "warning", "":
		return logger.LevelWarn, nil
	case "error":
		return logger.LevelError, nil
	default:
		return logger.LevelWarn, fmt.Errorf("unknown log level %q", raw)
	}
}
