package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/talentscore/internal/adapters/media"
	service "github.com/okian/talentscore/internal/app"
	"github.com/okian/talentscore/internal/config"
	"github.com/okian/talentscore/pkg/logger"
)

type commandContext struct {
	configPath string
	jsonOut    bool
	verbose    bool

	cfg *config.Config
	svc *service.Service
}

// ensureConfig loads configuration once and points logging at stderr.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	if c.configPath != "" {
		if err := os.Setenv("TALENTSCORE_CONFIG", c.configPath); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr()), logger.WithFormat(cfg.LogFormat)); err != nil {
		return nil, err
	}
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	_ = logger.SetLevelString(level)
	c.cfg = cfg
	return cfg, nil
}

// service builds the analysis service. Batch workers are not started.
func (c *commandContext) service(cmd *cobra.Command) (*service.Service, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	cfg, err := c.ensureConfig(cmd)
	if err != nil {
		return nil, err
	}
	// The CLI decodes operator-supplied paths, so local files stay readable.
	c.svc = service.New(cfg,
		service.WithLogger(logger.Named("cli")),
		service.WithDecoder(media.NewFFmpegDecoder(cfg.FFmpegBinary, cfg.AudioWindowSeconds)),
	)
	return c.svc, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "talentscore",
		Short:         "Score performance videos and signals",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonOut, "json", false, "Print raw JSON")
	rootCmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log pipeline details to stderr")

	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newAudioCommand(ctx))
	rootCmd.AddCommand(newMovementCommand(ctx))
	rootCmd.AddCommand(newExpressionCommand(ctx))

	return rootCmd
}
