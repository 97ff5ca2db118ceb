// Command loadtest drives concurrent analysis traffic against a running
// talentscore service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/talentscore/internal/loadtest"
	"github.com/okian/talentscore/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumVideos   = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := loadtest.Config{}
	var (
		testTimeout time.Duration
		logFormat   string
	)

	cmd := &cobra.Command{
		Use:           "loadtest",
		Short:         "Submit synthetic videos concurrently and report latency and scores",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithOutput(cmd.ErrOrStderr()), logger.WithFormat(logFormat)); err != nil {
				return err
			}
			if !cfg.Verbose {
				_ = logger.SetLevelString("warn")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), testTimeout)
			defer cancel()
			_, err := loadtest.Run(ctx, cfg, cmd.OutOrStdout())
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "Base URL of the service")
	f.IntVar(&cfg.NumVideos, "videos", defaultNumVideos, "Number of videos to generate and submit")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.IntVar(&cfg.BatchSize, "batch", 0, "Also submit every video to /analyze/batch in chunks of this size")
	f.BoolVar(&cfg.WithSignals, "signals", false, "Attach synthetic pose and face landmarks")
	f.Uint64Var(&cfg.Seed, "seed", uint64(time.Now().UnixNano()), "Generator seed")
	f.StringVar(&cfg.OutputFile, "output", "", "Save generated requests to this JSON file")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log progress and every failed request")
	f.DurationVar(&testTimeout, "deadline", defaultTestTimeout, "Overall test deadline")
	f.StringVar(&logFormat, "log-format", "text", "Log format (text or json)")

	return cmd
}
