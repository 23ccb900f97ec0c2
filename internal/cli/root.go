// Package cli is the editorial-cache command tree. Every command opens the
// application through app.New, so it reads and writes exclusively through the
// store and cache interfaces.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"editorial-cache/internal/app"
	"editorial-cache/internal/common/logging"
	"editorial-cache/internal/config"
)

type rootOptions struct {
	cacheDir string
	isolated bool
	logLevel string

	config    *config.Config
	logCloser io.Closer
}

// NewRootCommand builds a fresh command tree. Tests build one per case.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "editorial-cache",
		Short:         "editorial-cache inspects and maintains the journal extraction cache.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			opts.teardown()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "Cache root directory (overrides CACHE_DIR)")
	flags.BoolVar(&opts.isolated, "isolated", false, "Use a throwaway storage root that is removed on exit")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")

	cmd.AddCommand(
		newStatsCommand(opts),
		newRefereeCommand(opts),
		newManuscriptCommand(opts),
		newClearCommand(opts),
		newExportCommand(opts),
		newPopulateStatsCommand(opts),
		newSweepCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

// ExecuteContext runs the command tree and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *rootOptions) setup() error {
	cfg := config.Load()
	if o.cacheDir != "" {
		cfg.CacheDir = o.cacheDir
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	closer, err := logging.InitGlobalLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}

	o.config = cfg
	o.logCloser = closer
	return nil
}

func (o *rootOptions) teardown() {
	logging.MustSync()
	if o.logCloser != nil {
		o.logCloser.Close()
		o.logCloser = nil
	}
}

// open builds the application. Callers must defer Cleanup on the result.
func (o *rootOptions) open() (*app.App, error) {
	return app.New(o.config, app.Options{
		StorageRoot: o.cacheDir,
		Isolated:    o.isolated,
	})
}
