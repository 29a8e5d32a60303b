package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	eventstore "github.com/tahoelimited/eventstore-client-go"
	"github.com/tahoelimited/eventstore-client-go/feedcache"
)

const envURL = "EVENTSTORE_URL"

type globalFlags struct {
	url      string
	verbose  bool
	output   string
	cacheDir string
}

func newRootCommand(version, commit string) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "esfeed",
		Short: "Read and write event store streams",
		Long: `esfeed appends events to event store streams, reads stream feed pages,
walks pages by link relation and deletes streams.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: false,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.url == "" {
				return fmt.Errorf("no store URL: pass --url or set %s", envURL)
			}
			switch flags.output {
			case outputJSON, outputYAML:
				return nil
			default:
				return fmt.Errorf("unknown output format %q", flags.output)
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.url, "url", os.Getenv(envURL), "event store base URL")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log requests to stderr")
	pf.StringVarP(&flags.output, "output", "o", outputJSON, "output format: json or yaml")
	pf.StringVar(&flags.cacheDir, "cache-dir", "", "directory for the on-disk feed page cache")

	rootCmd.AddCommand(
		newWriteCommand(flags),
		newReadCommand(flags),
		newWalkCommand(flags),
		newDeleteCommand(flags),
		newEventCommand(flags),
	)

	return rootCmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// connect builds a client from the global flags. The returned cleanup closes
// the cache and flushes the logger.
func connect(ctx context.Context, flags *globalFlags) (*eventstore.Client, func(), error) {
	logger, err := newLogger(flags.verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	opts := []eventstore.ClientOption{eventstore.WithLogger(logger)}

	var cache *feedcache.Bolt
	if flags.cacheDir != "" {
		cache, err = feedcache.OpenBolt(flags.cacheDir)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, eventstore.WithFeedCache(cache))
	}

	cleanup := func() {
		if cache != nil {
			if err := cache.Close(); err != nil {
				logger.Warn("failed to close feed cache", zap.Error(err))
			}
		}
		_ = logger.Sync()
	}

	client, err := eventstore.NewClient(ctx, flags.url, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return client, cleanup, nil
}
