package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"colorwall/config"
	"colorwall/fetch"
	"colorwall/scraper"
	"colorwall/search"
	"colorwall/wallpaper"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, os.Stdout, os.Args[1:])
	cancel()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// execute runs the command line and releases whatever setup opened, even
// when the command fails.
func execute(ctx context.Context, out io.Writer, args []string) error {
	root, a := newRootCmd(out)
	defer a.close()

	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// app holds everything the subcommands share. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	out      io.Writer
	traceOut io.Writer
	debug    bool
	trace    bool
	cfg      *config.Config
	logger   *zap.Logger
	tracer   *sdktrace.TracerProvider
	cache    *fetch.PageCache
	engine   search.Engine
}

func newRootCmd(out io.Writer) (*cobra.Command, *app) {
	a := &app{out: out, traceOut: os.Stderr}

	root := &cobra.Command{
		Use:               "colorwall",
		Short:             "Search anime wallpapers across several sites at once",
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup() },
	}
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable development logging")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "write OpenTelemetry spans to stderr")

	root.AddCommand(a.searchCommand())
	root.AddCommand(a.previewsCommand())
	root.AddCommand(a.cacheCommand())
	return root, a
}

func (a *app) setup() error {
	// =========
	// Logging
	// =========
	var err error
	if a.debug {
		a.logger, err = zap.NewDevelopment()
	} else {
		a.logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	// =========
	// Config
	// =========
	a.cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// =========
	// Tracing
	// =========
	var opts []fetch.Option
	var svcOpts []search.Option
	if a.trace {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(a.traceOut), stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		a.tracer = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
		otel.SetTracerProvider(a.tracer)
		opts = append(opts, fetch.WithTracerProvider(a.tracer))
		svcOpts = append(svcOpts, search.WithTracerProvider(a.tracer))
	}

	// =========
	// Page cache
	// =========
	if a.cfg.CachePath != "" {
		a.cache, err = fetch.OpenPageCache(a.cfg.CachePath, a.cfg.CacheTTL)
		if err != nil {
			return fmt.Errorf("open page cache: %w", err)
		}
		opts = append(opts, fetch.WithCache(a.cache))
		a.logger.Info("page cache enabled", zap.String("path", a.cfg.CachePath))
	}

	// =========
	// HTTP
	// =========
	client, err := fetch.NewClient(a.cfg.UserAgent, a.cfg.ProxyURL, a.logger, opts...)
	if err != nil {
		return fmt.Errorf("create fetch client: %w", err)
	}

	// =========
	// Search service
	// =========
	adapters := scraper.NewAdapters(a.cfg, client, a.logger)
	a.engine = search.NewService(adapters, a.cfg, a.logger, svcOpts...)
	return nil
}

// close is safe to call more than once and after a partial setup.
func (a *app) close() {
	logger := a.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Warn("shutdown tracer provider", zap.Error(err))
		}
		a.tracer = nil
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Warn("close page cache", zap.Error(err))
		}
		a.cache = nil
	}
	_ = logger.Sync()
}

func (a *app) searchCommand() *cobra.Command {
	req := wallpaper.DefaultRequest()
	var (
		sources   []string
		filter    string
		noShuffle bool
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search every selected source and print the merged result as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Query = args[0]
			}
			req.Sources = nil
			for _, s := range sources {
				req.Sources = append(req.Sources, wallpaper.Source(s))
			}
			req.ContentFilter = wallpaper.ContentFilter(filter)
			if !req.ContentFilter.Valid() {
				return fmt.Errorf("invalid --filter %q: want sfw, sketchy or both", filter)
			}
			req.Randomize = !noShuffle

			return a.print(a.engine.Search(cmd.Context(), req))
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&sources, "source", "s", nil, "sources to query (default all)")
	f.IntVarP(&req.PerSourceLimit, "limit", "n", wallpaper.DefaultPerSourceLimit, "maximum items per source")
	f.IntVarP(&req.Page, "page", "p", 1, "result page")
	f.StringVar(&filter, "filter", string(wallpaper.FilterSFW), "content filter: sfw, sketchy or both")
	f.BoolVar(&req.AIArtAllowed, "ai-art", false, "allow AI-generated art")
	f.StringVar(&req.Resolution, "resolution", "", "exact resolution filter, e.g. 1920x1080")
	f.StringSliceVar(&req.ExcludeTags, "exclude-tag", nil, "tags to exclude (advisory)")
	f.BoolVar(&noShuffle, "no-shuffle", false, "keep source order instead of shuffling")
	return cmd
}

func (a *app) previewsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "previews [query]",
		Short: "List moewalls live wallpapers with video previews",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			if len(args) == 1 {
				query = args[0]
			}
			return a.print(a.engine.FetchVideoPreviews(cmd.Context(), query))
		},
	}
}

func (a *app) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the page cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Remove expired pages from the cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cache == nil {
				fmt.Fprintln(a.out, "page cache is disabled")
				return nil
			}
			n, err := a.cache.Purge()
			if err != nil {
				return fmt.Errorf("purge page cache: %w", err)
			}
			fmt.Fprintf(a.out, "removed %d expired pages\n", n)
			return nil
		},
	})
	return cmd
}

func (a *app) print(resp wallpaper.Response) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
