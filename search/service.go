package search

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"colorwall/config"
	"colorwall/scraper"
	"colorwall/wallpaper"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine is what a host process calls.
type Engine interface {
	Search(ctx context.Context, req wallpaper.Request) wallpaper.Response
	FetchVideoPreviews(ctx context.Context, query string) wallpaper.Response
}

// Service fans a request out to the source adapters and merges whatever
// comes back. One failing source never fails the others.
type Service struct {
	adapters     map[wallpaper.Source]scraper.Adapter
	concurrency  int
	previewLimit int
	rngMu        sync.Mutex
	rng          *rand.Rand
	tracer       trace.Tracer
	logger       *zap.Logger
}

var _ Engine = (*Service)(nil)

type Option func(*Service)

// WithRand makes shuffling deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(tracerName) }
}

const tracerName = "colorwall/search"

func NewService(adapters map[wallpaper.Source]scraper.Adapter, cfg *config.Config, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Service{
		adapters:     adapters,
		concurrency:  max(cfg.SourceConcurrency, 1),
		previewLimit: cfg.PreviewLimit,
		tracer:       otel.Tracer(tracerName),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type sourceResult struct {
	items []wallpaper.Item
	err   error
}

func (s *Service) Search(ctx context.Context, req wallpaper.Request) wallpaper.Response {
	req = req.Normalized()
	ctx, requestID := ensureRequestID(ctx)
	logger := GetContextLogger(ctx, s.logger)
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "search", trace.WithAttributes(
		attribute.String("request_id", requestID),
		attribute.String("query", req.Query),
		attribute.Int("sources", len(req.Sources)),
	))
	defer span.End()

	opts := scraper.Options{
		Query:         req.Query,
		Page:          req.Page,
		Limit:         req.PerSourceLimit,
		ContentFilter: req.ContentFilter,
		AIArtAllowed:  req.AIArtAllowed,
		Resolution:    req.Resolution,
	}
	results := s.fanOut(ctx, req.Sources, opts, logger)

	var items []wallpaper.Item
	var errs []string
	for i, res := range results {
		if res.err != nil {
			errs = append(errs, res.err.Error())
			logger.Warn("source failed",
				zap.String("source", string(req.Sources[i])),
				zap.Error(res.err))
			continue
		}
		items = append(items, res.items...)
	}

	items = wallpaper.Dedupe(items)
	if req.Randomize {
		items = s.shuffle(items)
	}

	span.SetAttributes(
		attribute.Int("items", len(items)),
		attribute.Int("errors", len(errs)))
	logger.Info("search completed",
		zap.String("query", req.Query),
		zap.Int("sources", len(req.Sources)),
		zap.Int("items", len(items)),
		zap.Int("errors", len(errs)),
		zap.Duration("elapsed", time.Since(start)))
	return wallpaper.NewResponse(items, errs)
}

// FetchVideoPreviews lists moewalls with video previews turned on. The query
// may be empty.
func (s *Service) FetchVideoPreviews(ctx context.Context, query string) wallpaper.Response {
	ctx, _ = ensureRequestID(ctx)
	logger := GetContextLogger(ctx, s.logger)

	opts := scraper.Options{
		Query:         query,
		Page:          1,
		Limit:         s.previewLimit,
		IncludeVideos: true,
	}
	res := s.fetchSource(ctx, wallpaper.SourceMoewalls, opts)
	if res.err != nil {
		logger.Warn("video previews failed", zap.Error(res.err))
		return wallpaper.NewResponse(nil, []string{res.err.Error()})
	}

	items := wallpaper.Dedupe(res.items)
	logger.Info("video previews completed",
		zap.String("query", query),
		zap.Int("items", len(items)))
	return wallpaper.NewResponse(items, nil)
}

func (s *Service) shuffle(items []wallpaper.Item) []wallpaper.Item {
	if s.rng == nil {
		return wallpaper.Shuffle(items, nil)
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return wallpaper.Shuffle(items, s.rng)
}

// fanOut runs one task per source, at most s.concurrency at a time. Each
// task writes only its own slot so results keep the request order.
func (s *Service) fanOut(ctx context.Context, sources []wallpaper.Source, opts scraper.Options, logger *zap.Logger) []sourceResult {
	results := make([]sourceResult, len(sources))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			ctx, span := s.tracer.Start(ctx, "source "+string(src))
			defer span.End()

			results[i] = s.fetchSource(ctx, src, opts)
			span.SetAttributes(attribute.Int("items", len(results[i].items)))
			if err := results[i].err; err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			logger.Debug("source settled",
				zap.String("source", string(src)),
				zap.Int("items", len(results[i].items)),
				zap.Bool("failed", results[i].err != nil))
			return nil
		})
	}
	g.Wait()
	return results
}

func (s *Service) fetchSource(ctx context.Context, src wallpaper.Source, opts scraper.Options) sourceResult {
	adapter, ok := s.adapters[src]
	if !ok {
		return sourceResult{err: fmt.Errorf("unknown source %s", src)}
	}
	items, err := adapter.Fetch(ctx, opts)
	if err != nil {
		return sourceResult{err: err}
	}
	if len(items) == 0 {
		return sourceResult{err: &scraper.EmptyResultError{Source: src}}
	}
	return sourceResult{items: items}
}
