package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"colorwall/config"
	"colorwall/fetch"
	"colorwall/wallpaper"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Adapter fetches one site's listing and parses it into items.
type Adapter interface {
	Source() wallpaper.Source
	Fetch(ctx context.Context, opts Options) ([]wallpaper.Item, error)
}

// Options carries the per-source subset of a search request.
type Options struct {
	Query         string
	Page          int
	Limit         int
	ContentFilter wallpaper.ContentFilter
	AIArtAllowed  bool
	Resolution    string
	IncludeVideos bool
}

const defaultLimit = 24

func (o Options) limit() int {
	if o.Limit <= 0 {
		return defaultLimit
	}
	return o.Limit
}

func (o Options) page() int {
	if o.Page < 1 {
		return 1
	}
	return o.Page
}

var defaultHeaders = map[string]string{
	"Accept-Language": "en-US,en;q=0.9",
}

// browserHeaders is sent to sites that reject requests without a Referer.
func browserHeaders(referer string) map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Referer":                   referer,
		"Upgrade-Insecure-Requests": "1",
	}
}

// site holds what every adapter needs to fetch and parse its pages.
type site struct {
	source  wallpaper.Source
	baseURL string
	timeout time.Duration
	fetcher fetch.Fetcher
	logger  *zap.Logger
}

func newSite(src wallpaper.Source, sc config.SourceConfig, fetcher fetch.Fetcher, logger *zap.Logger) site {
	if logger == nil {
		logger = zap.NewNop()
	}
	return site{
		source:  src,
		baseURL: strings.TrimRight(sc.BaseURL, "/"),
		timeout: sc.Timeout,
		fetcher: fetcher,
		logger:  logger.With(zap.String("source", string(src))),
	}
}

func (s *site) Source() wallpaper.Source { return s.source }

// document fetches target and parses it. Errors carry the site name.
func (s *site) document(ctx context.Context, target string, query url.Values, headers map[string]string) (*goquery.Document, error) {
	if headers == nil {
		headers = defaultHeaders
	}
	body, err := s.fetcher.Fetch(ctx, fetch.Request{
		URL:     target,
		Query:   query,
		Headers: headers,
		Timeout: s.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.source.DisplayName(), err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: parse %s: %w", s.source.DisplayName(), target, err)
	}
	return doc, nil
}

func (s *site) absolute(href string) string {
	return AbsoluteURL(href, s.baseURL)
}

// NewAdapters builds the static source to adapter mapping.
func NewAdapters(cfg *config.Config, fetcher fetch.Fetcher, logger *zap.Logger) map[wallpaper.Source]Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	res := newResolver(cfg.ResolveConcurrency, NewResolveCache(cfg.ResolveCacheSize, cfg.ResolveCacheTTL), logger)

	return map[wallpaper.Source]Adapter{
		wallpaper.SourceWallhaven:      NewWallhaven(cfg.Source(wallpaper.SourceWallhaven), fetcher, logger),
		wallpaper.SourceZerochan:       NewZerochan(cfg.Source(wallpaper.SourceZerochan), fetcher, logger),
		wallpaper.SourceWallpapers:     NewWallpapers(cfg.Source(wallpaper.SourceWallpapers), fetcher, res, logger),
		wallpaper.SourceMoewalls:       NewMoewalls(cfg.Source(wallpaper.SourceMoewalls), fetcher, logger),
		wallpaper.SourceWallpaperFlare: NewWallpaperFlare(cfg.Source(wallpaper.SourceWallpaperFlare), fetcher, res, logger),
	}
}
