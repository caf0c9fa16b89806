package scraper

import (
	"context"
	"errors"
	"sync"
	"time"

	"colorwall/wallpaper"

	"github.com/apibillme/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Asset is the best image a detail page offers.
type Asset struct {
	ImageURL string
	Size
}

// resolveFunc fetches detailURL and picks its best asset. A nil asset with a
// nil error means the page offered nothing better than the listing.
type resolveFunc func(ctx context.Context, detailURL string) (*Asset, error)

var errNoCandidates = errors.New("no download candidates")

type resolver struct {
	workers int
	memo    *ResolveCache
	logger  *zap.Logger
}

func newResolver(workers int, memo *ResolveCache, logger *zap.Logger) *resolver {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &resolver{workers: workers, memo: memo, logger: logger}
}

// resolveAll upgrades every item with a detail URL, at most r.workers at a
// time. Failures are logged and leave the item as it was parsed.
func (r *resolver) resolveAll(ctx context.Context, items []wallpaper.Item, resolve resolveFunc) []wallpaper.Item {
	out := make([]wallpaper.Item, len(items))
	copy(out, items)

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i := range out {
		detailURL := out[i].Metadata.DetailURL
		if detailURL == "" {
			continue
		}
		g.Go(func() error {
			asset, err := r.resolveOne(ctx, detailURL, resolve)
			if err != nil {
				r.logger.Warn("resolution failed, keeping listing image",
					zap.String("item", out[i].ID),
					zap.Error(err))
				return nil
			}
			out[i] = applyAsset(out[i], asset, detailURL)
			return nil
		})
	}
	g.Wait()
	return out
}

func (r *resolver) resolveOne(ctx context.Context, detailURL string, resolve resolveFunc) (*Asset, error) {
	if asset, ok := r.memo.Get(detailURL); ok {
		return asset, nil
	}
	asset, err := resolve(ctx, detailURL)
	if err != nil {
		return nil, &ResolutionError{DetailURL: detailURL, Err: err}
	}
	if asset == nil || asset.ImageURL == "" {
		return nil, &ResolutionError{DetailURL: detailURL, Err: errNoCandidates}
	}
	r.memo.Set(detailURL, asset)
	return asset, nil
}

func applyAsset(item wallpaper.Item, asset *Asset, detailURL string) wallpaper.Item {
	item.ImageURL = asset.ImageURL
	item.Width = asset.Width
	item.Height = asset.Height
	item.Metadata.ResolvedFrom = detailURL
	return item
}

// ResolveCache remembers resolved assets by detail URL. A nil cache is a
// valid no-op.
type ResolveCache struct {
	mu    sync.Mutex
	store cache.Cache
}

// NewResolveCache returns nil when size is not positive.
func NewResolveCache(size int, ttl time.Duration) *ResolveCache {
	if size <= 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResolveCache{store: cache.New(size, cache.WithTTL(ttl))}
}

func (c *ResolveCache) Get(detailURL string) (*Asset, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store.Get(detailURL)
	if !ok {
		return nil, false
	}
	asset, ok := v.(Asset)
	if !ok {
		return nil, false
	}
	return &asset, true
}

func (c *ResolveCache) Set(detailURL string, asset *Asset) {
	if c == nil || asset == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Set(detailURL, *asset)
}
