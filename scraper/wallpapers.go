package scraper

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"colorwall/config"
	"colorwall/fetch"
	"colorwall/wallpaper"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

var (
	catalogImageExt   = regexp.MustCompile(`(?i)\.(png|jpg|jpeg|webp)$`)
	catalogResolution = regexp.MustCompile(`(\d{3,4})x(\d{3,4})`)
	catalogAssetPaths = []string{"/downloads/", "/images/"}
)

// Wallpapers scrapes wallpapers.com. Its listing only carries thumbnails, so
// every item is upgraded from its detail page.
type Wallpapers struct {
	site
	resolver *resolver
}

func NewWallpapers(sc config.SourceConfig, fetcher fetch.Fetcher, res *resolver, logger *zap.Logger) *Wallpapers {
	if res == nil {
		res = newResolver(1, nil, logger)
	}
	return &Wallpapers{
		site:     newSite(wallpaper.SourceWallpapers, sc, fetcher, logger),
		resolver: res,
	}
}

func (a *Wallpapers) Fetch(ctx context.Context, opts Options) ([]wallpaper.Item, error) {
	if opts.Query == "" {
		return nil, &PreconditionError{Source: a.source}
	}

	doc, err := a.document(ctx, a.baseURL+"/search/"+url.PathEscape(opts.Query), nil, nil)
	if err != nil {
		return nil, err
	}

	items := a.parseListing(doc, opts.limit())
	if len(items) == 0 {
		return nil, &EmptyResultError{Source: a.source}
	}
	a.logger.Debug("parsed listing", zap.Int("items", len(items)))

	return a.resolver.resolveAll(ctx, items, a.resolve), nil
}

func (a *Wallpapers) parseListing(doc *goquery.Document, limit int) []wallpaper.Item {
	items := make([]wallpaper.Item, 0, limit)
	doc.Find(".tab-content ul.kw-contents li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		figure := s.Find("figure").First()
		key := sanitizeID(firstAttr(figure, "data-key"))
		if key == "" {
			return true
		}
		title := firstAttr(figure, "data-title")
		if title == "" {
			title = key
		}

		anchor, _ := s.Find("a").First().Attr("href")
		detailURL := a.absolute(anchor)
		thumb := a.absolute(firstAttr(s.Find("img").First(), lazyImageAttrs...))
		if thumb == "" {
			thumb = detailURL
		}
		if thumb == "" {
			return true
		}

		items = append(items, wallpaper.Item{
			ID:           "wallpapers-" + key,
			Source:       a.source,
			Title:        title,
			ImageURL:     thumb,
			ThumbnailURL: thumb,
			Type:         wallpaper.MediaImage,
			Metadata: wallpaper.Metadata{
				DetailURL: detailURL,
			},
		})
		return len(items) < limit
	})
	return items
}

func (a *Wallpapers) resolve(ctx context.Context, detailURL string) (*Asset, error) {
	doc, err := a.document(ctx, a.absolute(detailURL), nil, nil)
	if err != nil {
		return nil, err
	}
	return resolveCatalog(doc, a.baseURL), nil
}

// resolveCatalog picks the largest WIDTHxHEIGHT image link under a download
// or image path. Equal sizes go to the later link. Without any such link the
// og:image is used; nil means neither exists.
func resolveCatalog(doc *goquery.Document, base string) *Asset {
	var best Asset
	bestPixels := 0
	found := false

	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !containsAny(href, catalogAssetPaths) || !catalogImageExt.MatchString(href) {
			return
		}

		var size Size
		if m := catalogResolution.FindStringSubmatch(href); m != nil {
			size.Width, _ = strconv.Atoi(m[1])
			size.Height, _ = strconv.Atoi(m[2])
		}
		if size.Pixels() >= bestPixels {
			bestPixels = size.Pixels()
			best = Asset{ImageURL: href, Size: size}
			found = true
		}
	})

	if !found {
		og, _ := doc.Find(`meta[property="og:image"]`).First().Attr("content")
		if strings.TrimSpace(og) == "" {
			return nil
		}
		best = Asset{ImageURL: strings.TrimSpace(og)}
	}

	best.ImageURL = AbsoluteURL(best.ImageURL, base)
	return &best
}

func containsAny(href string, segments []string) bool {
	for _, seg := range segments {
		if strings.Contains(href, seg) {
			return true
		}
	}
	return false
}
