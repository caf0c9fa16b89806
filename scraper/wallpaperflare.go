package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"colorwall/config"
	"colorwall/fetch"
	"colorwall/wallpaper"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	flareTitle          = "WallpaperFlare Wallpaper"
	flareWallpaperLinks = `a[href*="/wallpaper/"]`
)

// flareMediaAttrs extends the lazy-load priority with srcset variants, which
// the site uses on <source> tags.
var flareMediaAttrs = []string{"data-src", "data-original", "data-srcset", "srcset", "src"}

var flareRejectedPaths = []string{"/search", "/tag", "/page"}

// WallpaperFlare scrapes wallpaperflare.com. The same wallpaper shows up in
// several traversal passes, so each Fetch keeps its own seen-id set.
type WallpaperFlare struct {
	site
	resolver *resolver
}

func NewWallpaperFlare(sc config.SourceConfig, fetcher fetch.Fetcher, res *resolver, logger *zap.Logger) *WallpaperFlare {
	if res == nil {
		res = newResolver(1, nil, logger)
	}
	return &WallpaperFlare{
		site:     newSite(wallpaper.SourceWallpaperFlare, sc, fetcher, logger),
		resolver: res,
	}
}

func (a *WallpaperFlare) headers() map[string]string {
	return browserHeaders(a.baseURL + "/")
}

func (a *WallpaperFlare) Fetch(ctx context.Context, opts Options) ([]wallpaper.Item, error) {
	if opts.Query == "" {
		return nil, &PreconditionError{Source: a.source}
	}

	q := url.Values{"wallpaper": {opts.Query}}
	doc, err := a.document(ctx, a.baseURL+"/search", q, a.headers())
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

func (a *WallpaperFlare) parseListing(doc *goquery.Document, limit int) []wallpaper.Item {
	items := make([]wallpaper.Item, 0, limit)
	seen := make(map[string]struct{})

	collect := func(href string, media *goquery.Selection) {
		if len(items) >= limit {
			return
		}
		detailURL, ok := a.normalizeHref(href)
		if !ok {
			return
		}
		thumb := pickImageSource(firstAttr(media, flareMediaAttrs...))
		if thumb == "" {
			return
		}
		id := sanitizeID(lastPathSegment(detailURL))
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		title := firstAttr(media, "alt", "title")
		if title == "" {
			title = firstAttr(media.ParentsFiltered("[title]").First(), "title")
		}
		if title == "" {
			title = flareTitle
		}

		thumb = a.absolute(thumb)
		items = append(items, wallpaper.Item{
			ID:           "wallpaperflare-" + id,
			Source:       a.source,
			Title:        title,
			ImageURL:     thumb,
			ThumbnailURL: thumb,
			Type:         wallpaper.MediaImage,
			Metadata: wallpaper.Metadata{
				DetailURL: detailURL,
			},
		})
	}
	more := func() bool { return len(items) < limit }

	// anchors that look like wallpaper links
	doc.Find(flareWallpaperLinks).EachWithBreak(func(_ int, link *goquery.Selection) bool {
		if media := link.Find("img, source").First(); media.Length() > 0 {
			href, _ := link.Attr("href")
			collect(href, media)
		}
		return more()
	})

	// any anchor whose normalized href is a detail page
	doc.Find("a").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		if _, ok := a.normalizeHref(href); !ok {
			return more()
		}
		if media := link.Find("img, source").First(); media.Length() > 0 {
			collect(href, media)
		}
		return more()
	})

	// images and source tags nested under wallpaper links
	for _, tag := range []string{"img", "source"} {
		if !more() {
			break
		}
		doc.Find(tag).EachWithBreak(func(_ int, media *goquery.Selection) bool {
			parent := media.ParentsFiltered(flareWallpaperLinks).First()
			if parent.Length() > 0 {
				href, _ := parent.Attr("href")
				collect(href, media)
			}
			return more()
		})
	}
	return items
}

// normalizeHref makes raw absolute and accepts it only if it points at a
// wallpaper detail page.
func (a *WallpaperFlare) normalizeHref(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(a.absolute(raw))
	if err != nil {
		return "", false
	}
	path := strings.ToLower(u.Path)
	if path == "" || path == "/" {
		return "", false
	}
	for _, prefix := range flareRejectedPaths {
		if strings.HasPrefix(path, prefix) {
			return "", false
		}
	}
	if !strings.Contains(path, "wallpaper") {
		return "", false
	}
	return u.String(), true
}

func (a *WallpaperFlare) resolve(ctx context.Context, detailURL string) (*Asset, error) {
	doc, err := a.document(ctx, a.absolute(detailURL), nil, a.headers())
	if err != nil {
		return nil, err
	}
	return resolveFlare(doc, a.baseURL), nil
}

type flareCandidate struct {
	url  string
	size Size
}

// resolveFlare picks the largest download link. Sizes come from the link,
// then its text, then the page description. A download link without an
// explicit size segment gets /WIDTHxHEIGHT appended when the size is known.
// Without any download link the baseline (download attribute, contentUrl
// image, og:image) is returned; nil means there is no baseline either.
func resolveFlare(doc *goquery.Document, base string) *Asset {
	baseline := pickImageSource(firstAttr(doc.Find("a[download]").First(), "href"))
	if baseline == "" {
		baseline = pickImageSource(firstAttr(doc.Find(`img[itemprop="contentUrl"]`).First(), "src"))
	}
	if baseline == "" {
		baseline = pickImageSource(firstAttr(doc.Find(`meta[property="og:image"]`).First(), "content"))
	}
	described := ParseResolution(firstAttr(doc.Find(`meta[itemprop="description"]`).First(), "content"))

	var candidates []flareCandidate
	doc.Find(`a[href*="/download"]`).Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr("href")
		if raw == "" {
			return
		}
		normalized := AbsoluteURL(raw, base)
		if !strings.Contains(normalized, "/download") {
			return
		}

		size := ParseResolution(normalized)
		if !size.Known() {
			size = ParseResolution(s.Text())
		}
		if !size.Known() {
			size = described
		}

		candidateURL := normalized
		if !strings.Contains(normalized, "/download/") && size.Known() {
			candidateURL = fmt.Sprintf("%s/%dx%d", strings.TrimRight(normalized, "/"), size.Width, size.Height)
		}
		candidates = append(candidates, flareCandidate{url: candidateURL, size: size})
	})

	if len(candidates) == 0 {
		if baseline == "" {
			return nil
		}
		return &Asset{ImageURL: AbsoluteURL(baseline, base), Size: described}
	}

	best := candidates[0]
	bestPixels := 0
	for _, c := range candidates {
		if c.size.Pixels() > bestPixels {
			bestPixels = c.size.Pixels()
			best = c
		}
	}
	return &Asset{ImageURL: best.url, Size: best.size}
}
