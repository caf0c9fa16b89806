package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"colorwall/config"
	"colorwall/fetch"
	"colorwall/wallpaper"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const wallhavenImageHost = "https://w.wallhaven.cc"

var wallhavenPurity = map[wallpaper.ContentFilter]string{
	wallpaper.FilterSFW:     "100",
	wallpaper.FilterSketchy: "010",
	wallpaper.FilterBoth:    "110",
}

type Wallhaven struct {
	site
	imageHost string
}

func NewWallhaven(sc config.SourceConfig, fetcher fetch.Fetcher, logger *zap.Logger) *Wallhaven {
	return &Wallhaven{
		site:      newSite(wallpaper.SourceWallhaven, sc, fetcher, logger),
		imageHost: wallhavenImageHost,
	}
}

func (a *Wallhaven) Fetch(ctx context.Context, opts Options) ([]wallpaper.Item, error) {
	if opts.Query == "" {
		return nil, &PreconditionError{Source: a.source}
	}

	purity, ok := wallhavenPurity[opts.ContentFilter]
	if !ok {
		purity = wallhavenPurity[wallpaper.FilterSFW]
	}
	aiFilter := "1"
	if opts.AIArtAllowed {
		aiFilter = "0"
	}

	q := url.Values{}
	q.Set("q", opts.Query)
	q.Set("page", strconv.Itoa(opts.page()))
	q.Set("purity", purity)
	q.Set("ai_art_filter", aiFilter)
	if opts.Resolution != "" {
		q.Set("resolutions", opts.Resolution)
	}

	doc, err := a.document(ctx, a.baseURL+"/search", q, nil)
	if err != nil {
		return nil, err
	}

	items := a.parseListing(doc, opts.limit())
	if len(items) == 0 {
		return nil, &EmptyResultError{Source: a.source}
	}
	a.logger.Debug("parsed listing", zap.Int("items", len(items)))
	return items, nil
}

func (a *Wallhaven) parseListing(doc *goquery.Document, limit int) []wallpaper.Item {
	items := make([]wallpaper.Item, 0, limit)
	doc.Find(".thumb-listing-page ul li .thumb").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		preview, _ := s.Find(".preview").Attr("href")
		id := sanitizeID(lastPathSegment(preview))
		if id == "" {
			return true
		}

		ext := ".jpg"
		if s.Find(".thumb-info .png span").Length() > 0 {
			ext = ".png"
		}
		short := id
		if len(id) > 2 {
			short = id[:2]
		}

		items = append(items, wallpaper.Item{
			ID:           "wallhaven-" + id,
			Source:       a.source,
			Title:        id,
			ImageURL:     fmt.Sprintf("%s/full/%s/wallhaven-%s%s", a.imageHost, short, id, ext),
			ThumbnailURL: a.absolute(firstAttr(s.Find("img").First(), lazyImageAttrs...)),
			Type:         wallpaper.MediaImage,
			Metadata: wallpaper.Metadata{
				DetailURL: a.absolute(preview),
			},
		})
		return len(items) < limit
	})
	return items
}
