package scraper

import (
	"context"
	"net/url"
	"strings"

	"colorwall/config"
	"colorwall/fetch"
	"colorwall/wallpaper"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	zerochanStaticHost = "https://static.zerochan.net"
	zerochanThumbHost  = "https://s1.zerochan.net"
	zerochanTitle      = "Zerochan Wallpaper"
)

type Zerochan struct {
	site
}

func NewZerochan(sc config.SourceConfig, fetcher fetch.Fetcher, logger *zap.Logger) *Zerochan {
	return &Zerochan{site: newSite(wallpaper.SourceZerochan, sc, fetcher, logger)}
}

func (a *Zerochan) Fetch(ctx context.Context, opts Options) ([]wallpaper.Item, error) {
	if opts.Query == "" {
		return nil, &PreconditionError{Source: a.source}
	}

	doc, err := a.document(ctx, a.baseURL+"/"+url.PathEscape(opts.Query), nil, nil)
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

func (a *Zerochan) parseListing(doc *goquery.Document, limit int) []wallpaper.Item {
	items := make([]wallpaper.Item, 0, limit)
	doc.Find("#wrapper #content ul li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		imageLink, _ := s.Find("p a").Attr("href")
		if imageLink == "" {
			return true
		}
		anchorHref, _ := s.Find("a").First().Attr("href")
		id := sanitizeID(anchorHref)
		if id == "" {
			return true
		}

		img := s.Find("a img").First()
		title := firstAttr(img, "alt")
		if title == "" {
			title = zerochanTitle
		}

		thumb := a.absolute(firstAttr(img, lazyImageAttrs...))
		if thumb == "" {
			image := strings.TrimLeft(strings.TrimPrefix(imageLink, zerochanStaticHost), "/")
			thumb = zerochanThumbHost + "/" + image + ".600." + id + ".jpg"
		}

		items = append(items, wallpaper.Item{
			ID:           "zerochan-" + id,
			Source:       a.source,
			Title:        title,
			ImageURL:     AbsoluteURL(imageLink, zerochanStaticHost),
			ThumbnailURL: thumb,
			Type:         wallpaper.MediaImage,
			Metadata: wallpaper.Metadata{
				DetailURL: a.absolute(anchorHref),
			},
		})
		return len(items) < limit
	})
	return items
}
