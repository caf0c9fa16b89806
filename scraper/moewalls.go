package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"colorwall/config"
	"colorwall/fetch"
	"colorwall/wallpaper"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	moewallsVideoHost = "https://static.moewalls.com"
	moewallsTitle     = "Moewalls Live2D"
)

var (
	// /2024/03/some-slug-thumb.webp -> year 2024, slug some-slug
	moewallsThumbDate = regexp.MustCompile(`(?i)/(\d{4})/\d{2}/([a-z0-9-]+)-thumb`)
	moewallsThumbTag  = regexp.MustCompile(`(?i)-thumb(?:-\d+)?\.`)
	moewallsPosterTag = regexp.MustCompile(`(?i)-poster\.`)
	whitespace        = regexp.MustCompile(`\s+`)
)

// Moewalls scrapes live wallpapers. Items are images unless IncludeVideos is
// set and a preview video can be derived from the thumbnail path.
type Moewalls struct {
	site
	videoHost string
}

func NewMoewalls(sc config.SourceConfig, fetcher fetch.Fetcher, logger *zap.Logger) *Moewalls {
	return &Moewalls{
		site:      newSite(wallpaper.SourceMoewalls, sc, fetcher, logger),
		videoHost: moewallsVideoHost,
	}
}

// Fetch lists the front page when no query is given.
func (a *Moewalls) Fetch(ctx context.Context, opts Options) ([]wallpaper.Item, error) {
	var q url.Values
	if opts.Query != "" {
		q = url.Values{"s": {opts.Query}}
	}

	doc, err := a.document(ctx, a.baseURL+"/", q, nil)
	if err != nil {
		return nil, err
	}

	items := a.parseListing(doc, opts.limit(), opts.IncludeVideos)
	if len(items) == 0 {
		return nil, &EmptyResultError{Source: a.source}
	}
	a.logger.Debug("parsed listing",
		zap.Int("items", len(items)),
		zap.Bool("include_videos", opts.IncludeVideos))
	return items, nil
}

func (a *Moewalls) parseListing(doc *goquery.Document, limit int, includeVideos bool) []wallpaper.Item {
	items := make([]wallpaper.Item, 0, limit)
	doc.Find("#primary ul li").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		thumb := a.absolute(firstAttr(s.Find("img").First(), lazyImageAttrs...))
		if thumb == "" {
			return true
		}

		anchor := s.Find("a").First()
		title := firstAttr(anchor, "title")
		if title == "" {
			title = moewallsTitle
		}
		href, _ := anchor.Attr("href")

		var videoURL, slug string
		if m := moewallsThumbDate.FindStringSubmatch(thumb); m != nil {
			slug = m[2]
			videoURL = fmt.Sprintf("%s/videos/preview/%s/%s-preview.mp4", a.videoHost, m[1], slug)
		}
		highRes := replaceFirst(moewallsThumbTag, thumb, ".")
		highRes = replaceFirst(moewallsPosterTag, highRes, ".")

		if slug == "" {
			slug = whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
		}
		id := sanitizeID(slug)
		if id == "" {
			return true
		}

		item := wallpaper.Item{
			ID:           "moewalls-" + id,
			Source:       a.source,
			Title:        title,
			ImageURL:     highRes,
			ThumbnailURL: thumb,
			Type:         wallpaper.MediaImage,
			Metadata: wallpaper.Metadata{
				DetailURL:    a.absolute(href),
				VideoURL:     videoURL,
				HighResImage: highRes,
			},
		}
		if includeVideos && videoURL != "" {
			item.ImageURL = videoURL
			item.Type = wallpaper.MediaVideo
		}

		items = append(items, item)
		return len(items) < limit
	})
	return items
}
