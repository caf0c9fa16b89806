package scraper

import (
	"context"
	"testing"

	"colorwall/wallpaper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flareBase = "https://www.wallpaperflare.com"

const flareListing = `<html><body>
<a href="/search?wallpaper=frieren&page=2"><img src="/thumb/next.jpg"></a>
<div title="Fern Title">
  <a href="https://www.wallpaperflare.com/wallpaper/fern-xyz2">
    <picture><source srcset="https://c4.wallpaperflare.com/fern-300.webp 300w, https://c4.wallpaperflare.com/fern-600.webp 600w"></picture>
  </a>
</div>
<a href="/frieren-anime-wallpaper-abc1"><img data-src="https://c4.wallpaperflare.com/frieren-thumb.jpg" alt="Frieren"></a>
<a href="https://www.wallpaperflare.com/wallpaper/fern-xyz2"><img src="/thumb/fern-again.jpg"></a>
<a href="/tag/anime"><img src="/thumb/tag.jpg"></a>
<a href="/stark-wallpaper-q9"></a>
</body></html>`

const flareFernDetail = `<html><head>
<meta itemprop="description" content="Fern 3840x2160 wallpaper">
</head><body>
<a download href="https://c4.wallpaperflare.com/fern-full.jpg">Save</a>
<a href="/wallpaper/fern-xyz2/download">Download</a>
</body></html>`

const flareFrierenDetail = `<html><body>
<a href="/frieren-anime-wallpaper-abc1/download/1920x1080">1920x1080</a>
<a href="/frieren-anime-wallpaper-abc1/download/2560x1440">2560x1440</a>
</body></html>`

func TestWallpaperFlareFetch(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{
		flareBase + "/search":                       flareListing,
		flareBase + "/wallpaper/fern-xyz2":          flareFernDetail,
		flareBase + "/frieren-anime-wallpaper-abc1": flareFrierenDetail,
	})
	a := NewWallpaperFlare(sourceConfig(flareBase), fetcher, newResolver(2, nil, nil), nil)

	items, err := a.Fetch(context.Background(), Options{Query: "frieren"})
	require.NoError(t, err)
	require.Equal(t, []string{
		"wallpaperflare-fern-xyz2",
		"wallpaperflare-frieren-anime-wallpaper-abc1",
	}, itemIDs(items), "duplicates and non-detail links are dropped")

	listing := fetcher.firstCall()
	assert.Equal(t, "frieren", listing.Query.Get("wallpaper"))
	assert.Equal(t, flareBase+"/", listing.Headers["Referer"])

	assert.Equal(t, wallpaper.Item{
		ID:           "wallpaperflare-fern-xyz2",
		Source:       wallpaper.SourceWallpaperFlare,
		Title:        "Fern Title",
		ImageURL:     flareBase + "/wallpaper/fern-xyz2/download/3840x2160",
		ThumbnailURL: "https://c4.wallpaperflare.com/fern-300.webp",
		Type:         wallpaper.MediaImage,
		Width:        3840,
		Height:       2160,
		Metadata: wallpaper.Metadata{
			DetailURL:    flareBase + "/wallpaper/fern-xyz2",
			ResolvedFrom: flareBase + "/wallpaper/fern-xyz2",
		},
	}, items[0])

	frieren := items[1]
	assert.Equal(t, "Frieren", frieren.Title)
	assert.Equal(t, "https://c4.wallpaperflare.com/frieren-thumb.jpg", frieren.ThumbnailURL)
	assert.Equal(t, flareBase+"/frieren-anime-wallpaper-abc1/download/2560x1440", frieren.ImageURL)
	assert.Equal(t, 2560, frieren.Width)
	assert.Equal(t, 1440, frieren.Height)
}

func TestWallpaperFlareLimit(t *testing.T) {
	fetcher := newFakeFetcher(map[string]string{flareBase + "/search": flareListing})
	a := NewWallpaperFlare(sourceConfig(flareBase), fetcher, nil, nil)

	items, err := a.Fetch(context.Background(), Options{Query: "frieren", Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "wallpaperflare-fern-xyz2", items[0].ID)
	// detail page missing from the fake, listing thumbnail is kept
	assert.Equal(t, "https://c4.wallpaperflare.com/fern-300.webp", items[0].ImageURL)
}

func TestWallpaperFlareFallsBackToNestedImages(t *testing.T) {
	// the first media element carries no source, so only the image pass finds it
	html := `<html><body>
<a href="/wallpaper/nested-1"><source><span><img src="/t/nested-1.jpg" title="Nested"></span></a>
</body></html>`
	a := NewWallpaperFlare(sourceConfig(flareBase), newFakeFetcher(nil), nil, nil)

	items := a.parseListing(parseDoc(t, html), 5)
	require.Len(t, items, 1)
	assert.Equal(t, "wallpaperflare-nested-1", items[0].ID)
	assert.Equal(t, "Nested", items[0].Title)
	assert.Equal(t, flareBase+"/t/nested-1.jpg", items[0].ThumbnailURL)
}

func TestWallpaperFlareNormalizeHref(t *testing.T) {
	a := NewWallpaperFlare(sourceConfig(flareBase), newFakeFetcher(nil), nil, nil)

	testCases := []struct {
		href     string
		expected string
		ok       bool
	}{
		{"/wallpaper/abc", flareBase + "/wallpaper/abc", true},
		{"/anime-girl-wallpaper-xyz", flareBase + "/anime-girl-wallpaper-xyz", true},
		{"", "", false},
		{"/", "", false},
		{"/search?wallpaper=x", "", false},
		{"/tag/wallpaper", "", false},
		{"/page/2/wallpaper", "", false},
		{"/about", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.href, func(t *testing.T) {
			got, ok := a.normalizeHref(tc.href)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestResolveFlare(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected *Asset
	}{
		{
			name:     "SizeFromDescription",
			html:     flareFernDetail,
			expected: &Asset{ImageURL: flareBase + "/wallpaper/fern-xyz2/download/3840x2160", Size: Size{3840, 2160}},
		},
		{
			name:     "LargestCandidate",
			html:     flareFrierenDetail,
			expected: &Asset{ImageURL: flareBase + "/frieren-anime-wallpaper-abc1/download/2560x1440", Size: Size{2560, 1440}},
		},
		{
			name:     "SizeFromAnchorText",
			html:     `<a href="/w/x/download">Original 1600 x 900</a>`,
			expected: &Asset{ImageURL: flareBase + "/w/x/download/1600x900", Size: Size{1600, 900}},
		},
		{
			name:     "UnsizedCandidateKept",
			html:     `<a href="/w/x/download">Download</a>`,
			expected: &Asset{ImageURL: flareBase + "/w/x/download"},
		},
		{
			name:     "BaselineContentURL",
			html:     `<meta itemprop="description" content="1280x800"><img itemprop="contentUrl" src="/full/x.jpg">`,
			expected: &Asset{ImageURL: flareBase + "/full/x.jpg", Size: Size{1280, 800}},
		},
		{
			name:     "BaselineOpenGraph",
			html:     `<meta property="og:image" content="https://c4.wallpaperflare.com/og.jpg">`,
			expected: &Asset{ImageURL: "https://c4.wallpaperflare.com/og.jpg"},
		},
		{
			name:     "Nothing",
			html:     `<p>gone</p>`,
			expected: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, resolveFlare(parseDoc(t, tc.html), flareBase))
		})
	}
}
