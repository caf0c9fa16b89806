package scraper

import (
	"context"
	"testing"

	"colorwall/wallpaper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moewallsListing = `<html><body>
<main id="primary"><ul>
  <li><a href="https://moewalls.com/anime/frieren-field/" title="Frieren Field">
    <img src="https://moewalls.com/wp-content/uploads/2024/03/frieren-field-thumb.webp">
  </a></li>
  <li><a href="/anime/night-city/" title="Night City">
    <img data-src="/wp-content/uploads/preview/night-city-poster.jpg">
  </a></li>
  <li><a href="/anime/no-thumb/" title="No Thumb"></a></li>
</ul></main>
</body></html>`

func newMoewallsFixture() (*Moewalls, *fakeFetcher) {
	fetcher := newFakeFetcher(map[string]string{"https://moewalls.com/": moewallsListing})
	return NewMoewalls(sourceConfig("https://moewalls.com"), fetcher, nil), fetcher
}

func TestMoewallsImages(t *testing.T) {
	a, fetcher := newMoewallsFixture()

	items, err := a.Fetch(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Empty(t, fetcher.firstCall().Query, "front page is listed without a query")

	assert.Equal(t, wallpaper.Item{
		ID:           "moewalls-frieren-field",
		Source:       wallpaper.SourceMoewalls,
		Title:        "Frieren Field",
		ImageURL:     "https://moewalls.com/wp-content/uploads/2024/03/frieren-field.webp",
		ThumbnailURL: "https://moewalls.com/wp-content/uploads/2024/03/frieren-field-thumb.webp",
		Type:         wallpaper.MediaImage,
		Metadata: wallpaper.Metadata{
			DetailURL:    "https://moewalls.com/anime/frieren-field/",
			VideoURL:     "https://static.moewalls.com/videos/preview/2024/frieren-field-preview.mp4",
			HighResImage: "https://moewalls.com/wp-content/uploads/2024/03/frieren-field.webp",
		},
	}, items[0])

	night := items[1]
	assert.Equal(t, "moewalls-night-city", night.ID)
	assert.Equal(t, "https://moewalls.com/wp-content/uploads/preview/night-city.jpg", night.ImageURL)
	assert.Empty(t, night.Metadata.VideoURL)
}

func TestMoewallsVideos(t *testing.T) {
	a, fetcher := newMoewallsFixture()

	items, err := a.Fetch(context.Background(), Options{Query: "frieren", IncludeVideos: true})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "frieren", fetcher.firstCall().Query.Get("s"))

	assert.Equal(t, wallpaper.MediaVideo, items[0].Type)
	assert.Equal(t, "https://static.moewalls.com/videos/preview/2024/frieren-field-preview.mp4", items[0].ImageURL)

	// no derivable video, stays an image
	assert.Equal(t, wallpaper.MediaImage, items[1].Type)
	assert.Equal(t, items[1].Metadata.HighResImage, items[1].ImageURL)
}

func TestMoewallsHighResVariants(t *testing.T) {
	testCases := []struct {
		thumb    string
		expected string
	}{
		{"/2024/01/a-thumb.jpg", "/2024/01/a.jpg"},
		{"/2024/01/a-thumb-2.webp", "/2024/01/a.webp"},
		{"/2024/01/a-poster.jpg", "/2024/01/a.jpg"},
		{"/2024/01/a-thumbnail.jpg", "/2024/01/a-thumbnail.jpg"},
	}

	for _, tc := range testCases {
		t.Run(tc.thumb, func(t *testing.T) {
			got := replaceFirst(moewallsThumbTag, tc.thumb, ".")
			got = replaceFirst(moewallsPosterTag, got, ".")
			assert.Equal(t, tc.expected, got)
		})
	}
}
