package wallpaper

// Source identifies one of the external sites wallpapers are scraped from.
type Source string

const (
	SourceWallhaven      Source = "wallhaven"
	SourceZerochan       Source = "zerochan"
	SourceWallpapers     Source = "wallpapers"
	SourceMoewalls       Source = "moewalls"
	SourceWallpaperFlare Source = "wallpaperflare"
)

// AllSources is the default source set, in the order results are merged.
var AllSources = []Source{
	SourceWallhaven,
	SourceZerochan,
	SourceWallpapers,
	SourceMoewalls,
	SourceWallpaperFlare,
}

// DisplayName returns the human readable site name used in error messages.
func (s Source) DisplayName() string {
	switch s {
	case SourceWallhaven:
		return "Wallhaven"
	case SourceZerochan:
		return "Zerochan"
	case SourceWallpapers:
		return "Wallpapers.com"
	case SourceMoewalls:
		return "Moewalls"
	case SourceWallpaperFlare:
		return "WallpaperFlare"
	default:
		return string(s)
	}
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	for _, known := range AllSources {
		if s == known {
			return true
		}
	}
	return false
}

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Metadata records where an item's values were derived from.
type Metadata struct {
	DetailURL    string `json:"detailUrl,omitempty"`
	ResolvedFrom string `json:"resolvedFrom,omitempty"`
	VideoURL     string `json:"videoUrl,omitempty"`
	HighResImage string `json:"highResImage,omitempty"`
}

// Item is a single wallpaper candidate. Width and Height are zero when unknown.
type Item struct {
	ID           string    `json:"id"`
	Source       Source    `json:"source"`
	Title        string    `json:"title,omitempty"`
	ImageURL     string    `json:"imageUrl"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Type         MediaType `json:"type"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Metadata     Metadata  `json:"metadata"`
}
