package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Size is a pixel resolution. The zero value means unknown.
type Size struct {
	Width  int
	Height int
}

func (s Size) Known() bool { return s.Width > 0 && s.Height > 0 }

func (s Size) Pixels() int { return s.Width * s.Height }

var resolutionPattern = regexp.MustCompile(`(?i)(\d{3,5})\s*[x×]\s*(\d{3,5})`)

// ParseResolution returns the first WIDTHxHEIGHT token found in text, or the
// zero Size when there is none.
func ParseResolution(text string) Size {
	m := resolutionPattern.FindStringSubmatch(text)
	if m == nil {
		return Size{}
	}
	w, err := strconv.Atoi(m[1])
	if err != nil {
		return Size{}
	}
	h, err := strconv.Atoi(m[2])
	if err != nil {
		return Size{}
	}
	return Size{Width: w, Height: h}
}

// AbsoluteURL resolves href against base. Protocol-relative hrefs take the
// base scheme and bare host/path strings ("cdn.site.com/a.jpg") are treated
// as protocol-relative. When either side cannot be parsed, or href holds
// characters no URL may contain unescaped, href is returned unchanged.
func AbsoluteURL(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.ContainsAny(href, " \t\r\n<>\"`") {
		return href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	target := href
	if looksLikeBareHost(href) {
		target = "//" + href
	}
	ref, err := url.Parse(target)
	if err != nil {
		return href
	}
	if !ref.IsAbs() && baseURL.Scheme == "" {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

var bareHostPattern = regexp.MustCompile(`^[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)*\.[a-zA-Z]{2,}(:\d+)?/`)

func looksLikeBareHost(href string) bool {
	if strings.HasPrefix(href, "/") || strings.Contains(href, "://") {
		return false
	}
	return bareHostPattern.MatchString(href)
}

var invalidIDChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// sanitizeID strips path separators and anything that is not alphanumeric,
// '-' or '_'.
func sanitizeID(raw string) string {
	return invalidIDChars.ReplaceAllString(raw, "")
}

// lastPathSegment returns the final non-empty path segment of a URL or path,
// ignoring any query or fragment.
func lastPathSegment(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimRight(raw, "/")
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

// pickImageSource reduces a srcset or CSS url(...) value to its first URL.
func pickImageSource(value string) string {
	if value == "" {
		return ""
	}
	first := strings.TrimSpace(strings.Split(value, ",")[0])
	first = strings.TrimPrefix(first, "url(")
	first = strings.TrimSuffix(first, ")")
	first = strings.Trim(first, `"'`)
	if fields := strings.Fields(first); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

// lazyImageAttrs is the attribute priority for thumbnails: explicit
// lazy-load, then deferred-load, then the inline src.
var lazyImageAttrs = []string{"data-src", "data-original", "src"}

// firstAttr returns the first non-blank value among attrs on s.
func firstAttr(s *goquery.Selection, attrs ...string) string {
	for _, attr := range attrs {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// replaceFirst replaces only the leftmost match of re in s.
func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	var dst []byte
	dst = re.ExpandString(dst, repl, s, loc)
	return s[:loc[0]] + string(dst) + s[loc[1]:]
}
