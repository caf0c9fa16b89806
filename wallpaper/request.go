package wallpaper

import "encoding/json"

// ContentFilter selects which purity levels a source may return.
type ContentFilter string

const (
	FilterSFW     ContentFilter = "sfw"
	FilterSketchy ContentFilter = "sketchy"
	FilterBoth    ContentFilter = "both"
)

func (f ContentFilter) Valid() bool {
	switch f {
	case FilterSFW, FilterSketchy, FilterBoth:
		return true
	}
	return false
}

const DefaultPerSourceLimit = 10

// Request describes one aggregated search. Build it from DefaultRequest or
// decode it from JSON so Randomize keeps its default of true.
type Request struct {
	Query          string        `json:"query,omitempty"`
	ExcludeTags    []string      `json:"excludeTags,omitempty"`
	Sources        []Source      `json:"sources,omitempty"`
	Page           int           `json:"page,omitempty"`
	ContentFilter  ContentFilter `json:"contentFilter,omitempty"`
	AIArtAllowed   bool          `json:"aiArtAllowed"`
	PerSourceLimit int           `json:"perSourceLimit,omitempty"`
	Randomize      bool          `json:"randomize"`
	// Resolution is an optional WIDTHxHEIGHT filter for sources that support one.
	Resolution string `json:"resolution,omitempty"`
}

func DefaultRequest() Request {
	return Request{
		Sources:        append([]Source(nil), AllSources...),
		Page:           1,
		ContentFilter:  FilterSFW,
		PerSourceLimit: DefaultPerSourceLimit,
		Randomize:      true,
	}
}

// UnmarshalJSON decodes onto DefaultRequest, so omitted keys keep their
// defaults.
func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	p := plain(DefaultRequest())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Request(p)
	return nil
}

// Normalized returns a copy of r with zero-valued fields replaced by defaults.
// Randomize is left as given.
func (r Request) Normalized() Request {
	if len(r.Sources) == 0 {
		r.Sources = append([]Source(nil), AllSources...)
	}
	if r.Page < 1 {
		r.Page = 1
	}
	if !r.ContentFilter.Valid() {
		r.ContentFilter = FilterSFW
	}
	if r.PerSourceLimit <= 0 {
		r.PerSourceLimit = DefaultPerSourceLimit
	}
	return r
}

// Response is the unified result of a search. Success is true iff Errors is empty.
type Response struct {
	Success bool     `json:"success"`
	Items   []Item   `json:"items"`
	Errors  []string `json:"errors,omitempty"`
}

// NewResponse builds a response, keeping Success consistent with errs.
func NewResponse(items []Item, errs []string) Response {
	if items == nil {
		items = []Item{}
	}
	if len(errs) == 0 {
		errs = nil
	}
	return Response{
		Success: len(errs) == 0,
		Items:   items,
		Errors:  errs,
	}
}
