package scraper

import (
	"fmt"

	"colorwall/wallpaper"
)

// PreconditionError is returned when a source that needs a query gets none.
type PreconditionError struct {
	Source wallpaper.Source
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s search requires a query", e.Source.DisplayName())
}

// EmptyResultError is returned when a listing was fetched but parsed to zero
// items. A markup change and a genuine lack of matches look the same here.
type EmptyResultError struct {
	Source wallpaper.Source
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s returned no results", e.Source.DisplayName())
}

// ResolutionError wraps a failed detail-page resolution. It never leaves the
// resolution stage.
type ResolutionError struct {
	DetailURL string
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.DetailURL, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
