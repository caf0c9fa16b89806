package fetch

import "fmt"

// TransportError reports a failed fetch: timeout, DNS, TLS or a non-2xx status.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
