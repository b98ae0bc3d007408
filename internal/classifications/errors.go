package classifications

import "fmt"

// RemoteFetchError reports a failed fetch from the FMR structure service:
// the request could not be made, the service answered with a non-2xx status,
// or the body was not JSON.
type RemoteFetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RemoteFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("FMR service returned status %d for %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }

// MalformedResponseError reports a JSON body that decoded cleanly but did not
// have the expected fusion-json shape (e.g. an empty "Hierarchy" array).
type MalformedResponseError struct {
	URL    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("unexpected hierarchy response from %s: %s", e.URL, e.Reason)
}

// MalformedCodeError reports a leaf URN whose dotted path did not split into
// the expected number of segments.
type MalformedCodeError struct {
	URN      string
	Segments int
}

func (e *MalformedCodeError) Error() string {
	return fmt.Sprintf("code URN %q has %d dot-segments, expected at least 4", e.URN, e.Segments)
}
