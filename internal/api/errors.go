package api

import "fmt"

// TransportError reports a failed request: network failure, unreadable
// body or a non-2xx status.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int    // 0 when no response was received
	Body       string // truncated response body for non-2xx statuses
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	case e.Body != "":
		return fmt.Sprintf("%s %s: unexpected status code %d: %s", e.Op, e.URL, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s %s: unexpected status code %d", e.Op, e.URL, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError means the response matched none of the expected
// shapes or carried rows that could not be decoded. The client logs it
// and returns whatever could be salvaged.
type MalformedResponseError struct {
	Kind   string // "list" or "detail"
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %s", e.Kind, e.Reason)
}
