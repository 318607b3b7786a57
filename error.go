package forwarder

import "fmt"

// Kind classifies why a request was not forwarded.
type Kind int

const (
	// KindResolution means no rewrite rule matched the request path.
	KindResolution Kind = iota + 1
	// KindForwarding means the upstream round trip did not produce a usable response.
	KindForwarding
	// KindTranslation means the outbound request could not be built.
	KindTranslation
)

// String returns the metric label for the kind.
func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution"
	case KindForwarding:
		return "forwarding"
	case KindTranslation:
		return "translation"
	default:
		return "unknown"
	}
}

// Error is reported to OnError when a request falls through to the next handler.
type Error struct {
	Kind   Kind
	Method string
	URL    string
	Err    error
}

func newError(kind Kind, method, url string, err error) *Error {
	return &Error{Kind: kind, Method: method, URL: url, Err: err}
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("%s failure (%s %s): %v", e.Kind, e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}
