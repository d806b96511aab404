package fetch

import "fmt"

// Kind classifies a fetch failure
type Kind int

const (
	KindRequest   Kind = iota // the request could not be built
	KindTransport             // connection error or timeout
	KindServer                // HTTP 5xx
	KindStatus                // any other non-200 status
	KindExhausted             // every attempt failed transiently
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindStatus:
		return "status"
	case KindExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Error is returned by the fetcher for every failure
// other than caller cancellation
type Error struct {
	Err      error
	URL      string
	Kind     Kind
	Status   int
	Attempts int
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServer, KindStatus:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	case KindExhausted:
		return fmt.Sprintf("fetch %s: giving up after %d attempts: %v", e.URL, e.Attempts, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s error: %v", e.URL, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient
func (e *Error) Retryable() bool {
	return e.Kind == KindTransport || e.Kind == KindServer
}
