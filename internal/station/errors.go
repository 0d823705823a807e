package station

import "errors"

// The closed error taxonomy crossing the package boundary. Raw transport
// and storage errors are classified once, at this boundary, and wrapped so
// callers can still inspect the cause.
var (
	// ErrLocationUnavailable: no live fix and no cached fix to search
	// around.
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrNetworkUnavailable: the machine is offline. Absorbed via cache
	// fallback whenever a cache exists.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrServiceUnavailable: the remote service failed (bad status,
	// malformed payload). Never triggers a cache fallback.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrCacheWriteFailed: persisting a fresh batch failed. Logged; does
	// not block publishing the fresh batch.
	ErrCacheWriteFailed = errors.New("saving stations to cache failed")
	// ErrCacheReadFailed: the fallback read failed, leaving nothing to
	// show.
	ErrCacheReadFailed = errors.New("reading stations from cache failed")
)

// Message returns the human-readable text for a classified error, the fixed
// vocabulary the presentation layer consumes.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrLocationUnavailable):
		return "Your location is not available yet."
	case errors.Is(err, ErrNetworkUnavailable):
		return "No internet connection."
	case errors.Is(err, ErrServiceUnavailable):
		return "The station service is currently unavailable."
	case errors.Is(err, ErrCacheWriteFailed):
		return "Stations could not be saved for offline use."
	case errors.Is(err, ErrCacheReadFailed):
		return "No stored stations are available."
	default:
		return "Something went wrong."
	}
}
