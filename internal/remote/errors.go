package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Failure taxonomy. Every error returned by Client matches exactly one of
// these with errors.Is.
var (
	// ErrNotFound means the document does not exist. Callers treat it as
	// an empty document, not a failure.
	ErrNotFound = errors.New("document not found")
	// ErrConflict means the supplied version token is stale, or missing
	// while the document already exists.
	ErrConflict = errors.New("version conflict")
	// ErrAuth means the credentials were rejected or cannot reach the container.
	ErrAuth = errors.New("authentication failed")
	// ErrNetwork covers transport failures, timeouts and server errors.
	// Nothing can be assumed about whether a write was persisted.
	ErrNetwork = errors.New("network failure")
	// ErrSerialization means the remote content could not be decoded.
	ErrSerialization = errors.New("malformed document")
)

// HTTPError is a non-2xx answer from the contents API.
type HTTPError struct {
	StatusCode int
	Message    string
	Path       string
	// TooLarge is set when the file exceeds what the API serves (403
	// with a too_large error code). The credentials are fine.
	TooLarge bool
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d on %s: %s", e.StatusCode, e.Path, e.Message)
	}
	return fmt.Sprintf("http %d on %s", e.StatusCode, e.Path)
}

// Is maps the status code onto the taxonomy.
func (e *HTTPError) Is(target error) bool {
	if e.StatusCode == http.StatusForbidden && (e.TooLarge || isTooLargeMessage(e.Message)) {
		return target == ErrSerialization
	}
	return kindOfStatus(e.StatusCode) == target
}

func isTooLargeMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "too large")
}

func kindOfStatus(code int) error {
	switch code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// 422 is what the contents API answers when the sha is missing for
		// an existing file, which is the same condition as a stale one.
		return ErrConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	default:
		return ErrNetwork
	}
}

// Classify reduces any error to one of the taxonomy sentinels.
// Unknown errors, deadlines and transport failures are ErrNetwork.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrAuth, ErrConflict, ErrNotFound, ErrSerialization, ErrNetwork} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrNetwork
}
