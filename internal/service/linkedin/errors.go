package linkedin

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the response classes the pipeline reacts to. They are
// attached to *APIError via Unwrap, so callers branch with errors.Is instead
// of inspecting status codes.
var (
	ErrUnauthorized  = errors.New("linkedin: token expired or invalid")
	ErrForbidden     = errors.New("linkedin: access denied")
	ErrUnprocessable = errors.New("linkedin: request rejected as unprocessable")
)

// APIError is any non-2xx response from the LinkedIn API, constructed at the
// boundary where the response is received.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("linkedin API returned status %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusUnprocessableEntity:
		return ErrUnprocessable
	}
	return nil
}

// UploadError marks a failure in either phase of the two-phase asset upload.
// A post that hits one never reaches the publish call for that account.
type UploadError struct {
	Phase string // "register" or "transfer"
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("asset upload failed during %s: %v", e.Phase, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
