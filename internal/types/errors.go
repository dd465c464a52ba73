package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for consistent error handling across the application.
// These can be checked with errors.Is().
var (
	// Browser lifecycle errors
	ErrBrowserNotStarted = errors.New("browser has not been started")
	ErrPoolClosed        = errors.New("page pool is closed")

	// Challenge errors
	ErrAccessDenied     = errors.New("access denied by target site")
	ErrChallengeTimeout = errors.New("challenge resolution timed out")
	ErrScriptEvaluation = errors.New("page script evaluation failed")

	// Input errors
	ErrNoURLsFound         = errors.New("no URLs found in input document")
	ErrUnsupportedDocument = errors.New("unsupported document type")

	// Vision extraction errors
	ErrVisionAPIKey     = errors.New("vision API key is not configured")
	ErrVisionBadStatus  = errors.New("vision API returned non-success status")
	ErrVisionNoContent  = errors.New("vision API response contained no content")
	ErrScreenshotFailed = errors.New("screenshot capture failed")
)

// ChallengeError provides detailed information about a challenge failure.
// It implements the error interface and supports error unwrapping.
type ChallengeError struct {
	URL      string
	Kind     string
	Attempts int
	Err      error
}

func (e *ChallengeError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("challenge %q at %s failed after %d attempts: %v", e.Kind, e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("challenge %q at %s: %v", e.Kind, e.URL, e.Err)
}

func (e *ChallengeError) Unwrap() error { return e.Err }

// NewChallengeTimeoutError creates a ChallengeError wrapping ErrChallengeTimeout.
func NewChallengeTimeoutError(url, kind string, attempts int) error {
	return &ChallengeError{URL: url, Kind: kind, Attempts: attempts, Err: ErrChallengeTimeout}
}
