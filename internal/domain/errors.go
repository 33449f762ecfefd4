package domain

import "errors"

// Domain errors.
var (
	// ErrUpstreamUnavailable is returned when every metadata source failed.
	ErrUpstreamUnavailable = errors.New("all post metadata sources failed")

	// ErrMediaDownloadFailed is returned when a video asset could not be
	// downloaded for composition. Always recoverable by a still-image result.
	ErrMediaDownloadFailed = errors.New("media download failed")

	// ErrCompositionFailed is returned when the encoder subprocess exits
	// non-zero. Always recoverable by a still-image result.
	ErrCompositionFailed = errors.New("video composition failed")

	// ErrRenderTimeout is returned when the rendering surface misses a fatal
	// deadline (content load or capture-root visibility).
	ErrRenderTimeout = errors.New("render timed out")
)

// RefReason identifies which parse rule an invalid post reference failed.
type RefReason string

const (
	RefEmpty      RefReason = "empty"
	RefNotURL     RefReason = "not_a_url"
	RefBadHost    RefReason = "unsupported_host"
	RefNoStatusID RefReason = "no_status_id"
	RefBadID      RefReason = "invalid_id"
)

// RefError reports an invalid post reference along with the failed rule,
// so callers can tell not-a-URL apart from wrong-host or missing-id input.
type RefError struct {
	Reason RefReason
	Input  string
}

func (e *RefError) Error() string {
	switch e.Reason {
	case RefEmpty:
		return "a post URL is required"
	case RefNotURL:
		return "the post URL is invalid"
	case RefBadHost:
		return "only x.com / twitter.com post URLs are supported"
	case RefNoStatusID:
		return "could not find a post id in the URL"
	case RefBadID:
		return "could not parse a valid post id"
	default:
		return "invalid post reference"
	}
}

// NewRefError creates a RefError for the given rule and offending input.
func NewRefError(reason RefReason, input string) *RefError {
	return &RefError{Reason: reason, Input: input}
}
