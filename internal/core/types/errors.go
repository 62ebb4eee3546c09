package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for broad classification. Every error returned by the
// pipeline wraps exactly one of these, so callers can use errors.Is.
var (
	ErrInvalidIdentifier  = errors.New("invalid identifier")
	ErrInvalidSortKey     = errors.New("invalid sort key")
	ErrAccessDenied       = errors.New("access denied: accept the competition rules on the website before downloading")
	ErrExternalTool       = errors.New("external tool failed")
	ErrDownloadIncomplete = errors.New("download incomplete")
	ErrFileNotFound       = errors.New("file not found")
	ErrNoScoreYet         = errors.New("no score yet: make at least one submission first")
	ErrMalformedListing   = errors.New("malformed listing")
	ErrUnsafeArchiveEntry = errors.New("unsafe archive entry")
)

// OpError wraps an underlying error with operation context.
type OpError struct {
	Op     string
	Slug   string // Optional: slug the operation targeted
	Path   string // Optional: relevant file path
	Output string // Optional: captured external tool output
	Err    error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := e.Op
	if e.Slug != "" {
		base += fmt.Sprintf(" %s", e.Slug)
	}
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		base += fmt.Sprintf("\n%s", out)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// OutputOf returns the captured external output carried by err, if any.
func OutputOf(err error) string {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Output
	}
	return ""
}
