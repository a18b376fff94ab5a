package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusTimeout is the status reported when the upstream did not answer
// before the deadline.
const StatusTimeout = http.StatusGatewayTimeout

// StatusUnreachable is the status reported when no HTTP response was received.
const StatusUnreachable = http.StatusBadGateway

// UpstreamError reports a non-success answer from the upstream site, or no
// answer at all. It reflects the real-world state of the upstream and is
// surfaced to API clients with the same status.
type UpstreamError struct {
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream error (status %d): %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("upstream error (status %d): %s", e.Status, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ParsingError reports that the upstream answered successfully but its
// content could not be turned into a valid record. It means the parser needs
// a code update; clients only ever see a generic internal error.
type ParsingError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *ParsingError) Error() string {
	return fmt.Sprintf("parsing error for %s: %v", e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ParsingError) Unwrap() error {
	return e.Err
}

// NewParsingError wraps err as a ParsingError for url.
func NewParsingError(url string, err error) *ParsingError {
	return &ParsingError{URL: url, Err: err}
}

// Parsingf builds a ParsingError from a format string.
func Parsingf(url, format string, args ...any) *ParsingError {
	return &ParsingError{URL: url, Err: fmt.Errorf(format, args...)}
}

// IsUpstream reports whether err carries an UpstreamError and returns it.
func IsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	ok := errors.As(err, &ue)
	return ue, ok
}

// IsParsing reports whether err carries a ParsingError and returns it.
func IsParsing(err error) (*ParsingError, bool) {
	var pe *ParsingError
	ok := errors.As(err, &pe)
	return pe, ok
}

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx answers.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx answers.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTimeout represents deadline expiry.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassParsing represents unusable content.
	ErrorClassParsing ErrorClass = "parsing"
)

// Classify returns the class of a fetch error, or "" for nil and
// unrecognized errors.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}
	if _, ok := IsParsing(err); ok {
		return ErrorClassParsing
	}
	ue, ok := IsUpstream(err)
	if !ok {
		return ""
	}
	switch {
	case ue.Status == StatusTimeout && ue.Err != nil:
		return ErrorClassTimeout
	case ue.Status == StatusUnreachable && ue.Err != nil:
		return ErrorClassNetwork
	case ue.Status >= 400 && ue.Status < 500:
		return ErrorClassClient
	case ue.Status >= 500:
		return ErrorClassServer
	}
	return ""
}
