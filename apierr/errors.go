// Package apierr defines the failure kinds a tracker client can report and
// maps HTTP status codes onto them.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the semantic class of a failed call.
type Kind int

const (
	KindUnavailable Kind = iota
	KindBadRequest
	KindAuthRequired
	KindNotFound
	KindIncorrectData
	KindTransportFailure
	KindSessionClosed
	KindUnsupportedVerb
	KindFieldMissing
	KindPaginationProhibited
)

// Sentinel errors, one per Kind. *Error unwraps to the sentinel of its kind
// so callers can branch with errors.Is.
var (
	ErrUnavailable          = errors.New("api unavailable")
	ErrBadRequest           = errors.New("bad request")
	ErrAuthRequired         = errors.New("authentication required")
	ErrNotFound             = errors.New("resource not found")
	ErrIncorrectData        = errors.New("incorrect data")
	ErrTransportFailure     = errors.New("transport failure")
	ErrSessionClosed        = errors.New("session closed")
	ErrUnsupportedVerb      = errors.New("unsupported http verb")
	ErrFieldMissing         = errors.New("required field missing")
	ErrPaginationProhibited = errors.New("pagination prohibited")
)

var sentinels = map[Kind]error{
	KindUnavailable:          ErrUnavailable,
	KindBadRequest:           ErrBadRequest,
	KindAuthRequired:         ErrAuthRequired,
	KindNotFound:             ErrNotFound,
	KindIncorrectData:        ErrIncorrectData,
	KindTransportFailure:     ErrTransportFailure,
	KindSessionClosed:        ErrSessionClosed,
	KindUnsupportedVerb:      ErrUnsupportedVerb,
	KindFieldMissing:         ErrFieldMissing,
	KindPaginationProhibited: ErrPaginationProhibited,
}

// String returns the sentinel message for the kind.
func (k Kind) String() string {
	if s, ok := sentinels[k]; ok {
		return s.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var statusKinds = map[int]Kind{
	http.StatusBadRequest:          KindBadRequest,
	http.StatusUnauthorized:        KindAuthRequired,
	http.StatusForbidden:           KindAuthRequired,
	http.StatusNotFound:            KindNotFound,
	http.StatusUnprocessableEntity: KindIncorrectData,
}

// Classify maps a non-success HTTP status to its error kind.
// Codes missing from the table are KindUnavailable.
func Classify(status int) Kind {
	if k, ok := statusKinds[status]; ok {
		return k
	}
	return KindUnavailable
}

// IsSuccess reports whether status is one of 200, 201, 204.
func IsSuccess(status int) bool {
	switch status {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return true
	}
	return false
}

// IsRetryable reports whether status may be transparently re-sent.
func IsRetryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Error is a classified failure carrying everything known about the call
// that produced it.
type Error struct {
	Kind    Kind
	Message string

	// HTTP context. Zero for failures that never reached the server.
	StatusCode int
	Reason     string
	URL        string
	Header     http.Header

	// Body is the decoded error payload. HasBody is false when the server
	// sent nothing decodable.
	Body    any
	HasBody bool

	// Resource and Field name the entity type and wire field for
	// KindFieldMissing.
	Resource string
	Field    string

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %d %s at %s: %s", e.Kind, e.StatusCode, e.Reason, e.URL, e.Message)
	case e.Cause != nil && e.Message == e.Cause.Error():
		return fmt.Sprintf("%s: %s at %s", e.Kind, e.Message, e.URL)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap exposes the kind sentinel and, when present, the underlying cause.
func (e *Error) Unwrap() []error {
	errs := []error{sentinels[e.Kind]}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// ErrorBody returns the decoded error payload and whether one was present.
func (e *Error) ErrorBody() (any, bool) {
	return e.Body, e.HasBody
}

// HTTP builds the error for a non-success response.
func HTTP(status int, reason, url string, header http.Header, body any, hasBody bool) *Error {
	if !hasBody {
		body = nil
	}
	return &Error{
		Kind:       Classify(status),
		Message:    fmt.Sprintf("request failed: %d - %s", status, reason),
		StatusCode: status,
		Reason:     reason,
		URL:        url,
		Header:     header,
		Body:       body,
		HasBody:    hasBody,
	}
}

// Transport wraps a failure that produced no HTTP response at all.
func Transport(url string, cause error) *Error {
	msg := "no response"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Kind:    KindTransportFailure,
		Message: msg,
		URL:     url,
		Cause:   cause,
	}
}

// SessionClosed reports a call attempted after the session was torn down.
func SessionClosed() *Error {
	return &Error{
		Kind:    KindSessionClosed,
		Message: "session is not active, create a new client",
	}
}

// UnsupportedVerb reports an HTTP method outside the allow-list.
func UnsupportedVerb(verb string) *Error {
	return &Error{
		Kind:    KindUnsupportedVerb,
		Message: fmt.Sprintf("unknown method for http session: %q", verb),
	}
}

// FieldMissing reports a required wire field absent from a payload.
func FieldMissing(resource, field string) *Error {
	return &Error{
		Kind:     KindFieldMissing,
		Message:  fmt.Sprintf("%s: required field %q is missing", resource, field),
		Resource: resource,
		Field:    field,
	}
}

// PaginationProhibited reports a navigation the collection cannot perform.
func PaginationProhibited(msg string) *Error {
	return &Error{
		Kind:    KindPaginationProhibited,
		Message: msg,
	}
}

// KindOf returns the kind of err, or false if err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
