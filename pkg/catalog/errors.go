package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind discriminates catalog failures.
type Kind string

const (
	// KindBadRequest covers malformed input and 400 responses.
	KindBadRequest Kind = "bad_request"

	// KindNotFound covers 404 responses.
	KindNotFound Kind = "not_found"

	// KindRequestFailed covers every other non-2xx response and failures
	// without a response.
	KindRequestFailed Kind = "request_failed"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrNotFound      = errors.New("not found")
	ErrRequestFailed = errors.New("request failed")
)

// Messages produced locally, before any request.
const (
	msgInvalidID  = "invalid id"
	msgBadRequest = "bad request"
)

// Error is a typed catalog failure carrying the service's status and message.
// Status is 0 when no response was received.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// Error renders the kind followed by the status/message pair, e.g.
//
//	bad request: {"status": 400, "message": "invalid id"}
func (e *Error) Error() string {
	return fmt.Sprintf("%s: {\"status\": %d, \"message\": %q}", e.sentinel(), e.Status, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's Kind.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindBadRequest:
		return ErrBadRequest
	case KindNotFound:
		return ErrNotFound
	default:
		return ErrRequestFailed
	}
}

// KindOf returns the Kind of err, or "" when err is not a catalog error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func badRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Status: http.StatusBadRequest, Message: message}
}

// invalidIDs builds the local rejection for a set of malformed ids.
// One malformed id is reported as "invalid id", several as "bad request".
func invalidIDs(count int) *Error {
	if count == 1 {
		return badRequest(msgInvalidID)
	}
	return badRequest(msgBadRequest)
}

func requestFailed(message string, err error) *Error {
	return &Error{Kind: KindRequestFailed, Message: message, Err: err}
}

// serviceError is the error envelope the catalog service returns.
type serviceError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// statusError maps a non-2xx response to an *Error, keeping the service's
// status and message verbatim when the body carries them.
func statusError(status int, body []byte) *Error {
	e := &Error{Status: status, Message: http.StatusText(status)}

	var se serviceError
	if err := json.Unmarshal(body, &se); err == nil && se.Error.Message != "" {
		e.Message = se.Error.Message
		if se.Error.Status != 0 {
			e.Status = se.Error.Status
		}
	}

	switch status {
	case http.StatusBadRequest:
		e.Kind = KindBadRequest
	case http.StatusNotFound:
		e.Kind = KindNotFound
	default:
		e.Kind = KindRequestFailed
	}
	return e
}

// asError returns err as an *Error, wrapping foreign errors as request
// failures.
func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return requestFailed(err.Error(), err)
}
