// Package errors defines the error taxonomy shared by the resource runtime
// and the data-store boundary. All errors are plain sentinels that callers
// match with errors.Is; constructor helpers attach a situation-specific
// message while keeping the sentinel as the match target.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Runtime errors raised by the resource core.
var ErrNotWritable = fmt.Errorf("attribute is not writable")
var ErrNoSuchAttribute = fmt.Errorf("no such attribute")
var ErrInvalidState = fmt.Errorf("invalid state")
var ErrTypeMismatch = fmt.Errorf("type mismatch")
var ErrInvalidArgument = fmt.Errorf("invalid argument")

// Remote errors surfaced by the data-store boundary.
var ErrAlreadyExists = fmt.Errorf("already exists")
var ErrBadRequest = fmt.Errorf("bad request")
var ErrBadResponse = fmt.Errorf("bad response")
var ErrInternal = fmt.Errorf("internal error")
var ErrNotFound = fmt.Errorf("not found")
var ErrRequest = fmt.Errorf("request error")

type taggedError struct {
	msg    string
	target error
}

func (t taggedError) Error() string        { return t.msg }
func (t taggedError) Is(target error) bool { return target == t.target }

func NewNotWritableError(attribute, typeName string) error {
	return &taggedError{
		msg:    fmt.Sprintf("attribute %q of %s is not writable", attribute, typeName),
		target: ErrNotWritable,
	}
}

func NewNoSuchAttributeError(attribute, typeName string) error {
	return &taggedError{
		msg:    fmt.Sprintf("%s has no attribute %q", typeName, attribute),
		target: ErrNoSuchAttribute,
	}
}

func NewInvalidStateError(msg string) error {
	return &taggedError{
		msg:    msg,
		target: ErrInvalidState,
	}
}

func NewTypeMismatchError(msg string) error {
	return &taggedError{
		msg:    msg,
		target: ErrTypeMismatch,
	}
}

func NewInvalidArgumentError(msg string) error {
	return &taggedError{
		msg:    msg,
		target: ErrInvalidArgument,
	}
}

func NewNotFoundError(msg string) error {
	return &taggedError{
		msg:    msg,
		target: ErrNotFound,
	}
}

func NewAlreadyExistsError(msg string) error {
	return &taggedError{
		msg:    msg,
		target: ErrAlreadyExists,
	}
}

func NewBadRequestError(msg string) error {
	return &taggedError{
		msg:    msg,
		target: ErrBadRequest,
	}
}

// NewErrorFromProblemReport translates an error response from the remote
// API into the taxonomy. Bodies are expected to follow RFC7807, but a bare
// {"message": ...} body is accepted as well since not every API is that
// well behaved.
func NewErrorFromProblemReport(code int, body []byte) error {
	report := &struct {
		Title   string `json:"title"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}{}

	detail := fmt.Sprintf("request failed with status code %d", code)

	if err := json.Unmarshal(body, report); err == nil {
		if report.Detail != "" {
			detail = report.Detail
		} else if report.Message != "" {
			detail = report.Message
		} else if report.Title != "" {
			detail = report.Title
		}
	}

	switch code {
	case http.StatusNotFound:
		return NewNotFoundError(detail)
	case http.StatusConflict:
		return NewAlreadyExistsError(detail)
	case http.StatusBadRequest:
		return NewBadRequestError(detail)
	}

	return &taggedError{
		msg:    fmt.Sprintf("[code: %d] %s", code, detail),
		target: ErrInternal,
	}
}
