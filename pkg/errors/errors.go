// Package errors defines the failure kinds a resolution can end with.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// Kind names a failure category; it is carried in notifications and HTTP meta.
type Kind string

const (
	KindInput        Kind = "input"
	KindCollaborator Kind = "collaborator"
	KindCapacity     Kind = "capacity"
	KindInternal     Kind = "internal"
)

// Collaborator names
const (
	Oracle     = "oracle"
	Crawler    = "crawler"
	Translator = "translator"
	Repository = "repository"
)

// InputError is returned for empty or unusable text. No collaborator is called.
type InputError struct {
	Field   string
	Message string
}

func NewInputError(field, msg string) *InputError {
	return &InputError{Field: field, Message: msg}
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("field '%s': %s", e.Field, e.Message)
}

func (e *InputError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadRequest, e.Error()).AddMetaValue("kind", string(KindInput)).AddMetaValue("field", e.Field)
}

// CollaboratorError wraps a failure or malformed response from an external collaborator.
type CollaboratorError struct {
	Collaborator string
	Operation    string
	Err          error
}

func NewCollaboratorError(collaborator, operation string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Operation: operation, Err: err}
}

// NewCollaboratorErrorf builds a CollaboratorError for a response that failed validation.
func NewCollaboratorErrorf(collaborator, operation, format string, args ...any) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Operation: operation, Err: fmt.Errorf(format, args...)}
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Collaborator, e.Operation, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

func (e *CollaboratorError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusBadGateway, e.Error()).AddMetaValue("kind", string(KindCollaborator)).AddMetaValue("collaborator", e.Collaborator).AddMetaValue("operation", e.Operation)
}

// CapacityError is returned when a crawl slot could not be acquired in time.
// Callers may retry later.
type CapacityError struct {
	Limit   int
	Waited  string
	Message string
}

func NewCapacityError(limit int, waited string) *CapacityError {
	return &CapacityError{
		Limit:   limit,
		Waited:  waited,
		Message: fmt.Sprintf("crawl capacity exhausted: %d sessions busy after waiting %s", limit, waited),
	}
}

func (e *CapacityError) Error() string {
	return e.Message
}

func (e *CapacityError) ToHTTPError() *httperror.HTTPError {
	return httperror.NewHTTPError(http.StatusServiceUnavailable, e.Error()).AddMetaValue("kind", string(KindCapacity)).AddMetaValue("retryable", "true")
}

func IsInputError(err error) bool {
	var target *InputError
	return stderrors.As(err, &target)
}

func IsCollaboratorError(err error) bool {
	var target *CollaboratorError
	return stderrors.As(err, &target)
}

func IsCapacityError(err error) bool {
	var target *CapacityError
	return stderrors.As(err, &target)
}

// KindOf classifies err for notifications and metrics.
func KindOf(err error) Kind {
	switch {
	case IsInputError(err):
		return KindInput
	case IsCapacityError(err):
		return KindCapacity
	case IsCollaboratorError(err):
		return KindCollaborator
	default:
		return KindInternal
	}
}

// ToHTTPError maps any resolution error onto an ectoerror HTTP error.
func ToHTTPError(err error) *httperror.HTTPError {
	var inputErr *InputError
	var collabErr *CollaboratorError
	var capErr *CapacityError
	switch {
	case stderrors.As(err, &inputErr):
		return inputErr.ToHTTPError()
	case stderrors.As(err, &capErr):
		return capErr.ToHTTPError()
	case stderrors.As(err, &collabErr):
		return collabErr.ToHTTPError()
	case httperror.IsHTTPError(err):
		return httperror.NewHTTPError(httperror.GetStatusCode(err), err.Error())
	default:
		return httperror.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
