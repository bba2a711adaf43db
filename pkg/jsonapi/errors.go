package jsonapi

import (
	"fmt"
	"net/http"
	"strconv"
)

// ErrorBuilder builds an Error.
type ErrorBuilder struct {
	err Error
}

// NewError starts an error with an HTTP status, a machine-readable code and
// a short title.
func NewError(status int, code, title string) *ErrorBuilder {
	return &ErrorBuilder{
		err: Error{
			Status: strconv.Itoa(status),
			Code:   code,
			Title:  title,
		},
	}
}

// Detail sets the human-readable explanation.
func (b *ErrorBuilder) Detail(detail string) *ErrorBuilder {
	b.err.Detail = detail
	return b
}

// Detailf sets the explanation with formatting.
func (b *ErrorBuilder) Detailf(format string, args ...any) *ErrorBuilder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// ID sets the error occurrence id.
func (b *ErrorBuilder) ID(id string) *ErrorBuilder {
	b.err.ID = id
	return b
}

// Pointer sets the JSON pointer to the offending member, e.g. "/data/attributes/value".
func (b *ErrorBuilder) Pointer(pointer string) *ErrorBuilder {
	b.source().Pointer = pointer
	return b
}

// Parameter names the path or query parameter that caused the error.
func (b *ErrorBuilder) Parameter(param string) *ErrorBuilder {
	b.source().Parameter = param
	return b
}

// Header names the request header that caused the error.
func (b *ErrorBuilder) Header(header string) *ErrorBuilder {
	b.source().Header = header
	return b
}

// Meta adds a meta entry.
func (b *ErrorBuilder) Meta(key string, value any) *ErrorBuilder {
	if b.err.Meta == nil {
		b.err.Meta = make(Meta)
	}
	b.err.Meta[key] = value
	return b
}

func (b *ErrorBuilder) source() *ErrorSource {
	if b.err.Source == nil {
		b.err.Source = &ErrorSource{}
	}
	return b.err.Source
}

// Build returns the error.
func (b *ErrorBuilder) Build() Error {
	return b.err
}

// StatusCode returns the HTTP status as an int, 500 when unset or malformed.
func (e Error) StatusCode() int {
	code, err := strconv.Atoi(e.Status)
	if err != nil || code == 0 {
		return http.StatusInternalServerError
	}
	return code
}

// ErrBadRequest creates a 400 error.
func ErrBadRequest(detail string) Error {
	return NewError(http.StatusBadRequest, "bad_request", "Bad Request").Detail(detail).Build()
}

// ErrMissingScope creates a 400 error naming the header that must identify the owner.
func ErrMissingScope(header, detail string) Error {
	return NewError(http.StatusBadRequest, "missing_scope", "Missing Scope").
		Detail(detail).
		Header(header).
		Build()
}

// ErrNotFound creates a 404 error for a resource type and id.
func ErrNotFound(resourceType, id string) Error {
	b := NewError(http.StatusNotFound, "not_found", "Not Found")
	if id == "" {
		return b.Detailf("The requested %s was not found", resourceType).Build()
	}
	return b.Detailf("The %s '%s' was not found", resourceType, id).Build()
}

// ErrValidation creates a 422 error for one failed constraint.
func ErrValidation(pointer, constraint, message string) Error {
	return NewError(http.StatusUnprocessableEntity, "validation_error", "Validation Failed").
		Detail(message).
		Pointer(pointer).
		Meta("constraint", constraint).
		Build()
}

// ErrInternal creates a 500 error.
func ErrInternal(detail string) Error {
	if detail == "" {
		detail = "An internal error occurred"
	}
	return NewError(http.StatusInternalServerError, "internal_error", "Internal Server Error").Detail(detail).Build()
}
