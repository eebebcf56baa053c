// Package apperr classifies failures so handlers can map them to HTTP
// responses without inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	Validation   Kind = "validation"
	NotFound     Kind = "not_found"
	Unauthorized Kind = "unauthorized"
	Conflict     Kind = "conflict"
	Internal     Kind = "internal"
)

type AppError struct {
	Kind    Kind
	Message string // safe to return to the client
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

func ValidationErr(msg string) *AppError {
	return &AppError{Kind: Validation, Message: msg}
}

func NotFoundErr(msg string) *AppError {
	return &AppError{Kind: NotFound, Message: msg}
}

// UnauthorizedErr is returned when the resource exists but belongs to
// someone else.
func UnauthorizedErr(msg string) *AppError {
	return &AppError{Kind: Unauthorized, Message: msg}
}

func ConflictErr(msg string) *AppError {
	return &AppError{Kind: Conflict, Message: msg}
}

// Wrap hides err behind a generic message.
func Wrap(err error, msg string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Kind: Internal, Message: msg, Err: err}
}

func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func Is(err error, kind Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == kind
}

func HTTPStatus(err error) int {
	ae, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Unauthorized:
		return http.StatusForbidden
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func PublicMessage(err error) string {
	if ae, ok := As(err); ok && ae.Message != "" {
		return ae.Message
	}
	return "Internal server error"
}
