package services

import (
	"errors"
	"net/http"

	instoo_errors "instoo/pkg/errors"
)

// HTTPStatus maps an error kind to a response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, instoo_errors.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, instoo_errors.ErrRateLimited):
		return http.StatusTooManyRequests
	}

	switch instoo_errors.KindOf(err) {
	case instoo_errors.KindValidation:
		return http.StatusBadRequest
	case instoo_errors.KindForbidden:
		return http.StatusForbidden
	case instoo_errors.KindNotFound:
		return http.StatusNotFound
	case instoo_errors.KindAlreadyExists, instoo_errors.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// notFoundAs rewrites a storage ErrNotFound into a coded error and wraps
// anything else as INTERNAL. Typed errors pass through.
func notFoundAs(err error, code, message string) error {
	if err == nil {
		return nil
	}
	var typed *instoo_errors.Error
	if errors.As(err, &typed) {
		return typed
	}
	if errors.Is(err, instoo_errors.ErrNotFound) {
		return instoo_errors.NotFound(code, message)
	}
	return instoo_errors.Internal(message, err)
}

// wrapInternal wraps an untyped failure, leaving typed errors alone.
func wrapInternal(message string, err error) error {
	if err == nil {
		return nil
	}
	var typed *instoo_errors.Error
	if errors.As(err, &typed) {
		return typed
	}
	return instoo_errors.Internal(message, err)
}
