package httpdto

import instoo_errors "instoo/pkg/errors"

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

// NewKindErrorResponse renders a typed error. Internal causes never leave the process.
func NewKindErrorResponse(err *instoo_errors.Error) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err.Message,
		Code:    err.Code,
		Kind:    string(err.Kind),
	}
}
