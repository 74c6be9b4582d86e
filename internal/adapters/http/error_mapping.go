package httpadapter

import (
	"context"
	"errors"
	"net/http"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	kind := domain.KindOf(err)
	if timedOut(err, kind) {
		return http.StatusGatewayTimeout
	}
	if kind == nil {
		return http.StatusInternalServerError
	}
	switch kind.Class() {
	case domain.ClassInput:
		return http.StatusBadRequest
	case domain.ClassNotFound:
		return http.StatusNotFound
	case domain.ClassUnderstanding:
		return http.StatusUnprocessableEntity
	case domain.ClassUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is a stable machine-readable name for the error kind.
func errorCode(err error) string {
	kind := domain.KindOf(err)
	switch {
	case timedOut(err, kind):
		return "timeout"
	case kind != nil:
		return kind.Code()
	default:
		return "internal"
	}
}

// A deadline only outranks kinds that a retry could fix.
func timedOut(err error, kind *domain.Kind) bool {
	return errors.Is(err, context.DeadlineExceeded) && (kind == nil || kind.Retryable())
}
