package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

var (
	// Transient failures are retried and count against the breaker.
	Transient = ErrorClassification{Retryable: true, RecordFailure: true}
	// Rejected failures are the caller's fault; the collaborator is healthy.
	Rejected = ErrorClassification{}
	// Fatal failures are not retried but still trip the breaker.
	Fatal = ErrorClassification{RecordFailure: true}
)

// ClassifyCommon settles the cases shared by every collaborator: cancellation and an open
// breaker. ok is false when the adapter has to decide.
func ClassifyCommon(err error) (ErrorClassification, bool) {
	switch {
	case err == nil:
		return Rejected, true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Rejected, true
	case IsCircuitOpen(err):
		return Transient, true
	}
	return ErrorClassification{}, false
}

// ClassifyHTTPStatus treats 408, 429 and 5xx as transient.
func ClassifyHTTPStatus(code int) ErrorClassification {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500 {
		return Transient
	}
	return Rejected
}

// ClassifyNetwork is the fallback once adapter-specific errors are ruled out.
func ClassifyNetwork(err error) ErrorClassification {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Transient
	}
	return Fatal
}

// Run calls fn through the executor when one is configured. Failures the classifier
// considers retryable come back marked domain.ErrTemporary under operation.
func Run(ctx context.Context, executor *Executor, operation string, fn func(context.Context) error, classify ErrorClassifier) error {
	var err error
	if executor != nil {
		err = executor.Execute(ctx, operation, fn, classify)
	} else {
		err = fn(ctx)
	}
	return MarkTemporary(operation, err, classify)
}

func MarkTemporary(operation string, err error, classify ErrorClassifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classify(err).Retryable || IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
