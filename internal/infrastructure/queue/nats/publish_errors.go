package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/tshaffer/memorappy/internal/infrastructure/resilience"
)

// Connection-level failures; the client reconnects on its own, so a retry can succeed.
var transientPublishErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrConnectionReconnecting,
	nats.ErrDisconnected,
	nats.ErrReconnectBufExceeded,
}

func classifyPublishError(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	for _, target := range transientPublishErrors {
		if errors.Is(err, target) {
			return resilience.Transient
		}
	}
	if errors.Is(err, nats.ErrMaxPayload) || errors.Is(err, nats.ErrBadSubject) {
		return resilience.Rejected
	}
	return resilience.Fatal
}
