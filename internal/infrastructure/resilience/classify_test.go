package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/sony/gobreaker/v2"

	"github.com/tshaffer/memorappy/internal/core/domain"
)

func TestClassifyCommon(t *testing.T) {
	if class, ok := ClassifyCommon(fmt.Errorf("call: %w", context.DeadlineExceeded)); !ok || class != Rejected {
		t.Fatalf("deadline: got %+v, %v", class, ok)
	}
	if class, ok := ClassifyCommon(gobreaker.ErrOpenState); !ok || class != Transient {
		t.Fatalf("open breaker: got %+v, %v", class, ok)
	}
	if _, ok := ClassifyCommon(errors.New("adapter specific")); ok {
		t.Fatalf("expected adapter to decide")
	}
}

func TestClassifyHTTPStatus(t *testing.T) {
	for code, want := range map[int]ErrorClassification{
		http.StatusTooManyRequests:     Transient,
		http.StatusBadGateway:          Transient,
		http.StatusRequestTimeout:      Transient,
		http.StatusNotFound:            Rejected,
		http.StatusUnprocessableEntity: Rejected,
	} {
		if got := ClassifyHTTPStatus(code); got != want {
			t.Fatalf("ClassifyHTTPStatus(%d) = %+v, want %+v", code, got, want)
		}
	}
}

func TestClassifyNetwork(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	if got := ClassifyNetwork(fmt.Errorf("post: %w", opErr)); got != Transient {
		t.Fatalf("expected transient for net error, got %+v", got)
	}
	if got := ClassifyNetwork(errors.New("decode response")); got != Fatal {
		t.Fatalf("expected fatal, got %+v", got)
	}
}

func TestRunWithoutExecutorMarksTemporary(t *testing.T) {
	transient := errors.New("upstream 503")
	classify := func(err error) ErrorClassification {
		if errors.Is(err, transient) {
			return Transient
		}
		return Fatal
	}

	err := Run(context.Background(), nil, "geo.lookup", func(context.Context) error { return transient }, classify)
	if !domain.IsKind(err, domain.ErrTemporary) || !errors.Is(err, transient) {
		t.Fatalf("expected temporary wrapping that keeps the cause, got %v", err)
	}

	permanent := errors.New("bad request")
	if err := Run(context.Background(), nil, "geo.lookup", func(context.Context) error { return permanent }, classify); err != permanent {
		t.Fatalf("expected permanent error unchanged, got %v", err)
	}
	if err := Run(context.Background(), nil, "geo.lookup", func(context.Context) error { return nil }, classify); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
