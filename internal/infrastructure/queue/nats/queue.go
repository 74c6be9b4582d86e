package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tshaffer/memorappy/internal/infrastructure/resilience"
)

const (
	DefaultSubject    = "memorappy.reviews.committed"
	defaultQueueGroup = "review-warmers"
)

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	QueueGroup           string
	// HandlerTimeout bounds one delivery. Zero leaves it to the subscriber's context.
	HandlerTimeout     time.Duration
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 2 * time.Second
	}
	if o.ReconnectWait <= 0 {
		o.ReconnectWait = 2 * time.Second
	}
	if o.MaxReconnects <= 0 {
		o.MaxReconnects = 60
	}
	if o.RetryOnFailedConnect == nil {
		retry := true
		o.RetryOnFailedConnect = &retry
	}
	o.QueueGroup = strings.TrimSpace(o.QueueGroup)
	if o.QueueGroup == "" {
		o.QueueGroup = defaultQueueGroup
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

func (o Options) natsOptions() []nats.Option {
	logger := o.Logger
	return []nats.Option{
		nats.Name("memorappy"),
		nats.Timeout(o.ConnectTimeout),
		nats.ReconnectWait(o.ReconnectWait),
		nats.MaxReconnects(o.MaxReconnects),
		nats.RetryOnFailedConnect(*o.RetryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info("nats_closed")
		}),
	}
}

// Queue carries review-committed events. Payload is the bare review id.
type Queue struct {
	conn     *nats.Conn
	subject  string
	opts     Options
	executor *resilience.Executor
	logger   *slog.Logger
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	opts := options.withDefaults()
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(url, opts.natsOptions()...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", subject, err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		opts:     opts,
		executor: opts.ResilienceExecutor,
		logger:   opts.Logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishReviewCommitted(ctx context.Context, reviewID string) error {
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, []byte(reviewID)); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	return resilience.Run(ctx, q.executor, "nats.publish", call, classifyPublishError)
}

// SubscribeReviewCommitted blocks until ctx is done, then drains the subscription.
// Handler errors are logged; the message is not redelivered.
func (q *Queue) SubscribeReviewCommitted(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.opts.QueueGroup, func(msg *nats.Msg) {
		q.deliver(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", q.subject, err)
	}
	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) deliver(ctx context.Context, msg *nats.Msg, handler func(context.Context, string) error) {
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	reviewID, ok := reviewIDFromMessage(msg)
	if !ok {
		q.logger.Warn("review_event_ignored", "subject", msg.Subject, "bytes", len(msg.Data))
		return
	}

	handlerCtx, cancel := context.WithCancel(ctx)
	if q.opts.HandlerTimeout > 0 {
		handlerCtx, cancel = context.WithTimeout(ctx, q.opts.HandlerTimeout)
	}
	defer cancel()
	if err := handler(handlerCtx, reviewID); err != nil {
		q.logger.Error("review_event_handler_failed", "review_id", reviewID, "error", err)
	}
}

func reviewIDFromMessage(msg *nats.Msg) (string, bool) {
	if msg == nil {
		return "", false
	}
	id := strings.TrimSpace(string(msg.Data))
	return id, id != ""
}
