package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"pointer/internal/platform/metrics"
	"pointer/pkg/requestcontext"
)

var ErrBufferFull = errors.New("audit buffer full")

// Publisher captures structured audit events. It fills request metadata from
// the context and either appends synchronously or hands events to a Worker
// through a bounded buffer.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics

	inbox  chan Event
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking; a full buffer drops the event.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan Event, size)
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		p.done = make(chan struct{})
		worker := NewWorker(store, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			worker.Run(ctx)
		}()
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	event = enrich(ctx, event)

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.IncAuditDropped()
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action, "browser_id", event.BrowserID)
		return ErrBufferFull
	}
}

// Close stops the worker after draining buffered events.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.cancel == nil {
			return
		}
		p.cancel()
		<-p.done
	})
}

func enrich(ctx context.Context, event Event) Event {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.BrowserID == "" {
		event.BrowserID = requestcontext.BrowserID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Device == "" {
		event.Device = DeviceLabel(requestcontext.UserAgent(ctx))
	}
	return event
}
