package audit

import (
	"context"
	"log/slog"

	"pointer/pkg/platform/circuit"
)

// ResilientStore appends to primary while it is healthy and to fallback
// while the breaker is open. A failed primary append is retried on fallback
// so no event is lost.
type ResilientStore struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewResilientStore(primary, fallback Store, breaker *circuit.Breaker, logger *slog.Logger) *ResilientStore {
	return &ResilientStore{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (s *ResilientStore) Append(ctx context.Context, event Event) error {
	if !s.breaker.Allow() {
		return s.fallback.Append(ctx, event)
	}

	err := s.primary.Append(ctx, event)
	if err == nil {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.InfoContext(ctx, "audit sink recovered", "sink", s.breaker.Name())
		}
		return nil
	}

	if _, change := s.breaker.RecordFailure(); change.Opened {
		s.logger.WarnContext(ctx, "audit sink unhealthy, using fallback", "sink", s.breaker.Name(), "error", err)
	}
	return s.fallback.Append(ctx, event)
}
