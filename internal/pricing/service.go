package pricing

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pointer/internal/platform/metrics"
	dErrors "pointer/pkg/domain-errors"
	"pointer/pkg/platform/sentinel"
)

// Service projects repository rows into Plans. A failed read is returned
// as an unavailable domain error; callers decide how to surface it.
type Service struct {
	repo    Repository
	source  string
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService wraps repo. source labels metrics and spans ("rest", "postgres").
func NewService(repo Repository, source string, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		source: source,
		logger: slog.Default(),
		tracer: otel.Tracer("pointer/pricing"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPlans returns every plan ordered by sort_order ascending.
func (s *Service) ListPlans(ctx context.Context) ([]Plan, error) {
	ctx, span := s.tracer.Start(ctx, "pricing.list_plans", trace.WithAttributes(attribute.String("source", s.source)))
	defer span.End()
	start := time.Now()

	rows, err := s.repo.ListPlans(ctx)
	if err != nil {
		s.metrics.ObservePricingFetch(s.source, "error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "Failed to load pricing data")
	}
	s.metrics.ObservePricingFetch(s.source, "ok", start)

	slices.SortStableFunc(rows, func(a, b Row) int { return cmp.Compare(a.SortOrder, b.SortOrder) })
	plans := make([]Plan, 0, len(rows))
	for _, r := range rows {
		plans = append(plans, r.Plan())
	}
	span.SetAttributes(attribute.Int("plans", len(plans)))
	return plans, nil
}

// FindBySlug returns the plan with the given slug.
func FindBySlug(plans []Plan, slug string) (Plan, error) {
	for _, p := range plans {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Plan{}, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "pricing plan not found")
}
