package core

import (
	"context"
	"time"

	"spatialcore/internal/persistence"
	"spatialcore/internal/storage"
	"spatialcore/pkg/domain"
)

// Service exposes the container persistence operations with audit,
// metrics and tracing instrumentation around each.
type Service struct {
	store   storage.Store
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
}

// Option customizes a Service at construction time.
type Option func(*Service)

// WithAuditRecorder wires an audit sink into the service.
func WithAuditRecorder(r AuditRecorder) Option {
	return func(s *Service) { s.audit = r }
}

// WithMetricsRecorder wires a metrics sink into the service.
func WithMetricsRecorder(r MetricsRecorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithTracer wires a tracer into the service.
func WithTracer(t Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithClock overrides the time source used for audit timestamps and
// durations.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// NewService constructs a service over the supplied store.
func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{store: store, clock: ClockFunc(time.Now)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenStore opens the store selected by the environment.
func OpenStore(ctx context.Context) (storage.Store, error) {
	return storage.Open(ctx)
}

// DefaultService opens the environment-selected store and wraps it.
func DefaultService(ctx context.Context, opts ...Option) (*Service, error) {
	store, err := OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	return NewService(store, opts...), nil
}

// Store returns the underlying object store.
func (s *Service) Store() storage.Store { return s.store }

// Close releases the underlying store.
func (s *Service) Close() error { return s.store.Close() }

// WriteContainer persists a container under prefix.
func (s *Service) WriteContainer(ctx context.Context, prefix string, c *Container, opts WriteOptions) error {
	return s.instrument(ctx, "write_container", prefix, func(ctx context.Context) error {
		return persistence.Write(ctx, s.store, prefix, c, opts)
	})
}

// ReadContainer reconstructs a container from prefix.
func (s *Service) ReadContainer(ctx context.Context, prefix string, opts ReadOptions) (*Container, *ReadReport, error) {
	var (
		c      *Container
		report *ReadReport
	)
	err := s.instrument(ctx, "read_container", prefix, func(ctx context.Context) error {
		var err error
		c, report, err = persistence.Read(ctx, s.store, prefix, opts)
		return err
	})
	return c, report, err
}

// WriteTransformations rewrites one element's transformation records on
// the container's backing store.
func (s *Service) WriteTransformations(ctx context.Context, c *Container, ref ElementRef) error {
	return s.instrument(ctx, "write_transformations", ref.Path(), func(ctx context.Context) error {
		return persistence.WriteTransformations(ctx, s.store, c, ref)
	})
}

// CheckContainer probes a persisted container in warn mode and returns
// the read report without keeping the container. Damaged elements show
// up as failed statuses, not as an error.
func (s *Service) CheckContainer(ctx context.Context, prefix string) (*ReadReport, error) {
	var report *ReadReport
	err := s.instrument(ctx, "check_container", prefix, func(ctx context.Context) error {
		var err error
		_, report, err = persistence.Read(ctx, s.store, prefix, ReadOptions{OnBadKeys: OnBadKeysWarn})
		return err
	})
	return report, err
}

// ValidateContainer runs the relational integrity check over a live
// container, instrumented like the store operations.
func (s *Service) ValidateContainer(ctx context.Context, c *Container) (Result, error) {
	var res Result
	err := s.instrument(ctx, "validate_container", c.Path(), func(context.Context) error {
		if c == nil {
			return domain.ErrValidation{Op: "validate_container", Reason: "nil container"}
		}
		res = c.ValidateIntegrity()
		return nil
	})
	return res, err
}

// instrument runs one operation under the configured span, metric and
// audit hooks. The hooks observe the operation; they never change its
// outcome.
func (s *Service) instrument(ctx context.Context, operation, path string, fn func(context.Context) error) error {
	start := s.clock.Now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	if span != nil {
		span.End(err)
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, duration)
	}
	if s.audit != nil {
		entry := AuditEntry{
			Operation: operation,
			Path:      path,
			Status:    AuditStatusSuccess,
			Duration:  duration,
			Timestamp: start,
		}
		if err != nil {
			entry.Status = AuditStatusError
			entry.Error = err.Error()
		}
		s.audit.Record(ctx, entry)
	}
	return err
}
