// Package observed wraps any storage.Storage with OpenTelemetry spans and
// metrics plus a slog warning for slow operations. With no SDK installed
// the global tracer and meter are no-ops, so wrapping is always safe.
package observed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aanand-mishra/users-api/internal/storage"
	"github.com/aanand-mishra/users-api/internal/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/aanand-mishra/users-api/internal/storage"

// Metrics holds the instruments recorded for every operation.
type Metrics struct {
	OpCount    metric.Int64Counter
	OpDuration metric.Float64Histogram
	OpErrors   metric.Int64Counter
}

// Storage decorates another storage.Storage.
type Storage struct {
	next    storage.Storage
	system  string
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics
	slow    time.Duration
}

var _ storage.Storage = (*Storage)(nil)

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger used for slow-operation warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) { s.logger = l }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Storage) { s.tracer = t }
}

// WithMeter overrides the global meter.
func WithMeter(m metric.Meter) Option {
	return func(s *Storage) { s.metrics = initMetrics(m) }
}

// WithSlowThreshold sets the duration above which an operation is
// logged at WARN. Zero disables the warning.
func WithSlowThreshold(d time.Duration) Option {
	return func(s *Storage) { s.slow = d }
}

// New wraps next. system names the backend ("mongodb", "sqlite", ...)
// and is attached to every span and measurement.
func New(next storage.Storage, system string, opts ...Option) *Storage {
	s := &Storage{
		next:   next,
		system: system,
		logger: slog.Default(),
		tracer: otel.Tracer(instrumentationName),
		slow:   200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = initMetrics(otel.Meter(instrumentationName))
	}
	return s
}

func initMetrics(meter metric.Meter) *Metrics {
	opCount, _ := meter.Int64Counter("storage.op.count",
		metric.WithDescription("Total number of storage operations"),
		metric.WithUnit("{operation}"),
	)
	opDuration, _ := meter.Float64Histogram("storage.op.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	opErrors, _ := meter.Int64Counter("storage.op.errors",
		metric.WithDescription("Total number of failed storage operations"),
		metric.WithUnit("{error}"),
	)
	return &Metrics{OpCount: opCount, OpDuration: opDuration, OpErrors: opErrors}
}

// observe runs fn inside a span and records its outcome.
func (s *Storage) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", s.system),
		attribute.String("db.operation", op),
	}

	ctx, span := s.tracer.Start(ctx, "storage."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	set := metric.WithAttributes(attrs...)
	s.metrics.OpCount.Add(ctx, 1, set)
	s.metrics.OpDuration.Record(ctx, float64(elapsed.Microseconds())/1000, set)

	// A miss or a bad id is an answer, not a failure of the store.
	if err != nil && !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrInvalidID) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.OpErrors.Add(ctx, 1, set)
	}

	if s.slow > 0 && elapsed > s.slow {
		s.logger.WarnContext(ctx, "slow storage operation",
			slog.String("system", s.system),
			slog.String("operation", op),
			slog.Duration("elapsed", elapsed),
		)
	}
	return err
}

func (s *Storage) CreateUser(ctx context.Context, req types.CreateUserRequest) (types.User, error) {
	var user types.User
	err := s.observe(ctx, "create_user", func(ctx context.Context) error {
		var err error
		user, err = s.next.CreateUser(ctx, req)
		return err
	})
	return user, err
}

func (s *Storage) ListUsers(ctx context.Context) ([]types.User, error) {
	var users []types.User
	err := s.observe(ctx, "list_users", func(ctx context.Context) error {
		var err error
		users, err = s.next.ListUsers(ctx)
		return err
	})
	return users, err
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (types.User, error) {
	var user types.User
	err := s.observe(ctx, "get_user", func(ctx context.Context) error {
		var err error
		user, err = s.next.GetUserByID(ctx, id)
		return err
	})
	return user, err
}

func (s *Storage) UpdateUserByID(ctx context.Context, id string, patch types.UserPatch) (types.User, error) {
	var user types.User
	err := s.observe(ctx, "update_user", func(ctx context.Context) error {
		var err error
		user, err = s.next.UpdateUserByID(ctx, id, patch)
		return err
	})
	return user, err
}

func (s *Storage) DeleteUserByID(ctx context.Context, id string) error {
	return s.observe(ctx, "delete_user", func(ctx context.Context) error {
		return s.next.DeleteUserByID(ctx, id)
	})
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.observe(ctx, "ping", s.next.Ping)
}

func (s *Storage) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}
