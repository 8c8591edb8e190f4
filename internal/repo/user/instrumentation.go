package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mkrupp/homecase-users/internal/domain"
	"github.com/mkrupp/homecase-users/internal/infra/logging"
)

const instrumentationName = "github.com/mkrupp/homecase-users/internal/repo/user"

const (
	outcomeOK        = "ok"
	outcomeNotFound  = "not_found"
	outcomeDuplicate = "duplicate"
	outcomeError     = "error"
)

// instrumentation records a span, an operation counter and a duration
// histogram for every repository call. Without a registered OpenTelemetry
// SDK the global providers are no-ops.
type instrumentation struct {
	tracer   trace.Tracer
	ops      metric.Int64Counter
	duration metric.Float64Histogram
	log      logging.Logger
}

func newInstrumentation(log logging.Logger) (*instrumentation, error) {
	meter := otel.Meter(instrumentationName)

	ops, err := meter.Int64Counter("users.store.operations",
		metric.WithDescription("Number of user store operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create operations counter: %w", err)
	}

	duration, err := meter.Float64Histogram("users.store.duration",
		metric.WithDescription("User store operation duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 1000),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &instrumentation{
		tracer:   otel.Tracer(instrumentationName),
		ops:      ops,
		duration: duration,
		log:      log,
	}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, domain.ErrUserNotFound):
		return outcomeNotFound
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return outcomeDuplicate
	default:
		return outcomeError
	}
}

// observe runs fn inside a span named after op and records its outcome.
// Not-found and duplicate outcomes are client errors and do not mark the span as failed.
func (in *instrumentation) observe(ctx context.Context, op string, fn func(ctx context.Context) error) (err error) {
	start := time.Now()

	ctx, span := in.tracer.Start(ctx, "users.store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "sqlite"),
			attribute.String("db.operation", op),
		),
	)

	defer func() {
		outcome := outcomeOf(err)
		elapsed := time.Since(start)
		attrs := metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("outcome", outcome),
		)

		in.ops.Add(ctx, 1, attrs)
		in.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)

		span.SetAttributes(attribute.String("users.outcome", outcome))

		if outcome == outcomeError {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.End()

		in.log.DebugContext(ctx, "store operation",
			"operation", op,
			"outcome", outcome,
			"duration", elapsed.String(),
		)
	}()

	return fn(ctx)
}
