package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"fwcatalog/internal/github"
)

// InstrumentedSource wraps a github.Source with OpenTelemetry tracing and
// metrics instrumentation.
type InstrumentedSource struct {
	inner    github.Source
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

var _ github.Source = (*InstrumentedSource)(nil)

// NewInstrumentedSource creates a source wrapper that records trace spans,
// call latency histograms, and error counters for every GitHub API call.
func NewInstrumentedSource(inner github.Source) (*InstrumentedSource, error) {
	tracer := otel.Tracer("fwcatalog/github")
	meter := otel.Meter("fwcatalog/github")

	duration, err := meter.Float64Histogram(
		"github.call.duration",
		metric.WithDescription("Duration of GitHub API calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"github.call.errors",
		metric.WithDescription("Number of failed GitHub API calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedSource{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedSource) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "github."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("github.operation", operation),
		}, attrs...)...),
	)
	return ctx, span
}

func (s *InstrumentedSource) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// ListReleases lists releases through the wrapped source.
func (s *InstrumentedSource) ListReleases(ctx context.Context, repo string) ([]github.Release, error) {
	ctx, span := s.startSpan(ctx, "ListReleases", attribute.String("github.repo", repo))
	start := time.Now()
	result, err := s.inner.ListReleases(ctx, repo)
	s.record(ctx, span, "ListReleases", start, err)
	return result, err
}

// FetchAsset downloads an asset through the wrapped source.
func (s *InstrumentedSource) FetchAsset(ctx context.Context, url string) ([]byte, error) {
	ctx, span := s.startSpan(ctx, "FetchAsset", attribute.String("github.asset_url", url))
	start := time.Now()
	result, err := s.inner.FetchAsset(ctx, url)
	s.record(ctx, span, "FetchAsset", start, err)
	return result, err
}
