package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "linkmedic.requests.total"
	metricRequestDuration  = "linkmedic.request.duration.seconds"
	metricErrorsTotal      = "linkmedic.errors.total"
	metricInflightRequests = "linkmedic.inflight.requests"
	metricReferencesTotal  = "linkmedic.references.total"
	metricFindingsTotal    = "linkmedic.findings.total"
	metricAliasLoadsTotal  = "linkmedic.alias.loads.total"

	attrOp     = "op"
	attrStatus = "status"
	attrKind   = "kind"

	// StatusOK and StatusError are the request status attribute values.
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 1ms to 60s: single documents finish in
// milliseconds, whole-tree checks in seconds.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// metricBuilder keeps the first instrument creation error so a batch of
// instruments needs a single error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	b.setErr(name, err)

	return h
}

func (b *metricBuilder) upDownCounter(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}

// REDMetrics holds the instruments for Rate, Error, Duration metrics.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED instruments from mt.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	b := &metricBuilder{meter: mt}

	red := &REDMetrics{
		requestsTotal:    b.counter(metricRequestsTotal, "Total number of requests", "{request}"),
		requestDuration:  b.histogram(metricRequestDuration, "Request duration in seconds", "s", durationBucketBoundaries...),
		errorsTotal:      b.counter(metricErrorsTotal, "Total number of errors", "{error}"),
		inflightRequests: b.upDownCounter(metricInflightRequests, "Number of in-flight requests", "{request}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return red, nil
}

// RecordRequest records a completed request.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// CheckMetrics counts checker output.
type CheckMetrics struct {
	references metric.Int64Counter
	findings   metric.Int64Counter
	aliasLoads metric.Int64Counter
}

// NewCheckMetrics creates checker instruments from mt.
func NewCheckMetrics(mt metric.Meter) (*CheckMetrics, error) {
	b := &metricBuilder{meter: mt}

	cm := &CheckMetrics{
		references: b.counter(metricReferencesTotal, "References extracted from documents", "{reference}"),
		findings:   b.counter(metricFindingsTotal, "References reported as missing", "{finding}"),
		aliasLoads: b.counter(metricAliasLoadsTotal, "Alias configuration loads", "{load}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return cm, nil
}

// RecordDocument records the references and findings of one checked document.
func (cm *CheckMetrics) RecordDocument(ctx context.Context, kind string, references, findings int) {
	attrs := metric.WithAttributes(attribute.String(attrKind, kind))

	cm.references.Add(ctx, int64(references), attrs)
	cm.findings.Add(ctx, int64(findings), attrs)
}

// RecordAliasLoad counts one alias configuration load.
func (cm *CheckMetrics) RecordAliasLoad(ctx context.Context) {
	cm.aliasLoads.Add(ctx, 1)
}
