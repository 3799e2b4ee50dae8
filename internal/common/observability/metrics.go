// Package observability exposes OpenTelemetry instruments for the reminder
// engine through the Prometheus exporter.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	sweepCounter  otelmetric.Int64Counter
	sweepDuration otelmetric.Float64Histogram
	eventCounter  otelmetric.Int64Counter
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
}

// New registers a meter provider backed by the Prometheus exporter. The
// returned value is usable (as a no-op) even when the exporter fails.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)
	o := &Observability{meterProvider: provider, meter: meter}

	o.sweepCounter, _ = meter.Int64Counter(
		"reminders.sweeps",
		otelmetric.WithDescription("Number of evaluation sweeps"),
	)
	o.sweepDuration, _ = meter.Float64Histogram(
		"reminders.sweep.duration",
		otelmetric.WithDescription("Sweep duration"),
		otelmetric.WithUnit("ms"),
	)
	o.eventCounter, _ = meter.Int64Counter(
		"reminders.events",
		otelmetric.WithDescription("Reminder events fired"),
	)
	o.jobCounter, _ = meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)

	return o, nil
}

// RecordSweep records one sweep with the number of users and events it saw.
func (o *Observability) RecordSweep(ctx context.Context, duration time.Duration, users, events int) {
	if o == nil || o.sweepCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.Int("users", users))
	o.sweepCounter.Add(ctx, 1, attrs)
	o.sweepDuration.Record(ctx, float64(duration.Milliseconds()))
	o.eventCounter.Add(ctx, int64(events))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string, duration time.Duration) {
	if o == nil || o.jobCounter == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	)
	o.jobCounter.Add(ctx, 1, attrs)
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	return o.meterProvider.Shutdown(ctx)
}
