// Package observability exports OpenTelemetry job metrics through the
// Prometheus registry served on /metrics.
package observability

import (
	"context"
	"time"

	"payment-workers/internal/common/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider *metric.MeterProvider
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
	logger        logger.Logger
}

// New installs a meter provider backed by the Prometheus exporter. When the
// exporter cannot be created the returned value records nothing.
func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter, job metrics disabled", map[string]interface{}{
			"error": err.Error(),
		})
		return &Observability{logger: log}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	jobCounter, err := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	if err != nil {
		log.Warn("failed to create job counter", map[string]interface{}{"error": err.Error()})
	}

	jobDuration, err := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		log.Warn("failed to create job duration histogram", map[string]interface{}{"error": err.Error()})
	}

	return &Observability{
		meterProvider: provider,
		jobCounter:    jobCounter,
		jobDuration:   jobDuration,
		logger:        log,
	}
}

// RecordJob counts one handled job and its duration.
func (o *Observability) RecordJob(ctx context.Context, taskType string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("task_type", taskType))
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, attrs)
	}
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.meterProvider.Shutdown(ctx); err != nil {
		o.logger.Warn("meter provider shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}
