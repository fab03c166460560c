package observability

import (
	"context"
	"log"
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
	fetchCounter  otelmetric.Int64Counter
	fetchDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	fetchCounter, _ := meter.Int64Counter(
		"category.fetches",
		otelmetric.WithDescription("Number of upstream category fetches"),
	)

	fetchDuration, _ := meter.Float64Histogram(
		"category.fetch.duration",
		otelmetric.WithDescription("Upstream category fetch duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		fetchCounter:  fetchCounter,
		fetchDuration: fetchDuration,
	}
}

func (o *Observability) RecordFetch(ctx context.Context, category, status string) {
	if o.fetchCounter != nil {
		o.fetchCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("category", category),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordFetchDuration(ctx context.Context, duration time.Duration, category string) {
	if o.fetchDuration != nil {
		o.fetchDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("category", category),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
