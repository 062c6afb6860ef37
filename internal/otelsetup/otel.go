// Package otelsetup installs the global OpenTelemetry providers: traces go to
// stdout, metrics are pushed over OTLP/HTTP (configured through the standard
// OTEL_EXPORTER_OTLP_* variables).
package otelsetup

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	stdouttrace "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	mSdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Version is stamped at build time with -ldflags "-X ...otelsetup.Version=...".
var Version = "dev"

func newResource(ctx context.Context, service, instance string) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceName(service),
			semconv.ServiceVersion(Version),
			semconv.ServiceInstanceID(instance),
		),
	)
}

// InitOTel installs tracer and meter providers for service and returns the
// function that flushes and shuts them down.
func InitOTel(ctx context.Context, service, instance string) (func(context.Context) error, error) {
	res, err := newResource(ctx, service, instance)
	if err != nil {
		return nil, err
	}

	traceExp, err := stdouttrace.New()
	if err != nil {
		return nil, err
	}
	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(traceExp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, errors.Join(err, tracerProvider.Shutdown(ctx))
	}
	meterProvider := mSdk.NewMeterProvider(
		mSdk.WithReader(mSdk.NewPeriodicReader(metricExp)),
		mSdk.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	slog.Info("otel tracing and metrics initialized", "service", service)

	return func(ctx context.Context) error {
		return errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
	}, nil
}
