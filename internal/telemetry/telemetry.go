// Package telemetry configures the OpenTelemetry tracer and meter providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gitlab.com/yelinaung/smart-finance/internal/config"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ShutdownFunc flushes and stops the providers installed by Setup.
type ShutdownFunc func(ctx context.Context) error

// Options selects the exporters.
type Options struct {
	Exporter       string
	Protocol       string
	ServiceName    string
	ServiceVersion string
	// Writer receives stdout exporter output. Defaults to os.Stdout.
	Writer io.Writer
}

// OptionsFromConfig builds Options from the application configuration.
func OptionsFromConfig(cfg *config.Config, version string) Options {
	return Options{
		Exporter:       cfg.OTelExporter,
		Protocol:       cfg.OTelOTLPProtocol,
		ServiceName:    cfg.OTelServiceName,
		ServiceVersion: version,
	}
}

// Setup installs global tracer and meter providers. With the "none"
// exporter the global no-op providers are left in place.
func Setup(ctx context.Context, opts Options) (ShutdownFunc, error) {
	if opts.Exporter == "" || opts.Exporter == config.ExporterNone {
		return func(context.Context) error { return nil }, nil
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", opts.ServiceName),
		attribute.String("service.version", opts.ServiceVersion),
	)

	spanExporter, metricExporter, err := newExporters(ctx, opts)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Log.Info().
		Str("exporter", opts.Exporter).
		Str("protocol", opts.Protocol).
		Str("service", opts.ServiceName).
		Msg("Telemetry enabled")

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func newExporters(ctx context.Context, opts Options) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	switch opts.Exporter {
	case config.ExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stdout
		}
		se, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, nil, fmt.Errorf("stdout trace exporter: %w", err)
		}
		me, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, nil, fmt.Errorf("stdout metric exporter: %w", err)
		}
		return se, me, nil

	case config.ExporterOTLP:
		if opts.Protocol == "grpc" {
			se, err := otlptracegrpc.New(ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("otlp grpc trace exporter: %w", err)
			}
			me, err := otlpmetricgrpc.New(ctx)
			if err != nil {
				return nil, nil, fmt.Errorf("otlp grpc metric exporter: %w", err)
			}
			return se, me, nil
		}
		se, err := otlptracehttp.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("otlp http trace exporter: %w", err)
		}
		me, err := otlpmetrichttp.New(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("otlp http metric exporter: %w", err)
		}
		return se, me, nil

	default:
		return nil, nil, fmt.Errorf("unknown telemetry exporter %q", opts.Exporter)
	}
}
