package telemetry

import (
	"context"
	"errors"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options describes where telemetry goes and how the service is labelled
type Options struct {
	ServiceName string
	Version     string
	Environment string

	// Endpoint is the OTLP gRPC collector. Empty keeps everything local.
	Endpoint string
	Insecure bool
}

func (o Options) level() zapcore.Level {
	if o.Environment == "production" {
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

func jsonCore(level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(os.Stdout),
		level,
	)
}

// Setup returns the service logger, tracer and meter plus a shutdown func.
// Without an endpoint the tracer and meter are no-ops so callers never nil-check.
func Setup(ctx context.Context, opts Options) (*zap.Logger, trace.Tracer, metric.Meter, func(context.Context), error) {
	if opts.Endpoint == "" {
		logger := zap.New(jsonCore(opts.level())).With(zap.String("service", opts.ServiceName))
		shutdown := func(context.Context) { _ = logger.Sync() }
		return logger, tracenoop.NewTracerProvider().Tracer(opts.ServiceName), noop.NewMeterProvider().Meter(opts.ServiceName), shutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.Version),
			semconv.DeploymentEnvironment(opts.Environment),
		),
		resource.WithHost(),
	)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	tp, err := newTracerProvider(ctx, opts, res)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	mp, err := newMeterProvider(ctx, opts, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, nil, nil, err
	}
	otel.SetMeterProvider(mp)

	lp, err := newLoggerProvider(ctx, opts, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, nil, nil, err
	}

	// records go to the collector and to stdout
	logger := zap.New(zapcore.NewTee(
		otelzap.NewCore(opts.ServiceName, otelzap.WithLoggerProvider(lp)),
		jsonCore(opts.level()),
	))

	shutdown := func(ctx context.Context) {
		_ = logger.Sync()
		if err := errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx), lp.Shutdown(ctx)); err != nil {
			logger.Warn("telemetry shutdown incomplete", zap.Error(err))
		}
	}

	return logger, tp.Tracer(opts.ServiceName), mp.Meter(opts.ServiceName), shutdown, nil
}

func newTracerProvider(ctx context.Context, opts Options, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	), nil
}

func newMeterProvider(ctx context.Context, opts Options, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	exporterOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	), nil
}

func newLoggerProvider(ctx context.Context, opts Options, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	exporterOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		exporterOpts = append(exporterOpts, otlploggrpc.WithInsecure())
	}

	exporter, err := otlploggrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, err
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	), nil
}
