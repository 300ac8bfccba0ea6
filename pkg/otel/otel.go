// Package otel wires the OpenTelemetry tracer provider for the ad format
// service. The resource describes which repository backend and transport
// latency the process runs with, so spans from different deployments can be
// told apart.
package otel

import (
	"context"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Resource attribute keys describing the store.
const (
	AttrStoreBackend     = attribute.Key("adformats.store.backend")
	AttrTransportLatency = attribute.Key("adformats.transport.latency_ms")
	AttrSeedCount        = attribute.Key("adformats.store.seed_count")
)

// Config controls OTel initialization.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Store settings recorded on the resource.
	Backend   string
	Latency   time.Duration
	SeedCount int

	// SampleRatio is the fraction of root traces kept; zero or above one keeps all.
	SampleRatio float64

	// UseStdout exports spans as JSON to Writer (os.Stdout when nil).
	UseStdout bool
	Writer    io.Writer
}

// Init installs a global tracer provider and returns its shutdown func.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
	}
	if cfg.UseStdout {
		exp, err := newStdoutExporter(cfg.Writer)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp,
			sdktrace.WithMaxExportBatchSize(512),
			sdktrace.WithBatchTimeout(200*time.Millisecond),
		))
	}
	// Without an exporter spans still carry trace ids for error envelopes.
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func newResource(ctx context.Context, cfg Config) (*sdkresource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "adformats"
	}
	version := cfg.ServiceVersion
	if version == "" {
		version = os.Getenv("ADFORMATS_VERSION")
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
		semconv.ServiceVersion(version),
		AttrTransportLatency.Int64(cfg.Latency.Milliseconds()),
		AttrSeedCount.Int(cfg.SeedCount),
	}
	if cfg.Backend != "" {
		attrs = append(attrs, AttrStoreBackend.String(cfg.Backend))
	}
	return sdkresource.New(ctx,
		sdkresource.WithFromEnv(),
		sdkresource.WithProcess(),
		sdkresource.WithHost(),
		sdkresource.WithAttributes(attrs...),
	)
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

func newStdoutExporter(w io.Writer) (sdktrace.SpanExporter, error) {
	if w == nil {
		return stdouttrace.New()
	}
	return stdouttrace.New(stdouttrace.WithWriter(w))
}
